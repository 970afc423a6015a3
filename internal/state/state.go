package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"veilpoker/internal/fhe"
	"veilpoker/internal/game"
)

type State struct {
	Height int64 `json:"height"`

	NextTableID uint64            `json:"nextTableId"`
	Accounts    map[string]uint64 `json:"accounts"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64 `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce (u64), for replay protection
	Tables      map[uint64]*Table `json:"tables"`

	// Cipher is the reference engine's handle store; nil until genesis
	// fixes the dealing key.
	Cipher *fhe.Store `json:"cipher,omitempty"`

	// Randoms holds backend-requested encrypted randoms, keyed
	// "requester/nonce".
	Randoms map[string]*RandomState `json:"randoms,omitempty"`
}

func NewState() *State {
	return &State{
		Height:      0,
		NextTableID: 1,
		Accounts:    map[string]uint64{},
		AccountKeys: map[string][]byte{},
		NonceMax:    map[string]uint64{},
		Tables:      map[uint64]*Table{},
		Randoms:     map[string]*RandomState{},
	}
}

func normalize(st *State) {
	if st.Accounts == nil {
		st.Accounts = map[string]uint64{}
	}
	if st.AccountKeys == nil {
		st.AccountKeys = map[string][]byte{}
	}
	if st.NonceMax == nil {
		st.NonceMax = map[string]uint64{}
	}
	if st.Tables == nil {
		st.Tables = map[uint64]*Table{}
	}
	if st.Randoms == nil {
		st.Randoms = map[string]*RandomState{}
	}
	if st.NextTableID == 0 {
		st.NextTableID = 1
	}
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	normalize(&st)
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	normalize(&out)
	return &out, nil
}

func (s *State) AppHash() []byte {
	// Hash a normalized view: maps flattened into explicitly sorted slices,
	// so the hash never depends on encoder behavior.
	type accountKV struct {
		Addr    string `json:"addr"`
		Balance uint64 `json:"balance"`
	}
	type accountKeyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type tableKV struct {
		ID    uint64 `json:"id"`
		Table *Table `json:"table"`
	}
	type ctKV struct {
		ID string `json:"id"`
		Ct []byte `json:"ct"`
	}
	type grantKV struct {
		ID       string   `json:"id"`
		Grantees []string `json:"grantees"`
	}
	type randomKV struct {
		Key    string       `json:"key"`
		Random *RandomState `json:"random"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	tables := make([]tableKV, 0, len(s.Tables))
	for id, t := range s.Tables {
		tables = append(tables, tableKV{ID: id, Table: t})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })

	var cipherPubKey []byte
	var cipherDraws uint64
	var cts []ctKV
	var grants []grantKV
	if s.Cipher != nil {
		cipherPubKey = s.Cipher.PubKey
		cipherDraws = s.Cipher.Draws
		cts = make([]ctKV, 0, len(s.Cipher.Cts))
		for id, ct := range s.Cipher.Cts {
			cts = append(cts, ctKV{ID: id, Ct: ct})
		}
		sort.Slice(cts, func(i, j int) bool { return cts[i].ID < cts[j].ID })
		grants = make([]grantKV, 0, len(s.Cipher.Grants))
		for id, gs := range s.Cipher.Grants {
			sorted := append([]string(nil), gs...)
			sort.Strings(sorted)
			grants = append(grants, grantKV{ID: id, Grantees: sorted})
		}
		sort.Slice(grants, func(i, j int) bool { return grants[i].ID < grants[j].ID })
	}

	randoms := make([]randomKV, 0, len(s.Randoms))
	for k, r := range s.Randoms {
		randoms = append(randoms, randomKV{Key: k, Random: r})
	}
	sort.Slice(randoms, func(i, j int) bool { return randoms[i].Key < randoms[j].Key })

	normalized := struct {
		Height       int64          `json:"height"`
		NextTableID  uint64         `json:"nextTableId"`
		Accounts     []accountKV    `json:"accounts"`
		AccountKeys  []accountKeyKV `json:"accountKeys,omitempty"`
		NonceMax     []nonceKV      `json:"nonceMax,omitempty"`
		Tables       []tableKV      `json:"tables"`
		CipherPubKey []byte         `json:"cipherPubKey,omitempty"`
		CipherDraws  uint64         `json:"cipherDraws,omitempty"`
		Cts          []ctKV         `json:"cts,omitempty"`
		Grants       []grantKV      `json:"grants,omitempty"`
		Randoms      []randomKV     `json:"randoms,omitempty"`
	}{
		Height:       s.Height,
		NextTableID:  s.NextTableID,
		Accounts:     accounts,
		AccountKeys:  accountKeys,
		NonceMax:     nonces,
		Tables:       tables,
		CipherPubKey: cipherPubKey,
		CipherDraws:  cipherDraws,
		Cts:          cts,
		Grants:       grants,
		Randoms:      randoms,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// ---- Tables ----

type TableParams struct {
	MaxPlayers uint8  `json:"maxPlayers"`
	SmallBlind uint64 `json:"smallBlind"`
	MinBuyIn   uint64 `json:"minBuyIn"`
	MaxBuyIn   uint64 `json:"maxBuyIn"`
}

// TablePlayer is a player's standing membership at a table. Bankroll is the
// table-escrowed balance: join moves funds in, dealing moves it onto the
// seat, settlement moves final seat chips back, leave cashes it out.
type TablePlayer struct {
	Addr string `json:"addr"`
	// PK is the player's 32-byte ristretto point; hole-card decryption
	// shares are verifiably encrypted to it.
	PK       []byte `json:"pk,omitempty"`
	Bankroll uint64 `json:"bankroll"`
}

type Table struct {
	ID      uint64      `json:"id"`
	Creator string      `json:"creator"`
	Backend string      `json:"backend"`
	Label   string      `json:"label,omitempty"`
	Params  TableParams `json:"params"`

	// Players in join order; a player's index here is their seat index for
	// every hand at this table.
	Players []TablePlayer `json:"players"`

	NextHandID uint64 `json:"nextHandId"`
	Hand       *Hand  `json:"hand,omitempty"`
}

func (t *Table) PlayerIndex(addr string) (int, bool) {
	for i, p := range t.Players {
		if p.Addr == addr {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) IsFull() bool {
	return len(t.Players) >= int(t.Params.MaxPlayers)
}

// Hand pairs the core game record with the reveal artifacts the backend
// posts while the hand runs.
type Hand struct {
	HandID uint64     `json:"handId"`
	Game   *game.Game `json:"game"`

	BoardReveals []BoardReveal `json:"boardReveals,omitempty"`
	HoleShares   []HoleShare   `json:"holeShares,omitempty"`
}

// BoardReveal is a proof-checked public decryption of one community slot.
// Value is the blinded plaintext; the card identity is Value mod 52.
type BoardReveal struct {
	Slot  uint8  `json:"slot"` // 10..14
	Value uint64 `json:"value"`
	Share []byte `json:"share"` // 32-byte point
	Proof []byte `json:"proof"` // Chaum-Pedersen proof bytes
}

// HoleShare is a verified encryption (to the seat owner's point) of the
// decryption share for one hole card.
type HoleShare struct {
	SeatIndex uint8  `json:"seatIndex"`
	HoleIndex uint8  `json:"holeIndex"` // 0 or 1
	U         []byte `json:"u"`         // 32-byte point
	V         []byte `json:"v"`         // 32-byte point
	Proof     []byte `json:"proof"`     // enc-share proof bytes
}

// Card is a face-up card identity, 0..51. Revealed board values map onto it
// modulo 52; the uniform blinding offset shifts every submitted value by the
// same amount, so distinctness mod 52 survives the blinding.
type Card uint8

func (c Card) Rank() uint8 { // 2..14
	return uint8(c%13) + 2
}

func (c Card) Suit() uint8 { // 0..3
	return uint8(c / 13)
}

func (c Card) String() string {
	r := c.Rank()
	var rch byte
	switch r {
	case 14:
		rch = 'A'
	case 13:
		rch = 'K'
	case 12:
		rch = 'Q'
	case 11:
		rch = 'J'
	case 10:
		rch = 'T'
	default:
		rch = byte('0' + r)
	}
	s := c.Suit()
	var sch byte
	switch s {
	case 0:
		sch = 'c'
	case 1:
		sch = 'd'
	case 2:
		sch = 'h'
	case 3:
		sch = 's'
	default:
		sch = '?'
	}
	return string([]byte{rch, sch})
}

// ---- Randomness utility ----

// RandomState tracks one backend-requested encrypted random value.
type RandomState struct {
	Handle    game.Handle `json:"handle"`
	Requester string      `json:"requester"`
	Nonce     uint64      `json:"nonce"`
	Allowed   bool        `json:"allowed"`
}

// RandomKey builds the Randoms map key.
func RandomKey(requester string, nonce uint64) string {
	return fmt.Sprintf("%s/%d", requester, nonce)
}
