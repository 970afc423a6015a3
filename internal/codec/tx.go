package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the devnet transaction container.
//
// CometBFT transactions are opaque bytes. We use JSON-encoded txs to move
// fast; this is NOT the final protocol encoding.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: logical signer id (account address).
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Auth ----

// Account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Table ----

type TableCreateTx struct {
	Creator string `json:"creator"`
	// Backend is the account that posts reveal shares for hands at this
	// table.
	Backend    string `json:"backend"`
	SmallBlind uint64 `json:"smallBlind"`
	MinBuyIn   uint64 `json:"minBuyIn"`
	MaxBuyIn   uint64 `json:"maxBuyIn"`
	MaxPlayers uint8  `json:"maxPlayers,omitempty"` // default 5
	Label      string `json:"label,omitempty"`
}

type TableJoinTx struct {
	Player  string `json:"player"`
	TableID uint64 `json:"tableId"`
	BuyIn   uint64 `json:"buyIn"`
	// PKPlayer is the player's ristretto point (32 bytes); hole-card shares
	// are verifiably encrypted to it.
	PKPlayer []byte `json:"pkPlayer"`
}

type TableLeaveTx struct {
	Player  string `json:"player"`
	TableID uint64 `json:"tableId"`
}

type TableStartHandTx struct {
	TableID uint64 `json:"tableId"`
	// If handId is 0, the chain allocates the next hand id deterministically.
	HandID uint64 `json:"handId,omitempty"`
}

type TableSettleTx struct {
	TableID    uint64 `json:"tableId"`
	WinnerSeat uint8  `json:"winnerSeat"`
	WinnerRank uint8  `json:"winnerRank,omitempty"`
}

// ---- Dealing ----

type DealSubmitBatchTx struct {
	TableID    uint64   `json:"tableId"`
	BatchIndex uint8    `json:"batchIndex"`
	Cards      [][]byte `json:"cards"`               // base64 ciphertexts (64 bytes each), exactly 5
	InputType  uint8    `json:"inputType,omitempty"` // engine input kind, 0 = ciphertext
}

type DealApplyOffsetTx struct {
	TableID    uint64 `json:"tableId"`
	BatchIndex uint8  `json:"batchIndex"`
}

type DealRevealPositionTx struct {
	TableID uint64 `json:"tableId"`
}

type DealAssignTx struct {
	TableID   uint64 `json:"tableId"`
	SeatIndex uint8  `json:"seatIndex"`
}

// ---- Betting ----

type BetPostBlindsTx struct {
	TableID uint64 `json:"tableId"`
}

type BetActTx struct {
	TableID uint64 `json:"tableId"`
	Player  string `json:"player"`
	Action  uint8  `json:"action"` // 0=fold 1=check 2=call 3=raise 4=all-in
	// RaiseAmount is the increment above the current bet; raise only.
	RaiseAmount uint64 `json:"raiseAmount,omitempty"`
}

type BetAdvanceTx struct {
	TableID uint64 `json:"tableId"`
}

// ---- Reveals ----

type RevealBoardTx struct {
	TableID uint64 `json:"tableId"`
	Slot    uint8  `json:"slot"` // community slot, 10..14
	// CardValue is the blinded plaintext the share decrypts to.
	CardValue uint64 `json:"cardValue"`
	Share     []byte `json:"share"` // base64 point (32 bytes)
	Proof     []byte `json:"proof"` // base64 Chaum-Pedersen proof (96 bytes)
}

type RevealHoleShareTx struct {
	TableID   uint64 `json:"tableId"`
	SeatIndex uint8  `json:"seatIndex"`
	HoleIndex uint8  `json:"holeIndex"` // 0 or 1
	U         []byte `json:"u"`         // base64 point (32 bytes)
	V         []byte `json:"v"`         // base64 point (32 bytes)
	Proof     []byte `json:"proof"`     // base64 enc-share proof (160 bytes)
}

// ---- Randomness ----

// Requester is the envelope signer for both random txs; the pair is keyed
// by (signer, nonce).
type RandomRequestTx struct {
	Nonce uint64 `json:"nonce"`
}

type RandomAllowTx struct {
	Nonce uint64 `json:"nonce"`
}
