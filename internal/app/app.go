package app

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/fhe"
	"veilpoker/internal/state"
	"veilpoker/internal/vpcrypto"
)

const (
	AppVersion uint64 = 1
)

type VPApp struct {
	*abci.BaseApplication

	home   string
	logger *log.Logger

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
}

func New(home string, logger *log.Logger) (*VPApp, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &VPApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		logger:          logger,
		st:              st,
		lastHash:        st.AppHash(),
	}
	logger.Debug("state loaded", "height", st.Height, "tables", len(st.Tables))
	return a, nil
}

func (a *VPApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "veilpoker",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *VPApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// Structure and auth-field shape only; signatures are verified against
	// registered keys at execution, so a register+use pair works within one
	// block.
	if env.Type != "bank/mint" {
		if err := requireSignedEnvelope(env); err != nil {
			space, code, logMsg := errorsmod.ABCIInfo(err, false)
			return &abci.CheckTxResponse{Code: code, Codespace: space, Log: logMsg}, nil
		}
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

// genesisDoc is the app side of genesis.json's app_state.
type genesisDoc struct {
	// DealingPubKey is the chain-wide ElGamal dealing key (32-byte
	// ristretto point); all card ciphertexts encrypt to it.
	DealingPubKey []byte            `json:"dealingPubKey,omitempty"`
	Accounts      map[string]uint64 `json:"accounts,omitempty"`
	AccountKeys   map[string][]byte `json:"accountKeys,omitempty"`
}

func (a *VPApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(req.AppStateBytes) > 0 {
		var doc genesisDoc
		if err := json.Unmarshal(req.AppStateBytes, &doc); err != nil {
			return nil, ErrBadEnvelope.Wrapf("genesis app state: %v", err)
		}
		if len(doc.DealingPubKey) > 0 {
			if _, err := vpcrypto.PointFromBytesCanonical(doc.DealingPubKey); err != nil {
				return nil, ErrInvalidRequest.Wrapf("genesis dealing pubkey: %v", err)
			}
			a.st.Cipher = fhe.NewStore(append([]byte(nil), doc.DealingPubKey...))
		}
		for addr, bal := range doc.Accounts {
			a.st.Accounts[addr] = bal
		}
		for addr, pk := range doc.AccountKeys {
			a.st.AccountKeys[addr] = append([]byte(nil), pk...)
		}
		a.logger.Info("genesis applied",
			"accounts", len(doc.Accounts),
			"dealingKey", len(doc.DealingPubKey) > 0)
	}
	a.lastHash = a.st.AppHash()
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *VPApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height

	// Entropy for engine draws and the position beacon: nobody controls the
	// block hash at card-commit time.
	entropy := make([]byte, 0, len(req.Hash)+8)
	entropy = append(entropy, req.Hash...)
	entropy = append(entropy, u64le(uint64(req.Height))...)

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, entropy)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()
	a.logger.Debug("finalized block", "height", req.Height, "txs", len(req.Txs))

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *VPApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block for devnet durability.
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *VPApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /account/<addr>
	// - /tables
	// - /table/<id>
	// - /table/<id>/game
	// - /random/<requester>/<nonce>
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/tables":
		ids := make([]uint64, 0, len(a.st.Tables))
		for id := range a.st.Tables {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		bal := a.st.Balance(addr)
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": bal})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/table/"):
		rest := strings.TrimPrefix(path, "/table/")
		raw, wantGame := strings.CutSuffix(rest, "/game")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid table id", Height: a.st.Height}, nil
		}
		t, ok := a.st.Tables[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "table not found", Height: a.st.Height}, nil
		}
		if wantGame {
			if t.Hand == nil {
				return &abci.QueryResponse{Code: 1, Log: "no active hand", Height: a.st.Height}, nil
			}
			b, _ := json.Marshal(t.Hand)
			return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(t)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/random/"):
		rest := strings.TrimPrefix(path, "/random/")
		i := strings.LastIndex(rest, "/")
		if i <= 0 {
			return &abci.QueryResponse{Code: 1, Log: "invalid random path", Height: a.st.Height}, nil
		}
		nonce, err := strconv.ParseUint(rest[i+1:], 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid nonce", Height: a.st.Height}, nil
		}
		rs, ok := a.st.Randoms[state.RandomKey(rest[:i], nonce)]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "random not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(rs)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// deliverTx executes one tx against a staged clone and swaps it in on
// success, so a failed tx leaves no trace in state.
func (a *VPApp) deliverTx(txBytes []byte, entropy []byte) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(ErrBadEnvelope.Wrap(err.Error()))
	}

	staged, err := a.st.Clone()
	if err != nil {
		return errResult(err)
	}

	res, err := a.routeTx(staged, env, entropy)
	if err != nil {
		r := errResult(err)
		a.logger.Debug("tx failed", "type", env.Type, "codespace", r.Codespace, "code", r.Code, "log", r.Log)
		return r
	}
	a.st = staged
	return res
}

func (a *VPApp) routeTx(st *state.State, env codec.TxEnvelope, entropy []byte) (*abci.ExecTxResult, error) {
	if env.Nonce != "" {
		if err := consumeNonce(st, env); err != nil {
			return nil, err
		}
	}

	switch env.Type {
	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad auth/register_account value")
		}
		return registerAccount(st, env, msg)

	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad bank/mint value")
		}
		return bankMint(st, msg)

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad bank/send value")
		}
		return bankSend(st, env, msg)

	case "table/create":
		var msg codec.TableCreateTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad table/create value")
		}
		return tableCreate(st, env, msg)

	case "table/join":
		var msg codec.TableJoinTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad table/join value")
		}
		return tableJoin(st, env, msg)

	case "table/leave":
		var msg codec.TableLeaveTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad table/leave value")
		}
		return tableLeave(st, env, msg)

	case "table/start_hand":
		var msg codec.TableStartHandTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad table/start_hand value")
		}
		return tableStartHand(st, env, msg)

	case "table/settle":
		var msg codec.TableSettleTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad table/settle value")
		}
		return tableSettle(st, env, msg)

	case "deal/submit_batch":
		var msg codec.DealSubmitBatchTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad deal/submit_batch value")
		}
		return dealSubmitBatch(st, env, msg, entropy)

	case "deal/apply_offset":
		var msg codec.DealApplyOffsetTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad deal/apply_offset value")
		}
		return dealApplyOffset(st, env, msg, entropy)

	case "deal/reveal_position":
		var msg codec.DealRevealPositionTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad deal/reveal_position value")
		}
		return dealRevealPosition(st, env, msg, entropy)

	case "deal/assign":
		var msg codec.DealAssignTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad deal/assign value")
		}
		return dealAssign(st, env, msg, entropy)

	case "bet/post_blinds":
		var msg codec.BetPostBlindsTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad bet/post_blinds value")
		}
		return betPostBlinds(st, env, msg)

	case "bet/act":
		var msg codec.BetActTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad bet/act value")
		}
		return betAct(st, env, msg)

	case "bet/advance":
		var msg codec.BetAdvanceTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad bet/advance value")
		}
		return betAdvance(st, env, msg)

	case "reveal/board":
		var msg codec.RevealBoardTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad reveal/board value")
		}
		return revealBoard(st, env, msg)

	case "reveal/hole_share":
		var msg codec.RevealHoleShareTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad reveal/hole_share value")
		}
		return revealHoleShare(st, env, msg)

	case "random/request":
		var msg codec.RandomRequestTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad random/request value")
		}
		return randomRequest(st, env, msg, entropy)

	case "random/allow":
		var msg codec.RandomAllowTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, ErrBadEnvelope.Wrap("bad random/allow value")
		}
		return randomAllow(st, env, msg, entropy)

	default:
		return nil, ErrUnknownTxType.Wrap(env.Type)
	}
}

func errResult(err error) *abci.ExecTxResult {
	space, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Code: code, Codespace: space, Log: logMsg}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	res := &abci.ExecTxResult{Code: 0}
	appendEvent(res, typ, attrs)
	return res
}

func appendEvent(res *abci.ExecTxResult, typ string, attrs map[string]string) {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	res.Events = append(res.Events, ev)
}
