package app

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/fhe"
	"veilpoker/internal/game"
	"veilpoker/internal/state"
)

const positionBeaconDomain = "vp/v1/beacon/position"

func u64le(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}

// blockBeacon derives the position beacon from the block entropy carried
// through FinalizeBlock, so the rotation is unknowable when cards are
// committed in an earlier block.
type blockBeacon struct {
	entropy []byte
}

func (b blockBeacon) Current() (uint64, error) {
	if len(b.entropy) == 0 {
		return 0, ErrInvalidRequest.Wrap("beacon entropy unavailable")
	}
	h := sha256.New()
	h.Write([]byte(positionBeaconDomain))
	h.Write(b.entropy)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8]), nil
}

func dealingEngine(st *state.State, entropy []byte) (*fhe.Engine, error) {
	if st.Cipher == nil {
		return nil, ErrInvalidRequest.Wrap("dealing key not configured")
	}
	eng, err := fhe.NewEngine(st.Cipher, entropy)
	if err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	return eng, nil
}

func dealSubmitBatch(st *state.State, env codec.TxEnvelope, msg codec.DealSubmitBatchTx, entropy []byte) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	if len(msg.Cards) != game.BatchSize {
		return nil, ErrInvalidRequest.Wrapf("need %d cards, got %d", game.BatchSize, len(msg.Cards))
	}
	var cards [game.BatchSize][]byte
	copy(cards[:], msg.Cards)

	eng, err := dealingEngine(st, entropy)
	if err != nil {
		return nil, err
	}
	if err := game.SubmitBatch(h.Game, eng, msg.BatchIndex, cards, msg.InputType); err != nil {
		return nil, wireError(err)
	}

	res := okEvent("CardsBatchSubmitted", map[string]string{
		"tableId": fmt.Sprintf("%d", t.ID),
		"handId":  fmt.Sprintf("%d", h.HandID),
		"batch":   fmt.Sprintf("%d", msg.BatchIndex),
	})
	if h.Game.CardsSubmitted {
		appendEvent(res, "CardsCommitted", map[string]string{
			"tableId": fmt.Sprintf("%d", t.ID),
			"handId":  fmt.Sprintf("%d", h.HandID),
		})
	}
	return res, nil
}

func dealApplyOffset(st *state.State, env codec.TxEnvelope, msg codec.DealApplyOffsetTx, entropy []byte) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	eng, err := dealingEngine(st, entropy)
	if err != nil {
		return nil, err
	}
	if err := game.ApplyOffsetBatch(h.Game, eng, msg.BatchIndex); err != nil {
		return nil, wireError(err)
	}

	res := okEvent("OffsetBatchApplied", map[string]string{
		"tableId": fmt.Sprintf("%d", t.ID),
		"handId":  fmt.Sprintf("%d", h.HandID),
		"batch":   fmt.Sprintf("%d", msg.BatchIndex),
	})
	if h.Game.OffsetApplied {
		appendEvent(res, "OffsetApplied", map[string]string{
			"tableId": fmt.Sprintf("%d", t.ID),
			"handId":  fmt.Sprintf("%d", h.HandID),
		})
	}
	return res, nil
}

func dealRevealPosition(st *state.State, env codec.TxEnvelope, msg codec.DealRevealPositionTx, entropy []byte) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	if err := game.RevealPosition(h.Game, blockBeacon{entropy: entropy}); err != nil {
		return nil, wireError(err)
	}

	return okEvent("PositionRevealed", map[string]string{
		"tableId":  fmt.Sprintf("%d", t.ID),
		"handId":   fmt.Sprintf("%d", h.HandID),
		"rotation": fmt.Sprintf("%d", h.Game.Rotation()),
	}), nil
}

func dealAssign(st *state.State, env codec.TxEnvelope, msg codec.DealAssignTx, entropy []byte) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	if int(msg.SeatIndex) >= len(t.Players) {
		return nil, game.ErrInvalidSeatIndex.Wrapf("seat %d of %d", msg.SeatIndex, len(t.Players))
	}
	tp := &t.Players[msg.SeatIndex]

	eng, err := dealingEngine(st, entropy)
	if err != nil {
		return nil, err
	}
	// The seat plays the full table bankroll; settlement moves the final
	// stack back.
	if err := game.DealSeat(h.Game, eng, msg.SeatIndex, tp.Addr, tp.Bankroll); err != nil {
		return nil, wireError(err)
	}
	tp.Bankroll = 0

	res := okEvent("SeatDealt", map[string]string{
		"tableId": fmt.Sprintf("%d", t.ID),
		"handId":  fmt.Sprintf("%d", h.HandID),
		"seat":    fmt.Sprintf("%d", msg.SeatIndex),
		"player":  tp.Addr,
	})
	if h.Game.Stage == game.StagePreFlop {
		appendEvent(res, "StageAdvanced", map[string]string{
			"tableId": fmt.Sprintf("%d", t.ID),
			"handId":  fmt.Sprintf("%d", h.HandID),
			"stage":   h.Game.Stage.String(),
		})
	}
	return res, nil
}
