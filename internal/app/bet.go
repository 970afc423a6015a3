package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/game"
	"veilpoker/internal/state"
)

func betPostBlinds(st *state.State, env codec.TxEnvelope, msg codec.BetPostBlindsTx) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	g := h.Game
	if err := game.PostBlinds(g, t.Params.SmallBlind); err != nil {
		return nil, err
	}

	sbSeat := (g.DealerPosition + 1) % g.PlayerCount
	bbSeat := (g.DealerPosition + 2) % g.PlayerCount
	return okEvent("BlindsPosted", map[string]string{
		"tableId":        fmt.Sprintf("%d", t.ID),
		"handId":         fmt.Sprintf("%d", h.HandID),
		"smallBlindSeat": fmt.Sprintf("%d", sbSeat),
		"bigBlindSeat":   fmt.Sprintf("%d", bbSeat),
		"currentBet":     fmt.Sprintf("%d", g.CurrentBet),
		"actionOn":       fmt.Sprintf("%d", g.ActionOn),
	}), nil
}

func betAct(st *state.State, env codec.TxEnvelope, msg codec.BetActTx) (*abci.ExecTxResult, error) {
	if msg.Player == "" {
		return nil, ErrInvalidRequest.Wrap("missing player")
	}
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return nil, err
	}
	seat, ok := t.PlayerIndex(msg.Player)
	if !ok {
		return nil, game.ErrNotSeatOwner.Wrap("not seated at this table")
	}
	action, err := game.ParseAction(msg.Action)
	if err != nil {
		return nil, err
	}
	g := h.Game
	if err := game.Act(g, uint8(seat), action, msg.RaiseAmount); err != nil {
		return nil, err
	}

	return okEvent("ActionApplied", map[string]string{
		"tableId":       fmt.Sprintf("%d", t.ID),
		"handId":        fmt.Sprintf("%d", h.HandID),
		"player":        msg.Player,
		"seat":          fmt.Sprintf("%d", seat),
		"action":        action.String(),
		"raiseAmount":   fmt.Sprintf("%d", msg.RaiseAmount),
		"stage":         g.Stage.String(),
		"actionOn":      fmt.Sprintf("%d", g.ActionOn),
		"roundComplete": fmt.Sprintf("%t", g.RoundComplete()),
	}), nil
}

func betAdvance(st *state.State, env codec.TxEnvelope, msg codec.BetAdvanceTx) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	g := h.Game
	if g.Stage == game.StageShowdown {
		// Showdown exits through table/settle; advancing past it would strand
		// the pot and every seat's escrow.
		return nil, game.ErrInvalidStage.Wrap("showdown resolves via settlement")
	}
	if g.Stage.Betting() && !g.RoundComplete() {
		return nil, game.ErrBettingNotComplete.Wrapf("stage %s, %d/%d acted", g.Stage, g.PlayersActed, g.ActiveCount())
	}
	if err := game.AdvanceStage(g); err != nil {
		return nil, err
	}

	return okEvent("StageAdvanced", map[string]string{
		"tableId":  fmt.Sprintf("%d", t.ID),
		"handId":   fmt.Sprintf("%d", h.HandID),
		"stage":    g.Stage.String(),
		"actionOn": fmt.Sprintf("%d", g.ActionOn),
	}), nil
}
