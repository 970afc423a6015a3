package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/game"
	"veilpoker/internal/state"
	"veilpoker/internal/vpcrypto"
)

func mustTable(st *state.State, id uint64) (*state.Table, error) {
	t, ok := st.Tables[id]
	if !ok {
		return nil, ErrTableNotFound.Wrapf("table %d", id)
	}
	return t, nil
}

// liveHand resolves a table together with its in-flight hand.
func liveHand(st *state.State, id uint64) (*state.Table, *state.Hand, error) {
	t, err := mustTable(st, id)
	if err != nil {
		return nil, nil, err
	}
	if t.Hand == nil {
		return nil, nil, game.ErrNoActiveHand.Wrapf("table %d", id)
	}
	return t, t.Hand, nil
}

func tableCreate(st *state.State, env codec.TxEnvelope, msg codec.TableCreateTx) (*abci.ExecTxResult, error) {
	if msg.Creator == "" || msg.Backend == "" {
		return nil, ErrInvalidRequest.Wrap("missing creator/backend")
	}
	if err := requireAccountAuth(st, env, msg.Creator); err != nil {
		return nil, err
	}
	if _, ok := st.AccountKeys[msg.Backend]; !ok {
		return nil, ErrUnknownAccount.Wrapf("backend %q not registered", msg.Backend)
	}
	// The big blind is twice the small blind and must itself fit in uint64.
	if msg.SmallBlind == 0 || msg.SmallBlind > ^uint64(0)/2 {
		return nil, ErrInvalidRequest.Wrap("invalid blinds")
	}
	if msg.MinBuyIn == 0 || msg.MaxBuyIn == 0 || msg.MaxBuyIn < msg.MinBuyIn {
		return nil, ErrInvalidRequest.Wrap("invalid buy-in range")
	}
	maxPlayers := msg.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = game.MaxSeats
	}
	if maxPlayers < game.MinPlayers || maxPlayers > game.MaxSeats {
		return nil, ErrInvalidRequest.Wrapf("maxPlayers %d outside [%d,%d]", maxPlayers, game.MinPlayers, game.MaxSeats)
	}

	id := st.NextTableID
	st.NextTableID++
	st.Tables[id] = &state.Table{
		ID:      id,
		Creator: msg.Creator,
		Backend: msg.Backend,
		Label:   msg.Label,
		Params: state.TableParams{
			MaxPlayers: maxPlayers,
			SmallBlind: msg.SmallBlind,
			MinBuyIn:   msg.MinBuyIn,
			MaxBuyIn:   msg.MaxBuyIn,
		},
		NextHandID: 1,
	}

	return okEvent("TableCreated", map[string]string{
		"tableId": fmt.Sprintf("%d", id),
		"creator": msg.Creator,
		"backend": msg.Backend,
	}), nil
}

func tableJoin(st *state.State, env codec.TxEnvelope, msg codec.TableJoinTx) (*abci.ExecTxResult, error) {
	if msg.Player == "" {
		return nil, ErrInvalidRequest.Wrap("missing player")
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return nil, err
	}
	t, err := mustTable(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if t.IsFull() {
		return nil, game.ErrTableFull.Wrapf("table %d", t.ID)
	}
	if _, ok := t.PlayerIndex(msg.Player); ok {
		return nil, ErrInvalidRequest.Wrap("already seated at this table")
	}
	if msg.BuyIn < t.Params.MinBuyIn || msg.BuyIn > t.Params.MaxBuyIn {
		return nil, game.ErrInvalidBuyIn.Wrapf("buyIn %d outside [%d,%d]", msg.BuyIn, t.Params.MinBuyIn, t.Params.MaxBuyIn)
	}
	if _, err := vpcrypto.PointFromBytesCanonical(msg.PKPlayer); err != nil {
		return nil, ErrInvalidRequest.Wrapf("pkPlayer: %v", err)
	}
	if err := st.Debit(msg.Player, msg.BuyIn); err != nil {
		return nil, ErrInsufficientFunds.Wrap(err.Error())
	}

	// Join order is seat order; a join during a live hand sits out until the
	// next one.
	seat := len(t.Players)
	t.Players = append(t.Players, state.TablePlayer{
		Addr:     msg.Player,
		PK:       append([]byte(nil), msg.PKPlayer...),
		Bankroll: msg.BuyIn,
	})

	return okEvent("PlayerJoined", map[string]string{
		"tableId": fmt.Sprintf("%d", t.ID),
		"player":  msg.Player,
		"seat":    fmt.Sprintf("%d", seat),
		"buyIn":   fmt.Sprintf("%d", msg.BuyIn),
	}), nil
}

func tableLeave(st *state.State, env codec.TxEnvelope, msg codec.TableLeaveTx) (*abci.ExecTxResult, error) {
	if msg.Player == "" {
		return nil, ErrInvalidRequest.Wrap("missing player")
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return nil, err
	}
	t, err := mustTable(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	// Seat indices must stay stable while a hand runs.
	if t.Hand != nil {
		return nil, game.ErrHandInProgress.Wrapf("table %d", t.ID)
	}
	i, ok := t.PlayerIndex(msg.Player)
	if !ok {
		return nil, ErrInvalidRequest.Wrap("not seated at this table")
	}
	refund := t.Players[i].Bankroll
	if err := st.Credit(msg.Player, refund); err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	t.Players = append(t.Players[:i], t.Players[i+1:]...)

	return okEvent("PlayerLeft", map[string]string{
		"tableId": fmt.Sprintf("%d", t.ID),
		"player":  msg.Player,
		"refund":  fmt.Sprintf("%d", refund),
	}), nil
}

func tableStartHand(st *state.State, env codec.TxEnvelope, msg codec.TableStartHandTx) (*abci.ExecTxResult, error) {
	t, err := mustTable(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	if t.Hand != nil {
		return nil, game.ErrHandInProgress.Wrapf("hand %d still running", t.Hand.HandID)
	}
	if st.Cipher == nil {
		return nil, ErrInvalidRequest.Wrap("dealing key not configured")
	}
	if len(t.Players) < game.MinPlayers {
		return nil, game.ErrNotEnoughPlayers.Wrapf("have %d, need %d", len(t.Players), game.MinPlayers)
	}
	for i, p := range t.Players {
		if p.Bankroll == 0 {
			return nil, game.ErrInvalidBuyIn.Wrapf("seat %d has no chips", i)
		}
	}

	handID := msg.HandID
	if handID == 0 {
		handID = t.NextHandID
	}
	if handID != t.NextHandID {
		return nil, ErrInvalidRequest.Wrapf("handId %d: next is %d", handID, t.NextHandID)
	}
	t.NextHandID++

	g, err := game.NewGame(uint8(len(t.Players)))
	if err != nil {
		return nil, err
	}
	t.Hand = &state.Hand{HandID: handID, Game: g}

	return okEvent("HandStarted", map[string]string{
		"tableId":     fmt.Sprintf("%d", t.ID),
		"handId":      fmt.Sprintf("%d", handID),
		"playerCount": fmt.Sprintf("%d", g.PlayerCount),
	}), nil
}

func tableSettle(st *state.State, env codec.TxEnvelope, msg codec.TableSettleTx) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableAdmin(st, env, t); err != nil {
		return nil, err
	}
	g := h.Game
	pot := g.Pot
	if err := game.Settle(g, msg.WinnerSeat, msg.WinnerRank); err != nil {
		return nil, err
	}

	// Cash out: each dealt seat's final chips return to the player's table
	// bankroll, winnings included.
	for i := 0; i < int(g.PlayerCount) && i < len(t.Players); i++ {
		if s := g.Seats[i]; s != nil {
			t.Players[i].Bankroll = s.Chips
		}
	}
	winner := t.Players[msg.WinnerSeat].Addr
	t.Hand = nil

	return okEvent("HandSettled", map[string]string{
		"tableId":    fmt.Sprintf("%d", t.ID),
		"handId":     fmt.Sprintf("%d", h.HandID),
		"winnerSeat": fmt.Sprintf("%d", msg.WinnerSeat),
		"winner":     winner,
		"winnerRank": fmt.Sprintf("%d", msg.WinnerRank),
		"pot":        fmt.Sprintf("%d", pot),
	}), nil
}
