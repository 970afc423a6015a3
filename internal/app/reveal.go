package app

import (
	"fmt"
	"sort"

	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/game"
	"veilpoker/internal/state"
	"veilpoker/internal/vpcrypto"
)

// revealBoard accepts the backend's decryption share for one open community
// slot. The share is proof-checked against the dealing key, and the claimed
// plaintext must match the unblinded point, so a dishonest backend cannot
// publish a wrong board card.
func revealBoard(st *state.State, env codec.TxEnvelope, msg codec.RevealBoardTx) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableBackend(st, env, t); err != nil {
		return nil, err
	}
	g := h.Game
	if msg.Slot < game.CommunityBase || msg.Slot >= game.CardPoolSize {
		return nil, game.ErrInvalidCardSlot.Wrapf("slot %d is not a community slot", msg.Slot)
	}
	if !g.CommunityRevealed.Test(int(msg.Slot - game.CommunityBase)) {
		return nil, game.ErrInvalidStage.Wrapf("community slot %d not yet open", msg.Slot)
	}
	for _, br := range h.BoardReveals {
		if br.Slot == msg.Slot {
			return nil, ErrInvalidRequest.Wrapf("slot %d already revealed", msg.Slot)
		}
	}
	if st.Cipher == nil {
		return nil, ErrInvalidRequest.Wrap("dealing key not configured")
	}

	ct, err := st.Cipher.Ciphertext(g.CardPool[msg.Slot])
	if err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	pk, err := vpcrypto.PointFromBytesCanonical(st.Cipher.PubKey)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("dealing pubkey: %v", err)
	}
	share, err := vpcrypto.PointFromBytesCanonical(msg.Share)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("share invalid: %v", err)
	}
	proof, err := vpcrypto.DecodeChaumPedersenProof(msg.Proof)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("proof invalid: %v", err)
	}
	ok, err := vpcrypto.ChaumPedersenVerify(pk, ct.C1, share, proof)
	if err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	if !ok {
		return nil, ErrInvalidRequest.Wrap("invalid decryption share proof")
	}
	// The claimed value must encode the unblinded point.
	m := vpcrypto.DecWithShare(ct, share)
	if !vpcrypto.PointEq(m, vpcrypto.MulBase(vpcrypto.ScalarFromUint64(msg.CardValue))) {
		return nil, ErrInvalidRequest.Wrap("claimed value does not match decryption")
	}

	h.BoardReveals = append(h.BoardReveals, state.BoardReveal{
		Slot:  msg.Slot,
		Value: msg.CardValue,
		Share: append([]byte(nil), msg.Share...),
		Proof: append([]byte(nil), msg.Proof...),
	})
	sort.Slice(h.BoardReveals, func(i, j int) bool {
		return h.BoardReveals[i].Slot < h.BoardReveals[j].Slot
	})

	return okEvent("BoardCardRevealed", map[string]string{
		"tableId": fmt.Sprintf("%d", t.ID),
		"handId":  fmt.Sprintf("%d", h.HandID),
		"slot":    fmt.Sprintf("%d", msg.Slot),
		"value":   fmt.Sprintf("%d", msg.CardValue),
		"card":    state.Card(msg.CardValue % 52).String(),
	}), nil
}

// revealHoleShare accepts the backend's verified encryption of a hole-card
// decryption share under the seat owner's point. Delivery happens on-chain
// so it is auditable, but only the owner can open the share.
func revealHoleShare(st *state.State, env codec.TxEnvelope, msg codec.RevealHoleShareTx) (*abci.ExecTxResult, error) {
	t, h, err := liveHand(st, msg.TableID)
	if err != nil {
		return nil, err
	}
	if err := requireTableBackend(st, env, t); err != nil {
		return nil, err
	}
	g := h.Game
	if msg.SeatIndex >= g.PlayerCount || int(msg.SeatIndex) >= len(t.Players) {
		return nil, game.ErrInvalidSeatIndex.Wrapf("seat %d of %d", msg.SeatIndex, g.PlayerCount)
	}
	if msg.HoleIndex > 1 {
		return nil, ErrInvalidRequest.Wrapf("holeIndex %d", msg.HoleIndex)
	}
	seat := g.Seats[msg.SeatIndex]
	if seat == nil {
		return nil, game.ErrInvalidStage.Wrapf("seat %d not dealt", msg.SeatIndex)
	}
	for _, hs := range h.HoleShares {
		if hs.SeatIndex == msg.SeatIndex && hs.HoleIndex == msg.HoleIndex {
			return nil, ErrInvalidRequest.Wrap("duplicate hole share")
		}
	}
	if st.Cipher == nil {
		return nil, ErrInvalidRequest.Wrap("dealing key not configured")
	}

	handle := seat.HoleCard1
	if msg.HoleIndex == 1 {
		handle = seat.HoleCard2
	}
	owner := t.Players[msg.SeatIndex]
	if !st.Cipher.Granted(handle, owner.Addr) {
		return nil, ErrInvalidRequest.Wrapf("handle not granted to %s", owner.Addr)
	}
	if len(owner.PK) != vpcrypto.PointBytes {
		return nil, ErrInvalidRequest.Wrapf("seat %d missing pk", msg.SeatIndex)
	}

	ct, err := st.Cipher.Ciphertext(handle)
	if err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	pk, err := vpcrypto.PointFromBytesCanonical(st.Cipher.PubKey)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("dealing pubkey: %v", err)
	}
	pkPlayer, err := vpcrypto.PointFromBytesCanonical(owner.PK)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("seat pk invalid: %v", err)
	}
	u, err := vpcrypto.PointFromBytesCanonical(msg.U)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("u invalid: %v", err)
	}
	v, err := vpcrypto.PointFromBytesCanonical(msg.V)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("v invalid: %v", err)
	}
	proof, err := vpcrypto.DecodeEncShareProof(msg.Proof)
	if err != nil {
		return nil, ErrInvalidRequest.Wrapf("proof invalid: %v", err)
	}
	ok, err := vpcrypto.EncShareVerify(pk, ct.C1, pkPlayer, u, v, proof)
	if err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	if !ok {
		return nil, ErrInvalidRequest.Wrap("invalid enc share proof")
	}

	h.HoleShares = append(h.HoleShares, state.HoleShare{
		SeatIndex: msg.SeatIndex,
		HoleIndex: msg.HoleIndex,
		U:         append([]byte(nil), msg.U...),
		V:         append([]byte(nil), msg.V...),
		Proof:     append([]byte(nil), msg.Proof...),
	})
	sort.Slice(h.HoleShares, func(i, j int) bool {
		if h.HoleShares[i].SeatIndex != h.HoleShares[j].SeatIndex {
			return h.HoleShares[i].SeatIndex < h.HoleShares[j].SeatIndex
		}
		return h.HoleShares[i].HoleIndex < h.HoleShares[j].HoleIndex
	})

	return okEvent("HoleShareDelivered", map[string]string{
		"tableId":   fmt.Sprintf("%d", t.ID),
		"handId":    fmt.Sprintf("%d", h.HandID),
		"seat":      fmt.Sprintf("%d", msg.SeatIndex),
		"holeIndex": fmt.Sprintf("%d", msg.HoleIndex),
	}), nil
}

func randomRequest(st *state.State, env codec.TxEnvelope, msg codec.RandomRequestTx, entropy []byte) (*abci.ExecTxResult, error) {
	if err := requireAccountAuth(st, env, env.Signer); err != nil {
		return nil, err
	}
	key := state.RandomKey(env.Signer, msg.Nonce)
	if _, ok := st.Randoms[key]; ok {
		return nil, ErrInvalidRequest.Wrapf("random %s already requested", key)
	}
	eng, err := dealingEngine(st, entropy)
	if err != nil {
		return nil, err
	}
	handle, err := eng.Rand()
	if err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	st.Randoms[key] = &state.RandomState{
		Handle:    handle,
		Requester: env.Signer,
		Nonce:     msg.Nonce,
	}

	return okEvent("RandomRequested", map[string]string{
		"requester": env.Signer,
		"nonce":     fmt.Sprintf("%d", msg.Nonce),
		"handle":    string(handle),
	}), nil
}

func randomAllow(st *state.State, env codec.TxEnvelope, msg codec.RandomAllowTx, entropy []byte) (*abci.ExecTxResult, error) {
	if err := requireAccountAuth(st, env, env.Signer); err != nil {
		return nil, err
	}
	key := state.RandomKey(env.Signer, msg.Nonce)
	rs, ok := st.Randoms[key]
	if !ok {
		return nil, ErrInvalidRequest.Wrapf("no random for %s", key)
	}
	if rs.Allowed {
		return nil, ErrInvalidRequest.Wrapf("random %s already allowed", key)
	}
	eng, err := dealingEngine(st, entropy)
	if err != nil {
		return nil, err
	}
	if err := eng.GrantDecrypt(rs.Handle, rs.Requester); err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	rs.Allowed = true

	return okEvent("RandomAllowed", map[string]string{
		"requester": rs.Requester,
		"nonce":     fmt.Sprintf("%d", msg.Nonce),
	}), nil
}
