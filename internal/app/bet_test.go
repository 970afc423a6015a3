package app

import (
	"strings"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/game"
)

func actTx(t *testing.T, a *VPApp, tableID uint64, player string, action uint8, raise uint64) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, "bet/act", codec.BetActTx{
		TableID:     tableID,
		Player:      player,
		Action:      action,
		RaiseAmount: raise,
	}, player), testEntropy())
}

func advanceTx(t *testing.T, a *VPApp, tableID uint64) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, "bet/advance", codec.BetAdvanceTx{TableID: tableID}, "alice"), testEntropy())
}

func TestPostBlinds_Gates(t *testing.T) {
	a, tableID := setupHeadsUpTable(t)
	entropy := testEntropy()
	mustOk(t, a.deliverTx(txBytesSigned(t, "table/start_hand", codec.TableStartHandTx{TableID: tableID}, "alice"), entropy))

	post := func(signer string) *abci.ExecTxResult {
		return a.deliverTx(txBytesSigned(t, "bet/post_blinds", codec.BetPostBlindsTx{TableID: tableID}, signer), entropy)
	}

	res := post("backend")
	if res.Code == 0 || !strings.Contains(res.Log, "not the table admin") {
		t.Fatalf("expected non-creator post to fail, got code=%d log=%q", res.Code, res.Log)
	}

	// Cards are not dealt yet.
	res = post("alice")
	if res.Code == 0 || !strings.Contains(res.Log, "blinds in waiting") {
		t.Fatalf("expected blinds before dealing to fail, got code=%d log=%q", res.Code, res.Log)
	}

	dealToPreflop(t, a, tableID)
	mustOk(t, post("alice"))

	res = post("alice")
	if res.Code == 0 || !strings.Contains(res.Log, "blinds already posted") {
		t.Fatalf("expected second post to fail, got code=%d log=%q", res.Code, res.Log)
	}
}

func TestAct_TurnAndLegalityGates(t *testing.T) {
	a, tableID := setupPreflopHand(t)

	// Action is on carol, the small blind.
	res := actTx(t, a, tableID, "bob", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "action on seat 1") {
		t.Fatalf("expected out-of-turn act to fail, got code=%d log=%q", res.Code, res.Log)
	}

	registerTestAccount(t, a, "dave")
	res = actTx(t, a, tableID, "dave", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "not seated at this table") {
		t.Fatalf("expected outsider act to fail, got code=%d log=%q", res.Code, res.Log)
	}

	res = actTx(t, a, tableID, "carol", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "10 to call") {
		t.Fatalf("expected check facing a bet to fail, got code=%d log=%q", res.Code, res.Log)
	}

	res = actTx(t, a, tableID, "carol", 3, 5)
	if res.Code == 0 || !strings.Contains(res.Log, "raise 5, minimum 20") {
		t.Fatalf("expected short raise to fail, got code=%d log=%q", res.Code, res.Log)
	}

	res = actTx(t, a, tableID, "carol", 9, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "invalid action") {
		t.Fatalf("expected unknown action to fail, got code=%d log=%q", res.Code, res.Log)
	}

	// A rejected action leaves the turn in place; a legal call proceeds.
	res = mustOk(t, actTx(t, a, tableID, "carol", 2, 0))
	ev := findEvent(res.Events, "ActionApplied")
	if attr(ev, "action") != "call" || attr(ev, "seat") != "1" || attr(ev, "actionOn") != "0" {
		t.Fatalf("unexpected ActionApplied attrs: %v", ev.Attributes)
	}
	if g := activeGame(t, a, tableID); g.Pot != 40 || g.Seats[1].Chips != 480 {
		t.Fatalf("call accounting off: pot=%d chips=%d", g.Pot, g.Seats[1].Chips)
	}
}

func TestFold_ShortCircuitsToShowdown(t *testing.T) {
	a, tableID := setupPreflopHand(t)

	res := mustOk(t, actTx(t, a, tableID, "carol", 0, 0))
	ev := findEvent(res.Events, "ActionApplied")
	if attr(ev, "action") != "fold" || attr(ev, "stage") != "showdown" || attr(ev, "roundComplete") != "true" {
		t.Fatalf("unexpected fold attrs: %v", ev.Attributes)
	}
	g := activeGame(t, a, tableID)
	if g.Stage != game.StageShowdown || g.PlayersRemaining != 1 {
		t.Fatalf("fold did not end the hand: stage=%s remaining=%d", g.Stage, g.PlayersRemaining)
	}
	if !g.IsFolded(1) {
		t.Fatalf("carol not marked folded")
	}

	// The folded seat may not act again.
	g.Stage = game.StagePreFlop
	g.ActionOn = 1
	res = actTx(t, a, tableID, "carol", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "player has folded") {
		t.Fatalf("expected folded seat to be locked out, got code=%d log=%q", res.Code, res.Log)
	}
}

func TestBettingRound_ChecksThroughStreets(t *testing.T) {
	a, tableID := setupPreflopHand(t)

	res := advanceTx(t, a, tableID)
	if res.Code == 0 || !strings.Contains(res.Log, "stage preflop, 0/2 acted") {
		t.Fatalf("expected premature advance to fail, got code=%d log=%q", res.Code, res.Log)
	}

	mustOk(t, actTx(t, a, tableID, "carol", 2, 0))
	mustOk(t, actTx(t, a, tableID, "bob", 1, 0))

	wantBits := []int{3, 4, 5}
	for i, stage := range []string{"flop", "turn", "river"} {
		res = mustOk(t, advanceTx(t, a, tableID))
		ev := findEvent(res.Events, "StageAdvanced")
		if attr(ev, "stage") != stage || attr(ev, "actionOn") != "1" {
			t.Fatalf("unexpected StageAdvanced attrs: %v", ev.Attributes)
		}
		g := activeGame(t, a, tableID)
		if g.CommunityRevealed.Count() != wantBits[i] {
			t.Fatalf("%s: %d community slots open, want %d", stage, g.CommunityRevealed.Count(), wantBits[i])
		}
		if g.CurrentBet != 0 || g.PlayersActed != 0 || g.Pot != 40 {
			t.Fatalf("%s: round counters not reset: bet=%d acted=%d pot=%d", stage, g.CurrentBet, g.PlayersActed, g.Pot)
		}
		if g.Seats[0].CurrentBet != 0 || g.Seats[1].CurrentBet != 0 {
			t.Fatalf("%s: seat round bets not reset", stage)
		}
		mustOk(t, actTx(t, a, tableID, "carol", 1, 0))
		mustOk(t, actTx(t, a, tableID, "bob", 1, 0))
	}

	res = mustOk(t, advanceTx(t, a, tableID))
	if attr(findEvent(res.Events, "StageAdvanced"), "stage") != "showdown" {
		t.Fatalf("river should close into showdown")
	}

	res = actTx(t, a, tableID, "carol", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "act in showdown") {
		t.Fatalf("expected betting to be closed at showdown, got code=%d log=%q", res.Code, res.Log)
	}
}

func TestAdvance_ShowdownOnlyExitsViaSettle(t *testing.T) {
	a, tableID := setupPreflopHand(t)
	entropy := testEntropy()

	// carol folds heads-up, leaving the hand at showdown.
	mustOk(t, actTx(t, a, tableID, "carol", 0, 0))

	// Cranking the stage past showdown would orphan the pot: Finished has no
	// settlement path and leave is blocked while the hand exists.
	res := advanceTx(t, a, tableID)
	if res.Code == 0 || !strings.Contains(res.Log, "showdown resolves via settlement") {
		t.Fatalf("expected advance at showdown to fail, got code=%d log=%q", res.Code, res.Log)
	}
	g := activeGame(t, a, tableID)
	if g.Stage != game.StageShowdown {
		t.Fatalf("stage moved to %s", g.Stage)
	}

	// Settlement still works and returns the escrow.
	mustOk(t, a.deliverTx(txBytesSigned(t, "table/settle", codec.TableSettleTx{
		TableID:    tableID,
		WinnerSeat: 0,
		WinnerRank: 1,
	}, "alice"), entropy))
	tbl := a.st.Tables[tableID]
	if tbl.Hand != nil {
		t.Fatalf("hand not cleared after settle")
	}
	if tbl.Players[0].Bankroll != 510 || tbl.Players[1].Bankroll != 490 {
		t.Fatalf("bankrolls not restored: %d/%d", tbl.Players[0].Bankroll, tbl.Players[1].Bankroll)
	}
}

func TestRaise_ReopensAction(t *testing.T) {
	a, tableID := setupPreflopHand(t)

	// Minimum raise preflop equals the big blind.
	res := mustOk(t, actTx(t, a, tableID, "carol", 3, 20))
	ev := findEvent(res.Events, "ActionApplied")
	if attr(ev, "action") != "raise" || attr(ev, "raiseAmount") != "20" || attr(ev, "roundComplete") != "false" {
		t.Fatalf("unexpected raise attrs: %v", ev.Attributes)
	}
	g := activeGame(t, a, tableID)
	if g.CurrentBet != 40 || g.Pot != 60 || g.Seats[1].Chips != 460 {
		t.Fatalf("raise accounting off: bet=%d pot=%d chips=%d", g.CurrentBet, g.Pot, g.Seats[1].Chips)
	}
	if g.LastRaiser != 1 || g.LastRaiseAmount != 20 {
		t.Fatalf("raise bookkeeping off: raiser=%d amount=%d", g.LastRaiser, g.LastRaiseAmount)
	}

	// bob must respond: checking is no longer available.
	res = actTx(t, a, tableID, "bob", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "20 to call") {
		t.Fatalf("expected bob to face the raise, got code=%d log=%q", res.Code, res.Log)
	}
	res = mustOk(t, actTx(t, a, tableID, "bob", 2, 0))
	if attr(findEvent(res.Events, "ActionApplied"), "roundComplete") != "true" {
		t.Fatalf("call should close the round")
	}
	g = activeGame(t, a, tableID)
	if g.Pot != 80 || g.Seats[0].Chips != 460 {
		t.Fatalf("call accounting off: pot=%d chips=%d", g.Pot, g.Seats[0].Chips)
	}

	mustOk(t, advanceTx(t, a, tableID))
	if got := activeGame(t, a, tableID).Stage; got != game.StageFlop {
		t.Fatalf("stage %s after advance, want flop", got)
	}
}

func TestAllIn_AboveBetRaisesTheStanding(t *testing.T) {
	a, tableID := setupPreflopHand(t)

	res := mustOk(t, actTx(t, a, tableID, "carol", 4, 0))
	ev := findEvent(res.Events, "ActionApplied")
	if attr(ev, "action") != "all_in" || attr(ev, "actionOn") != "0" {
		t.Fatalf("unexpected all-in attrs: %v", ev.Attributes)
	}
	g := activeGame(t, a, tableID)
	if g.CurrentBet != 500 || g.LastRaiseAmount != 480 || g.LastRaiser != 1 {
		t.Fatalf("all-in bookkeeping off: bet=%d raise=%d raiser=%d", g.CurrentBet, g.LastRaiseAmount, g.LastRaiser)
	}
	if !g.IsAllIn(1) || g.Seats[1].Chips != 0 || g.Pot != 520 {
		t.Fatalf("all-in accounting off: chips=%d pot=%d", g.Seats[1].Chips, g.Pot)
	}

	// The all-in seat no longer counts as active, so bob may call or the
	// operator may advance; calling balances the pot.
	res = actTx(t, a, tableID, "bob", 1, 0)
	if res.Code == 0 || !strings.Contains(res.Log, "480 to call") {
		t.Fatalf("expected bob to face the all-in, got code=%d log=%q", res.Code, res.Log)
	}
	mustOk(t, actTx(t, a, tableID, "bob", 2, 0))
	g = activeGame(t, a, tableID)
	if g.Pot != 1000 || g.Seats[0].Chips != 0 {
		t.Fatalf("call accounting off: pot=%d chips=%d", g.Pot, g.Seats[0].Chips)
	}
	if g.IsAllIn(0) {
		t.Fatalf("a full call is not an all-in")
	}

	mustOk(t, advanceTx(t, a, tableID))
	if got := activeGame(t, a, tableID).Stage; got != game.StageFlop {
		t.Fatalf("stage %s after advance, want flop", got)
	}
}

func TestAdvance_RejectsBeforeHandAndAfterFinish(t *testing.T) {
	a, tableID := setupHeadsUpTable(t)
	entropy := testEntropy()

	res := advanceTx(t, a, tableID)
	if res.Code == 0 || !strings.Contains(res.Log, "no active hand") {
		t.Fatalf("expected advance without a hand to fail, got code=%d log=%q", res.Code, res.Log)
	}

	mustOk(t, a.deliverTx(txBytesSigned(t, "table/start_hand", codec.TableStartHandTx{TableID: tableID}, "alice"), entropy))
	res = advanceTx(t, a, tableID)
	if res.Code == 0 || !strings.Contains(res.Log, "advance from waiting") {
		t.Fatalf("expected advance before dealing to fail, got code=%d log=%q", res.Code, res.Log)
	}

	res = a.deliverTx(txBytesSigned(t, "bet/advance", codec.BetAdvanceTx{TableID: tableID}, "backend"), entropy)
	if res.Code == 0 || !strings.Contains(res.Log, "not the table admin") {
		t.Fatalf("expected non-creator advance to fail, got code=%d log=%q", res.Code, res.Log)
	}
}
