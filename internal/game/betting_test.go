package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// dealtGame skips the dealing pipeline and fabricates a hand that just
// entered preflop with n seated players.
func dealtGame(t *testing.T, n uint8, chips uint64) *Game {
	t.Helper()
	g, err := NewGame(n)
	require.NoError(t, err)
	g.Stage = StagePreFlop
	g.CardsSubmitted = true
	g.OffsetApplied = true
	g.OffsetBatch = OffsetBatchDone
	g.CardsOffset = AllBelow(CardPoolSize)
	g.SubmittedBatches = AllBelow(SubmitBatches)
	g.PositionOffset = 1
	g.CardsDealtCount = n
	for i := uint8(0); i < n; i++ {
		g.Seats[i] = &Seat{SeatIndex: i, Chips: chips}
	}
	return g
}

func requirePotBalanced(t *testing.T, g *Game) {
	t.Helper()
	var sum uint64
	for _, s := range g.Seats {
		if s != nil {
			sum += s.TotalBet
		}
	}
	require.Equal(t, sum, g.Pot, "pot must equal the sum of total bets")
}

func TestPostBlinds(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))

	sb, bb := g.Seats[1], g.Seats[2]
	require.Equal(t, uint64(990), sb.Chips)
	require.Equal(t, uint64(10), sb.CurrentBet)
	require.Equal(t, uint64(980), bb.Chips)
	require.Equal(t, uint64(20), bb.CurrentBet)

	require.Equal(t, uint64(30), g.Pot)
	require.Equal(t, uint64(20), g.CurrentBet)
	require.Equal(t, uint64(20), g.LastRaiseAmount)
	require.Equal(t, uint8(2), g.LastRaiser)
	require.Equal(t, uint8(3), g.ActionOn, "first to act sits after the big blind")
	require.True(t, g.BlindsPosted.Test(1))
	require.True(t, g.BlindsPosted.Test(2))
	require.Equal(t, uint8(0), g.PlayersActed)
	require.False(t, sb.HasActed, "blind posters act again when action returns")
	require.False(t, bb.HasActed)
	requirePotBalanced(t, g)
}

func TestPostBlinds_Gates(t *testing.T) {
	g := dealtGame(t, 3, 1000)
	g.Stage = StageWaiting
	require.ErrorIs(t, PostBlinds(g, 10), ErrInvalidStage)

	g.Stage = StagePreFlop
	require.NoError(t, PostBlinds(g, 10))
	require.ErrorIs(t, PostBlinds(g, 10), ErrBlindsAlreadyPosted)
}

func TestPostBlinds_ShortStackPostsWhatItHas(t *testing.T) {
	g := dealtGame(t, 3, 1000)
	g.Seats[2].Chips = 5 // big blind seat

	require.NoError(t, PostBlinds(g, 10))
	require.Equal(t, uint64(0), g.Seats[2].Chips)
	require.Equal(t, uint64(5), g.Seats[2].CurrentBet)
	require.Equal(t, uint64(5), g.CurrentBet, "standing bet is what the big blind actually posted")
	require.Equal(t, uint64(15), g.Pot)
	require.False(t, g.IsAllIn(2), "a short blind is not an all-in")
	requirePotBalanced(t, g)
}

func TestAct_RoundFlow(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))

	require.ErrorIs(t, Act(g, 0, ActionCall, 0), ErrNotYourTurn)

	require.NoError(t, Act(g, 3, ActionCall, 0))
	require.Equal(t, uint64(50), g.Pot)
	require.Equal(t, uint8(0), g.ActionOn)
	requirePotBalanced(t, g)

	require.NoError(t, Act(g, 0, ActionCall, 0))
	require.Equal(t, uint8(1), g.ActionOn)

	require.NoError(t, Act(g, 1, ActionCall, 0))
	require.Equal(t, uint64(980), g.Seats[1].Chips, "small blind only tops up the difference")
	require.False(t, g.RoundComplete())

	require.NoError(t, Act(g, 2, ActionCheck, 0))
	require.True(t, g.RoundComplete())
	require.Equal(t, uint64(80), g.Pot)
	requirePotBalanced(t, g)
}

func TestAct_MinimumRaise(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.Equal(t, uint64(20), g.CurrentBet)
	require.Equal(t, uint64(20), g.LastRaiseAmount)

	err := Act(g, 3, ActionRaise, 10)
	require.ErrorIs(t, err, ErrRaiseTooSmall)
	require.Equal(t, uint64(30), g.Pot, "rejected raise mutates nothing")
	require.Equal(t, uint8(3), g.ActionOn)

	require.NoError(t, Act(g, 3, ActionRaise, 20))
	require.Equal(t, uint64(40), g.CurrentBet)
	require.Equal(t, uint64(20), g.LastRaiseAmount)
	require.Equal(t, uint8(3), g.LastRaiser)
	require.Equal(t, uint8(1), g.PlayersActed, "a raise reopens action for everyone else")
	require.Equal(t, uint64(960), g.Seats[3].Chips)
	requirePotBalanced(t, g)
}

func TestAct_RaiseNearMaxUint64Rejected(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))

	// amountToCall (20) plus this wraps to 10; the wrapped sum must not be
	// accepted as the debit.
	err := Act(g, 3, ActionRaise, ^uint64(0)-9)
	require.ErrorIs(t, err, ErrInsufficientChips)
	require.Equal(t, uint64(1000), g.Seats[3].Chips)
	require.Equal(t, uint64(20), g.CurrentBet)
	require.Equal(t, uint64(20), g.LastRaiseAmount)
	require.Equal(t, uint64(30), g.Pot)
	require.Equal(t, uint8(3), g.ActionOn)
	requirePotBalanced(t, g)

	// The table still takes legal raises afterwards.
	require.NoError(t, Act(g, 3, ActionRaise, 20))
	require.Equal(t, uint64(40), g.CurrentBet)
}

func TestAct_CheckRequiresNoOutstandingBet(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.ErrorIs(t, Act(g, 3, ActionCheck, 0), ErrCannotCheck)
}

func TestAct_InsufficientChips(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	g.Seats[3].Chips = 5
	require.NoError(t, PostBlinds(g, 10))

	require.ErrorIs(t, Act(g, 3, ActionCall, 0), ErrInsufficientChips)
	require.ErrorIs(t, Act(g, 3, ActionRaise, 20), ErrInsufficientChips)
	require.Equal(t, uint64(5), g.Seats[3].Chips)
	requirePotBalanced(t, g)
}

func TestAct_FoldsToSingleSurvivorShowdown(t *testing.T) {
	g := dealtGame(t, 3, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.Equal(t, uint8(0), g.ActionOn, "three-handed action opens on the dealer")

	require.NoError(t, Act(g, 0, ActionFold, 0))
	require.Equal(t, uint8(2), g.PlayersRemaining)
	require.Equal(t, StagePreFlop, g.Stage)
	require.Equal(t, uint8(1), g.ActionOn)

	require.NoError(t, Act(g, 1, ActionFold, 0))
	require.Equal(t, uint8(1), g.PlayersRemaining)
	require.Equal(t, StageShowdown, g.Stage, "last player standing ends the betting")
	requirePotBalanced(t, g)
}

func TestAct_AllInAboveBetIsARaise(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))

	require.NoError(t, Act(g, 3, ActionAllIn, 0))
	require.Equal(t, uint64(0), g.Seats[3].Chips)
	require.Equal(t, uint64(1000), g.CurrentBet)
	require.Equal(t, uint64(980), g.LastRaiseAmount)
	require.Equal(t, uint8(3), g.LastRaiser)
	require.Equal(t, uint8(1), g.PlayersActed)
	require.True(t, g.IsAllIn(3))
	require.True(t, g.Seats[3].AllIn)
	requirePotBalanced(t, g)
}

func TestAct_AllInBelowBetIsNotARaise(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	g.Seats[3].Chips = 15
	require.NoError(t, PostBlinds(g, 10))

	require.NoError(t, Act(g, 3, ActionAllIn, 0))
	require.Equal(t, uint64(20), g.CurrentBet, "short all-in does not reopen the betting")
	require.Equal(t, uint64(20), g.LastRaiseAmount)
	require.Equal(t, uint8(2), g.LastRaiser)
	require.Equal(t, uint8(1), g.PlayersActed)
	require.True(t, g.IsAllIn(3))
	requirePotBalanced(t, g)
}

func TestAct_RejectsFoldedAndAllInSeats(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))

	require.NoError(t, Act(g, 3, ActionFold, 0))
	g.ActionOn = 3 // point action back at the folded seat
	require.ErrorIs(t, Act(g, 3, ActionCheck, 0), ErrPlayerFolded)

	g = dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.NoError(t, Act(g, 3, ActionAllIn, 0))
	g.ActionOn = 3
	require.ErrorIs(t, Act(g, 3, ActionCheck, 0), ErrPlayerAllIn)
}

func TestAct_StageGate(t *testing.T) {
	for _, stage := range []Stage{StageWaiting, StageShowdown, StageFinished} {
		g := dealtGame(t, 4, 1000)
		g.Stage = stage
		require.ErrorIs(t, Act(g, 0, ActionCheck, 0), ErrInvalidStage, "stage %s", stage)
	}
}

func TestAct_UnknownAction(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.ErrorIs(t, Act(g, 3, Action(9), 0), ErrInvalidAction)
}

func TestAct_SeatOutOfRange(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.ErrorIs(t, Act(g, 4, ActionCall, 0), ErrInvalidSeatIndex)
}

func TestRoundComplete_NoActiveSeats(t *testing.T) {
	g := dealtGame(t, 2, 1000)
	g.AllIn.Set(0)
	g.AllIn.Set(1)
	require.True(t, g.RoundComplete(), "nobody left to act")
}

func TestAdvanceStage_Gates(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	g.Stage = StageWaiting
	require.ErrorIs(t, AdvanceStage(g), ErrInvalidStage)
	g.Stage = StageFinished
	require.ErrorIs(t, AdvanceStage(g), ErrInvalidStage)
}

func TestAdvanceStage_Progression(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.NoError(t, Act(g, 3, ActionCall, 0))
	require.NoError(t, Act(g, 0, ActionCall, 0))
	require.NoError(t, Act(g, 1, ActionCall, 0))
	require.NoError(t, Act(g, 2, ActionCheck, 0))
	require.True(t, g.RoundComplete())

	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageFlop, g.Stage)
	require.Equal(t, 3, g.CommunityRevealed.Count())
	require.True(t, g.CommunityRevealed.Test(0))
	require.True(t, g.CommunityRevealed.Test(2))
	require.Equal(t, uint64(0), g.CurrentBet)
	require.Equal(t, uint8(0), g.PlayersActed)
	require.Equal(t, uint64(0), g.LastRaiseAmount)
	require.Equal(t, uint8(1), g.ActionOn, "flop action opens left of the dealer")
	for _, s := range g.Seats[:4] {
		require.Equal(t, uint64(0), s.CurrentBet)
		require.False(t, s.HasActed)
		require.Equal(t, uint64(20), s.TotalBet, "total bets carry across rounds")
	}
	requirePotBalanced(t, g)

	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageTurn, g.Stage)
	require.Equal(t, 4, g.CommunityRevealed.Count())

	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageRiver, g.Stage)
	require.Equal(t, 5, g.CommunityRevealed.Count())

	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageShowdown, g.Stage)

	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageFinished, g.Stage)
}

func TestAdvanceStage_SingleSurvivorShortCircuit(t *testing.T) {
	g := dealtGame(t, 3, 1000)
	g.PlayersRemaining = 1
	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageShowdown, g.Stage)
}

func TestAdvanceStage_ActionOnSkipsInactive(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	require.NoError(t, Act(g, 3, ActionCall, 0))
	require.NoError(t, Act(g, 0, ActionCall, 0))
	require.NoError(t, Act(g, 1, ActionFold, 0))
	require.NoError(t, Act(g, 2, ActionCheck, 0))

	require.NoError(t, AdvanceStage(g))
	require.Equal(t, StageFlop, g.Stage)
	require.Equal(t, uint8(2), g.ActionOn, "seat 1 folded, so action opens on seat 2")
}

func TestSettle(t *testing.T) {
	g := dealtGame(t, 3, 970)
	for _, s := range g.Seats[:3] {
		s.TotalBet = 30
	}
	g.Pot = 90
	g.Stage = StageShowdown

	require.NoError(t, Settle(g, 1, 5))
	require.Equal(t, uint64(1060), g.Seats[1].Chips)
	require.Equal(t, uint64(0), g.Pot)
	require.Equal(t, uint8(1), g.WinnerSeat)
	require.Equal(t, uint8(5), g.Seats[1].HandRank)
	require.Equal(t, StageFinished, g.Stage)
}

func TestSettle_Gates(t *testing.T) {
	g := dealtGame(t, 3, 1000)
	require.ErrorIs(t, Settle(g, 0, 0), ErrInvalidStage)

	g.Stage = StageShowdown
	require.ErrorIs(t, Settle(g, 3, 0), ErrInvalidSeatIndex)

	g.Folded.Set(0)
	require.ErrorIs(t, Settle(g, 0, 0), ErrInvalidWinner)

	g.Seats[2] = nil
	require.ErrorIs(t, Settle(g, 2, 0), ErrInvalidWinner)
}

func TestPotAccounting_AcrossStreets(t *testing.T) {
	g := dealtGame(t, 4, 1000)
	require.NoError(t, PostBlinds(g, 10))
	requirePotBalanced(t, g)

	for _, step := range []struct {
		seat   uint8
		action Action
		raise  uint64
	}{
		{3, ActionCall, 0},
		{0, ActionCall, 0},
		{1, ActionCall, 0},
		{2, ActionCheck, 0},
	} {
		require.NoError(t, Act(g, step.seat, step.action, step.raise))
		requirePotBalanced(t, g)
	}
	require.NoError(t, AdvanceStage(g))

	for _, step := range []struct {
		seat   uint8
		action Action
		raise  uint64
	}{
		{1, ActionRaise, 50},
		{2, ActionCall, 0},
		{3, ActionCall, 0},
		{0, ActionCall, 0},
	} {
		require.NoError(t, Act(g, step.seat, step.action, step.raise))
		requirePotBalanced(t, g)
	}
	require.True(t, g.RoundComplete())
	require.Equal(t, uint64(280), g.Pot)
}
