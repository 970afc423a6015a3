package game

// PostBlinds posts the small and big blinds and opens the preflop round.
// Blind amounts are capped by the posting stack; a short blind does not mark
// the seat all in, it simply posts less. Blind posters keep HasActed false
// so action returns to them.
func PostBlinds(g *Game, smallBlind uint64) error {
	if g.Stage != StagePreFlop {
		return ErrInvalidStage.Wrapf("blinds in %s", g.Stage)
	}
	if !g.BlindsPosted.None() {
		return ErrBlindsAlreadyPosted
	}

	sbIdx := (g.DealerPosition + 1) % g.PlayerCount
	bbIdx := (g.DealerPosition + 2) % g.PlayerCount
	sb := g.Seats[sbIdx]
	bb := g.Seats[bbIdx]
	if sb == nil || bb == nil {
		return ErrInvalidStage.Wrap("blind seats not dealt")
	}

	sbAmount := sb.PostBlind(smallBlind)
	bbAmount := bb.PostBlind(2 * smallBlind)
	g.Pot += sbAmount + bbAmount
	g.BlindsPosted.Set(int(sbIdx))
	g.BlindsPosted.Set(int(bbIdx))

	g.CurrentBet = bbAmount
	g.LastRaiseAmount = bbAmount
	g.LastRaiser = bbIdx
	g.PlayersActed = 0
	if next, ok := NextActive((bbIdx+1)%g.PlayerCount, g.Folded, g.AllIn, g.PlayerCount); ok {
		g.ActionOn = next
	}
	return nil
}

// Act applies one player action for the seat currently on action. All
// legality checks run before any mutation; a rejected action changes
// nothing.
func Act(g *Game, seat uint8, action Action, raiseAmount uint64) error {
	if seat >= g.PlayerCount {
		return ErrInvalidSeatIndex.Wrapf("seat %d of %d", seat, g.PlayerCount)
	}
	if seat != g.ActionOn {
		return ErrNotYourTurn.Wrapf("action on seat %d", g.ActionOn)
	}
	if g.IsFolded(seat) {
		return ErrPlayerFolded
	}
	if g.IsAllIn(seat) {
		return ErrPlayerAllIn
	}
	if !g.Stage.Betting() {
		return ErrInvalidStage.Wrapf("act in %s", g.Stage)
	}
	s := g.Seats[seat]
	if s == nil {
		return ErrInvalidSeatIndex.Wrapf("seat %d never dealt", seat)
	}

	var amountToCall uint64
	if g.CurrentBet > s.CurrentBet {
		amountToCall = g.CurrentBet - s.CurrentBet
	}

	switch action {
	case ActionFold:
		g.Folded.Set(int(seat))
		s.Folded = true
		g.PlayersRemaining--
		if g.PlayersRemaining == 1 {
			g.Stage = StageShowdown
		}

	case ActionCheck:
		if amountToCall != 0 {
			return ErrCannotCheck.Wrapf("%d to call", amountToCall)
		}

	case ActionCall:
		if s.Chips < amountToCall {
			return ErrInsufficientChips.Wrapf("need %d have %d", amountToCall, s.Chips)
		}
		s.Chips -= amountToCall
		s.CurrentBet += amountToCall
		s.TotalBet += amountToCall
		g.Pot += amountToCall

	case ActionRaise:
		minRaise := g.LastRaiseAmount
		if minRaise == 0 {
			minRaise = g.CurrentBet
		}
		if raiseAmount < minRaise {
			return ErrRaiseTooSmall.Wrapf("raise %d, minimum %d", raiseAmount, minRaise)
		}
		total := amountToCall + raiseAmount
		if total < raiseAmount {
			// Wrapped uint64; no stack covers it.
			return ErrInsufficientChips.Wrapf("need %d+%d have %d", amountToCall, raiseAmount, s.Chips)
		}
		if s.Chips < total {
			return ErrInsufficientChips.Wrapf("need %d have %d", total, s.Chips)
		}
		s.Chips -= total
		s.CurrentBet += total
		s.TotalBet += total
		g.Pot += total
		g.CurrentBet = s.CurrentBet
		g.LastRaiser = seat
		g.LastRaiseAmount = raiseAmount
		// Every other active seat must respond to the new bet.
		g.PlayersActed = 0

	case ActionAllIn:
		amt := s.Chips
		s.Chips = 0
		s.CurrentBet += amt
		s.TotalBet += amt
		g.Pot += amt
		g.AllIn.Set(int(seat))
		s.AllIn = true
		if s.CurrentBet > g.CurrentBet {
			// An all-in above the standing bet is a raise with the derived
			// amount; below it is just a short call and reopens nothing.
			g.LastRaiseAmount = s.CurrentBet - g.CurrentBet
			g.CurrentBet = s.CurrentBet
			g.LastRaiser = seat
			g.PlayersActed = 0
		}

	default:
		return ErrInvalidAction.Wrapf("action %d", action)
	}

	s.HasActed = true
	g.PlayersActed++
	if next, ok := NextActive((g.ActionOn+1)%g.PlayerCount, g.Folded, g.AllIn, g.PlayerCount); ok {
		g.ActionOn = next
	}
	return nil
}

// RoundComplete reports whether the betting round is over: no active seat
// remains, or every active seat has acted since the last raise. The machine
// never advances itself; the caller consults this signal and invokes
// AdvanceStage.
func (g *Game) RoundComplete() bool {
	active := g.ActiveCount()
	return active == 0 || int(g.PlayersActed) >= active
}

// AdvanceStage closes the betting round and opens the next stage: seats'
// round fields reset, the stage's community cards become visible, round
// counters zero, and action starts at the first active seat past the dealer.
func AdvanceStage(g *Game) error {
	if g.Stage == StageWaiting || g.Stage == StageFinished {
		return ErrInvalidStage.Wrapf("advance from %s", g.Stage)
	}
	if g.PlayersRemaining == 1 {
		g.Stage = StageShowdown
		return nil
	}

	for _, s := range g.Seats {
		if s != nil {
			s.ResetForNewRound()
		}
	}

	next := g.Stage + 1
	switch next {
	case StageFlop:
		g.CommunityRevealed.Set(0)
		g.CommunityRevealed.Set(1)
		g.CommunityRevealed.Set(2)
	case StageTurn:
		g.CommunityRevealed.Set(3)
	case StageRiver:
		g.CommunityRevealed.Set(4)
	}
	g.Stage = next

	g.CurrentBet = 0
	g.PlayersActed = 0
	g.LastRaiser = 0
	g.LastRaiseAmount = 0
	if nextSeat, ok := NextActive((g.DealerPosition+1)%g.PlayerCount, g.Folded, g.AllIn, g.PlayerCount); ok {
		g.ActionOn = nextSeat
	}
	return nil
}
