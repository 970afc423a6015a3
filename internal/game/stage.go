package game

// Stage is the hand's position in the betting lifecycle. Stages only move
// forward, except the single-survivor short circuit straight to Showdown.
type Stage uint8

const (
	StageWaiting Stage = iota
	StagePreFlop
	StageFlop
	StageTurn
	StageRiver
	StageShowdown
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageWaiting:
		return "waiting"
	case StagePreFlop:
		return "preflop"
	case StageFlop:
		return "flop"
	case StageTurn:
		return "turn"
	case StageRiver:
		return "river"
	case StageShowdown:
		return "showdown"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Betting reports whether seats act during this stage.
func (s Stage) Betting() bool {
	return s >= StagePreFlop && s <= StageRiver
}

// Action is a player's move on their turn. The wire encoding is the uint8
// value, accepted via ParseAction.
type Action uint8

const (
	ActionFold Action = iota
	ActionCheck
	ActionCall
	ActionRaise
	ActionAllIn
)

func (a Action) String() string {
	switch a {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionRaise:
		return "raise"
	case ActionAllIn:
		return "all_in"
	default:
		return "unknown"
	}
}

func ParseAction(code uint8) (Action, error) {
	if code > uint8(ActionAllIn) {
		return 0, ErrInvalidAction.Wrapf("action code %d", code)
	}
	return Action(code), nil
}
