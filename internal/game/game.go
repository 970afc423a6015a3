package game

const (
	// MaxSeats is the most players one hand supports; the card pool has two
	// hole slots per seat plus five community slots.
	MaxSeats   = 5
	MinPlayers = 2

	CardPoolSize  = 15
	HoleSlots     = 10
	CommunityBase = 10

	SubmitBatches = 3
	BatchSize     = 5

	// OffsetBatchDone marks the blinding pipeline complete.
	OffsetBatchDone = 255

	// WinnerUnset is the WinnerSeat value before settlement.
	WinnerUnset = 255
)

// Seat is one player's per-hand betting record. It owns its own chip stack
// and bet fields; the Game correlates seats only by index.
type Seat struct {
	SeatIndex  uint8  `json:"seatIndex"`
	Chips      uint64 `json:"chips"`
	HoleCard1  Handle `json:"holeCard1"`
	HoleCard2  Handle `json:"holeCard2"`
	CurrentBet uint64 `json:"currentBet"`
	TotalBet   uint64 `json:"totalBet"`
	Folded     bool   `json:"folded"`
	AllIn      bool   `json:"allIn"`
	HasActed   bool   `json:"hasActed"`
	HandRank   uint8  `json:"handRank"`
}

// ResetForNewRound clears the seat's per-round fields at a stage transition.
// Fold and all-in status persist on the game's bitmasks.
func (s *Seat) ResetForNewRound() {
	s.CurrentBet = 0
	s.HasActed = false
}

// PostBlind moves min(required, chips) into the seat's bets and returns the
// amount actually posted. Short stacks post what they have.
func (s *Seat) PostBlind(required uint64) uint64 {
	amt := required
	if s.Chips < amt {
		amt = s.Chips
	}
	s.Chips -= amt
	s.CurrentBet = amt
	s.TotalBet = amt
	return amt
}

// Game is one hand of poker: the betting state machine plus the dealing
// protocol's card pool and phase flags. All fields are plain data so the
// ledger can persist, clone, and hash the record.
type Game struct {
	Stage            Stage  `json:"stage"`
	Pot              uint64 `json:"pot"`
	CurrentBet       uint64 `json:"currentBet"`
	DealerPosition   uint8  `json:"dealerPosition"`
	ActionOn         uint8  `json:"actionOn"`
	PlayerCount      uint8  `json:"playerCount"`
	PlayersRemaining uint8  `json:"playersRemaining"`
	PlayersActed     uint8  `json:"playersActed"`
	LastRaiser       uint8  `json:"lastRaiser"`
	LastRaiseAmount  uint64 `json:"lastRaiseAmount"`

	Folded       Bitset `json:"folded"`
	AllIn        Bitset `json:"allIn"`
	BlindsPosted Bitset `json:"blindsPosted"`

	// CardPool slots 0-9 hold blinded hole cards (two per seat before
	// rotation), slots 10-14 the community cards.
	CardPool        [CardPoolSize]Handle `json:"cardPool"`
	EncryptedOffset Handle               `json:"encryptedOffset"`

	SubmittedBatches Bitset `json:"submittedBatches"`
	OffsetBatch      uint8  `json:"offsetBatch"`
	CardsOffset      Bitset `json:"cardsOffset"`
	// PositionOffset stores rotation+1 so zero means "not yet revealed".
	PositionOffset    uint8  `json:"positionOffset"`
	CardsSubmitted    bool   `json:"cardsSubmitted"`
	OffsetApplied     bool   `json:"offsetApplied"`
	CardsDealtCount   uint8  `json:"cardsDealtCount"`
	CommunityRevealed Bitset `json:"communityRevealed"`
	WinnerSeat        uint8  `json:"winnerSeat"`

	Seats [MaxSeats]*Seat `json:"seats"`
}

// NewGame starts a hand in the Waiting stage for playerCount seats.
func NewGame(playerCount uint8) (*Game, error) {
	if playerCount < MinPlayers {
		return nil, ErrNotEnoughPlayers.Wrapf("have %d, need %d", playerCount, MinPlayers)
	}
	if playerCount > MaxSeats {
		return nil, ErrTableFull.Wrapf("have %d, max %d", playerCount, MaxSeats)
	}
	return &Game{
		Stage:            StageWaiting,
		PlayerCount:      playerCount,
		PlayersRemaining: playerCount,
		WinnerSeat:       WinnerUnset,
	}, nil
}

func (g *Game) IsFolded(seat uint8) bool {
	return g.Folded.Test(int(seat))
}

func (g *Game) IsAllIn(seat uint8) bool {
	return g.AllIn.Test(int(seat))
}

// IsActive reports whether the seat can still act: in range, not folded,
// not all in.
func (g *Game) IsActive(seat uint8) bool {
	return seat < g.PlayerCount && !g.IsFolded(seat) && !g.IsAllIn(seat)
}

func (g *Game) ActiveCount() int {
	n := 0
	for s := uint8(0); s < g.PlayerCount; s++ {
		if g.IsActive(s) {
			n++
		}
	}
	return n
}

// AllCardsOffset reports whether every pool slot has been blinded.
func (g *Game) AllCardsOffset() bool {
	return g.CardsOffset == AllBelow(CardPoolSize)
}

// PositionRevealed reports whether the rotation has been fixed.
func (g *Game) PositionRevealed() bool {
	return g.PositionOffset != 0
}

// Rotation is the revealed position offset. Only meaningful once
// PositionRevealed is true.
func (g *Game) Rotation() uint8 {
	return g.PositionOffset - 1
}

// HoleSlot is the pool slot holding hole card j for the seat after rotation:
// (2*seat + j + rotation) mod 10.
func (g *Game) HoleSlot(seat uint8, j uint8) uint8 {
	return (2*seat + j + g.Rotation()) % HoleSlots
}

// NextActive scans at most count seats starting at start, wrapping modulo
// count, and returns the first seat that is neither folded nor all in. The
// second result is false when no active seat exists.
func NextActive(start uint8, folded, allIn Bitset, count uint8) (uint8, bool) {
	if count == 0 {
		return 0, false
	}
	seat := start % count
	for i := uint8(0); i < count; i++ {
		if !folded.Test(int(seat)) && !allIn.Test(int(seat)) {
			return seat, true
		}
		seat = (seat + 1) % count
	}
	return 0, false
}

// Settle pays the pot to the winning seat and finishes the hand. The winner
// must be a dealt, non-folded seat; ranking the showdown is the caller's
// concern.
func Settle(g *Game, winner uint8, winnerRank uint8) error {
	if g.Stage != StageShowdown {
		return ErrInvalidStage.Wrapf("settle in %s", g.Stage)
	}
	if winner >= g.PlayerCount {
		return ErrInvalidSeatIndex.Wrapf("winner %d of %d", winner, g.PlayerCount)
	}
	s := g.Seats[winner]
	if s == nil {
		return ErrInvalidWinner.Wrapf("seat %d never dealt", winner)
	}
	if g.IsFolded(winner) {
		return ErrInvalidWinner.Wrapf("seat %d folded", winner)
	}
	s.Chips += g.Pot
	s.HandRank = winnerRank
	g.Pot = 0
	g.WinnerSeat = winner
	g.Stage = StageFinished
	return nil
}
