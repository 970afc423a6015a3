package game

import errorsmod "cosmossdk.io/errors"

const Codespace = "poker"

// Sequencing: the operation arrived in the wrong phase or out of order.
var (
	ErrInvalidStage            = errorsmod.Register(Codespace, 1, "invalid game stage")
	ErrCardsAlreadySubmitted   = errorsmod.Register(Codespace, 2, "cards already submitted")
	ErrCardsNotSubmitted       = errorsmod.Register(Codespace, 3, "cards not submitted")
	ErrOffsetAlreadyApplied    = errorsmod.Register(Codespace, 4, "offset already applied")
	ErrOffsetNotApplied        = errorsmod.Register(Codespace, 5, "offset not applied")
	ErrOffsetBatchOutOfOrder   = errorsmod.Register(Codespace, 6, "offset batch out of order")
	ErrPositionAlreadyRevealed = errorsmod.Register(Codespace, 7, "position already revealed")
	ErrPositionNotRevealed     = errorsmod.Register(Codespace, 8, "position not revealed")
	ErrSeatAlreadyDealt        = errorsmod.Register(Codespace, 9, "seat already dealt")
	ErrAllCardsDealt           = errorsmod.Register(Codespace, 10, "all cards dealt")
	ErrBlindsAlreadyPosted     = errorsmod.Register(Codespace, 11, "blinds already posted")
	ErrBettingNotComplete      = errorsmod.Register(Codespace, 12, "betting round not complete")
	ErrHandInProgress          = errorsmod.Register(Codespace, 13, "hand already in progress")
	ErrNoActiveHand            = errorsmod.Register(Codespace, 14, "no active hand")
	ErrNotEnoughPlayers        = errorsmod.Register(Codespace, 15, "not enough players")
)

// Authorization.
var (
	ErrNotAdmin     = errorsmod.Register(Codespace, 20, "not the table admin")
	ErrNotBackend   = errorsmod.Register(Codespace, 21, "not the table backend")
	ErrNotSeatOwner = errorsmod.Register(Codespace, 22, "not the seat owner")
)

// Betting legality.
var (
	ErrNotYourTurn       = errorsmod.Register(Codespace, 30, "not your turn")
	ErrPlayerFolded      = errorsmod.Register(Codespace, 31, "player has folded")
	ErrPlayerAllIn       = errorsmod.Register(Codespace, 32, "player is all in")
	ErrCannotCheck       = errorsmod.Register(Codespace, 33, "cannot check an outstanding bet")
	ErrInsufficientChips = errorsmod.Register(Codespace, 34, "insufficient chips")
	ErrRaiseTooSmall     = errorsmod.Register(Codespace, 35, "raise below minimum")
	ErrInvalidAction     = errorsmod.Register(Codespace, 36, "invalid action")
)

// Bounds.
var (
	ErrInvalidSeatIndex  = errorsmod.Register(Codespace, 40, "invalid seat index")
	ErrInvalidBatchIndex = errorsmod.Register(Codespace, 41, "invalid batch index")
	ErrInvalidCardSlot   = errorsmod.Register(Codespace, 42, "invalid card slot")
	ErrInvalidBuyIn      = errorsmod.Register(Codespace, 43, "buy-in out of range")
	ErrTableFull         = errorsmod.Register(Codespace, 44, "table full")
	ErrInvalidWinner     = errorsmod.Register(Codespace, 45, "invalid winner seat")
)
