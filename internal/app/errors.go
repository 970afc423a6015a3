package app

import errorsmod "cosmossdk.io/errors"

// Codespace scopes host-boundary failures; game rule violations carry the
// game package's codespace instead.
const Codespace = "app"

var (
	ErrUnknownTxType     = errorsmod.Register(Codespace, 1, "unknown tx type")
	ErrBadEnvelope       = errorsmod.Register(Codespace, 2, "malformed tx")
	ErrUnauthorized      = errorsmod.Register(Codespace, 3, "unauthorized")
	ErrBadNonce          = errorsmod.Register(Codespace, 4, "bad nonce")
	ErrUnknownAccount    = errorsmod.Register(Codespace, 5, "unknown account")
	ErrAccountExists     = errorsmod.Register(Codespace, 6, "account already registered")
	ErrTableNotFound     = errorsmod.Register(Codespace, 7, "table not found")
	ErrInsufficientFunds = errorsmod.Register(Codespace, 8, "insufficient funds")
	ErrInvalidRequest    = errorsmod.Register(Codespace, 9, "invalid request")
)

// wireError keeps registered errors intact and wraps everything else (engine
// and codec failures) so ABCIInfo does not redact the message to "internal".
func wireError(err error) error {
	if err == nil {
		return nil
	}
	if space, _, _ := errorsmod.ABCIInfo(err, false); space != errorsmod.UndefinedCodespace {
		return err
	}
	return ErrInvalidRequest.Wrap(err.Error())
}
