package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"veilpoker/internal/codec"
	"veilpoker/internal/state"
)

func registerAccount(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) (*abci.ExecTxResult, error) {
	if err := requireRegisterAccountAuth(env, msg); err != nil {
		return nil, err
	}
	if _, ok := st.AccountKeys[msg.Account]; ok {
		return nil, ErrAccountExists.Wrap(msg.Account)
	}
	st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
	return okEvent("AccountRegistered", map[string]string{
		"account": msg.Account,
	}), nil
}

// bankMint is the devnet faucet; it is deliberately unauthenticated.
func bankMint(st *state.State, msg codec.BankMintTx) (*abci.ExecTxResult, error) {
	if msg.To == "" || msg.Amount == 0 {
		return nil, ErrInvalidRequest.Wrap("missing to/amount")
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	return okEvent("BankMinted", map[string]string{
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	}), nil
}

func bankSend(st *state.State, env codec.TxEnvelope, msg codec.BankSendTx) (*abci.ExecTxResult, error) {
	if msg.From == "" || msg.To == "" || msg.Amount == 0 {
		return nil, ErrInvalidRequest.Wrap("missing from/to/amount")
	}
	if err := requireAccountAuth(st, env, msg.From); err != nil {
		return nil, err
	}
	if err := st.Debit(msg.From, msg.Amount); err != nil {
		return nil, ErrInsufficientFunds.Wrap(err.Error())
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}
	return okEvent("BankSent", map[string]string{
		"from":   msg.From,
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	}), nil
}
