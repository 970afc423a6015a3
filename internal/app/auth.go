package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"strconv"

	"veilpoker/internal/codec"
	"veilpoker/internal/game"
	"veilpoker/internal/state"
)

const txAuthDomain = "vp/tx/v1"

func txAuthSignBytes(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomain)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomain)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return ErrUnauthorized.Wrap("missing tx.nonce")
	}
	if env.Signer == "" {
		return ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return ErrUnauthorized.Wrap("missing tx.sig")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

// consumeNonce enforces the per-signer monotonic nonce. It mutates the
// staged state, so a failed tx rolls its nonce back and the value can be
// reused.
func consumeNonce(st *state.State, env codec.TxEnvelope) error {
	if env.Signer == "" {
		return ErrBadNonce.Wrap("nonce without signer")
	}
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return ErrBadNonce.Wrapf("nonce %q is not a u64", env.Nonce)
	}
	if last, ok := st.NonceMax[env.Signer]; ok && n <= last {
		return ErrBadNonce.Wrapf("nonce %d already used (max %d)", n, last)
	}
	st.NonceMax[env.Signer] = n
	return nil
}

// requireRegisterAccountAuth verifies a registration tx against the pubkey
// it carries; the account does not exist yet.
func requireRegisterAccountAuth(env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return ErrInvalidRequest.Wrap("missing account")
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return ErrInvalidRequest.Wrapf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	pub := ed25519.PublicKey(msg.PubKey)
	msgBytes := txAuthSignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(pub, msgBytes, env.Sig) {
		return ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}

// requireTableAdmin gates table-admin operations (dealing, stage cranks,
// settlement) to the creator's key.
func requireTableAdmin(st *state.State, env codec.TxEnvelope, t *state.Table) error {
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != t.Creator {
		return game.ErrNotAdmin.Wrapf("signer %q, admin %q", env.Signer, t.Creator)
	}
	return requireAccountAuth(st, env, t.Creator)
}

// requireTableBackend gates reveal delivery to the backend's key.
func requireTableBackend(st *state.State, env codec.TxEnvelope, t *state.Table) error {
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != t.Backend {
		return game.ErrNotBackend.Wrapf("signer %q, backend %q", env.Signer, t.Backend)
	}
	return requireAccountAuth(st, env, t.Backend)
}

// requireAccountAuth verifies the envelope is signed by account's registered
// key.
func requireAccountAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if account == "" {
		return ErrInvalidRequest.Wrap("missing account")
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub := st.AccountKeys[account]
	if len(pub) != ed25519.PublicKeySize {
		return ErrUnknownAccount.Wrapf("account %q missing pubKey (auth/register_account required)", account)
	}
	msg := txAuthSignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}
