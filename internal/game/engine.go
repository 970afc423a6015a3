package game

// Handle references an encrypted value held by the engine. A handle alone
// reveals nothing about the plaintext; decryption rights are granted per
// handle, per party.
type Handle string

// Engine is the encrypted-value capability the dealing protocol consumes.
// The production engine is an external coprocessor; tests inject a tagging
// stub and the repo ships a ledger-backed reference implementation.
type Engine interface {
	// Ingest stores operator-supplied ciphertext and returns its handle.
	Ingest(ct []byte, inputType uint8) (Handle, error)
	// Combine homomorphically adds two encrypted values. No plaintext is
	// observed by anyone.
	Combine(a, b Handle) (Handle, error)
	// GrantDecrypt permits grantee to decrypt the value behind h.
	GrantDecrypt(h Handle, grantee string) error
	// Rand draws a fresh encrypted random value unpredictable to every
	// party, including the card-submitting operator.
	Rand() (Handle, error)
}

// Beacon supplies an unpredictable value fixed only after the commit and
// blind phases have completed.
type Beacon interface {
	Current() (uint64, error)
}
