package fhe

import (
	"fmt"

	"veilpoker/internal/game"
	"veilpoker/internal/vpcrypto"
)

// Store is the ledger-resident half of the reference engine: every
// ciphertext the chain has accepted, keyed by handle id, plus the decrypt
// grants attached to each handle. It persists inside the application state,
// so a replayed chain rebuilds identical handles and grants.
type Store struct {
	// PubKey is the dealing public key every ciphertext is encrypted
	// under, fixed at genesis.
	PubKey []byte              `json:"pubKey,omitempty"`
	Cts    map[string][]byte   `json:"cts,omitempty"`
	Grants map[string][]string `json:"grants,omitempty"`
	// Draws counts random draws and re-randomizations; derived randomness
	// never repeats and replays derive the same stream.
	Draws uint64 `json:"draws,omitempty"`
}

func NewStore(pubKey []byte) *Store {
	return &Store{
		PubKey: pubKey,
		Cts:    map[string][]byte{},
		Grants: map[string][]string{},
	}
}

// Ciphertext decodes the stored ciphertext behind a handle.
func (s *Store) Ciphertext(h game.Handle) (vpcrypto.Ciphertext, error) {
	raw, ok := s.Cts[string(h)]
	if !ok {
		return vpcrypto.Ciphertext{}, fmt.Errorf("fhe: unknown handle %q", h)
	}
	ct, err := vpcrypto.DecodeCiphertext(raw)
	if err != nil {
		return vpcrypto.Ciphertext{}, fmt.Errorf("fhe: handle %q: %w", h, err)
	}
	return ct, nil
}

// Granted reports whether grantee may decrypt the value behind h.
func (s *Store) Granted(h game.Handle, grantee string) bool {
	for _, g := range s.Grants[string(h)] {
		if g == grantee {
			return true
		}
	}
	return false
}

func (s *Store) put(id string, ct []byte) {
	if s.Cts == nil {
		s.Cts = map[string][]byte{}
	}
	s.Cts[id] = ct
}

func (s *Store) grant(id, grantee string) {
	if s.Granted(game.Handle(id), grantee) {
		return
	}
	if s.Grants == nil {
		s.Grants = map[string][]string{}
	}
	s.Grants[id] = append(s.Grants[id], grantee)
}
