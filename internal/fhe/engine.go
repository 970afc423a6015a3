package fhe

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"veilpoker/internal/game"
	"veilpoker/internal/vpcrypto"
)

// InputCiphertext is the only ingest payload type the reference engine
// accepts: a canonical 64-byte exponential-ElGamal ciphertext.
const InputCiphertext uint8 = 0

// ValueBound keeps encrypted plaintexts in bounded-discrete-log range so the
// off-chain decryption service can extract them: operator card values and
// the drawn blinding offset all stay below it.
const ValueBound = uint64(1) << 31

const handleDomain = "vp/v1/handle"

// Engine is the devnet stand-in for the external encrypted-value
// coprocessor, implementing game.Engine against the ledger-resident Store.
// All randomness derives from host-supplied block entropy plus the store's
// draw counter, so every replica computes the same handles and ciphertexts
// while the card-submitting operator can predict none of them at commit
// time.
type Engine struct {
	store   *Store
	pk      vpcrypto.Point
	entropy []byte
}

func NewEngine(store *Store, entropy []byte) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("fhe: nil store")
	}
	pk, err := vpcrypto.PointFromBytesCanonical(store.PubKey)
	if err != nil {
		return nil, fmt.Errorf("fhe: dealing pubkey: %w", err)
	}
	return &Engine{store: store, pk: pk, entropy: entropy}, nil
}

// HandleID derives the deterministic handle for a stored ciphertext.
func HandleID(ct []byte) game.Handle {
	h := sha256.New()
	h.Write([]byte(handleDomain))
	h.Write(ct)
	return game.Handle(hex.EncodeToString(h.Sum(nil)))
}

func (e *Engine) Ingest(ct []byte, inputType uint8) (game.Handle, error) {
	if inputType != InputCiphertext {
		return "", fmt.Errorf("fhe: unsupported input type %d", inputType)
	}
	if _, err := vpcrypto.DecodeCiphertext(ct); err != nil {
		return "", fmt.Errorf("fhe: ingest: %w", err)
	}
	raw := append([]byte(nil), ct...)
	id := HandleID(raw)
	e.store.put(string(id), raw)
	return id, nil
}

// Combine homomorphically adds two handles' values and re-randomizes the
// result, so the output ciphertext cannot be paired with its inputs by
// inspection.
func (e *Engine) Combine(a, b game.Handle) (game.Handle, error) {
	cta, err := e.store.Ciphertext(a)
	if err != nil {
		return "", err
	}
	ctb, err := e.store.Ciphertext(b)
	if err != nil {
		return "", err
	}
	rng, err := e.drawRng("combine")
	if err != nil {
		return "", err
	}
	r, err := rng.NextScalar()
	if err != nil {
		return "", err
	}
	sum := vpcrypto.CiphertextAdd(cta, ctb)
	sum = vpcrypto.CiphertextAdd(sum, vpcrypto.Enc(e.pk, vpcrypto.PointZero(), r))
	raw := vpcrypto.EncodeCiphertext(sum)
	id := HandleID(raw)
	e.store.put(string(id), raw)
	return id, nil
}

func (e *Engine) GrantDecrypt(h game.Handle, grantee string) error {
	if grantee == "" {
		return fmt.Errorf("fhe: empty grantee")
	}
	if _, ok := e.store.Cts[string(h)]; !ok {
		return fmt.Errorf("fhe: unknown handle %q", h)
	}
	e.store.grant(string(h), grantee)
	return nil
}

// Rand encrypts a fresh value below ValueBound under the dealing key. The
// value derives from block entropy unknown to any party at commit time.
func (e *Engine) Rand() (game.Handle, error) {
	rng, err := e.drawRng("rand")
	if err != nil {
		return "", err
	}
	vs, err := rng.NextScalar()
	if err != nil {
		return "", err
	}
	v := uint64(binary.LittleEndian.Uint32(vs.Bytes()[:4])) % ValueBound
	r, err := rng.NextScalar()
	if err != nil {
		return "", err
	}
	m := vpcrypto.MulBase(vpcrypto.ScalarFromUint64(v))
	raw := vpcrypto.EncodeCiphertext(vpcrypto.Enc(e.pk, m, r))
	id := HandleID(raw)
	e.store.put(string(id), raw)
	return id, nil
}

// drawRng seeds a scalar stream from (label, block entropy, draw counter)
// and advances the counter. The counter lives in the store, so a rolled-back
// transaction also rolls its draws back.
func (e *Engine) drawRng(label string) (*vpcrypto.DeterministicRng, error) {
	var c [8]byte
	binary.LittleEndian.PutUint64(c[:], e.store.Draws)
	e.store.Draws++
	seed := make([]byte, 0, len(label)+1+len(e.entropy)+8)
	seed = append(seed, label...)
	seed = append(seed, 0)
	seed = append(seed, e.entropy...)
	seed = append(seed, c[:]...)
	return vpcrypto.NewDeterministicRng(seed)
}

// ExtractValue recovers the plaintext exponent of ct by bounded search, the
// way the off-chain decryption service does for values below ValueBound.
// max bounds the scan.
func ExtractValue(sk vpcrypto.Scalar, ct vpcrypto.Ciphertext, max uint64) (uint64, error) {
	m := vpcrypto.Dec(sk, ct)
	acc := vpcrypto.PointZero()
	base := vpcrypto.PointBase()
	for v := uint64(0); v <= max; v++ {
		if vpcrypto.PointEq(acc, m) {
			return v, nil
		}
		acc = vpcrypto.PointAdd(acc, base)
	}
	return 0, fmt.Errorf("fhe: value above %d", max)
}
