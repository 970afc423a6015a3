package vpcrypto

import "fmt"

const CiphertextBytes = 2 * PointBytes

// Ciphertext is an exponential ElGamal ciphertext over ristretto255.
type Ciphertext struct {
	C1 Point
	C2 Point
}

// Enc encrypts the message point M under public key Y with randomness r:
// C1 = r*G, C2 = M + r*Y.
func Enc(y Point, m Point, r Scalar) Ciphertext {
	return Ciphertext{C1: MulBase(r), C2: PointAdd(m, MulPoint(y, r))}
}

// Dec recovers the message point: M = C2 - x*C1.
func Dec(x Scalar, ct Ciphertext) Point {
	return PointSub(ct.C2, MulPoint(ct.C1, x))
}

// DecShare is the decryption share x*C1 for ct under secret key x.
func DecShare(x Scalar, ct Ciphertext) Point {
	return MulPoint(ct.C1, x)
}

// DecWithShare recovers the message point from a published share: M = C2 - share.
func DecWithShare(ct Ciphertext, share Point) Point {
	return PointSub(ct.C2, share)
}

// CiphertextAdd adds two ciphertexts component-wise. Under exponential
// ElGamal this encrypts the sum of the two plaintext exponents.
func CiphertextAdd(a, b Ciphertext) Ciphertext {
	return Ciphertext{C1: PointAdd(a.C1, b.C1), C2: PointAdd(a.C2, b.C2)}
}

// EncodeCiphertext renders ct as C1 || C2 (64 bytes).
func EncodeCiphertext(ct Ciphertext) []byte {
	out := make([]byte, 0, CiphertextBytes)
	out = append(out, ct.C1.Bytes()...)
	out = append(out, ct.C2.Bytes()...)
	return out
}

func DecodeCiphertext(b []byte) (Ciphertext, error) {
	if len(b) != CiphertextBytes {
		return Ciphertext{}, fmt.Errorf("ciphertext: expected %d bytes got %d", CiphertextBytes, len(b))
	}
	c1, err := PointFromBytesCanonical(b[:PointBytes])
	if err != nil {
		return Ciphertext{}, fmt.Errorf("ciphertext c1: %w", err)
	}
	c2, err := PointFromBytesCanonical(b[PointBytes:])
	if err != nil {
		return Ciphertext{}, fmt.Errorf("ciphertext c2: %w", err)
	}
	return Ciphertext{C1: c1, C2: c2}, nil
}
