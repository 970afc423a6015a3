package game

import "math/bits"

// Bitset is a fixed set of small indices (seats, card slots) packed into a
// uint16. It marshals as a plain number so ledger state stays diffable.
type Bitset uint16

func (b Bitset) Test(i int) bool {
	if i < 0 || i > 15 {
		return false
	}
	return b&(1<<uint(i)) != 0
}

func (b *Bitset) Set(i int) {
	if i < 0 || i > 15 {
		return
	}
	*b |= 1 << uint(i)
}

func (b *Bitset) Clear(i int) {
	if i < 0 || i > 15 {
		return
	}
	*b &^= 1 << uint(i)
}

func (b Bitset) Count() int {
	return bits.OnesCount16(uint16(b))
}

func (b Bitset) None() bool {
	return b == 0
}

// AllBelow is the set {0, 1, ..., n-1}.
func AllBelow(n int) Bitset {
	if n <= 0 {
		return 0
	}
	if n > 16 {
		n = 16
	}
	return Bitset(1<<uint(n)) - 1
}
