package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitset_SetTestClear(t *testing.T) {
	var b Bitset
	require.True(t, b.None())
	require.False(t, b.Test(0))

	b.Set(0)
	b.Set(14)
	require.True(t, b.Test(0))
	require.True(t, b.Test(14))
	require.False(t, b.Test(7))
	require.Equal(t, 2, b.Count())
	require.False(t, b.None())

	b.Clear(0)
	require.False(t, b.Test(0))
	require.Equal(t, 1, b.Count())
}

func TestBitset_OutOfRangeIgnored(t *testing.T) {
	var b Bitset
	b.Set(-1)
	b.Set(16)
	require.True(t, b.None())
	require.False(t, b.Test(-1))
	require.False(t, b.Test(16))
}

func TestBitset_AllBelow(t *testing.T) {
	require.Equal(t, Bitset(0), AllBelow(0))
	require.Equal(t, Bitset(0b111), AllBelow(3))
	require.Equal(t, Bitset(0x7fff), AllBelow(15))
	require.Equal(t, 15, AllBelow(15).Count())
	require.Equal(t, Bitset(0xffff), AllBelow(16))
	require.Equal(t, Bitset(0xffff), AllBelow(20))
}
