package wlsb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rohc/rohc/wlsb"
)

func TestSoundness(t *testing.T) {
	// Testable property (spec §8): for any value v added with reference
	// SN r, and any later (k, p) satisfying IsKPPossible(v, k, p),
	// Decode(v & mask, k, p, r) == v.
	w := wlsb.New(4, 16)
	w.Add(1000, 1)

	k, ok := w.MinK(1000, func(k uint) int { return wlsb.PForMSN(k, 0) })
	require.True(t, ok)

	p := wlsb.PForMSN(k, 0)
	lsb := uint32(1000) & ((1 << k) - 1)
	got, err := wlsb.Decode(lsb, k, p, 1000, 16)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, got)
}

func TestMonotonicSequenceDecodesAgainstWindow(t *testing.T) {
	w := wlsb.New(4, 16)
	ref := uint32(0x1000)
	w.Add(ref, 0)

	for i := uint32(1); i <= 50; i++ {
		v := ref + i
		k, ok := w.MinK(v, func(k uint) int { return wlsb.PForMSN(k, 0) })
		require.True(t, ok, "no k satisfies value %d against window", v)

		p := wlsb.PForMSN(k, 0)
		lsb := v & ((1 << k) - 1)
		got, err := wlsb.Decode(lsb, k, p, ref, 16)
		require.NoError(t, err)
		assert.EqualValues(t, v, got)

		w.Add(v, i)
		ref = v
	}
}

func TestIPIDOffsetShift(t *testing.T) {
	w := wlsb.New(4, 16)
	w.Add(5, 0) // innermost IP-ID/MSN offset starts small

	k, ok := w.MinK(5, func(k uint) int { return wlsb.PForIPIDOffset(k) })
	require.True(t, ok)
	p := wlsb.PForIPIDOffset(k)

	lsb := uint32(5) & ((1 << k) - 1)
	got, err := wlsb.Decode(lsb, k, p, 5, 16)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got)
}

func TestLargeJumpNeedsWideK(t *testing.T) {
	w := wlsb.New(4, 16)
	w.Add(10, 0)
	// A jump far larger than any k in Ks can reach (even k=16 covers the
	// whole 16-bit field so this can't actually fail for a 16-bit field,
	// demonstrate instead that k grows as the delta grows).
	k, ok := w.MinK(10000, func(k uint) int { return wlsb.PForMSN(k, 0) })
	require.True(t, ok)
	assert.GreaterOrEqual(t, k, uint(14))
}

func TestWindowEvictsOldest(t *testing.T) {
	w := wlsb.New(2, 16)
	w.Add(1, 0)
	w.Add(2, 1)
	w.Add(3, 2)
	assert.Equal(t, 2, w.Len())
}
