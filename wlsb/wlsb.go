// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package wlsb implements Window-based Least-Significant-Bits (W-LSB)
// encoding (spec §4.1): a bounded ring of recently transmitted
// (value, reference-SN) pairs, and the interval arithmetic that answers
// "can k bits encode this value given interpretation interval p?".
//
// The encode/decode primitives here are field-width agnostic (16 bits
// for the MSN, 16 bits for the IP-ID/MSN offset, narrower for other
// RFC-tabled fields); callers choose the field width when they create a
// Window, matching the teacher's asdu.AppendXxx/DecodeXxx pattern of one
// small, total helper per wire primitive rather than a single
// do-everything codec.
package wlsb

import "fmt"

// Ks is the fixed set of k values the encoder chooses from (spec §4.1).
// The encoder picks the smallest k for which IsKPPossible holds against
// every entry currently in the window.
var Ks = [...]uint{3, 4, 5, 6, 7, 8, 14, 15, 16}

type entry struct {
	value uint32
	refSN uint32
}

// Window is a fixed-capacity ring of (value, reference-SN) pairs plus
// the field width the values live in. The window always contains the
// last N encoded values (spec §3, "Key invariants"); the oldest is
// evicted on insertion.
type Window struct {
	width      int
	fieldWidth uint // field is interpreted modulo 2^fieldWidth
	entries    []entry
}

// New creates a W-LSB window of the given ring width (spec's
// wlsb_window_width) over a field of fieldWidth bits (16 for the MSN and
// for the IP-ID/MSN offset).
func New(width int, fieldWidth uint) *Window {
	if width <= 0 {
		width = 4
	}
	return &Window{
		width:      width,
		fieldWidth: fieldWidth,
		entries:    make([]entry, 0, width),
	}
}

func (w *Window) modulus() uint64 {
	return uint64(1) << w.fieldWidth
}

func (w *Window) mask(value uint32) uint32 {
	if w.fieldWidth >= 32 {
		return value
	}
	return value & uint32(w.modulus()-1)
}

// Add appends (value, sn) to the window, evicting the oldest entry once
// the ring is full.
func (w *Window) Add(value, sn uint32) {
	value = w.mask(value)
	if len(w.entries) == w.width {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:len(w.entries)-1]
	}
	w.entries = append(w.entries, entry{value: value, refSN: sn})
}

// Len reports how many entries are currently in the window.
func (w *Window) Len() int { return len(w.entries) }

// Clear empties the window, e.g. on a context reset to IR.
func (w *Window) Clear() { w.entries = w.entries[:0] }

// interval returns [lo, hi] (inclusive, both reduced mod 2^fieldWidth)
// for reference value ref, k bits and shift p. hi-lo+1 == 2^k (mod M).
func (w *Window) interval(ref uint32, k uint, p int) (lo, hi uint64) {
	m := w.modulus()
	span := uint64(1) << k
	r := uint64(w.mask(ref))
	// lo = (ref - p) mod m, computed without underflowing uint64.
	shift := uint64(((p % int(m)) + int(m)) % int(m))
	lo = (r + m - shift) % m
	hi = (lo + span - 1) % m
	return lo, hi
}

// inInterval reports whether v (reduced mod 2^fieldWidth) falls in the
// circular interval [lo, hi].
func inInterval(v, lo, hi uint64) bool {
	if lo <= hi {
		return v >= lo && v <= hi
	}
	// wrapped: valid range is [lo, m-1] U [0, hi]
	return v >= lo || v <= hi
}

// IsKPPossible reports whether value lies in *every* stored reference's
// interpretation interval at parameters (k, p) — the encoder must pick a
// k that is safe against every entry still in the window, since the
// decompressor's reference could be any one of them depending on which
// packet it last decoded successfully.
func (w *Window) IsKPPossible(value uint32, k uint, p int) bool {
	v := uint64(w.mask(value))
	if len(w.entries) == 0 {
		return true
	}
	for _, e := range w.entries {
		lo, hi := w.intervalForValue(e.value, k, p)
		if !inInterval(v, lo, hi) {
			return false
		}
	}
	return true
}

// intervalForValue computes the interpretation interval anchored on a
// stored *value* (not its SN) — the MSN/offset window anchors on the
// value itself, since that's what the decompressor reconstructs from.
func (w *Window) intervalForValue(refValue uint32, k uint, p int) (lo, hi uint64) {
	return w.interval(refValue, k, p)
}

// MinK returns the smallest k in Ks for which IsKPPossible(value, k, p)
// holds, and whether any such k exists (spec §4.1: "the encoder picks
// the smallest k... for which is_k_p_possible holds against all
// references"). pFor computes p for a candidate k.
func (w *Window) MinK(value uint32, pFor func(k uint) int) (k uint, ok bool) {
	for _, candidate := range Ks {
		if candidate > 32 {
			continue
		}
		if w.IsKPPossible(value, candidate, pFor(candidate)) {
			return candidate, true
		}
	}
	return 0, false
}

// Decode reconstructs the unique integer in
// [reference - p, reference + 2^k - 1 - p] (mod 2^fieldWidth) whose low
// k bits equal lsbBits (spec §4.1). It is a pure function of (lsbBits,
// k, p, reference) and does not consult the window's stored entries —
// callers pass whichever reference (last committed, or a repair
// hypothesis's alternate reference, per spec §4.7) is appropriate.
func Decode(lsbBits uint32, k uint, p int, reference uint32, fieldWidth uint) (uint32, error) {
	if k == 0 || k > 32 {
		return 0, fmt.Errorf("wlsb: invalid k=%d", k)
	}
	m := uint64(1) << fieldWidth
	span := uint64(1) << k
	mask := span - 1
	shift := uint64(((p % int(m)) + int(m)) % int(m))
	intervalBegin := (uint64(reference)%m + m - shift) % m

	candidate := (intervalBegin &^ mask) | (uint64(lsbBits) & mask)
	if candidate < intervalBegin {
		candidate += span
	}
	return uint32(candidate % m), nil
}

// PForMSN computes p for the MSN field at width k, per spec §4.1:
// p = (1<<k) - 1 - reorderingOffset.
func PForMSN(k uint, reorderingOffset int) int {
	return (1 << k) - 1 - reorderingOffset
}

// PForIPIDOffset computes p for the innermost IP-ID/MSN offset field at
// width k, per spec §4.1: p = (1<<(k-1)) - 1.
func PForIPIDOffset(k uint) int {
	if k == 0 {
		return 0
	}
	return (1 << (k - 1)) - 1
}
