// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package tcpopt implements the TCP option index table and the
// compressed option-list codec (spec §3 "TCP option index table" and
// §4.9 "TCP Option List Compression").
package tcpopt

import (
	"bytes"

	"github.com/go-rohc/rohc"
)

// The sixteen well-known/dynamic slots, matching the original's
// TCP_INDEX_* ordering (original_source/src/decomp/d_tcp.c).
const (
	IdxNOP byte = iota
	IdxEOL
	IdxMSS
	IdxWindowScale
	IdxTimestamp
	IdxSackPermitted
	IdxSack
	idxReserved7
	// IdxDynamicBase is the first index available for options the
	// compressor has not seen before (spec §3: "8–15 user-defined").
	IdxDynamicBase
)

// NumSlots is the size of the option index table (spec §3).
const NumSlots = 16

// TCP option kind octets, RFC 793/1323/2018.
const (
	KindEOL            = 0
	KindNOP            = 1
	KindMSS            = 2
	KindWindowScale    = 3
	KindSackPermitted  = 4
	KindSack           = 5
	KindTimestamp      = 8
)

var wellKnownKind = map[byte]byte{
	IdxNOP:           KindNOP,
	IdxEOL:           KindEOL,
	IdxMSS:           KindMSS,
	IdxWindowScale:   KindWindowScale,
	IdxTimestamp:     KindTimestamp,
	IdxSackPermitted: KindSackPermitted,
	IdxSack:          KindSack,
}

// Slot holds one entry of the option index table: the option kind and
// the last-seen payload (spec §3). Once assigned, the slot's kind is
// fixed for the lifetime of the context; its payload is replaced each
// time a present item carries a new value (see Table.Assign).
type Slot struct {
	Assigned bool
	Kind     byte
	Payload  []byte // option value bytes, kind/length octets excluded
}

// Table is the fixed 16-slot TCP option index table shared by the
// compressor and decompressor contexts of one flow.
type Table struct {
	slots    [NumSlots]Slot
	nextFree byte
}

// NewTable returns an empty table with the well-known slots pre-wired
// to their fixed kinds (unassigned until a payload is first seen) and
// the dynamic cursor starting at IdxDynamicBase.
func NewTable() *Table {
	t := &Table{nextFree: IdxDynamicBase}
	for idx, kind := range wellKnownKind {
		t.slots[idx].Kind = kind
	}
	return t
}

// Lookup returns the slot at idx, or ok=false if idx is out of range.
func (t *Table) Lookup(idx byte) (Slot, bool) {
	if idx >= NumSlots {
		return Slot{}, false
	}
	return t.slots[idx], true
}

// IndexForKind returns the well-known index for kind, if any.
func IndexForKind(kind byte) (idx byte, ok bool) {
	switch kind {
	case KindNOP:
		return IdxNOP, true
	case KindEOL:
		return IdxEOL, true
	case KindMSS:
		return IdxMSS, true
	case KindWindowScale:
		return IdxWindowScale, true
	case KindTimestamp:
		return IdxTimestamp, true
	case KindSackPermitted:
		return IdxSackPermitted, true
	case KindSack:
		return IdxSack, true
	default:
		return 0, false
	}
}

// Assign records kind/payload at idx, updating the last-seen payload.
// The immutability invariant (spec §3) binds an index to one option
// *kind* for the context's lifetime — rebinding an already-assigned
// index to a different kind is rejected — but the payload itself is
// expected to change packet to packet for options like the TCP
// timestamp, so a same-kind re-assignment always succeeds and simply
// updates the stored reference used by the next "present=0" (known
// from context) packet.
func (t *Table) Assign(idx byte, kind byte, payload []byte) error {
	if idx >= NumSlots {
		return rohc.Malformedf("tcpopt: index %d out of range", idx)
	}
	s := &t.slots[idx]
	if s.Assigned && s.Kind != kind {
		return rohc.Malformedf("tcpopt: index %d is bound to kind %d, cannot rebind to kind %d", idx, s.Kind, kind)
	}
	s.Assigned = true
	s.Kind = kind
	s.Payload = append([]byte(nil), payload...)
	return nil
}

// AllocateDynamic returns the next free dynamic index (8-15) for a kind
// the table has never seen, advancing the compressor-side cursor. It
// does not itself mark the slot assigned; call Assign once the payload
// is known.
func (t *Table) AllocateDynamic() (byte, error) {
	if t.nextFree >= NumSlots {
		return 0, rohc.Unsupportedf("tcpopt: option index table exhausted")
	}
	idx := t.nextFree
	t.nextFree++
	return idx, nil
}

// VerifyUnchanged checks that payload is byte-equal to whatever is
// currently stored at idx — the decompressor must do this whenever a
// "present but unchanged" reference arrives (spec §3).
func (t *Table) VerifyUnchanged(idx byte, payload []byte) error {
	s, ok := t.Lookup(idx)
	if !ok || !s.Assigned {
		return rohc.Malformedf("tcpopt: reference to unassigned index %d", idx)
	}
	if !bytes.Equal(s.Payload, payload) {
		return rohc.ErrCrcError
	}
	return nil
}
