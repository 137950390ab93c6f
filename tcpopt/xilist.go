// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tcpopt

import (
	"encoding/binary"

	"github.com/go-rohc/rohc"
)

// Option is one decompressed TCP option, kind/length octets excluded
// from Payload (NOP and EOL carry an empty Payload).
type Option struct {
	Kind    byte
	Payload []byte
}

// xiItem is one parsed XI list entry: which table index it names, and
// whether its value follows in the item stream ("present") or is to be
// read back from the table ("known from context").
type xiItem struct {
	index   byte
	present bool
}

// EncodeList builds the compressed option-list fields described in
// spec §4.9: a 1-byte PS|m header, the XI items (4-bit packed when
// every referenced index is a well-known one <=7, else 8-bit), and the
// item value bytes for every "present" entry, in XI order.
//
// table is mutated: an option whose kind has no well-known index gets a
// freshly allocated dynamic index the first time it's seen, bound for
// the lifetime of the context (spec §3); every "present" option's
// payload then replaces the table's last-seen reference so the next
// "known from context" (present=0) packet has something to compare
// against.
func EncodeList(opts []Option, table *Table) (header byte, xiBytes []byte, itemBytes []byte, err error) {
	if len(opts) > 15 {
		return 0, nil, nil, rohc.Unsupportedf("tcpopt: %d options exceeds the 15-item XI list limit", len(opts))
	}

	items := make([]xiItem, 0, len(opts))
	itemValues := make([][]byte, 0, len(opts))
	use8bit := false

	for _, o := range opts {
		idx, isWellKnown := IndexForKind(o.Kind)
		if !isWellKnown {
			idx = findDynamicIndex(table, o.Kind)
			if idx == 0 {
				idx, err = table.AllocateDynamic()
				if err != nil {
					return 0, nil, nil, err
				}
			}
			use8bit = true
		}

		s, _ := table.Lookup(idx)
		firstAssignment := !s.Assigned
		present := firstAssignment || !equalPayload(s.Payload, o.Payload)
		if present {
			if err := table.Assign(idx, o.Kind, o.Payload); err != nil {
				return 0, nil, nil, err
			}
		}

		items = append(items, xiItem{index: idx, present: present})
		if present {
			itemValues = append(itemValues, encodeItemValue(idx, o.Kind, o.Payload, firstAssignment))
		}
	}

	m := len(items)
	var ps byte
	if use8bit {
		ps = 0x10
	}
	header = ps | byte(m)

	if use8bit {
		xiBytes = make([]byte, m)
		for i, it := range items {
			b := it.index & 0x0f
			if it.present {
				b |= 0x80
			}
			xiBytes[i] = b
		}
	} else {
		xiBytes = make([]byte, (m+1)>>1)
		for i, it := range items {
			nibble := it.index & 0x07
			if it.present {
				nibble |= 0x08
			}
			if i&1 == 0 {
				xiBytes[i/2] |= nibble << 4
			} else {
				xiBytes[i/2] |= nibble
			}
		}
	}

	for _, v := range itemValues {
		itemBytes = append(itemBytes, v...)
	}
	return header, xiBytes, itemBytes, nil
}

func equalPayload(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// findDynamicIndex returns the dynamic index (8-15) already bound to
// kind, or 0 if kind has never been assigned one.
func findDynamicIndex(table *Table, kind byte) byte {
	for idx := IdxDynamicBase; idx < NumSlots; idx++ {
		s, _ := table.Lookup(idx)
		if s.Assigned && s.Kind == kind {
			return idx
		}
	}
	return 0
}

// encodeItemValue writes the on-the-wire item bytes for a present XI
// entry. NOP/EOL/SACK-permitted carry no value; the well-known
// fixed-width options are written as-is. This codec carries the option
// payload verbatim rather than the original's further LSB-compressed
// timestamp/SACK sub-encodings (see DESIGN.md) — spec §4.9 only
// specifies the XI/list framing, not a per-option-kind wire compression
// scheme.
//
// A dynamic index's value is always length-prefixed (1 byte), since
// unlike the well-known kinds its payload width isn't fixed by the
// kind alone; its first-ever transmission additionally carries the
// option kind octet right after the length, since the decompressor has
// no other way to learn what kind occupies a never-before-seen dynamic
// slot.
func encodeItemValue(idx, kind byte, payload []byte, firstAssignment bool) []byte {
	switch idx {
	case IdxNOP, IdxEOL, IdxSackPermitted:
		return nil
	case IdxMSS, IdxWindowScale, IdxTimestamp, IdxSack:
		return payload
	default:
		if firstAssignment {
			out := make([]byte, 0, len(payload)+2)
			out = append(out, byte(len(payload)+1), kind)
			return append(out, payload...)
		}
		out := make([]byte, 0, len(payload)+1)
		out = append(out, byte(len(payload)))
		return append(out, payload...)
	}
}

// DecodeList parses the compressed option-list fields back into the
// option list that PadToWords will round out to a 4-byte boundary.
// table is consulted for "known from context" entries and mutated for
// "present" ones exactly as EncodeList does, so a decompressor replaying
// the same flow ends up with the same table state as the compressor.
func DecodeList(header byte, buf []byte, table *Table) (opts []Option, consumed int, err error) {
	ps := header & 0x10
	m := int(header & 0x0f)

	var xiLen int
	if ps == 0 {
		xiLen = (m + 1) / 2
	} else {
		xiLen = m
	}
	if len(buf) < xiLen {
		return nil, 0, rohc.Malformedf("tcpopt: truncated XI list")
	}
	xi := buf[:xiLen]
	rest := buf[xiLen:]
	consumed = xiLen

	items := make([]xiItem, m)
	for i := 0; i < m; i++ {
		if ps == 0 {
			b := xi[i/2]
			var nibble byte
			if i&1 == 0 {
				nibble = b >> 4
			} else {
				nibble = b & 0x0f
			}
			items[i] = xiItem{index: nibble & 0x07, present: nibble&0x08 != 0}
		} else {
			b := xi[i]
			items[i] = xiItem{index: b & 0x0f, present: b&0x80 != 0}
		}
	}

	opts = make([]Option, 0, m)
	for _, it := range items {
		if it.present {
			existing, _ := table.Lookup(it.index)
			firstAssignment := !existing.Assigned

			n, kind, payload, derr := decodeItemValue(it.index, existing.Kind, rest, firstAssignment)
			if derr != nil {
				return nil, 0, derr
			}
			rest = rest[n:]
			consumed += n

			if err := table.Assign(it.index, kind, payload); err != nil {
				return nil, 0, err
			}
			opts = append(opts, Option{Kind: kind, Payload: payload})
		} else {
			s, ok := table.Lookup(it.index)
			if !ok || !s.Assigned {
				return nil, 0, rohc.Malformedf("tcpopt: reference to unassigned index %d", it.index)
			}
			opts = append(opts, Option{Kind: s.Kind, Payload: s.Payload})
		}
	}
	return opts, consumed, nil
}

// decodeItemValue returns the table-bound kind and value bytes for a
// present XI entry and how many bytes of buf it consumed. knownKind is
// the kind already on file for idx (ignored when firstAssignment, since
// then the wire carries the kind itself for dynamic indices).
func decodeItemValue(idx, knownKind byte, buf []byte, firstAssignment bool) (consumed int, kind byte, payload []byte, err error) {
	switch idx {
	case IdxNOP, IdxEOL, IdxSackPermitted:
		return 0, wellKnownKind[idx], nil, nil
	case IdxMSS:
		if len(buf) < 2 {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated MSS item")
		}
		return 2, KindMSS, append([]byte(nil), buf[:2]...), nil
	case IdxWindowScale:
		if len(buf) < 1 {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated window-scale item")
		}
		return 1, KindWindowScale, append([]byte(nil), buf[:1]...), nil
	case IdxTimestamp:
		if len(buf) < 8 {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated timestamp item")
		}
		return 8, KindTimestamp, append([]byte(nil), buf[:8]...), nil
	case IdxSack:
		if len(buf) < 1 {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated SACK item")
		}
		n := int(buf[0])
		need := 1 + n*8
		if len(buf) < need {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated SACK blocks")
		}
		return need, KindSack, append([]byte(nil), buf[:need]...), nil
	default:
		if len(buf) < 1 {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated dynamic item")
		}
		n := int(buf[0])
		if len(buf) < 1+n {
			return 0, 0, nil, rohc.Malformedf("tcpopt: truncated dynamic item value")
		}
		data := buf[1 : 1+n]
		if firstAssignment {
			if len(data) < 1 {
				return 0, 0, nil, rohc.Malformedf("tcpopt: dynamic first-assignment item missing kind octet")
			}
			return 1 + n, data[0], append([]byte(nil), data[1:]...), nil
		}
		return 1 + n, knownKind, append([]byte(nil), data...), nil
	}
}

// PadToWords pads a decompressed option list with EOL to a 4-byte
// boundary and returns the padded bytes together with the resulting
// data_offset word count (spec §4.9: "Decompressed options are padded
// with EOL to a 4-byte boundary; data_offset is set accordingly").
func PadToWords(raw []byte) (padded []byte, words byte) {
	rem := len(raw) % 4
	if rem != 0 {
		pad := make([]byte, 4-rem)
		raw = append(raw, pad...) // pad bytes default to KindEOL(0)
	}
	return raw, byte(len(raw) / 4)
}

// MarshalFixedWidth16 is a small helper for callers building Option
// payloads for fixed-width numeric options (e.g. MSS, a uint16).
func MarshalFixedWidth16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}
