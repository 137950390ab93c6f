// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import "github.com/go-rohc/rohc"

// PacketType names the wire format a discriminated packet turned out
// to carry (spec §4.6). The tag values below are the wire contract
// shared with package comp's builders — compressor and decompressor
// agree on them the same way two independent RFC 3095 implementations
// agree on its packet-type bit patterns, each hardcoding its own copy.
type PacketType uint8

const (
	PTUnknown PacketType = iota
	PTIR
	PTCOCommon
	PT0CRC3
	PT0CRC7
	PT1SeqID
	PT2SeqID
)

func (t PacketType) String() string {
	switch t {
	case PTIR:
		return "IR"
	case PTCOCommon:
		return "CO-COMMON"
	case PT0CRC3:
		return "PT-0-CRC3"
	case PT0CRC7:
		return "PT-0-CRC7"
	case PT1SeqID:
		return "PT-1-SEQ-ID"
	case PT2SeqID:
		return "PT-2-SEQ-ID"
	default:
		return "unknown"
	}
}

// Literal RFC 5225 discriminator prefixes (spec §6), the same hardcoded
// constants package comp's builders write — see its buildXxx comment
// for why PT-0-CRC3's prefix is a single leading bit rather than the
// spec table's illustrative `0000`.
const (
	tagPT0CRC7  = 0x80 // "100" + 5 data bits
	tagPT1SeqID = 0xa0 // "101" + 5 data bits
	tagPT2SeqID = 0xc0 // "110" + 5 data bits
	tagCOCommon = 0xfa // "11111010"
	tagIR       = 0xfd
)

// discriminate walks the first-byte decision tree of spec §4.6,
// checking the longest fixed prefixes first: CO-COMMON and IR are full
// fixed octets, PT-1/PT-2/PT-0-CRC7 are 3-bit prefixes, and PT-0-CRC3
// is whatever remains with the leading bit clear.
func discriminate(first byte) (PacketType, error) {
	switch {
	case first == tagIR:
		return PTIR, nil
	case first == tagCOCommon:
		return PTCOCommon, nil
	case first&0xe0 == tagPT2SeqID:
		return PT2SeqID, nil
	case first&0xe0 == tagPT1SeqID:
		return PT1SeqID, nil
	case first&0xe0 == tagPT0CRC7:
		return PT0CRC7, nil
	case first&0x80 == 0x00:
		return PT0CRC3, nil
	default:
		return PTUnknown, rohc.Malformedf("decomp: unrecognized packet type octet 0x%02x", first)
	}
}
