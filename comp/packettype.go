// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package comp

import "github.com/go-rohc/rohc"

// PacketType names the RFC 5225 IP-only wire formats the selector
// chooses between (spec §4.4).
type PacketType uint8

const (
	PTIR PacketType = iota
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

// changeFlags is the differ's output: which fields moved since the
// last committed header, feeding the selector table of spec §4.4.
type changeFlags struct {
	tosTTLDFChanged bool // TOS/TC, TTL/HL or DF changed on the innermost header
	behaviorChanged bool // IP-ID behavior classification changed
	outerIPFlag     bool // TOS/TTL changed on a non-innermost header
	ipIDInferable   bool // new_ip_id == last_ip_id + 1 (swap-aware); IPv4, behavior SEQ/SEQ_SWAP
	ipIDSequential  bool // behavior classifies as SEQ or SEQ_SWAP (PT-1/PT-2 precondition)
}

// anyChange reports whether any field the CO formats can't carry has
// moved, forcing a fallback to CO-COMMON or IR.
func (f changeFlags) anyChange() bool {
	return f.tosTTLDFChanged || f.behaviorChanged
}

// selectPacketType walks the fixed-order table of spec §4.4: the first
// format whose field widths and preconditions fit wins. msnBits/ipidBits
// are the smallest W-LSB k that would successfully decode against
// every reference currently in the respective windows (wlsb.Window.MinK).
func selectPacketType(state rohc.State, msnBits, ipidBits uint, msnBitsOK, ipidBitsOK bool, flags changeFlags) PacketType {
	if state == rohc.IR {
		return PTIR
	}

	if flags.anyChange() {
		return PTCOCommon
	}

	if state == rohc.SO {
		if flags.ipIDInferable && msnBitsOK && msnBits <= 4 {
			return PT0CRC3
		}
	}
	if flags.ipIDInferable && msnBitsOK && msnBits <= 6 {
		return PT0CRC7
	}

	if state == rohc.SO && flags.ipIDSequential && ipidBitsOK && msnBitsOK && msnBits <= 6 && ipidBits <= 4 {
		return PT1SeqID
	}
	if flags.ipIDSequential && ipidBitsOK && msnBitsOK && msnBits <= 8 && ipidBits <= 6 {
		return PT2SeqID
	}

	return PTCOCommon
}
