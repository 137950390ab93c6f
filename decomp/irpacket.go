// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import (
	"github.com/go-rohc/rohc"
)

// irHeader is everything an IR packet's static+dynamic chains
// reconstruct in full (spec §4.5) — no LSB decoding needed since every
// field is carried explicitly.
type irHeader struct {
	profile   rohc.Profile
	version   uint8
	protocol  uint8
	src, dst  []byte
	flowLabel uint32 // IPv6 only (spec §4.5, §8 scenario 3)

	dscpECN      uint8
	ttl          uint8
	df           bool
	ipIDBehavior rohc.IPIDBehavior
	ipID         uint16
	reorder      rohc.ReorderRatio
	msn          uint16

	consumed int
}

// parseIR reads the 2-byte Profile field and the static/dynamic chain
// bytes following the IR tag+CRC octets (spec §6: "0xFD Profile(=0x0104)
// CRC-8 StaticChain DynamicChain"), mirroring package comp's
// writeStaticChain/writeDynamicChain byte order exactly.
func parseIR(buf []byte) (irHeader, error) {
	if len(buf) < 4 {
		return irHeader{}, rohc.Malformedf("decomp: truncated IR packet")
	}
	// buf[0] is the tag, buf[1:3] the Profile field, buf[3] the CRC-8;
	// the chains start at buf[4].
	profile := rohc.Profile(uint16(buf[1])<<8 | uint16(buf[2]))
	body := buf[4:]
	if len(body) < 2 {
		return irHeader{}, rohc.Malformedf("decomp: truncated IR static chain")
	}

	var h irHeader
	h.profile = profile
	b := body[0]
	if b&0x80 != 0 {
		h.version = 6
	} else {
		h.version = 4
	}
	// b&0x40 is the innermost flag; the RFC 5225 IP-only profile as
	// implemented here only ever carries one IP header, always innermost.
	flowLabelPresent := h.version == 6 && b&0x20 != 0
	h.protocol = body[1]

	off := 2
	if flowLabelPresent {
		if len(body) < off+3 {
			return irHeader{}, rohc.Malformedf("decomp: truncated IR flow label")
		}
		h.flowLabel = uint32(body[off]&0x0f)<<16 | uint32(body[off+1])<<8 | uint32(body[off+2])
		off += 3
	}

	addrLen := 4
	if h.version == 6 {
		addrLen = 16
	}
	need := off + 2*addrLen
	if len(body) < need {
		return irHeader{}, rohc.Malformedf("decomp: truncated IR addresses")
	}
	h.src = append([]byte(nil), body[off:off+addrLen]...)
	h.dst = append([]byte(nil), body[off+addrLen:need]...)

	dyn := body[need:]
	dynMin := 3 // dscpECN, ttl, behavior at minimum (IPv6 has no DF octet)
	if h.version == 4 {
		dynMin++
	}
	if len(dyn) < dynMin {
		return irHeader{}, rohc.Malformedf("decomp: truncated IR dynamic chain")
	}

	i := 0
	h.dscpECN = dyn[i]
	i++
	h.ttl = dyn[i]
	i++
	if h.version == 4 {
		h.df = dyn[i] != 0
		i++
	}
	h.ipIDBehavior = rohc.IPIDBehavior(dyn[i])
	i++

	if len(dyn) < i+3 {
		return irHeader{}, rohc.Malformedf("decomp: truncated IR MSN/reorder field")
	}
	h.reorder = rohc.ReorderRatio(dyn[i])
	i++
	h.msn = uint16(dyn[i])<<8 | uint16(dyn[i+1])
	i += 2

	if len(dyn) < i+2 {
		return irHeader{}, rohc.Malformedf("decomp: truncated IR IP-ID field")
	}
	h.ipID = uint16(dyn[i])<<8 | uint16(dyn[i+1])
	i += 2

	h.consumed = 4 + need + i
	return h, nil
}
