// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package comp

import (
	"github.com/google/gopacket/layers"

	"github.com/go-rohc/rohc"
)

// header is the caller's view of one IP header to compress: only the
// fields the RFC 5225 IP-only profile's static/dynamic/irregular
// chains carry (spec §4.5). Built from a gopacket layers.IPv4/IPv6 by
// the caller-facing Encode wrapper.
type header struct {
	version   uint8
	protocol  layers.IPProtocol
	src, dst  []byte
	flowLabel uint32 // IPv6 only, 20 bits; zero selects the shorter static-chain variant (spec §4.5)

	dscpECN uint8
	ttl     uint8
	df      bool // IPv4 only
	ipID    uint16

	innermost bool
}

// writeStaticChain appends the static chain for one header (spec
// §4.5): 1-bit version flag, 1-bit innermost flag, protocol/next header
// octet, then the address bytes. IPv6 has two static-part variants
// (spec §4.5, §8 scenario 3): when the flow label is zero, the shorter
// variant below is used unchanged; a non-zero flow label sets a third
// flag bit and inserts the 20-bit label (packed into 3 bytes) between
// the protocol octet and the addresses.
func writeStaticChain(buf []byte, h header) []byte {
	var b byte
	if h.version == 6 {
		b |= 0x80
	}
	if h.innermost {
		b |= 0x40
	}
	flowLabelPresent := h.version == 6 && h.flowLabel != 0
	if flowLabelPresent {
		b |= 0x20
	}
	buf = append(buf, b, byte(h.protocol))
	if flowLabelPresent {
		buf = append(buf, byte(h.flowLabel>>16)&0x0f, byte(h.flowLabel>>8), byte(h.flowLabel))
	}
	buf = append(buf, h.src...)
	buf = append(buf, h.dst...)
	return buf
}

// writeDynamicChain appends the dynamic chain for one header (spec
// §4.5): TOS/TC, TTL/HL, DF (IPv4 only), IP-ID behavior, reordering
// ratio and MSN (innermost only), and the IP-ID itself. The IR
// dynamic chain always carries the absolute IP-ID — including for
// SEQ/SEQ_SWAP — since it is the only place the decompressor's W-LSB
// offset windows get an initial anchor to add CO-format deltas against;
// only the later CO formats rely on inferring or delta-encoding it.
func writeDynamicChain(buf []byte, h header, behavior rohc.IPIDBehavior, reorder rohc.ReorderRatio, msn uint16) []byte {
	buf = append(buf, h.dscpECN, h.ttl)
	if h.version == 4 {
		var dfByte byte
		if h.df {
			dfByte = 1
		}
		buf = append(buf, dfByte)
	}
	buf = append(buf, byte(behavior))
	if h.innermost {
		buf = append(buf, byte(reorder), byte(msn>>8), byte(msn))
	}
	buf = append(buf, byte(h.ipID>>8), byte(h.ipID))
	return buf
}

// writeIrregularChain appends the irregular-chain bytes for one header
// carried alongside a CO-COMMON packet (spec §4.5): the raw IP-ID when
// the behavior is RAND, the 16-bit signed sequential delta when the
// behavior is SEQ/SEQ_SWAP (CO-COMMON's fixed fields have no room for
// it the way PT-1/PT-2's dedicated offset field does), nothing for
// ZERO, and TOS+TTL for an outer header whose CO-COMMON changed flag
// (outerIPFlag) is set.
func writeIrregularChain(buf []byte, h header, behavior rohc.IPIDBehavior, outerIPFlag bool, delta int) []byte {
	switch {
	case behavior == rohc.IPIDRandom:
		buf = append(buf, byte(h.ipID>>8), byte(h.ipID))
	case behavior.IsSequential():
		d := uint16(int16(delta))
		buf = append(buf, byte(d>>8), byte(d))
	}
	if !h.innermost && outerIPFlag {
		buf = append(buf, h.dscpECN, h.ttl)
	}
	return buf
}
