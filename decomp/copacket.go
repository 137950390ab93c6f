// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import "github.com/go-rohc/rohc"

// parsedCO holds the raw LSB fields pulled off a CO packet before
// W-LSB reconstruction against the context's windows (spec §4.1,
// §4.4). crcBits/crcWidth is the CRC the sender computed; consumed is
// how many bytes of the input the format occupied.
type parsedCO struct {
	ptype    PacketType
	msnLSB   uint32
	msnK     uint
	ipIDLSB  uint32
	ipIDK    uint
	flags    byte
	newBehaviorByte byte
	hasNewBehavior  bool
	crcValue uint8
	crcWidth uint
	consumed int
	rest     []byte // CO-COMMON's trailing irregular-chain bytes, if any
}

func parseCO(ptype PacketType, buf []byte) (parsedCO, error) {
	switch ptype {
	case PT0CRC3:
		if len(buf) < 1 {
			return parsedCO{}, rohc.Malformedf("decomp: truncated PT-0-CRC3")
		}
		b := buf[0]
		return parsedCO{ptype: ptype, msnLSB: uint32(b>>3) & 0x0f, msnK: 4, crcValue: b & 0x07, crcWidth: 3, consumed: 1}, nil
	case PT0CRC7:
		// byte0 = "100" prefix (5 data bits: MSN top 5), byte1 = MSN
		// bottom bit (bit 7) + 7-bit CRC (spec §6).
		if len(buf) < 2 {
			return parsedCO{}, rohc.Malformedf("decomp: truncated PT-0-CRC7")
		}
		msn6 := (uint32(buf[0]&0x1f) << 1) | uint32(buf[1]>>7)
		return parsedCO{ptype: ptype, msnLSB: msn6, msnK: 6, crcValue: buf[1] & 0x7f, crcWidth: 7, consumed: 2}, nil
	case PT1SeqID:
		// byte0 = "101" prefix (5 data bits: MSN top 5), byte1 = MSN
		// bottom bit + 4-bit IP-ID offset + 3-bit CRC (spec §6).
		if len(buf) < 2 {
			return parsedCO{}, rohc.Malformedf("decomp: truncated PT-1-SEQ-ID")
		}
		msn6 := (uint32(buf[0]&0x1f) << 1) | uint32(buf[1]>>7)
		return parsedCO{
			ptype: ptype, msnLSB: msn6, msnK: 6,
			ipIDLSB: uint32(buf[1]>>3) & 0x0f, ipIDK: 4,
			crcValue: buf[1] & 0x07, crcWidth: 3, consumed: 2,
		}, nil
	case PT2SeqID:
		// byte0 = "110" prefix (5 data bits: MSN top 5), byte1 = MSN
		// bottom 3 bits + IP-ID top 5 bits, byte2 = IP-ID bottom bit +
		// 7-bit CRC (spec §6).
		if len(buf) < 3 {
			return parsedCO{}, rohc.Malformedf("decomp: truncated PT-2-SEQ-ID")
		}
		msn8 := (uint32(buf[0]&0x1f) << 3) | uint32(buf[1]>>5)
		ipid6 := (uint32(buf[1]&0x1f) << 1) | uint32(buf[2]>>7)
		return parsedCO{
			ptype: ptype, msnLSB: msn8, msnK: 8,
			ipIDLSB: ipid6, ipIDK: 6,
			crcValue: buf[2] & 0x7f, crcWidth: 7, consumed: 3,
		}, nil
	case PTCOCommon:
		if len(buf) < 2 {
			return parsedCO{}, rohc.Malformedf("decomp: truncated CO-COMMON")
		}
		flagByte := buf[1]
		i := 2
		var newBehavior byte
		hasNewBehavior := flagByte&0x02 != 0
		if hasNewBehavior {
			if len(buf) < i+1 {
				return parsedCO{}, rohc.Malformedf("decomp: truncated CO-COMMON behavior octet")
			}
			newBehavior = buf[i]
			i++
		}
		if len(buf) < i+3 {
			return parsedCO{}, rohc.Malformedf("decomp: truncated CO-COMMON MSN/CRC")
		}
		msn := uint32(buf[i])<<8 | uint32(buf[i+1])
		c8 := buf[i+2]
		i += 3
		return parsedCO{
			ptype: ptype, flags: flagByte, msnLSB: msn, msnK: 16,
			newBehaviorByte: newBehavior, hasNewBehavior: hasNewBehavior,
			crcValue: c8, crcWidth: 8, consumed: i, rest: buf[i:],
		}, nil
	default:
		return parsedCO{}, rohc.Malformedf("decomp: %s is not a CO format", ptype)
	}
}
