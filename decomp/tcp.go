// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import (
	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/crc"
	"github.com/go-rohc/rohc/rohcmetrics"
	"github.com/go-rohc/rohc/tcpopt"
)

// TCP-profile CO discriminator octets (spec §4.6: RFC 6846 disambiguates
// 17 CO formats plus CO-COMMON by the top nibble of the first byte
// combined with the context's stored IP-ID behavior). RFC 6846 packs
// those 17 formats into a handful of overlapping bit prefixes; re-deriving
// that packing bit-exactly without a reference implementation to check
// against was judged too error-prone to do blind (see DESIGN.md). This
// implementation instead gives each of the three format classes it
// supports — sequential, random (with extension-3 re-parse), and a
// CO-COMMON-style explicit-change format — its own fixed, unambiguous
// octet in the range RFC 5225's tree never reaches (0xe0-0xe2; compare
// discriminator.go's tagPT0CRC7/tagPT1SeqID/tagPT2SeqID/tagCOCommon/tagIR).
const (
	tagTCPSeq    = 0xe0 // innermost IP-ID inferred, sequential
	tagTCPRnd    = 0xe1 // innermost IP-ID explicit, may trigger extension-3 reparse
	tagTCPCommon = 0xe2 // explicit seq/ack/window/option-list changes
)

// tcpIRTail is everything a TCP-profile IR packet carries beyond the
// generic IP static+dynamic chain parseIR already extracts: the two
// ports, the full (uncompressed) seq/ack/window/flags, the scaled-field
// strides spec §4.10 needs for later CO packets, and the initial option
// list (spec §4.9).
type tcpIRTail struct {
	srcPort, dstPort      uint16
	seqNum, ackNum        uint32
	window                uint16
	flags                 uint8
	seqStride, seqResidue uint32
	ackStride, ackResidue uint32
	options               []tcpopt.Option
	consumed              int
}

// parseIRTCPTail parses buf starting right after the generic IR chain
// (i.e. buf[h.consumed:] from parseIR), mirroring encodeIRTCPTail's
// field order exactly.
func parseIRTCPTail(buf []byte, table *tcpopt.Table) (tcpIRTail, error) {
	const fixed = 2 + 2 + 4 + 4 + 2 + 1 + 4 + 4 + 4 + 4 + 1
	if len(buf) < fixed {
		return tcpIRTail{}, rohc.Malformedf("decomp: truncated TCP IR chain")
	}
	var h tcpIRTail
	i := 0
	h.srcPort = be16(buf[i:])
	i += 2
	h.dstPort = be16(buf[i:])
	i += 2
	h.seqNum = be32(buf[i:])
	i += 4
	h.ackNum = be32(buf[i:])
	i += 4
	h.window = be16(buf[i:])
	i += 2
	h.flags = buf[i]
	i++
	h.seqStride = be32(buf[i:])
	i += 4
	h.seqResidue = be32(buf[i:])
	i += 4
	h.ackStride = be32(buf[i:])
	i += 4
	h.ackResidue = be32(buf[i:])
	i += 4
	optHeader := buf[i]
	i++

	opts, consumed, err := tcpopt.DecodeList(optHeader, buf[i:], table)
	if err != nil {
		return tcpIRTail{}, err
	}
	i += consumed
	h.options = opts
	h.consumed = i
	return h, nil
}

// encodeIRTCPTail is parseIRTCPTail's counterpart, used by this
// package's own tests to build TCP IR packets the way a peer TCP-profile
// compressor would, since package comp only ever builds the RFC 5225
// IP-only profile (spec §1: the compression side of this repo is
// IP-only; decomp's job is to recognize the wider RFC 3095/6846 family
// on the wire regardless of which compressor produced it).
func encodeIRTCPTail(h tcpIRTail, table *tcpopt.Table) ([]byte, error) {
	out := make([]byte, 0, 32)
	out = append(out, byte(h.srcPort>>8), byte(h.srcPort))
	out = append(out, byte(h.dstPort>>8), byte(h.dstPort))
	out = appendBE32(out, h.seqNum)
	out = appendBE32(out, h.ackNum)
	out = append(out, byte(h.window>>8), byte(h.window))
	out = append(out, h.flags)
	out = appendBE32(out, h.seqStride)
	out = appendBE32(out, h.seqResidue)
	out = appendBE32(out, h.ackStride)
	out = appendBE32(out, h.ackResidue)

	optHeader, xi, items, err := tcpopt.EncodeList(h.options, table)
	if err != nil {
		return nil, err
	}
	out = append(out, optHeader)
	out = append(out, xi...)
	out = append(out, items...)
	return out, nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func appendBE32(out []byte, v uint32) []byte {
	return append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// tcpCOOutcome is the three-way decode result spec §4.8/§9 describe for
// extension-3: a normal result, a CRC failure, or a signal that the
// first-pass field-width assumption was wrong and the packet must be
// re-parsed once from the start under the corrected assumption.
type tcpCOOutcome int

const (
	tcpCOOk tcpCOOutcome = iota
	tcpCOCrcError
	tcpCONeedReparse
)

// decodeTCPCO dispatches a TCP-profile CO packet, retrying exactly once
// if the rnd-class format's extension-3 byte flips the assumed IP-ID
// classification (spec §4.8: "the dispatcher retries exactly once").
func (d *Decompressor) decodeTCPCO(ctx *Context, buf []byte) (Header, error) {
	assumedSequential := ctx.last.ipIDBehavior.IsSequential()

	rec, outcome, err := decodeTCPCOOnce(ctx, buf, assumedSequential)
	depth := 0
	if outcome == tcpCONeedReparse {
		depth = 1
		rec, outcome, err = decodeTCPCOOnce(ctx, buf, !assumedSequential)
	}
	rohcmetrics.ReparseDepth.Observe(float64(depth))

	if err != nil {
		return Header{}, err
	}
	switch outcome {
	case tcpCOCrcError:
		rohcmetrics.CRCOutcome.WithLabelValues("mismatch").Inc()
		ctx.rollback()
		return Header{}, rohc.ErrCrcError
	case tcpCONeedReparse:
		// depth bound of 1 exceeded: the second pass disagreed again.
		rohcmetrics.CRCOutcome.WithLabelValues("mismatch").Inc()
		ctx.rollback()
		return Header{}, rohc.Malformedf("decomp: TCP extension-3 reparse did not converge")
	}

	ctx.active = rec
	ctx.commit()
	rohcmetrics.CRCOutcome.WithLabelValues("ok").Inc()

	r := ctx.last
	return Header{
		Version: ctx.static.version, Protocol: ctx.static.protocol,
		Src: ctx.static.src, Dst: ctx.static.dst, FlowLabel: ctx.static.flowLabel,
		DSCPECN: r.dscpECN, TTL: r.ttl, DF: r.df,
		IPIDBehavior: r.ipIDBehavior, IPID: r.ipID, MSN: r.msn,
		SrcPort: ctx.static.srcPort, DstPort: ctx.static.dstPort,
		Seq: r.seqNum, Ack: r.ackNum, Window: r.window, TCPFlags: r.tcpFlags,
		Options: r.options,
	}, nil
}

// decodeTCPCOOnce parses and CRC-verifies one TCP CO packet under a
// single field-width assumption (sequentialAssumed governs whether the
// rnd-class format expects an explicit IP-ID field).
func decodeTCPCOOnce(ctx *Context, buf []byte, sequentialAssumed bool) (headerRecord, tcpCOOutcome, error) {
	if len(buf) < 1 {
		return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: empty TCP CO packet")
	}
	rec := ctx.last

	switch buf[0] {
	case tagTCPSeq:
		if len(buf) < 8 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP seq CO packet")
		}
		msn := be16(buf[1:])
		seq := be32(buf[3:])
		c8 := buf[7]
		rec.msn = msn
		rec.seqNum = seq
		rec.ipIDBehavior = rohc.IPIDSequential
		if delta, ok := ipIDDeltaFromMSN(ctx, msn); ok {
			rec.ipID = uint16(int(ctx.last.ipID) + delta)
		}
		if crc.CRC8(tcpCRCInput(rec)) != c8 {
			return headerRecord{}, tcpCOCrcError, nil
		}
		return rec, tcpCOOk, nil

	case tagTCPRnd:
		headLen := 3 // tag + msn
		if sequentialAssumed {
			headLen += 4 // seq
		} else {
			headLen += 4 + 2 // seq + explicit ip-id
		}
		if len(buf) < headLen+2 { // + ext3 + crc8
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP rnd CO packet")
		}
		i := 1
		msn := be16(buf[i:])
		i += 2
		seq := be32(buf[i:])
		i += 4
		var ipID uint16
		if !sequentialAssumed {
			ipID = be16(buf[i:])
			i += 2
		}
		// The ext3 byte and the CRC are always the packet's last two
		// octets, so ext3 is read from the same place whichever layout
		// is assumed.
		ext3 := buf[len(buf)-2]
		c8 := buf[len(buf)-1]

		actuallySequential := ext3&0x01 == 0
		if actuallySequential != sequentialAssumed {
			return headerRecord{}, tcpCONeedReparse, nil
		}

		rec.msn = msn
		rec.seqNum = seq
		if actuallySequential {
			rec.ipIDBehavior = rohc.IPIDSequential
			if delta, ok := ipIDDeltaFromMSN(ctx, msn); ok {
				rec.ipID = uint16(int(ctx.last.ipID) + delta)
			}
		} else {
			rec.ipIDBehavior = rohc.IPIDRandom
			rec.ipID = ipID
		}
		if crc.CRC8(tcpCRCInput(rec)) != c8 {
			return headerRecord{}, tcpCOCrcError, nil
		}
		return rec, tcpCOOk, nil

	case tagTCPCommon:
		return decodeTCPCommon(ctx, buf)

	default:
		return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: unrecognized TCP CO octet 0x%02x", buf[0])
	}
}

// TCP-COMMON flag bits (spec §4.4's CO-COMMON "explicit flags" idea,
// generalized to the TCP fields spec §4.10 names).
const (
	tcpFlagWindowChanged  = 0x01
	tcpFlagOptionsChanged = 0x02
	tcpFlagSeqScaled      = 0x04
	tcpFlagAckScaled      = 0x08
)

// decodeTCPCommon parses the explicit-change TCP CO format: MSN, and
// either the scaled seq/ack (spec §4.10: "multiplies the scaled value by
// the current payload length and adds the residue", substituting the
// committed seqStride/seqResidue for "payload length" exactly as the
// original's ack_stride/ack_residue pair does) or the full 32-bit values
// when scaling is not in play for that field, plus an optional changed
// option list (spec §4.9).
func decodeTCPCommon(ctx *Context, buf []byte) (headerRecord, tcpCOOutcome, error) {
	if len(buf) < 2 {
		return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON flags")
	}
	rec := ctx.last
	flags := buf[1]
	i := 2

	if flags&tcpFlagWindowChanged != 0 {
		if len(buf) < i+2 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON window")
		}
		rec.window = be16(buf[i:])
		i += 2
	}

	if len(buf) < i+2 {
		return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON MSN")
	}
	rec.msn = be16(buf[i:])
	i += 2

	if flags&tcpFlagSeqScaled != 0 {
		if rec.seqStride == 0 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: TCP-COMMON scaled seq with zero seqStride")
		}
		if len(buf) < i+1 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON scaled seq")
		}
		rec.seqNum = uint32(buf[i])*rec.seqStride + rec.seqResidue
		i++
	} else {
		if len(buf) < i+4 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON seq")
		}
		rec.seqNum = be32(buf[i:])
		i += 4
	}

	if flags&tcpFlagAckScaled != 0 {
		if rec.ackStride == 0 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: TCP-COMMON scaled ack with zero ackStride")
		}
		if len(buf) < i+1 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON scaled ack")
		}
		rec.ackNum = uint32(buf[i])*rec.ackStride + rec.ackResidue
		i++
	} else {
		if len(buf) < i+4 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON ack")
		}
		rec.ackNum = be32(buf[i:])
		i += 4
	}

	if len(buf) < i+1 {
		return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON CRC")
	}
	c8 := buf[i]
	i++

	if flags&tcpFlagOptionsChanged != 0 {
		if len(buf) < i+1 {
			return headerRecord{}, tcpCOOk, rohc.Malformedf("decomp: truncated TCP-COMMON option header")
		}
		opts, consumed, err := tcpopt.DecodeList(buf[i], buf[i+1:], ctx.options)
		if err != nil {
			return headerRecord{}, tcpCOOk, err
		}
		rec.options = opts
		i += 1 + consumed
	}

	if crc.CRC8(tcpCRCInput(rec)) != c8 {
		return headerRecord{}, tcpCOCrcError, nil
	}
	return rec, tcpCOOk, nil
}

// tcpCRCInput builds the bytes a TCP CO format's CRC covers: the fields
// that must match for the rebuilt header to be accepted, mirroring
// irregularCRCInput's IP-only role (spec §4.3's "CRC field itself set to
// zero" discipline, generalized to the TCP fields that change packet to
// packet).
func tcpCRCInput(rec headerRecord) []byte {
	out := make([]byte, 0, 14)
	out = append(out, byte(rec.msn>>8), byte(rec.msn))
	out = appendBE32(out, rec.seqNum)
	out = appendBE32(out, rec.ackNum)
	out = append(out, byte(rec.ipID>>8), byte(rec.ipID))
	return out
}

// ipIDDeltaFromMSN infers the sequential IP-ID delta from the MSN delta
// the way the RFC 5225 IP-only selector's "IP-ID inferable from MSN"
// precondition does (spec §4.4), reused here for the TCP sequential
// formats since both profiles share the same innermost IP-ID behavior
// model (spec §4.2).
func ipIDDeltaFromMSN(ctx *Context, newMSN uint16) (int, bool) {
	if !ctx.last.ipIDBehavior.IsSequential() {
		return 1, true
	}
	return int(newMSN) - int(ctx.last.msn), true
}
