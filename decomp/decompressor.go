// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import (
	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/crc"
	"github.com/go-rohc/rohc/rohcmetrics"
	"github.com/go-rohc/rohc/tcpopt"
	"github.com/go-rohc/rohc/wlsb"
)

// Header is the reconstructed IP header a successful Decode returns:
// the fields the RFC 5225 IP-only profile's chains carry, expanded
// back out of whatever format arrived on the wire (spec §4.5, §6).
type Header struct {
	Version  uint8
	Protocol uint8
	Src, Dst []byte
	// FlowLabel is the IPv6 flow label (spec §4.5's "two variants
	// depending on whether the flow label is zero"); always 0 for IPv4.
	FlowLabel uint32

	DSCPECN      uint8
	TTL          uint8
	DF           bool
	IPIDBehavior rohc.IPIDBehavior
	IPID         uint16
	MSN          uint16

	// TCP profile fields (ctx.Profile == rohc.ProfileTCP); zero values
	// on an IP-only context (spec §4.9, §4.10).
	SrcPort, DstPort uint16
	Seq, Ack         uint32
	Window           uint16
	TCPFlags         uint8
	Options          []tcpopt.Option
}

// Decompressor owns one profile-wide set of contexts, keyed by CID
// (spec §6).
type Decompressor struct {
	cfg      rohc.Config
	contexts map[rohc.CID]*Context
}

// New creates a decompressor bound to cfg (spec §6 "create").
func New(cfg rohc.Config) (*Decompressor, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return &Decompressor{cfg: cfg, contexts: make(map[rohc.CID]*Context)}, nil
}

// Destroy releases the context for cid (spec §6 "destroy").
func (d *Decompressor) Destroy(cid rohc.CID) {
	delete(d.contexts, cid)
}

// GetMSN returns the given context's last committed MSN (spec §6
// "get_msn").
func (d *Decompressor) GetMSN(cid rohc.CID) (uint16, bool) {
	ctx, ok := d.contexts[cid]
	if !ok {
		return 0, false
	}
	return ctx.MSN(), true
}

// context returns cid's context, creating one on first use. The profile
// is a placeholder until the first IR packet arrives and decodeIR
// learns the real value from the wire's Profile field (spec §6) — a
// context that has never seen an IR cannot yet know which profile it
// belongs to.
func (d *Decompressor) context(cid rohc.CID) *Context {
	ctx, ok := d.contexts[cid]
	if !ok {
		ctx = NewContext(cid, rohc.ProfileIPOnly2, &d.cfg)
		d.contexts[cid] = ctx
	}
	return ctx
}

// Decode decompresses one packet for cid (spec §6 "decode"). A CRC
// failure that neither repair hypothesis resolves, or a packet that
// lands within a repair's probation window, is reported as
// rohc.ErrCrcError; a packet referencing a context that hasn't yet
// seen an IR is rohc.ErrMalformedInput.
func (d *Decompressor) Decode(cid rohc.CID, buf []byte) (Header, error) {
	if len(buf) == 0 {
		return Header{}, rohc.Malformedf("decomp: empty packet")
	}
	ctx := d.context(cid)

	// The IR tag is shared by every profile (spec §6); everything past
	// it is profile-specific, so IR is recognized before any
	// profile-dependent discriminator tree runs.
	if buf[0] == tagIR {
		return d.decodeIR(ctx, buf)
	}
	if !ctx.hasSeenIR {
		return Header{}, rohc.Malformedf("decomp: CO packet before any IR on context %d", ctx.CID)
	}
	if ctx.Profile == rohc.ProfileTCP {
		return d.decodeTCPCO(ctx, buf)
	}

	ptype, err := discriminate(buf[0])
	if err != nil {
		return Header{}, err
	}
	return d.decodeCO(ctx, ptype, buf)
}

func (d *Decompressor) decodeIR(ctx *Context, buf []byte) (Header, error) {
	h, err := parseIR(buf)
	if err != nil {
		return Header{}, err
	}
	if ctx.hasSeenIR && h.profile != ctx.Profile {
		return Header{}, rohc.ErrProfileMismatch
	}

	var tcpTail tcpIRTail
	table := ctx.options
	if h.profile == rohc.ProfileTCP {
		if table == nil {
			table = tcpopt.NewTable()
		}
		tcpTail, err = parseIRTCPTail(buf[h.consumed:], table)
		if err != nil {
			return Header{}, err
		}
		h.consumed += tcpTail.consumed
	}

	body := buf[4:h.consumed]
	if crc.CRC8(body) != buf[3] {
		rohcmetrics.CRCOutcome.WithLabelValues("mismatch").Inc()
		return Header{}, rohc.ErrCrcError
	}
	rohcmetrics.CRCOutcome.WithLabelValues("ok").Inc()

	ctx.Profile = h.profile
	ctx.options = table
	ctx.hasSeenIR = true
	ctx.static = staticRecord{
		version: h.version, protocol: h.protocol, src: h.src, dst: h.dst,
		flowLabel: h.flowLabel,
		srcPort:   tcpTail.srcPort, dstPort: tcpTail.dstPort,
	}
	ctx.active = headerRecord{
		dscpECN:      h.dscpECN,
		ttl:          h.ttl,
		df:           h.df,
		ipIDBehavior: h.ipIDBehavior,
		ipID:         h.ipID,
		msn:          h.msn,
		seqNum:       tcpTail.seqNum, ackNum: tcpTail.ackNum,
		window: tcpTail.window, tcpFlags: tcpTail.flags,
		seqStride: tcpTail.seqStride, seqResidue: tcpTail.seqResidue,
		ackStride: tcpTail.ackStride, ackResidue: tcpTail.ackResidue,
		options: tcpTail.options,
	}
	ctx.commit()

	hdr := Header{
		Version: h.version, Protocol: h.protocol, Src: h.src, Dst: h.dst,
		FlowLabel: h.flowLabel,
		DSCPECN:   h.dscpECN, TTL: h.ttl, DF: h.df,
		IPIDBehavior: h.ipIDBehavior, IPID: h.ipID, MSN: h.msn,
	}
	if h.profile == rohc.ProfileTCP {
		hdr.SrcPort, hdr.DstPort = tcpTail.srcPort, tcpTail.dstPort
		hdr.Seq, hdr.Ack = tcpTail.seqNum, tcpTail.ackNum
		hdr.Window, hdr.TCPFlags = tcpTail.window, tcpTail.flags
		hdr.Options = tcpTail.options
	}
	return hdr, nil
}

// decodeResult is a successfully-verified CO decode, not yet committed.
type decodeResult struct {
	record headerRecord
}

func (d *Decompressor) decodeCO(ctx *Context, ptype PacketType, buf []byte) (Header, error) {
	parsed, err := parseCO(ptype, buf)
	if err != nil {
		return Header{}, err
	}

	result, ok := tryDecode(ctx, parsed, uint32(ctx.last.msn))
	if ok {
		return d.acceptCO(ctx, result)
	}

	for _, cand := range repairCandidates(uint32(ctx.last.msn)) {
		result, ok = tryDecode(ctx, parsed, cand.referenceMSN)
		if ok {
			ctx.active = result.record
			ctx.commit()
			ctx.beginProbation(result.record.msn)
			rohcmetrics.CRCOutcome.WithLabelValues("repaired").Inc()
			return Header{}, rohc.ErrCrcError
		}
	}

	rohcmetrics.CRCOutcome.WithLabelValues("mismatch").Inc()
	ctx.rollback()
	ctx.revertProbation()
	return Header{}, rohc.ErrCrcError
}

// acceptCO commits a CRC-verified decode, applying the probation
// discipline of spec §4.7 step 2 when one is active.
func (d *Decompressor) acceptCO(ctx *Context, result decodeResult) (Header, error) {
	ctx.active = result.record
	ctx.commit()
	rohcmetrics.CRCOutcome.WithLabelValues("ok").Inc()

	if ctx.probation != probationNone {
		// Both packets that advance the probation are withheld; the
		// first packet decoded after it has ended is delivered.
		ctx.advanceProbation()
		return Header{}, rohc.ErrCrcError
	}

	r := ctx.last
	return Header{
		Version: ctx.static.version, Protocol: ctx.static.protocol,
		Src: ctx.static.src, Dst: ctx.static.dst, FlowLabel: ctx.static.flowLabel,
		DSCPECN: r.dscpECN, TTL: r.ttl, DF: r.df,
		IPIDBehavior: r.ipIDBehavior, IPID: r.ipID, MSN: r.msn,
	}, nil
}

// tryDecode reconstructs the MSN and, when present, the sequential
// IP-ID offset from a CO format's LSB fields against reference, then
// recomputes the CRC the same way package comp's builders did and
// compares it to what was received (spec §4.1, §4.3).
func tryDecode(ctx *Context, p parsedCO, reference uint32) (decodeResult, bool) {
	msn, err := wlsb.Decode(p.msnLSB, p.msnK, wlsb.PForMSN(p.msnK, 0), reference, 16)
	if err != nil {
		return decodeResult{}, false
	}

	rec := ctx.last
	rec.msn = uint16(msn)

	switch p.ptype {
	case PT1SeqID, PT2SeqID:
		off, err := wlsb.Decode(p.ipIDLSB, p.ipIDK, wlsb.PForIPIDOffset(p.ipIDK), ctx.lastIPIDOffset, 16)
		if err != nil {
			return decodeResult{}, false
		}
		rec.ipID = ctx.last.ipID + uint16(off)
	case PTCOCommon:
		if p.hasNewBehavior {
			rec.ipIDBehavior = rohc.IPIDBehavior(p.newBehaviorByte)
		}
		rest := p.rest
		switch {
		case rec.ipIDBehavior == rohc.IPIDRandom:
			if len(rest) < 2 {
				return decodeResult{}, false
			}
			rec.ipID = uint16(rest[0])<<8 | uint16(rest[1])
			rest = rest[2:]
		case rec.ipIDBehavior == rohc.IPIDZero:
			rec.ipID = 0
		case rec.ipIDBehavior.IsSequential():
			if len(rest) < 2 {
				return decodeResult{}, false
			}
			d := int16(uint16(rest[0])<<8 | uint16(rest[1]))
			rec.ipID = ctx.last.ipID + uint16(d)
			rest = rest[2:]
		}
		if p.flags&0x04 != 0 && len(rest) >= 2 {
			// outer_ip_flag: TOS+TTL for a non-innermost header. The
			// RFC 5225 IP-only profile as implemented here carries a
			// single (innermost) IP header, so there is no outer
			// header to apply these bytes to; they are parsed only to
			// keep the byte stream aligned. See DESIGN.md.
			rest = rest[2:]
		}
		_ = rest
	}

	input := irregularCRCInputFor(rec)
	var gotCRC uint8
	switch p.crcWidth {
	case 3:
		gotCRC = crc.CRC3(input)
	case 7:
		gotCRC = crc.CRC7(input)
	case 8:
		gotCRC = crc.CRC8(input)
	}
	if gotCRC != p.crcValue {
		return decodeResult{}, false
	}
	return decodeResult{record: rec}, true
}

// irregularCRCInputFor mirrors package comp's irregularCRCInput so the
// decompressor recomputes the same bytes the compressor's CRC covered.
func irregularCRCInputFor(r headerRecord) []byte {
	return []byte{r.dscpECN, r.ttl, byte(r.msn >> 8), byte(r.msn), byte(r.ipID >> 8), byte(r.ipID)}
}

