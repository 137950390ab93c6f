// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package comp

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/crc"
	"github.com/go-rohc/rohc/ipid"
	"github.com/go-rohc/rohc/rohcmetrics"
	"github.com/go-rohc/rohc/wlsb"
)

// maxIRCount/maxFOCount are the state-machine promotion thresholds
// (spec §4.3): IR keeps refreshing until ir_count reaches this many
// packets, FO likewise for fo_count, both then advancing to SO.
const (
	maxIRCount = 3
	maxFOCount = 3
)

// Compressor owns one profile-wide set of contexts, keyed by CID, the
// way rohc_comp_new/rohc_comp_decompress pair with one rohc_comp per
// direction of traffic (spec §6).
type Compressor struct {
	cfg      rohc.Config
	contexts map[rohc.CID]*Context
}

// New creates a compressor bound to cfg (spec §6 "create"). An invalid
// cfg is rejected rather than silently defaulted, since Valid already
// applies every sensible default.
func New(cfg rohc.Config) (*Compressor, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return &Compressor{cfg: cfg, contexts: make(map[rohc.CID]*Context)}, nil
}

// CheckProfile reports whether ipVersion is one this compressor's
// profile (RFC 5225 IP-only) can carry: IPv4 or IPv6. The transport
// protocol is not checked, since this profile compresses the IP header
// chain only and passes the transport payload through untouched (spec §6
// "check_profile"; RFC 5225 IP-only profile scope per spec §1 overview).
func (c *Compressor) CheckProfile(ipVersion uint8) bool {
	return ipVersion == 4 || ipVersion == 6
}

// CheckContext reports whether an existing context for cid still
// matches the static fields of ip — a changed source/destination
// address or protocol means the flow has changed and the caller must
// request a new context instead of reusing this one (spec §6
// "check_context").
func (c *Compressor) CheckContext(cid rohc.CID, ip gopacket.NetworkLayer) bool {
	ctx, ok := c.contexts[cid]
	if !ok {
		return false
	}
	h := headerFromLayer(ip, true)
	return ctx.static.protocol == h.protocol &&
		ctx.static.addrLen == len(h.src) &&
		bytesEqual(ctx.static.srcAddr[:len(h.src)], h.src) &&
		bytesEqual(ctx.static.dstAddr[:len(h.dst)], h.dst)
}

func bytesEqual(a, b []byte) bool {
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

// context returns the context for cid, creating one in IR state on
// first use, mirroring rohc_comp_create's lazy per-CID context
// allocation.
func (c *Compressor) context(cid rohc.CID) *Context {
	ctx, ok := c.contexts[cid]
	if !ok {
		ctx = NewContext(cid, rohc.ProfileIPOnly2, &c.cfg)
		c.contexts[cid] = ctx
	}
	return ctx
}

// Destroy releases the context for cid (spec §6 "destroy").
func (c *Compressor) Destroy(cid rohc.CID) {
	delete(c.contexts, cid)
}

// headerFromLayer extracts the fields comp's chain emitters need from
// a gopacket IPv4 or IPv6 layer.
func headerFromLayer(l gopacket.NetworkLayer, innermost bool) header {
	switch v := l.(type) {
	case *layers.IPv4:
		return header{
			version:   4,
			protocol:  v.Protocol,
			src:       append([]byte(nil), v.SrcIP.To4()...),
			dst:       append([]byte(nil), v.DstIP.To4()...),
			dscpECN:   byte(v.TOS),
			ttl:       v.TTL,
			df:        v.Flags&layers.IPv4DontFragment != 0,
			ipID:      v.Id,
			innermost: innermost,
		}
	case *layers.IPv6:
		return header{
			version:   6,
			protocol:  v.NextHeader,
			src:       append([]byte(nil), v.SrcIP.To16()...),
			dst:       append([]byte(nil), v.DstIP.To16()...),
			dscpECN:   v.TrafficClass,
			ttl:       v.HopLimit,
			flowLabel: v.FlowLabel,
			innermost: innermost,
		}
	default:
		return header{}
	}
}

// Encode compresses one IP header (plus whatever payload bytes follow
// it, passed through unchanged) for cid, returning the wire bytes and
// which packet type was chosen (spec §6 "encode"). ts is a
// caller-defined-unit clock reading (e.g. a monotonic packet-arrival
// counter or wall-clock seconds) used only to drive the periodic
// Unidirectional-mode refresh timer (spec §4.3, §5, Config.RefreshInterval);
// callers that never set RefreshInterval may pass 0 throughout.
func (c *Compressor) Encode(cid rohc.CID, ts uint64, ip gopacket.NetworkLayer, payload []byte) ([]byte, PacketType, error) {
	ctx := c.context(cid)
	ctx.maybeRefresh(ts)
	h := headerFromLayer(ip, true)

	if ctx.static.addrLen == 0 {
		// first packet ever seen on this context: commit the static
		// fields and the optimistic IP-ID classification (spec §4.2
		// "the first packet of a flow is optimistically SEQ").
		ctx.static = staticFields{
			version:  h.version,
			protocol: h.protocol,
			addrLen:  len(h.src),
		}
		copy(ctx.static.srcAddr[:], h.src)
		copy(ctx.static.dstAddr[:], h.dst)
		ctx.dynamic.ipIDBehavior = ipid.ClassifyFirst()
		ctx.dynamic.dscpECN = h.dscpECN
		ctx.dynamic.ttlHopLimit = h.ttl
		ctx.dynamic.df = h.df
	}

	behavior := ctx.dynamic.ipIDBehavior
	if ctx.msn > 0 {
		behavior = ipid.Classify(ctx.lastIPID, h.ipID, ipid.DefaultTolerance)
	}
	behaviorChanged := behavior != ctx.dynamic.ipIDBehavior
	tosTTLDFChanged := h.dscpECN != ctx.dynamic.dscpECN || h.ttl != ctx.dynamic.ttlHopLimit || h.df != ctx.dynamic.df

	delta, deltaOK := ipid.Delta(behavior, ctx.lastIPID, h.ipID)
	ipIDInferable := h.version == 4 && behavior.IsSequential() && deltaOK && delta == 1
	ipIDSequential := behavior.IsSequential()

	flags := changeFlags{
		tosTTLDFChanged: tosTTLDFChanged,
		behaviorChanged: behaviorChanged,
		ipIDInferable:   ipIDInferable,
		ipIDSequential:  ipIDSequential,
	}

	msnBits, msnBitsOK := ctx.msnWindow.MinK(uint32(ctx.msn+1), func(k uint) int { return wlsb.PForMSN(k, 0) })
	ipidBits, ipidBitsOK := ctx.ipIDOffWindow.MinK(uint32(int32(delta)), wlsb.PForIPIDOffset)

	ptype := selectPacketType(ctx.state, msnBits, ipidBits, msnBitsOK, ipidBitsOK, flags)
	rohcmetrics.PacketTypeSelected.WithLabelValues(ptype.String()).Inc()

	ctx.dynamic.ipIDBehavior = behavior
	ctx.advance(h.ipID)
	ctx.dynamic.dscpECN = h.dscpECN
	ctx.dynamic.ttlHopLimit = h.ttl
	ctx.dynamic.df = h.df

	var out []byte
	switch ptype {
	case PTIR:
		out = writeStaticChain(out, h)
		out = writeDynamicChain(out, h, behavior, ctx.dynamic.reorderRatio, ctx.msn)
		c8 := crc.CRC8(out)
		out = append([]byte{tagIR, byte(ctx.Profile >> 8), byte(ctx.Profile), c8}, out...)
		ctx.irCount++
		if ctx.irCount >= maxIRCount {
			ctx.transition(rohc.SO)
		}
	case PTCOCommon:
		irregular := writeIrregularChain(nil, h, behavior, flags.outerIPFlag, delta)
		out = buildCOCommon(ctx.msn, flags, behavior, irregular, irregularCRCInput(h, ctx.msn))
		ctx.coStreak++
		if ctx.state == rohc.FO && ctx.coStreak >= maxFOCount {
			ctx.transition(rohc.SO)
		}
	case PT0CRC3:
		out = buildPT0CRC3(ctx.msn, irregularCRCInput(h, ctx.msn))
	case PT0CRC7:
		out = buildPT0CRC7(ctx.msn, irregularCRCInput(h, ctx.msn))
	case PT1SeqID:
		out = buildPT1SeqID(ctx.msn, uint16(delta), irregularCRCInput(h, ctx.msn))
	case PT2SeqID:
		out = buildPT2SeqID(ctx.msn, uint16(delta), irregularCRCInput(h, ctx.msn))
	}
	if ptype != PTIR && ptype != PTCOCommon {
		ctx.coStreak++
		if ctx.state == rohc.FO && ctx.coStreak >= maxFOCount {
			ctx.transition(rohc.SO)
		}
	}

	out = append(out, payload...)
	return out, ptype, nil
}

// irregularCRCInput builds the bytes the CO formats' CRC is computed
// over: the fields that must match for the decompressor's rebuilt
// header to be accepted (spec §4.3 "the CRC is computed with the CRC
// field itself set to zero").
func irregularCRCInput(h header, msn uint16) []byte {
	return []byte{h.dscpECN, h.ttl, byte(msn >> 8), byte(msn), byte(h.ipID >> 8), byte(h.ipID)}
}

// Feedback processes an ACK/NACK from the decompressor. RFC 5225
// feedback handling is out of scope (spec Non-goals); this is a no-op
// placeholder kept so callers wired against the six-operation surface
// (spec §6) compile against every profile the same way.
func (c *Compressor) Feedback(cid rohc.CID, data []byte) error {
	return nil
}
