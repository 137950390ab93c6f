// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package decomp implements the generic RFC 3095/6846 decompressor
// family: packet-type discrimination, the last/active context-update
// discipline with CRC repair-on-failure probation, and — for contexts
// whose IR packet carries the TCP profile — an option-list codec,
// scaled sequence/ack numbers, and an extension-3 re-parse dispatcher
// (spec §4.6-§4.10, §6; see tcp.go).
package decomp

import (
	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/rohclog"
	"github.com/go-rohc/rohc/rohcmetrics"
	"github.com/go-rohc/rohc/tcpopt"
	"github.com/go-rohc/rohc/wlsb"
)

// headerRecord is one committed or tentative snapshot of the fields a
// decompressed header carries (spec §4.7): everything the next
// packet's CO formats might reference.
type headerRecord struct {
	dscpECN      uint8
	ttl          uint8
	df           bool
	ipIDBehavior rohc.IPIDBehavior
	ipID         uint16
	msn          uint16

	// TCP profile fields (spec §4.10); zero/unused on an IP-only
	// context. seqStride/ackStride of zero means the scaled formats are
	// not in play for that field, per the SUPPLEMENTED FEATURES' "stride
	// of zero forbids scaled formats" guard.
	seqNum, ackNum        uint32
	window                uint16
	tcpFlags              uint8
	seqStride, seqResidue uint32
	ackStride, ackResidue uint32
	options               []tcpopt.Option
}

// staticRecord is the part of spec §3's static chain that never
// changes once an IR packet has established it: IP version, protocol,
// addresses and, for the TCP profile, the two port numbers.
type staticRecord struct {
	version   uint8
	protocol  uint8
	src, dst  []byte
	flowLabel uint32 // IPv6 only (spec §4.5)

	srcPort, dstPort uint16
}

// probationState names where a repaired context sits in the 3-packet
// probation the repair-on-failure routine starts (spec §4.7, step 2).
type probationState uint8

const (
	probationNone probationState = iota
	probationTentative1
	probationTentative2
)

// Context is one flow's decompressor-side state: the negotiated
// CID/profile, the last (committed) and active (tentative) header
// records, the W-LSB windows used to bound CO field reconstruction,
// the TCP option index table, and the repair probation state (spec §3,
// §4.7).
type Context struct {
	CID     rohc.CID
	Profile rohc.Profile

	hasSeenIR bool
	committed bool
	static    staticRecord
	last      headerRecord
	active    headerRecord

	// lastIPIDOffset is the most recently committed innermost
	// IP-ID/MSN delta (spec §4.2), used as the W-LSB reference when
	// decoding the next PT-1-SEQ-ID/PT-2-SEQ-ID offset field.
	lastIPIDOffset uint32

	msnWindow     *wlsb.Window
	ipIDOffWindow *wlsb.Window

	options *tcpopt.Table

	probation    probationState
	probationMSN uint16

	logger rohclog.Log
}

// NewContext creates a fresh decompressor context for cid, with no
// committed header yet — the first packet received on it must be IR
// (spec §4.6/§6 "create").
func NewContext(cid rohc.CID, profile rohc.Profile, cfg *rohc.Config) *Context {
	if cfg == nil {
		d := rohc.DefaultConfig()
		cfg = &d
	}
	ctx := &Context{
		CID:           cid,
		Profile:       profile,
		msnWindow:     wlsb.New(cfg.WLSBWindowWidth, 16),
		ipIDOffWindow: wlsb.New(cfg.WLSBWindowWidth, 16),
	}
	if profile == rohc.ProfileTCP {
		ctx.options = tcpopt.NewTable()
	}
	return ctx
}

// MSN returns the last committed Master Sequence Number (spec §6
// "get_msn").
func (c *Context) MSN() uint16 { return c.last.msn }

// commit copies active into last once its CRC has verified, and feeds
// the W-LSB windows the same way the compressor does so both sides'
// interpretation intervals stay identical (spec §4.7: "only on success
// is active copied into last").
func (c *Context) commit() {
	previousIPID := c.last.ipID
	if c.committed {
		rohcmetrics.MSNGap.Observe(float64(uint16(c.active.msn - c.last.msn)))
	}
	c.committed = true
	c.last = c.active
	c.msnWindow.Add(uint32(c.active.msn), uint32(c.active.msn))
	if delta, ok := deltaFor(c.active.ipIDBehavior, previousIPID, c.active.ipID); ok {
		c.lastIPIDOffset = uint32(int32(delta))
		c.ipIDOffWindow.Add(c.lastIPIDOffset, uint32(c.active.msn))
	}
}

// rollback discards active, restoring it to the last committed record
// (spec §4.7, step 3: "sync-on-failure").
func (c *Context) rollback() {
	c.active = c.last
}

func deltaFor(behavior rohc.IPIDBehavior, last, new uint16) (int, bool) {
	if !behavior.IsSequential() {
		return 0, false
	}
	return int(new) - int(last), true
}
