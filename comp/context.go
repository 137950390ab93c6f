// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package comp implements the RFC 5225 ROHCv2 IP-only profile
// compressor: flow context, state machine, packet-type selection and
// chain emission (spec §3, §4.3, §4.4, §4.5, §6).
package comp

import (
	"github.com/google/gopacket/layers"

	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/ipid"
	"github.com/go-rohc/rohc/rohclog"
	"github.com/go-rohc/rohc/rohcmetrics"
	"github.com/go-rohc/rohc/wlsb"
)

// staticFields are the per-flow values the static chain carries and
// that never change for the lifetime of a context (spec §3 "Static
// chain"): once transmitted in an IR packet they're assumed fixed.
type staticFields struct {
	version  uint8
	protocol layers.IPProtocol
	srcAddr  [16]byte
	dstAddr  [16]byte
	addrLen  int // 4 or 16
}

// dynamicFields are the per-flow values the dynamic chain carries:
// they change slowly and are only retransmitted in IR/IR-DYN packets,
// tracked between those so the compressor can tell when one changed
// (spec §3 "Dynamic chain").
type dynamicFields struct {
	dscpECN     uint8
	df          bool
	ttlHopLimit uint8
	ipIDBehavior rohc.IPIDBehavior
	reorderRatio rohc.ReorderRatio
}

// Context holds everything the compressor needs to remember about one
// flow between calls to Encode: the negotiated CID/profile, the
// current operating state, the static/dynamic field snapshots, and the
// W-LSB windows that drive packet-type selection (spec §3).
type Context struct {
	CID     rohc.CID
	Profile rohc.Profile
	Mode    rohc.Mode

	state rohc.State
	// irCount counts IR packets sent since entering IR, and
	// coStreak counts CO packets sent since the last transition, driving
	// the promotion/demotion thresholds of the state machine (spec
	// §4.3).
	irCount  int
	coStreak int

	msn uint16

	static  staticFields
	dynamic dynamicFields

	lastIPID uint16

	msnWindow     *wlsb.Window
	ipIDOffWindow *wlsb.Window

	// lastRefreshTS is the timestamp of the last periodic down-transition
	// (spec §4.3, §5); refreshInterval is a copy of cfg.RefreshInterval
	// taken at creation time so the context doesn't need to carry the
	// whole Config around.
	lastRefreshTS   uint64
	refreshInterval uint64

	logger rohclog.Log
}

// NewContext creates a fresh compressor context for CID in the IR
// state, matching rohc_comp_new's behavior of starting every profile
// context in full-header mode (spec §4.3: "A new context always starts
// in IR").
func NewContext(cid rohc.CID, profile rohc.Profile, cfg *rohc.Config) *Context {
	if cfg == nil {
		d := rohc.DefaultConfig()
		cfg = &d
	}
	return &Context{
		CID:             cid,
		Profile:         profile,
		Mode:            rohc.UMode,
		state:           rohc.IR,
		msnWindow:       wlsb.New(cfg.WLSBWindowWidth, 16),
		ipIDOffWindow:   wlsb.New(cfg.WLSBWindowWidth, 16),
		dynamic:         dynamicFields{reorderRatio: cfg.ReorderRatio},
		refreshInterval: cfg.RefreshInterval,
	}
}

// State returns the context's current operating state.
func (c *Context) State() rohc.State { return c.state }

// MSN returns the current Master Sequence Number (spec §3).
func (c *Context) MSN() uint16 { return c.msn }

// advance bumps the MSN and records it in the MSN W-LSB window,
// feeding the innermost IP-ID offset window alongside it (spec §4.1,
// §4.2: both windows are keyed by the same MSN reference).
func (c *Context) advance(newIPID uint16) {
	c.msn++
	c.msnWindow.Add(uint32(c.msn), uint32(c.msn))

	behavior := c.dynamic.ipIDBehavior
	if delta, ok := ipid.Delta(behavior, c.lastIPID, newIPID); ok {
		c.ipIDOffWindow.Add(uint32(int32(delta)), uint32(c.msn))
	}
	c.lastIPID = newIPID
}

// maybeRefresh applies the periodic Unidirectional-mode down-transition
// (spec §4.3: "a periodic timer can down-transition SO→FO→IR"): once
// refreshInterval has elapsed since the last down-transition, the
// context steps back exactly one state, never skipping FO on the way
// from SO to IR. A zero refreshInterval (the default) disables this
// entirely, matching a context that never needs a caller-driven clock.
func (c *Context) maybeRefresh(ts uint64) {
	if c.refreshInterval == 0 {
		return
	}
	if ts-c.lastRefreshTS < c.refreshInterval {
		return
	}
	c.lastRefreshTS = ts
	switch c.state {
	case rohc.SO:
		c.transition(rohc.FO)
	case rohc.FO:
		c.transition(rohc.IR)
	}
}

// transition moves the state machine to next, emitting a metric and
// resetting the streak counters the promotion/demotion rules key off
// of (spec §4.3).
func (c *Context) transition(next rohc.State) {
	if next == c.state {
		return
	}
	rohcmetrics.StateTransitions.WithLabelValues(c.state.String(), next.String()).Inc()
	c.state = next
	c.irCount = 0
	c.coStreak = 0
}
