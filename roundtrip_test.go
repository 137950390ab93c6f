// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package rohc_test

import (
	"net"
	"testing"

	"github.com/go-test/deep"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/comp"
	"github.com/go-rohc/rohc/decomp"
)

func ipv4(id uint16, ttl uint8) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		TTL:      ttl,
		Id:       id,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(192, 168, 1, 1),
		DstIP:    net.IPv4(192, 168, 1, 2),
	}
}

func ipv6(flowLabel uint32, hopLimit uint8) *layers.IPv6 {
	return &layers.IPv6{
		Version:    6,
		FlowLabel:  flowLabel,
		HopLimit:   hopLimit,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
}

// wire reconstructs the fields a decompressed Header should share with
// the compressor's own view of the packet it just sent, for the
// round-trip invariant of spec §8.
type wire struct {
	Protocol  uint8
	Src, Dst  []byte
	FlowLabel uint32
	DSCPECN   uint8
	TTL       uint8
	DF        bool
	IPID      uint16
	MSN       uint16
}

func encoded(h decomp.Header) wire {
	return wire{
		Protocol: h.Protocol, Src: h.Src, Dst: h.Dst, FlowLabel: h.FlowLabel,
		DSCPECN: h.DSCPECN, TTL: h.TTL, DF: h.DF,
		IPID: h.IPID, MSN: h.MSN,
	}
}

func original(l *layers.IPv4, msn uint16) wire {
	return wire{
		Protocol: uint8(l.Protocol), Src: l.SrcIP.To4(), Dst: l.DstIP.To4(),
		DSCPECN: byte(l.TOS), TTL: l.TTL, DF: l.Flags&layers.IPv4DontFragment != 0,
		IPID: l.Id, MSN: msn,
	}
}

func originalV6(l *layers.IPv6, msn uint16) wire {
	return wire{
		Protocol: uint8(l.NextHeader), Src: l.SrcIP.To16(), Dst: l.DstIP.To16(),
		FlowLabel: l.FlowLabel, DSCPECN: l.TrafficClass, TTL: l.HopLimit,
		MSN: msn,
	}
}

// TestRoundTripSteadyIPv4Sequential exercises spec §8's first end-to-end
// scenario: 50 IPv4/TCP packets with consecutive IP-IDs graduate the
// compressor out of IR, and the decompressor reconstructs every header
// byte-equal to the original (ignoring fields deliberately recomputed
// elsewhere, e.g. the IPv4 checksum, which this profile never carries).
func TestRoundTripSteadyIPv4Sequential(t *testing.T) {
	cfg := rohc.DefaultConfig()
	c, err := comp.New(cfg)
	require.NoError(t, err)
	d, err := decomp.New(cfg)
	require.NoError(t, err)

	const cid = rohc.CID(1)
	var msn uint16
	for i := 0; i < 50; i++ {
		l := ipv4(uint16(0x1000+i), 64)
		out, _, err := c.Encode(cid, uint64(i), l, nil)
		require.NoError(t, err)
		msn++

		got, err := d.Decode(cid, out)
		require.NoError(t, err, "packet %d must decode cleanly", i)

		if diff := deep.Equal(original(l, msn), encoded(got)); diff != nil {
			t.Fatalf("packet %d: reconstructed header diverged: %v", i, diff)
		}
	}
}

// TestRoundTripIPIDBecomesRandomForcesCOCommon covers spec §8 scenario 2:
// after a run of sequential packets, one random IP-ID forces CO-COMMON,
// and the decompressor still reconstructs the header exactly.
func TestRoundTripIPIDBecomesRandomForcesCOCommon(t *testing.T) {
	cfg := rohc.DefaultConfig()
	c, err := comp.New(cfg)
	require.NoError(t, err)
	d, err := decomp.New(cfg)
	require.NoError(t, err)

	const cid = rohc.CID(1)
	var msn uint16
	var last *layers.IPv4
	for i := 0; i < 20; i++ {
		last = ipv4(uint16(0x1000+i), 64)
		out, _, err := c.Encode(cid, uint64(i), last, nil)
		require.NoError(t, err)
		msn++
		_, err = d.Decode(cid, out)
		require.NoError(t, err)
	}

	rnd := ipv4(0x7f3a, 64)
	out, ptype, err := c.Encode(cid, uint64(20), rnd, nil)
	require.NoError(t, err)
	msn++
	require.Equal(t, comp.PTCOCommon, ptype, "a behavior change to RAND must force CO-COMMON")

	got, err := d.Decode(cid, out)
	require.NoError(t, err)
	if diff := deep.Equal(original(rnd, msn), encoded(got)); diff != nil {
		t.Fatalf("reconstructed header diverged after RAND transition: %v", diff)
	}
}

// TestRoundTripIPv6FlowLabel covers spec §8 scenario 3: an IPv6 flow
// whose flow label is non-zero selects the static chain's longer,
// flow-label-carrying variant (spec §4.5), and a second flow whose
// label is zero takes the short variant — both round-trip exactly.
func TestRoundTripIPv6FlowLabel(t *testing.T) {
	cfg := rohc.DefaultConfig()
	c, err := comp.New(cfg)
	require.NoError(t, err)
	d, err := decomp.New(cfg)
	require.NoError(t, err)

	const cid = rohc.CID(1)
	var msn uint16
	for i := 0; i < 5; i++ {
		l := ipv6(0x2abcd, 64)
		out, _, err := c.Encode(cid, uint64(i), l, nil)
		require.NoError(t, err)
		msn++

		got, err := d.Decode(cid, out)
		require.NoError(t, err, "packet %d must decode cleanly", i)
		if diff := deep.Equal(originalV6(l, msn), encoded(got)); diff != nil {
			t.Fatalf("packet %d: reconstructed IPv6 header diverged: %v", i, diff)
		}
	}
}

// TestRoundTripIPv6ZeroFlowLabel exercises the static chain's short
// variant, taken when the flow label is zero (spec §4.5).
func TestRoundTripIPv6ZeroFlowLabel(t *testing.T) {
	cfg := rohc.DefaultConfig()
	c, err := comp.New(cfg)
	require.NoError(t, err)
	d, err := decomp.New(cfg)
	require.NoError(t, err)

	const cid = rohc.CID(1)
	l := ipv6(0, 64)
	out, _, err := c.Encode(cid, 0, l, nil)
	require.NoError(t, err)

	got, err := d.Decode(cid, out)
	require.NoError(t, err)
	if diff := deep.Equal(originalV6(l, 1), encoded(got)); diff != nil {
		t.Fatalf("reconstructed IPv6 header diverged: %v", diff)
	}
}

// TestPeriodicRefreshDownTransitionsSOtoFO exercises spec §4.3's
// periodic Unidirectional-mode refresh timer: once a context has
// reached SO, an elapsed RefreshInterval steps it back one state to FO
// (not all the way to IR), without breaking the decompressor's
// reconstruction.
func TestPeriodicRefreshDownTransitionsSOtoFO(t *testing.T) {
	cfg := rohc.DefaultConfig()
	cfg.RefreshInterval = 10
	c, err := comp.New(cfg)
	require.NoError(t, err)
	d, err := decomp.New(cfg)
	require.NoError(t, err)

	const cid = rohc.CID(1)
	var ts uint64
	for i := 0; i < 10; i++ {
		l := ipv4(uint16(0x2000+i), 64)
		out, _, err := c.Encode(cid, ts, l, nil)
		require.NoError(t, err)
		_, err = d.Decode(cid, out)
		require.NoError(t, err)
		ts++
	}

	// ts has now reached the refresh interval: the next Encode call must
	// down-transition before selecting a packet type.
	l := ipv4(0x200a, 64)
	out, ptype, err := c.Encode(cid, ts, l, nil)
	require.NoError(t, err)
	require.NotEqual(t, comp.PTIR, ptype, "a single refresh tick steps SO down to FO, not all the way to IR")
	_, err = d.Decode(cid, out)
	require.NoError(t, err)
}
