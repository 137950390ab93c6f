// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/crc"
	"github.com/go-rohc/rohc/tcpopt"
)

func tcpIRPacket(t *testing.T, tail tcpIRTail, table *tcpopt.Table) []byte {
	t.Helper()
	staticDyn := []byte{
		0x40, 6, // static: IPv4, innermost, protocol TCP
		192, 168, 1, 1, 192, 168, 1, 2, // addresses
		0, 64, 1, 0, 0, 0, 1, 0, 100, // dscpECN, ttl, df, behavior(SEQ), reorder, msn, ipID
	}
	tcpTail, err := encodeIRTCPTail(tail, table)
	require.NoError(t, err)
	body := append(append([]byte(nil), staticDyn...), tcpTail...)
	c8 := crc.CRC8(body)
	out := append([]byte{tagIR, byte(rohc.ProfileTCP >> 8), byte(rohc.ProfileTCP), c8}, body...)
	return out
}

func TestDecodeIRTCPRoundTrip(t *testing.T) {
	d, err := New(rohc.DefaultConfig())
	require.NoError(t, err)

	tail := tcpIRTail{
		srcPort: 443, dstPort: 51000,
		seqNum: 1000, ackNum: 2000,
		window: 65535, flags: 0x18,
		seqStride: 0, seqResidue: 0, ackStride: 0, ackResidue: 0,
	}
	out := tcpIRPacket(t, tail, tcpopt.NewTable())

	got, err := d.Decode(1, out)
	require.NoError(t, err)
	assert.Equal(t, uint16(443), got.SrcPort)
	assert.Equal(t, uint16(51000), got.DstPort)
	assert.Equal(t, uint32(1000), got.Seq)
	assert.Equal(t, uint32(2000), got.Ack)
	assert.Equal(t, uint16(65535), got.Window)
	assert.Equal(t, uint8(0x18), got.TCPFlags)
}

// TestDecodeTCPSeqCO exercises spec §8 scenario 4: a TCP flow that
// reaches CO with a sequential innermost IP-ID carries only the MSN
// and seq number, inferring the IP-ID the same way the IP-only
// profile's sequential CO formats do.
func TestDecodeTCPSeqCO(t *testing.T) {
	d, err := New(rohc.DefaultConfig())
	require.NoError(t, err)

	tail := tcpIRTail{srcPort: 80, dstPort: 9000, seqNum: 500, ackNum: 10}
	out := tcpIRPacket(t, tail, tcpopt.NewTable())
	_, err = d.Decode(1, out)
	require.NoError(t, err)

	ctx := d.contexts[1]
	rec := ctx.last
	rec.msn = 2
	rec.seqNum = 501
	rec.ipIDBehavior = rohc.IPIDSequential
	rec.ipID = ctx.last.ipID + uint16(int(rec.msn)-int(ctx.last.msn)) // mirrors ipIDDeltaFromMSN
	co := []byte{tagTCPSeq, byte(rec.msn >> 8), byte(rec.msn)}
	co = appendBE32(co, rec.seqNum)
	co = append(co, crc.CRC8(tcpCRCInput(rec)))

	got, err := d.Decode(1, co)
	require.NoError(t, err)
	assert.Equal(t, uint32(501), got.Seq)
	assert.Equal(t, uint16(2), got.MSN)
}

// TestDecodeTCPCommonScaledSeqRejectsZeroStride covers the
// SUPPLEMENTED FEATURES "stride of zero forbids scaled formats" guard:
// a TCP-COMMON packet claiming a scaled seq number is rejected when
// the committed context has no seq stride established.
func TestDecodeTCPCommonScaledSeqRejectsZeroStride(t *testing.T) {
	d, err := New(rohc.DefaultConfig())
	require.NoError(t, err)

	tail := tcpIRTail{srcPort: 80, dstPort: 9000, seqNum: 500, ackNum: 10}
	out := tcpIRPacket(t, tail, tcpopt.NewTable())
	_, err = d.Decode(1, out)
	require.NoError(t, err)

	buf := []byte{tagTCPCommon, tcpFlagSeqScaled, 0, 3, 7} // flags, msn(2), scaled-seq(1)
	buf = appendBE32(buf, 10)                              // ack
	buf = append(buf, 0xff)                                // crc (irrelevant, fails before reaching it)

	_, err = d.Decode(1, buf)
	require.Error(t, err)
}

// TestDecodeTCPRndTriggersExactlyOneReparse covers spec §8 scenario 5:
// the rnd-class format's extension-3 byte disagreeing with the
// context's assumed IP-ID classification forces exactly one re-parse,
// which then succeeds.
func TestDecodeTCPRndTriggersExactlyOneReparse(t *testing.T) {
	d, err := New(rohc.DefaultConfig())
	require.NoError(t, err)

	tail := tcpIRTail{srcPort: 80, dstPort: 9000, seqNum: 500, ackNum: 10}
	out := tcpIRPacket(t, tail, tcpopt.NewTable())
	_, err = d.Decode(1, out)
	require.NoError(t, err)

	ctx := d.contexts[1]
	assert.True(t, ctx.last.ipIDBehavior.IsSequential(), "IR established a sequential context")

	rec := ctx.last
	rec.msn = 2
	rec.seqNum = 600
	rec.ipIDBehavior = rohc.IPIDRandom
	rec.ipID = 0xbeef

	buf := []byte{tagTCPRnd, byte(rec.msn >> 8), byte(rec.msn)}
	buf = appendBE32(buf, rec.seqNum)
	buf = append(buf, byte(rec.ipID>>8), byte(rec.ipID))
	buf = append(buf, 0x01) // ext3: bit0 set means "actually random"
	buf = append(buf, crc.CRC8(tcpCRCInput(rec)))

	got, err := d.Decode(1, buf)
	require.NoError(t, err, "the dispatcher must retry once and succeed under the corrected assumption")
	assert.Equal(t, uint32(600), got.Seq)
	assert.Equal(t, rohc.IPIDRandom, got.IPIDBehavior)
}
