package comp_test

import (
	"net"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/comp"
)

func ipv4(id uint16, ttl uint8) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		TTL:      ttl,
		Id:       id,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
}

func TestEncodeFirstPacketIsIR(t *testing.T) {
	c, err := comp.New(rohc.DefaultConfig())
	require.NoError(t, err)

	out, ptype, err := c.Encode(1, 0, ipv4(100, 64), []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, comp.PTIR, ptype)
	assert.NotEmpty(t, out)
}

func TestEncodeTransitionsOutOfIRAfterRefreshCount(t *testing.T) {
	c, err := comp.New(rohc.DefaultConfig())
	require.NoError(t, err)

	var lastType comp.PacketType
	for i := 0; i < 10; i++ {
		_, ptype, err := c.Encode(1, uint64(i), ipv4(uint16(100+i), 64), nil)
		require.NoError(t, err)
		lastType = ptype
	}
	assert.NotEqual(t, comp.PTIR, lastType, "context should have left IR after repeated stable packets")
}

func TestEncodeFieldChangeForcesCOCommon(t *testing.T) {
	c, err := comp.New(rohc.DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := c.Encode(1, uint64(i), ipv4(uint16(100+i), 64), nil)
		require.NoError(t, err)
	}

	_, ptype, err := c.Encode(1, 5, ipv4(200, 32), nil)
	require.NoError(t, err)
	assert.Equal(t, comp.PTCOCommon, ptype, "a TTL change must force CO-COMMON regardless of state")
}

func TestCheckContextRejectsDifferentFlow(t *testing.T) {
	c, err := comp.New(rohc.DefaultConfig())
	require.NoError(t, err)

	_, _, err = c.Encode(1, 0, ipv4(100, 64), nil)
	require.NoError(t, err)

	other := ipv4(100, 64)
	other.DstIP = net.IPv4(10, 0, 0, 99)
	assert.False(t, c.CheckContext(1, other))
	assert.True(t, c.CheckContext(1, ipv4(101, 64)))
}
