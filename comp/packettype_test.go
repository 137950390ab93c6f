package comp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rohc/rohc"
)

func TestSelectPacketTypeIRWhileInIRState(t *testing.T) {
	got := selectPacketType(rohc.IR, 4, 4, true, true, changeFlags{})
	assert.Equal(t, PTIR, got)
}

func TestSelectPacketTypeAnyChangeForcesCOCommon(t *testing.T) {
	got := selectPacketType(rohc.SO, 4, 4, true, true, changeFlags{tosTTLDFChanged: true})
	assert.Equal(t, PTCOCommon, got)
}

func TestSelectPacketTypePT0CRC3RequiresSOAndInferableIPID(t *testing.T) {
	got := selectPacketType(rohc.SO, 4, 0, true, false, changeFlags{ipIDInferable: true})
	assert.Equal(t, PT0CRC3, got)

	got = selectPacketType(rohc.FO, 4, 0, true, false, changeFlags{ipIDInferable: true})
	assert.NotEqual(t, PT0CRC3, got, "PT-0-CRC3 is SO-only")
}

func TestSelectPacketTypePT0CRC7FallsBackFromWiderMSN(t *testing.T) {
	got := selectPacketType(rohc.FO, 6, 0, true, false, changeFlags{ipIDInferable: true})
	assert.Equal(t, PT0CRC7, got)
}

func TestSelectPacketTypePT1SeqIDRequiresSOAndSequentialIPID(t *testing.T) {
	got := selectPacketType(rohc.SO, 6, 4, true, true, changeFlags{ipIDSequential: true})
	assert.Equal(t, PT1SeqID, got)
}

func TestSelectPacketTypePT2SeqIDAvailableOutsideSO(t *testing.T) {
	got := selectPacketType(rohc.FO, 8, 6, true, true, changeFlags{ipIDSequential: true})
	assert.Equal(t, PT2SeqID, got)
}

func TestSelectPacketTypeFallsBackToCOCommon(t *testing.T) {
	got := selectPacketType(rohc.FO, 16, 16, true, true, changeFlags{})
	assert.Equal(t, PTCOCommon, got)
}
