package crc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rohc/rohc/crc"
)

func TestCRC8Deterministic(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	a := crc.CRC8(data)
	b := crc.CRC8(data)
	assert.Equal(t, a, b)
}

func TestCRCChangesWithInput(t *testing.T) {
	a := crc.CRC8([]byte{0x01, 0x02})
	b := crc.CRC8([]byte{0x01, 0x03})
	assert.NotEqual(t, a, b)
}

func TestCRC3And7StayWithinFieldWidth(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff}
	assert.LessOrEqual(t, crc.CRC3(data), uint8(0x07))
	assert.LessOrEqual(t, crc.CRC7(data), uint8(0x7f))
}

func TestZeroedCopyClearsSubByteField(t *testing.T) {
	header := []byte{0xff, 0xff}
	out := crc.ZeroedCopy(header, 1, 3)
	assert.Equal(t, byte(0xff), out[0])
	assert.Equal(t, byte(0xf8), out[1])
	assert.Equal(t, []byte{0xff, 0xff}, header, "input must not be mutated")
}

func TestZeroedCopyClearsFullByteField(t *testing.T) {
	header := []byte{0xaa, 0xff, 0xbb}
	out := crc.ZeroedCopy(header, 1, 8)
	assert.Equal(t, []byte{0xaa, 0x00, 0xbb}, out)
}
