// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package comp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rohc/rohc"
)

func TestBuildPT0CRC3PacksMSNAndCRCIntoOneByte(t *testing.T) {
	input := []byte{0, 64, 0, 5, 0x10, 0x00}
	out := buildPT0CRC3(5, input)
	assert.Len(t, out, 1)
	assert.Equal(t, byte(0), out[0]&0x80, "top bit must be clear for PT-0-CRC3")
	assert.Equal(t, byte(5), (out[0]>>3)&0x0f)
}

func TestBuildCOCommonOmitsBehaviorOctetUnlessChanged(t *testing.T) {
	input := []byte{0, 64, 0, 5, 0x10, 0x00}
	out := buildCOCommon(5, changeFlags{}, rohc.IPIDSequential, nil, input)
	// tag, flags, msn-hi, msn-lo, crc: no behavior octet.
	assert.Len(t, out, 5)

	out = buildCOCommon(5, changeFlags{behaviorChanged: true}, rohc.IPIDRandom, nil, input)
	assert.Len(t, out, 6)
	assert.Equal(t, byte(rohc.IPIDRandom), out[2])
}

// cidWorkaround's large-CID splice (spec §8 scenario 6): the CO header's
// first octet sits before the CID bytes, the remainder after.
func TestCidWorkaroundSplicesFirstOctetBeforeCIDBytes(t *testing.T) {
	coHeader := []byte{0xAB, 0x01, 0x02}
	cidBytes := []byte{0x81, 0x02} // two-byte SDVL-style large-CID encoding

	out := cidWorkaround(cidBytes, coHeader)

	assert.Equal(t, []byte{0xAB, 0x81, 0x02, 0x01, 0x02}, out)
}

func TestCidWorkaroundWithNoCIDBytesIsIdentity(t *testing.T) {
	coHeader := []byte{0xAB, 0x01, 0x02}
	out := cidWorkaround(nil, coHeader)
	assert.Equal(t, coHeader, out)
}
