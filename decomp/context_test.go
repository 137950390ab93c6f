// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rohc/rohc"
)

func TestCommitTracksSequentialIPIDOffsetAgainstPreviousCommit(t *testing.T) {
	cfg := rohc.DefaultConfig()
	ctx := NewContext(1, rohc.ProfileIPOnly2, &cfg)

	ctx.active = headerRecord{ipIDBehavior: rohc.IPIDSequential, ipID: 100, msn: 1}
	ctx.commit()
	assert.Equal(t, uint16(1), ctx.MSN())

	ctx.active = headerRecord{ipIDBehavior: rohc.IPIDSequential, ipID: 103, msn: 2}
	ctx.commit()
	assert.Equal(t, uint32(3), ctx.lastIPIDOffset, "offset must be against the previously committed IP-ID, not itself")
}

func TestRollbackDiscardsActiveWithoutTouchingLast(t *testing.T) {
	cfg := rohc.DefaultConfig()
	ctx := NewContext(1, rohc.ProfileIPOnly2, &cfg)
	ctx.active = headerRecord{msn: 1}
	ctx.commit()

	ctx.active = headerRecord{msn: 99}
	ctx.rollback()

	assert.Equal(t, ctx.last, ctx.active)
	assert.Equal(t, uint16(1), ctx.MSN())
}

func TestDeltaForIsOnlyDefinedForSequentialBehavior(t *testing.T) {
	_, ok := deltaFor(rohc.IPIDRandom, 10, 20)
	assert.False(t, ok)

	d, ok := deltaFor(rohc.IPIDSequential, 10, 13)
	assert.True(t, ok)
	assert.Equal(t, 3, d)
}

func TestProbationAdvancesAfterTwoConfirmationsThenCommits(t *testing.T) {
	cfg := rohc.DefaultConfig()
	ctx := NewContext(1, rohc.ProfileIPOnly2, &cfg)

	ctx.beginProbation(42)
	assert.False(t, ctx.advanceProbation(), "first confirmation must not commit yet")
	assert.True(t, ctx.advanceProbation(), "second confirmation must commit the repair")
	assert.Equal(t, probationNone, ctx.probation)
}

func TestRevertProbationResetsToNone(t *testing.T) {
	cfg := rohc.DefaultConfig()
	ctx := NewContext(1, rohc.ProfileIPOnly2, &cfg)
	ctx.beginProbation(42)
	ctx.revertProbation()
	assert.Equal(t, probationNone, ctx.probation)
}
