package ipid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rohc/rohc"
	"github.com/go-rohc/rohc/ipid"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		last     uint16
		new      uint16
		expected rohc.IPIDBehavior
	}{
		{"zero", 0, 0, rohc.IPIDZero},
		{"sequential-small-step", 0x1000, 0x1001, rohc.IPIDSequential},
		{"sequential-at-tolerance", 0x1000, 0x1000 + ipid.DefaultTolerance, rohc.IPIDSequential},
		{"beyond-tolerance-is-random", 0x1000, 0x1000 + ipid.DefaultTolerance + 1, rohc.IPIDRandom},
		{"negative-delta-is-random", 0x1000, 0x0FFF, rohc.IPIDRandom},
		{"unrelated-is-random", 0x1000, 0x7F3A, rohc.IPIDRandom},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ipid.Classify(c.last, c.new, ipid.DefaultTolerance)
			assert.Equal(t, c.expected, got)
		})
	}
}

func TestForOuterHeaderForcesRandom(t *testing.T) {
	assert.Equal(t, rohc.IPIDRandom, ipid.ForOuterHeader(rohc.IPIDSequential))
	assert.Equal(t, rohc.IPIDRandom, ipid.ForOuterHeader(rohc.IPIDSequentialSwapped))
	assert.Equal(t, rohc.IPIDZero, ipid.ForOuterHeader(rohc.IPIDZero))
	assert.Equal(t, rohc.IPIDRandom, ipid.ForOuterHeader(rohc.IPIDRandom))
}

func TestDeltaSequential(t *testing.T) {
	d, ok := ipid.Delta(rohc.IPIDSequential, 0x1000, 0x1001)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
}
