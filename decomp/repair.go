// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decomp

import "github.com/go-rohc/rohc/rohcmetrics"

// repairHypothesis names the two ways the repair-on-failure routine
// can try to resync a failed CRC against a different SN reference
// (spec §4.7, step 1).
type repairHypothesis uint8

const (
	hypothesisNone repairHypothesis = iota
	hypothesisSNWraparound
	hypothesisIncorrectSNUpdate
)

// repairCandidate is one reference MSN the repair routine re-decodes
// against, paired with the hypothesis it represents.
type repairCandidate struct {
	hypothesis repairHypothesis
	referenceMSN uint32
}

// repairCandidates returns the references to retry a failed CO decode
// against (spec §4.7, step 1): the SN-LSB-wraparound hypothesis treats
// the decoded MSN as having wrapped past 2^16, and the incorrect-SN-
// update hypothesis resyncs against the *previous* committed MSN
// instead of the current one.
func repairCandidates(lastCommittedMSN uint32) []repairCandidate {
	return []repairCandidate{
		{hypothesis: hypothesisSNWraparound, referenceMSN: lastCommittedMSN + 65536},
		{hypothesis: hypothesisIncorrectSNUpdate, referenceMSN: lastCommittedMSN - 1},
	}
}

// beginProbation starts the probation a successful repair enters (spec
// §4.7, step 2): the two correctly-decoded packets that follow the
// repair are both reported as CRC errors, the second of them confirms
// the repair, and the packet after that is delivered normally.
func (c *Context) beginProbation(repairedMSN uint16) {
	c.probation = probationTentative1
	c.probationMSN = repairedMSN
	rohcmetrics.RepairProbation.WithLabelValues("entered").Inc()
}

// advanceProbation is called once per subsequently *successfully*
// decoded packet while on probation. It returns true once the
// probation completes and the repair should be treated as permanently
// committed.
func (c *Context) advanceProbation() (confirmed bool) {
	switch c.probation {
	case probationTentative1:
		c.probation = probationTentative2
		return false
	case probationTentative2:
		c.probation = probationNone
		rohcmetrics.RepairProbation.WithLabelValues("confirmed").Inc()
		return true
	default:
		return false
	}
}

// revertProbation is called when a CRC failure recurs while a repair
// is still on probation: the tentative repair is abandoned.
func (c *Context) revertProbation() {
	if c.probation != probationNone {
		rohcmetrics.RepairProbation.WithLabelValues("reverted").Inc()
	}
	c.probation = probationNone
}
