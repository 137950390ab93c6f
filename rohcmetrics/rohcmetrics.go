// Package rohcmetrics defines the prometheus metrics the compressor
// and decompressor contexts update as they run: state transitions,
// packet-type selection, CRC outcomes, and repair-probation results.
package rohcmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StateTransitions counts compressor state-machine moves (spec
	// §4.3: IR, FO, SO), labelled by the from/to state names.
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rohc_compressor_state_transitions_total",
			Help: "compressor operating-state transitions, by from/to state",
		},
		[]string{"from", "to"})

	// PacketTypeSelected counts which wire packet type the compressor
	// chose (spec §4.4: PT-0-CRC3, PT-0-CRC7, PT-1-SEQ-ID, PT-2-SEQ-ID,
	// CO-COMMON, IR).
	PacketTypeSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rohc_compressor_packet_type_total",
			Help: "packet type chosen by the compressor for an outgoing header",
		},
		[]string{"type"})

	// CRCOutcome counts decompressor CRC check results per packet.
	CRCOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rohc_decompressor_crc_outcome_total",
			Help: "decompressor CRC check results",
		},
		[]string{"outcome"}) // ok, mismatch, repaired

	// RepairProbation counts repair-on-failure probation state
	// transitions (spec §4.7: Stable, Tentative(1), Tentative(2)).
	RepairProbation = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rohc_decompressor_repair_probation_total",
			Help: "repair-on-failure probation outcomes",
		},
		[]string{"outcome"}) // entered, confirmed, reverted

	// ReparseDepth tracks how many extension-3 re-parse attempts a
	// decode took before it produced a result (spec §4.8).
	ReparseDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rohc_decompressor_reparse_depth",
			Help:    "number of extension-3 re-parse attempts per decode",
			Buckets: []float64{0, 1, 2},
		})

	// MSNGap tracks the observed gap between consecutive MSN values
	// the decompressor accepts, a sanity signal for window soundness
	// (spec §8, "monotonic MSN").
	MSNGap = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rohc_decompressor_msn_gap",
			Help:    "gap between consecutive accepted MSN values",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		})
)
