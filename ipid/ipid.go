// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package ipid classifies how an IPv4 header's Identification field
// moves from one packet to the next (spec §4.2).
package ipid

import "github.com/go-rohc/rohc"

// DefaultTolerance is the default delta ceiling for the SEQ/SEQ_SWAP
// classification (spec §4.2).
const DefaultTolerance = 19

func swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

// Classify compares the last IP-ID and the new IP-ID (both host-order
// values taken directly off the wire, i.e. still in network byte order
// semantics — see swap16) against tolerance and returns the behavior
// (spec §4.2):
//
//   - SEQ when new-last is in [1, tolerance] in network byte order;
//   - SEQ_SWAP when the same holds after byte-swapping both values;
//   - ZERO when both are zero;
//   - RAND otherwise.
func Classify(lastIPID, newIPID uint16, tolerance int) rohc.IPIDBehavior {
	if lastIPID == 0 && newIPID == 0 {
		return rohc.IPIDZero
	}

	delta := int(newIPID) - int(lastIPID)
	if delta >= 1 && delta <= tolerance {
		return rohc.IPIDSequential
	}

	sLast, sNew := swap16(lastIPID), swap16(newIPID)
	deltaSwap := int(sNew) - int(sLast)
	if deltaSwap >= 1 && deltaSwap <= tolerance {
		return rohc.IPIDSequentialSwapped
	}

	return rohc.IPIDRandom
}

// ClassifyFirst returns the optimistic classification for the first
// packet of a flow (spec §4.2: "The first packet of a flow is
// optimistically SEQ").
func ClassifyFirst() rohc.IPIDBehavior {
	return rohc.IPIDSequential
}

// ForOuterHeader forces a RAND classification when behavior would
// otherwise be sequential, since only the innermost IP-ID is ever
// transmitted in compressed form (spec §4.2: "Outer (non-innermost) IP
// headers may not be classified as sequential").
func ForOuterHeader(behavior rohc.IPIDBehavior) rohc.IPIDBehavior {
	if behavior.IsSequential() {
		return rohc.IPIDRandom
	}
	return behavior
}

// Delta returns the signed, byte-swap-aware delta used to test
// "new_ip_id = last_ip_id + 1" for PT-0/PT-1/PT-2 eligibility (spec
// §4.4). For SEQ it is new-last; for SEQ_SWAP it is computed on the
// byte-swapped values; for ZERO/RAND it is undefined (ok=false).
func Delta(behavior rohc.IPIDBehavior, lastIPID, newIPID uint16) (delta int, ok bool) {
	switch behavior {
	case rohc.IPIDSequential:
		return int(newIPID) - int(lastIPID), true
	case rohc.IPIDSequentialSwapped:
		return int(swap16(newIPID)) - int(swap16(lastIPID)), true
	default:
		return 0, false
	}
}
