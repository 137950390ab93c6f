package rohc

import "fmt"

// CID names a flow on the ROHC channel. See spec §6, "Context Identifier".
type CID uint16

// MaxCIDSmall and MaxCIDLarge bound the CID space for the two wire
// encodings the caller selects via Config.CIDType.
const (
	MaxCIDSmall CID = 15
	MaxCIDLarge CID = 16383
)

// CIDType selects the small (4-bit, Add-CID octet) or large (SDVL)
// CID wire encoding. The encoding itself is a caller/dispatcher concern
// (spec §1, "CID encoding helpers" are out of scope for the core); the
// core only needs to know which ceiling applies.
type CIDType uint8

const (
	// SmallCID restricts max_cid to [0, 15].
	SmallCID CIDType = iota
	// LargeCID allows max_cid up to 16383.
	LargeCID
)

func (sf CIDType) String() string {
	if sf == LargeCID {
		return "large-cid"
	}
	return "small-cid"
}

// Profile identifies the negotiated header-compression scheme. Profile
// negotiation itself is out of scope (spec §1); the core only needs the
// profile identifiers to pick a discriminator tree and to stamp the IR
// packet's Profile field.
type Profile uint16

const (
	// ProfileUncompressed is ROHC profile 0x0000, the uncompressed
	// (passthrough) profile.
	ProfileUncompressed Profile = 0x0000
	// ProfileIPOnly2 is ROHC profile 0x0104, RFC 5225 ROHCv2 IP-only.
	ProfileIPOnly2 Profile = 0x0104
	// ProfileIP is ROHC profile 0x0002, RFC 3095 IP-only (generic family).
	ProfileIP Profile = 0x0002
	// ProfileUDP is ROHC profile 0x0001, RFC 3095 UDP.
	ProfileUDP Profile = 0x0001
	// ProfileRTP is ROHC profile 0x0101, RFC 3095 RTP.
	ProfileRTP Profile = 0x0101
	// ProfileTCP is ROHC profile 0x0006, RFC 6846 TCP.
	ProfileTCP Profile = 0x0006
)

func (sf Profile) String() string {
	switch sf {
	case ProfileUncompressed:
		return "Uncompressed"
	case ProfileIPOnly2:
		return "ROHCv2-IP(0x0104)"
	case ProfileIP:
		return "IP(0x0002)"
	case ProfileUDP:
		return "UDP(0x0001)"
	case ProfileRTP:
		return "RTP(0x0101)"
	case ProfileTCP:
		return "TCP(0x0006)"
	default:
		return fmt.Sprintf("Profile(0x%04x)", uint16(sf))
	}
}

// Mode is the ROHC operating mode (spec §4.3). Only Unidirectional is
// fully implemented by this core; feedback-driven mode transitions are a
// Non-goal (spec §1, §9 Open Questions).
type Mode uint8

const (
	// UMode is Unidirectional mode: no feedback channel, periodic
	// downward refresh drives re-synchronisation.
	UMode Mode = iota
	// OMode is Optimistic mode: feedback is advisory.
	OMode
	// RMode is Reliable mode: feedback gates state transitions.
	RMode
)

func (sf Mode) String() string {
	switch sf {
	case UMode:
		return "U-mode"
	case OMode:
		return "O-mode"
	case RMode:
		return "R-mode"
	default:
		return "mode?"
	}
}

// State is a compressor state (spec §4.3): IR, FO or SO, in order of
// decreasing bytes-on-wire and increasing dependence on the
// decompressor's context.
type State uint8

const (
	// IR is Initialization/Refresh: full static+dynamic chain every packet.
	IR State = iota
	// FO is First-Order: CO packets whose CRC is at least 7 bits.
	FO
	// SO is Second-Order: the smallest CO format available.
	SO
)

func (sf State) String() string {
	switch sf {
	case IR:
		return "IR"
	case FO:
		return "FO"
	case SO:
		return "SO"
	default:
		return "state?"
	}
}

// ReorderRatio is the reordering-ratio configuration parameter (spec §6).
// It is stored in each compressor context and sent in the IR dynamic
// chain; it does not change the W-LSB interpretation-interval shift "p"
// for the MSN field, which comp and decomp compute with wlsb.PForMSN and
// a reordering offset of 0 whatever the configured ratio.
type ReorderRatio uint8

const (
	// ReorderNone assumes packets never arrive out of order.
	ReorderNone ReorderRatio = iota
	// ReorderQuarter tolerates limited reordering.
	ReorderQuarter
	// ReorderHalf tolerates moderate reordering.
	ReorderHalf
	// ReorderThreeQuarters tolerates heavy reordering.
	ReorderThreeQuarters
)

func (sf ReorderRatio) String() string {
	switch sf {
	case ReorderNone:
		return "none"
	case ReorderQuarter:
		return "1/4"
	case ReorderHalf:
		return "1/2"
	case ReorderThreeQuarters:
		return "3/4"
	default:
		return "reorder?"
	}
}

// FeatureFlags is a bitmask of optional library behaviors (spec §6).
type FeatureFlags uint32

const (
	// NoIPChecksums skips IPv4 header-checksum verification on profile
	// admission (spec §6).
	NoIPChecksums FeatureFlags = 1 << iota
)

// Has reports whether flag is set.
func (sf FeatureFlags) Has(flag FeatureFlags) bool {
	return sf&flag == flag
}

// IPIDBehavior classifies how an IP header's Identification field moves
// from one packet to the next (spec §4.2).
type IPIDBehavior uint8

const (
	// IPIDSequential: new - last is a small positive delta, network byte order.
	IPIDSequential IPIDBehavior = iota
	// IPIDSequentialSwapped: sequential after byte-swapping both values.
	IPIDSequentialSwapped
	// IPIDZero: both last and new IP-ID are zero.
	IPIDZero
	// IPIDRandom: none of the above; transmitted in the clear.
	IPIDRandom
)

func (sf IPIDBehavior) String() string {
	switch sf {
	case IPIDSequential:
		return "SEQ"
	case IPIDSequentialSwapped:
		return "SEQ_SWAP"
	case IPIDZero:
		return "ZERO"
	case IPIDRandom:
		return "RAND"
	default:
		return "behavior?"
	}
}

// IsSequential reports whether the behavior is one of the two sequential
// variants (spec §4.4, "IP-ID inferable from MSN").
func (sf IPIDBehavior) IsSequential() bool {
	return sf == IPIDSequential || sf == IPIDSequentialSwapped
}
