// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package rohc

import "fmt"

// defines the configuration range accepted by Config.Valid, see spec §6.
const (
	// MaxCIDCeiling is the upper bound any CIDType may configure.
	MaxCIDCeiling = 16383

	// WindowWidthMin and WindowWidthMax bound wlsb_window_width.
	WindowWidthMin = 1
	WindowWidthMax = 32
)

// Config defines the library configuration (spec §6). The default is
// applied for each unspecified (zero) value by Valid.
type Config struct {
	// CIDType selects small-CID (Add-CID octet, max 15) or large-CID
	// (SDVL, max 16383) wire encoding.
	CIDType CIDType

	// MaxCID is the largest CID this compressor/decompressor instance
	// will admit, inclusive. Range [0, 16383], further bounded by
	// CIDType.
	MaxCID CID

	// WLSBWindowWidth is the ring size of every W-LSB window the core
	// keeps (MSN, innermost IP-ID/MSN offset). Typically 4.
	WLSBWindowWidth int

	// ReorderRatio is the configured reordering ratio. It is stored per
	// context and sent in the IR dynamic chain; the MSN W-LSB
	// interpretation interval is computed with a reordering offset of 0
	// whatever its value.
	ReorderRatio ReorderRatio

	// FeatureFlags is a bitmask of optional behaviors; see NoIPChecksums.
	FeatureFlags FeatureFlags

	// RefreshInterval is the caller-defined-unit duration (matching
	// whatever clock the timestamps passed to Encode use) after which a
	// context in SO or FO periodically down-transitions to refresh the
	// decompressor's state in Unidirectional mode (spec §4.3, §5
	// "periodic-refresh timers"). Zero disables periodic refresh; the
	// context then only ever reaches SO once and stays there.
	RefreshInterval uint64
}

// Valid applies the default for each unspecified value and rejects
// out-of-range configuration, mirroring the teacher's pattern of
// validate-and-default-in-place.
func (sf *Config) Valid() error {
	if sf == nil {
		return Malformedf("nil Config")
	}

	if sf.MaxCID == 0 {
		if sf.CIDType == SmallCID {
			sf.MaxCID = MaxCIDSmall
		} else {
			sf.MaxCID = CID(MaxCIDCeiling)
		}
	} else if sf.MaxCID > MaxCIDCeiling {
		return Malformedf("MaxCID %d not in [0, %d]", sf.MaxCID, MaxCIDCeiling)
	}
	if sf.CIDType == SmallCID && sf.MaxCID > MaxCIDSmall {
		return Malformedf("MaxCID %d exceeds small-cid ceiling %d", sf.MaxCID, MaxCIDSmall)
	}

	if sf.WLSBWindowWidth == 0 {
		sf.WLSBWindowWidth = 4
	} else if sf.WLSBWindowWidth < WindowWidthMin || sf.WLSBWindowWidth > WindowWidthMax {
		return Malformedf("WLSBWindowWidth %d not in [%d, %d]", sf.WLSBWindowWidth, WindowWidthMin, WindowWidthMax)
	}

	return nil
}

// DefaultConfig returns the library's recommended configuration: small
// CID, a window width of 4, and no tolerance for reordering.
func DefaultConfig() Config {
	return Config{
		CIDType:         SmallCID,
		MaxCID:          MaxCIDSmall,
		WLSBWindowWidth: 4,
		ReorderRatio:    ReorderNone,
	}
}

func (sf Config) String() string {
	return fmt.Sprintf("Config{cid=%s, max_cid=%d, wlsb_width=%d, reorder=%s}",
		sf.CIDType, sf.MaxCID, sf.WLSBWindowWidth, sf.ReorderRatio)
}
