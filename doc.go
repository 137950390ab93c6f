// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package rohc implements the per-flow state shared by the RFC 5225
// (ROHCv2 IP-only) compressor and the RFC 3095 (ROHC generic, with the
// RFC 6846 TCP profile) decompressor: context identifiers, operating
// modes and states, the five error kinds of the core, and library
// configuration.
//
// The compression and decompression pipelines themselves live in the
// comp and decomp subpackages; the bit-level primitives they share live
// in wlsb, ipid and tcpopt.
package rohc
