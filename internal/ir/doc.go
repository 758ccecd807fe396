// Package ir provides the leaf types shared by every other smartfin package.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - settlement amounts and timestamps are int64
//   - Addresses travel on the integer wire as four 5-byte words
//   - Canonical JSON (RFC 8785 subset) is the only encoding used for digests
package ir
