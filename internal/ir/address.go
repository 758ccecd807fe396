package ir

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the number of bytes in an Address.
const AddressLength = 20

// AddressWords is the number of integers an Address occupies on the wire.
const AddressWords = 4

const bytesPerWord = AddressLength / AddressWords

// Address identifies a party: a holder, a counter-party, or an observable arbiter.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It is never a valid party.
var ZeroAddress Address

// ParseAddress parses 40 hex digits, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("address %q: want %d hex digits, got %d", s, AddressLength*2, len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("address %q: %w", s, err)
	}
	return a, nil
}

// MustParseAddress is ParseAddress for literals in tests and fixtures.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Words packs the address into four non-negative integers of five
// big-endian bytes each.
func (a Address) Words() [AddressWords]int64 {
	var w [AddressWords]int64
	for i := 0; i < AddressWords; i++ {
		var v int64
		for _, b := range a[i*bytesPerWord : (i+1)*bytesPerWord] {
			v = v<<8 | int64(b)
		}
		w[i] = v
	}
	return w
}

// AddressFromWords is the inverse of Address.Words. Every word must fit in
// five bytes.
func AddressFromWords(w []int64) (Address, error) {
	var a Address
	if len(w) != AddressWords {
		return a, fmt.Errorf("address: want %d words, got %d", AddressWords, len(w))
	}
	const limit = int64(1) << (8 * bytesPerWord)
	for i, v := range w {
		if v < 0 || v >= limit {
			return a, fmt.Errorf("address word %d out of range: %d", i, v)
		}
		for j := bytesPerWord - 1; j >= 0; j-- {
			a[i*bytesPerWord+j] = byte(v)
			v >>= 8
		}
	}
	return a, nil
}
