package storage

import (
	"encoding/binary"
	"fmt"
)

// EncodeInts encodes a sequence as concatenated zig-zag varints.
func EncodeInts(seq []int64) []byte {
	buf := make([]byte, 0, len(seq)*2)
	for _, v := range seq {
		buf = binary.AppendVarint(buf, v)
	}
	return buf
}

// DecodeInts is the inverse of EncodeInts.
func DecodeInts(b []byte) ([]int64, error) {
	out := make([]int64, 0, len(b))
	for len(b) > 0 {
		v, n := binary.Varint(b)
		if n <= 0 {
			return nil, fmt.Errorf("%w: bad varint after %d integers", ErrCorrupt, len(out))
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}
