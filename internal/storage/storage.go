package storage

import (
	"fmt"

	"github.com/roach88/smartfin/internal/ir"
)

// Storage is typed access to one namespace.
type Storage struct {
	kv KV
}

// New wraps kv.
func New(kv KV) *Storage {
	return &Storage{kv: kv}
}

// Seq reads a whole sequence.
func (s *Storage) Seq(key string) ([]int64, bool, error) {
	b, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	seq, err := DecodeInts(b)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return seq, true, nil
}

// SetSeq writes a whole sequence.
func (s *Storage) SetSeq(key string, seq []int64) error {
	return s.kv.Put(key, EncodeInts(seq))
}

// Int reads a scalar.
func (s *Storage) Int(key string) (int64, bool, error) {
	seq, ok, err := s.Seq(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(seq) != 1 {
		return 0, false, fmt.Errorf("read %s: %w: want 1 integer, got %d", key, ErrCorrupt, len(seq))
	}
	return seq[0], true, nil
}

// SetInt writes a scalar.
func (s *Storage) SetInt(key string, v int64) error {
	return s.SetSeq(key, []int64{v})
}

// Bool reads a boolean stored as 0/1.
func (s *Storage) Bool(key string) (bool, bool, error) {
	v, ok, err := s.Int(key)
	if err != nil || !ok {
		return false, ok, err
	}
	return v != 0, true, nil
}

// SetBool writes a boolean as 0/1.
func (s *Storage) SetBool(key string, v bool) error {
	if v {
		return s.SetInt(key, 1)
	}
	return s.SetInt(key, 0)
}

// Address reads an address stored as its four wire words.
func (s *Storage) Address(key string) (ir.Address, bool, error) {
	seq, ok, err := s.Seq(key)
	if err != nil || !ok {
		return ir.ZeroAddress, ok, err
	}
	a, err := ir.AddressFromWords(seq)
	if err != nil {
		return ir.ZeroAddress, false, fmt.Errorf("read %s: %w: %v", key, ErrCorrupt, err)
	}
	return a, true, nil
}

// SetAddress writes an address as its four wire words.
func (s *Storage) SetAddress(key string, a ir.Address) error {
	w := a.Words()
	return s.SetSeq(key, w[:])
}

// Snapshot returns every key decoded as an integer sequence.
func (s *Storage) Snapshot() (map[string][]int64, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int64, len(keys))
	for _, k := range keys {
		seq, _, err := s.Seq(k)
		if err != nil {
			return nil, err
		}
		out[k] = seq
	}
	return out, nil
}

// Vec returns the append-only vector stored under key. Each element is an
// integer sequence.
func (s *Storage) Vec(key string) *Vec {
	return &Vec{s: s, key: key}
}

// Vec is a keyed, append-only, bounds-checked sequence of elements.
type Vec struct {
	s   *Storage
	key string
}

func (v *Vec) lenKey() string { return v.key + "/len" }
func (v *Vec) elemKey(i int) string { return fmt.Sprintf("%s/%d", v.key, i) }

// Len returns the number of elements. A vector never written has length 0.
func (v *Vec) Len() (int, error) {
	n, _, err := v.s.Int(v.lenKey())
	return int(n), err
}

// Push appends elem and returns its index.
func (v *Vec) Push(elem []int64) (int, error) {
	n, err := v.Len()
	if err != nil {
		return 0, err
	}
	if err := v.s.SetSeq(v.elemKey(n), elem); err != nil {
		return 0, err
	}
	if err := v.s.SetInt(v.lenKey(), int64(n+1)); err != nil {
		return 0, err
	}
	return n, nil
}

func (v *Vec) check(i int) error {
	n, err := v.Len()
	if err != nil {
		return err
	}
	if i < 0 || i >= n {
		return &BoundsError{Key: v.key, Index: i, Len: n}
	}
	return nil
}

// Get returns element i.
func (v *Vec) Get(i int) ([]int64, error) {
	if err := v.check(i); err != nil {
		return nil, err
	}
	seq, ok, err := v.s.Seq(v.elemKey(i))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s[%d]: %w: missing element", v.key, i, ErrCorrupt)
	}
	return seq, nil
}

// Set replaces element i.
func (v *Vec) Set(i int, elem []int64) error {
	if err := v.check(i); err != nil {
		return err
	}
	return v.s.SetSeq(v.elemKey(i), elem)
}

// BoundsError reports a vector index outside [0, Len).
type BoundsError struct {
	Key   string
	Index int
	Len   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s[%d]: index out of bounds [0, %d)", e.Key, e.Index, e.Len)
}

// Unwrap lets errors.Is match ErrOutOfBounds.
func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }
