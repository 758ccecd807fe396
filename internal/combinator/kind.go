package combinator

import "fmt"

// Kind is the wire tag of a node. Values are stable.
type Kind int64

const (
	KindZero     Kind = 0
	KindOne      Kind = 1
	KindAnd      Kind = 2
	KindOr       Kind = 3
	KindTruncate Kind = 4
	KindScale    Kind = 5
	KindGive     Kind = 6
	KindThen     Kind = 7
	KindGet      Kind = 8
	KindAnytime  Kind = 9
)

var kindNames = [...]string{"zero", "one", "and", "or", "truncate", "scale", "give", "then", "get", "anytime"}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int64(k))
}

// Valid reports whether k is one of the ten known kinds.
func (k Kind) Valid() bool {
	return k >= KindZero && k <= KindAnytime
}

// Children returns the number of sub-contracts a node of this kind owns.
func (k Kind) Children() int {
	switch k {
	case KindZero, KindOne:
		return 0
	case KindAnd, KindOr, KindThen:
		return 2
	default:
		return 1
	}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}
