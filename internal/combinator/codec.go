package combinator

// Serialize encodes the tree in the persisted format:
// [tag, acquisition-time|-1, fully-updated, params..., children...].
func (n *Node) Serialize() []int64 {
	return n.appendTo(nil)
}

func (n *Node) appendTo(dst []int64) []int64 {
	d := n.Details.ints()
	dst = append(dst, int64(n.Kind), d[0], d[1])
	switch n.Kind {
	case KindOr:
		dst = append(dst, int64(n.OrIndex))
	case KindTruncate:
		dst = append(dst, n.Deadline)
	case KindScale:
		if n.Observed {
			dst = append(dst, 0, int64(n.ObsIndex))
		} else {
			dst = append(dst, 1, n.Factor)
		}
	case KindAnytime:
		dst = append(dst, int64(n.Slot))
	}
	for _, c := range n.Children {
		dst = c.appendTo(dst)
	}
	return dst
}

// paramCount is the number of kind-specific integers in the persisted format.
func paramCount(k Kind) int {
	switch k {
	case KindOr, KindTruncate, KindAnytime:
		return 1
	case KindScale:
		return 2
	default:
		return 0
	}
}

// Deserialize rebuilds a tree from its persisted encoding. The whole
// sequence must be consumed.
func Deserialize(seq []int64) (*Node, error) {
	if len(seq) == 0 {
		return nil, Errorf(CodeMalformed, "empty serialized contract")
	}
	n, next, err := deserializeAt(seq, 0)
	if err != nil {
		return nil, err
	}
	if next != len(seq) {
		return nil, Errorf(CodeMalformed, "%d trailing integers after serialized contract", len(seq)-next)
	}
	return n, nil
}

func deserializeAt(seq []int64, i int) (*Node, int, error) {
	if i >= len(seq) {
		return nil, i, Errorf(CodeMalformed, "serialized contract ends at offset %d", i)
	}
	kind := Kind(seq[i])
	if !kind.Valid() {
		return nil, i, Errorf(CodeMalformed, "unrecognised combinator tag %d at offset %d", seq[i], i)
	}
	need := 3 + paramCount(kind)
	if i+need > len(seq) {
		return nil, i, Errorf(CodeMalformed, "ill-formed serialized %s combinator at offset %d", kind, i)
	}

	details, err := detailsFromInts(seq[i+1], seq[i+2])
	if err != nil {
		return nil, i, err
	}
	n := &Node{Kind: kind, Details: details}
	p := seq[i+3 : i+need]

	switch kind {
	case KindOr:
		if n.OrIndex, err = index("or-choice", p[0]); err != nil {
			return nil, i, err
		}
	case KindTruncate:
		if p[0] < 0 {
			return nil, i, Errorf(CodeMalformed, "negative truncate deadline %d", p[0])
		}
		n.Deadline = p[0]
	case KindScale:
		switch p[0] {
		case 0:
			n.Observed = true
			if n.ObsIndex, err = index("observable", p[1]); err != nil {
				return nil, i, err
			}
		case 1:
			n.Factor = p[1]
		default:
			return nil, i, Errorf(CodeMalformed, "scale mode must be 0 or 1, got %d", p[0])
		}
	case KindAnytime:
		if n.Slot, err = index("anytime", p[0]); err != nil {
			return nil, i, err
		}
	}

	next := i + need
	for c := 0; c < kind.Children(); c++ {
		var child *Node
		child, next, err = deserializeAt(seq, next)
		if err != nil {
			return nil, next, err
		}
		n.Children = append(n.Children, child)
	}
	return n, next, nil
}

const maxIndex = int64(1) << 31

func index(table string, v int64) (int, error) {
	if v < 0 || v >= maxIndex {
		return 0, Errorf(CodeMalformed, "%s index %d out of range", table, v)
	}
	return int(v), nil
}
