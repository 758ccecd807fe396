package combinator

import "github.com/roach88/smartfin/internal/ir"

// Details is the mutable state every node carries.
//
// INVARIANTS:
//   - AcquisitionTime, once set, never changes
//   - FullyUpdated only moves from false to true
type Details struct {
	AcquisitionTime ir.OptTime
	FullyUpdated    bool
}

// Acquired reports whether the node has been acquired.
func (d Details) Acquired() bool {
	return d.AcquisitionTime.Ok
}

// settling reports whether an update at time t may contribute: the node is
// acquired no later than t and not yet fully updated.
func (d Details) settling(t int64) bool {
	return d.AcquisitionTime.Ok && d.AcquisitionTime.T <= t && !d.FullyUpdated
}

func (d Details) ints() [2]int64 {
	fu := int64(0)
	if d.FullyUpdated {
		fu = 1
	}
	return [2]int64{d.AcquisitionTime.Int(), fu}
}

func detailsFromInts(acq, fu int64) (Details, error) {
	t, err := ir.OptTimeFromInt(acq)
	if err != nil {
		return Details{}, Errorf(CodeMalformed, "acquisition time: %v", err)
	}
	if fu != 0 && fu != 1 {
		return Details{}, Errorf(CodeMalformed, "fully-updated flag must be 0 or 1, got %d", fu)
	}
	return Details{AcquisitionTime: t, FullyUpdated: fu == 1}, nil
}
