package lusol

import "errors"

// Error taxonomy. Every failure surfaced by this package wraps one of
// these sentinels; callers branch with errors.Is.
var (
	// ErrNumericalInstability means an update would have produced a pivot
	// or multiplier outside the update tolerance. The prior factors are
	// left untouched; the caller should refactorize from current data.
	ErrNumericalInstability = errors.New("lusol: numerical instability")

	// ErrCapacityExceeded means the storage arena cannot grow within the
	// configured MaxEntries budget, even after compaction. No partial
	// mutation is committed.
	ErrCapacityExceeded = errors.New("lusol: storage capacity exceeded")

	// ErrInvalidIndex means a caller-supplied row/column index or vector
	// length is outside the current valid range.
	ErrInvalidIndex = errors.New("lusol: invalid index")

	// ErrNotFactored means the factors were never built or were
	// invalidated by a failed factorization.
	ErrNotFactored = errors.New("lusol: factors not valid")
)
