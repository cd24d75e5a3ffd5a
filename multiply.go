package lusol

import (
	"fmt"
)

// mulDims returns the input and output vector lengths for a multiply mode.
func (lu *LU) mulDims(mode MulMode) (in, out int, ok bool) {
	m, n := lu.Rows(), lu.Cols()
	switch mode {
	case MulL, MulLT:
		return m, m, true
	case MulU, MulA:
		return n, m, true
	case MulUT, MulAT:
		return m, n, true
	}
	return 0, 0, false
}

// Multiply applies the operator selected by mode to x and returns a
// freshly allocated result vector.
func (lu *LU) Multiply(mode MulMode, x []float64) ([]float64, error) {
	if !lu.valid {
		return nil, ErrNotFactored
	}
	in, outLen, ok := lu.mulDims(mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown multiply mode %d", ErrInvalidIndex, int(mode))
	}
	if len(x) != in {
		return nil, fmt.Errorf("%w: vector has length %d, want %d", ErrInvalidIndex, len(x), in)
	}
	out := make([]float64, outLen)
	lu.multiplyInto(mode, x, out)
	return out, nil
}

// MultiplyInPlace applies the operator into the input buffer. Modes that
// map between row space and column space need a square matrix here.
func (lu *LU) MultiplyInPlace(mode MulMode, x []float64) error {
	if !lu.valid {
		return ErrNotFactored
	}
	in, out, ok := lu.mulDims(mode)
	if !ok {
		return fmt.Errorf("%w: unknown multiply mode %d", ErrInvalidIndex, int(mode))
	}
	if in != out {
		return fmt.Errorf("%w: in-place multiply needs a square matrix, have %dx%d",
			ErrInvalidIndex, lu.Rows(), lu.Cols())
	}
	if len(x) != in {
		return fmt.Errorf("%w: vector has length %d, want %d", ErrInvalidIndex, len(x), in)
	}
	lu.multiplyInto(mode, x, x)
	return nil
}

// multiplyInto runs the selected product through the internal scratch
// buffers. x and out may alias; x is copied out before out is written.
func (lu *LU) multiplyInto(mode MulMode, x, out []float64) {
	switch mode {
	case MulL:
		lu.scatterRows(x, lu.colWork)
		lu.mulEtas(lu.colWork)
		lu.gatherRows(lu.colWork, out)
	case MulLT:
		lu.scatterRows(x, lu.colWork)
		lu.mulEtasT(lu.colWork)
		lu.gatherRows(lu.colWork, out)
	case MulU:
		lu.scatterCols(x, lu.rowWork)
		lu.mulUInternal(lu.rowWork, lu.colWork)
		lu.gatherRows(lu.colWork, out)
	case MulUT:
		lu.scatterRows(x, lu.colWork)
		lu.mulUTInternal(lu.colWork, lu.rowWork)
		lu.gatherCols(lu.rowWork, out)
	case MulA:
		lu.scatterCols(x, lu.rowWork)
		lu.mulUInternal(lu.rowWork, lu.colWork)
		lu.mulEtas(lu.colWork)
		lu.gatherRows(lu.colWork, out)
	case MulAT:
		lu.scatterRows(x, lu.colWork)
		lu.mulEtasT(lu.colWork)
		lu.mulUTInternal(lu.colWork, lu.rowWork)
		lu.gatherCols(lu.rowWork, out)
	}
}

// mulUInternal computes v = U x at internal coordinates. x lives in
// column space, v in row space.
func (lu *LU) mulUInternal(x, v []float64) {
	u := lu.u
	for i := range v {
		v[i] = 0
	}
	for idx := range u.entries {
		e := &u.entries[idx]
		if e.row == nilLink {
			continue
		}
		v[e.row] += e.val * x[e.col]
	}
}

// mulUTInternal computes v = U**T x. x lives in row space, v in column
// space.
func (lu *LU) mulUTInternal(x, v []float64) {
	u := lu.u
	for j := range v {
		v[j] = 0
	}
	for idx := range u.entries {
		e := &u.entries[idx]
		if e.row == nilLink {
			continue
		}
		v[e.col] += e.val * x[e.row]
	}
}
