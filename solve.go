package lusol

import (
	"fmt"
	"math"
)

// solveDims returns the required right-hand side length and the solution
// length for a solve mode.
func (lu *LU) solveDims(mode SolveMode) (in, out int, ok bool) {
	m, n := lu.Rows(), lu.Cols()
	switch mode {
	case SolveL, SolveLT:
		return m, m, true
	case SolveU, SolveA:
		return m, n, true
	case SolveUT, SolveAT:
		return n, m, true
	}
	return 0, 0, false
}

// Solve solves the system selected by mode against the dense right-hand
// side b and returns a freshly allocated solution vector. For rank
// deficient factors the components of unpivoted columns come back zero.
func (lu *LU) Solve(mode SolveMode, b []float64) ([]float64, error) {
	if !lu.valid {
		return nil, ErrNotFactored
	}
	in, outLen, ok := lu.solveDims(mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown solve mode %d", ErrInvalidIndex, int(mode))
	}
	if len(b) != in {
		return nil, fmt.Errorf("%w: right-hand side has length %d, want %d",
			ErrInvalidIndex, len(b), in)
	}
	out := make([]float64, outLen)
	if err := lu.solveInto(mode, b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SolveInPlace solves into the right-hand side buffer. Modes that map
// between row space and column space need a square matrix here.
func (lu *LU) SolveInPlace(mode SolveMode, x []float64) error {
	if !lu.valid {
		return ErrNotFactored
	}
	in, out, ok := lu.solveDims(mode)
	if !ok {
		return fmt.Errorf("%w: unknown solve mode %d", ErrInvalidIndex, int(mode))
	}
	if in != out {
		return fmt.Errorf("%w: in-place solve needs a square matrix, have %dx%d",
			ErrInvalidIndex, lu.Rows(), lu.Cols())
	}
	if len(x) != in {
		return fmt.Errorf("%w: vector has length %d, want %d", ErrInvalidIndex, len(x), in)
	}
	return lu.solveInto(mode, x, x)
}

// SolveSparse scatters a sparse right-hand side (parallel index/value
// lists, duplicates accumulate) and solves as Solve does.
func (lu *LU) SolveSparse(mode SolveMode, idx []int, vals []float64) ([]float64, error) {
	if !lu.valid {
		return nil, ErrNotFactored
	}
	if len(idx) != len(vals) {
		return nil, fmt.Errorf("%w: %d indices against %d values",
			ErrInvalidIndex, len(idx), len(vals))
	}
	in, outLen, ok := lu.solveDims(mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown solve mode %d", ErrInvalidIndex, int(mode))
	}
	b := make([]float64, in)
	for k, i := range idx {
		if i < 0 || i >= in {
			return nil, fmt.Errorf("%w: right-hand side index %d outside [0,%d)",
				ErrInvalidIndex, i, in)
		}
		b[i] += vals[k]
	}
	out := make([]float64, outLen)
	if err := lu.solveInto(mode, b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// solveInto runs the selected solve through the internal scratch buffers.
// b and out may alias; b is copied out before out is written.
func (lu *LU) solveInto(mode SolveMode, b, out []float64) error {
	switch mode {
	case SolveL:
		lu.scatterRows(b, lu.colWork)
		lu.forwardEtas(lu.colWork)
		lu.gatherRows(lu.colWork, out)
	case SolveLT:
		lu.scatterRows(b, lu.colWork)
		lu.reverseEtasT(lu.colWork)
		lu.gatherRows(lu.colWork, out)
	case SolveU:
		lu.scatterRows(b, lu.colWork)
		if err := lu.solveUInternal(lu.colWork, lu.rowWork); err != nil {
			return err
		}
		lu.gatherCols(lu.rowWork, out)
	case SolveUT:
		lu.scatterCols(b, lu.rowWork)
		if err := lu.solveUTInternal(lu.rowWork, lu.colWork); err != nil {
			return err
		}
		lu.gatherRows(lu.colWork, out)
	case SolveA:
		lu.scatterRows(b, lu.colWork)
		lu.forwardEtas(lu.colWork)
		if err := lu.solveUInternal(lu.colWork, lu.rowWork); err != nil {
			return err
		}
		lu.gatherCols(lu.rowWork, out)
	case SolveAT:
		lu.scatterCols(b, lu.rowWork)
		if err := lu.solveUTInternal(lu.rowWork, lu.colWork); err != nil {
			return err
		}
		lu.reverseEtasT(lu.colWork)
		lu.gatherRows(lu.colWork, out)
	}
	return nil
}

// solveUInternal back-substitutes U x = v at internal coordinates. v lives
// in row space, x in column space; unpivoted columns stay zero.
func (lu *LU) solveUInternal(v, x []float64) error {
	u := lu.u
	for j := range x {
		x[j] = 0
	}
	for s := lu.rank - 1; s >= 0; s-- {
		r, c := lu.p[s], lu.q[s]
		sum := v[r]
		diag := 0.0
		for it := u.firstInRow[r]; it != nilLink; it = u.entries[it].nextRow {
			e := u.entries[it]
			if e.col == c {
				diag = e.val
				continue
			}
			sum -= e.val * x[e.col]
		}
		if math.Abs(diag) <= lu.opts.Small {
			return fmt.Errorf("%w: vanishing diagonal at pivot position %d",
				ErrNumericalInstability, s)
		}
		x[c] = sum / diag
	}
	return nil
}

// solveUTInternal forward-substitutes U**T x = v. v lives in column
// space, x in row space.
func (lu *LU) solveUTInternal(v, x []float64) error {
	u := lu.u
	for i := range x {
		x[i] = 0
	}
	for s := 0; s < lu.rank; s++ {
		r, c := lu.p[s], lu.q[s]
		sum := v[c]
		diag := 0.0
		for it := u.firstInCol[c]; it != nilLink; it = u.entries[it].nextCol {
			e := u.entries[it]
			if e.row == r {
				diag = e.val
				continue
			}
			sum -= e.val * x[e.row]
		}
		if math.Abs(diag) <= lu.opts.Small {
			return fmt.Errorf("%w: vanishing diagonal at pivot position %d",
				ErrNumericalInstability, s)
		}
		x[r] = sum / diag
	}
	return nil
}
