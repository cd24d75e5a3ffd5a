package lusol

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Update applies one incremental change to the factored matrix, patching
// L and U in place. The change runs against a working copy and commits
// only on success: a failed update returns an error and leaves the
// factors exactly as they were, still valid for the pre-update matrix.
func Update(lu *LU, op UpdateOp) error { return lu.Update(op) }

// Update applies op as described on the package-level function.
func (lu *LU) Update(op UpdateOp) error {
	if !lu.valid {
		return ErrNotFactored
	}
	w := lu.snapshot()

	var err error
	switch v := op.(type) {
	case ReplaceColumn:
		err = w.replaceColumn(v)
	case ReplaceRow:
		err = w.replaceRow(v)
	case AddColumn:
		err = w.addColumn(v)
	case AddRow:
		err = w.addRow(v)
	case DeleteColumn:
		err = w.deleteColumn(v)
	case DeleteRow:
		err = w.deleteRow(v)
	case Rank1:
		err = w.rank1(v)
	default:
		err = fmt.Errorf("%w: unknown update operation %T", ErrInvalidIndex, op)
	}
	if err != nil {
		lu.opts.Logger.Warn("update rejected",
			zap.String("op", op.updateKind()),
			zap.Error(err))
		return err
	}

	w.ensureScratch()
	if w.growthExceeded() && !w.needsRefactor {
		w.needsRefactor = true
		lu.opts.Logger.Warn("growth limit crossed, refactorization advised",
			zap.String("op", op.updateKind()),
			zap.Float64("growth", w.growth()),
			zap.Float64("limit", w.opts.GrowthLimit))
	}
	*lu = *w
	return nil
}

// replaceColumn swaps column J for a dense vector. The old column leaves
// U, the triangular form is restored by a sweep, and the forward-solved
// new column enters as a spike whose pivot is chosen among the unpivoted
// rows under the update threshold.
func (w *LU) replaceColumn(op ReplaceColumn) error {
	if op.J < 0 || op.J >= w.Cols() {
		return fmt.Errorf("%w: column %d outside [0,%d)", ErrInvalidIndex, op.J, w.Cols())
	}
	if len(op.V) != w.Rows() {
		return fmt.Errorf("%w: column vector has length %d, want %d",
			ErrInvalidIndex, len(op.V), w.Rows())
	}
	col := w.extCol[op.J]
	w.lastVNorm = floats.Norm(op.V, 2)
	w.lastDiag = 0

	t := int(w.qinv[col])
	needPivot := t < w.rank
	w.u.removeCol(col)
	w.qRemoveAt(t)
	if needPivot {
		w.rank--
		if err := w.bgSweep(t, w.rank-1); err != nil {
			return err
		}
	}
	w.qInsertAt(w.rank, col)

	// forward solve against L as it stands after the sweep; the sweep's
	// etas are part of the operator the spike must live under
	y := make([]float64, w.u.rows())
	w.scatterRows(op.V, y)
	w.forwardEtas(y)

	small := w.opts.Small
	rbest := int32(-1)
	ymax := 0.0
	for r := int32(0); int(r) < len(y); r++ {
		if int(w.pinv[r]) < w.rank || w.ghost[r] {
			continue
		}
		if mag := math.Abs(y[r]); mag > small && mag > ymax {
			ymax = mag
			rbest = r
		}
	}
	pivotRow := int32(-1)
	if ymax > w.opts.UTol {
		// prefer keeping the resident row when its value passes the
		// threshold test against the column maximum
		pivotRow = w.p[w.rank]
		if w.ghost[pivotRow] ||
			math.Abs(y[pivotRow])*w.opts.UpdateTol < ymax ||
			math.Abs(y[pivotRow]) <= w.opts.UTol {
			pivotRow = rbest
		}
	}
	if pivotRow < 0 && needPivot {
		return fmt.Errorf("%w: replacement column %d offers no acceptable pivot",
			ErrNumericalInstability, op.J)
	}

	for r := int32(0); int(r) < len(y); r++ {
		if math.Abs(y[r]) <= small {
			continue
		}
		if err := w.u.insert(r, col, y[r], false); err != nil {
			return err
		}
		w.noteMagnitude(y[r])
	}

	if pivotRow >= 0 {
		diag := y[pivotRow]
		if err := w.promotePivot(pivotRow, col); err != nil {
			return err
		}
		w.lastDiag = diag
	}
	return nil
}

func (w *LU) replaceRow(op ReplaceRow) error {
	if op.I < 0 || op.I >= w.Rows() {
		return fmt.Errorf("%w: row %d outside [0,%d)", ErrInvalidIndex, op.I, w.Rows())
	}
	if len(op.V) != w.Cols() {
		return fmt.Errorf("%w: row vector has length %d, want %d",
			ErrInvalidIndex, len(op.V), w.Cols())
	}
	r := w.extRow[op.I]
	wv := w.rowOfA(r)
	for c := range wv {
		wv[c] = -wv[c]
	}
	for j, c := range w.extCol {
		wv[c] += op.V[j]
	}
	uv := make([]float64, w.u.rows())
	uv[r] = 1
	return w.rank1Internal(uv, wv, false)
}

func (w *LU) addColumn(op AddColumn) error {
	if len(op.V) != w.Rows() {
		return fmt.Errorf("%w: column vector has length %d, want %d",
			ErrInvalidIndex, len(op.V), w.Rows())
	}
	col := w.u.addColDim()
	w.qinv = append(w.qinv, -1)

	y := make([]float64, w.u.rows())
	w.scatterRows(op.V, y)
	w.forwardEtas(y)

	rbest := int32(-1)
	ymax := 0.0
	for r := int32(0); int(r) < len(y); r++ {
		if math.Abs(y[r]) <= w.opts.Small {
			continue
		}
		if err := w.u.insert(r, col, y[r], false); err != nil {
			return err
		}
		w.noteMagnitude(y[r])
		if int(w.pinv[r]) >= w.rank && !w.ghost[r] {
			if mag := math.Abs(y[r]); mag > ymax {
				ymax = mag
				rbest = r
			}
		}
	}

	if rbest >= 0 && ymax > w.opts.UTol {
		w.qInsertAt(w.rank, col)
		if err := w.promotePivot(rbest, col); err != nil {
			return err
		}
	} else {
		w.qinv[col] = int32(len(w.q))
		w.q = append(w.q, col)
	}
	w.extCol = append(w.extCol, col)
	return nil
}

// addRow eliminates the new row against every pivot row in order, stores
// the residual, and promotes it to a pivot when the residual carries an
// acceptable entry in an unpivoted column.
func (w *LU) addRow(op AddRow) error {
	if len(op.V) != w.Cols() {
		return fmt.Errorf("%w: row vector has length %d, want %d",
			ErrInvalidIndex, len(op.V), w.Cols())
	}
	r := w.u.addRowDim()
	w.pinv = append(w.pinv, -1)
	w.ghost = append(w.ghost, false)

	small := w.opts.Small
	rv := make([]float64, w.u.cols())
	w.scatterCols(op.V, rv)

	for k := 0; k < w.rank; k++ {
		c := w.q[k]
		if math.Abs(rv[c]) <= small {
			rv[c] = 0
			continue
		}
		pk := w.p[k]
		diag := w.uValue(pk, c)
		if math.Abs(diag) <= small {
			return fmt.Errorf("%w: vanishing diagonal at pivot position %d",
				ErrNumericalInstability, k)
		}
		mult := rv[c] / diag
		w.etas = append(w.etas, eta{target: r, src: pk, mult: mult})
		for it := w.u.firstInRow[pk]; it != nilLink; it = w.u.entries[it].nextRow {
			e := w.u.entries[it]
			rv[e.col] -= mult * e.val
		}
		rv[c] = 0
	}

	cbest := int32(-1)
	vmax := 0.0
	for c := int32(0); int(c) < len(rv); c++ {
		if math.Abs(rv[c]) <= small {
			continue
		}
		if err := w.u.insert(r, c, rv[c], false); err != nil {
			return err
		}
		w.noteMagnitude(rv[c])
		if int(w.qinv[c]) >= w.rank {
			if mag := math.Abs(rv[c]); mag > vmax {
				vmax = mag
				cbest = c
			}
		}
	}

	w.pinv[r] = int32(len(w.p))
	w.p = append(w.p, r)
	w.extRow = append(w.extRow, r)

	if cbest >= 0 && vmax > w.opts.UTol {
		return w.promotePivot(r, cbest)
	}
	return nil
}

func (w *LU) deleteColumn(op DeleteColumn) error {
	if op.J < 0 || op.J >= w.Cols() {
		return fmt.Errorf("%w: column %d outside [0,%d)", ErrInvalidIndex, op.J, w.Cols())
	}
	col := w.extCol[op.J]
	t := int(w.qinv[col])
	w.u.removeCol(col)
	w.qRemoveAt(t)
	if t < w.rank {
		w.rank--
		if err := w.bgSweep(t, w.rank-1); err != nil {
			return err
		}
	}
	copy(w.extCol[op.J:], w.extCol[op.J+1:])
	w.extCol = w.extCol[:len(w.extCol)-1]
	return nil
}

// deleteRow zeroes the row through a rank-1 correction and retires its
// internal id. The id never comes back; the external indices below shift
// up by one.
func (w *LU) deleteRow(op DeleteRow) error {
	if op.I < 0 || op.I >= w.Rows() {
		return fmt.Errorf("%w: row %d outside [0,%d)", ErrInvalidIndex, op.I, w.Rows())
	}
	r := w.extRow[op.I]
	wv := w.rowOfA(r)
	for c := range wv {
		wv[c] = -wv[c]
	}
	uv := make([]float64, w.u.rows())
	uv[r] = 1
	// flag first so the zeroed row cannot be picked as a fresh pivot
	w.ghost[r] = true
	if err := w.rank1Internal(uv, wv, true); err != nil {
		return err
	}
	copy(w.extRow[op.I:], w.extRow[op.I+1:])
	w.extRow = w.extRow[:len(w.extRow)-1]
	return nil
}

func (w *LU) rank1(op Rank1) error {
	if len(op.U) != w.Rows() {
		return fmt.Errorf("%w: row-space vector has length %d, want %d",
			ErrInvalidIndex, len(op.U), w.Rows())
	}
	if len(op.W) != w.Cols() {
		return fmt.Errorf("%w: column-space vector has length %d, want %d",
			ErrInvalidIndex, len(op.W), w.Cols())
	}
	uv := make([]float64, w.u.rows())
	w.scatterRows(op.U, uv)
	wv := make([]float64, w.u.cols())
	w.scatterCols(op.W, wv)
	return w.rank1Internal(uv, wv, false)
}

// rowOfA returns row r of the factored matrix at internal column
// coordinates, computed as U**T (L**T e_r).
func (w *LU) rowOfA(r int32) []float64 {
	tmp := make([]float64, w.u.rows())
	tmp[r] = 1
	w.mulEtasT(tmp)
	out := make([]float64, w.u.cols())
	w.mulUTInternal(tmp, out)
	return out
}

// rank1Internal applies A <- A + u w**T at internal coordinates. The
// forward-solved u collapses onto a single row through a chain of etas,
// that row absorbs w, and a sweep restores the triangular form. With
// allowDemote set, a vanished diagonal demotes the pivot instead of
// failing; row deletion relies on that.
func (w *LU) rank1Internal(uvec, wvec []float64, allowDemote bool) error {
	small := w.opts.Small

	y := append([]float64(nil), uvec...)
	w.forwardEtas(y)

	pos := make([]int, 0, 8)
	for r := range y {
		if math.Abs(y[r]) > small {
			pos = append(pos, int(w.pinv[r]))
		}
	}
	if len(pos) == 0 {
		return nil
	}
	sort.Ints(pos)

	// collapse y bottom-up: each entry folds into the one below it
	for k := 0; k < len(pos)-1; k++ {
		r1 := w.p[pos[k]]
		r2 := w.p[pos[k+1]]
		mult := y[r1] / y[r2]
		w.etas = append(w.etas, eta{target: r1, src: r2, mult: mult})
		if err := w.rowOpU(r1, r2, mult, nilLink); err != nil {
			return err
		}
		y[r1] = 0
	}

	sstar := pos[len(pos)-1]
	rstar := w.p[sstar]
	beta := y[rstar]

	for c := int32(0); int(c) < len(wvec); c++ {
		if math.Abs(wvec[c]) <= small {
			continue
		}
		if err := w.addToUEntry(rstar, c, beta*wvec[c]); err != nil {
			return err
		}
	}

	if err := w.spikeRowSweep(rstar, mini(sstar, w.rank)); err != nil {
		return err
	}

	if sstar < w.rank {
		diag := w.uValue(rstar, w.q[sstar])
		if math.Abs(diag) <= w.opts.UTol {
			if !allowDemote {
				return fmt.Errorf("%w: rank-1 update leaves pivot position %d with diagonal %g",
					ErrNumericalInstability, sstar, diag)
			}
			return w.demotePivot(sstar)
		}
		return nil
	}

	// rstar is unpivoted; promote it when the modified row gained an
	// acceptable entry in an unpivoted column. Retired rows stay out of
	// the pivot set even when residue makes them look usable.
	if w.ghost[rstar] {
		return nil
	}
	cbest := int32(-1)
	vmax := 0.0
	for it := w.u.firstInRow[rstar]; it != nilLink; it = w.u.entries[it].nextRow {
		e := w.u.entries[it]
		if int(w.qinv[e.col]) < w.rank {
			continue
		}
		if mag := math.Abs(e.val); mag > vmax {
			vmax = mag
			cbest = e.col
		}
	}
	if cbest >= 0 && vmax > w.opts.UTol {
		return w.promotePivot(rstar, cbest)
	}
	return nil
}

// spikeRowSweep eliminates entries of row rstar sitting in pivot columns
// left of limit, leftmost first, each against its pivot row.
func (w *LU) spikeRowSweep(rstar int32, limit int) error {
	u := w.u
	for {
		kmin := limit
		for it := u.firstInRow[rstar]; it != nilLink; it = u.entries[it].nextRow {
			if k := int(w.qinv[u.entries[it].col]); k < kmin {
				kmin = k
			}
		}
		if kmin >= limit {
			return nil
		}
		pk := w.p[kmin]
		c := w.q[kmin]
		diag := w.uValue(pk, c)
		if math.Abs(diag) <= w.opts.Small {
			return fmt.Errorf("%w: vanishing diagonal at pivot position %d during sweep",
				ErrNumericalInstability, kmin)
		}
		mult := w.uValue(rstar, c) / diag
		w.etas = append(w.etas, eta{target: rstar, src: pk, mult: mult})
		u.remove(rstar, c)
		if err := w.rowOpU(rstar, pk, mult, c); err != nil {
			return err
		}
	}
}

// promotePivot installs (r, c) as the pivot at position rank and clears
// the rest of column c among the unpivoted rows.
func (w *LU) promotePivot(r, c int32) error {
	w.swapP(w.rank, int(w.pinv[r]))
	w.swapQ(w.rank, int(w.qinv[c]))
	diag := w.uValue(r, c)

	rows := make([]int32, 0, 4)
	vals := make([]float64, 0, 4)
	for it := w.u.firstInCol[c]; it != nilLink; it = w.u.entries[it].nextCol {
		e := w.u.entries[it]
		if e.row != r && int(w.pinv[e.row]) > w.rank {
			rows = append(rows, e.row)
			vals = append(vals, e.val)
		}
	}
	for i, r2 := range rows {
		mult := vals[i] / diag
		w.etas = append(w.etas, eta{target: r2, src: r, mult: mult})
		w.u.remove(r2, c)
		if err := w.rowOpU(r2, r, mult, c); err != nil {
			return err
		}
	}
	w.rank++
	return nil
}

// demotePivot pulls the pivot at position t out of the pivot set, sweeps
// the Hessenberg band it leaves behind and reinserts its column as the
// first unpivoted one.
func (w *LU) demotePivot(t int) error {
	col := w.qRemoveAt(t)
	w.rank--
	if err := w.bgSweep(t, w.rank-1); err != nil {
		return err
	}
	w.qInsertAt(w.rank, col)
	return nil
}
