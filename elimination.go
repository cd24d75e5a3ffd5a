package lusol

import (
	"math"
)

// eliminate applies one pivot step: every other row holding an entry in
// the pivot column gets a multiple of the pivot row subtracted from it.
// The multipliers move to the eta file; the pivot row and pivot entry stay
// in the store and become a row of U.
func (f *factorCtx) eliminate(r, c int32) error {
	u := f.lu.u

	pidx := u.find(r, c)
	pivVal := u.entries[pidx].val
	f.lu.noteMagnitude(pivVal)

	// Copy out the pivot row pattern; inserts below may compact the arena.
	f.srcCols = f.srcCols[:0]
	f.srcVals = f.srcVals[:0]
	for it := u.firstInRow[r]; it != nilLink; it = u.entries[it].nextRow {
		e := u.entries[it]
		if e.col != c {
			f.srcCols = append(f.srcCols, e.col)
			f.srcVals = append(f.srcVals, e.val)
			f.lu.noteMagnitude(e.val)
		}
	}

	f.tgtRows = f.tgtRows[:0]
	f.tgtVals = f.tgtVals[:0]
	for it := u.firstInCol[c]; it != nilLink; it = u.entries[it].nextCol {
		e := u.entries[it]
		// entries of retired pivot rows in this column belong to U and
		// must stay untouched
		if e.row != r && f.rowActive[e.row] {
			f.tgtRows = append(f.tgtRows, e.row)
			f.tgtVals = append(f.tgtVals, e.val)
		}
	}

	for i, t := range f.tgtRows {
		lam := f.tgtVals[i] / pivVal
		f.lu.etas = append(f.lu.etas, eta{target: t, src: r, mult: lam})
		u.remove(t, c)
		f.rowCount[t]--
		f.activeNNZ--
		for j, cc := range f.srcCols {
			if err := f.addToActive(t, cc, -lam*f.srcVals[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// addToActive accumulates delta onto active entry (t, cc), creating fill
// or dropping the entry when it cancels below the zero threshold.
func (f *factorCtx) addToActive(t, cc int32, delta float64) error {
	u := f.lu.u
	small := f.lu.opts.Small

	if idx := u.find(t, cc); idx != nilLink {
		u.entries[idx].val += delta
		v := u.entries[idx].val
		if math.Abs(v) <= small {
			u.removeAt(idx)
			f.rowCount[t]--
			f.colCount[cc]--
			f.activeNNZ--
			return nil
		}
		f.lu.noteMagnitude(v)
		return nil
	}

	if math.Abs(delta) <= small {
		return nil
	}
	if err := u.insert(t, cc, delta, false); err != nil {
		return err
	}
	f.lu.fillins++
	f.rowCount[t]++
	f.colCount[cc]++
	f.activeNNZ++
	f.lu.noteMagnitude(delta)
	return nil
}

// noteMagnitude folds a written factor value into the growth tracking.
func (lu *LU) noteMagnitude(v float64) {
	if mag := math.Abs(v); mag > lu.umax {
		lu.umax = mag
	}
}

// clearResidual removes whatever is left in still-active rows. The search
// only gives up when every remaining entry fails the stability test
// against its own column maximum, which bounds them all by the zero
// threshold.
func (f *factorCtx) clearResidual() {
	for r := int32(0); int(r) < len(f.rowActive); r++ {
		if f.rowActive[r] {
			f.lu.u.removeRow(r)
		}
	}
}
