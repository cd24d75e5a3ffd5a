package lusol

import (
	"fmt"
	"math"
)

// uValue returns the stored value of U at internal coordinates, zero when
// the entry is absent.
func (lu *LU) uValue(r, c int32) float64 {
	if idx := lu.u.find(r, c); idx != nilLink {
		return lu.u.entries[idx].val
	}
	return 0.0
}

// swapP exchanges two pivot positions in the row permutation.
func (lu *LU) swapP(a, b int) {
	lu.p[a], lu.p[b] = lu.p[b], lu.p[a]
	lu.pinv[lu.p[a]] = int32(a)
	lu.pinv[lu.p[b]] = int32(b)
}

// swapQ exchanges two pivot positions in the column permutation.
func (lu *LU) swapQ(a, b int) {
	lu.q[a], lu.q[b] = lu.q[b], lu.q[a]
	lu.qinv[lu.q[a]] = int32(a)
	lu.qinv[lu.q[b]] = int32(b)
}

// qRemoveAt pulls the column at pivot position t out of the permutation.
// Later positions shift down by one.
func (lu *LU) qRemoveAt(t int) int32 {
	col := lu.q[t]
	copy(lu.q[t:], lu.q[t+1:])
	lu.q = lu.q[:len(lu.q)-1]
	for s := t; s < len(lu.q); s++ {
		lu.qinv[lu.q[s]] = int32(s)
	}
	lu.qinv[col] = -1
	return col
}

// qInsertAt places col at pivot position t. Later positions shift up.
func (lu *LU) qInsertAt(t int, col int32) {
	lu.q = append(lu.q, 0)
	copy(lu.q[t+1:], lu.q[t:])
	lu.q[t] = col
	for s := t; s < len(lu.q); s++ {
		lu.qinv[lu.q[s]] = int32(s)
	}
}

// rowOpU subtracts mult times row src from row target inside U, skipping
// skipCol (the column whose target entry the caller removed outright to
// guarantee exact cancellation). The source pattern is copied out first
// because inserts may compact the arena.
func (lu *LU) rowOpU(target, src int32, mult float64, skipCol int32) error {
	u := lu.u
	lu.opCols = lu.opCols[:0]
	lu.opVals = lu.opVals[:0]
	for it := u.firstInRow[src]; it != nilLink; it = u.entries[it].nextRow {
		e := u.entries[it]
		if e.col == skipCol {
			continue
		}
		lu.opCols = append(lu.opCols, e.col)
		lu.opVals = append(lu.opVals, e.val)
	}
	for i, c := range lu.opCols {
		if err := lu.addToUEntry(target, c, -mult*lu.opVals[i]); err != nil {
			return err
		}
	}
	return nil
}

// addToUEntry accumulates delta onto U(r, c), creating the entry when
// absent and dropping it when the sum cancels below the zero threshold.
func (lu *LU) addToUEntry(r, c int32, delta float64) error {
	u := lu.u
	if idx := u.find(r, c); idx != nilLink {
		u.entries[idx].val += delta
		v := u.entries[idx].val
		if math.Abs(v) <= lu.opts.Small {
			u.removeAt(idx)
			return nil
		}
		lu.noteMagnitude(v)
		return nil
	}
	if math.Abs(delta) <= lu.opts.Small {
		return nil
	}
	if err := u.insert(r, c, delta, false); err != nil {
		return err
	}
	lu.fillins++
	lu.noteMagnitude(delta)
	return nil
}

// bgSweep restores U to upper triangular form after a column removal left
// an upper Hessenberg band over pivot positions from..to. Each step clears
// the subdiagonal entry at position s, exchanging adjacent rows first when
// the in-place multiplier would exceed UpdateTol.
func (lu *LU) bgSweep(from, to int) error {
	small := lu.opts.Small
	for s := from; s <= to; s++ {
		r1 := lu.p[s]
		r2 := lu.p[s+1]
		c := lu.q[s]

		d := lu.uValue(r1, c)
		e := lu.uValue(r2, c)
		if math.Abs(e) <= small {
			lu.u.remove(r2, c)
			if math.Abs(d) <= small {
				return fmt.Errorf("%w: vanishing diagonal at pivot position %d during sweep",
					ErrNumericalInstability, s)
			}
			continue
		}

		if math.Abs(d)*lu.opts.UpdateTol >= math.Abs(e) && math.Abs(d) > small {
			mult := e / d
			lu.etas = append(lu.etas, eta{target: r2, src: r1, mult: mult})
			lu.u.remove(r2, c)
			if err := lu.rowOpU(r2, r1, mult, c); err != nil {
				return err
			}
			continue
		}

		// |d| is too small relative to |e|: exchange the rows so the larger
		// value becomes the diagonal. The multiplier is then below one.
		lu.swapP(s, s+1)
		if math.Abs(d) > small {
			mult := d / e
			lu.etas = append(lu.etas, eta{target: r1, src: r2, mult: mult})
			lu.u.remove(r1, c)
			if err := lu.rowOpU(r1, r2, mult, c); err != nil {
				return err
			}
		}
	}
	return nil
}
