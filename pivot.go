package lusol

import (
	"math"
)

// searchPivot picks the next pivot: among entries passing the threshold
// stability test, the one with the smallest Markowitz product, ties broken
// by smallest row then smallest column. A first pass examines only the
// SearchCols shortest active columns; a full sweep runs when that pass
// finds nothing acceptable.
func (f *factorCtx) searchPivot() (row, col int32, ok bool) {
	f.selectShortColumns()
	if row, col, ok = f.scanColumns(f.candCols); ok {
		return row, col, true
	}

	// widen to every active column
	all := make([]int32, 0, f.activeCols)
	for c := int32(0); int(c) < len(f.colActive); c++ {
		if f.colActive[c] {
			all = append(all, c)
		}
	}
	return f.scanColumns(all)
}

// selectShortColumns fills candCols with up to SearchCols active columns,
// ordered by (live count, column id).
func (f *factorCtx) selectShortColumns() {
	limit := f.lu.opts.SearchCols
	f.candCols = f.candCols[:0]
	for c := int32(0); int(c) < len(f.colActive); c++ {
		if !f.colActive[c] || f.colCount[c] == 0 {
			continue
		}
		pos := len(f.candCols)
		for pos > 0 {
			prev := f.candCols[pos-1]
			if f.colCount[prev] < f.colCount[c] ||
				(f.colCount[prev] == f.colCount[c] && prev < c) {
				break
			}
			pos--
		}
		if pos >= limit {
			continue
		}
		if len(f.candCols) < limit {
			f.candCols = append(f.candCols, 0)
		}
		copy(f.candCols[pos+1:], f.candCols[pos:])
		f.candCols[pos] = c
	}
}

// scanColumns runs the threshold + Markowitz test over the given columns.
func (f *factorCtx) scanColumns(cols []int32) (row, col int32, ok bool) {
	u := f.lu.u
	small := f.lu.opts.Small
	bestProd := int64(math.MaxInt64)

	for _, c := range cols {
		colmax := f.findBiggestInCol(c)
		if colmax <= small {
			continue
		}
		accept := colmax / f.lu.opts.FactorTol
		for it := u.firstInCol[c]; it != nilLink; it = u.entries[it].nextCol {
			e := u.entries[it]
			if !f.rowActive[e.row] {
				// entry of a retired pivot row, already part of U
				continue
			}
			mag := math.Abs(e.val)
			if mag < accept || mag <= small {
				continue
			}
			prod := markowitzProduct(f.rowCount[e.row], f.colCount[c])
			if !ok || prod < bestProd ||
				(prod == bestProd && (e.row < row || (e.row == row && c < col))) {
				bestProd = prod
				row, col = e.row, c
				ok = true
			}
		}
	}
	return row, col, ok
}

// findBiggestInCol returns the largest entry magnitude in an active column.
func (f *factorCtx) findBiggestInCol(c int32) float64 {
	u := f.lu.u
	largest := 0.0
	for it := u.firstInCol[c]; it != nilLink; it = u.entries[it].nextCol {
		if !f.rowActive[u.entries[it].row] {
			continue
		}
		if mag := math.Abs(u.entries[it].val); mag > largest {
			largest = mag
		}
	}
	return largest
}
