package lusol

import (
	"math"
)

// denseFinish eliminates the remaining active block with dense partial
// pivoting. The block is gathered into a flat array, pivoted column by
// column, and the surviving pivot rows are written back to the store.
func (f *factorCtx) denseFinish() error {
	u := f.lu.u
	small := f.lu.opts.Small

	rows := make([]int32, 0, f.activeRows)
	for r := int32(0); int(r) < len(f.rowActive); r++ {
		if f.rowActive[r] {
			rows = append(rows, r)
		}
	}
	cols := make([]int32, 0, f.activeCols)
	colPos := make([]int, len(f.colActive))
	for c := int32(0); int(c) < len(f.colActive); c++ {
		if f.colActive[c] {
			colPos[c] = len(cols)
			cols = append(cols, c)
		}
	}
	ar, ac := len(rows), len(cols)

	block := make([]float64, ar*ac)
	removed := 0
	for i, r := range rows {
		for it := u.firstInRow[r]; it != nilLink; it = u.entries[it].nextRow {
			e := u.entries[it]
			block[i*ac+colPos[e.col]] = e.val
			removed++
		}
		u.removeRow(r)
	}

	pivoted := make([]bool, ar)
	inserted := 0
	for j := 0; j < ac && len(f.lu.p) < f.minDim; j++ {
		best := -1
		bestMag := small
		for i := 0; i < ar; i++ {
			if pivoted[i] {
				continue
			}
			if mag := math.Abs(block[i*ac+j]); mag > bestMag {
				bestMag = mag
				best = i
			}
		}
		if best < 0 {
			// column is (numerically) empty below the pivoted rows
			continue
		}
		piv := block[best*ac+j]

		k := len(f.lu.p)
		f.lu.p = append(f.lu.p, rows[best])
		f.lu.q = append(f.lu.q, cols[j])
		f.lu.pinv[rows[best]] = int32(k)
		f.lu.qinv[cols[j]] = int32(k)
		pivoted[best] = true

		for i := 0; i < ar; i++ {
			if pivoted[i] {
				continue
			}
			v := block[i*ac+j]
			if math.Abs(v) <= small {
				continue
			}
			lam := v / piv
			f.lu.etas = append(f.lu.etas, eta{target: rows[i], src: rows[best], mult: lam})
			block[i*ac+j] = 0
			for jj := j + 1; jj < ac; jj++ {
				block[i*ac+jj] -= lam * block[best*ac+jj]
			}
		}

		for jj := 0; jj < ac; jj++ {
			v := block[best*ac+jj]
			if math.Abs(v) <= small {
				continue
			}
			if err := u.insert(rows[best], cols[jj], v, false); err != nil {
				return err
			}
			f.lu.noteMagnitude(v)
			inserted++
		}
	}

	if inserted > removed {
		f.lu.fillins += inserted - removed
	}

	for _, r := range rows {
		f.rowActive[r] = false
	}
	for _, c := range cols {
		f.colActive[c] = false
	}
	f.activeRows = 0
	f.activeCols = 0
	f.activeNNZ = 0
	return nil
}
