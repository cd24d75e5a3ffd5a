package lusol

// factorCtx threads the mutable elimination state through the
// factorization: activity flags, Markowitz counts and scratch buffers.
// It exists only for the duration of one Factorize call.
type factorCtx struct {
	lu *LU

	rowCount  []int32 // live entries per active row
	colCount  []int32 // live entries per active column
	rowActive []bool
	colActive []bool

	activeRows int
	activeCols int
	activeNNZ  int

	minDim int // total pivots this factorization may accept

	// pivot row pattern, copied out before row operations because an
	// insert may compact the arena
	srcCols []int32
	srcVals []float64

	// target entries of the pivot column, copied out for the same reason
	tgtRows []int32
	tgtVals []float64

	candCols []int32 // column candidates of one Markowitz search pass
}

func newFactorCtx(lu *LU) *factorCtx {
	m := lu.u.rows()
	n := lu.u.cols()
	f := &factorCtx{
		lu:         lu,
		rowCount:   make([]int32, m),
		colCount:   make([]int32, n),
		rowActive:  make([]bool, m),
		colActive:  make([]bool, n),
		activeRows: m,
		activeCols: n,
		minDim:     mini(m, n),
		candCols:   make([]int32, 0, lu.opts.SearchCols),
	}
	f.countEntries()
	return f
}

// countEntries initializes the Markowitz row/column counts from the
// store's lists.
func (f *factorCtx) countEntries() {
	u := f.lu.u
	for r := range f.rowActive {
		f.rowActive[r] = true
		count := int32(0)
		for it := u.firstInRow[r]; it != nilLink; it = u.entries[it].nextRow {
			count++
		}
		f.rowCount[r] = count
		f.activeNNZ += int(count)
	}
	for c := range f.colActive {
		f.colActive[c] = true
		count := int32(0)
		for it := u.firstInCol[c]; it != nilLink; it = u.entries[it].nextCol {
			count++
		}
		f.colCount[c] = count
	}
}

// markowitzProduct is the fill-in cost estimate for pivoting on an entry
// whose row and column have the given live counts.
func markowitzProduct(rowCount, colCount int32) int64 {
	return int64(rowCount-1) * int64(colCount-1)
}

// deactivate retires the pivot row and column from the active submatrix
// after elimination. By this point the pivot column holds only the pivot
// entry itself.
func (f *factorCtx) deactivate(r, c int32) {
	u := f.lu.u

	f.colActive[c] = false
	f.activeCols--
	f.activeNNZ-- // the pivot entry

	f.rowActive[r] = false
	f.activeRows--
	for it := u.firstInRow[r]; it != nilLink; it = u.entries[it].nextRow {
		cc := u.entries[it].col
		if f.colActive[cc] {
			f.colCount[cc]--
			f.activeNNZ--
		}
	}
}

// denseEnough reports whether the remaining active block is dense enough
// to switch to dense elimination.
func (f *factorCtx) denseEnough() bool {
	cells := f.activeRows * f.activeCols
	if f.activeRows < 2 || f.activeCols < 2 || cells < 16 {
		return false
	}
	return float64(f.activeNNZ) > f.lu.opts.Density*float64(cells)
}
