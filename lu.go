package lusol

// snapshot returns a working copy whose mutation leaves the receiver
// untouched. Update handlers run against the copy; the caller commits a
// successful result by assigning the copy back over the receiver, so a
// failed update leaves the original factors intact.
func (lu *LU) snapshot() *LU {
	w := *lu
	w.u = lu.u.clone()
	// Capping the slice at its length forces any append to reallocate
	// instead of scribbling over the original's spare capacity.
	w.etas = lu.etas[:len(lu.etas):len(lu.etas)]
	w.p = append([]int32(nil), lu.p...)
	w.q = append([]int32(nil), lu.q...)
	w.pinv = append([]int32(nil), lu.pinv...)
	w.qinv = append([]int32(nil), lu.qinv...)
	w.extRow = append([]int32(nil), lu.extRow...)
	w.extCol = append([]int32(nil), lu.extCol...)
	w.ghost = append([]bool(nil), lu.ghost...)
	w.rowWork = make([]float64, len(lu.rowWork))
	w.colWork = make([]float64, len(lu.colWork))
	w.opCols = nil
	w.opVals = nil
	return &w
}

// forwardEtas applies the eta file in recorded order. Starting from b this
// computes the solution of L v = b.
func (lu *LU) forwardEtas(x []float64) {
	for _, e := range lu.etas {
		x[e.target] -= e.mult * x[e.src]
	}
}

// reverseEtasT applies the transposed eta file in reverse order, solving
// L**T v = b in place.
func (lu *LU) reverseEtasT(x []float64) {
	for i := len(lu.etas) - 1; i >= 0; i-- {
		e := lu.etas[i]
		x[e.src] -= e.mult * x[e.target]
	}
}

// mulEtas overwrites x with L x. The etas undo in reverse order.
func (lu *LU) mulEtas(x []float64) {
	for i := len(lu.etas) - 1; i >= 0; i-- {
		e := lu.etas[i]
		x[e.target] += e.mult * x[e.src]
	}
}

// mulEtasT overwrites x with L**T x.
func (lu *LU) mulEtasT(x []float64) {
	for _, e := range lu.etas {
		x[e.src] += e.mult * x[e.target]
	}
}

// scatterRows spreads an external row-space vector onto internal row ids.
// Ghost rows receive zero.
func (lu *LU) scatterRows(v, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for i, r := range lu.extRow {
		dst[r] = v[i]
	}
}

// gatherRows collects internal row-space values back into external order.
func (lu *LU) gatherRows(src, dst []float64) {
	for i, r := range lu.extRow {
		dst[i] = src[r]
	}
}

func (lu *LU) scatterCols(v, dst []float64) {
	for j := range dst {
		dst[j] = 0
	}
	for j, c := range lu.extCol {
		dst[c] = v[j]
	}
}

func (lu *LU) gatherCols(src, dst []float64) {
	for j, c := range lu.extCol {
		dst[j] = src[c]
	}
}
