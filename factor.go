package lusol

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Factorize builds LU factors of a via threshold-pivoted, Markowitz-guided
// sparse Gaussian elimination. The matrix need not be square; rank
// deficiency is not an error and is reported through Stats. On error no
// factorization is returned: the commit is all or nothing.
func Factorize(a *Matrix, opts *Options) (*LU, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidIndex)
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	o.sanitize()

	m, n := a.Dims()
	nnz := a.NNZ()
	if o.MaxEntries > 0 && nnz > o.MaxEntries {
		return nil, fmt.Errorf("%w: input holds %d entries, budget is %d",
			ErrCapacityExceeded, nnz, o.MaxEntries)
	}

	capacity := maxi(ArenaSpaceFactor*nnz, MinimumArenaSize)
	lu := &LU{
		opts:   o,
		u:      newStore(m, n, capacity, o.MaxEntries, o.ExpansionFactor),
		p:      make([]int32, 0, m),
		q:      make([]int32, 0, n),
		pinv:   make([]int32, m),
		qinv:   make([]int32, n),
		extRow: make([]int32, m),
		extCol: make([]int32, n),
		ghost:  make([]bool, m),
	}
	for i := range lu.pinv {
		lu.pinv[i] = -1
		lu.extRow[i] = int32(i)
	}
	for j := range lu.qinv {
		lu.qinv[j] = -1
		lu.extCol[j] = int32(j)
	}

	for i := 0; i < m; i++ {
		st := a.st
		for it := st.firstInRow[i]; it != nilLink; it = st.entries[it].nextRow {
			e := st.entries[it]
			if math.Abs(e.val) <= o.Small {
				continue
			}
			if err := lu.u.insert(e.row, e.col, e.val, false); err != nil {
				return nil, err
			}
			if mag := math.Abs(e.val); mag > lu.amax {
				lu.amax = mag
			}
		}
	}

	if err := lu.factorize(); err != nil {
		return nil, err
	}
	return lu, nil
}

func (lu *LU) factorize() error {
	f := newFactorCtx(lu)
	logger := lu.opts.Logger

	for len(lu.p) < f.minDim {
		if f.denseEnough() {
			logger.Debug("switching to dense elimination",
				zap.Int("pivots", len(lu.p)),
				zap.Int("activeRows", f.activeRows),
				zap.Int("activeCols", f.activeCols),
				zap.Int("activeNNZ", f.activeNNZ))
			if err := f.denseFinish(); err != nil {
				return err
			}
			break
		}

		r, c, ok := f.searchPivot()
		if !ok {
			// No entry anywhere passes the stability test: the remaining
			// block is structurally singular. Defer those rows/columns.
			break
		}
		k := len(lu.p)
		lu.p = append(lu.p, r)
		lu.q = append(lu.q, c)
		lu.pinv[r] = int32(k)
		lu.qinv[c] = int32(k)

		if err := f.eliminate(r, c); err != nil {
			return err
		}
		f.deactivate(r, c)

		logger.Debug("pivot accepted",
			zap.Int("step", k),
			zap.Int32("row", r),
			zap.Int32("col", c))
	}

	lu.rank = len(lu.p)
	f.clearResidual()
	lu.appendUnpivoted()

	// Squeeze freed slots out of the arena while the structure is settled.
	if lu.u.freeCount > lu.u.count/4 {
		lu.u.rebuild(cap(lu.u.entries))
	}

	lu.ensureScratch()
	lu.valid = true
	lu.needsRefactor = lu.growthExceeded()

	logger.Debug("factorization complete",
		zap.Int("rank", lu.rank),
		zap.Int("singularities", mini(lu.u.rows(), lu.u.cols())-lu.rank),
		zap.Int("unonzeros", lu.u.count),
		zap.Int("lnonzeros", len(lu.etas)),
		zap.Float64("growth", lu.growth()))
	return nil
}

// appendUnpivoted fills the tail of p and q with rows/columns that never
// produced a pivot, in ascending id order.
func (lu *LU) appendUnpivoted() {
	for r := int32(0); int(r) < len(lu.pinv); r++ {
		if lu.pinv[r] == -1 {
			lu.pinv[r] = int32(len(lu.p))
			lu.p = append(lu.p, r)
		}
	}
	for c := int32(0); int(c) < len(lu.qinv); c++ {
		if lu.qinv[c] == -1 {
			lu.qinv[c] = int32(len(lu.q))
			lu.q = append(lu.q, c)
		}
	}
}

func (lu *LU) ensureScratch() {
	if len(lu.rowWork) < lu.u.cols() {
		lu.rowWork = make([]float64, lu.u.cols())
	}
	if len(lu.colWork) < lu.u.rows() {
		lu.colWork = make([]float64, lu.u.rows())
	}
}

func (lu *LU) growth() float64 {
	if lu.amax <= 0.0 {
		return 0.0
	}
	return lu.umax / lu.amax
}

func (lu *LU) growthExceeded() bool {
	return lu.amax > 0.0 && lu.umax/lu.amax > lu.opts.GrowthLimit
}
