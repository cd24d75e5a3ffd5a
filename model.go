package lusol

import (
	"go.uber.org/zap"
)

// Default numeric parameters. These mirror the reference package's
// parameter blocks and are load-bearing: the pivot agenda and therefore
// the factor structure depend on them.
const (
	DefaultFactorTol   float64 = 10.0  // max multiplier during factorization
	DefaultUpdateTol   float64 = 10.0  // max multiplier during updates
	DefaultSmall       float64 = 1e-13 // absolute pivot floor
	DefaultUTol        float64 = 1e-11 // small-diagonal tolerance for U
	DefaultDensity     float64 = 0.5   // density that triggers the dense elimination switch
	DefaultSearchCols  int     = 5     // columns examined per Markowitz search pass
	DefaultGrowthLimit float64 = 1e8   // growth factor advisory ceiling
	DefaultExpansion   float64 = 2.0   // arena growth multiplier

	MinimumArenaSize int = 10000
	ArenaSpaceFactor int = 3 // initial arena capacity = ArenaSpaceFactor * nnz
)

// Options controls factorization and update behavior. Pass nil to
// Factorize to get defaults.
type Options struct {
	// FactorTol bounds the magnitude of multipliers accepted while building
	// the initial factors. A pivot is acceptable when
	// |pivot| >= colmax/FactorTol. Must be >= 1.
	FactorTol float64

	// UpdateTol bounds multipliers during incremental updates. Normally
	// looser than (or equal to) FactorTol.
	UpdateTol float64

	// Small is the absolute threshold below which a value is treated as an
	// exact zero.
	Small float64

	// UTol flags diagonals of U that are too small to pivot on.
	UTol float64

	// Density of the remaining active block at which elimination switches
	// to dense processing.
	Density float64

	// SearchCols limits how many candidate columns a Markowitz search pass
	// examines before settling.
	SearchCols int

	// GrowthLimit is the advisory ceiling on umax/amax. Crossing it does not
	// fail operations; it flips NeedsRefactorize.
	GrowthLimit float64

	// MaxEntries caps the storage arena. Zero means no cap.
	MaxEntries int

	ExpansionFactor float64

	// Logger receives pivot decisions and advisories. Nil means no logging.
	Logger *zap.Logger
}

func defaultOptions() Options {
	return Options{
		FactorTol:       DefaultFactorTol,
		UpdateTol:       DefaultUpdateTol,
		Small:           DefaultSmall,
		UTol:            DefaultUTol,
		Density:         DefaultDensity,
		SearchCols:      DefaultSearchCols,
		GrowthLimit:     DefaultGrowthLimit,
		ExpansionFactor: DefaultExpansion,
		Logger:          zap.NewNop(),
	}
}

func (o *Options) sanitize() {
	d := defaultOptions()
	if o.FactorTol < 1.0 {
		o.FactorTol = d.FactorTol
	}
	if o.UpdateTol < 1.0 {
		o.UpdateTol = d.UpdateTol
	}
	if o.Small <= 0.0 {
		o.Small = d.Small
	}
	if o.UTol <= 0.0 {
		o.UTol = d.UTol
	}
	if o.Density <= 0.0 || o.Density > 1.0 {
		o.Density = d.Density
	}
	if o.SearchCols <= 0 {
		o.SearchCols = d.SearchCols
	}
	if o.GrowthLimit <= 1.0 {
		o.GrowthLimit = d.GrowthLimit
	}
	if o.ExpansionFactor <= 1.0 {
		o.ExpansionFactor = d.ExpansionFactor
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// SolveMode selects which system Solve works on.
type SolveMode int

const (
	SolveL  SolveMode = iota + 1 // L v = b
	SolveLT                      // Lᵗ v = b
	SolveU                       // U w = b
	SolveUT                      // Uᵗ w = b
	SolveA                       // A x = b
	SolveAT                      // Aᵗ x = b
)

// MulMode selects which operator Multiply applies.
type MulMode int

const (
	MulL  MulMode = iota + 1 // v = L x
	MulLT                    // v = Lᵗ x
	MulU                     // v = U x
	MulUT                    // v = Uᵗ x
	MulA                     // v = A x
	MulAT                    // v = Aᵗ x
)

// UpdateOp describes one incremental change to the factored matrix. The
// concrete types below are the only implementations.
type UpdateOp interface {
	updateKind() string
}

// ReplaceColumn replaces column J (current 0-based column index) with V,
// a dense vector of length Rows().
type ReplaceColumn struct {
	J int
	V []float64
}

// ReplaceRow replaces row I (current 0-based row index) with V, a dense
// vector of length Cols().
type ReplaceRow struct {
	I int
	V []float64
}

// AddColumn appends a new rightmost column V of length Rows().
type AddColumn struct {
	V []float64
}

// AddRow appends a new bottom row V of length Cols().
type AddRow struct {
	V []float64
}

// DeleteColumn removes column J. Columns to the right shift down by one.
type DeleteColumn struct {
	J int
}

// DeleteRow removes row I. Rows below shift up by one.
type DeleteRow struct {
	I int
}

// Rank1 applies A <- A + U·Wᵗ where U has length Rows() and W length Cols().
type Rank1 struct {
	U []float64
	W []float64
}

func (ReplaceColumn) updateKind() string { return "replace-column" }
func (ReplaceRow) updateKind() string    { return "replace-row" }
func (AddColumn) updateKind() string     { return "add-column" }
func (AddRow) updateKind() string        { return "add-row" }
func (DeleteColumn) updateKind() string  { return "delete-column" }
func (DeleteRow) updateKind() string     { return "delete-row" }
func (Rank1) updateKind() string         { return "rank1" }

// Stats reports the state of a factorization.
type Stats struct {
	LNonzeros     int     // multipliers held in the eta file
	UNonzeros     int     // entries stored in U
	Nonzeros      int     // LNonzeros + UNonzeros
	Rank          int     // pivots accepted
	Singularities int     // min(Rows, Cols) - Rank
	Growth        float64 // max |U| seen / max |A| at factorization
	Fillins       int     // entries created beyond the original pattern
}

// eta is one elementary row operation: row[target] -= mult * row[src].
// The eta file is the product form of L; it only ever grows.
type eta struct {
	target int32
	src    int32
	mult   float64
}

// LU holds the factors P, Q, L (eta file) and U (sparse, internal
// coordinates) of a sparse matrix, and keeps them valid across updates.
// An LU must not be used from multiple goroutines concurrently.
type LU struct {
	opts Options

	u    *store  // U entries at (internal row, internal col) coordinates
	etas []eta   // product form of L, internal row indices
	p    []int32 // pivot position -> internal row id (every row appears)
	q    []int32 // pivot position -> internal col id (every col appears)
	pinv []int32 // internal row id -> pivot position
	qinv []int32 // internal col id -> pivot position

	extRow []int32 // external row index -> internal row id
	extCol []int32 // external col index -> internal col id
	ghost  []bool  // internal row ids retired by DeleteRow

	rank    int
	fillins int
	amax    float64 // largest |A| entry at factorization time
	umax    float64 // largest |U| entry observed since

	lastDiag  float64 // diagonal produced by the most recent column replacement
	lastVNorm float64 // norm of the most recent replacement vector

	needsRefactor bool
	valid         bool

	// scratch, sized to the internal dimensions
	rowWork []float64
	colWork []float64
	opCols  []int32
	opVals  []float64
}

// Rows returns the current external row count.
func (lu *LU) Rows() int { return len(lu.extRow) }

// Cols returns the current external column count.
func (lu *LU) Cols() int { return len(lu.extCol) }

// Rank returns the number of accepted pivots.
func (lu *LU) Rank() int { return lu.rank }

// NeedsRefactorize reports whether the growth factor has crossed the
// configured ceiling. The factors are still valid; the caller should
// schedule a fresh Factorize.
func (lu *LU) NeedsRefactorize() bool { return lu.needsRefactor }

// Valid reports whether the factors may be used for solves and updates.
func (lu *LU) Valid() bool { return lu.valid }

// LastPivot returns the diagonal value and replacement-vector norm
// recorded by the most recent column replacement.
func (lu *LU) LastPivot() (diag, vnorm float64) { return lu.lastDiag, lu.lastVNorm }
