package lusol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func buildMatrix(t *testing.T, rows [][]float64) *Matrix {
	t.Helper()
	a, err := NewMatrix(len(rows), len(rows[0]))
	require.NoError(t, err)
	for i, row := range rows {
		for j, v := range row {
			if v != 0 {
				require.NoError(t, a.Set(i, j, v))
			}
		}
	}
	return a
}

func denseOf(rows [][]float64) *mat.Dense {
	d := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		for j, v := range row {
			d.Set(i, j, v)
		}
	}
	return d
}

func refSolve(t *testing.T, a *mat.Dense, b []float64) []float64 {
	t.Helper()
	var x mat.VecDense
	require.NoError(t, x.SolveVec(a, mat.NewVecDense(len(b), b)))
	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out
}

var tridiag = [][]float64{
	{4, 1, 0},
	{1, 4, 1},
	{0, 1, 4},
}

func TestFactorizeTridiagonal(t *testing.T) {
	lu, err := Factorize(buildMatrix(t, tridiag), nil)
	require.NoError(t, err)
	require.True(t, lu.Valid())
	assert.Equal(t, 3, lu.Rank())
	assert.False(t, lu.NeedsRefactorize())

	b := []float64{1, 2, 3}
	x, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, refSolve(t, denseOf(tridiag), b), x, 1e-12)

	s := lu.Stats()
	assert.Equal(t, 0, s.Singularities)
	assert.Equal(t, s.LNonzeros+s.UNonzeros, s.Nonzeros)
	assert.Zero(t, s.Fillins) // tridiagonal elimination creates no fill
}

func TestFactorizeRankDeficient(t *testing.T) {
	rows := [][]float64{
		{1, 2, 0},
		{1, 2, 0},
		{0, 1, 1},
	}
	lu, err := Factorize(buildMatrix(t, rows), nil)
	require.NoError(t, err)
	require.True(t, lu.Valid())

	s := lu.Stats()
	assert.Equal(t, 2, s.Rank)
	assert.Equal(t, 1, s.Singularities)

	// a consistent right-hand side still solves, unpivoted components zero
	b := []float64{1, 1, 1}
	x, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	ax, err := lu.Multiply(MulA, x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, ax, 1e-12)
}

func TestFactorizeDenseBlock(t *testing.T) {
	// fully dense, so elimination switches to the dense path immediately
	rows := [][]float64{
		{5, 1, 2, 1, 1},
		{1, 6, 1, 2, 1},
		{2, 1, 7, 1, 2},
		{1, 2, 1, 8, 1},
		{1, 1, 2, 1, 9},
	}
	lu, err := Factorize(buildMatrix(t, rows), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, lu.Rank())

	b := []float64{1, -2, 3, -4, 5}
	x, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, refSolve(t, denseOf(rows), b), x, 1e-10)
}

func TestFactorizeRectangular(t *testing.T) {
	rows := [][]float64{
		{2, 1, 0, 1},
		{0, 3, 1, 0},
		{1, 0, 4, 2},
	}
	lu, err := Factorize(buildMatrix(t, rows), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, lu.Rows())
	assert.Equal(t, 4, lu.Cols())
	assert.Equal(t, 3, lu.Rank())

	// full row rank: A x = b is consistent for any b
	b := []float64{1, 2, 3}
	x, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	require.Len(t, x, 4)
	ax, err := lu.Multiply(MulA, x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, ax, 1e-12)
}

func TestFactorizeGrowthAdvisory(t *testing.T) {
	rows := [][]float64{
		{1, 1},
		{1, -1},
	}
	lu, err := Factorize(buildMatrix(t, rows), &Options{GrowthLimit: 1.5})
	require.NoError(t, err)
	require.True(t, lu.Valid())
	// eliminating row 1 produces -2, so growth is 2
	assert.True(t, lu.NeedsRefactorize())
	assert.InDelta(t, 2.0, lu.Stats().Growth, 1e-12)

	// the factors stay usable regardless of the advisory
	x, err := lu.Solve(SolveA, []float64{3, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 1}, x, 1e-12)
}

func TestFactorizeCapacityBudget(t *testing.T) {
	a := buildMatrix(t, tridiag)
	_, err := Factorize(a, &Options{MaxEntries: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
}

func TestFactorizeNilMatrix(t *testing.T) {
	_, err := Factorize(nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestFactorizeLargerSparse(t *testing.T) {
	// pentadiagonal system, large enough to exercise fill-in and the
	// Markowitz search beyond the short-column pass
	const n = 40
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = 6
		if i > 0 {
			rows[i][i-1] = -1
		}
		if i < n-1 {
			rows[i][i+1] = -1
		}
		if i > 1 {
			rows[i][i-2] = 2
		}
		if i < n-2 {
			rows[i][i+2] = 2
		}
	}
	lu, err := Factorize(buildMatrix(t, rows), nil)
	require.NoError(t, err)
	assert.Equal(t, n, lu.Rank())

	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i%7) - 3
	}
	x, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, refSolve(t, denseOf(rows), b), x, 1e-9)
}
