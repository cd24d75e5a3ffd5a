package lusol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var general4 = [][]float64{
	{3, 1, 0, 2},
	{1, 5, 1, 0},
	{0, 2, 6, 1},
	{2, 0, 1, 4},
}

// Every solve mode must invert the matching multiply mode.
func TestSolveMultiplyRoundTrip(t *testing.T) {
	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)

	pairs := []struct {
		name  string
		solve SolveMode
		mul   MulMode
	}{
		{"L", SolveL, MulL},
		{"LT", SolveLT, MulLT},
		{"U", SolveU, MulU},
		{"UT", SolveUT, MulUT},
		{"A", SolveA, MulA},
		{"AT", SolveAT, MulAT},
	}
	b := []float64{1, -1, 2, 0.5}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			v, err := lu.Solve(p.solve, b)
			require.NoError(t, err)
			back, err := lu.Multiply(p.mul, v)
			require.NoError(t, err)
			assert.InDeltaSlice(t, b, back, 1e-11)
		})
	}
}

func TestSolveMatchesDense(t *testing.T) {
	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)
	d := denseOf(general4)

	b := []float64{4, 3, 2, 1}
	x, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, refSolve(t, d, b), x, 1e-11)

	var dt mat.Dense
	dt.CloneFrom(d.T())
	xt, err := lu.Solve(SolveAT, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, refSolve(t, &dt, b), xt, 1e-11)
}

func TestSolveSparse(t *testing.T) {
	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)

	// duplicates accumulate
	x, err := lu.SolveSparse(SolveA, []int{2, 0, 2}, []float64{1.5, 1, 0.5})
	require.NoError(t, err)
	want, err := lu.Solve(SolveA, []float64{1, 0, 2, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, x, 1e-13)

	_, err = lu.SolveSparse(SolveA, []int{4}, []float64{1})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
	_, err = lu.SolveSparse(SolveA, []int{0, 1}, []float64{1})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestSolveInPlace(t *testing.T) {
	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)

	b := []float64{4, 3, 2, 1}
	x := append([]float64(nil), b...)
	require.NoError(t, lu.SolveInPlace(SolveA, x))
	want, err := lu.Solve(SolveA, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, x, 1e-13)
}

func TestSolveInPlaceRectangular(t *testing.T) {
	rows := [][]float64{
		{2, 1, 0, 1},
		{0, 3, 1, 0},
		{1, 0, 4, 2},
	}
	lu, err := Factorize(buildMatrix(t, rows), nil)
	require.NoError(t, err)

	err = lu.SolveInPlace(SolveA, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrInvalidIndex))

	// L modes stay in row space and do not need a square matrix
	x := []float64{1, 2, 3}
	assert.NoError(t, lu.SolveInPlace(SolveL, x))
}

func TestSolveErrors(t *testing.T) {
	var empty LU
	_, err := empty.Solve(SolveA, []float64{1})
	assert.True(t, errors.Is(err, ErrNotFactored))

	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)
	_, err = lu.Solve(SolveA, []float64{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
	_, err = lu.Solve(SolveMode(99), []float64{1, 2, 3, 4})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestMultiplyMatchesDense(t *testing.T) {
	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)
	d := denseOf(general4)

	x := []float64{0.3, -1.2, 2.5, 0.7}
	got, err := lu.Multiply(MulA, x)
	require.NoError(t, err)
	var want mat.VecDense
	want.MulVec(d, mat.NewVecDense(4, x))
	for i := range got {
		assert.InDelta(t, want.AtVec(i), got[i], 1e-12)
	}

	gotT, err := lu.Multiply(MulAT, x)
	require.NoError(t, err)
	want.MulVec(d.T(), mat.NewVecDense(4, x))
	for i := range gotT {
		assert.InDelta(t, want.AtVec(i), gotT[i], 1e-12)
	}
}

// <A x, y> must equal <x, A**T y> for any factored operator.
func TestMultiplyAdjointIdentity(t *testing.T) {
	rows := [][]float64{
		{2, 1, 0, 1},
		{0, 3, 1, 0},
		{1, 0, 4, 2},
	}
	lu, err := Factorize(buildMatrix(t, rows), nil)
	require.NoError(t, err)

	x := []float64{1, -2, 0.5, 3}
	y := []float64{2, 1, -1}
	ax, err := lu.Multiply(MulA, x)
	require.NoError(t, err)
	aty, err := lu.Multiply(MulAT, y)
	require.NoError(t, err)
	assert.InDelta(t, floats.Dot(ax, y), floats.Dot(x, aty), 1e-12)
}

func TestMultiplyErrors(t *testing.T) {
	var empty LU
	_, err := empty.Multiply(MulA, []float64{1})
	assert.True(t, errors.Is(err, ErrNotFactored))

	lu, err := Factorize(buildMatrix(t, general4), nil)
	require.NoError(t, err)
	_, err = lu.Multiply(MulA, []float64{1})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
	_, err = lu.Multiply(MulMode(0), []float64{1, 2, 3, 4})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}
