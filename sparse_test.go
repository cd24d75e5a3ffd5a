package lusol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixBasics(t *testing.T) {
	_, err := NewMatrix(0, 3)
	assert.True(t, errors.Is(err, ErrInvalidIndex))

	a, err := NewMatrix(3, 3)
	require.NoError(t, err)
	rows, cols := a.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)

	require.NoError(t, a.Set(0, 0, 1.5))
	require.NoError(t, a.Set(0, 0, 2.5)) // overwrite
	require.NoError(t, a.Add(0, 0, 0.5)) // accumulate
	assert.Equal(t, 3.0, a.Get(0, 0))
	assert.Equal(t, 1, a.NNZ())

	assert.Equal(t, 0.0, a.Get(1, 1))
	assert.Equal(t, 0.0, a.Get(-1, 5))

	assert.True(t, errors.Is(a.Set(3, 0, 1), ErrInvalidIndex))
	assert.True(t, errors.Is(a.Add(0, 3, 1), ErrInvalidIndex))

	assert.True(t, a.Remove(0, 0))
	assert.False(t, a.Remove(0, 0))
	assert.Equal(t, 0, a.NNZ())
}

func TestMatrixScanOrder(t *testing.T) {
	a, err := NewMatrix(4, 4)
	require.NoError(t, err)
	// inserted out of order on purpose
	for _, e := range [][3]float64{{1, 3, 13}, {1, 0, 10}, {1, 2, 12}, {0, 2, 2}, {3, 2, 32}} {
		require.NoError(t, a.Set(int(e[0]), int(e[1]), e[2]))
	}

	var cols []int
	a.ScanRow(1, func(j int, v float64) bool {
		cols = append(cols, j)
		return true
	})
	assert.Equal(t, []int{0, 2, 3}, cols)

	var rws []int
	a.ScanCol(2, func(i int, v float64) bool {
		rws = append(rws, i)
		return true
	})
	assert.Equal(t, []int{0, 1, 3}, rws)

	// early stop
	count := 0
	a.ScanRow(1, func(j int, v float64) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestMatrixMaxAbs(t *testing.T) {
	a, err := NewMatrix(2, 2)
	require.NoError(t, err)
	require.NoError(t, a.Set(0, 0, -7))
	require.NoError(t, a.Set(1, 1, 3))
	a.Remove(0, 0) // freed slot must not count
	assert.Equal(t, 3.0, a.MaxAbs())
}

// The arena must survive growth and free-list churn with its lists intact.
func TestStoreCompaction(t *testing.T) {
	s := newStore(8, 8, 2, 0, 2.0)

	for i := int32(0); i < 8; i++ {
		for j := int32(0); j < 8; j++ {
			if (i+j)%2 == 0 {
				require.NoError(t, s.insert(i, j, float64(10*i+j), false))
			}
		}
	}
	assert.Equal(t, 32, s.count)

	// free every other entry, then refill the holes with new values
	for i := int32(0); i < 8; i++ {
		require.True(t, s.remove(i, i%2))
	}
	assert.Equal(t, 24, s.count)
	assert.Equal(t, 8, s.freeCount)

	for i := int32(0); i < 8; i++ {
		require.NoError(t, s.insert(i, i%2, float64(-i), false))
	}
	assert.Equal(t, 32, s.count)

	for i := int32(0); i < 8; i++ {
		v, okv := s.get(i, i%2)
		require.True(t, okv)
		assert.Equal(t, float64(-i), v)
	}

	// an explicit rebuild keeps every live entry reachable both ways
	s.rebuild(64)
	assert.Equal(t, 32, s.count)
	assert.Equal(t, 0, s.freeCount)
	for j := int32(0); j < 8; j++ {
		prev := int32(-1)
		for it := s.firstInCol[j]; it != nilLink; it = s.entries[it].nextCol {
			require.Greater(t, s.entries[it].row, prev)
			prev = s.entries[it].row
		}
	}
}

func TestStoreCapacityBudget(t *testing.T) {
	s := newStore(2, 2, 1, 3, 2.0)
	require.NoError(t, s.insert(0, 0, 1, false))
	require.NoError(t, s.insert(0, 1, 1, false))
	require.NoError(t, s.insert(1, 0, 1, false))
	err := s.insert(1, 1, 1, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	// updating an existing entry still works at the budget
	require.NoError(t, s.insert(0, 0, 9, false))
	v, _ := s.get(0, 0)
	assert.Equal(t, 9.0, v)
}
