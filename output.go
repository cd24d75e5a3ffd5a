package lusol

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Stats returns diagnostics for the current factors.
func (lu *LU) Stats() Stats {
	return Stats{
		LNonzeros:     len(lu.etas),
		UNonzeros:     lu.u.count,
		Nonzeros:      len(lu.etas) + lu.u.count,
		Rank:          lu.rank,
		Singularities: maxi(0, mini(lu.Rows(), lu.Cols())-lu.rank),
		Growth:        lu.growth(),
		Fillins:       lu.fillins,
	}
}

// String renders the matrix as a dense grid. Meant for debugging small
// systems, not for production output.
func (m *Matrix) String() string {
	var b strings.Builder
	for i := 0; i < m.nrows; i++ {
		for j := 0; j < m.ncols; j++ {
			fmt.Fprintf(&b, " %10.4g", m.Get(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (lu *LU) String() string {
	s := lu.Stats()
	return fmt.Sprintf("LU{%dx%d rank=%d nnz(L)=%d nnz(U)=%d fill=%d growth=%.3g}",
		lu.Rows(), lu.Cols(), s.Rank, s.LNonzeros, s.UNonzeros, s.Fillins, s.Growth)
}

// DumpU writes the entries of U as external (row, col, value) triplets in
// row-major order.
func (lu *LU) DumpU(w io.Writer) error {
	rowOf := make(map[int32]int, len(lu.extRow))
	for i, r := range lu.extRow {
		rowOf[r] = i
	}
	colOf := make(map[int32]int, len(lu.extCol))
	for j, c := range lu.extCol {
		colOf[c] = j
	}

	type trip struct {
		i, j int
		v    float64
	}
	trips := make([]trip, 0, lu.u.count)
	for idx := range lu.u.entries {
		e := &lu.u.entries[idx]
		if e.row == nilLink {
			continue
		}
		i, ok := rowOf[e.row]
		if !ok {
			continue
		}
		j, ok := colOf[e.col]
		if !ok {
			continue
		}
		trips = append(trips, trip{i, j, e.val})
	}
	sort.Slice(trips, func(a, b int) bool {
		if trips[a].i != trips[b].i {
			return trips[a].i < trips[b].i
		}
		return trips[a].j < trips[b].j
	})
	for _, t := range trips {
		if _, err := fmt.Fprintf(w, "%d %d %.17g\n", t.i, t.j, t.v); err != nil {
			return err
		}
	}
	return nil
}
