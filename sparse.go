package lusol

import (
	"fmt"
	"math"
)

const nilLink int32 = -1

// entry is one nonzero. Entries live in an arena and are threaded onto a
// row list (ordered by column) and a column list (ordered by row) through
// integer links. Links are doubly threaded so unlinking is O(1).
type entry struct {
	row, col int32
	val      float64

	nextRow, prevRow int32
	nextCol, prevCol int32
}

// store is the dynamic sparse container. Freed slots go on a free list;
// when the free list is empty and the arena is full, a compaction pass
// rewrites live entries contiguously and may grow capacity by the
// expansion factor, up to maxEntries.
type store struct {
	entries    []entry
	firstInRow []int32
	firstInCol []int32

	freeHead   int32
	freeCount  int
	count      int
	maxEntries int
	expansion  float64
}

func newStore(rows, cols, capacity, maxEntries int, expansion float64) *store {
	if capacity < 1 {
		capacity = 1
	}
	if maxEntries > 0 && capacity > maxEntries {
		capacity = maxEntries
	}
	s := &store{
		entries:    make([]entry, 0, capacity),
		firstInRow: make([]int32, rows),
		firstInCol: make([]int32, cols),
		freeHead:   nilLink,
		maxEntries: maxEntries,
		expansion:  expansion,
	}
	for i := range s.firstInRow {
		s.firstInRow[i] = nilLink
	}
	for i := range s.firstInCol {
		s.firstInCol[i] = nilLink
	}
	return s
}

func (s *store) rows() int { return len(s.firstInRow) }
func (s *store) cols() int { return len(s.firstInCol) }

// addRowDim extends the row index space by one and returns the new row id.
func (s *store) addRowDim() int32 {
	s.firstInRow = append(s.firstInRow, nilLink)
	return int32(len(s.firstInRow) - 1)
}

// addColDim extends the column index space by one and returns the new id.
func (s *store) addColDim() int32 {
	s.firstInCol = append(s.firstInCol, nilLink)
	return int32(len(s.firstInCol) - 1)
}

// ensureSlot guarantees an allocation slot exists, compacting and growing
// the arena if needed. Any held entry index is invalid afterwards.
func (s *store) ensureSlot() error {
	if s.freeHead != nilLink || len(s.entries) < cap(s.entries) {
		return nil
	}
	newCap := int(float64(cap(s.entries)) * s.expansion)
	if newCap <= cap(s.entries) {
		newCap = cap(s.entries) + 1
	}
	if s.maxEntries > 0 && newCap > s.maxEntries {
		newCap = s.maxEntries
	}
	if newCap <= s.count {
		return fmt.Errorf("%w: %d entries in use, budget %d", ErrCapacityExceeded, s.count, s.maxEntries)
	}
	s.rebuild(newCap)
	return nil
}

// rebuild copies live entries into a fresh arena of the given capacity,
// dropping freed slots. Row lists are copied in order; column lists are
// relinked by a reverse sweep, the same trick the row-linking pass of the
// original package uses to end up with sorted lists.
func (s *store) rebuild(newCap int) {
	old := s.entries
	ents := make([]entry, 0, newCap)

	for r := range s.firstInRow {
		prev := nilLink
		for it := s.firstInRow[r]; it != nilLink; it = old[it].nextRow {
			ents = append(ents, entry{
				row: old[it].row, col: old[it].col, val: old[it].val,
				nextRow: nilLink, prevRow: prev,
				nextCol: nilLink, prevCol: nilLink,
			})
			idx := int32(len(ents) - 1)
			if prev == nilLink {
				s.firstInRow[r] = idx
			} else {
				ents[prev].nextRow = idx
			}
			prev = idx
		}
		if prev == nilLink {
			s.firstInRow[r] = nilLink
		}
	}

	for c := range s.firstInCol {
		s.firstInCol[c] = nilLink
	}
	for i := len(ents) - 1; i >= 0; i-- {
		c := ents[i].col
		head := s.firstInCol[c]
		ents[i].nextCol = head
		if head != nilLink {
			ents[head].prevCol = int32(i)
		}
		s.firstInCol[c] = int32(i)
	}

	s.entries = ents
	s.freeHead = nilLink
	s.freeCount = 0
}

func (s *store) alloc() (int32, error) {
	if err := s.ensureSlot(); err != nil {
		return nilLink, err
	}
	if s.freeHead != nilLink {
		idx := s.freeHead
		s.freeHead = s.entries[idx].nextRow
		s.freeCount--
		return idx, nil
	}
	s.entries = s.entries[:len(s.entries)+1]
	return int32(len(s.entries) - 1), nil
}

// find returns the arena index of entry (row, col), or nilLink.
func (s *store) find(row, col int32) int32 {
	for it := s.firstInRow[row]; it != nilLink; it = s.entries[it].nextRow {
		if s.entries[it].col == col {
			return it
		}
		if s.entries[it].col > col {
			break
		}
	}
	return nilLink
}

func (s *store) get(row, col int32) (float64, bool) {
	if it := s.find(row, col); it != nilLink {
		return s.entries[it].val, true
	}
	return 0.0, false
}

// insert adds entry (row, col) with the given value, accumulating onto an
// existing entry when add is true and overwriting otherwise. Inserting may
// compact the arena, so callers must not hold entry indices across it.
func (s *store) insert(row, col int32, val float64, add bool) error {
	if it := s.find(row, col); it != nilLink {
		if add {
			s.entries[it].val += val
		} else {
			s.entries[it].val = val
		}
		return nil
	}

	// Make room before locating the insertion point: compaction moves
	// entries and would invalidate the position found by the walk below.
	if err := s.ensureSlot(); err != nil {
		return err
	}

	prev := nilLink
	it := s.firstInRow[row]
	for it != nilLink && s.entries[it].col < col {
		prev = it
		it = s.entries[it].nextRow
	}

	idx, err := s.alloc()
	if err != nil {
		return err
	}
	s.entries[idx] = entry{row: row, col: col, val: val,
		nextRow: it, prevRow: prev, nextCol: nilLink, prevCol: nilLink}
	if prev == nilLink {
		s.firstInRow[row] = idx
	} else {
		s.entries[prev].nextRow = idx
	}
	if it != nilLink {
		s.entries[it].prevRow = idx
	}

	cprev := nilLink
	cit := s.firstInCol[col]
	for cit != nilLink && s.entries[cit].row < row {
		cprev = cit
		cit = s.entries[cit].nextCol
	}
	s.entries[idx].nextCol = cit
	s.entries[idx].prevCol = cprev
	if cprev == nilLink {
		s.firstInCol[col] = idx
	} else {
		s.entries[cprev].nextCol = idx
	}
	if cit != nilLink {
		s.entries[cit].prevCol = idx
	}

	s.count++
	return nil
}

// removeAt unlinks the entry at arena index idx and returns its slot to
// the free list.
func (s *store) removeAt(idx int32) {
	e := s.entries[idx]
	if e.prevRow == nilLink {
		s.firstInRow[e.row] = e.nextRow
	} else {
		s.entries[e.prevRow].nextRow = e.nextRow
	}
	if e.nextRow != nilLink {
		s.entries[e.nextRow].prevRow = e.prevRow
	}
	if e.prevCol == nilLink {
		s.firstInCol[e.col] = e.nextCol
	} else {
		s.entries[e.prevCol].nextCol = e.nextCol
	}
	if e.nextCol != nilLink {
		s.entries[e.nextCol].prevCol = e.prevCol
	}

	s.entries[idx].nextRow = s.freeHead
	s.entries[idx].row = nilLink
	s.freeHead = idx
	s.freeCount++
	s.count--
}

func (s *store) remove(row, col int32) bool {
	idx := s.find(row, col)
	if idx == nilLink {
		return false
	}
	s.removeAt(idx)
	return true
}

// removeRow drops every entry of the given row.
func (s *store) removeRow(row int32) {
	for s.firstInRow[row] != nilLink {
		s.removeAt(s.firstInRow[row])
	}
}

// removeCol drops every entry of the given column.
func (s *store) removeCol(col int32) {
	for s.firstInCol[col] != nilLink {
		s.removeAt(s.firstInCol[col])
	}
}

func (s *store) clone() *store {
	c := &store{
		entries:    make([]entry, len(s.entries), cap(s.entries)),
		firstInRow: make([]int32, len(s.firstInRow)),
		firstInCol: make([]int32, len(s.firstInCol)),
		freeHead:   s.freeHead,
		freeCount:  s.freeCount,
		count:      s.count,
		maxEntries: s.maxEntries,
		expansion:  s.expansion,
	}
	copy(c.entries, s.entries)
	copy(c.firstInRow, s.firstInRow)
	copy(c.firstInCol, s.firstInCol)
	return c
}

// Matrix is the assembly container handed to Factorize. Indices are
// 0-based. Setting the same coordinate twice overwrites; Add accumulates,
// which is the usual stamping idiom when assembling from element
// contributions.
type Matrix struct {
	nrows, ncols int
	st           *store
}

func NewMatrix(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidIndex, rows, cols)
	}
	capacity := rows + cols
	if capacity < 16 {
		capacity = 16
	}
	return &Matrix{
		nrows: rows,
		ncols: cols,
		st:    newStore(rows, cols, capacity, 0, DefaultExpansion),
	}, nil
}

func (m *Matrix) Dims() (rows, cols int) { return m.nrows, m.ncols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return m.st.count }

func (m *Matrix) checkIndex(i, j int) error {
	if i < 0 || j < 0 || i >= m.nrows || j >= m.ncols {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrInvalidIndex, i, j, m.nrows, m.ncols)
	}
	return nil
}

// Set stores value v at (i, j), overwriting any prior entry.
func (m *Matrix) Set(i, j int, v float64) error {
	if err := m.checkIndex(i, j); err != nil {
		return err
	}
	return m.st.insert(int32(i), int32(j), v, false)
}

// Add accumulates v onto entry (i, j), creating it if absent.
func (m *Matrix) Add(i, j int, v float64) error {
	if err := m.checkIndex(i, j); err != nil {
		return err
	}
	return m.st.insert(int32(i), int32(j), v, true)
}

// Get returns the value at (i, j); absent entries read as zero.
func (m *Matrix) Get(i, j int) float64 {
	if m.checkIndex(i, j) != nil {
		return 0.0
	}
	v, _ := m.st.get(int32(i), int32(j))
	return v
}

// Remove deletes entry (i, j) and reports whether it existed.
func (m *Matrix) Remove(i, j int) bool {
	if m.checkIndex(i, j) != nil {
		return false
	}
	return m.st.remove(int32(i), int32(j))
}

// ScanRow visits row i's entries in column order. Returning false from fn
// stops the scan. The scan restarts from the head on every call.
func (m *Matrix) ScanRow(i int, fn func(j int, v float64) bool) {
	if i < 0 || i >= m.nrows {
		return
	}
	for it := m.st.firstInRow[i]; it != nilLink; it = m.st.entries[it].nextRow {
		if !fn(int(m.st.entries[it].col), m.st.entries[it].val) {
			return
		}
	}
}

// ScanCol visits column j's entries in row order.
func (m *Matrix) ScanCol(j int, fn func(i int, v float64) bool) {
	if j < 0 || j >= m.ncols {
		return
	}
	for it := m.st.firstInCol[j]; it != nilLink; it = m.st.entries[it].nextCol {
		if !fn(int(m.st.entries[it].row), m.st.entries[it].val) {
			return
		}
	}
}

// MaxAbs returns the largest entry magnitude.
func (m *Matrix) MaxAbs() float64 {
	largest := 0.0
	for i := range m.st.entries {
		e := &m.st.entries[i]
		if e.row == nilLink {
			continue
		}
		if mag := math.Abs(e.val); mag > largest {
			largest = mag
		}
	}
	return largest
}
