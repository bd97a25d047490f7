package ledger

import "fmt"

// Scheme decides how record ids relate to rows. rows always includes the
// header row at index 0.
type Scheme interface {
	// Name identifies the scheme in configuration and logs.
	Name() string

	// NextID returns the id reported for a row appended to rows.
	NextID(rows [][]any) int

	// Locate returns the 1-based physical row holding id.
	Locate(rows [][]any, id int) (int, bool)

	// Label adjusts a record read from the given 1-based data position.
	Label(rec *Record, position int)

	// Visible reports whether a data row is listed as a record.
	Visible(row []any) bool

	// Tombstone returns the row written in place of the row at index when it
	// is deleted, or nil to remove the row.
	Tombstone(rows [][]any, index int) []any
}

// Positional derives ids from row position on every read. Deleting a row
// shifts the ids of every row below it.
type Positional struct{}

// Name implements Scheme.
func (Positional) Name() string { return "positional" }

// NextID is the row count including the header, which is the data position
// the appended row will occupy.
func (Positional) NextID(rows [][]any) int {
	return len(rows)
}

// Locate accepts ids 1..len(rows)-1 and skips the header row.
func (Positional) Locate(rows [][]any, id int) (int, bool) {
	if id <= 0 || id >= len(rows) {
		return 0, false
	}
	return id + 1, true
}

// Label implements Scheme.
func (Positional) Label(rec *Record, position int) {
	if rec.Has(ColumnID) {
		rec.Set(ColumnID, position)
	}
}

// Visible implements Scheme.
func (Positional) Visible(row []any) bool { return true }

// Tombstone implements Scheme.
func (Positional) Tombstone(rows [][]any, index int) []any { return nil }

// Stable persists ids in the first column as a monotonic counter. Ids survive
// deletions and are never reassigned. Deleting the row that holds the highest
// id leaves a tombstone row carrying only that id, which keeps the counter.
type Stable struct{}

// Name implements Scheme.
func (Stable) Name() string { return "stable" }

// NextID implements Scheme.
func (Stable) NextID(rows [][]any) int {
	highest := 0
	for _, row := range dataRows(rows) {
		if len(row) == 0 {
			continue
		}
		if id, ok := cellInt(row[0]); ok && id > highest {
			highest = id
		}
	}
	return highest + 1
}

// Locate implements Scheme.
func (Stable) Locate(rows [][]any, id int) (int, bool) {
	for i, row := range dataRows(rows) {
		if len(row) == 0 || isTombstone(row) {
			continue
		}
		if stored, ok := cellInt(row[0]); ok && stored == id {
			// +1 for the header, +1 for 1-based rows.
			return i + 2, true
		}
	}
	return 0, false
}

// Label implements Scheme.
func (Stable) Label(rec *Record, position int) {}

// Visible hides tombstone rows.
func (Stable) Visible(row []any) bool {
	return !isTombstone(row)
}

// Tombstone implements Scheme. Only the highest id needs one; lower ids stay
// below the counter once their row is gone.
func (s Stable) Tombstone(rows [][]any, index int) []any {
	if index < 2 || index > len(rows) {
		return nil
	}
	row := rows[index-1]
	if len(row) == 0 {
		return nil
	}
	id, ok := cellInt(row[0])
	if !ok || id+1 != s.NextID(rows) {
		return nil
	}

	tomb := make([]any, len(Columns))
	tomb[0] = id
	for i := 1; i < len(tomb); i++ {
		tomb[i] = ""
	}
	return tomb
}

// SchemeByName returns the scheme registered under name.
func SchemeByName(name string) (Scheme, error) {
	switch name {
	case "", Positional{}.Name():
		return Positional{}, nil
	case Stable{}.Name():
		return Stable{}, nil
	}
	return nil, fmt.Errorf("unknown row identity scheme %q", name)
}

// isTombstone reports whether row holds an id and nothing else.
func isTombstone(row []any) bool {
	if len(row) == 0 {
		return false
	}
	if _, ok := cellInt(row[0]); !ok {
		return false
	}
	for _, cell := range row[1:] {
		if cellString(cell) != "" {
			return false
		}
	}
	return true
}

func dataRows(rows [][]any) [][]any {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}
