// Package sheets gives access to the first sheet of a Google Sheets document as
// a plain row/column grid.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrConfiguration is returned when the spreadsheet id or the service account
// credentials are missing or malformed.
var ErrConfiguration = errors.New("sheets: invalid configuration")

// Table is a grid of rows. Row indexes are 1-based, row 1 being the first
// physical row of the sheet.
type Table interface {
	// Values returns every non-empty row of the sheet in physical order.
	Values(ctx context.Context) ([][]any, error)

	// AppendRows appends rows after the last non-empty row in a single write.
	AppendRows(ctx context.Context, rows ...[]any) error

	// UpdateRow overwrites the physical row at index.
	UpdateRow(ctx context.Context, index int, row []any) error

	// DeleteRow removes the physical row at index, shifting later rows up.
	DeleteRow(ctx context.Context, index int) error
}

// Source hands out the Table a request should work against.
type Source interface {
	Table(ctx context.Context) (Table, error)
}

// RemoteError wraps any failure returned by the spreadsheet service.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sheets %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// MemoryTable is an in-process Table. It is safe for concurrent use.
type MemoryTable struct {
	mu        sync.RWMutex
	rows      [][]any
	mutations int
}

// NewMemoryTable creates a table holding copies of the given rows.
func NewMemoryTable(rows ...[]any) *MemoryTable {
	t := &MemoryTable{}
	for _, r := range rows {
		t.rows = append(t.rows, copyRow(r))
	}
	return t
}

// Table implements Source.
func (t *MemoryTable) Table(ctx context.Context) (Table, error) {
	return t, nil
}

// Values implements Table.
func (t *MemoryTable) Values(ctx context.Context) ([][]any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([][]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = copyRow(r)
	}
	return out, nil
}

// AppendRows implements Table. One call counts as one mutation.
func (t *MemoryTable) AppendRows(ctx context.Context, rows ...[]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, row := range rows {
		t.rows = append(t.rows, copyRow(row))
	}
	t.mutations++
	return nil
}

// UpdateRow implements Table.
func (t *MemoryTable) UpdateRow(ctx context.Context, index int, row []any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 1 || index > len(t.rows) {
		return &RemoteError{Op: "update row", Err: fmt.Errorf("row %d out of range (1..%d)", index, len(t.rows))}
	}
	t.rows[index-1] = copyRow(row)
	t.mutations++
	return nil
}

// DeleteRow implements Table.
func (t *MemoryTable) DeleteRow(ctx context.Context, index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 1 || index > len(t.rows) {
		return &RemoteError{Op: "delete row", Err: fmt.Errorf("row %d out of range (1..%d)", index, len(t.rows))}
	}
	t.rows = append(t.rows[:index-1], t.rows[index:]...)
	t.mutations++
	return nil
}

// Mutations returns how many append, update and delete calls have been applied.
func (t *MemoryTable) Mutations() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mutations
}

func copyRow(r []any) []any {
	out := make([]any, len(r))
	copy(out, r)
	return out
}

var (
	_ Table  = (*MemoryTable)(nil)
	_ Source = (*MemoryTable)(nil)
)
