// Package ledger stores transaction records as rows of a spreadsheet table.
//
// Row 1 of the table is a header naming the fields; every following row is one
// record laid out in Columns order. How record ids map onto rows is decided by
// a Scheme.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/sheets-ledger/internal/logger"
	"github.com/dvloznov/sheets-ledger/internal/sheets"
)

// DateLayout is the format of the date column.
const DateLayout = "2006-01-02"

// Column names, in row order.
const (
	ColumnID          = "id"
	ColumnDate        = "date"
	ColumnType        = "type"
	ColumnAmount      = "amount"
	ColumnCategory    = "category"
	ColumnPatientName = "patientName"
	ColumnPatientID   = "patientId"
	ColumnPhone       = "phone"
	ColumnPayment     = "payment"
	ColumnNotes       = "notes"
)

// Columns is the header row written to an empty sheet and the positional
// layout of every data row.
var Columns = []string{
	ColumnID,
	ColumnDate,
	ColumnType,
	ColumnAmount,
	ColumnCategory,
	ColumnPatientName,
	ColumnPatientID,
	ColumnPhone,
	ColumnPayment,
	ColumnNotes,
}

var (
	// ErrValidation is returned by Create for an empty payload.
	ErrValidation = errors.New("ledger: no data")

	// ErrNotFound is returned by Delete when no row matches the id.
	ErrNotFound = errors.New("ledger: record not found")
)

// Snapshot is the full record list at one instant.
type Snapshot struct {
	TakenAt time.Time `json:"taken_at"`
	Scheme  string    `json:"scheme"`
	Records []Record  `json:"records"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger reads and mutates records through a table source. It keeps no state
// between calls; every operation reads the table afresh.
type Ledger struct {
	source sheets.Source
	scheme Scheme
	now    func() time.Time
}

// New creates a Ledger over source using scheme for row identity.
func New(source sheets.Source, scheme Scheme, opts ...Option) *Ledger {
	if scheme == nil {
		scheme = Positional{}
	}
	l := &Ledger{
		source: source,
		scheme: scheme,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Scheme returns the identity scheme in use.
func (l *Ledger) Scheme() Scheme {
	return l.scheme
}

// List returns every data row as a record keyed by the header row, in
// physical row order.
func (l *Ledger) List(ctx context.Context) ([]Record, error) {
	_, rows, err := l.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return l.records(rows), nil
}

// Create appends a row built from payload and returns the id reported for it.
// An empty payload fails with ErrValidation before the table is touched.
func (l *Ledger) Create(ctx context.Context, payload map[string]any) (int, error) {
	if len(payload) == 0 {
		return 0, ErrValidation
	}

	table, rows, err := l.read(ctx)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}

	// An empty sheet gets its header in the same write as the first row.
	var pending [][]any
	if len(rows) == 0 {
		rows = [][]any{headerRow()}
		pending = append(pending, rows[0])
	}

	id := l.scheme.NextID(rows)
	pending = append(pending, BuildRow(id, payload, l.now()))

	if err := table.AppendRows(ctx, pending...); err != nil {
		return 0, fmt.Errorf("Create: append row: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("id", id).
		Str("scheme", l.scheme.Name()).
		Msg("Transaction row appended")

	return id, nil
}

// Delete removes the row holding id. Rows below it move up one position,
// unless the scheme replaces the row with a tombstone.
func (l *Ledger) Delete(ctx context.Context, id int) error {
	table, rows, err := l.read(ctx)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	index, ok := l.scheme.Locate(rows, id)
	if !ok {
		return ErrNotFound
	}

	if tomb := l.scheme.Tombstone(rows, index); tomb != nil {
		if err := table.UpdateRow(ctx, index, tomb); err != nil {
			return fmt.Errorf("Delete: clear row %d: %w", index, err)
		}
	} else if err := table.DeleteRow(ctx, index); err != nil {
		return fmt.Errorf("Delete: delete row %d: %w", index, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("id", id).
		Int("row", index).
		Str("scheme", l.scheme.Name()).
		Msg("Transaction row deleted")

	return nil
}

// EnsureHeader writes the header row into an empty table. It reports whether
// a header was written.
func (l *Ledger) EnsureHeader(ctx context.Context) (bool, error) {
	table, rows, err := l.read(ctx)
	if err != nil {
		return false, fmt.Errorf("EnsureHeader: %w", err)
	}
	if len(rows) > 0 {
		return false, nil
	}
	if err := table.AppendRows(ctx, headerRow()); err != nil {
		return false, fmt.Errorf("EnsureHeader: append header: %w", err)
	}
	return true, nil
}

// Snapshot lists every record together with the time it was taken.
func (l *Ledger) Snapshot(ctx context.Context) (*Snapshot, error) {
	takenAt := l.now().UTC()
	records, err := l.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Snapshot: %w", err)
	}
	return &Snapshot{
		TakenAt: takenAt,
		Scheme:  l.scheme.Name(),
		Records: records,
	}, nil
}

func (l *Ledger) read(ctx context.Context) (sheets.Table, [][]any, error) {
	table, err := l.source.Table(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open table: %w", err)
	}
	rows, err := table.Values(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return table, rows, nil
}

func (l *Ledger) records(rows [][]any) []Record {
	out := make([]Record, 0, len(dataRows(rows)))
	if len(rows) == 0 {
		return out
	}

	keys := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		keys[i] = cellString(cell)
	}

	for i, row := range dataRows(rows) {
		if !l.scheme.Visible(row) {
			continue
		}
		rec := NewRecord(keys, row)
		l.scheme.Label(&rec, i+1)
		out = append(out, rec)
	}
	return out
}

// BuildRow lays payload out in Columns order with id in the first cell. A
// missing or blank date becomes now's date; other missing fields become "".
func BuildRow(id int, payload map[string]any, now time.Time) []any {
	row := make([]any, len(Columns))
	row[0] = id

	if d, ok := payload[ColumnDate]; ok && !isBlank(d) {
		row[1] = cellValue(d)
	} else {
		row[1] = now.Format(DateLayout)
	}

	for i := 2; i < len(Columns); i++ {
		row[i] = cellValue(payload[Columns[i]])
	}
	return row
}

func headerRow() []any {
	row := make([]any, len(Columns))
	for i, c := range Columns {
		row[i] = c
	}
	return row
}

// cellValue turns a decoded JSON value into something a sheet cell can hold.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, float64, bool, int, int64:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// isBlank reports whether a date value is empty. Whitespace is a value and
// is kept as given.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
