// Package bigquery stores ledger snapshots in a BigQuery table.
package bigquery

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/sheets-ledger/internal/ledger"
)

// SnapshotRow is one record of one export, as stored in the snapshots table.
type SnapshotRow struct {
	SnapshotID string    `bigquery:"snapshot_id"` // REQUIRED
	TakenAt    time.Time `bigquery:"taken_at"`    // REQUIRED
	Scheme     string    `bigquery:"scheme"`      // REQUIRED

	RecordID        bigquery.NullInt64 `bigquery:"record_id"`        // NULLABLE
	TransactionDate bigquery.NullDate  `bigquery:"transaction_date"` // NULLABLE, set when the date parses

	Type        bigquery.NullString  `bigquery:"type"`         // NULLABLE
	Amount      bigquery.NullFloat64 `bigquery:"amount"`       // NULLABLE
	Category    bigquery.NullString  `bigquery:"category"`     // NULLABLE
	PatientName bigquery.NullString  `bigquery:"patient_name"` // NULLABLE
	PatientID   bigquery.NullString  `bigquery:"patient_id"`   // NULLABLE
	Phone       bigquery.NullString  `bigquery:"phone"`        // NULLABLE
	Payment     bigquery.NullString  `bigquery:"payment"`      // NULLABLE
	Notes       bigquery.NullString  `bigquery:"notes"`        // NULLABLE

	Raw bigquery.NullJSON `bigquery:"raw"` // NULLABLE JSON, the record as listed
}

// SnapshotSummary describes one stored snapshot.
type SnapshotSummary struct {
	SnapshotID  string    `bigquery:"snapshot_id" json:"snapshot_id"`
	TakenAt     time.Time `bigquery:"taken_at" json:"taken_at"`
	RecordCount int64     `bigquery:"record_count" json:"record_count"`
}

// TableRef names the snapshots table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

// NewSnapshotRows converts snap into rows sharing snapshotID.
func NewSnapshotRows(snapshotID string, snap *ledger.Snapshot) []*SnapshotRow {
	rows := make([]*SnapshotRow, 0, len(snap.Records))
	for _, rec := range snap.Records {
		row := &SnapshotRow{
			SnapshotID:  snapshotID,
			TakenAt:     snap.TakenAt,
			Scheme:      snap.Scheme,
			Type:        nullString(rec.String(ledger.ColumnType)),
			Category:    nullString(rec.String(ledger.ColumnCategory)),
			PatientName: nullString(rec.String(ledger.ColumnPatientName)),
			PatientID:   nullString(rec.String(ledger.ColumnPatientID)),
			Phone:       nullString(rec.String(ledger.ColumnPhone)),
			Payment:     nullString(rec.String(ledger.ColumnPayment)),
			Notes:       nullString(rec.String(ledger.ColumnNotes)),
		}

		if id, ok := rec.ID(); ok {
			row.RecordID = bigquery.NullInt64{Int64: int64(id), Valid: true}
		}
		if d, err := civil.ParseDate(rec.String(ledger.ColumnDate)); err == nil {
			row.TransactionDate = bigquery.NullDate{Date: d, Valid: true}
		}
		if amount, ok := rec.Float(ledger.ColumnAmount); ok {
			row.Amount = bigquery.NullFloat64{Float64: amount, Valid: true}
		}
		if raw, err := json.Marshal(rec); err == nil {
			row.Raw = bigquery.NullJSON{JSONVal: string(raw), Valid: true}
		}

		rows = append(rows, row)
	}
	return rows
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
