package notionsync

import (
	"strconv"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/sheets-ledger/internal/ledger"
)

// Notion property names of the mirrored transactions database.
const (
	PropRecordID    = "Record ID"
	PropDate        = "Date"
	PropType        = "Type"
	PropAmount      = "Amount"
	PropCategory    = "Category"
	PropPatientName = "Patient Name"
	PropPatientID   = "Patient ID"
	PropPhone       = "Phone"
	PropPayment     = "Payment"
	PropNotes       = "Notes"
)

// RecordKey returns the value stored in the Record ID title property.
func RecordKey(rec ledger.Record) string {
	if id, ok := rec.ID(); ok {
		return strconv.Itoa(id)
	}
	return rec.String(ledger.ColumnID)
}

// RecordToNotionProperties converts a ledger record to page properties.
// Empty optional fields are left out so Notion keeps them blank.
func RecordToNotionProperties(rec ledger.Record) notionapi.Properties {
	props := notionapi.Properties{
		PropRecordID: notionapi.TitleProperty{
			Title: richText(RecordKey(rec)),
		},
	}

	if d, err := time.Parse(ledger.DateLayout, rec.String(ledger.ColumnDate)); err == nil {
		date := notionapi.Date(d)
		props[PropDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		}
	}

	if amount, ok := rec.Float(ledger.ColumnAmount); ok {
		props[PropAmount] = notionapi.NumberProperty{Number: amount}
	}

	selects := map[string]string{
		PropType:     ledger.ColumnType,
		PropCategory: ledger.ColumnCategory,
		PropPayment:  ledger.ColumnPayment,
	}
	for prop, column := range selects {
		if v := rec.String(column); v != "" {
			props[prop] = notionapi.SelectProperty{
				Select: notionapi.Option{Name: v},
			}
		}
	}

	texts := map[string]string{
		PropPatientName: ledger.ColumnPatientName,
		PropPatientID:   ledger.ColumnPatientID,
		PropPhone:       ledger.ColumnPhone,
		PropNotes:       ledger.ColumnNotes,
	}
	for prop, column := range texts {
		if v := rec.String(column); v != "" {
			props[prop] = notionapi.RichTextProperty{RichText: richText(v)}
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// extractRecordID reads the Record ID title of a page, or "" when absent.
func extractRecordID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropRecordID]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}
