package sheets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Scopes requested for the service account.
var Scopes = []string{
	gsheet.SpreadsheetsScope,
	"https://www.googleapis.com/auth/drive",
}

// SheetTable is a Table backed by the first sheet of a spreadsheet.
type SheetTable struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetID       int64
	title         string

	// onAuthFailure is called when the service rejects the credentials.
	onAuthFailure func()
}

// OpenTable resolves the first sheet of spreadsheetID using svc.
func OpenTable(ctx context.Context, svc *gsheet.Service, spreadsheetID string) (*SheetTable, error) {
	resp, err := svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, &RemoteError{Op: "open spreadsheet", Err: err}
	}
	if len(resp.Sheets) == 0 || resp.Sheets[0].Properties == nil {
		return nil, &RemoteError{Op: "open spreadsheet", Err: fmt.Errorf("spreadsheet %s has no sheets", spreadsheetID)}
	}

	props := resp.Sheets[0].Properties
	return &SheetTable{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetID:       props.SheetId,
		title:         props.Title,
	}, nil
}

// Title returns the sheet title.
func (t *SheetTable) Title() string {
	return t.title
}

// Values implements Table.
func (t *SheetTable) Values(ctx context.Context) ([][]any, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, quoteTitle(t.title)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, t.remoteErr("read values", err)
	}
	return resp.Values, nil
}

// AppendRows implements Table with one values.append call.
func (t *SheetTable) AppendRows(ctx context.Context, rows ...[]any) error {
	vr := &gsheet.ValueRange{Values: make([][]interface{}, 0, len(rows))}
	for _, row := range rows {
		vr.Values = append(vr.Values, row)
	}

	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, quoteTitle(t.title), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return t.remoteErr("append rows", err)
	}
	return nil
}

// UpdateRow implements Table. Cells are written RAW starting at column A.
func (t *SheetTable) UpdateRow(ctx context.Context, index int, row []any) error {
	if index < 1 {
		return &RemoteError{Op: "update row", Err: fmt.Errorf("invalid row index %d", index)}
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	rng := fmt.Sprintf("%s!A%d", quoteTitle(t.title), index)

	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return t.remoteErr("update row", err)
	}
	return nil
}

// DeleteRow implements Table.
func (t *SheetTable) DeleteRow(ctx context.Context, index int) error {
	if index < 1 {
		return &RemoteError{Op: "delete row", Err: fmt.Errorf("invalid row index %d", index)}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(index - 1),
					EndIndex:   int64(index),
					// Zero is a valid sheet id and start index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}

	if _, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return t.remoteErr("delete row", err)
	}
	return nil
}

func (t *SheetTable) remoteErr(op string, err error) error {
	if isAuthFailure(err) && t.onAuthFailure != nil {
		t.onAuthFailure()
	}
	return &RemoteError{Op: op, Err: err}
}

// Provider lazily opens one SheetTable per process and reuses it across
// requests. The handle is dropped when the service rejects its credentials.
type Provider struct {
	spreadsheetID string
	credentials   string
	log           zerolog.Logger

	// open builds a fresh table; replaced in tests.
	open func(ctx context.Context) (*SheetTable, error)

	mu    sync.Mutex
	table *SheetTable
}

// NewProvider creates a Provider for the spreadsheet. credentials is the base64
// encoded service account JSON; it is only decoded on first use.
func NewProvider(spreadsheetID, credentials string, log zerolog.Logger) *Provider {
	p := &Provider{
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		credentials:   strings.TrimSpace(credentials),
		log:           log.With().Str("component", "sheets").Logger(),
	}
	p.open = p.openTable
	return p
}

// Table implements Source.
func (p *Provider) Table(ctx context.Context) (Table, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table != nil {
		return p.table, nil
	}

	t, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	t.onAuthFailure = func() { p.drop(t) }
	p.table = t

	p.log.Info().
		Str("spreadsheet_id", p.spreadsheetID).
		Str("sheet", t.title).
		Msg("Opened spreadsheet")

	return t, nil
}

// Invalidate drops the cached handle so the next request re-authenticates.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table = nil
}

// drop forgets t unless a newer handle already replaced it.
func (p *Provider) drop(t *SheetTable) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table == t {
		p.log.Warn().Str("spreadsheet_id", p.spreadsheetID).Msg("Dropping spreadsheet handle after auth failure")
		p.table = nil
	}
}

func (p *Provider) openTable(ctx context.Context) (*SheetTable, error) {
	if p.spreadsheetID == "" {
		return nil, fmt.Errorf("%w: SPREADSHEET_ID missing", ErrConfiguration)
	}

	raw, err := DecodeCredentials(p.credentials)
	if err != nil {
		return nil, err
	}

	// The token source outlives the request that happened to open the handle.
	creds, err := google.CredentialsFromJSON(context.Background(), raw, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse GOOGLE_CREDENTIALS: %v", ErrConfiguration, err)
	}

	svc, err := gsheet.NewService(context.Background(), option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("%w: sheets service: %v", ErrConfiguration, err)
	}

	t, err := OpenTable(ctx, svc, p.spreadsheetID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DecodeCredentials decodes the base64 service account blob.
func DecodeCredentials(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CREDENTIALS missing (base64 of the service account JSON)", ErrConfiguration)
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: decode GOOGLE_CREDENTIALS: %v", ErrConfiguration, err)
	}
	return raw, nil
}

func isAuthFailure(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
	}
	var rerr *oauth2.RetrieveError
	return errors.As(err, &rerr)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

var (
	_ Table  = (*SheetTable)(nil)
	_ Source = (*Provider)(nil)
)
