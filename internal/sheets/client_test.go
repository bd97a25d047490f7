package sheets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets emulates the subset of the Sheets REST API the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	title    string
	grid     [][]any
	authFail bool
	queries  []string
	appends  int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, r.URL.RawQuery)
	w.Header().Set("Content-Type", "application/json")

	if f.authFail {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`))
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		index, _ := strconv.Atoi(path[strings.LastIndex(path, "!A")+2:])
		f.grid[index-1] = vr.Values[0]
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRows":1}`))
	case strings.HasSuffix(path, ":batchUpdate"):
		var req struct {
			Requests []struct {
				DeleteDimension struct {
					Range struct {
						StartIndex int `json:"startIndex"`
						EndIndex   int `json:"endIndex"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		rng := req.Requests[0].DeleteDimension.Range
		f.grid = append(f.grid[:rng.StartIndex], f.grid[rng.EndIndex:]...)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case strings.HasSuffix(path, ":append"):
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.grid = append(f.grid, vr.Values...)
		f.appends++
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRows":1}}`))
	case strings.Contains(path, "/values/"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          f.title + "!A1:J10",
			"majorDimension": "ROWS",
			"values":         f.grid,
		})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 0, "title": f.title}},
			},
		})
	}
}

func newFakeService(t *testing.T, fake *fakeSheets) *gsheet.Service {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return svc
}

func TestSheetTable_RoundTrip(t *testing.T) {
	fake := &fakeSheets{title: "Ledger", grid: [][]any{{"id", "date"}}}
	svc := newFakeService(t, fake)
	ctx := context.Background()

	table, err := OpenTable(ctx, svc, "sheet-1")
	require.NoError(t, err)
	assert.Equal(t, "Ledger", table.Title())

	require.NoError(t, table.AppendRows(ctx, []any{1, "2026-01-02"}))
	require.NoError(t, table.AppendRows(ctx, []any{2, "2026-01-03"}))

	values, err := table.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "2026-01-03", values[2][1])

	require.NoError(t, table.DeleteRow(ctx, 2))

	values, err = table.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "2026-01-03", values[1][1])

	joined := strings.Join(fake.queries, "&")
	assert.Contains(t, joined, "valueRenderOption=UNFORMATTED_VALUE")
	assert.Contains(t, joined, "valueInputOption=RAW")
	assert.Contains(t, joined, "insertDataOption=INSERT_ROWS")
}

func TestSheetTable_AppendRowsSingleRequest(t *testing.T) {
	fake := &fakeSheets{title: "Ledger"}
	svc := newFakeService(t, fake)
	ctx := context.Background()

	table, err := OpenTable(ctx, svc, "sheet-1")
	require.NoError(t, err)

	require.NoError(t, table.AppendRows(ctx, []any{"id", "date"}, []any{1, "2026-01-02"}))

	values, err := table.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "id", values[0][0])

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.appends)
}

func TestSheetTable_UpdateRow(t *testing.T) {
	fake := &fakeSheets{title: "Ledger", grid: [][]any{{"id", "date"}, {1.0, "2026-01-02"}, {2.0, "2026-01-03"}}}
	svc := newFakeService(t, fake)
	ctx := context.Background()

	table, err := OpenTable(ctx, svc, "sheet-1")
	require.NoError(t, err)

	require.NoError(t, table.UpdateRow(ctx, 3, []any{2, ""}))

	values, err := table.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "", values[2][1])
	assert.Equal(t, "2026-01-02", values[1][1])

	err = table.UpdateRow(ctx, 0, []any{1})
	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
}

func TestSheetTable_DeleteRowRejectsHeaderlessIndex(t *testing.T) {
	table := &SheetTable{}
	err := table.DeleteRow(context.Background(), 0)

	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
}

func TestProvider_ReusesHandle(t *testing.T) {
	fake := &fakeSheets{title: "Sheet1"}
	svc := newFakeService(t, fake)

	p := NewProvider("sheet-1", "", zerolog.Nop())
	opens := 0
	p.open = func(ctx context.Context) (*SheetTable, error) {
		opens++
		return OpenTable(ctx, svc, "sheet-1")
	}

	ctx := context.Background()
	first, err := p.Table(ctx)
	require.NoError(t, err)
	second, err := p.Table(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, opens)

	p.Invalidate()
	_, err = p.Table(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, opens)
}

func TestProvider_DropsHandleOnAuthFailure(t *testing.T) {
	fake := &fakeSheets{title: "Sheet1"}
	svc := newFakeService(t, fake)

	p := NewProvider("sheet-1", "", zerolog.Nop())
	opens := 0
	p.open = func(ctx context.Context) (*SheetTable, error) {
		opens++
		return OpenTable(ctx, svc, "sheet-1")
	}

	ctx := context.Background()
	table, err := p.Table(ctx)
	require.NoError(t, err)

	fake.mu.Lock()
	fake.authFail = true
	fake.mu.Unlock()

	_, err = table.Values(ctx)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "read values", remote.Op)

	fake.mu.Lock()
	fake.authFail = false
	fake.mu.Unlock()

	_, err = p.Table(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, opens)
}

func TestProvider_ConfigurationErrors(t *testing.T) {
	notJSON := base64.StdEncoding.EncodeToString([]byte("not json"))

	tests := []struct {
		name          string
		spreadsheetID string
		credentials   string
	}{
		{"missing spreadsheet id", "", notJSON},
		{"missing credentials", "sheet-1", ""},
		{"credentials not base64", "sheet-1", "%%%"},
		{"credentials not json", "sheet-1", notJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.spreadsheetID, tt.credentials, zerolog.Nop())
			_, err := p.Table(context.Background())
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, true},
		{"forbidden", &googleapi.Error{Code: 403}, true},
		{"rate limited", &googleapi.Error{Code: 429}, false},
		{"token refresh", &oauth2.RetrieveError{}, true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthFailure(tt.err))
		})
	}
}

func TestQuoteTitle(t *testing.T) {
	assert.Equal(t, "'Sheet1'", quoteTitle("Sheet1"))
	assert.Equal(t, "'Bob''s ledger'", quoteTitle("Bob's ledger"))
}
