package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/sheets-ledger/internal/api/handlers"
	"github.com/dvloznov/sheets-ledger/internal/export"
	"github.com/dvloznov/sheets-ledger/internal/jobs"
	"github.com/dvloznov/sheets-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/sheets"
	"github.com/dvloznov/sheets-ledger/internal/web"
)

func header() []any {
	out := make([]any, len(ledger.Columns))
	for i, c := range ledger.Columns {
		out[i] = c
	}
	return out
}

func threeRows() [][]any {
	return [][]any{
		header(),
		{1.0, "2026-01-01", "income", 100.0, "fee", "Ann", "P1", "555-1", "cash", ""},
		{2.0, "2026-01-02", "expense", 40.0, "supplies", "", "", "", "card", "gloves"},
		{3.0, "2026-01-03", "income", 75.0, "fee", "Bob", "P2", "555-2", "cash", ""},
	}
}

type testServer struct {
	handler http.Handler
	table   *sheets.MemoryTable
	store   *inmemory.Store
	queue   *inmemory.Queue
}

type stubSink struct{ name string }

func (s stubSink) Name() string { return s.name }

func (s stubSink) Write(ctx context.Context, snap *ledger.Snapshot) (string, error) {
	return "stub://" + s.name, nil
}

func newTestServer(t *testing.T, source sheets.Source, table *sheets.MemoryTable) *testServer {
	t.Helper()
	log := zerolog.Nop()

	l := ledger.New(source, ledger.Positional{}, ledger.WithClock(func() time.Time {
		return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	}))

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, store).WithRetries(0, time.Millisecond)
	svc := export.NewService(l, log, stubSink{name: export.TargetGCS})
	require.NoError(t, queue.Start(context.Background(), svc.Handle))
	t.Cleanup(func() { _ = queue.Close() })

	h := NewRouter(Deps{
		Transactions: handlers.NewTransactionsHandler(l, log),
		Exports:      handlers.NewExportsHandler(svc, queue, log),
		Jobs:         handlers.NewJobsHandler(store, log),
		Static:       web.NewHandler("", log),
	}, log)

	return &testServer{handler: h, table: table, store: store, queue: queue}
}

func newMemoryServer(t *testing.T, rows ...[]any) *testServer {
	table := sheets.NewMemoryTable(rows...)
	return newTestServer(t, table, table)
}

func (s *testServer) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func listRecords(t *testing.T, s *testServer) []map[string]any {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateOnHeaderOnlySheet(t *testing.T) {
	s := newMemoryServer(t, header())

	rec := s.do(t, http.MethodPost, "/api/transactions", []byte(`{"type":"income","amount":100,"category":"fee"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Transaction added","id":1}`, rec.Body.String())

	records := listRecords(t, s)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{
		"id": 1.0, "date": "2026-10-17", "type": "income", "amount": 100.0, "category": "fee",
		"patientName": "", "patientId": "", "phone": "", "payment": "", "notes": "",
	}, records[0])
}

func TestCreateWithoutData(t *testing.T) {
	for _, body := range [][]byte{nil, []byte(""), []byte("{}"), []byte("null"), []byte("[]")} {
		s := newMemoryServer(t, threeRows()...)

		rec := s.do(t, http.MethodPost, "/api/transactions", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, string(body))
		assert.Equal(t, map[string]any{"error": "No data"}, decode(t, rec))
		assert.Zero(t, s.table.Mutations())
	}
}

func TestCreateMalformedJSON(t *testing.T) {
	s := newMemoryServer(t, threeRows()...)

	rec := s.do(t, http.MethodPost, "/api/transactions", []byte(`{"type":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.table.Mutations())
}

func TestDeleteShiftsPositionalIDs(t *testing.T) {
	s := newMemoryServer(t, threeRows()...)

	rec := s.do(t, http.MethodDelete, "/api/transactions/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Deleted"}`, rec.Body.String())

	records := listRecords(t, s)
	require.Len(t, records, 2)
	assert.Equal(t, 2.0, records[1]["id"])
	assert.Equal(t, "2026-01-03", records[1]["date"])
}

func TestDeleteOutOfRange(t *testing.T) {
	for _, path := range []string{
		"/api/transactions/4",
		"/api/transactions/99",
		"/api/transactions/0",
		"/api/transactions/99999999999999999999999",
	} {
		s := newMemoryServer(t, threeRows()...)

		rec := s.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, map[string]any{"error": "Not found"}, decode(t, rec))
		assert.Zero(t, s.table.Mutations())
	}
}

func TestDeleteNonIntegerDoesNotRoute(t *testing.T) {
	s := newMemoryServer(t, threeRows()...)

	for _, path := range []string{"/api/transactions/abc", "/api/transactions/-1", "/api/transactions/1.5"} {
		rec := s.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Zero(t, s.table.Mutations())
}

func TestListEmptySheet(t *testing.T) {
	s := newMemoryServer(t)

	rec := s.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

type brokenSource struct{ err error }

func (b brokenSource) Table(ctx context.Context) (sheets.Table, error) {
	return nil, b.err
}

func TestRemoteAndConfigurationFailures(t *testing.T) {
	for _, cause := range []error{
		sheets.ErrConfiguration,
		&sheets.RemoteError{Op: "read values", Err: errors.New("503")},
	} {
		s := newTestServer(t, brokenSource{err: cause}, sheets.NewMemoryTable())

		for _, tc := range []struct{ method, path, body string }{
			{http.MethodGet, "/api/transactions", ""},
			{http.MethodPost, "/api/transactions", `{"type":"income"}`},
			{http.MethodDelete, "/api/transactions/1", ""},
		} {
			var body []byte
			if tc.body != "" {
				body = []byte(tc.body)
			}
			rec := s.do(t, tc.method, tc.path, body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code, "%s %s", tc.method, tc.path)
			assert.Equal(t, map[string]any{"error": "Internal server error"}, decode(t, rec))
		}
	}
}

func TestExportJobLifecycle(t *testing.T) {
	s := newMemoryServer(t, threeRows()...)

	rec := s.do(t, http.MethodPost, "/api/exports", []byte(`{"target":"gcs"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "gcs", body["target"])
	assert.Equal(t, "pending", body["status"])

	require.Eventually(t, func() bool {
		job, err := s.store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode(t, rec)
	assert.Equal(t, 3.0, job["record_count"])
	assert.Equal(t, "stub://gcs", job["location"])

	rec = s.do(t, http.MethodGet, "/api/jobs?target=gcs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/exports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"targets":["gcs"]}`, rec.Body.String())
}

func TestExportRejectsUnknownTarget(t *testing.T) {
	s := newMemoryServer(t, threeRows()...)

	for _, body := range []string{`{"target":"notion"}`, `{}`, `nope`} {
		rec := s.do(t, http.MethodPost, "/api/exports", []byte(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	jobsList, err := s.store.ListJobs(context.Background(), jobs.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobsList)
}

func TestGetUnknownJob(t *testing.T) {
	s := newMemoryServer(t)

	rec := s.do(t, http.MethodGet, "/api/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"error": "Job not found"}, decode(t, rec))
}

func TestHealthAndIndex(t *testing.T) {
	s := newMemoryServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	_, err := time.Parse(time.RFC3339, body["time"].(string))
	assert.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestRequestIDAndCORSHeaders(t *testing.T) {
	s := newMemoryServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}
