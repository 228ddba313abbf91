package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestHeaderRange(t *testing.T) {
	cases := map[string]string{
		"StockMovements!A:K": "StockMovements!A1:K1",
		"A:K":                "A1:K1",
		"Ledger!AA:AZ":       "Ledger!AA1:AZ1",
		"Ledger!A2:K":        "Ledger!A2:K",
		"Ledger":             "Ledger",
	}
	for in, want := range cases {
		assert.Equal(t, want, headerRange(in), in)
	}
}

type sheetCall struct {
	method string
	path   string
	values [][]interface{}
}

// fakeSheetsAPI answers values.get with existing and records every write.
func fakeSheetsAPI(t *testing.T, existing [][]interface{}) (*httptest.Server, *[]sheetCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []sheetCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := sheetCall{method: r.Method, path: r.URL.Path}
		if r.Method != http.MethodGet {
			var body struct {
				Values [][]interface{} `json:"values"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			call.values = body.Values
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{"range": "Ledger!A1:K1", "values": existing})
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestSheet(t *testing.T, srv *httptest.Server) *LedgerSheet {
	t.Helper()
	sheet, err := newLedgerSheet(context.Background(), "sheet-1", "Ledger!A:K", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return sheet
}

func TestEnsureHeaderWritesColumnsIntoEmptySheet(t *testing.T) {
	srv, calls := fakeSheetsAPI(t, nil)
	sheet := newTestSheet(t, srv)

	require.NoError(t, sheet.EnsureHeader(context.Background()))

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.True(t, strings.HasSuffix((*calls)[0].path, "/values/Ledger!A1:K1"), (*calls)[0].path)
	assert.Equal(t, http.MethodPut, (*calls)[1].method)
	require.Len(t, (*calls)[1].values, 1)
	assert.Len(t, (*calls)[1].values[0], len(ledgerColumns))
	assert.Equal(t, "movement_date", (*calls)[1].values[0][0])
}

func TestEnsureHeaderLeavesExistingHeader(t *testing.T) {
	srv, calls := fakeSheetsAPI(t, [][]interface{}{{"movement_date", "tenant_id"}})
	sheet := newTestSheet(t, srv)

	require.NoError(t, sheet.EnsureHeader(context.Background()))
	assert.Len(t, *calls, 1)
}

func TestAppendRowsPostsToLedgerRange(t *testing.T) {
	srv, calls := fakeSheetsAPI(t, nil)
	sheet := newTestSheet(t, srv)

	require.NoError(t, sheet.AppendRows(context.Background(), nil))
	assert.Empty(t, *calls)

	require.NoError(t, sheet.AppendRows(context.Background(), [][]interface{}{{"2026-04-02T10:30:00Z", "acme"}}))
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.True(t, strings.HasSuffix((*calls)[0].path, "/values/Ledger!A:K:append"), (*calls)[0].path)
	assert.Equal(t, [][]interface{}{{"2026-04-02T10:30:00Z", "acme"}}, (*calls)[0].values)
}

func TestNewLedgerSheetRequiresTarget(t *testing.T) {
	_, err := newLedgerSheet(context.Background(), "", "Ledger!A:K", nil, option.WithoutAuthentication())
	assert.Error(t, err)
	_, err = newLedgerSheet(context.Background(), "sheet-1", "", nil, option.WithoutAuthentication())
	assert.Error(t, err)
}
