package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/collector"
	"github.com/sells-group/finmetrics/internal/export"
	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/pipeline"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const (
	configuredToken = "0123456789abcdef0123456789abcdef"
	requestToken    = "fedcba9876543210fedcba9876543210"
)

// tableSource serves income rows for the annual period ids it knows.
type tableSource map[string]map[string]float64

func (s tableSource) Fetch(_ context.Context, table model.ReportTable, company, periodID string) ([]model.RawRecord, error) {
	if table != model.TableIncome {
		return nil, nil
	}
	fields, ok := s[company+"|"+periodID]
	if !ok {
		return nil, nil
	}
	return []model.RawRecord{{Company: company, PeriodID: periodID, Fields: fields}}, nil
}

type testEnv struct {
	server  *httptest.Server
	exports *export.Writer
	mu      sync.Mutex
	tokens  []string
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	src := tableSource{
		"600000.SH|20221231": {"revenue": 1000, "oper_cost": 600},
	}
	env := &testEnv{exports: export.NewWriter(t.TempDir())}
	p := pipeline.New(src, pipeline.WithExporter(env.exports))
	srv := NewServer(p, env.exports,
		WithToken(token),
		WithSourceFactory(func(tok string) collector.Source {
			env.mu.Lock()
			env.tokens = append(env.tokens, tok)
			env.mu.Unlock()
			return src
		}),
	)
	env.server = httptest.NewServer(srv.Router())
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) post(t *testing.T, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.server.URL+"/api/financials", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

const validBody = `{"symbols":["600000.sh"],"period_type":"year","start_year":2022,"end_year":2022,"filename":"bank"}`

func TestHealth(t *testing.T) {
	env := newTestEnv(t, configuredToken)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFinancials_Success(t *testing.T) {
	env := newTestEnv(t, configuredToken)

	resp, body := env.post(t, validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.Equal(t, "bank.xlsx", body["download_token"])
	cols, ok := body["columns"].([]any)
	require.True(t, ok)
	assert.Len(t, cols, len(model.DisplayColumns))

	rows, ok := body["table"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "600000.SH", row["company"])
	assert.EqualValues(t, 40, row["gross_margin_pct"])
	assert.Nil(t, row["net_profit"])

	env.mu.Lock()
	assert.Empty(t, env.tokens, "configured source is reused")
	env.mu.Unlock()
}

func TestFinancials_RequestToken(t *testing.T) {
	env := newTestEnv(t, configuredToken)

	body := strings.Replace(validBody, `{`, `{"token":"`+requestToken+`",`, 1)
	resp, _ := env.post(t, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.mu.Lock()
	defer env.mu.Unlock()
	assert.Equal(t, []string{requestToken}, env.tokens)
}

func TestFinancials_Errors(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed json",
			token:      configuredToken,
			body:       `{"symbols":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "reversed years",
			token:      configuredToken,
			body:       `{"symbols":["A"],"period_type":"year","start_year":2023,"end_year":2021}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request",
		},
		{
			name:       "short token",
			token:      configuredToken,
			body:       `{"token":"abc","symbols":["A"],"period_type":"year","start_year":2021,"end_year":2021}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request",
		},
		{
			name:       "no token anywhere",
			token:      "",
			body:       validBody,
			wantStatus: http.StatusBadRequest,
			wantError:  "a Tushare token is required",
		},
		{
			name:       "no data",
			token:      configuredToken,
			body:       `{"symbols":["000001.SZ"],"period_type":"year","start_year":2022,"end_year":2022}`,
			wantStatus: http.StatusNotFound,
			wantError:  "no financial data found for 000001.SZ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.token)
			resp, body := env.post(t, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t, configuredToken)
	resp, body := env.post(t, validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dl, err := http.Get(env.server.URL + "/api/download/" + body["download_token"].(string))
	require.NoError(t, err)
	defer dl.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, xlsxContentType, dl.Header.Get("Content-Type"))
	assert.Contains(t, dl.Header.Get("Content-Disposition"), `filename="bank.xlsx"`)
}

func TestDownload_Rejected(t *testing.T) {
	env := newTestEnv(t, configuredToken)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(env.exports.Dir()), "secret.xlsx"), []byte("x"), 0o644))

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "backslash traversal", path: `..%5Csecret.xlsx`, wantStatus: http.StatusBadRequest},
		{name: "wrong extension", path: "notes.txt", wantStatus: http.StatusBadRequest},
		{name: "missing", path: "missing.xlsx", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(env.server.URL + "/api/download/" + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, configuredToken)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/financials", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
