package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *notify.Recorder) {
	t.Helper()
	events := &notify.Recorder{}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, err := services.NewFinanceService(context.Background(), memory.New(),
		services.WithClock(func() time.Time { return now }),
		services.WithLocation(time.UTC),
		services.WithSink(events),
		services.WithLogger(log.Discard()),
	)
	require.NoError(t, err)

	srv := NewServer(":0", svc, append([]Option{WithLogger(log.Discard())}, opts...)...)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, events
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fintrack_")
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Salary","amount":"1000","type":"income"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Groceries","amount":"250.50","type":"expense","category":"Food"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[core.Transaction](t, rr)
	assert.Equal(t, int64(25050), created.Amount.Cents)
	assert.Equal(t, "Food", created.Category)

	rr = do(t, srv, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]core.Transaction](t, rr)
	require.Len(t, list, 2)
	assert.Equal(t, "Groceries", list[0].Description)

	rr = do(t, srv, http.MethodGet, "/api/overview", "")
	require.Equal(t, http.StatusOK, rr.Code)
	ov := decode[services.Overview](t, rr)
	assert.Equal(t, int64(74950), ov.Totals.Balance.Cents)
	assert.False(t, ov.LowBalance)

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+jsonID(created.ID), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+jsonID(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestCreateTransaction_Errors(t *testing.T) {
	srv, events := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"unknown field", `{"description":"x","amount":"1","type":"expense","category":"a","extra":1}`, http.StatusBadRequest},
		{"bad amount", `{"description":"x","amount":"abc","type":"expense","category":"a"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"description":"x","amount":"1","type":"transfer"}`, http.StatusUnprocessableEntity},
		{"empty description", `{"description":"  ","amount":"1","type":"expense","category":"a"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rr).Error)
		})
	}
	// Malformed bodies never reach the service; every other rejection is
	// reported once.
	assert.Equal(t, []notify.EventType{
		notify.EventValidationFailed,
		notify.EventValidationFailed,
		notify.EventValidationFailed,
	}, events.Types())

	rr := do(t, srv, http.MethodDelete, "/api/transactions/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateTransaction_UnparsableAmountNotifies(t *testing.T) {
	srv, events := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Lunch","amount":"abc","type":"expense","category":"Food"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	got := events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, notify.EventValidationFailed, got[0].Type)
	assert.Contains(t, got[0].Message, "invalid amount")

	rr = do(t, srv, http.MethodGet, "/api/transactions", "")
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestBudgetEndpoints(t *testing.T) {
	srv, events := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/budget", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[budgetResponse](t, rr).Active)

	rr = do(t, srv, http.MethodPost, "/api/budget/reset", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/budget",
		`{"period":"monthly","totalLimit":"100","categories":[{"name":"A","limit":"60"},{"name":"B","limit":"50"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/budget",
		`{"period":"monthly","totalLimit":"100","categories":[{"name":"Food","limit":"60"},{"name":"Fun","limit":"40"}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Taxi","amount":"5","type":"expense","category":"Transport"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Dinner","amount":"85","type":"expense","category":"Food"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/budget", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[budgetResponse](t, rr)
	require.True(t, got.Active)
	assert.Equal(t, int64(8500), got.Status.TotalSpent.Cents)
	assert.True(t, got.Status.Flags.NearLimit)
	assert.Equal(t, "16d 14h 0m", got.Countdown)
	assert.Contains(t, events.Types(), notify.EventNearLimit)

	rr = do(t, srv, http.MethodPost, "/api/budget/reconcile", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[reconcileResponse](t, rr).Repaired)

	rr = do(t, srv, http.MethodPost, "/api/budget/reset", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodGet, "/api/budget", "")
	assert.Zero(t, decode[budgetResponse](t, rr).Status.TotalSpent.Cents)
}

func TestChart(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Lunch","amount":"12","type":"expense","category":"Food"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	tests := []struct {
		query string
		len   int
	}{
		{"", 7},
		{"?period=daily", 7},
		{"?period=weekly", 8},
		{"?period=monthly", 12},
		{"?period=yearly", 5},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/chart"+tt.query, "")
		require.Equal(t, http.StatusOK, rr.Code, tt.query)
		got := decode[chartResponse](t, rr)
		assert.Len(t, got.Labels, tt.len, tt.query)
		assert.Equal(t, int64(1200), got.Summary.Expense.Cents, tt.query)
	}

	rr = do(t, srv, http.MethodGet, "/api/chart?period=hourly", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestDraftEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/draft", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/draft",
		`{"period":"weekly","totalLimit":"not yet","categories":[{"name":" Food\u0007 ","limit":""}]}`)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/draft", "")
	require.Equal(t, http.StatusOK, rr.Code)
	d := decode[core.BudgetDraft](t, rr)
	assert.Equal(t, "not yet", d.TotalLimit)
	assert.Equal(t, "Food", d.Categories[0].Name)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(2))
	body := `{"description":"x","amount":"1","type":"income"}`
	for i := 0; i < 2; i++ {
		rr := do(t, srv, http.MethodPost, "/api/transactions", body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/transactions", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are not limited.
	rr = do(t, srv, http.MethodGet, "/api/transactions", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:5555", "", "203.0.113.7"},
		{"untrusted peer ignores header", "203.0.113.7:5555", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad header", "127.0.0.1:80", "garbage", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, extractClientIP(r))
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello world", sanitizeInput("  hello\x00 world\x1f "))
	assert.Equal(t, "a\tb", sanitizeInput("a\tb"))
}
