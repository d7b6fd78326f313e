package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pocketops/internal/core"
	"pocketops/internal/ledger/memory"
	"pocketops/internal/log"
	"pocketops/internal/middleware/ratelimit"
	"pocketops/internal/services"
)

var testNow = time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := memory.New()
	n := 0
	clock := services.WithClock(func() time.Time { return testNow })
	ids := services.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	ledger := services.NewLedgerService(store, nil, clock, ids)
	reports := services.NewReportService(store, clock)
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	srv := NewServer(":0", ledger, reports, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{Ready: func(context.Context) error { return nil }})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	failing := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if rr := do(t, failing, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"$92.30","merchant":"Woolworths","date":"2026-02-03"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[core.Transaction](t, rr)
	if tx.AmountCents != 9230 || tx.Category != "groceries" || tx.MerchantKey != "woolworths" {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+tx.ID,
		`{"type":"expense","amountCents":8000,"merchant":"Woolworths","category":"groceries","date":"2026-02-03"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	list := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if len(list) != 1 || list[0].AmountCents != 8000 {
		t.Fatalf("unexpected list %+v", list)
	}

	if rr := do(t, srv, http.MethodPut, "/api/transactions/missing",
		`{"type":"expense","amountCents":1,"merchant":"x","date":"2026-02-03"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("update missing status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "zero amount", body: `{"type":"expense","amountCents":0,"merchant":"x"}`, want: http.StatusUnprocessableEntity},
		{name: "bad type", body: `{"type":"gift","amountCents":100,"merchant":"x"}`, want: http.StatusUnprocessableEntity},
		{name: "missing merchant", body: `{"type":"expense","amountCents":100}`, want: http.StatusUnprocessableEntity},
		{name: "bad dollars", body: `{"type":"expense","amount":"abc","merchant":"x"}`, want: http.StatusUnprocessableEntity},
		{name: "bad json", body: `{"type":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body); rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestDashboardCacheInvalidatedOnWrite(t *testing.T) {
	srv := newTestServer(t, Options{})

	if rr := do(t, srv, http.MethodGet, "/api/dashboard?period=year", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad period status=%d", rr.Code)
	}

	first := decode[dashboardResponse](t, do(t, srv, http.MethodGet, "/api/dashboard?period=week", ""))
	if first.Dashboard.Spent != 0 {
		t.Fatalf("spent=%d on empty ledger", first.Dashboard.Spent)
	}
	if srv.dashCache.Size() != 1 {
		t.Fatalf("cache size=%d", srv.dashCache.Size())
	}

	do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amountCents":3410,"merchant":"Opal","date":"2026-02-04"}`)
	if srv.dashCache.Size() != 0 {
		t.Fatal("write did not purge the dashboard cache")
	}

	second := decode[dashboardResponse](t, do(t, srv, http.MethodGet, "/api/dashboard?period=week", ""))
	if second.Dashboard.Spent != 3410 {
		t.Fatalf("spent=%d, want 3410", second.Dashboard.Spent)
	}
	if second.Alerts == nil {
		t.Fatal("alerts must encode as a list")
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/onboarding", `{"payCycle":"monthly","incomePerCycleCents":400000}`)

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Pets","emoji":"🐶"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if cat := decode[core.Category](t, rr); cat.Key != "pets" {
		t.Fatalf("key=%q", cat.Key)
	}
	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"  "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/categories/pets", `{"name":"Pet care","emoji":"🐾"}`)
	if cat := decode[core.Category](t, rr); cat.Label != "Pet care" {
		t.Fatalf("rename returned %+v", cat)
	}

	rr = do(t, srv, http.MethodDelete, "/api/categories/food", "")
	if got := decode[map[string]string](t, rr)["remappedTo"]; got != "transport" {
		t.Fatalf("remappedTo=%q", got)
	}

	hint := decode[map[string]string](t, do(t, srv, http.MethodGet, "/api/category-hint?merchant=Uber%20Eats", ""))
	if hint["category"] == "" {
		t.Fatal("missing hint")
	}
}

func TestBudgetsBillsAndSchedule(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPut, "/api/budgets", `[{"category":"food","cycleBudgetCents":20000}]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save budgets status=%d body=%s", rr.Code, rr.Body.String())
	}
	if budgets := decode[[]core.Budget](t, rr); len(budgets) != 1 || budgets[0].CycleBudgetCents != 20000 {
		t.Fatalf("unexpected budgets %+v", budgets)
	}
	if rr := do(t, srv, http.MethodPut, "/api/budgets", `[{"category":"","cycleBudgetCents":1}]`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid budget status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/bills", `{"name":"Rent","amountCents":40000,"cycle":"weekly"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("bill status=%d body=%s", rr.Code, rr.Body.String())
	}
	bill := decode[core.Bill](t, rr)
	if rr := do(t, srv, http.MethodDelete, "/api/bills/"+bill.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete bill status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/pay-schedule", `{"payCycle":"fortnightly","incomePerCycleCents":250000}`)
	if st := decode[core.AppState](t, rr); st.PayCycle != core.Fortnightly || st.IncomePerCycleCents != 250000 {
		t.Fatalf("unexpected state %+v", st)
	}
	if rr := do(t, srv, http.MethodPut, "/api/pay-schedule", `{"payCycle":"daily"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad cycle status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodGet, "/api/budgets/suggest", ""); rr.Code != http.StatusOK {
		t.Fatalf("suggest status=%d", rr.Code)
	}
}

func TestOnboardingInsightsAndSubscription(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/onboarding", `{"payCycle":"weekly","incomePerCycleCents":100000,"demo":true}`)
	if st := decode[core.AppState](t, rr); !st.OnboardingCompleted {
		t.Fatalf("onboarding not completed: %s", rr.Body.String())
	}

	in := decode[services.Insights](t, do(t, srv, http.MethodGet, "/api/insights", ""))
	if len(in.Subscriptions) != 1 || in.Subscriptions[0].MerchantKey != "spotify" {
		t.Fatalf("unexpected subscriptions %+v", in.Subscriptions)
	}

	if rr := do(t, srv, http.MethodPost, "/api/subscriptions/spotify", ""); rr.Code != http.StatusCreated {
		t.Fatalf("mark subscription status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPost, "/api/subscriptions/spotify", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second mark status=%d", rr.Code)
	}

	in = decode[services.Insights](t, do(t, srv, http.MethodGet, "/api/insights", ""))
	if len(in.Subscriptions) != 0 {
		t.Fatalf("insights cache not purged: %+v", in.Subscriptions)
	}

	if rr := do(t, srv, http.MethodGet, "/api/report/latest", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("latest report status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodPost, "/api/reset", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if st := decode[core.AppState](t, do(t, srv, http.MethodGet, "/api/state", "")); st.OnboardingCompleted {
		t.Fatal("reset kept onboarding state")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	srv := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/onboarding", `{"payCycle":"weekly","incomePerCycleCents":100000,"demo":true}`)

	rr := do(t, srv, http.MethodGet, "/api/export.json", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "pocketops-2026-02-04.json") {
		t.Fatalf("Content-Disposition=%q", got)
	}
	exported := rr.Body.Bytes()

	for _, path := range []string{"/api/export.csv", "/api/export.xlsx"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK || rr.Body.Len() == 0 {
			t.Fatalf("%s status=%d len=%d", path, rr.Code, rr.Body.Len())
		}
	}

	target := newTestServer(t, Options{})
	rr = do(t, target, http.MethodPost, "/api/import", string(exported))
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	if counts := decode[map[string]int](t, rr); counts["transactions"] != 5 || counts["bills"] != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	rr = do(t, target, http.MethodPost, "/api/import", `{"version":2,"transactions":[{"id":"x"}]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid import status=%d", rr.Code)
	}
	if body := decode[errorBody](t, rr); len(body.Errors) == 0 {
		t.Fatal("import problems missing")
	}
	if list := decode[[]core.Transaction](t, do(t, target, http.MethodGet, "/api/transactions", "")); len(list) != 5 {
		t.Fatalf("rejected import changed the ledger: %d transactions", len(list))
	}

	rr = do(t, target, http.MethodPost, "/api/import/validate", `{"transactions":"nope"}`)
	if res := decode[map[string]any](t, rr); res["ok"] != false {
		t.Fatalf("validate returned %v", res)
	}
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: ratelimit.Config{Requests: 2, Window: time.Hour}})

	body := `{"name":"Rent","amountCents":100}`
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/bills", body); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/bills", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "3600" {
		t.Fatalf("Retry-After=%q", rr.Header().Get("Retry-After"))
	}
	// reads are not limited
	if rr := do(t, srv, http.MethodGet, "/api/bills", ""); rr.Code != http.StatusOK {
		t.Fatalf("read status=%d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Options{CORSOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", bytes.NewReader(nil))
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("Allow-Origin=%q", got)
	}
}
