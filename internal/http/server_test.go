package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"household/internal/auth"
	"household/internal/insight"
	"household/internal/metrics"
	"household/internal/services"
	"household/internal/storage"
	"household/internal/storage/memory"
)

type fakeGenerator struct {
	text string
	err  error
}

func (f fakeGenerator) Generate(context.Context, string) (string, error) { return f.text, f.err }

type testServer struct {
	t     *testing.T
	srv   *Server
	store storage.Store
}

func newTestServer(t *testing.T, gen insight.Generator, opts Options) *testServer {
	t.Helper()
	return newTestServerWithStore(t, memory.New(), gen, opts)
}

func newTestServerWithStore(t *testing.T, store storage.Store, gen insight.Generator, opts Options) *testServer {
	t.Helper()
	prompts, err := insight.LoadPrompts()
	if err != nil {
		t.Fatal(err)
	}
	if opts.RateLimitRPS == 0 {
		opts = Options{RateLimitRPS: 1000, RateLimitBurst: 1000}
	}

	srv, err := NewServer(":0", Deps{
		Store:        store,
		Auth:         auth.NewAuthenticator(store, auth.NewJWTManager("0123456789abcdef", time.Hour)),
		Tasks:        services.NewTaskService(store),
		Goals:        services.NewGoalService(store),
		Transactions: services.NewTransactionService(store, nil),
		Dashboard:    services.NewDashboardService(store, store),
		Insights:     insight.NewService(gen, "fake", prompts, time.Second),
		Metrics:      metrics.New(),
	}, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{t: t, srv: srv, store: store}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "203.0.113.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// login registers a fresh account and returns its token.
func (ts *testServer) login(email string) string {
	ts.t.Helper()
	if rec := ts.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ana", "email": email, "password": "s3cret-pass",
	}); rec.Code != http.StatusCreated {
		ts.t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
	}
	rec := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "s3cret-pass"})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	var out struct{ Token string }
	decode(ts.t, rec, &out)
	return out.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// decodeList decodes a JSON array response into a fresh slice.
func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var list []map[string]any
	decode(t, rec, &list)
	return list
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	decode(t, rec, &body)
	if body.Message == "" {
		t.Fatalf("error body without message: %s", rec.Body)
	}
	return body.Error
}

type unreachableStore struct{ *memory.Store }

func (unreachableStore) Ping(context.Context) error {
	return errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
}

func TestReadyHidesStoreError(t *testing.T) {
	ts := newTestServerWithStore(t, unreachableStore{memory.New()}, nil, Options{})

	rec := ts.do(http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") || strings.Contains(rec.Body.String(), "refused") {
		t.Fatalf("store error leaked: %s", rec.Body)
	}
	var body struct {
		Status string
		Checks map[string]string
	}
	decode(t, rec, &body)
	if body.Status != "not_ready" || body.Checks["store"] != "not ready" {
		t.Fatalf("body = %+v", body)
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	for _, path := range []string{"/health", "/ready"} {
		rec := ts.do(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}

	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `route="/health"`) {
		t.Fatalf("metrics status = %d body:\n%s", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodGet, "/nowhere", "", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != CodeNotFound {
		t.Fatalf("unknown route status = %d", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.login("ana@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"duplicate email", http.MethodPost, "/auth/register", "", map[string]string{"name": "B", "email": "ANA@example.com", "password": "another-pass"}, http.StatusConflict, CodeConflict},
		{"weak password", http.MethodPost, "/auth/register", "", map[string]string{"name": "B", "email": "b@example.com", "password": "short"}, http.StatusBadRequest, CodeValidation},
		{"password over bcrypt limit", http.MethodPost, "/auth/register", "", map[string]string{"name": "B", "email": "b@example.com", "password": strings.Repeat("x", 80)}, http.StatusBadRequest, CodeValidation},
		{"invalid email", http.MethodPost, "/auth/register", "", map[string]string{"name": "B", "email": "nope", "password": "long-enough"}, http.StatusBadRequest, CodeValidation},
		{"unknown field", http.MethodPost, "/auth/register", "", `{"name":"B","email":"c@example.com","password":"long-enough","admin":true}`, http.StatusBadRequest, CodeBadRequest},
		{"malformed json", http.MethodPost, "/auth/login", "", `{"email":`, http.StatusBadRequest, CodeBadRequest},
		{"wrong password", http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong-pass"}, http.StatusUnauthorized, CodeUnauthorized},
		{"unknown email", http.MethodPost, "/auth/login", "", map[string]string{"email": "x@example.com", "password": "wrong-pass"}, http.StatusUnauthorized, CodeUnauthorized},
		{"missing token", http.MethodGet, "/tasks", "", nil, http.StatusUnauthorized, CodeUnauthorized},
		{"garbage token", http.MethodGet, "/tasks", "not-a-jwt", nil, http.StatusUnauthorized, CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Fatalf("error = %q, want %q", got, tt.code)
			}
		})
	}

	rec := ts.do(http.MethodGet, "/auth/me", token, nil)
	var me auth.Principal
	decode(t, rec, &me)
	if rec.Code != http.StatusOK || me.Email != "ana@example.com" || me.UserID == "" {
		t.Fatalf("me = %d %+v", rec.Code, me)
	}

	rec = ts.do(http.MethodGet, "/users", token, nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "$2a$") || strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("users leaked a password hash: %s", rec.Body)
	}
	if rec := ts.do(http.MethodGet, "/users/"+me.UserID, token, nil); rec.Code != http.StatusOK {
		t.Fatalf("get user status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/users/missing", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d", rec.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	ana := ts.login("ana@example.com")
	bia := ts.login("bia@example.com")

	rec := ts.do(http.MethodPost, "/tasks", ana, map[string]any{"title": "Lavar louça", "tag": "Casa", "recurring": true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	type taskBody struct {
		ID, Title, Status, UserID string
		Tag                       *string
		Recurring                 bool
	}
	var task taskBody
	decode(t, rec, &task)
	if task.Status != "Pendente" || !task.Recurring || task.UserID == "" {
		t.Fatalf("unexpected task %+v", task)
	}

	if rec := ts.do(http.MethodPost, "/tasks", ana, map[string]any{"title": "x", "userId": "someone-else"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("userId in body must be rejected, status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/tasks", ana, map[string]any{"title": "  "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank title status = %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/tasks?tag=Todos&search=LOUÇA", ana, nil)
	list := decodeList(t, rec)
	if len(list) != 1 {
		t.Fatalf("list = %v", list)
	}
	rec = ts.do(http.MethodGet, "/tasks", bia, nil)
	list = decodeList(t, rec)
	if len(list) != 0 {
		t.Fatalf("other user sees tasks: %v", list)
	}
	if rec := ts.do(http.MethodGet, "/tasks?day=yesterday", ana, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad day status = %d", rec.Code)
	}
	rec = ts.do(http.MethodGet, "/tasks?day=2001-01-01", ana, nil)
	list = decodeList(t, rec)
	if len(list) != 0 {
		t.Fatalf("tasks on another day: %v", list)
	}

	if rec := ts.do(http.MethodPatch, "/tasks/"+task.ID, bia, map[string]any{"title": "hijack"}); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign update status = %d", rec.Code)
	}
	rec = ts.do(http.MethodPatch, "/tasks/"+task.ID, ana, map[string]any{"title": "Lavar a louça", "tag": ""})
	var updated taskBody
	decode(t, rec, &updated)
	if rec.Code != http.StatusOK || updated.Title != "Lavar a louça" || updated.Tag != nil {
		t.Fatalf("update = %d %+v", rec.Code, updated)
	}

	rec = ts.do(http.MethodPatch, "/tasks/"+task.ID+"/done", ana, nil)
	var done taskBody
	decode(t, rec, &done)
	if done.Status != "Concluído" {
		t.Fatalf("done status = %q", done.Status)
	}

	rec = ts.do(http.MethodPatch, "/tasks/renew-recurring", ana, nil)
	var renew services.RenewResult
	decode(t, rec, &renew)
	if rec.Code != http.StatusOK || renew.Generated || renew.Message != services.RenewAlreadyDone {
		t.Fatalf("renew = %d %+v", rec.Code, renew)
	}

	if rec := ts.do(http.MethodDelete, "/tasks/"+task.ID, bia, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodDelete, "/tasks/"+task.ID, ana, nil); rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodPatch, "/tasks/"+task.ID+"/done", ana, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted task status = %d", rec.Code)
	}
}

func TestRenewRecurringGeneratesOncePerDay(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.login("ana@example.com")
	ts.do(http.MethodPost, "/tasks", token, map[string]any{"title": "Regar plantas", "recurring": true})

	ts.srv.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }
	for i, want := range []bool{true, false} {
		rec := ts.do(http.MethodPatch, "/tasks/renew-recurring", token, nil)
		var res services.RenewResult
		decode(t, rec, &res)
		if res.Generated != want {
			t.Fatalf("call %d generated = %v, want %v", i+1, res.Generated, want)
		}
		if want && res.Count != 1 {
			t.Fatalf("count = %d", res.Count)
		}
	}
}

func TestGoalEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.login("ana@example.com")

	rec := ts.do(http.MethodPost, "/goals", token, map[string]any{
		"title": "Viagem", "category": "Lazer", "responsible": "Ana", "deadline": "2025-12-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	type goalBody struct {
		ID        string
		Deadline  *time.Time
		Completed bool
	}
	var goal goalBody
	decode(t, rec, &goal)
	if goal.Deadline == nil {
		t.Fatal("deadline not stored")
	}
	ts.do(http.MethodPost, "/goals", token, map[string]any{"title": "Reserva", "responsible": "Bia"})

	list := decodeList(t, ts.do(http.MethodGet, "/goals?responsible=Ana", token, nil))
	if len(list) != 1 {
		t.Fatalf("responsible filter = %v", list)
	}
	list = decodeList(t, ts.do(http.MethodGet, "/goals?responsible=All", token, nil))
	if len(list) != 2 {
		t.Fatalf("All filter = %v", list)
	}

	rec = ts.do(http.MethodPatch, "/goals/"+goal.ID+"/complete", token, nil)
	var completed goalBody
	decode(t, rec, &completed)
	if !completed.Completed || completed.Deadline == nil {
		t.Fatalf("complete = %+v", completed)
	}
	rec = ts.do(http.MethodPatch, "/goals/"+goal.ID, token, map[string]any{"deadline": nil})
	var cleared goalBody
	decode(t, rec, &cleared)
	if rec.Code != http.StatusOK || cleared.Deadline != nil || !cleared.Completed {
		t.Fatalf("deadline not cleared: %d %s", rec.Code, rec.Body)
	}
	if rec := ts.do(http.MethodPatch, "/goals/"+goal.ID, token, map[string]any{"deadline": "soon"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad deadline status = %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/goals/summary", token, nil)
	var summary struct {
		Total, Completed, Pending int
		MonthlySummary            []struct{ Month string }
	}
	decode(t, rec, &summary)
	if summary.Total != 2 || summary.Completed != 1 || summary.Pending != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if n := len(summary.MonthlySummary); n == 0 || summary.MonthlySummary[n-1].Month != "Sem prazo" {
		t.Fatalf("monthly = %+v", summary.MonthlySummary)
	}

	if rec := ts.do(http.MethodDelete, "/goals/"+goal.ID, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.login("ana@example.com")

	create := func(body map[string]any) map[string]any {
		t.Helper()
		rec := ts.do(http.MethodPost, "/transactions", token, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
		}
		var out map[string]any
		decode(t, rec, &out)
		return out
	}

	salary := create(map[string]any{"title": "Salário", "amount": 5000, "category": "Renda", "date": "2025-03-05", "responsavel": "Ana"})
	rent := create(map[string]any{"title": "Aluguel", "amount": "1500.50", "type": "expense", "category": "Moradia", "date": "2025-03-10"})
	create(map[string]any{"title": "Mercado", "amount": -320.25, "category": "Alimentação", "date": "2025-04-02T12:00:00Z"})

	if salary["type"] != "income" || rent["type"] != "expense" || rent["amount"].(float64) != -1500.5 {
		t.Fatalf("normalization failed: %v %v", salary, rent)
	}

	bad := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"title": "x", "amount": 0, "category": "c", "date": "2025-03-01"}},
		{"type mismatch", map[string]any{"title": "x", "amount": 10, "type": "transfer", "category": "c", "date": "2025-03-01"}},
		{"missing date", map[string]any{"title": "x", "amount": 10, "category": "c"}},
		{"bad amount", map[string]any{"title": "x", "amount": "ten", "category": "c", "date": "2025-03-01"}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(http.MethodPost, "/transactions", token, tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
		})
	}

	list := decodeList(t, ts.do(http.MethodGet, "/transactions?month=2025-03", token, nil))
	if len(list) != 2 || list[0]["title"] != "Aluguel" {
		t.Fatalf("month filter = %v", list)
	}
	list = decodeList(t, ts.do(http.MethodGet, "/transactions?type=expense&startDate=2025-03-01&endDate=2025-04-30", token, nil))
	if len(list) != 2 {
		t.Fatalf("type+range filter = %v", list)
	}
	for _, q := range []string{"month=2025-13", "type=transfer", "startDate=2025-04-01&endDate=2025-03-01"} {
		if rec := ts.do(http.MethodGet, "/transactions?"+q, token, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d", q, rec.Code)
		}
	}

	rec := ts.do(http.MethodPatch, "/transactions/"+rent["id"].(string), token, map[string]any{"type": "income"})
	var updated map[string]any
	decode(t, rec, &updated)
	if updated["amount"].(float64) != 1500.5 || updated["type"] != "income" {
		t.Fatalf("type flip = %v", updated)
	}

	rec = ts.do(http.MethodPost, "/transactions/fill-responsible", token, map[string]string{"responsavel": "Casa"})
	var filled struct{ Updated int }
	decode(t, rec, &filled)
	if filled.Updated != 2 {
		t.Fatalf("filled = %d", filled.Updated)
	}
	if rec := ts.do(http.MethodPost, "/transactions/fill-responsible", token, map[string]string{"responsavel": " "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank responsavel status = %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/transactions/summary-by-responsible", token, nil)
	var summary struct {
		Total              float64
		ResponsibleSummary []struct {
			Responsavel     string
			Income, Expense float64
		}
	}
	decode(t, rec, &summary)
	if summary.Total != 5000+1500.5-320.25 || len(summary.ResponsibleSummary) != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	if rec := ts.do(http.MethodDelete, "/transactions/"+rent["id"].(string), token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.login("ana@example.com")
	ts.do(http.MethodPost, "/tasks", token, map[string]any{"title": "Ler", "tag": "Estudo"})

	for _, path := range []string{"/dashboard/evolution", "/dashboard/produtividade", "/dashboard/tasks-by-category"} {
		rec := ts.do(http.MethodGet, path, token, nil)
		var rows []map[string]any
		decode(t, rec, &rows)
		if rec.Code != http.StatusOK || len(rows) != 1 {
			t.Fatalf("%s = %d %v", path, rec.Code, rows)
		}
	}
}

func TestInsightEndpoints(t *testing.T) {
	tests := []struct {
		name string
		gen  insight.Generator
		want string
	}{
		{"provider answers", fakeGenerator{text: "  Gaste menos com delivery.  "}, "Gaste menos com delivery."},
		{"provider fails", fakeGenerator{err: errors.New("quota")}, insight.Fallback},
		{"empty answer", fakeGenerator{text: " "}, insight.Empty},
		{"no provider", nil, insight.Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.gen, Options{})
			token := ts.login("ana@example.com")

			bodies := map[string]any{
				"/insights/financeiro":    map[string]any{"resumo": "Receitas 5000, despesas 4200"},
				"/insights/produtividade": map[string]any{"produtividade": []map[string]any{{"date": "2025-03-01", "concluidas": 2, "total": 3}}, "categorias": []map[string]any{{"tag": "Casa", "criadas": 3, "concluidas": 2}}},
				"/insights/meta": map[string]any{
					"metas":            []map[string]any{{"id": "g1", "title": "Viagem", "deadline": "2025-12-01", "completed": false, "userId": "u"}},
					"rotinaDiaria":     []map[string]any{{"title": "Ler", "status": "Pendente"}},
					"resumoFinanceiro": "",
				},
			}
			for path, body := range bodies {
				rec := ts.do(http.MethodPost, path, token, body)
				var out struct{ Insight string }
				decode(t, rec, &out)
				if rec.Code != http.StatusOK || out.Insight != tt.want {
					t.Fatalf("%s = %d %q, want %q", path, rec.Code, out.Insight, tt.want)
				}
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, nil, Options{RateLimitRPS: 1, RateLimitBurst: 2})
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.co", "password": "whatever1"})
	}
	if last.Code != http.StatusTooManyRequests || errorCode(t, last) != CodeRateLimited {
		t.Fatalf("status = %d", last.Code)
	}
	if rec := ts.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, status = %d", rec.Code)
	}
}
