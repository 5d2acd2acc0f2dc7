package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/megharaj2002/canteen/internal/domain/auth"
)

const testSecret = "server-test-secret-0123"

// Response types are declared locally so the tests only see the wire format.

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type productResponse struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Category  string      `json:"category"`
	Price     json.Number `json:"price"`
	Available bool        `json:"available"`
	Image     string      `json:"image"`
}

type placedResponse struct {
	OrderID string      `json:"order_id"`
	Total   json.Number `json:"total"`
}

type orderResponse struct {
	ID             string      `json:"id"`
	Status         string      `json:"status"`
	Total          json.Number `json:"total"`
	FormattedTotal string      `json:"formatted_total"`
	Date           string      `json:"date"`
	Time           string      `json:"time"`
}

type testServer struct {
	t      *testing.T
	url    string
	client *http.Client
	tokens *auth.Tokens
}

func startServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	cfg := &Config{
		Addr:      defaultAddr,
		Storage:   StorageMemory,
		JWTSecret: testSecret,
		Currency:  "INR",
		Language:  "en-IN",
		Timezone:  "Asia/Kolkata",
		RateLimit: RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := Build(ctx, zaptest.NewLogger(t), tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(), cfg)
	if err != nil {
		cancel()
		t.Fatalf("build: %v", err)
	}
	srv.Health.SetReady(true)

	hs := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		hs.Close()
		srv.Close()
		cancel()
	})

	return &testServer{
		t:      t,
		url:    hs.URL,
		client: hs.Client(),
		tokens: auth.NewTokens([]byte(testSecret)),
	}
}

func (s *testServer) token(userID string, role auth.Role) string {
	s.t.Helper()
	tok, err := s.tokens.Issue(auth.Principal{UserID: userID, Role: role}, time.Hour)
	if err != nil {
		s.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, token string, body any, header http.Header) *http.Response {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.url+path, r)
	if err != nil {
		s.t.Fatalf("create request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: got %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := startServer(t, nil)

	for _, path := range []string{"/livez", "/readyz"} {
		resp := s.do(http.MethodGet, path, "", nil, nil)
		expectStatus(t, resp, http.StatusOK)
		if body := decodeJSON[healthResponse](t, resp); body.Status != "ok" {
			t.Fatalf("%s: status %q", path, body.Status)
		}
	}
}

func TestMiddlewareChain(t *testing.T) {
	s := startServer(t, nil)

	resp := s.do(http.MethodGet, "/api/menu", "", nil, http.Header{"X-Request-Id": {"custom-request-id-12345"}})
	expectStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("X-Request-ID"); got != "custom-request-id-12345" {
		t.Errorf("X-Request-ID: got %q", got)
	}
	if resp.Header.Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("X-RateLimit-Limit: got %q", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp = s.do(http.MethodOptions, "/api/cart", "", nil, http.Header{
		"Origin":                        {"http://example.com"},
		"Access-Control-Request-Method": {http.MethodPut},
	})
	expectStatus(t, resp, http.StatusNoContent)
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
}

func TestRateLimited(t *testing.T) {
	s := startServer(t, func(c *Config) { c.RateLimit = RateLimitConfig{Max: 2, Window: time.Hour} })

	for range 2 {
		expectStatus(t, s.do(http.MethodGet, "/api/categories", "", nil, nil), http.StatusOK)
	}
	expectStatus(t, s.do(http.MethodGet, "/api/categories", "", nil, nil), http.StatusTooManyRequests)
}

func TestOrderFlow(t *testing.T) {
	s := startServer(t, func(c *Config) { c.ImageBaseURL = "https://cdn.example" })
	student := s.token("student-1", auth.RoleUser)
	admin := s.token("admin", auth.RoleAdmin)

	menu := decodeJSON[[]productResponse](t, s.do(http.MethodGet, "/api/menu?category=Breakfast", "", nil, nil))
	if len(menu) != 2 {
		t.Fatalf("breakfast menu: got %d products", len(menu))
	}
	if menu[0].Image != "https://cdn.example/images/idli-vada.jpg" {
		t.Errorf("image: got %q", menu[0].Image)
	}

	expectStatus(t, s.do(http.MethodPost, "/api/cart", student, map[string]any{"item_id": "1", "quantity": 2}, nil), http.StatusCreated)
	expectStatus(t, s.do(http.MethodPost, "/api/cart", student, map[string]any{"item_id": "3"}, nil), http.StatusCreated)

	resp := s.do(http.MethodPost, "/api/order", student, nil, nil)
	expectStatus(t, resp, http.StatusCreated)
	placed := decodeJSON[placedResponse](t, resp)
	if placed.Total.String() != "170.00" {
		t.Fatalf("total: got %s, want 170.00", placed.Total)
	}

	expectStatus(t, s.do(http.MethodPost, "/api/order", student, nil, nil), http.StatusBadRequest)

	resp = s.do(http.MethodPut, "/api/admin/orders/"+placed.OrderID+"/status", admin, map[string]string{"order_status": "Ready"}, nil)
	expectStatus(t, resp, http.StatusOK)

	orders := decodeJSON[[]orderResponse](t, s.do(http.MethodGet, "/api/orders", student, nil, nil))
	if len(orders) != 1 {
		t.Fatalf("orders: got %d", len(orders))
	}
	o := orders[0]
	if o.Status != "Ready" || o.Total.String() != "170.00" {
		t.Errorf("order: got status %q total %s", o.Status, o.Total)
	}
	if !bytes.Contains([]byte(o.FormattedTotal), []byte("170")) {
		t.Errorf("formatted_total: got %q", o.FormattedTotal)
	}
	if o.Date == "" || o.Time == "" {
		t.Errorf("date/time missing: %+v", o)
	}

	expectStatus(t, s.do(http.MethodGet, "/api/admin/orders", student, nil, nil), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodGet, "/api/orders", "", nil, nil), http.StatusUnauthorized)
}

func TestEnforcedTransitions(t *testing.T) {
	s := startServer(t, func(c *Config) { c.Orders.EnforceTransitions = true })
	student := s.token("student-1", auth.RoleUser)
	admin := s.token("admin", auth.RoleAdmin)

	expectStatus(t, s.do(http.MethodPost, "/api/cart", student, map[string]any{"item_id": "7"}, nil), http.StatusCreated)
	resp := s.do(http.MethodPost, "/api/order", student, nil, nil)
	expectStatus(t, resp, http.StatusCreated)
	placed := decodeJSON[placedResponse](t, resp)

	path := "/api/admin/orders/" + placed.OrderID + "/status"
	expectStatus(t, s.do(http.MethodPut, path, admin, map[string]string{"order_status": "Delivered"}, nil), http.StatusConflict)
	expectStatus(t, s.do(http.MethodPut, path, admin, map[string]string{"order_status": "Cancelled"}, nil), http.StatusOK)
}
