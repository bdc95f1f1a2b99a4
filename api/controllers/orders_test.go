package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/cartflow/api/middleware"
	"github.com/angelmondragon/cartflow/internal/orders"
	"github.com/angelmondragon/cartflow/internal/session"
	"github.com/angelmondragon/cartflow/pkg/db/models"
	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/pagination"
)

type stubOrders struct {
	result *orders.Result
	err    error
	rows   []models.OrderSubmission
	next   string
	params pagination.Params
}

func (s *stubOrders) PlaceOrder(context.Context, *session.Session) (*orders.Result, error) {
	return s.result, s.err
}

func (s *stubOrders) ListSubmissions(_ context.Context, _ string, params pagination.Params) (*orders.SubmissionPage, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &orders.SubmissionPage{Items: s.rows, NextCursor: s.next}, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memStore) Expire(context.Context, string, time.Duration) error { return nil }

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) SessionKey(id string) string { return "test:" + id }

func sessionRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	mgr, err := session.NewManager(&memStore{data: map[string]string{}}, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	sess, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithSession(req.Context(), sess))
}

func TestOrderPlaceStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		svc    *stubOrders
		status int
	}{
		{"created", &stubOrders{result: &orders.Result{OrderID: 9, Applied: true}}, http.StatusCreated},
		{"replayed", &stubOrders{result: &orders.Result{OrderID: 9, Replayed: true}}, http.StatusOK},
		{"rejected", &stubOrders{err: pkgerrors.New(pkgerrors.CodeUpstreamRejected, "WooCommerce Order Failed").WithHTTPStatus(http.StatusBadRequest)}, http.StatusBadRequest},
		{"editing", &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "finish editing")}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		OrderPlace(tt.svc, nil).ServeHTTP(resp, sessionRequest(t, http.MethodPost, "/api/v1/orders"))
		if resp.Code != tt.status {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.status, resp.Code)
		}
	}
}

func TestOrderPlaceReturnsOrderDocument(t *testing.T) {
	svc := &stubOrders{result: &orders.Result{
		OrderID: 9,
		Applied: true,
		Order:   json.RawMessage(`{"id":9,"currency":"USD","line_items":[]}`),
	}}
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, sessionRequest(t, http.MethodPost, "/api/v1/orders"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			OrderID int64 `json:"order_id"`
			Order   struct {
				Currency string `json:"currency"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.OrderID != 9 || envelope.Data.Order.Currency != "USD" {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}

func TestOrderPlaceWithoutSession(t *testing.T) {
	resp := httptest.NewRecorder()
	OrderPlace(&stubOrders{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderSubmissionsMapsRows(t *testing.T) {
	orderID := int64(77)
	svc := &stubOrders{rows: []models.OrderSubmission{{
		ID:              "sub-1",
		Status:          enums.SubmissionStatusAccepted,
		LineItemCount:   2,
		ShippingTotal:   "5.00",
		UpstreamOrderID: &orderID,
	}}, next: "abc"}

	resp := httptest.NewRecorder()
	OrderSubmissions(svc, nil).ServeHTTP(resp, sessionRequest(t, http.MethodGet, "/api/v1/orders?limit=5&cursor=xyz"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.params.Limit != 5 || svc.params.Cursor != "xyz" {
		t.Fatalf("unexpected params %+v", svc.params)
	}

	var envelope struct {
		Data struct {
			Submissions []submissionResponse `json:"submissions"`
			NextCursor  string               `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	got := envelope.Data.Submissions
	if len(got) != 1 || got[0].ID != "sub-1" || got[0].UpstreamOrderID == nil || *got[0].UpstreamOrderID != 77 {
		t.Fatalf("unexpected submissions %+v", got)
	}
	if envelope.Data.NextCursor != "abc" {
		t.Fatalf("expected next cursor, got %q", envelope.Data.NextCursor)
	}
}

func TestOrderSubmissionsRejectsBadLimit(t *testing.T) {
	resp := httptest.NewRecorder()
	OrderSubmissions(&stubOrders{}, nil).ServeHTTP(resp, sessionRequest(t, http.MethodGet, "/api/v1/orders?limit=500"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
