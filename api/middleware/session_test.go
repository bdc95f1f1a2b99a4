package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/cartflow/internal/session"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

type memSessionStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memSessionStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memSessionStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memSessionStore) Expire(context.Context, string, time.Duration) error { return nil }

func (m *memSessionStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memSessionStore) SessionKey(id string) string { return "test:session:" + id }

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(&memSessionStore{data: map[string]string{}}, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestSessionMiddlewareRequiresHeader(t *testing.T) {
	mw := Session(newTestManager(t), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a session header")
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := errorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error code %s", code)
	}
}

func TestSessionMiddlewareUnknownSession(t *testing.T) {
	mw := Session(newTestManager(t), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for unknown sessions")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, uuid.NewString())
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestSessionMiddlewareInjectsSession(t *testing.T) {
	mgr := newTestManager(t)
	sess, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var got *session.Session
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, sess.ID())
	resp := httptest.NewRecorder()
	Session(mgr, nil)(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if got == nil || got.ID() != sess.ID() {
		t.Fatalf("expected session %s in context, got %v", sess.ID(), got)
	}
}

func TestSessionFromContextEmpty(t *testing.T) {
	if SessionFromContext(context.Background()) != nil {
		t.Fatal("expected nil session from bare context")
	}
}
