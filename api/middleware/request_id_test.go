package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDPropagatesOrReplaces(t *testing.T) {
	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{name: "missing", inbound: "", keep: false},
		{name: "trace token", inbound: "edge-7f3a.01:abc", keep: true},
		{name: "header injection", inbound: "abc\" injected", keep: false},
		{name: "too long", inbound: strings.Repeat("a", maxRequestIDLength+1), keep: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				seen = w.Header().Get(requestIDHeader)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set(requestIDHeader, tc.inbound)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got != seen {
				t.Fatalf("header must be set before the handler runs: %q vs %q", seen, got)
			}
			if tc.keep {
				if got != tc.inbound {
					t.Fatalf("expected %q to be kept, got %q", tc.inbound, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}
