package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genkan/pkg/domain"
	"genkan/pkg/requestcontext"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an ID when absent", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get("X-Request-Id"))
	})

	t.Run("honors a caller-supplied ID", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "trace-42")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "trace-42", seen)
		assert.Equal(t, "trace-42", rr.Header().Get("X-Request-Id"))
	})
}

func TestRequestTime(t *testing.T) {
	var first, second string
	h := RequestTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Both reads inside one request must observe the same instant.
		first = requestcontext.Now(r.Context()).String()
		second = requestcontext.Now(r.Context()).String()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, first, second)
}

func TestActorRole(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   domain.Role
	}{
		{"missing header defaults to kiosk", "", domain.RoleKiosk},
		{"staff header", "staff", domain.RoleStaff},
		{"admin header", "admin", domain.RoleAdmin},
		{"garbage falls back to kiosk", "superuser", domain.RoleKiosk},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen domain.Role
			h := ActorRole(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = requestcontext.Role(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RoleHeader, tc.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.want, seen)
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"INTERNAL"}`, rr.Body.String())
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}
