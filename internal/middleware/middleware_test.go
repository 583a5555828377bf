package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"codescout/internal/domain/models"
	"codescout/internal/httputil"
)

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) VerifyToken(tokenString string) (*models.SupabaseClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: f.userID},
	}, nil
}

func (f *fakeVerifier) Close() error { return nil }

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantStatus int
	}{
		{"no header", "", &fakeVerifier{userID: "u1"}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &fakeVerifier{userID: "u1"}, http.StatusUnauthorized},
		{"empty token", "Bearer ", &fakeVerifier{userID: "u1"}, http.StatusUnauthorized},
		{"rejected token", "Bearer tok", &fakeVerifier{err: errors.New("expired")}, http.StatusUnauthorized},
		{"valid token", "Bearer tok", &fakeVerifier{userID: "u1"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID = httputil.GetUserID(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(tt.verifier)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotUserID != "u1" {
				t.Errorf("user id = %q, want u1", gotUserID)
			}
		})
	}
}

func TestAuthAllowsHealthUnauthenticated(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	Auth(&fakeVerifier{err: errors.New("unused")})(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/repos", nil)
	rec := httptest.NewRecorder()
	Recovery(logger)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
