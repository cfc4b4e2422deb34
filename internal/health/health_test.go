package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/zgraper/phonemefix/internal/health"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{
		Name:  "broken",
		Check: func(context.Context) error { return errors.New("down") },
	})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "ok" {
		t.Errorf("body status = %v, want ok", got)
	}
}

func TestReadyzAllPass(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "history", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "transcriber", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	checks, _ := body["checks"].(map[string]any)
	if checks["history"] != "ok" || checks["transcriber"] != "ok" {
		t.Errorf("checks = %v, want all ok", checks)
	}
}

func TestReadyzRunsCheckersConcurrently(t *testing.T) {
	t.Parallel()

	// Both checkers block until the other has started. Sequential
	// evaluation would time the first one out.
	var started atomic.Int32
	both := make(chan struct{})
	rendezvous := func(ctx context.Context) error {
		if started.Add(1) == 2 {
			close(both)
		}
		select {
		case <-both:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h := health.New(
		health.Checker{Name: "history", Check: rendezvous},
		health.Checker{Name: "transcriber", Check: rendezvous},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	checks, _ := decodeBody(t, rec)["checks"].(map[string]any)
	if checks["history"] != "ok" || checks["transcriber"] != "ok" {
		t.Errorf("checks = %v, want all ok", checks)
	}
}

func TestReadyzFailure(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "history", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "transcriber", Check: func(context.Context) error { return errors.New("unreachable") }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "fail" {
		t.Errorf("body status = %v, want fail", body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["transcriber"] != "fail: unreachable" {
		t.Errorf("transcriber check = %v, want fail: unreachable", checks["transcriber"])
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
