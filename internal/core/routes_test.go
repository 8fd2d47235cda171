package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"qrfeedback/internal/config"
)

func TestMountRoutes_Health(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestMountRoutes_V1Registrars(t *testing.T) {
	s := testServer(t)
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	})
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", w.Code)
	}
}

func TestMountRoutes_RootRegistrars(t *testing.T) {
	s := testServer(t)
	s.RootRouteRegistrars = append(s.RootRouteRegistrars, func(r chi.Router) {
		r.Post("/api/create-checkout", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/create-checkout", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequestTimeout_ConfigOverride(t *testing.T) {
	s := testServer(t)
	if got := s.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("default timeout = %v", got)
	}

	s.Config = &config.Config{Server: config.ServerConfig{RequestTimeout: 5 * time.Second}}
	if got := s.requestTimeout(); got != 5*time.Second {
		t.Errorf("configured timeout = %v, want 5s", got)
	}
}

func TestContextTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadlineSet bool
	h := ContextTimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !deadlineSet {
		t.Error("expected request context to carry a deadline")
	}
}

func TestNewServer_FailFast(t *testing.T) {
	if _, err := NewServer(nil, testLogger()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestShutdown_RunsClosers(t *testing.T) {
	s := testServer(t)

	var order []string
	s.RegisterCloser(func() error { order = append(order, "db"); return nil })
	s.RegisterCloser(func() error { order = append(order, "other"); return errors.New("close failed") })

	err := s.Shutdown(context.Background())
	if err == nil {
		t.Error("expected first closer error to be returned")
	}
	if len(order) != 2 || order[0] != "db" {
		t.Errorf("closers ran in order %v", order)
	}
}
