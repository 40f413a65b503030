package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/nevar-bot/nevar-v6-sub000/internal/common/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{Debug: true, ServiceName: "nevar"}
	cfg.Server.Origin = "http://localhost:3000"
	return cfg
}

func TestRouter_HealthEndpoints(t *testing.T) {
	healthy := ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	r := NewRouter(testConfig(), zerolog.Nop(), Services{}, healthy)

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_ReadyReportsFailingDependency(t *testing.T) {
	down := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}
	r := NewRouter(testConfig(), zerolog.Nop(), Services{}, down)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unavailable")
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := NewRouter(testConfig(), zerolog.Nop(), Services{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
