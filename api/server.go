// Package api exposes the HTTP query surface over the store gateway.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eddielth/campus-telemetry/logger"
	"github.com/eddielth/campus-telemetry/store"
)

// Server wraps the HTTP listener and its routes.
type Server struct {
	srv *http.Server
}

// NewServer builds the router over the given gateway.
func NewServer(addr string, gw store.Gateway) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: newRouter(gw),
		},
	}
}

func newRouter(gw store.Gateway) *chi.Mux {
	h := &handler{gw: gw}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.root)
	r.Route("/api", func(r chi.Router) {
		r.Post("/devices", h.createDevice)
		r.Get("/devices", h.listDevices)
		r.Get("/devices/{deviceID}", h.getDevice)
		r.Patch("/devices/{deviceID}", h.patchDevice)
		r.Delete("/devices/{deviceID}", h.deleteDevice)

		r.Post("/telemetry", h.createTelemetry)
		r.Get("/telemetry", h.listTelemetry)

		r.Post("/rules", h.createRule)
		r.Get("/rules", h.listRules)
		r.Delete("/rules/{ruleID}", h.deleteRule)

		r.Get("/alerts", h.listAlerts)
		r.Patch("/alerts/{alertID}", h.patchAlert)
	})

	return r
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		logger.Info("HTTP API listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped: %v", err)
		}
	}()
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed: %v", err)
	}
}
