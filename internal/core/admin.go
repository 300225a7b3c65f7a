package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/sirupsen/logrus"
)

// CommandView is the JSON form of one compiled node
type CommandView struct {
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	ID          string        `json:"id,omitempty"`
	Description string        `json:"description"`
	Options     []OptionView  `json:"options,omitempty"`
	Children    []CommandView `json:"children,omitempty"`
}

// OptionView is the JSON form of one leaf option
type OptionView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Choices     []string `json:"choices,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// ScopeView reports the registration state of one scope
type ScopeView struct {
	Scope    string        `json:"scope"`
	State    string        `json:"state"`
	Error    string        `json:"error,omitempty"`
	Unbound  []string      `json:"unbound,omitempty"`
	Commands []CommandView `json:"commands,omitempty"`
}

// DescribeTree renders a compiled tree for humans and tools
func DescribeTree(t *slash.Tree) []CommandView {
	if t == nil {
		return nil
	}
	return describeNodes(t.Commands())
}

func describeNodes(nodes []*slash.Node) []CommandView {
	out := make([]CommandView, 0, len(nodes))
	for _, n := range nodes {
		v := CommandView{
			Name:        n.Name,
			Kind:        n.Kind.String(),
			ID:          n.ID,
			Description: n.Description,
		}
		for _, o := range n.Options {
			ov := OptionView{
				Name:        o.Name,
				Description: o.Description,
				Type:        o.Type.String(),
				Required:    o.Required,
			}
			if !o.Required {
				ov.Default = o.Default()
			}
			for _, c := range o.Choices {
				ov.Choices = append(ov.Choices, c.Name)
			}
			v.Options = append(v.Options, ov)
		}
		if len(n.Children) > 0 {
			v.Children = describeNodes(n.Children)
		}
		out = append(out, v)
	}
	return out
}

// Scopes reports every scope the engine registers into
func (e *Engine) Scopes() []ScopeView {
	scopes := e.ext.Scopes()
	out := make([]ScopeView, 0, len(scopes))
	for _, s := range scopes {
		v := ScopeView{Scope: s.String(), State: e.ext.State(s).String()}
		if err := e.ext.ScopeError(s); err != nil {
			v.Error = err.Error()
		}
		if t := e.ext.Tree(s); t != nil {
			v.Unbound = t.Unbound()
			v.Commands = DescribeTree(t)
		}
		out = append(out, v)
	}
	return out
}

// AdminHandler returns the admin HTTP API:
//
//	GET  /healthz   liveness
//	GET  /readyz    503 until every scope is registered
//	GET  /metrics   Prometheus metrics
//	GET  /commands  compiled trees and registration state per scope
//	POST /sync      re-register every scope now
func (e *Engine) AdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", e.handleReady)
	r.Method(http.MethodGet, "/metrics", e.metrics.Handler())
	r.Get("/commands", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, e.Scopes())
	})
	r.Post("/sync", e.handleSync)
	return r
}

func (e *Engine) handleReady(w http.ResponseWriter, _ *http.Request) {
	scopes := e.Scopes()
	status := http.StatusOK
	for _, s := range scopes {
		if s.State != slash.StateRegistered.String() {
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, scopes)
}

func (e *Engine) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := e.ext.Sync(r.Context()); err != nil {
		logger.WithError(err).Warn("admin-triggered-sync-failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"scopes": e.Scopes(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scopes": e.Scopes()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Warn("failed-to-write-admin-response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("admin-request")
	})
}

// serveAdmin runs server until it is shut down
func serveAdmin(server *http.Server) error {
	logger.WithField("address", server.Addr).Info("admin-server-listening")

	// When Shutdown() is called, ListenAndServe will return ErrServerClosed
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("admin-server-error: %v", err)
		return err
	}

	logger.Info("admin-server-stopped")
	return nil
}
