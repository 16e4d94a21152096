package handler

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/response"
)

// ReadinessCheck probes one backing dependency.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []ReadinessCheck
	timeout time.Duration
}

func NewHealthHandler(timeout time.Duration, checks ...ReadinessCheck) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{checks: checks, timeout: timeout}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every check concurrently and reports each one by name.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := make([]string, len(h.checks))
	var g errgroup.Group
	for i, c := range h.checks {
		g.Go(func() error {
			if err := c.Check(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	failed := g.Wait() != nil

	out := make(map[string]string, len(h.checks))
	for i, c := range h.checks {
		out[c.Name] = results[i]
	}
	if failed {
		response.Error(w, r, http.StatusServiceUnavailable, response.CodeDependencyUnready, "dependency check failed", out)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": out})
}
