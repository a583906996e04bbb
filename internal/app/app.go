// Package app assembles the application: configuration, database,
// Genkit, the knowledge store, retrieval, risk classification, and the
// advisory workflows. Construction happens once in Setup; everything
// else receives its dependencies explicitly.
package app

import (
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homewarden/homewarden/internal/config"
	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/retrieval"
	"github.com/homewarden/homewarden/internal/risk"
	"github.com/homewarden/homewarden/internal/session"
	"github.com/homewarden/homewarden/internal/workflow"
)

// App holds the initialized application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge  *knowledge.Store
	Retrieval  *retrieval.Orchestrator
	Classifier *risk.Classifier
	Sessions   *session.Store

	Asker          *workflow.Asker
	Planner        *workflow.Planner
	Troubleshooter *workflow.Troubleshooter
	Parts          *workflow.PartsHelper
	LoadProfile    workflow.ProfileLoader

	// Cleanup functions, run in reverse initialization order.
	cleanups []func() error
}

// Close releases all resources. Safe to call on a partially
// initialized App (Setup calls it on failure).
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}

func (a *App) addCleanup(fn func() error) {
	a.cleanups = append(a.cleanups, fn)
}
