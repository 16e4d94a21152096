package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/config"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config *config.Config
	Logger *slog.Logger
	Server *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server) *App {
	return &App{Config: cfg, Logger: logger, Server: server}
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting",
			"addr", a.Server.Addr,
			"env", a.Config.Env,
			"confirmation_mode", a.Config.ConfirmationMode,
			"record_store", a.Config.RecordStore,
			"publisher", a.Config.Publisher,
		)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
