// Package runtime assembles the portal from configuration and manages
// its lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/config"
	"github.com/twh-ops/leadportal/internal/portal/confirm"
	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/httpapi"
	"github.com/twh-ops/leadportal/internal/portal/notify"
	"github.com/twh-ops/leadportal/internal/portal/services/auth"
	"github.com/twh-ops/leadportal/internal/portal/services/leads"
	statssvc "github.com/twh-ops/leadportal/internal/portal/services/stats"
	"github.com/twh-ops/leadportal/internal/portal/shiftreport"
	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/internal/portal/storage/memory"
	"github.com/twh-ops/leadportal/internal/portal/storage/mongodoc"
	"github.com/twh-ops/leadportal/internal/portal/storage/postgres"
	"github.com/twh-ops/leadportal/internal/portal/storage/retry"
	"github.com/twh-ops/leadportal/internal/portal/system"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// Application owns every component of a running portal instance.
type Application struct {
	cfg     config.Config
	log     *logger.Logger
	manager *system.Manager
	server  *http.Server
	hub     *notify.Hub
	closers []func(context.Context) error
}

// New builds the application graph from configuration.
func New(ctx context.Context, cfg config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).Named("portal")

	if cfg.Shift.DurationHours > 0 {
		lead.ApplyShift(lead.ShiftConfig{
			StartHour:     cfg.Shift.StartHour,
			DurationHours: cfg.Shift.DurationHours,
		})
	}

	app := &Application{
		cfg:     cfg,
		log:     log,
		manager: system.NewManager(log.Named("system")),
	}

	leadStore, authStore, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	store := retry.Wrap(leadStore, authStore, retry.DefaultPolicy, log.Named("storage.retry"))

	app.hub = notify.NewHub(log.Named("notify.hub"))
	sinks := []notify.Publisher{app.hub}

	if cfg.Redis.Addr != "" {
		pub, err := notify.NewRedisPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
		if err != nil {
			log.WithError(err).Warn("redis unreachable, event channel disabled")
		} else {
			sinks = append(sinks, pub)
			app.closers = append(app.closers, func(context.Context) error { return pub.Close() })
		}
	}

	if cfg.Push.Endpoint != "" {
		push, err := notify.NewPushClient(nil, cfg.Push.Endpoint, cfg.Push.Token, cfg.Push.PerHour, log.Named("notify.push"))
		if err != nil {
			log.WithError(err).Warn("push notifications disabled")
		} else {
			sinks = append(sinks, push)
		}
	}

	fanout := notify.NewFanout(log.Named("notify"), sinks...)

	var generator confirm.Generator = confirm.NewTemplateGenerator()
	if cfg.Generator.Endpoint != "" {
		remote, err := confirm.NewRemoteGenerator(nil, cfg.Generator.Endpoint, cfg.Generator.APIKey, log.Named("confirm"))
		if err != nil {
			log.WithError(err).Warn("remote generator disabled, using local template")
		} else {
			generator = remote
		}
	}

	loc := cfg.Location()
	leadSvc := leads.New(store, fanout, generator, loc, log.Named("leads"))
	authSvc := auth.New(store, log.Named("auth"))
	statsSvc := statssvc.New(store, loc, log.Named("stats"))

	app.manager.Register(shiftreport.New(statsSvc, fanout, loc, log.Named("shiftreport")))

	handler := httpapi.New(leadSvc, authSvc, statsSvc, app.hub, log.Named("httpapi"))
	app.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return app, nil
}

// openStore selects the backend from configuration. Every backend serves
// both the lead and the user store.
func (a *Application) openStore(ctx context.Context) (storage.LeadStore, storage.AuthStore, error) {
	switch strings.ToLower(a.cfg.Database.Driver) {
	case "postgres":
		store, err := postgres.Open(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		a.log.Info("using postgres store")
		return store, store, nil
	case "mongo":
		store, err := mongodoc.Open(ctx, a.cfg.Database.MongoURI, a.cfg.Database.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.log.Info("using mongo store")
		return store, store, nil
	case "memory":
		a.log.Warn("using in-memory store, data will not survive a restart")
		store := memory.New()
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

// Run starts the background services and serves HTTP until the context is
// cancelled, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.server.Addr).Info("portal listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			a.shutdown()
			return fmt.Errorf("http server: %w", err)
		}
	}

	return a.shutdown()
}

func (a *Application) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = err
	}

	a.hub.Shutdown()
	a.manager.Stop(ctx)

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	a.log.Info("portal stopped")
	return firstErr
}
