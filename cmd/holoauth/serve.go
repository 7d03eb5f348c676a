// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/cache"
	"github.com/holomush/holoauth/internal/command"
	"github.com/holomush/holoauth/internal/command/handlers"
	"github.com/holomush/holoauth/internal/mail"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/process"
	"github.com/holomush/holoauth/internal/settings"
	"github.com/holomush/holoauth/internal/telnet"
	"github.com/holomush/holoauth/pkg/errutil"
)

// shutdownTimeout bounds the executor drain and HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the telnet gateway and account executor",
		Long: `Start the telnet gateway. Players connect, choose a name and use the
account commands (register, login, email, changepassword, unregister).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := setupLogging(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, s, logger)
			if err != nil {
				errutil.LogErrorContext(ctx, logger, "startup failed", err)
				return err
			}
			return a.run(ctx)
		},
	}

	defaults := settings.New()
	addDatabaseFlags(cmd.Flags())
	cmd.Flags().String("log-format", settings.Get(defaults, settings.LogFormat), "log format (json or text)")
	cmd.Flags().String("log-level", settings.Get(defaults, settings.LogLevel), "log level (debug, info, warn, error)")
	cmd.Flags().String("telnet-addr", settings.Get(defaults, settings.TelnetAddr), "telnet listen address")
	cmd.Flags().String("metrics-addr", settings.Get(defaults, settings.MetricsAddr), "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().Bool("auto-migrate", settings.Get(defaults, settings.AutoMigrate), "apply pending migrations at startup")
	cmd.Flags().String("messages-file", "", "YAML message catalog (default: built-in English)")
	cmd.Flags().Int("workers", settings.Get(defaults, settings.ExecutorWorkers), "account process workers")

	return cmd
}

// app is a fully wired holoauth server.
type app struct {
	logger     *slog.Logger
	registry   *prometheus.Registry
	store      *accountStore
	cache      *cache.PlayerCache
	executor   *process.Executor
	limiter    *command.RateLimiter
	telnet     *telnet.Server
	metrics    *observability.Server
	metricsErr <-chan error
}

// newApp builds every component from s and binds the listeners. On error
// everything opened so far is released.
func newApp(ctx context.Context, s *settings.Settings, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	target, err := resolveDatabase(s)
	if err != nil {
		return nil, err
	}
	a.store, err = openAccountStore(ctx, target, settings.Get(s, settings.AutoMigrate), logger)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(s, logger)
	if err != nil {
		return nil, err
	}
	mailer, err := newMailer(s)
	if err != nil {
		return nil, err
	}
	validator, err := auth.NewValidator(s, a.store.repo)
	if err != nil {
		return nil, err
	}

	hub := telnet.NewHub(catalog, logger)
	service, err := process.NewService(process.ServiceConfig{
		Settings:  s,
		Validator: validator,
		Hasher:    auth.NewArgon2idHasher(),
		Messenger: hub,
		Mailer:    mailer,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	a.executor, err = process.NewExecutor(service, settings.Get(s, settings.ExecutorWorkers))
	if err != nil {
		return nil, err
	}
	a.cache = cache.New()

	cache.RegisterMetrics(a.registry)
	process.RegisterMetrics(a.registry)
	command.RegisterMetrics(a.registry)
	telnet.RegisterMetrics(a.registry)

	a.limiter = command.NewRateLimiter(command.RateLimiterConfig{
		BurstCapacity: settings.Get(s, settings.RateLimitBurst),
		SustainedRate: settings.Get(s, settings.RateLimitRate),
		Registerer:    a.registry,
	})
	registry := command.NewRegistry()
	handlers.RegisterAll(registry)
	dispatcher, err := command.NewDispatcher(registry,
		command.WithRateLimiter(a.limiter),
		command.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	a.telnet, err = telnet.NewServer(telnet.ServerConfig{
		Addr:       settings.Get(s, settings.TelnetAddr),
		Hub:        hub,
		Dispatcher: dispatcher,
		Services: &command.Services{
			Deps:     process.Deps{Cache: a.cache, Store: a.store.repo, Service: service},
			Executor: a.executor,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := a.telnet.Listen(); err != nil {
		return nil, err
	}

	if addr := settings.Get(s, settings.MetricsAddr); addr != "" {
		a.metrics = observability.NewServer(addr, a.registry, a.store.ping)
		a.metricsErr, err = a.metrics.Start()
		if err != nil {
			a.metrics = nil
			return nil, err
		}
	}

	logger.InfoContext(ctx, "holoauth started",
		"telnet_addr", a.telnet.Addr(),
		"metrics_addr", a.metricsAddr(),
		"database", string(target.dialect))
	return a, nil
}

func (a *app) metricsAddr() string {
	if a.metrics == nil {
		return ""
	}
	return a.metrics.Addr()
}

// run serves until ctx is cancelled or the metrics server fails, then
// shuts everything down.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	telnetDone := make(chan error, 1)
	go func() { telnetDone <- a.telnet.Run(ctx) }()

	var runErr, telnetErr error
	telnetStopped := false
	select {
	case <-ctx.Done():
	case err, ok := <-a.metricsErr:
		if ok && err != nil {
			runErr = oops.Code("OBSERVABILITY_FAILED").Wrap(err)
			errutil.LogErrorContext(ctx, a.logger, "metrics server failed", runErr)
		}
	case telnetErr = <-telnetDone:
		telnetStopped = true
	}
	cancel()

	// Connections log their players out on the way down, so the executor
	// is drained only after the gateway has stopped.
	if !telnetStopped {
		telnetErr = <-telnetDone
	}
	runErr = errors.Join(runErr, telnetErr)
	a.logger.Info("shutting down")
	return errors.Join(runErr, a.shutdown())
}

// shutdown drains the executor and releases every component.
func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.executor != nil {
		if err := a.executor.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		a.executor = nil
	}
	if a.metrics != nil {
		if err := a.metrics.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		a.metrics = nil
	}
	a.release()
	return errors.Join(errs...)
}

// release closes the limiter and the store. It is safe to call on a
// partially built app.
func (a *app) release() {
	if a.metrics != nil {
		_ = a.metrics.Stop(context.Background())
		a.metrics = nil
	}
	if a.telnet != nil {
		if err := a.telnet.Close(); err != nil {
			a.logger.Warn("closing telnet listener", "error", err)
		}
		a.telnet = nil
	}
	if a.limiter != nil {
		a.limiter.Close()
		a.limiter = nil
	}
	if a.store != nil {
		if err := a.store.close(); err != nil {
			a.logger.Warn("closing account store", "error", err)
		}
		a.store = nil
	}
}

// loadCatalog returns the configured message catalog, or the built-in one.
func loadCatalog(s *settings.Settings, logger *slog.Logger) (*message.Catalog, error) {
	path := settings.Get(s, settings.MessagesFile)
	if path == "" {
		return message.DefaultCatalog(), nil
	}
	catalog, err := message.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	if missing := catalog.Missing(); len(missing) > 0 {
		logger.Warn("message catalog is incomplete", "file", path, "missing", len(missing))
	}
	return catalog, nil
}

// newMailer returns an SMTP sender when mail.host is set.
func newMailer(s *settings.Settings) (mail.Sender, error) {
	host := settings.Get(s, settings.MailHost)
	if host == "" {
		return mail.Disabled{}, nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     host,
		Port:     settings.Get(s, settings.MailPort),
		From:     settings.Get(s, settings.MailFrom),
		Username: settings.Get(s, settings.MailUsername),
		Password: settings.Get(s, settings.MailPassword),
	})
	if err != nil {
		return nil, err
	}
	return sender, nil
}
