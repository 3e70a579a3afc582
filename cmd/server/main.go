package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/pestpro/pestpro/internal/adapter/httpserver"
	"github.com/pestpro/pestpro/internal/adapter/mailer"
	"github.com/pestpro/pestpro/internal/adapter/memory"
	"github.com/pestpro/pestpro/internal/adapter/metrics"
	"github.com/pestpro/pestpro/internal/adapter/postgres"
	pestredis "github.com/pestpro/pestpro/internal/adapter/redis"
	"github.com/pestpro/pestpro/internal/app"
	"github.com/pestpro/pestpro/internal/auth"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/config"
	"github.com/pestpro/pestpro/internal/platform/logging"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupMailer(cfg *config.Config) auth.Mailer {
	if cfg.SMTPAddr == "" {
		slog.Info("SMTP not configured, logging outgoing mail")
		return mailer.NewLogMailer()
	}

	var smtpAuth smtp.Auth
	if cfg.SMTPUsername != "" {
		host := cfg.SMTPAddr
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		smtpAuth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, host)
	}
	return mailer.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, smtpAuth)
}

type stores struct {
	accounts  domain.AccountRepository
	clients   domain.ClientRepository
	contracts domain.ContractRepository
	notifier  domain.Notifier
	ledger    domain.ReminderLedger

	healthChecks []httpserver.HealthCheck
	close        func()
}

func setupStores(cfg *config.Config) *stores {
	s := &stores{close: func() {}}

	if cfg.DatabaseURL != "" {
		pool := setupDB(cfg)
		s.accounts = postgres.NewAccountRepo(pool)
		s.clients = postgres.NewClientRepo(pool)
		s.contracts = postgres.NewContractRepo(pool)
		s.healthChecks = append(s.healthChecks, httpserver.HealthCheck{
			Name:  "postgres",
			Check: pool.Ping,
		})
		s.close = pool.Close
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory stores")
		s.accounts = memory.NewAccountRepository()
		s.clients = memory.NewClientRepository()
		s.contracts = memory.NewContractRepository()
	}

	if cfg.RedisURL != "" {
		client, err := pestredis.NewClient(cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		s.notifier = pestredis.NewNotifier(client)
		s.ledger = pestredis.NewReminderLedger(client)
		s.healthChecks = append(s.healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: client.Ping,
		})

		closeDB := s.close
		s.close = func() {
			if err := client.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
			closeDB()
		}
	} else {
		slog.Warn("REDIS_URL not set, using in-memory notifications")
		s.notifier = memory.NewNotifier()
		s.ledger = memory.NewReminderLedger()
	}

	return s
}

func runGracefulShutdown(srv *httpserver.Server, manager *auth.Manager, provider *auth.LocalProvider, stopSweeper context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopSweeper()
		manager.Close()
		provider.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	st := setupStores(cfg)
	defer st.close()

	provider := auth.NewLocalProvider(
		st.accounts,
		setupMailer(cfg),
		cfg.BaseURL,
		auth.WithClock(clock),
		auth.WithSessionTTL(cfg.SessionMaxAge),
		auth.WithEmailConfirmation(cfg.RequireEmailConfirmation),
	)

	manager := auth.NewManager(provider, provider, cfg.BaseURL+"/reset-password")
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	if err := manager.Initialize(initCtx); err != nil {
		slog.Error("Failed to initialize session manager", "error", err)
		os.Exit(1)
	}
	cancelInit()

	appSvc := app.NewService(st.clients, st.contracts, st.notifier, clock)

	sweeper := app.NewFollowUpSweeper(st.contracts, st.clients, st.notifier, st.ledger, clock, cfg.SweepHourUTC)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	registry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	srv := httpserver.NewServer(
		cfg,
		appSvc,
		manager,
		provider,
		st.notifier,
		metrics.Handler(registry),
		httpMetrics.Middleware(),
		st.healthChecks,
	)

	done := runGracefulShutdown(srv, manager, provider, stopSweeper)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
