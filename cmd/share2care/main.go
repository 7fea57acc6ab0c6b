package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"share2care/internal/adapters/broker"
	"share2care/internal/adapters/gateway"
	"share2care/internal/adapters/httpapi"
	"share2care/internal/adapters/notify"
	"share2care/internal/application"
	"share2care/internal/config"
	"share2care/internal/infrastructure/database"
	"share2care/internal/infrastructure/i18n"
	"share2care/internal/infrastructure/observability"
	"share2care/internal/infrastructure/session"
	"share2care/internal/ports/output"
	"share2care/pkg/bus"
)

const (
	sessionTTL     = 30 * 24 * time.Hour
	inPageNotices  = 20
	shutdownPeriod = 10 * time.Second
)

// tokenFunc lets the gateway read the token from the session service built
// after it.
type tokenFunc func(ctx context.Context) string

func (f tokenFunc) Token(ctx context.Context) string { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := observability.InitLogger("share2care", cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("share2care stopped")
	}
	logger.Info().Msg("share2care stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, closeStore, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	translator := i18n.NewTranslator(cfg.DefaultLocale, logger)

	webhook, err := notify.NewWebhook(cfg.DiscordWebhookURL, logger)
	if err != nil {
		return err
	}
	inPage := notify.NewInPage(inPageNotices)
	notifier := notify.NewChain(logger, webhook, inPage)

	var sessions *application.SessionService
	client := gateway.NewClient(cfg.GatewayURL, cfg.GatewayTimeout, tokenFunc(func(ctx context.Context) string {
		return sessions.Token(ctx)
	}), cfg.Location, logger)

	sessionChanges := bus.New[application.SessionChanged]("session", 16, logger)
	approvals := bus.New[application.EventApproved]("approvals", 16, logger)
	defer sessionChanges.Close()
	defer approvals.Close()

	sessions = application.NewSessionService(store, client, notifier, translator, sessionChanges, cfg.DefaultLocale, logger)
	reconciler := application.NewReconciler(client, application.ReconcilerConfig{Throttle: cfg.ReviewThrottle}, metrics, logger)
	board := application.NewBoard(
		application.BoardConfig{PageSize: cfg.PageSize, PollInterval: cfg.PollInterval, Locale: cfg.DefaultLocale},
		client, reconciler, application.NewClassifier(cfg.Location, logger), sessions,
		notifier, translator, metrics, logger,
	)
	defer board.Close()
	submissions := application.NewSubmissionService(client, sessions, cfg.Location, logger)

	unsubSession := sessionChanges.Subscribe(ctx, board.HandleSessionChanged)
	defer unsubSession()
	unsubApprovals := approvals.Subscribe(ctx, board.HandleEventApproved)
	defer unsubApprovals()

	if err := board.Bootstrap(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial load incomplete")
	}

	handler := httpapi.NewHandler(board, submissions, sessions, approvals, inPage, translator, logger)
	server := httpapi.NewServer(handler, translator, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.AMQPURL != "" {
		consumer, err := broker.NewApprovalConsumer(cfg.AMQPURL, approvals, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("approval consumer disabled")
		} else {
			defer consumer.Close()
			g.Go(func() error { return consumer.Run(gctx) })
		}
	}

	return g.Wait()
}

func openSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (output.SessionStore, func(), error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("session store: redis")
		return session.NewRedisStore(client, sessionTTL), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, nil, err
		}
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("session store: postgres")
		return session.NewPostgresStore(pool), pool.Close, nil

	default:
		logger.Info().Msg("session store: memory")
		return session.NewMemoryStore(), func() {}, nil
	}
}
