package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/askcraft/askcraft-web/cmd/askcraft/cli"
	"github.com/askcraft/askcraft-web/internal/app"
	"github.com/askcraft/askcraft-web/internal/articles"
	"github.com/askcraft/askcraft-web/internal/auth"
	"github.com/askcraft/askcraft-web/internal/media"
	"github.com/askcraft/askcraft-web/internal/members"
	"github.com/askcraft/askcraft-web/internal/observability"
	"github.com/askcraft/askcraft-web/internal/platform/blob"
	"github.com/askcraft/askcraft-web/internal/platform/cache"
	"github.com/askcraft/askcraft-web/internal/platform/db"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
	"github.com/askcraft/askcraft-web/internal/view"
	"github.com/askcraft/askcraft-web/jobs"
)

const usage = `usage: askcraft [command]

commands:
  serve                          run the HTTP server (default)
  migrate                        apply database migrations
  jobs stats                     print queue statistics
  jobs trigger audit:prune DAYS  enqueue an audit prune
  jobs trigger media:purge-blob KEY
                                 enqueue a blob purge`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(ctx)
	case "migrate":
		err = migrate(ctx)
	case "jobs":
		err = jobsCommand(ctx, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Default().Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context) error {
	cfg, err := app.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		return err
	}
	slog.Default().Info("migrations applied")
	return nil
}

func jobsCommand(ctx context.Context, args []string) error {
	cfg, err := app.LoadRedisConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	helper := cli.NewJobsCLI(cfg.QueueOptions())
	defer helper.Close()

	switch {
	case len(args) == 1 && args[0] == "stats":
		stats, err := helper.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return nil
	case len(args) == 3 && args[0] == "trigger":
		opts := cli.TriggerOptions{Key: args[2]}
		if args[1] == jobs.TaskAuditPrune {
			days, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("retention days: %w", err)
			}
			opts = cli.TriggerOptions{KeepDays: days}
		}
		info, err := helper.Trigger(ctx, args[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
		return nil
	}
	return errors.New(usage)
}

func serve(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(&cfg.LoggingConfig)
	if cfg.UsingDevSecret() {
		logger.Warn("JWT_SECRET not set, signing sessions with the insecure development secret")
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	tokens, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	cookies := auth.CookieConfig{Name: cfg.SessionCookie, TTL: cfg.SessionTTL, Secure: cfg.IsProduction()}
	accounts := auth.NewRepository(pool)
	authorizer := rbac.NewAuthorizer(tokens, accounts, cookies.TokenFromRequest)
	rbacMiddleware := rbac.Middleware{Authorizer: authorizer, Logger: logger}
	metrics := observability.NewMetrics()

	throttle := auth.NewLoginThrottle(redisClient, cfg.LoginMaxFailures, cfg.LoginLockout)
	authService := auth.NewService(accounts, tokens, throttle, logger)
	authHandler := auth.NewHandler(logger, authService, cookies, authorizer, metrics)

	auditLogger := shared.NewAuditLogger(pool)

	membersService := members.NewService(members.NewRepository(pool), auditLogger, logger)
	articlesService := articles.NewService(articles.NewRepository(pool), auditLogger, logger)

	jobClient := jobs.NewClient(cfg.QueueOptions())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	mediaOpts := media.Options{Audit: auditLogger, MaxUpload: cfg.UploadMaxBytes}
	if cfg.BlobEnabled() {
		store, err := blob.New(ctx, cfg.StoreConfig())
		if err != nil {
			return fmt.Errorf("blob store: %w", err)
		}
		mediaOpts.Blobs = store
		mediaOpts.Purge = jobClient
	} else {
		logger.Warn("BLOB_BUCKET not set, uploads disabled")
	}
	mediaService := media.NewService(media.NewRepository(pool), logger, mediaOpts)

	inspector := asynq.NewInspector(cfg.QueueOptions())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Pages: app.Pages{
			Logger:    logger,
			Templates: templates,
			Articles:  articlesService,
			Media:     mediaService,
		},
		Gate: auth.Gate(auth.GateConfig{
			Tokens:  tokens,
			Extract: cookies.TokenFromRequest,
			Logger:  logger,
			Metrics: metrics,
		}),
		RBACMiddleware:  rbacMiddleware,
		AuthHandler:     authHandler,
		MembersHandler:  members.NewHandler(logger, membersService, rbacMiddleware),
		ArticlesHandler: articles.NewHandler(logger, articlesService, rbacMiddleware),
		MediaHandler:    media.NewHandler(logger, mediaService, rbacMiddleware),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
		DB:              pool,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
