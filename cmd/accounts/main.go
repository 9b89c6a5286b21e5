package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meshpoint/accounts/internal/account"
	"github.com/meshpoint/accounts/internal/cache"
	memcache "github.com/meshpoint/accounts/internal/cache/memory"
	redcache "github.com/meshpoint/accounts/internal/cache/redis"
	"github.com/meshpoint/accounts/internal/config"
	"github.com/meshpoint/accounts/internal/email"
	"github.com/meshpoint/accounts/internal/http/handlers"
	"github.com/meshpoint/accounts/internal/http/router"
	"github.com/meshpoint/accounts/internal/http/session"
	"github.com/meshpoint/accounts/internal/metrics"
	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/providers"
	"github.com/meshpoint/accounts/internal/providers/facebook"
	"github.com/meshpoint/accounts/internal/providers/google"
	"github.com/meshpoint/accounts/internal/providers/twitter"
	"github.com/meshpoint/accounts/internal/rate"
	"github.com/meshpoint/accounts/internal/store/core"
	memstore "github.com/meshpoint/accounts/internal/store/memory"
	pgstore "github.com/meshpoint/accounts/internal/store/pg"
	"github.com/meshpoint/accounts/migrations/postgres"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "accounts",
		Short: "Servicio de cuentas con login federado",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta del config.yaml")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema de postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cfgPath)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "accounts",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.With(logger.Component("main"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var repo core.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		var lifetime time.Duration
		if s := cfg.Storage.Postgres.ConnMaxLifetime; s != "" {
			lifetime, _ = time.ParseDuration(s)
		}
		pg, err := pgstore.New(ctx, cfg.Storage.Postgres.DSN, pgstore.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if cfg.Flags.Migrate {
			if err := applySchema(ctx, pg.Pool()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		repo = pg
	case "memory":
		repo = memstore.New()
	default:
		return fmt.Errorf("storage driver desconocido: %s", cfg.Storage.Driver)
	}
	defer repo.Close()

	// Cache + rate limiting
	var (
		byteCache   cache.Cache
		redisClient *rdb.Client
	)
	switch cfg.Cache.Kind {
	case "redis":
		redisClient = rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
		byteCache = redcache.NewFromClient(redisClient)
	default:
		ttl, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
		byteCache = memcache.New(ttl)
	}

	limiter := func(limit int, window string) rate.Limiter {
		if !cfg.Rate.Enabled {
			return nil
		}
		w, _ := time.ParseDuration(window)
		if redisClient != nil {
			return rate.NewRedisLimiter(redisClient, cfg.Cache.Redis.Prefix+"rl:", limit, w)
		}
		return rate.NewMemoryLimiter(limit, w)
	}

	// Providers federados
	registry := buildRegistry(cfg, byteCache)
	log.Info("federated providers ready", logger.Count(len(registry.Names())))

	// Email
	mailer := email.NewSMTPSender(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
		cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.Email.ConfirmBaseURL,
	)
	mailer.TLSMode = cfg.SMTP.TLS
	mailer.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify

	svc := account.NewServices(account.Deps{
		Repo:            repo,
		Mailer:          mailer,
		ConfirmationTTL: cfg.ConfirmTTL(),
	})

	sessions := session.NewManager(session.Options{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		Domain:     cfg.Session.Domain,
		SameSite:   cfg.Session.SameSite,
		Secure:     cfg.Session.Secure,
		TTL:        cfg.SessionTTL(),
	})

	h := handlers.New(handlers.Deps{
		Repo:      repo,
		Services:  svc,
		Providers: registry,
		Sessions:  sessions,
	})

	mux := router.New(router.Deps{
		Handlers:        h,
		Sessions:        sessions,
		Repo:            repo,
		LoginLimiter:    limiter(cfg.Rate.Login.Limit, cfg.Rate.Login.Window),
		RegisterLimiter: limiter(cfg.Rate.Register.Limit, cfg.Rate.Register.Window),
		ConfirmLimiter:  limiter(cfg.Rate.Confirm.Limit, cfg.Rate.Confirm.Window),
		Metrics:         metrics.Register(prometheus.DefaultRegisterer),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildRegistry(cfg *config.Config, byteCache cache.Cache) *providers.Registry {
	var ps []providers.Provider
	if p := cfg.Providers.Facebook; p.Enabled {
		ps = append(ps, facebook.New(providers.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
			Scopes:       p.Scopes,
		}))
	}
	if p := cfg.Providers.Google; p.Enabled {
		ps = append(ps, google.New(providers.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
			Scopes:       p.Scopes,
		}))
	}
	if p := cfg.Providers.Twitter; p.Enabled {
		ps = append(ps, twitter.New(providers.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
		}, byteCache))
	}
	return providers.NewRegistry(ps...)
}

func migrate(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("migrate requiere storage.driver=postgres")
	}
	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "accounts-migrate"})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := pgstore.New(ctx, cfg.Storage.Postgres.DSN, pgstore.Config{})
	if err != nil {
		return err
	}
	defer pg.Close()
	return applySchema(ctx, pg.Pool())
}

// applySchema ejecuta los .sql embebidos en orden lexicográfico. Los
// statements son idempotentes (IF NOT EXISTS), así que re-correr es
// seguro.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := fs.ReadDir(postgres.SchemaFS, postgres.SchemaDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := fs.ReadFile(postgres.SchemaFS, postgres.SchemaDir+"/"+name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.L().Info("schema applied", logger.String("file", name))
	}
	return nil
}
