package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"example.com/fairplay/internal/auth"
	"example.com/fairplay/internal/config"
	"example.com/fairplay/internal/game"
	"example.com/fairplay/internal/httpapi"
	"example.com/fairplay/internal/metrics"
	"example.com/fairplay/internal/migrate"
	"example.com/fairplay/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db     *pgxpool.Pool
	rdb    *redis.Client
	rounds *store.PostgresSessionStore

	handler http.Handler
	srv     *http.Server
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	persist, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	tokens := auth.NewService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)

	// --- Game ---
	gameCfg := game.Config{SessionTTL: cfg.Store.SessionTTL}
	sessions := game.NewSessionService(gameCfg, persist, log).WithRecorder(m)
	gameSrv := game.NewServer(gameCfg, sessions, tokens, log)

	rounds := &httpapi.RoundHandler{
		Sessions: sessions,
		Tokens:   tokens,
		Rejects:  m,
		Log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())

	rounds.RegisterRoutes(mux, tokens)
	gameSrv.RegisterRoutes(mux)

	a.handler = mux
	a.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (game.SessionPersistence, error) {
	cfg := a.cfg

	// Quick connectivity checks (fail fast).
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Store.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
		}
		a.rdb = rdb
		a.log.Info("round store", "backend", "redis", "addr", cfg.Redis.Addr)
		return game.NewRedisSessionStore(rdb, cfg.Store.SessionTTL), nil

	case "postgres":
		if cfg.Postgres.RunMigrations {
			migrations, err := migrate.Source(cfg.Postgres.MigrationsDir)
			if err != nil {
				return nil, err
			}
			if err := migrate.Up(ctx, cfg.Postgres.URL, migrations, a.log); err != nil {
				return nil, err
			}
		}
		dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		if err := dbpool.Ping(pingCtx); err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		a.db = dbpool
		a.rounds = store.NewPostgresSessionStore(dbpool, cfg.Store.SessionTTL)
		a.log.Info("round store", "backend", "postgres")
		return a.rounds, nil

	default:
		a.log.Info("round store", "backend", "memory")
		return game.NewMemorySessionStore(cfg.Store.SessionTTL), nil
	}
}

// Handler exposes the routes without starting a listener.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	if a.rounds != nil {
		g.Go(func() error {
			a.purgeLoop(gctx)
			return nil
		})
	}

	err := g.Wait()
	_ = a.Close(context.Background())
	return err
}

// purgeLoop removes expired round rows; Redis and memory expire on their own.
func (a *App) purgeLoop(ctx context.Context) {
	t := time.NewTicker(a.cfg.Store.SessionTTL)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.rounds.PurgeExpired(ctx)
			if err != nil {
				a.log.Warn("purge expired rounds", "err", err)
				continue
			}
			if n > 0 {
				a.log.Debug("purged expired rounds", "count", n)
			}
		}
	}
}

func (a *App) Close(ctx context.Context) error {
	// best-effort
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return nil
}
