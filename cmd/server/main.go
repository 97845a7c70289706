package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/spotshot-backend/internal/config"
	"github.com/DoyleJ11/spotshot-backend/internal/httpapi"
	"github.com/DoyleJ11/spotshot-backend/internal/hub"
	"github.com/DoyleJ11/spotshot-backend/internal/lobby"
	"github.com/DoyleJ11/spotshot-backend/internal/store"
	"github.com/DoyleJ11/spotshot-backend/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config{}
	if err := config.NewCommand(cfg, run).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no database configured, keeping results in memory")
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open results store: %w", err)
	}
	return pg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	rules := cfg.Rules()
	rec := store.NewRecorder(st, log, cfg.ResultBuffer)

	g, gctx := errgroup.WithContext(ctx)

	h := hub.NewHub(gctx, rules,
		hub.WithLogger(log),
		hub.WithSessionTTL(cfg.SessionTTL),
		hub.WithLobbyOptions(lobby.WithRecorder(rec)),
	)

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:       h,
			Store:     st,
			Rules:     rules,
			PublicURL: cfg.PublicURL,
			Log:       log,
			WS: ws.Options{
				ReadTimeout:    cfg.ReadTimeout,
				OriginPatterns: cfg.OriginPatterns,
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Int("grid_size", rules.GridSize),
			zap.Int("rounds", rules.MaxLevels),
			zap.String("disconnect_policy", string(rules.Disconnect)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-h.Done()
		return nil
	})

	g.Go(func() error { return rec.Run(gctx) })

	return g.Wait()
}
