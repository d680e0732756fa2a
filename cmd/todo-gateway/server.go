package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/byte4ever/failover"
	"github.com/byte4ever/failover/gateway"
	"github.com/byte4ever/failover/httpx"
	"github.com/byte4ever/failover/ristretto"
	"github.com/byte4ever/failover/stats"
	"github.com/byte4ever/failover/zaphooks"
)

const (
	defaultAddr     = ":8000"
	defaultStrategy = "todo-api"
	staleCacheName  = "todo-lists"
	shutdownTimeout = 10 * time.Second
	defaultStaleTTL = 10 * time.Minute
)

type options struct {
	addr       string
	configPath string
	strategy   string
	candidates string
	redisAddr  string
	debug      bool
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todo-gateway", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.addr, "addr", defaultAddr, "listen address")
	fs.StringVar(&opts.configPath, "config", os.Getenv("TODO_CONFIG"), "configuration file (JSON or TOML)")
	fs.StringVar(&opts.strategy, "strategy", defaultStrategy, "strategy name in the configuration file")
	fs.StringVar(&opts.candidates, "candidates", os.Getenv("TODO_API_CANDIDATES"), "comma-separated upstream base URLs, primary first")
	fs.StringVar(&opts.redisAddr, "redis", os.Getenv("REDIS_ADDR"), "redis address for failover stats (in-memory when empty)")
	fs.BoolVar(&opts.debug, "debug", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag already reported it
	}

	logger, err := newLogger(opts.debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	recorder, closeRecorder, err := newRecorder(ctx, opts.redisAddr)
	if err != nil {
		return err
	}
	defer closeRecorder()

	reg := failover.NewRegistry()

	hooks := failover.MergeHooks(
		zaphooks.New(logger),
		stats.Hooks(opts.strategy, recorder, func(err error) {
			logger.Warn("record failover stats", zap.Error(err))
		}),
	)

	strategy, err := buildStrategy(opts, reg, hooks)
	if err != nil {
		return err
	}

	cacheCfg, err := loadCacheConfig(opts.configPath)
	if err != nil {
		return err
	}

	gw := gateway.New(gateway.Config{
		Strategy: strategy,
		Client:   httpx.NewClient(nil, nil),
		Registry: reg,
		Stats:    recorder,
		Logger:   logger,
		Stale: failover.NewStaleCache(
			ristretto.MustNew[string, gateway.Served](cacheCfg),
			cacheCfg.TTL,
			failover.OnStaleServed[string, gateway.Served](func(path string, err error) {
				logger.Warn("serving stale response", zap.String("path", path), zap.Error(err))
			}),
		),
	})

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           gw.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening",
			zap.String("addr", opts.addr),
			zap.Stringer("candidates", strategy.Candidates()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	build := zap.NewProduction
	if debug {
		build = zap.NewDevelopment
	}

	logger, err := build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}

// loadCacheConfig reads the stale cache settings from path. The caches
// section is optional: a missing entry or an empty path yields the defaults.
func loadCacheConfig(path string) (failover.CacheConfig, error) {
	defaults := failover.CacheConfig{TTL: defaultStaleTTL}

	if path == "" {
		return defaults, nil
	}

	cc, err := failover.LoadCacheConfig(path, staleCacheName)
	if errors.Is(err, failover.ErrCacheNotFound) {
		return defaults, nil
	}

	if err != nil {
		return failover.CacheConfig{}, err //nolint:wrapcheck // already prefixed
	}

	if cc.TTL <= 0 {
		cc.TTL = defaultStaleTTL
	}

	return cc, nil
}

// newRecorder returns a Redis-backed recorder when addr is set, otherwise an
// in-memory one.
func newRecorder(ctx context.Context, addr string) (stats.Recorder, func(), error) {
	if addr == "" {
		return stats.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
	}

	return stats.NewRedisStore(rdb, stats.WithBuckets(time.Hour, 7*24*time.Hour)),
		func() { _ = rdb.Close() },
		nil
}

// buildStrategy applies the Background preset to the candidates from
// -candidates, the configuration file, or the local development defaults.
func buildStrategy(opts options, reg *failover.Registry, hooks failover.Hooks) (*failover.Strategy, error) {
	extra := []failover.Option{
		failover.WithHooks(hooks),
		failover.WithRegistry(reg),
	}

	if opts.candidates != "" {
		candidates, err := failover.NewCandidateList(strings.Split(opts.candidates, ",")...)
		if err != nil {
			return nil, fmt.Errorf("candidates: %w", err)
		}

		return failover.NewStrategy(opts.strategy, candidates, append(failover.Background(), extra...)...), nil
	}

	if opts.configPath != "" {
		cfgReg, err := failover.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err //nolint:wrapcheck // already prefixed
		}

		return failover.GetStrategy(cfgReg, opts.strategy, extra...) //nolint:wrapcheck // already prefixed
	}

	return failover.NewStrategy(
		opts.strategy,
		failover.LocalDevCandidates(),
		append(failover.Background(), extra...)...,
	), nil
}
