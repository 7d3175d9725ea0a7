package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/internal/infra/buildinfo"
	"github.com/yndnr/attrmesh/internal/infra/confloader"
	"github.com/yndnr/attrmesh/internal/infra/shutdown"
	"github.com/yndnr/attrmesh/internal/server/config"
	"github.com/yndnr/attrmesh/internal/server/httpserver"
	"github.com/yndnr/attrmesh/internal/server/localserver"
	"github.com/yndnr/attrmesh/internal/storage"
	"github.com/yndnr/attrmesh/internal/storage/memory"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
	"github.com/yndnr/attrmesh/pkg/crypto/sealer"
)

// storageKeyInfo separates the record key from other keys derived from
// the same secret.
const storageKeyInfo = "attrmesh session records"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "attrmesh-server",
		Usage:   "Request attribute service with request, session and global session scopes",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"ATTRMESH_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Override a configuration key, e.g. --set log.level=debug",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:  "check-config",
				Usage: "Load and validate the configuration, then print it with secrets masked",
				Action: func(c *cli.Context) error {
					cfg, _, err := loadConfig(c.String("config"), c.StringSlice("set"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%+v\n", *config.Sanitize(cfg))
					return nil
				},
			},
		},
	}
}

// parseOverrides turns key=value pairs into loader overrides.
func parseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid override %q, want key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func loadConfig(path string, sets []string) (*config.ServerConfig, *confloader.Loader, error) {
	overrides, err := parseOverrides(sets)
	if err != nil {
		return nil, nil, err
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func serve(c *cli.Context) error {
	cfg, loader, err := loadConfig(c.String("config"), c.StringSlice("set"))
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting attrmesh-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", loader.FilePath(),
		"backend", cfg.Storage.Backend,
	)

	metrics := metric.NewRegistry()
	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, shutdown.WithLogger(log))

	repo, ready, err := openRepository(cfg, log, metrics, shutdownHandler)
	if err != nil {
		return err
	}

	sessions := service.NewSessionService(repo,
		service.WithMaxInactive(cfg.Session.MaxInactive),
		service.WithLogger(log),
		service.WithMetrics(metrics),
	)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sessions.RunSweeper(sweepCtx, cfg.Session.SweepInterval)
	}()
	shutdownHandler.OnShutdown("session-sweeper", func(ctx context.Context) error {
		stopSweeper()
		select {
		case <-sweeperDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	cookies, err := newCookieCodec(cfg, log)
	if err != nil {
		return err
	}

	proxies, err := httpserver.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return err
	}

	var rps float64
	if cfg.RateLimit.Enabled {
		rps = cfg.RateLimit.RPS
	}
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Sessions:       sessions,
		Cookies:        cookies,
		Ready:          ready,
		Logger:         log,
		Metrics:        metrics,
		RateLimitRPS:   rps,
		RateLimitBurst: cfg.RateLimit.Burst,
		TrustedProxies: proxies,
	})

	srv := httpserver.New(cfg.Server.HTTP, router, log)
	serveErr := make(chan error, 2)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	shutdownHandler.OnShutdown("http-server", srv.Shutdown)

	if path := cfg.Server.Local.SocketPath; path != "" {
		ln, err := localserver.Listen(path)
		if err != nil {
			return err
		}
		localCfg := cfg.Server.HTTP
		localCfg.TLSCertFile, localCfg.TLSKeyFile = "", ""
		local := httpserver.New(localCfg, router, log.With("listener", "local"))
		go func() {
			serveErr <- local.Serve(ln)
		}()
		shutdownHandler.OnShutdown("local-server", local.Shutdown)
	}

	if path := loader.FilePath(); path != "" {
		stopWatch, err := watchLogLevel(loader, path, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return stopWatch()
			})
		}
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go func() {
		if err := <-serveErr; err != nil {
			log.Error("http server failed", "error", err)
			cancel()
		}
	}()

	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// openRepository opens the configured session repository and registers its
// shutdown hook. The returned ReadyFunc probes the store.
func openRepository(cfg *config.ServerConfig, log logger.Logger, metrics *metric.Registry, sh *shutdown.Handler) (service.SessionRepository, func(context.Context) error, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		bcfg := storage.DefaultBadgerConfig(cfg.Storage.DataDir)
		if cfg.Storage.GCInterval > 0 {
			bcfg.GCInterval = cfg.Storage.GCInterval
		}
		engine, err := storage.NewBadgerEngine(bcfg, log.With("component", "badger"))
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		if err := engine.RegisterMetrics(metrics.Registerer()); err != nil {
			log.Warn("badger metrics not registered", "error", err)
		}
		sh.OnShutdown("storage", func(context.Context) error {
			return engine.Close()
		})

		var storeOpts []storage.StoreOption
		if key := cfg.Security.StorageKey; key != "" {
			seal, err := sealer.FromSecret([]byte(key), storageKeyInfo)
			if err != nil {
				return nil, nil, fmt.Errorf("storage key: %w", err)
			}
			storeOpts = append(storeOpts, storage.WithSealer(seal))
			log.Info("session records encrypted at rest", "algorithm", fmt.Sprintf("0x%02x", seal.Algorithm()))
		}

		store := storage.NewSessionStore(engine, storeOpts...)
		ready := func(ctx context.Context) error {
			_, err := engine.Stats(ctx)
			return err
		}
		return store, ready, nil

	case config.BackendMemory:
		store := memory.New()
		return store, func(context.Context) error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newCookieCodec builds the session cookie codec. Without a configured
// secret a random one is generated, so cookies do not survive a restart.
func newCookieCodec(cfg *config.ServerConfig, log logger.Logger) (*httpserver.CookieCodec, error) {
	secret := []byte(cfg.Security.CookieSecret)
	if len(secret) == 0 {
		secret = httpserver.GenerateSecret()
		if secret == nil {
			return nil, errors.New("generate cookie secret: no randomness available")
		}
		log.Warn("security.cookie_secret not set, using an ephemeral secret; sessions will not survive a restart")
	}

	// A non-zero cookie MaxAge would outlive the session's own sliding
	// window, so the cookie is a browser-session cookie.
	return httpserver.NewCookieCodec(secret, cfg.Session.CookieName, cfg.Session.CookieSecure, 0)
}

// watchLogLevel reloads the configuration when the file changes and
// applies log.level. Other keys need a restart.
func watchLogLevel(loader *confloader.Loader, path string, log logger.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	var last time.Time
	w.OnChange(func(string) {
		// Editors often emit several events per save.
		if time.Since(last) < 100*time.Millisecond {
			return
		}
		last = time.Now()

		cfg := config.Default()
		if err := loader.Load(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(cfg); err != nil {
			log.Warn("reloaded config is invalid, keeping current settings", "error", err)
			return
		}
		if cfg.Log.Level != logger.CurrentLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}
