package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultStorageBackend = BackendMemory
	DefaultDataDir        = "/var/lib/attrmesh-server/data"
	DefaultGCInterval     = 10 * time.Minute

	DefaultMaxInactive   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultCookieName    = "ATTRMESH_SESSION"

	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 200

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			Backend:    DefaultStorageBackend,
			DataDir:    DefaultDataDir,
			GCInterval: DefaultGCInterval,
		},
		Session: SessionSection{
			MaxInactive:   DefaultMaxInactive,
			SweepInterval: DefaultSweepInterval,
			CookieName:    DefaultCookieName,
		},
		RateLimit: RateLimitSection{
			Enabled: true,
			RPS:     DefaultRateLimitRPS,
			Burst:   DefaultRateLimitBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
