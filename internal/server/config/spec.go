package config

import "time"

// ServerConfig is the root configuration for attrmesh-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Session   SessionSection   `koanf:"session"`
	Security  SecuritySection  `koanf:"security"`
	RateLimit RateLimitSection `koanf:"ratelimit"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// LocalConfig configures the Unix socket listener. An empty SocketPath
// disables it.
type LocalConfig struct {
	SocketPath string `koanf:"socket_path"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageSection configures where sessions live.
type StorageSection struct {
	// Backend is "memory" or "badger".
	Backend    string        `koanf:"backend"`
	DataDir    string        `koanf:"data_dir"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SessionSection configures session lifetime and the session cookie.
type SessionSection struct {
	MaxInactive   time.Duration `koanf:"max_inactive"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	CookieName    string        `koanf:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// CookieSecret is the master secret the cookie signing and encryption
	// keys are derived from.
	CookieSecret string `koanf:"cookie_secret"`

	// StorageKey, when set, is the secret session records are encrypted
	// under in the badger backend.
	StorageKey string `koanf:"storage_key"`
}

// RateLimitSection configures per-client request rate limiting.
type RateLimitSection struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`

	// TrustedProxies lists peer addresses or CIDR prefixes whose
	// X-Forwarded-For and X-Real-IP headers are honoured. Other peers are
	// identified by their connection address.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
