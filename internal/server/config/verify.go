package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
)

// MinCookieSecretLength is the shortest accepted security.cookie_secret.
const MinCookieSecretLength = 32

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySession(&cfg.Session); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	if err := verifyRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if cfg.HTTP.ReadTimeout < 0 || cfg.HTTP.WriteTimeout < 0 || cfg.HTTP.ShutdownTimeout < 0 {
		return errors.New("server.http timeouts must not be negative")
	}
	if p := cfg.Local.SocketPath; p != "" && !filepath.IsAbs(p) {
		return fmt.Errorf("server.local.socket_path %q must be absolute", p)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendMemory:
		return nil
	case BackendBadger:
	default:
		return fmt.Errorf("storage.backend %q: must be %q or %q", cfg.Backend, BackendMemory, BackendBadger)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required for the badger backend")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	return nil
}

func verifySession(cfg *SessionSection) error {
	if cfg.MaxInactive < 0 {
		return errors.New("session.max_inactive must not be negative")
	}
	if cfg.SweepInterval < 0 {
		return errors.New("session.sweep_interval must not be negative")
	}
	if cfg.CookieName == "" || strings.ContainsAny(cfg.CookieName, " ;,=") {
		return fmt.Errorf("session.cookie_name %q is not a valid cookie name", cfg.CookieName)
	}
	return nil
}

// An empty secret is accepted; the server then generates an ephemeral one.
func verifySecurity(cfg *SecuritySection) error {
	if cfg.CookieSecret != "" && len(cfg.CookieSecret) < MinCookieSecretLength {
		return fmt.Errorf("security.cookie_secret must be at least %d characters", MinCookieSecretLength)
	}
	if cfg.StorageKey != "" && len(cfg.StorageKey) < MinCookieSecretLength {
		return fmt.Errorf("security.storage_key must be at least %d characters", MinCookieSecretLength)
	}
	return nil
}

func verifyRateLimit(cfg *RateLimitSection) error {
	for _, entry := range cfg.TrustedProxies {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("ratelimit.trusted_proxies: %q is not an IP address or CIDR prefix", entry)
		}
	}
	if !cfg.Enabled {
		return nil
	}
	if cfg.RPS <= 0 {
		return errors.New("ratelimit.rps must be positive")
	}
	if cfg.Burst < 1 {
		return errors.New("ratelimit.burst must be at least 1")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not supported", cfg.Format)
	}
	return nil
}
