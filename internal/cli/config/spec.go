package config

// CLIConfig is the configuration for attrmesh-cli.
type CLIConfig struct {
	// Server is the server address, with or without scheme.
	Server string `koanf:"server"`

	// Output is the default output format (text, json, yaml).
	Output string `koanf:"output"`

	// CookieFile persists the session cookie between invocations.
	CookieFile string `koanf:"cookie_file"`

	// CAFile is an extra PEM bundle trusted for HTTPS servers.
	CAFile string `koanf:"ca_file"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:     "http://127.0.0.1:5080",
		Output:     "text",
		CookieFile: DefaultCookiePath(),
	}
}
