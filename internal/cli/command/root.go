package command

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/attrmesh/internal/cli/config"
	"github.com/yndnr/attrmesh/internal/cli/connection"
	"github.com/yndnr/attrmesh/internal/cli/output"
	"github.com/yndnr/attrmesh/internal/infra/buildinfo"
	"github.com/yndnr/attrmesh/internal/infra/tlsroots"
)

const (
	metaConfig = "cliConfig"
	metaJar    = "cookieJar"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "attrmesh-cli",
		Usage:   "Read and write attrmesh request, session and global session attributes",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			SetCommand(),
			RemoveCommand(),
			ListCommand(),
			SessionCommand(),
			HealthCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
		After: func(c *cli.Context) error {
			if jar, ok := c.App.Metadata[metaJar].(*connection.FileJar); ok {
				return jar.Save()
			}
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file (default ~/.attrmesh/cli.yaml)",
			EnvVars: []string{"ATTRMESH_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "attrmesh server address (e.g., http://127.0.0.1:5080 or unix:///run/attrmesh/api.sock)",
			EnvVars: []string{"ATTRMESH_SERVER"},
		},
		&cli.StringFlag{
			Name:  "cookie-file",
			Usage: "File holding the session cookie between invocations (default ~/.attrmesh/cookies.json)",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle to trust in addition to the system roots",
		},
		&cli.BoolFlag{
			Name:  "no-cookies",
			Usage: "Do not read or write the cookie file",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: 30 * time.Second,
		},
	}
}

// GlobalFlags holds the resolved global settings.
type GlobalFlags struct {
	Server     string
	CookieFile string
	CAFile     string
	Output     output.Format
	Timeout    time.Duration
}

// ParseGlobalFlags resolves global flags, falling back to the CLI config
// for flags that were not given.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig)
	if !ok {
		cfg = config.Default()
	}

	flags := &GlobalFlags{
		Server:     pick(c, "server", cfg.Server),
		CookieFile: pick(c, "cookie-file", cfg.CookieFile),
		CAFile:     pick(c, "ca-file", cfg.CAFile),
		Timeout:    c.Duration("timeout"),
	}
	if c.Bool("no-cookies") {
		flags.CookieFile = ""
	}

	format, err := output.ParseFormat(pick(c, "output", cfg.Output))
	if err != nil {
		return nil, err
	}
	flags.Output = format
	return flags, nil
}

func pick(c *cli.Context, name, fallback string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return fallback
}

// Client builds the HTTP client for the command, loading the cookie jar
// once per invocation.
func Client(c *cli.Context) (*connection.HTTPClient, *GlobalFlags, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, nil, err
	}

	jar, ok := c.App.Metadata[metaJar].(*connection.FileJar)
	if !ok {
		jar, err = connection.LoadFileJar(flags.CookieFile)
		if err != nil {
			return nil, nil, err
		}
		c.App.Metadata[metaJar] = jar
	}

	opts := []connection.ClientOption{
		connection.WithJar(jar),
		connection.WithTimeout(flags.Timeout),
		connection.WithUserAgent(buildinfo.UserAgent("attrmesh-cli")),
	}
	if flags.CAFile != "" {
		pool := tlsroots.NewPool()
		if err := pool.AddCertFile(flags.CAFile); err != nil {
			return nil, nil, err
		}
		opts = append(opts, connection.WithTLSConfig(pool.ClientConfig()))
	}
	return connection.NewHTTPClient(flags.Server, opts...), flags, nil
}

// Print writes data to the app writer in the selected format.
func Print(c *cli.Context, flags *GlobalFlags, data any) error {
	return output.NewFormatter(flags.Output).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return io.Discard
}
