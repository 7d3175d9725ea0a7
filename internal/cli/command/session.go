package command

import (
	"errors"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/attrmesh/internal/cli/connection"
)

// SessionCommand returns the session command group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Inspect or end the server session held in the cookie file",
		Subcommands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show the current session",
				Action: func(c *cli.Context) error {
					client, flags, err := Client(c)
					if err != nil {
						return err
					}
					var res map[string]any
					if err := client.Do(c.Context, http.MethodGet, "/v1/session", nil, &res); err != nil {
						return noSession(err)
					}
					return Print(c, flags, res)
				},
			},
			{
				Name:  "invalidate",
				Usage: "Invalidate the current session and forget its cookie",
				Action: func(c *cli.Context) error {
					client, _, err := Client(c)
					if err != nil {
						return err
					}
					return noSession(client.Do(c.Context, http.MethodPost, "/v1/session/invalidate", nil, nil))
				},
			},
		},
	}
}

func noSession(err error) error {
	var apiErr *connection.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return cli.Exit("no active session", 1)
	}
	return err
}
