package command

import (
	"net/http"

	"github.com/urfave/cli/v2"
)

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server readiness",
		Action: func(c *cli.Context) error {
			client, flags, err := Client(c)
			if err != nil {
				return err
			}
			var res map[string]any
			if err := client.Do(c.Context, http.MethodGet, "/ready", nil, &res); err != nil {
				return err
			}
			return Print(c, flags, res)
		},
	}
}
