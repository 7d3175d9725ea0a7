package command

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/attrmesh/internal/cli/connection"
	"github.com/yndnr/attrmesh/internal/cli/output"
)

// attributeResult mirrors the server's attribute payload.
type attributeResult struct {
	Scope   string `json:"scope" yaml:"scope"`
	Name    string `json:"name" yaml:"name"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Pending bool   `json:"pending,omitempty" yaml:"pending,omitempty"`
}

type listResult struct {
	Scope string   `json:"scope" yaml:"scope"`
	Names []string `json:"names" yaml:"names"`
}

func scopeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "scope",
		Usage: "Attribute scope: request, session, global",
		Value: "session",
	}
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.FullName(), usage), 2)
	}
	return nil
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read an attribute",
		ArgsUsage: "<name>",
		Flags:     []cli.Flag{scopeFlag()},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, "<name>"); err != nil {
				return err
			}
			client, flags, err := Client(c)
			if err != nil {
				return err
			}

			var res attributeResult
			path := connection.AttributePath(c.String("scope"), c.Args().First())
			if err := client.Do(c.Context, http.MethodGet, path, nil, &res); err != nil {
				return err
			}

			if flags.Output == output.FormatText {
				return Print(c, flags, res.Value)
			}
			return Print(c, flags, res)
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write an attribute",
		ArgsUsage: "<name> <value>",
		Flags: []cli.Flag{
			scopeFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Parse <value> as JSON instead of sending it as a string",
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2, "<name> <value>"); err != nil {
				return err
			}
			value, err := parseValue(c.Args().Get(1), c.Bool("json"))
			if err != nil {
				return err
			}
			client, flags, err := Client(c)
			if err != nil {
				return err
			}

			var res attributeResult
			path := connection.AttributePath(c.String("scope"), c.Args().First())
			body := map[string]any{"value": value}
			if err := client.Do(c.Context, http.MethodPut, path, body, &res); err != nil {
				return err
			}
			if flags.Output == output.FormatText {
				return nil
			}
			return Print(c, flags, res)
		},
	}
}

func parseValue(raw string, asJSON bool) (any, error) {
	if !asJSON {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid JSON value: %v", err), 2)
	}
	return v, nil
}

// RemoveCommand returns the rm command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove an attribute",
		ArgsUsage: "<name>",
		Flags:     []cli.Flag{scopeFlag()},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, "<name>"); err != nil {
				return err
			}
			client, _, err := Client(c)
			if err != nil {
				return err
			}
			path := connection.AttributePath(c.String("scope"), c.Args().First())
			return client.Do(c.Context, http.MethodDelete, path, nil, nil)
		},
	}
}

// ListCommand returns the ls command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "List attribute names in a scope",
		Flags: []cli.Flag{scopeFlag()},
		Action: func(c *cli.Context) error {
			client, flags, err := Client(c)
			if err != nil {
				return err
			}

			var res listResult
			path := connection.AttributePath(c.String("scope"), "")
			if err := client.Do(c.Context, http.MethodGet, path, nil, &res); err != nil {
				return err
			}
			if flags.Output == output.FormatText {
				return Print(c, flags, res.Names)
			}
			return Print(c, flags, res)
		},
	}
}
