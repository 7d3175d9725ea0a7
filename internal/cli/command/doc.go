// Package command defines the attrmesh-cli commands with urfave/cli/v2.
//
// Every command builds a connection.HTTPClient from the global flags,
// calls one API endpoint and prints the result with the selected
// output.Formatter. The cookie jar is saved after each command.
package command
