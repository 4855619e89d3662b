package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var Version = "v0.1.0"

type ShowVersion struct{}

func (c ShowVersion) Command() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Aliases: []string{"v"},
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, Version)
			return nil
		},
	}
}
