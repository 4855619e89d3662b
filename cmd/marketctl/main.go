package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"marketsim/cmd/marketctl/command"
)

func main() {
	app := &cli.App{
		Name:  "marketctl",
		Usage: "operate market simulations from the shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				EnvVars: []string{"MS_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "env-only",
				EnvVars: []string{"MS_ENV_ONLY"},
			},
		},
		Commands: []*cli.Command{},
	}

	for _, command := range command.Commands {
		app.Commands = append(app.Commands, command.Command())
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
