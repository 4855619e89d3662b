package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

type ExportHistory struct{}

func (x ExportHistory) Command() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Aliases:   []string{"e"},
		Usage:     "write the per-round history as csv or xlsx",
		ArgsUsage: "MARKET_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file, defaults to stdout",
			},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return cli.Exit("market id required", 2)
			}
			format := strings.ToLower(c.String("format"))
			if format != "csv" && format != "xlsx" {
				return cli.Exit(fmt.Sprintf("unsupported format %q", format), 2)
			}
			e, err := openEngine(c)
			if err != nil {
				return err
			}
			defer e.Close()

			hist, err := e.history.ExportHistory(c.Context, id)
			if err != nil {
				return err
			}

			var w io.Writer = c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if format == "xlsx" {
				return hist.WriteXLSX(w)
			}
			return hist.WriteCSV(w)
		},
	}
}
