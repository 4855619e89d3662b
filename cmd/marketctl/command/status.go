package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

type ShowStatus struct{}

func (s ShowStatus) Command() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Aliases:   []string{"st"},
		Usage:     "show the current round and who has submitted",
		ArgsUsage: "MARKET_ID",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return cli.Exit("market id required", 2)
			}
			e, err := openEngine(c)
			if err != nil {
				return err
			}
			defer e.Close()

			status, err := e.readiness.Status(c.Context, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "market %s round %d ready=%t\ntraders:   %s\nsubmitted: %s\n",
				status.MarketID, status.Round, status.Ready,
				strings.Join(status.Traders, ", "), strings.Join(status.Submitted, ", "))
			return nil
		},
	}
}
