package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"marketsim/internal/service"
)

type SettleRound struct{}

func (s SettleRound) Command() *cli.Command {
	return &cli.Command{
		Name:      "settle",
		Aliases:   []string{"s"},
		Usage:     "settle a round; traders without a trade get a zero offer",
		ArgsUsage: "MARKET_ID",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:    "round",
				Aliases: []string{"r"},
				Value:   -1,
				Usage:   "round to settle, defaults to the current one",
			},
		},
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

			var res *service.SettlementResult
			if round := c.Int64("round"); round >= 0 {
				res, err = e.settlement.SettleRound(c.Context, id, round)
			} else {
				res, err = e.settlement.SettleCurrent(c.Context, id)
			}
			if err != nil {
				return err
			}
			if !res.Settled {
				fmt.Fprintf(c.App.Writer, "round %d already settled, market is at round %d\n", res.Round, res.NextRound)
				return nil
			}
			fmt.Fprintf(c.App.Writer, "round %d settled: avg price %s, %d forced, next round %d\n",
				res.Round, res.AvgPrice.StringFixed(2), res.Forced, res.NextRound)
			return nil
		},
	}
}
