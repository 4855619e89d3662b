package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"marketsim/internal/service"
)

type CreateMarket struct{}

func (m CreateMarket) Command() *cli.Command {
	return &cli.Command{
		Name:    "create",
		Aliases: []string{"c"},
		Usage:   "create a market; omitted coefficients use the configured defaults",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "alpha"},
			&cli.StringFlag{Name: "beta"},
			&cli.StringFlag{Name: "theta"},
			&cli.StringFlag{Name: "min-cost"},
			&cli.StringFlag{Name: "max-cost"},
			&cli.StringFlag{Name: "product", Usage: "singular product name"},
			&cli.StringFlag{Name: "products", Usage: "plural product name"},
		},
		Action: func(c *cli.Context) error {
			e, err := openEngine(c)
			if err != nil {
				return err
			}
			defer e.Close()

			market, err := e.markets.CreateMarket(c.Context, service.CreateMarketInput{
				Alpha:               c.String("alpha"),
				Beta:                c.String("beta"),
				Theta:               c.String("theta"),
				MinCost:             c.String("min-cost"),
				MaxCost:             c.String("max-cost"),
				ProductNameSingular: c.String("product"),
				ProductNamePlural:   c.String("products"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "market %s created (alpha %s, beta %s, theta %s, cost %s..%s)\n",
				market.ID, market.Alpha, market.Beta, market.Theta, market.MinCost, market.MaxCost)
			return nil
		},
	}
}
