package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketsim/internal/config"
	"marketsim/internal/models"
	"marketsim/internal/repository"
	"marketsim/internal/validation"
)

var defaultInitialBalance = decimal.NewFromInt(5000)

type TraderRegistry struct {
	Repo   repository.Repository
	Config config.MarketConfig
	Logger *zap.Logger
	// Int64N returns a uniform int64 in [0, n); nil uses math/rand/v2.
	Int64N func(n int64) int64
}

func (r *TraderRegistry) initialBalance() decimal.Decimal {
	d, err := decimal.NewFromString(r.Config.InitialBalance)
	if err != nil || d.IsNegative() {
		return defaultInitialBalance
	}
	return d.Round(validation.MoneyPlaces)
}

// drawProductionCost picks a cost uniformly, to the cent, from [minCost, maxCost].
func (r *TraderRegistry) drawProductionCost(minCost, maxCost decimal.Decimal) decimal.Decimal {
	lo := minCost.Shift(2).Ceil().IntPart()
	hi := maxCost.Shift(2).Floor().IntPart()
	if hi <= lo {
		return decimal.New(lo, -2)
	}
	intN := rand.Int64N
	if r.Int64N != nil {
		intN = r.Int64N
	}
	return decimal.New(lo+intN(hi-lo+1), -2)
}

// JoinMarket adds a trader with a freshly drawn production cost and the initial stake.
func (r *TraderRegistry) JoinMarket(ctx context.Context, marketID, name string) (*models.Trader, error) {
	vals, err := validation.JoinSchema().Validate(map[string]string{validation.FieldName: name})
	if err != nil {
		return nil, err
	}
	market, err := r.Repo.GetMarket(ctx, normalizeMarketID(marketID))
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	trader := &models.Trader{
		MarketID:       market.ID,
		Name:           vals.String(validation.FieldName),
		ProductionCost: r.drawProductionCost(market.MinCost, market.MaxCost),
		Balance:        r.initialBalance(),
	}
	if err := r.Repo.CreateTrader(ctx, trader); err != nil {
		return nil, fmt.Errorf("join market: %w", err)
	}
	if r.Logger != nil {
		r.Logger.Info("trader joined",
			zap.String("market_id", market.ID),
			zap.Uint64("trader_id", trader.ID),
			zap.String("name", trader.Name),
			zap.String("production_cost", trader.ProductionCost.String()),
		)
	}
	return trader, nil
}

func (r *TraderRegistry) GetTrader(ctx context.Context, id uint64) (*models.Trader, error) {
	trader, err := r.Repo.GetTrader(ctx, id)
	if err != nil {
		return nil, err
	}
	if trader == nil {
		return nil, ErrTraderNotFound
	}
	return trader, nil
}

// TraderInMarket resolves a caller identity: the trader must exist and belong to marketID.
func (r *TraderRegistry) TraderInMarket(ctx context.Context, marketID string, traderID uint64) (*models.Trader, error) {
	trader, err := r.GetTrader(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if trader.MarketID != normalizeMarketID(marketID) {
		return nil, ErrTraderNotInMarket
	}
	return trader, nil
}

// TraderTrades lists the trader's trades, oldest round first.
func (r *TraderRegistry) TraderTrades(ctx context.Context, traderID uint64) ([]models.Trade, error) {
	if _, err := r.GetTrader(ctx, traderID); err != nil {
		return nil, err
	}
	return r.Repo.ListTradesByTrader(ctx, traderID)
}
