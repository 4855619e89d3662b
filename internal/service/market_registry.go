package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketsim/internal/config"
	"marketsim/internal/models"
	"marketsim/internal/repository"
	"marketsim/internal/validation"
)

// CreateMarketInput carries raw form values; empty fields take the configured defaults.
type CreateMarketInput struct {
	Alpha   string
	Beta    string
	Theta   string
	MinCost string
	MaxCost string

	ProductNameSingular string
	ProductNamePlural   string
}

func (in CreateMarketInput) fields() map[string]string {
	return map[string]string{
		validation.FieldAlpha:           in.Alpha,
		validation.FieldBeta:            in.Beta,
		validation.FieldTheta:           in.Theta,
		validation.FieldMinCost:         in.MinCost,
		validation.FieldMaxCost:         in.MaxCost,
		validation.FieldProductSingular: in.ProductNameSingular,
		validation.FieldProductPlural:   in.ProductNamePlural,
	}
}

type MarketRegistry struct {
	Repo   repository.Repository
	Config config.MarketConfig
	IDs    *MarketIDAllocator
	Logger *zap.Logger
}

func (r *MarketRegistry) defaults() map[string]string {
	d := r.Config.Defaults
	return map[string]string{
		validation.FieldAlpha:   firstNonEmpty(d.Alpha, "105"),
		validation.FieldBeta:    firstNonEmpty(d.Beta, "17.5"),
		validation.FieldTheta:   firstNonEmpty(d.Theta, "14.58"),
		validation.FieldMinCost: firstNonEmpty(d.MinCost, "5"),
		validation.FieldMaxCost: firstNonEmpty(d.MaxCost, "15"),
	}
}

func (r *MarketRegistry) CreateMarket(ctx context.Context, in CreateMarketInput) (*models.Market, error) {
	vals, err := validation.MarketSchema(r.defaults()).Validate(in.fields())
	if err != nil {
		return nil, err
	}
	minCost := vals.Decimal(validation.FieldMinCost)
	maxCost := vals.Decimal(validation.FieldMaxCost)
	if minCost.GreaterThan(maxCost) {
		return nil, &validation.Error{Field: validation.FieldMinCost, Reason: "must not exceed max_cost"}
	}

	market := &models.Market{
		Alpha:               vals.Decimal(validation.FieldAlpha),
		Beta:                vals.Decimal(validation.FieldBeta),
		Theta:               vals.Decimal(validation.FieldTheta),
		MinCost:             minCost,
		MaxCost:             maxCost,
		ProductNameSingular: vals.String(validation.FieldProductSingular),
		ProductNamePlural:   vals.String(validation.FieldProductPlural),
	}
	ids := r.IDs
	if ids == nil {
		ids = NewMarketIDAllocator(r.Config)
	}
	id, err := ids.Allocate(ctx, func(ctx context.Context, id string) error {
		market.ID = id
		return r.Repo.CreateMarket(ctx, market)
	})
	if err != nil {
		return nil, fmt.Errorf("create market: %w", err)
	}
	market.ID = id
	if r.Logger != nil {
		r.Logger.Info("market created",
			zap.String("market_id", market.ID),
			zap.String("alpha", market.Alpha.String()),
			zap.String("beta", market.Beta.String()),
			zap.String("theta", market.Theta.String()),
			zap.String("min_cost", market.MinCost.String()),
			zap.String("max_cost", market.MaxCost.String()),
		)
	}
	return market, nil
}

func (r *MarketRegistry) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	market, err := r.Repo.GetMarket(ctx, normalizeMarketID(id))
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	return market, nil
}

func (r *MarketRegistry) CurrentRound(ctx context.Context, id string) (int64, error) {
	market, err := r.GetMarket(ctx, id)
	if err != nil {
		return 0, err
	}
	return market.Round, nil
}

func normalizeMarketID(id string) string {
	return strings.TrimSpace(id)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
