package service

import (
	"context"

	"go.uber.org/zap"

	"marketsim/internal/repository"
)

// AutoSettler is the optional external trigger: each sweep settles the current round
// of every market whose traders have all submitted.
type AutoSettler struct {
	Repo       repository.Repository
	Settlement *SettlementService
	Flags      *SystemSettingsService
	BatchSize  int
	Logger     *zap.Logger
}

// RunOnceIfEnabled is the cron entry point; it does nothing while feature.auto_settle is off.
func (a *AutoSettler) RunOnceIfEnabled(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Flags != nil && !a.Flags.IsEnabled(ctx, FeatureAutoSettle, false) {
		return
	}
	if _, err := a.RunOnce(ctx); err != nil && a.Logger != nil {
		a.Logger.Warn("auto settle sweep failed", zap.Error(err))
	}
}

// RunOnce returns how many rounds it settled.
func (a *AutoSettler) RunOnce(ctx context.Context) (int, error) {
	if a == nil || a.Repo == nil || a.Settlement == nil {
		return 0, nil
	}
	markets, err := a.Repo.ListReadyMarkets(ctx, a.BatchSize)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, m := range markets {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		res, err := a.Settlement.SettleRound(ctx, m.ID, m.Round)
		if err != nil {
			if a.Logger != nil {
				a.Logger.Warn("auto settle market failed",
					zap.String("market_id", m.ID),
					zap.Int64("round", m.Round),
					zap.Error(err),
				)
			}
			continue
		}
		if res.Settled {
			settled++
		}
	}
	if settled > 0 && a.Logger != nil {
		a.Logger.Info("auto settle sweep", zap.Int("markets", len(markets)), zap.Int("settled", settled))
	}
	return settled, nil
}
