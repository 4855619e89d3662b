package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketsim/internal/audit"
	"marketsim/internal/clearing"
	"marketsim/internal/models"
	"marketsim/internal/repository"
)

type SettlementResult struct {
	// Settled is false when the round had already been settled by someone else.
	Settled      bool               `json:"settled"`
	MarketID     string             `json:"market_id"`
	Round        int64              `json:"round"`
	NextRound    int64              `json:"next_round"`
	SettlementID string             `json:"settlement_id,omitempty"`
	AvgPrice     decimal.Decimal    `json:"avg_price"`
	Forced       int                `json:"forced"`
	Stats        []models.RoundStat `json:"stats"`
}

type SettlementService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Audit  *audit.Client
	// NewID names a settlement run; nil uses uuid.NewString.
	NewID func() string
}

// SettleRound clears round for the market and advances it to round+1. A trigger for a
// round the market has already left is a no-op reported with Settled=false.
func (s *SettlementService) SettleRound(ctx context.Context, marketID string, round int64) (*SettlementResult, error) {
	marketID = normalizeMarketID(marketID)
	start := time.Now()
	res, err := s.settle(ctx, marketID, round)
	if errors.Is(err, ErrStaleSettlement) {
		market, gerr := s.Repo.GetMarket(ctx, marketID)
		if gerr != nil {
			return nil, gerr
		}
		if market == nil {
			return nil, ErrMarketNotFound
		}
		s.logInfo("stale settlement ignored",
			zap.String("market_id", marketID),
			zap.Int64("round", round),
			zap.Int64("current_round", market.Round),
		)
		return &SettlementResult{
			Settled:   false,
			MarketID:  marketID,
			Round:     round,
			NextRound: market.Round,
			Stats:     []models.RoundStat{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logInfo("round settled",
		zap.String("market_id", marketID),
		zap.Int64("round", res.Round),
		zap.String("settlement_id", res.SettlementID),
		zap.String("avg_price", res.AvgPrice.String()),
		zap.Int("trades", len(res.Stats)),
		zap.Int("forced", res.Forced),
		zap.Duration("took", time.Since(start)),
	)
	s.Audit.RecordAsync("round_settled", "info", map[string]any{
		"market_id":     marketID,
		"round":         res.Round,
		"settlement_id": res.SettlementID,
		"avg_price":     res.AvgPrice.String(),
		"trades":        len(res.Stats),
		"forced":        res.Forced,
	})
	return res, nil
}

// SettleCurrent settles whatever round the market is on right now.
func (s *SettlementService) SettleCurrent(ctx context.Context, marketID string) (*SettlementResult, error) {
	market, err := s.Repo.GetMarket(ctx, normalizeMarketID(marketID))
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	return s.SettleRound(ctx, market.ID, market.Round)
}

func (s *SettlementService) settlementID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// settle runs forced-trade injection, clearing, balance updates, RoundStat inserts and the
// round advance in one transaction under an exclusive lock on the market row.
func (s *SettlementService) settle(ctx context.Context, marketID string, round int64) (*SettlementResult, error) {
	res := &SettlementResult{
		Settled:      true,
		MarketID:     marketID,
		Round:        round,
		NextRound:    round + 1,
		SettlementID: s.settlementID(),
		AvgPrice:     decimal.Zero,
	}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.LockMarketTx(ctx, tx, marketID, repository.LockUpdate)
		if err != nil {
			return err
		}
		if market == nil {
			return ErrMarketNotFound
		}
		if market.Round != round {
			return ErrStaleSettlement
		}

		traders, err := s.Repo.ListTradersTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		trades, err := s.Repo.ListRoundTradesTx(ctx, tx, marketID, round)
		if err != nil {
			return err
		}

		order := make(map[uint64]int, len(traders))
		byID := make(map[uint64]*models.Trader, len(traders))
		for i := range traders {
			order[traders[i].ID] = i
			byID[traders[i].ID] = &traders[i]
		}
		traded := make(map[uint64]struct{}, len(trades))
		for _, t := range trades {
			traded[t.TraderID] = struct{}{}
		}
		for _, trader := range traders {
			if _, ok := traded[trader.ID]; ok {
				continue
			}
			forced := models.Trade{
				TraderID:   trader.ID,
				Round:      round,
				UnitPrice:  decimal.Zero,
				UnitAmount: 0,
				WasForced:  true,
			}
			if err := s.Repo.InsertTradeTx(ctx, tx, &forced); err != nil {
				return fmt.Errorf("insert forced trade for trader %d: %w", trader.ID, err)
			}
			trades = append(trades, forced)
			res.Forced++
		}
		sort.SliceStable(trades, func(i, j int) bool {
			return order[trades[i].TraderID] < order[trades[j].TraderID]
		})

		offers := make([]clearing.Offer, 0, len(trades))
		for _, t := range trades {
			trader, ok := byID[t.TraderID]
			if !ok {
				return fmt.Errorf("trade %d references trader %d outside market %s", t.ID, t.TraderID, marketID)
			}
			offers = append(offers, clearing.Offer{
				TraderID:       t.TraderID,
				Price:          t.UnitPrice,
				Amount:         t.UnitAmount,
				ProductionCost: trader.ProductionCost,
			})
		}
		coeffs := clearing.Coefficients{Alpha: market.Alpha, Beta: market.Beta, Theta: market.Theta}
		avg, outcomes := clearing.ClearRound(coeffs, offers)
		res.AvgPrice = avg

		stats := make([]models.RoundStat, 0, len(trades))
		for i := range trades {
			trade := &trades[i]
			trader := byID[trade.TraderID]
			profit := outcomes[i].Profit
			balance := trader.Balance.Add(profit)
			trader.Balance = balance
			if err := s.Repo.UpdateTraderBalanceTx(ctx, tx, trader.ID, balance); err != nil {
				return err
			}
			trade.Profit = &profit
			trade.BalanceAfter = &balance
			if err := s.Repo.UpdateTradeResultTx(ctx, tx, trade); err != nil {
				return err
			}
			stats = append(stats, models.RoundStat{
				MarketID:     marketID,
				Round:        round,
				TraderID:     trader.ID,
				Price:        trade.UnitPrice,
				Amount:       trade.UnitAmount,
				Profit:       profit,
				Bank:         balance,
				SettlementID: res.SettlementID,
			})
		}
		if err := s.Repo.InsertRoundStatsTx(ctx, tx, stats); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return ErrStaleSettlement
			}
			return err
		}
		advanced, err := s.Repo.AdvanceRoundTx(ctx, tx, marketID, round)
		if err != nil {
			return err
		}
		if !advanced {
			return ErrStaleSettlement
		}
		res.Stats = stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Stats == nil {
		res.Stats = []models.RoundStat{}
	}
	return res, nil
}

func (s *SettlementService) logInfo(msg string, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Info(msg, fields...)
}
