package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketsim/internal/models"
	"marketsim/internal/repository"
	"marketsim/internal/validation"
)

// SubmitTradeInput is one offer. Round is the round the caller believes is current;
// Price and Amount are raw form values.
type SubmitTradeInput struct {
	TraderID uint64
	MarketID string
	Round    int64
	Price    string
	Amount   string
}

type TradeService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Submit validates the offer and records it with a single insert, holding a shared lock
// on the market row so that it cannot interleave with settlement of the same round.
func (s *TradeService) Submit(ctx context.Context, in SubmitTradeInput) (*models.Trade, error) {
	vals, err := validation.TradeSchema().Validate(map[string]string{
		validation.FieldPrice:  in.Price,
		validation.FieldAmount: in.Amount,
	})
	if err != nil {
		return nil, err
	}
	if in.Round < 0 {
		return nil, &validation.Error{Field: validation.FieldRound, Reason: "must be at least 0"}
	}
	marketID := normalizeMarketID(in.MarketID)

	trade := &models.Trade{
		TraderID:   in.TraderID,
		Round:      in.Round,
		UnitPrice:  vals.Decimal(validation.FieldPrice),
		UnitAmount: vals.Int(validation.FieldAmount),
	}
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		trader, err := s.Repo.GetTraderTx(ctx, tx, in.TraderID)
		if err != nil {
			return err
		}
		if trader == nil {
			return ErrTraderNotFound
		}
		if trader.MarketID != marketID {
			return ErrTraderNotInMarket
		}
		market, err := s.Repo.LockMarketTx(ctx, tx, marketID, repository.LockShare)
		if err != nil {
			return err
		}
		if market == nil {
			return ErrMarketNotFound
		}
		if market.Round != in.Round {
			return ErrStaleRound
		}
		if err := s.Repo.InsertTradeTx(ctx, tx, trade); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return ErrDuplicateSubmission
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logRejected(in, err)
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("trade submitted",
			zap.String("market_id", marketID),
			zap.Uint64("trader_id", in.TraderID),
			zap.Int64("round", in.Round),
			zap.String("price", trade.UnitPrice.String()),
			zap.Int64("amount", trade.UnitAmount),
		)
	}
	return trade, nil
}

func (s *TradeService) logRejected(in SubmitTradeInput, err error) {
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("market_id", in.MarketID),
		zap.Uint64("trader_id", in.TraderID),
		zap.Int64("round", in.Round),
	}
	if isRejection(err) {
		s.Logger.Debug("trade rejected", append(fields, zap.Error(err))...)
		return
	}
	s.Logger.Warn("trade submission failed", append(fields, zap.Error(err))...)
}

// isRejection reports errors caused by the caller rather than the store.
func isRejection(err error) bool {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrTraderNotFound),
		errors.Is(err, ErrTraderNotInMarket),
		errors.Is(err, ErrMarketNotFound),
		errors.Is(err, ErrStaleRound),
		errors.Is(err, ErrDuplicateSubmission):
		return true
	}
	return false
}
