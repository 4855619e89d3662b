package service

import (
	"context"

	"marketsim/internal/repository"
)

// RoundStatus is the waiting-room view of a market's current round.
type RoundStatus struct {
	MarketID  string   `json:"market_id"`
	Round     int64    `json:"round"`
	Ready     bool     `json:"ready"`
	Traders   []string `json:"traders"`
	Submitted []string `json:"submitted"`
}

type ReadinessService struct {
	Repo repository.Repository
}

// TradersReady lists, in join order, the names of traders holding a voluntary trade for round.
func (s *ReadinessService) TradersReady(ctx context.Context, marketID string, round int64) ([]string, error) {
	market, err := s.Repo.GetMarket(ctx, normalizeMarketID(marketID))
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	names, err := s.Repo.ListReadyTraderNames(ctx, market.ID, round)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// IsReady reports whether every trader in the market has submitted for the current
// round. A market without traders is never ready.
func (s *ReadinessService) IsReady(ctx context.Context, marketID string) (bool, error) {
	market, err := s.Repo.GetMarket(ctx, normalizeMarketID(marketID))
	if err != nil {
		return false, err
	}
	if market == nil {
		return false, ErrMarketNotFound
	}
	total, err := s.Repo.CountTraders(ctx, market.ID)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	pending, err := s.Repo.CountPendingTraders(ctx, market.ID, market.Round)
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

// TradersInMarket lists trader names in join order.
func (s *ReadinessService) TradersInMarket(ctx context.Context, marketID string) ([]string, error) {
	market, err := s.Repo.GetMarket(ctx, normalizeMarketID(marketID))
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	traders, err := s.Repo.ListTraders(ctx, market.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(traders))
	for _, t := range traders {
		names = append(names, t.Name)
	}
	return names, nil
}

// Status gathers the current round, the roster and who has submitted.
func (s *ReadinessService) Status(ctx context.Context, marketID string) (*RoundStatus, error) {
	market, err := s.Repo.GetMarket(ctx, normalizeMarketID(marketID))
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	traders, err := s.TradersInMarket(ctx, market.ID)
	if err != nil {
		return nil, err
	}
	submitted, err := s.TradersReady(ctx, market.ID, market.Round)
	if err != nil {
		return nil, err
	}
	return &RoundStatus{
		MarketID:  market.ID,
		Round:     market.Round,
		Ready:     len(traders) > 0 && len(submitted) == len(traders),
		Traders:   traders,
		Submitted: submitted,
	}, nil
}
