package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketsim/internal/cache"
	"marketsim/internal/models"
	"marketsim/internal/repository"
)

const historySheet = "Sheet1"

type HistoryRow struct {
	Round     int64           `json:"round"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	AvgAmount decimal.Decimal `json:"avg_amount"`
	AvgProfit decimal.Decimal `json:"avg_profit"`
	// Banks follows History.Traders; nil where the trader had not joined yet.
	Banks []*decimal.Decimal `json:"banks"`
}

// History is one row per settled round, derived only from RoundStat rows.
type History struct {
	MarketID string       `json:"market_id"`
	Round    int64        `json:"round"`
	Traders  []string     `json:"traders"`
	Rows     []HistoryRow `json:"rows"`
}

func (h *History) Header() []string {
	header := []string{"Round", "Average price", "Average amount", "Average profit"}
	for _, name := range h.Traders {
		header = append(header, name+" bank")
	}
	return header
}

func (h *History) Records() [][]string {
	out := make([][]string, 0, len(h.Rows)+1)
	out = append(out, h.Header())
	for _, row := range h.Rows {
		rec := []string{
			fmt.Sprintf("%d", row.Round),
			row.AvgPrice.StringFixed(2),
			row.AvgAmount.StringFixed(2),
			row.AvgProfit.StringFixed(2),
		}
		for _, bank := range row.Banks {
			if bank == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, bank.StringFixed(2))
		}
		out = append(out, rec)
	}
	return out
}

func (h *History) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(h.Records()); err != nil {
		return err
	}
	return cw.Error()
}

func (h *History) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	for i, rec := range h.Records() {
		cells := make([]interface{}, 0, len(rec))
		for _, v := range rec {
			cells = append(cells, v)
		}
		f.SetSheetRow(historySheet, fmt.Sprintf("A%d", i+1), &cells)
	}
	return f.Write(w)
}

type HistoryService struct {
	Repo   repository.Repository
	Cache  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

func historyCacheKey(marketID string, round int64, traders int) string {
	return fmt.Sprintf("history:%s:%d:%d", marketID, round, traders)
}

// ExportHistory builds the per-round summary for every settled round of the market.
// It never writes to the database.
func (s *HistoryService) ExportHistory(ctx context.Context, marketID string) (*History, error) {
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

	key := historyCacheKey(market.ID, market.Round, len(traders))
	var cached History
	if found, err := cache.GetJSON(ctx, s.Cache, key, &cached); err != nil {
		s.logWarn("history cache read failed", err, zap.String("market_id", market.ID))
	} else if found {
		return &cached, nil
	}

	stats, err := s.Repo.ListRoundStats(ctx, market.ID)
	if err != nil {
		return nil, err
	}
	h := buildHistory(market, traders, stats)

	if err := cache.SetJSON(ctx, s.Cache, key, h, s.TTL); err != nil {
		s.logWarn("history cache write failed", err, zap.String("market_id", market.ID))
	}
	return h, nil
}

func buildHistory(market *models.Market, traders []models.Trader, stats []models.RoundStat) *History {
	h := &History{
		MarketID: market.ID,
		Round:    market.Round,
		Traders:  make([]string, 0, len(traders)),
		Rows:     make([]HistoryRow, 0, market.Round),
	}
	column := make(map[uint64]int, len(traders))
	for i, t := range traders {
		h.Traders = append(h.Traders, t.Name)
		column[t.ID] = i
	}
	byRound := make(map[int64][]models.RoundStat)
	for _, st := range stats {
		byRound[st.Round] = append(byRound[st.Round], st)
	}

	for r := int64(0); r < market.Round; r++ {
		row := HistoryRow{
			Round:     r,
			AvgPrice:  decimal.Zero,
			AvgAmount: decimal.Zero,
			AvgProfit: decimal.Zero,
			Banks:     make([]*decimal.Decimal, len(traders)),
		}
		rs := byRound[r]
		if n := int64(len(rs)); n > 0 {
			sumPrice, sumAmount, sumProfit := decimal.Zero, decimal.Zero, decimal.Zero
			for _, st := range rs {
				sumPrice = sumPrice.Add(st.Price)
				sumAmount = sumAmount.Add(decimal.NewFromInt(st.Amount))
				sumProfit = sumProfit.Add(st.Profit)
				if col, ok := column[st.TraderID]; ok {
					bank := st.Bank
					row.Banks[col] = &bank
				}
			}
			count := decimal.NewFromInt(n)
			row.AvgPrice = sumPrice.Div(count)
			row.AvgAmount = sumAmount.Div(count)
			row.AvgProfit = sumProfit.Div(count)
		}
		h.Rows = append(h.Rows, row)
	}
	return h
}

func (s *HistoryService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
