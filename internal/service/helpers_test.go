package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"

	"marketsim/internal/config"
	"marketsim/internal/db"
	"marketsim/internal/models"
	gormrepository "marketsim/internal/repository/gorm"
)

func newTestStore(t *testing.T) *gormrepository.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "market.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := db.OpenDialector(sqlite.Open(dsn), config.DBConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormrepository.New(conn.Gorm)
}

type testEngine struct {
	store      *gormrepository.Store
	markets    *MarketRegistry
	traders    *TraderRegistry
	trades     *TradeService
	readiness  *ReadinessService
	settlement *SettlementService
}

func marketConfig() config.MarketConfig {
	return config.MarketConfig{
		InitialBalance: "5000",
		IDLength:       8,
		IDAlphabet:     "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		IDMaxAttempts:  16,
		Defaults: config.MarketDefaults{
			Alpha:   "105",
			Beta:    "17.5",
			Theta:   "14.58",
			MinCost: "5",
			MaxCost: "15",
		},
	}
}

// newTestEngine wires every service against a fresh database. Production costs are
// always drawn as min_cost + 3.00 so that the default market gives a cost of 8.
func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	store := newTestStore(t)
	cfg := marketConfig()
	return &testEngine{
		store:   store,
		markets: &MarketRegistry{Repo: store, Config: cfg, IDs: NewMarketIDAllocator(cfg)},
		traders: &TraderRegistry{Repo: store, Config: cfg, Int64N: func(n int64) int64 {
			if n > 300 {
				return 300
			}
			return n - 1
		}},
		trades:     &TradeService{Repo: store},
		readiness:  &ReadinessService{Repo: store},
		settlement: &SettlementService{Repo: store},
	}
}

func (e *testEngine) createMarket(t *testing.T) *models.Market {
	t.Helper()
	m, err := e.markets.CreateMarket(context.Background(), CreateMarketInput{})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

func (e *testEngine) join(t *testing.T, marketID, name string) *models.Trader {
	t.Helper()
	tr, err := e.traders.JoinMarket(context.Background(), marketID, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return tr
}

func (e *testEngine) submit(t *testing.T, tr *models.Trader, round int64, price, amount string) *models.Trade {
	t.Helper()
	trade, err := e.trades.Submit(context.Background(), SubmitTradeInput{
		TraderID: tr.ID,
		MarketID: tr.MarketID,
		Round:    round,
		Price:    price,
		Amount:   amount,
	})
	if err != nil {
		t.Fatalf("submit for %s: %v", tr.Name, err)
	}
	return trade
}
