package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"marketsim/internal/config"
	"marketsim/internal/db"
	"marketsim/internal/logger"
	gormrepository "marketsim/internal/repository/gorm"
	"marketsim/internal/service"
)

type Commander interface {
	Command() *cli.Command
}

var (
	Commands = []Commander{
		ShowVersion{},
		CreateMarket{},
		ShowStatus{},
		SettleRound{},
		ExportHistory{},
	}
)

// engine is the service graph a one-shot command needs; it talks to the database directly.
type engine struct {
	conn       *db.DB
	markets    *service.MarketRegistry
	readiness  *service.ReadinessService
	settlement *service.SettlementService
	history    *service.HistoryService
}

func openEngine(c *cli.Context) (*engine, error) {
	cfg, err := config.Load(c.String("config"), c.Bool("env-only"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	conn, err := db.Open(cfg.DB)
	if err != nil {
		zap.L().Error("open database failed", zap.Error(err))
		return nil, err
	}
	if err := db.AutoMigrate(conn); err != nil {
		_ = db.Close(conn)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	store := gormrepository.New(conn.Gorm)
	return &engine{
		conn: conn,
		markets: &service.MarketRegistry{
			Repo:   store,
			Config: cfg.Market,
			IDs:    service.NewMarketIDAllocator(cfg.Market),
			Logger: log,
		},
		readiness:  &service.ReadinessService{Repo: store},
		settlement: &service.SettlementService{Repo: store, Logger: log},
		history:    &service.HistoryService{Repo: store, Logger: log},
	}, nil
}

func (e *engine) Close() {
	_ = db.Close(e.conn)
	_ = zap.L().Sync()
}
