package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"marketsim/internal/models"
)

// ErrUniqueViolation is returned by inserts that hit a unique index.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Row lock strengths for LockMarketTx.
const (
	LockShare  = "SHARE"
	LockUpdate = "UPDATE"
)

type MarketRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	CreateMarket(ctx context.Context, item *models.Market) error
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	LockMarketTx(ctx context.Context, tx *gorm.DB, id string, strength string) (*models.Market, error)
	// AdvanceRoundTx moves the market from round `from` to from+1 and reports whether a row changed.
	AdvanceRoundTx(ctx context.Context, tx *gorm.DB, id string, from int64) (bool, error)
	ListReadyMarkets(ctx context.Context, limit int) ([]models.Market, error)
}

type TraderRepository interface {
	CreateTrader(ctx context.Context, item *models.Trader) error
	GetTrader(ctx context.Context, id uint64) (*models.Trader, error)
	GetTraderTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Trader, error)
	ListTraders(ctx context.Context, marketID string) ([]models.Trader, error)
	ListTradersTx(ctx context.Context, tx *gorm.DB, marketID string) ([]models.Trader, error)
	CountTraders(ctx context.Context, marketID string) (int64, error)
	UpdateTraderBalanceTx(ctx context.Context, tx *gorm.DB, id uint64, balance decimal.Decimal) error
}

type TradeRepository interface {
	InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	ListRoundTradesTx(ctx context.Context, tx *gorm.DB, marketID string, round int64) ([]models.Trade, error)
	UpdateTradeResultTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	ListTradesByTrader(ctx context.Context, traderID uint64) ([]models.Trade, error)
	ListReadyTraderNames(ctx context.Context, marketID string, round int64) ([]string, error)
	CountPendingTraders(ctx context.Context, marketID string, round int64) (int64, error)
}

type RoundStatRepository interface {
	InsertRoundStatsTx(ctx context.Context, tx *gorm.DB, items []models.RoundStat) error
	ListRoundStats(ctx context.Context, marketID string) ([]models.RoundStat, error)
	CountRoundStats(ctx context.Context, marketID string, round int64) (int64, error)
}

type SystemSettingRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

// Repository is everything the engine and its HTTP surface read and write.
type Repository interface {
	MarketRepository
	TraderRepository
	TradeRepository
	RoundStatRepository
	SystemSettingRepository
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
