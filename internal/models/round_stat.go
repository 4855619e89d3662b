package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStat is the immutable audit row written for every trader when a round settles.
type RoundStat struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MarketID string `gorm:"type:varchar(16);not null;uniqueIndex:idx_round_stats_market_round_trader,priority:1" json:"market_id"`
	Round    int64  `gorm:"not null;uniqueIndex:idx_round_stats_market_round_trader,priority:2" json:"round"`
	TraderID uint64 `gorm:"not null;uniqueIndex:idx_round_stats_market_round_trader,priority:3;index" json:"trader_id"`

	Price  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	Amount int64           `gorm:"not null" json:"amount"`
	Profit decimal.Decimal `gorm:"type:numeric(30,2);not null" json:"profit"`
	Bank   decimal.Decimal `gorm:"type:numeric(30,2);not null" json:"bank"`

	SettlementID string    `gorm:"type:varchar(36);not null;index" json:"settlement_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RoundStat) TableName() string {
	return "round_stats"
}
