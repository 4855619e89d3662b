package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a trader's offer for one round. The (trader_id, round) pair is unique, so a
// forced trade can only be written when the trader has not submitted one.
type Trade struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TraderID uint64 `gorm:"not null;uniqueIndex:idx_trades_trader_round,priority:1" json:"trader_id"`
	// Round the offer applies to; may lag the market's current round once settled.
	Round int64 `gorm:"not null;uniqueIndex:idx_trades_trader_round,priority:2;index" json:"round"`

	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	UnitAmount int64           `gorm:"not null" json:"unit_amount"`
	WasForced  bool            `gorm:"not null;default:false" json:"was_forced"`

	Profit       *decimal.Decimal `gorm:"type:numeric(30,2)" json:"profit"`
	BalanceAfter *decimal.Decimal `gorm:"type:numeric(30,2)" json:"balance_after"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
