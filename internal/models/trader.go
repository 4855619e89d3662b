package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trader struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MarketID string `gorm:"type:varchar(16);not null;index" json:"market_id"`
	Name     string `gorm:"type:varchar(16);not null" json:"name"`

	// ProductionCost is drawn once at join time and never changes.
	ProductionCost decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"production_cost"`
	// Balance is only moved by settlement.
	Balance decimal.Decimal `gorm:"type:numeric(30,2);not null" json:"balance"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Trades []Trade `gorm:"foreignKey:TraderID;constraint:OnDelete:CASCADE" json:"trades,omitempty"`
}

func (Trader) TableName() string {
	return "traders"
}
