package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market is one simulation instance: its demand curve, cost range and round counter.
type Market struct {
	ID    string          `gorm:"primaryKey;type:varchar(16)" json:"id"`
	Alpha decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"alpha"`
	Beta  decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"beta"`
	Theta decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"theta"`

	MinCost decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"min_cost"`
	MaxCost decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"max_cost"`

	// Round only moves forward, one step per settlement.
	Round int64 `gorm:"not null;default:0" json:"round"`

	ProductNameSingular string `gorm:"type:varchar(16)" json:"product_name_singular,omitempty"`
	ProductNamePlural   string `gorm:"type:varchar(16)" json:"product_name_plural,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Traders []Trader `gorm:"foreignKey:MarketID;constraint:OnDelete:CASCADE" json:"traders,omitempty"`
}

func (Market) TableName() string {
	return "markets"
}
