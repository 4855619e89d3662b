package db

import (
	"marketsim/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.Trader{},
		&models.Trade{},
		&models.RoundStat{},
		&models.SystemSetting{},
	)
}
