package gormrepository

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketsim/internal/models"
	"marketsim/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- markets ----------------------------------------------------------------

func (s *Store) CreateMarket(ctx context.Context, item *models.Market) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error)
}

func (s *Store) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// LockMarketTx reads the market row under a row lock (FOR SHARE / FOR UPDATE).
// Dialects without row locks (sqlite) drop the clause.
func (s *Store) LockMarketTx(ctx context.Context, tx *gorm.DB, id string, strength string) (*models.Market, error) {
	var item models.Market
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) AdvanceRoundTx(ctx context.Context, tx *gorm.DB, id string, from int64) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ? AND round = ?", id, from).
		UpdateColumn("round", gorm.Expr("round + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListReadyMarkets returns markets with at least one trader where every trader has a
// voluntary trade for the market's current round.
func (s *Store) ListReadyMarkets(ctx context.Context, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Market
	err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("EXISTS (SELECT 1 FROM traders t WHERE t.market_id = markets.id)").
		Where(`NOT EXISTS (
			SELECT 1 FROM traders t WHERE t.market_id = markets.id AND NOT EXISTS (
				SELECT 1 FROM trades tr WHERE tr.trader_id = t.id AND tr.round = markets.round AND tr.was_forced = ?
			)
		)`, false).
		Order("markets.id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- traders ----------------------------------------------------------------

func (s *Store) CreateTrader(ctx context.Context, item *models.Trader) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error)
}

func (s *Store) GetTrader(ctx context.Context, id uint64) (*models.Trader, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return s.GetTraderTx(ctx, s.db, id)
}

func (s *Store) GetTraderTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Trader, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.Trader
	err := tx.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTraders(ctx context.Context, marketID string) ([]models.Trader, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return s.ListTradersTx(ctx, s.db, marketID)
}

// ListTradersTx returns the market's traders in join order.
func (s *Store) ListTradersTx(ctx context.Context, tx *gorm.DB, marketID string) ([]models.Trader, error) {
	var items []models.Trader
	if err := tx.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTraders(ctx context.Context, marketID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Trader{}).Where("market_id = ?", marketID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateTraderBalanceTx(ctx context.Context, tx *gorm.DB, id uint64, balance decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&models.Trader{}).
		Where("id = ?", id).
		UpdateColumn("balance", balance).Error
}

// --- trades -----------------------------------------------------------------

// InsertTradeTx is a single INSERT; the (trader_id, round) index rejects a second row.
func (s *Store) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if item == nil {
		return nil
	}
	return translate(tx.WithContext(ctx).Create(item).Error)
}

func (s *Store) ListRoundTradesTx(ctx context.Context, tx *gorm.DB, marketID string, round int64) ([]models.Trade, error) {
	var items []models.Trade
	if err := tx.WithContext(ctx).
		Model(&models.Trade{}).
		Select("trades.*").
		Joins("JOIN traders ON traders.id = trades.trader_id").
		Where("traders.market_id = ? AND trades.round = ?", marketID, round).
		Order("traders.created_at asc").
		Order("traders.id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateTradeResultTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", item.ID).
		UpdateColumns(map[string]any{
			"profit":        item.Profit,
			"balance_after": item.BalanceAfter,
		}).Error
}

func (s *Store) ListTradesByTrader(ctx context.Context, traderID uint64) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trade
	if err := s.db.WithContext(ctx).
		Where("trader_id = ?", traderID).
		Order("round asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListReadyTraderNames returns, in join order, the traders of the market holding a
// voluntary trade for round.
func (s *Store) ListReadyTraderNames(ctx context.Context, marketID string, round int64) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var names []string
	if err := s.db.WithContext(ctx).
		Model(&models.Trader{}).
		Joins("JOIN trades ON trades.trader_id = traders.id").
		Where("traders.market_id = ? AND trades.round = ? AND trades.was_forced = ?", marketID, round, false).
		Order("traders.created_at asc").
		Order("traders.id asc").
		Pluck("traders.name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// CountPendingTraders counts traders of the market without a voluntary trade for round.
func (s *Store) CountPendingTraders(ctx context.Context, marketID string, round int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.Trader{}).
		Where("market_id = ?", marketID).
		Where("NOT EXISTS (SELECT 1 FROM trades tr WHERE tr.trader_id = traders.id AND tr.round = ? AND tr.was_forced = ?)", round, false).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- round stats ------------------------------------------------------------

func (s *Store) InsertRoundStatsTx(ctx context.Context, tx *gorm.DB, items []models.RoundStat) error {
	return translate(createInBatches(tx.WithContext(ctx), items, 200))
}

func (s *Store) ListRoundStats(ctx context.Context, marketID string) ([]models.RoundStat, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.RoundStat
	if err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("round asc").
		Order("trader_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountRoundStats(ctx context.Context, marketID string, round int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.RoundStat{}).
		Where("market_id = ? AND round = ?", marketID, round).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return db.CreateInBatches(items, batchSize).Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
