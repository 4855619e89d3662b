package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"marketsim/internal/models"
	"marketsim/internal/repository"
)

const (
	// FeatureAutoSettle lets the cron sweep settle markets whose traders are all ready.
	FeatureAutoSettle = "feature.auto_settle"
	// FeatureRoundStream enables the websocket round watch.
	FeatureRoundStream = "feature.round_stream"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureAutoSettle:  false,
		FeatureRoundStream: true,
	}
}

type SystemSettingsService struct {
	Repo repository.SystemSettingRepository
}

// EnsureDefaultSwitches writes missing switches with their defaults. Existing values are kept.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	now := time.Now().UTC()
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

// Switches returns every feature.* switch with its current value.
func (s *SystemSettingsService) Switches(ctx context.Context) (map[string]bool, error) {
	out := DefaultFeatureSwitches()
	if s == nil || s.Repo == nil {
		return out, nil
	}
	prefix := "feature."
	items, err := s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix, Limit: 500})
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		var enabled bool
		if err := json.Unmarshal(item.Value, &enabled); err == nil {
			out[item.Key] = enabled
		}
	}
	return out, nil
}
