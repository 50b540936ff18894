package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
)

type settingRepository struct {
	store *Store
}

func NewSettingRepository(store *Store) setting.SettingRepository {
	return &settingRepository{store: store}
}

// Get implements setting.SettingRepository.
func (r *settingRepository) Get(_ context.Context) (*setting.Configuration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if r.store.settings == nil {
		return nil, nil
	}
	cfg := *r.store.settings
	return &cfg, nil
}

// Set implements setting.SettingRepository.
func (r *settingRepository) Set(ctx context.Context, cfg setting.Configuration) (setting.Configuration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	cfg.UpdatedAt = &now

	prev := r.store.settings
	stored := cfg
	r.store.settings = &stored
	r.store.record(ctx, func() { r.store.settings = prev })
	return cfg, nil
}
