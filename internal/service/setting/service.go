package setting

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
)

type SettingServiceImpl struct {
	setting.SettingRepository
	defaults setting.Configuration
}

func NewSettingService(settingRepo setting.SettingRepository, defaults setting.Configuration) setting.SettingService {
	return &SettingServiceImpl{
		SettingRepository: settingRepo,
		defaults:          defaults,
	}
}

// Get implements setting.SettingService.
func (s *SettingServiceImpl) Get(ctx context.Context) (setting.Configuration, error) {
	cfg, err := s.SettingRepository.Get(ctx)
	if err != nil {
		return setting.Configuration{}, fmt.Errorf("failed to get office settings: %w", err)
	}
	if cfg == nil {
		return s.defaults, nil
	}
	return *cfg, nil
}

// GetSettings implements setting.SettingService.
func (s *SettingServiceImpl) GetSettings(ctx context.Context) (setting.SettingsResponse, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return setting.SettingsResponse{}, err
	}
	return setting.NewSettingsResponse(cfg), nil
}

// UpdateSettings implements setting.SettingService.
func (s *SettingServiceImpl) UpdateSettings(ctx context.Context, req setting.UpdateSettingsRequest) (setting.SettingsResponse, error) {
	if err := req.Validate(); err != nil {
		return setting.SettingsResponse{}, err
	}

	cfg, err := req.ToConfiguration()
	if err != nil {
		return setting.SettingsResponse{}, err
	}

	saved, err := s.SettingRepository.Set(ctx, cfg)
	if err != nil {
		return setting.SettingsResponse{}, fmt.Errorf("failed to save office settings: %w", err)
	}
	return setting.NewSettingsResponse(saved), nil
}
