package setting

import "context"

// SettingService reads and updates office rules. Get never fails for an empty store:
// the default configuration is returned instead.
type SettingService interface {
	Get(ctx context.Context) (Configuration, error)
	GetSettings(ctx context.Context) (SettingsResponse, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (SettingsResponse, error)
}
