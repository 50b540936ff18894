package setting

import "context"

// SettingRepository persists the single process-wide Configuration.
type SettingRepository interface {
	// Get returns nil when no configuration has been stored yet.
	Get(ctx context.Context) (*Configuration, error)
	Set(ctx context.Context, cfg Configuration) (Configuration, error)
}
