package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingRepository struct {
	db *database.DB
}

func NewSettingRepository(db *database.DB) setting.SettingRepository {
	return &settingRepository{db: db}
}

// Get implements setting.SettingRepository.
func (r *settingRepository) Get(ctx context.Context) (*setting.Configuration, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT office_start, office_end, required_daily_hours, updated_at
		FROM office_settings
		WHERE id = 1
	`

	var start, end int
	var cfg setting.Configuration
	var updatedAt time.Time
	err := q.QueryRow(ctx, query).Scan(&start, &end, &cfg.RequiredDailyHours, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(fmt.Errorf("failed to get office settings: %w", err))
	}

	cfg.OfficeStart = setting.TimeOfDay(start)
	cfg.OfficeEnd = setting.TimeOfDay(end)
	cfg.UpdatedAt = &updatedAt
	return &cfg, nil
}

// Set implements setting.SettingRepository.
func (r *settingRepository) Set(ctx context.Context, cfg setting.Configuration) (setting.Configuration, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO office_settings (id, office_start, office_end, required_daily_hours, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET office_start = EXCLUDED.office_start,
			office_end = EXCLUDED.office_end,
			required_daily_hours = EXCLUDED.required_daily_hours,
			updated_at = NOW()
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := q.QueryRow(ctx, query, int(cfg.OfficeStart), int(cfg.OfficeEnd), cfg.RequiredDailyHours).Scan(&updatedAt)
	if err != nil {
		return setting.Configuration{}, storeErr(fmt.Errorf("failed to save office settings: %w", err))
	}

	cfg.UpdatedAt = &updatedAt
	return cfg, nil
}
