package setting

import (
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
)

type UpdateSettingsRequest struct {
	OfficeStart        string  `json:"office_start" validate:"required"`
	OfficeEnd          string  `json:"office_end" validate:"required"`
	RequiredDailyHours float64 `json:"required_daily_hours" validate:"required"`
}

func (r *UpdateSettingsRequest) Validate() error {
	return validator.Struct(r)
}

// ToConfiguration parses the request. Malformed times fail with ErrParseFailure.
func (r UpdateSettingsRequest) ToConfiguration() (Configuration, error) {
	start, err := ParseTimeOfDay(r.OfficeStart)
	if err != nil {
		return Configuration{}, err
	}
	end, err := ParseTimeOfDay(r.OfficeEnd)
	if err != nil {
		return Configuration{}, err
	}

	cfg := Configuration{
		OfficeStart:        start,
		OfficeEnd:          end,
		RequiredDailyHours: r.RequiredDailyHours,
	}
	return cfg, cfg.Validate()
}

type SettingsResponse struct {
	OfficeStart        string  `json:"office_start"`
	OfficeEnd          string  `json:"office_end"`
	RequiredDailyHours float64 `json:"required_daily_hours"`
	IsDefault          bool    `json:"is_default"`
	UpdatedAt          *string `json:"updated_at,omitempty"`
}

func NewSettingsResponse(cfg Configuration) SettingsResponse {
	resp := SettingsResponse{
		OfficeStart:        cfg.OfficeStart.String(),
		OfficeEnd:          cfg.OfficeEnd.String(),
		RequiredDailyHours: cfg.RequiredDailyHours,
		IsDefault:          cfg.UpdatedAt == nil,
	}
	if cfg.UpdatedAt != nil {
		s := cfg.UpdatedAt.Format(time.RFC3339)
		resp.UpdatedAt = &s
	}
	return resp
}
