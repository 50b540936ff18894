package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/handler/http/response"
)

type SettingHandler interface {
	GetSettings(w http.ResponseWriter, r *http.Request)
	UpdateSettings(w http.ResponseWriter, r *http.Request)
}

type settingHandlerImpl struct {
	settingService setting.SettingService
}

func NewSettingHandler(settingService setting.SettingService) SettingHandler {
	return &settingHandlerImpl{
		settingService: settingService,
	}
}

// GetSettings implements SettingHandler.
func (h *settingHandlerImpl) GetSettings(w http.ResponseWriter, r *http.Request) {
	result, err := h.settingService.GetSettings(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpdateSettings implements SettingHandler.
func (h *settingHandlerImpl) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req setting.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode settings request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.settingService.UpdateSettings(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Office settings updated", result)
}
