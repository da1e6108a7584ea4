package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/validator"
)

// SettingService reads and updates the assessment settings.
type SettingService interface {
	Current(ctx context.Context) (model.Settings, error)
	Update(ctx context.Context, req model.UpdateSettingsRequest) (model.Settings, error)
}

type SettingHandler struct {
	settings SettingService
	log      zerolog.Logger
}

func NewSettingHandler(settings SettingService, log zerolog.Logger) *SettingHandler {
	return &SettingHandler{
		settings: settings,
		log:      log.With().Str("component", "setting_handler").Logger(),
	}
}

// GetSettings godoc
// GET /api/v1/admin/settings
func (h *SettingHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Current(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings godoc
// PUT /api/v1/admin/settings
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}
