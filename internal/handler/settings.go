package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketsim/internal/repository"
	"marketsim/internal/service"
)

type SystemSettingsHandler struct {
	Repo     repository.SystemSettingRepository
	Settings *service.SystemSettingsService
}

func (h *SystemSettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/system-settings")
	g.GET("", h.list)
	g.GET("/switches", h.listSwitches)
	g.GET("/switches/:name", h.getSwitch)
	g.PUT("/switches/:name", h.putSwitch)
}

// @Summary List system settings
// @Tags system
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Param prefix query string false "Key prefix"
// @Success 200 {object} apiResponse
// @Router /api/system-settings [get]
func (h *SystemSettingsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	var prefix *string
	if v := strings.TrimSpace(c.Query("prefix")); v != "" {
		prefix = &v
	}
	params := repository.ListSystemSettingsParams{
		Limit:   limit,
		Offset:  offset,
		Prefix:  prefix,
		OrderBy: "key",
		Asc:     boolPtr(true),
	}
	items, err := h.Repo.ListSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary List feature switches
// @Tags system
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches [get]
func (h *SystemSettingsHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	switches, err := h.Settings.Switches(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(switches))
	for key, enabled := range switches {
		out = append(out, map[string]any{
			"name":    strings.TrimPrefix(key, "feature."),
			"key":     key,
			"enabled": enabled,
		})
	}
	Ok(c, out, nil)
}

// @Summary Get a feature switch
// @Tags system
// @Param name path string true "Switch name without the feature. prefix"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches/{name} [get]
func (h *SystemSettingsHandler) getSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	key := "feature." + name
	fallback := service.DefaultFeatureSwitches()[key]
	Ok(c, map[string]any{
		"name":    name,
		"key":     key,
		"enabled": h.Settings.IsEnabled(c.Request.Context(), key, fallback),
	}, nil)
}

type putSwitchRequest struct {
	Enabled bool `json:"enabled"`
}

// @Summary Turn a feature switch on or off
// @Tags system
// @Accept json
// @Param name path string true "Switch name without the feature. prefix"
// @Param body body putSwitchRequest true "New state"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches/{name} [put]
func (h *SystemSettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	key := "feature." + name
	if err := h.Settings.SetEnabled(c.Request.Context(), key, req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"name":    name,
		"key":     key,
		"enabled": req.Enabled,
	}, nil)
}
