package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/homescout-onboarding/internal/transport/http/middleware"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

// PreferencesHandler exposes the user preferences API.
type PreferencesHandler struct {
	preferences *usecase.PreferencesService
}

// NewPreferencesHandler constructs a preferences handler.
func NewPreferencesHandler(preferences *usecase.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{preferences: preferences}
}

// RegisterRoutes binds the preferences routes. Callers must run ResolveUser first.
func (h *PreferencesHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.Use(middleware.RequireUser())
	r.GET("", h.GetPreferences)
	r.POST("", h.SavePreferences)
	r.GET("/exists", h.CheckExists)
}

// GetPreferences godoc
// @Summary Get the caller's search preferences
// @Tags Preferences
// @Produce json
// @Param X-User-ID header string false "User ID when no bearer token is sent"
// @Success 200 {object} PreferencesResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/preferences [get]
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	prefs, found, err := h.preferences.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "not found"))
		return
	}

	c.JSON(http.StatusOK, newPreferencesResponse(prefs))
}

// SavePreferences godoc
// @Summary Create or replace the caller's search preferences
// @Tags Preferences
// @Accept json
// @Produce json
// @Param request body PreferencesRequest true "Preferences"
// @Success 200 {object} PreferencesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/preferences [post]
func (h *PreferencesHandler) SavePreferences(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	prefs, err := h.preferences.SavePreferences(c.Request.Context(), userID, req.toInput())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	c.JSON(http.StatusOK, newPreferencesResponse(prefs))
}

// CheckExists godoc
// @Summary Report whether the caller has saved preferences
// @Description Storage faults answer exists=false.
// @Tags Preferences
// @Produce json
// @Success 200 {object} ExistsResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/preferences/exists [get]
func (h *PreferencesHandler) CheckExists(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	c.JSON(http.StatusOK, ExistsResponse{Exists: h.preferences.CheckExists(c.Request.Context(), userID)})
}
