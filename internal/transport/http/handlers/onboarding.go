package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/transport/http/middleware"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

// OnboardingHandler exposes the installation-scoped navigation state.
type OnboardingHandler struct {
	onboarding *usecase.InstallationOnboarding
}

// NewOnboardingHandler constructs an onboarding handler.
func NewOnboardingHandler(onboarding *usecase.InstallationOnboarding) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

// RegisterRoutes binds the onboarding routes. Callers must run EnrichContext and ResolveUser first.
func (h *OnboardingHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("/state", h.GetState)
	r.DELETE("/state", h.ResetState)
	r.GET("/redirect", h.ShouldRedirect)
	r.PUT("/screen", h.MarkScreen)
	r.POST("/preferences-screen", middleware.RequireUser(), h.EnterPreferencesScreen)
	r.POST("/complete", middleware.RequireUser(), h.CompletePreferences)
}

// GetState godoc
// @Summary Get the installation's onboarding state
// @Tags Onboarding
// @Produce json
// @Param X-Installation-ID header string true "Installation ID"
// @Success 200 {object} NavigationStateResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/onboarding/state [get]
func (h *OnboardingHandler) GetState(c *gin.Context) {
	installationID := middleware.GetInstallationID(c)

	state, err := h.onboarding.State(c.Request.Context(), installationID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to load onboarding state")
		return
	}

	c.JSON(http.StatusOK, newNavigationStateResponse(installationID, state))
}

// ShouldRedirect godoc
// @Summary Decide whether the caller must be sent to the preferences screen
// @Tags Onboarding
// @Produce json
// @Param X-Installation-ID header string true "Installation ID"
// @Success 200 {object} RedirectResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/onboarding/redirect [get]
func (h *OnboardingHandler) ShouldRedirect(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	redirect, err := h.onboarding.ShouldRedirect(c.Request.Context(), middleware.GetInstallationID(c), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to evaluate redirect")
		return
	}

	resp := RedirectResponse{Redirect: redirect}
	if redirect {
		resp.Screen = string(domain.ScreenPropertyPreferences)
	}
	c.JSON(http.StatusOK, resp)
}

// EnterPreferencesScreen godoc
// @Summary Record that the preferences screen is the active onboarding step
// @Tags Onboarding
// @Param X-Installation-ID header string true "Installation ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/onboarding/preferences-screen [post]
func (h *OnboardingHandler) EnterPreferencesScreen(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.onboarding.EnterPreferencesScreen(c.Request.Context(), middleware.GetInstallationID(c), userID); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to record onboarding state")
		return
	}

	c.Status(http.StatusNoContent)
}

// CompletePreferences godoc
// @Summary Record that the preferences step was saved or skipped
// @Tags Onboarding
// @Accept json
// @Param X-Installation-ID header string true "Installation ID"
// @Param request body CompleteOnboardingRequest false "Completion"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/onboarding/complete [post]
func (h *OnboardingHandler) CompletePreferences(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CompleteOnboardingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
			return
		}
	}

	if err := h.onboarding.CompletePreferences(c.Request.Context(), middleware.GetInstallationID(c), userID, req.Skipped); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to record onboarding state")
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkScreen godoc
// @Summary Record the screen the installation is showing
// @Tags Onboarding
// @Accept json
// @Param X-Installation-ID header string true "Installation ID"
// @Param request body MarkScreenRequest true "Screen"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/onboarding/screen [put]
func (h *OnboardingHandler) MarkScreen(c *gin.Context) {
	var req MarkScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "screen is required"))
		return
	}

	if err := h.onboarding.MarkScreen(c.Request.Context(), middleware.GetInstallationID(c), domain.ParseScreen(req.Screen)); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to record screen")
		return
	}

	c.Status(http.StatusNoContent)
}

// ResetState godoc
// @Summary Clear the installation's onboarding state
// @Tags Onboarding
// @Param X-Installation-ID header string true "Installation ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/onboarding/state [delete]
func (h *OnboardingHandler) ResetState(c *gin.Context) {
	if err := h.onboarding.Reset(c.Request.Context(), middleware.GetInstallationID(c)); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to reset onboarding state")
		return
	}

	c.Status(http.StatusNoContent)
}
