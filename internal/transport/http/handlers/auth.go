package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	appLogger "github.com/arklim/homescout-onboarding/internal/infra/logger"
	"github.com/arklim/homescout-onboarding/internal/transport/http/middleware"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

// AuthHandler exchanges auth backend ID tokens for the session view clients start from.
type AuthHandler struct {
	verifier   port.IdentityVerifier
	onboarding *usecase.InstallationOnboarding
	logger     *zap.Logger
}

// NewAuthHandler constructs AuthHandler. onboarding may be nil.
func NewAuthHandler(verifier port.IdentityVerifier, onboarding *usecase.InstallationOnboarding, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{verifier: verifier, onboarding: onboarding, logger: logger}
}

// RegisterRoutes binds the auth routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.POST("/session", h.Session)
}

// Session godoc
// @Summary Verify an ID token and describe the session
// @Description Accepts the token in the body or as a bearer token and reports the next screen for the installation.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body AuthSessionRequest false "ID token"
// @Param X-Installation-ID header string false "Installation ID"
// @Success 200 {object} AuthSessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/session [post]
func (h *AuthHandler) Session(c *gin.Context) {
	if h.verifier == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "identity provider not configured"))
		return
	}

	session, ok := middleware.GetSession(c)
	if !ok {
		var req AuthSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "id_token is required"))
			return
		}

		var err error
		session, err = h.verifier.VerifyIDToken(c.Request.Context(), req.IDToken)
		if err != nil {
			appLogger.WithContext(c.Request.Context()).Debug("id token rejected", zap.Error(err))
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid id token"))
			return
		}
	}

	next := h.nextScreen(c, session)

	resp := AuthSessionResponse{
		Event:     domain.AuthEventInitialSession,
		User:      newUserSummary(session.User),
		Confirmed: session.Confirmed,
		Next:      string(next),
	}
	if !session.ExpiresAt.IsZero() {
		expires := session.ExpiresAt
		resp.ExpiresAt = &expires
	}

	h.logger.Info("session verified",
		zap.String("user_id", session.User.ID),
		zap.String("email", appLogger.MaskEmail(session.User.Email)),
		zap.Bool("confirmed", session.Confirmed),
		zap.String("next_screen", string(next)),
	)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) nextScreen(c *gin.Context, session domain.Session) domain.Screen {
	installationID := middleware.GetInstallationID(c)
	if h.onboarding != nil && installationID != "" {
		redirect, err := h.onboarding.ShouldRedirect(c.Request.Context(), installationID, session.User.ID)
		if err == nil && redirect {
			return domain.ScreenPropertyPreferences
		}
	}
	if !session.Confirmed {
		return domain.ScreenConfirmEmail
	}
	return domain.ScreenSearch
}
