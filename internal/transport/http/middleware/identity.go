package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/logger"
)

const (
	// UserIDHeader carries the caller's user id when no bearer token is sent.
	UserIDHeader = "X-User-ID"
	// UserIDKey is the context key for the resolved user ID
	UserIDKey = "user_id"
	// SessionKey is the context key for a verified identity session
	SessionKey = "identity_session"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// ResolveUser determines the calling user. A bearer ID token verified by verifier
// wins; otherwise the X-User-ID header and then the user_id query parameter are used.
// An invalid bearer token aborts with 401.
func ResolveUser(verifier port.IdentityVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok && verifier != nil {
			session, err := verifier.VerifyIDToken(c.Request.Context(), token)
			if err != nil {
				log.Debug("bearer token rejected",
					zap.String("token", logger.MaskToken(token)),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "invalid id token"))
				return
			}
			setUser(c, session.User.ID)
			c.Set(SessionKey, session)
			c.Next()
			return
		}

		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			userID = strings.TrimSpace(c.Query("user_id"))
		}
		if userID != "" {
			setUser(c, userID)
		}

		c.Next()
	}
}

// RequireUser aborts with 401 when ResolveUser found no user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "user id is required"))
			return
		}
		c.Next()
	}
}

// GetUserID returns the resolved user ID.
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}

// GetSession returns the verified identity session, if the request carried a bearer token.
func GetSession(c *gin.Context) (domain.Session, bool) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return domain.Session{}, false
	}
	session, ok := value.(domain.Session)
	return session, ok
}

func setUser(c *gin.Context, userID string) {
	c.Set(UserIDKey, userID)
	if reqCtx := GetRequestContext(c); reqCtx != nil {
		reqCtx.UserID = userID
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
