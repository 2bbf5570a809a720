package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

var commonErrorCases = []ErrorCase{
	{Err: usecase.ErrSignInRequired, Status: http.StatusUnauthorized, Message: "user id is required"},
	{Err: usecase.ErrInstallationRequired, Status: http.StatusBadRequest, Message: "X-Installation-ID header is required"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
// Validation errors answer 400 with their field; storage faults answer 503.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}
	_ = c.Error(err)

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		resp := NewErrorResponse(c, validation.Message)
		resp.Field = validation.Field
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	for _, group := range [][]ErrorCase{cases, commonErrorCases} {
		for _, cs := range group {
			if cs.Err == nil {
				continue
			}
			if errors.Is(err, cs.Err) {
				c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
				return
			}
		}
	}

	var transient *domain.TransientStorageError
	if errors.As(err, &transient) {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "storage temporarily unavailable"))
		return
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
