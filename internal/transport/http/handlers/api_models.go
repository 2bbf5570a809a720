package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: c.GetString("trace_id"),
	}
}

// CoordinatesPayload pins a preferred location on the map.
type CoordinatesPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PreferencesRequest is the body of POST /api/v1/preferences.
type PreferencesRequest struct {
	PreferredLocation string              `json:"preferred_location"`
	LocationTypes     []string            `json:"location_types"`
	HomeTypes         []string            `json:"home_types"`
	MinPrice          int64               `json:"min_price"`
	MaxPrice          int64               `json:"max_price"`
	Bedrooms          int                 `json:"bedrooms"`
	Bathrooms         int                 `json:"bathrooms"`
	Amenities         []string            `json:"amenities"`
	Coordinates       *CoordinatesPayload `json:"coordinates,omitempty"`
}

func (r PreferencesRequest) toInput() domain.PreferencesInput {
	input := domain.PreferencesInput{
		PreferredLocation: r.PreferredLocation,
		LocationTypes:     r.LocationTypes,
		HomeTypes:         r.HomeTypes,
		MinPrice:          r.MinPrice,
		MaxPrice:          r.MaxPrice,
		Bedrooms:          r.Bedrooms,
		Bathrooms:         r.Bathrooms,
		Amenities:         r.Amenities,
	}
	if r.Coordinates != nil {
		input.Coordinates = &domain.Coordinates{Latitude: r.Coordinates.Latitude, Longitude: r.Coordinates.Longitude}
	}
	return input
}

// PreferencesResponse mirrors a stored preferences row.
type PreferencesResponse struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	PreferredLocation string              `json:"preferred_location"`
	LocationTypes     []string            `json:"location_types"`
	HomeTypes         []string            `json:"home_types"`
	MinPrice          int64               `json:"min_price"`
	MaxPrice          int64               `json:"max_price"`
	Bedrooms          int                 `json:"bedrooms"`
	Bathrooms         int                 `json:"bathrooms"`
	Amenities         []string            `json:"amenities"`
	Coordinates       *CoordinatesPayload `json:"coordinates,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func newPreferencesResponse(p *domain.UserPreferences) PreferencesResponse {
	resp := PreferencesResponse{
		ID:                p.ID,
		UserID:            p.UserID,
		PreferredLocation: p.PreferredLocation,
		LocationTypes:     nonNil(p.LocationTypes),
		HomeTypes:         nonNil(p.HomeTypes),
		MinPrice:          p.MinPrice,
		MaxPrice:          p.MaxPrice,
		Bedrooms:          p.Bedrooms,
		Bathrooms:         p.Bathrooms,
		Amenities:         nonNil(p.Amenities),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Coordinates != nil {
		resp.Coordinates = &CoordinatesPayload{Latitude: p.Coordinates.Latitude, Longitude: p.Coordinates.Longitude}
	}
	return resp
}

// ExistsResponse answers GET /api/v1/preferences/exists.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// NavigationStateResponse describes an installation's onboarding position.
type NavigationStateResponse struct {
	InstallationID string     `json:"installation_id"`
	State          string     `json:"state"`
	UserID         string     `json:"user_id,omitempty"`
	Skipped        bool       `json:"skipped"`
	Screen         string     `json:"screen,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

func newNavigationStateResponse(installationID string, s domain.NavigationState) NavigationStateResponse {
	resp := NavigationStateResponse{
		InstallationID: installationID,
		State:          s.Kind.String(),
		UserID:         s.UserID,
		Skipped:        s.Skipped,
		Screen:         string(s.Screen),
	}
	if !s.Timestamp.IsZero() {
		ts := s.Timestamp
		resp.Timestamp = &ts
	}
	return resp
}

// RedirectResponse answers GET /api/v1/onboarding/redirect.
type RedirectResponse struct {
	Redirect bool   `json:"redirect"`
	Screen   string `json:"screen,omitempty"`
}

// CompleteOnboardingRequest is the body of POST /api/v1/onboarding/complete.
type CompleteOnboardingRequest struct {
	Skipped bool `json:"skipped"`
}

// MarkScreenRequest is the body of PUT /api/v1/onboarding/screen.
type MarkScreenRequest struct {
	Screen string `json:"screen" binding:"required"`
}

// AuthSessionRequest carries an ID token issued by the auth backend.
type AuthSessionRequest struct {
	IDToken string `json:"id_token"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// AuthSessionResponse reports the verified session.
type AuthSessionResponse struct {
	Event     domain.AuthEventKind `json:"event"`
	User      UserSummary          `json:"user"`
	Confirmed bool                 `json:"confirmed"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	Next      string               `json:"next_screen"`
}

func newUserSummary(u domain.User) UserSummary {
	summary := UserSummary{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		summary.CreatedAt = &created
	}
	return summary
}

// HealthResponse describes the liveness probe body.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes the readiness probe body.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
