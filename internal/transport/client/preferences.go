// Package client talks to the onboarding HTTP API on behalf of a device.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

const (
	preferencesPath = "/api/v1/preferences"
	maxErrorBody    = 4 << 10
)

// TokenSource returns the bearer token to send, or "" to fall back to X-User-ID.
type TokenSource func(ctx context.Context) string

// PreferencesClient implements port.PreferencesGateway over the HTTP API.
type PreferencesClient struct {
	baseURL *url.URL
	http    *http.Client
	token   TokenSource
	logger  *zap.Logger
}

// Option customises a PreferencesClient.
type Option func(*PreferencesClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *PreferencesClient) {
		if c != nil {
			p.http = c
		}
	}
}

// WithTokenSource attaches bearer tokens to requests.
func WithTokenSource(source TokenSource) Option {
	return func(p *PreferencesClient) { p.token = source }
}

// NewPreferencesClient builds a client for the API rooted at baseURL.
func NewPreferencesClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*PreferencesClient, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &PreferencesClient{
		baseURL: parsed,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

type coordinatesBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type preferencesBody struct {
	ID                string           `json:"id,omitempty"`
	UserID            string           `json:"user_id,omitempty"`
	PreferredLocation string           `json:"preferred_location"`
	LocationTypes     []string         `json:"location_types"`
	HomeTypes         []string         `json:"home_types"`
	MinPrice          int64            `json:"min_price"`
	MaxPrice          int64            `json:"max_price"`
	Bedrooms          int              `json:"bedrooms"`
	Bathrooms         int              `json:"bathrooms"`
	Amenities         []string         `json:"amenities"`
	Coordinates       *coordinatesBody `json:"coordinates,omitempty"`
	CreatedAt         time.Time        `json:"created_at,omitzero"`
	UpdatedAt         time.Time        `json:"updated_at,omitzero"`
}

func (b preferencesBody) toDomain() *domain.UserPreferences {
	prefs := &domain.UserPreferences{
		ID:                b.ID,
		UserID:            b.UserID,
		PreferredLocation: b.PreferredLocation,
		LocationTypes:     b.LocationTypes,
		HomeTypes:         b.HomeTypes,
		MinPrice:          b.MinPrice,
		MaxPrice:          b.MaxPrice,
		Bedrooms:          b.Bedrooms,
		Bathrooms:         b.Bathrooms,
		Amenities:         b.Amenities,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	if b.Coordinates != nil {
		prefs.Coordinates = &domain.Coordinates{Latitude: b.Coordinates.Latitude, Longitude: b.Coordinates.Longitude}
	}
	return prefs
}

func (c *PreferencesClient) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	var body preferencesBody
	if err := c.do(ctx, http.MethodGet, preferencesPath, userID, nil, &body); err != nil {
		return nil, err
	}
	return body.toDomain(), nil
}

func (c *PreferencesClient) Save(ctx context.Context, userID string, input domain.PreferencesInput) (*domain.UserPreferences, error) {
	req := preferencesBody{
		PreferredLocation: input.PreferredLocation,
		LocationTypes:     input.LocationTypes,
		HomeTypes:         input.HomeTypes,
		MinPrice:          input.MinPrice,
		MaxPrice:          input.MaxPrice,
		Bedrooms:          input.Bedrooms,
		Bathrooms:         input.Bathrooms,
		Amenities:         input.Amenities,
	}
	if input.Coordinates != nil {
		req.Coordinates = &coordinatesBody{Latitude: input.Coordinates.Latitude, Longitude: input.Coordinates.Longitude}
	}

	var body preferencesBody
	if err := c.do(ctx, http.MethodPost, preferencesPath, userID, req, &body); err != nil {
		return nil, err
	}
	return body.toDomain(), nil
}

func (c *PreferencesClient) Exists(ctx context.Context, userID string) (bool, error) {
	var body struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, preferencesPath+"/exists", userID, nil, &body); err != nil {
		return false, err
	}
	return body.Exists, nil
}

func (c *PreferencesClient) do(ctx context.Context, method, path, userID string, in, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", userID)
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransientStorageError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp, method, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *PreferencesClient) decodeError(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: body.Error, Field: body.Field}

	c.logger.Debug("preferences api call failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("error", body.Error),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", repository.ErrNotFound, apiErr)
	case resp.StatusCode == http.StatusBadRequest && body.Field != "":
		return &domain.ValidationError{Field: body.Field, Message: body.Error}
	case resp.StatusCode >= 500:
		return &domain.TransientStorageError{Op: method + " " + path, Err: apiErr}
	default:
		return apiErr
	}
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

var _ port.PreferencesGateway = (*PreferencesClient)(nil)
