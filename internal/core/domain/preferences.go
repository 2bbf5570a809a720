package domain

import (
	"strings"
	"time"
)

// Coordinates pins a preferred location on the map.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// PreferencesInput carries the caller-supplied preference fields.
type PreferencesInput struct {
	PreferredLocation string
	LocationTypes     []string
	HomeTypes         []string
	MinPrice          int64
	MaxPrice          int64
	Bedrooms          int
	Bathrooms         int
	Amenities         []string
	Coordinates       *Coordinates
}

// UserPreferences mirrors the persisted representation in the user_preferences table.
type UserPreferences struct {
	ID                string
	UserID            string
	PreferredLocation string
	LocationTypes     []string
	HomeTypes         []string
	MinPrice          int64
	MaxPrice          int64
	Bedrooms          int
	Bathrooms         int
	Amenities         []string
	Coordinates       *Coordinates
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the preconditions of a save.
func (in PreferencesInput) Validate() error {
	if strings.TrimSpace(in.PreferredLocation) == "" {
		return &ValidationError{Field: "preferred_location", Message: "preferred location is required"}
	}
	if in.MinPrice < 0 || in.MaxPrice < 0 {
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	}
	if in.MaxPrice > 0 && in.MinPrice > in.MaxPrice {
		return &ValidationError{Field: "price", Message: "minimum price exceeds maximum price"}
	}
	if in.Bedrooms < 0 {
		return &ValidationError{Field: "bedrooms", Message: "bedrooms must not be negative"}
	}
	if in.Bathrooms < 0 {
		return &ValidationError{Field: "bathrooms", Message: "bathrooms must not be negative"}
	}
	if c := in.Coordinates; c != nil {
		if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
			return &ValidationError{Field: "coordinates", Message: "coordinates out of range"}
		}
	}
	return nil
}

// Normalize trims free text and de-duplicates tag sets, preserving first-seen order.
func (in PreferencesInput) Normalize() PreferencesInput {
	out := in
	out.PreferredLocation = strings.TrimSpace(in.PreferredLocation)
	out.LocationTypes = normalizeTags(in.LocationTypes)
	out.HomeTypes = normalizeTags(in.HomeTypes)
	out.Amenities = normalizeTags(in.Amenities)
	if in.Coordinates != nil {
		c := *in.Coordinates
		out.Coordinates = &c
	}
	return out
}

// Apply copies the input fields onto a preferences record for userID.
func (in PreferencesInput) Apply(userID string) UserPreferences {
	return UserPreferences{
		UserID:            userID,
		PreferredLocation: in.PreferredLocation,
		LocationTypes:     in.LocationTypes,
		HomeTypes:         in.HomeTypes,
		MinPrice:          in.MinPrice,
		MaxPrice:          in.MaxPrice,
		Bedrooms:          in.Bedrooms,
		Bathrooms:         in.Bathrooms,
		Amenities:         in.Amenities,
		Coordinates:       in.Coordinates,
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
