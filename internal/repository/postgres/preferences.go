package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

var preferencesColumns = []string{
	"id",
	"user_id",
	"preferred_location",
	"location_types",
	"home_types",
	"min_price",
	"max_price",
	"bedrooms",
	"bathrooms",
	"amenities",
	"latitude",
	"longitude",
	"created_at",
	"updated_at",
}

const upsertPreferencesSuffix = `ON CONFLICT (user_id) DO UPDATE
    SET preferred_location = EXCLUDED.preferred_location,
        location_types = EXCLUDED.location_types,
        home_types = EXCLUDED.home_types,
        min_price = EXCLUDED.min_price,
        max_price = EXCLUDED.max_price,
        bedrooms = EXCLUDED.bedrooms,
        bathrooms = EXCLUDED.bathrooms,
        amenities = EXCLUDED.amenities,
        latitude = EXCLUDED.latitude,
        longitude = EXCLUDED.longitude,
        updated_at = EXCLUDED.updated_at`

// PreferencesRepository implements port.PreferencesRepository using PostgreSQL.
type PreferencesRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPreferencesRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewPreferencesRepository(exec pgExecutor) *PreferencesRepository {
	return &PreferencesRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByUserID retrieves the preferences row for a user.
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	stmt, args, err := r.builder.
		Select(preferencesColumns...).
		From(preferencesTable).
		Where(squirrel.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select preferences sql: %w", err)
	}

	prefs, err := scanPreferences(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan preferences: %w", err)
	}
	return prefs, nil
}

// Upsert inserts the preferences row or updates the existing row for the same user.
// The row id and created_at of an existing row are preserved.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs domain.UserPreferences) (*domain.UserPreferences, bool, error) {
	userID := strings.TrimSpace(prefs.UserID)
	if userID == "" {
		return nil, false, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(prefs.ID) == "" {
		return nil, false, fmt.Errorf("preferences id is required")
	}

	var latitude, longitude *float64
	if prefs.Coordinates != nil {
		lat, lng := prefs.Coordinates.Latitude, prefs.Coordinates.Longitude
		latitude, longitude = &lat, &lng
	}

	stmt, args, err := r.builder.Insert(preferencesTable).
		Columns(preferencesColumns...).
		Values(
			prefs.ID,
			userID,
			prefs.PreferredLocation,
			nonNilStrings(prefs.LocationTypes),
			nonNilStrings(prefs.HomeTypes),
			prefs.MinPrice,
			prefs.MaxPrice,
			prefs.Bedrooms,
			prefs.Bathrooms,
			nonNilStrings(prefs.Amenities),
			optionalFloat(latitude),
			optionalFloat(longitude),
			prefs.CreatedAt,
			prefs.UpdatedAt,
		).
		Suffix(upsertPreferencesSuffix + " RETURNING " + strings.Join(preferencesColumns, ", ") + ", (xmax = 0) AS inserted").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build upsert preferences sql: %w", err)
	}

	var inserted bool
	stored, err := scanPreferences(r.exec.QueryRow(ctx, stmt, args...), &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert preferences: %w", err)
	}
	return stored, inserted, nil
}

// Exists reports whether the user has a preferences row.
func (r *PreferencesRepository) Exists(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}

	stmt, args, err := r.builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(preferencesTable).
		Where(squirrel.Eq{"user_id": userID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists preferences sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("scan preferences exists: %w", err)
	}
	return exists, nil
}

func scanPreferences(row pgx.Row, extra ...any) (*domain.UserPreferences, error) {
	var (
		prefs     domain.UserPreferences
		latitude  *float64
		longitude *float64
	)

	dest := []any{
		&prefs.ID,
		&prefs.UserID,
		&prefs.PreferredLocation,
		&prefs.LocationTypes,
		&prefs.HomeTypes,
		&prefs.MinPrice,
		&prefs.MaxPrice,
		&prefs.Bedrooms,
		&prefs.Bathrooms,
		&prefs.Amenities,
		&latitude,
		&longitude,
		&prefs.CreatedAt,
		&prefs.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if latitude != nil && longitude != nil {
		prefs.Coordinates = &domain.Coordinates{Latitude: *latitude, Longitude: *longitude}
	}
	return &prefs, nil
}

var _ port.PreferencesRepository = (*PreferencesRepository)(nil)
