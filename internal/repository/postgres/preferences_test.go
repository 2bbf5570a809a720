package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

var preferencesRowColumns = []string{
	"id", "user_id", "preferred_location", "location_types", "home_types", "min_price", "max_price",
	"bedrooms", "bathrooms", "amenities", "latitude", "longitude", "created_at", "updated_at",
}

func TestPreferencesRepository_GetByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPreferencesRepository(mock)

	createdAt := time.Now().UTC().Add(-time.Hour)
	updatedAt := createdAt.Add(30 * time.Minute)
	lat, lng := 40.7128, -74.006

	rows := pgxmock.NewRows(preferencesRowColumns).AddRow(
		"pref-1", "user-1", "Brooklyn", []string{"Downtown"}, []string{"Condo"}, int64(200000), int64(650000),
		2, 1, []string{"Parking", "Gym"}, &lat, &lng, createdAt, updatedAt,
	)

	mock.ExpectQuery(`SELECT .* FROM user_preferences WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(rows)

	prefs, err := repo.GetByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByUserID returned error: %v", err)
	}
	if prefs.ID != "pref-1" || prefs.UserID != "user-1" {
		t.Fatalf("unexpected identifiers: %+v", prefs)
	}
	if prefs.PreferredLocation != "Brooklyn" {
		t.Fatalf("expected location Brooklyn, got %s", prefs.PreferredLocation)
	}
	if len(prefs.Amenities) != 2 || prefs.Amenities[1] != "Gym" {
		t.Fatalf("expected amenities to be scanned, got %v", prefs.Amenities)
	}
	if prefs.Coordinates == nil || prefs.Coordinates.Latitude != lat || prefs.Coordinates.Longitude != lng {
		t.Fatalf("expected coordinates to be populated, got %+v", prefs.Coordinates)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPreferencesRepository_GetByUserIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPreferencesRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM user_preferences`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByUserID(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPreferencesRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPreferencesRepository(mock)

	now := time.Now().UTC()
	prefs := domain.UserPreferences{
		ID:                "pref-new",
		UserID:            "user-1",
		PreferredLocation: "Austin",
		HomeTypes:         []string{"House"},
		MinPrice:          100000,
		MaxPrice:          300000,
		Bedrooms:          3,
		Bathrooms:         2,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	createdAt := now.Add(-24 * time.Hour)
	rows := pgxmock.NewRows(append(append([]string{}, preferencesRowColumns...), "inserted")).AddRow(
		"pref-existing", "user-1", "Austin", []string{}, []string{"House"}, int64(100000), int64(300000),
		3, 2, []string{}, nil, nil, createdAt, now, false,
	)

	mock.ExpectQuery(`INSERT INTO user_preferences .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(
			"pref-new",
			"user-1",
			"Austin",
			[]string{},
			[]string{"House"},
			int64(100000),
			int64(300000),
			3,
			2,
			[]string{},
			nil,
			nil,
			now,
			now,
		).
		WillReturnRows(rows)

	stored, created, err := repo.Upsert(context.Background(), prefs)
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if created {
		t.Fatalf("expected update of existing row, got insert")
	}
	if stored.ID != "pref-existing" {
		t.Fatalf("expected existing row id to be preserved, got %s", stored.ID)
	}
	if !stored.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected created_at to be preserved")
	}
	if stored.Coordinates != nil {
		t.Fatalf("expected nil coordinates, got %+v", stored.Coordinates)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPreferencesRepository_UpsertRequiresIdentifiers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPreferencesRepository(mock)

	if _, _, err := repo.Upsert(context.Background(), domain.UserPreferences{ID: "p"}); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, _, err := repo.Upsert(context.Background(), domain.UserPreferences{UserID: "u"}); err == nil {
		t.Fatalf("expected error for missing preferences id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database calls: %v", err)
	}
}

func TestPreferencesRepository_Exists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPreferencesRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM user_preferences WHERE user_id = \$1 \)`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected preferences to exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
