package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func newProfileRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestProfileRepositoryFindByOpenID(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"open_id", "data", "created_at", "updated_at"}).
		AddRow("wx-1", []byte(`{"nickname":"Ada"}`), now, now)
	mock.ExpectQuery("SELECT open_id, data, created_at, updated_at FROM portal_profiles").
		WithArgs("wx-1").
		WillReturnRows(rows)

	profile, err := repo.FindByOpenID(context.Background(), "wx-1")
	require.NoError(t, err)
	assert.Equal(t, "wx-1", profile.OpenID)
	assert.JSONEq(t, `{"nickname":"Ada"}`, string(profile.Data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryFindByOpenIDMissing(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery("SELECT open_id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"open_id", "data", "created_at", "updated_at"}))

	_, err := repo.FindByOpenID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestProfileRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO portal_profiles").
		WithArgs("wx-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &models.Profile{OpenID: "wx-1", Data: json.RawMessage(`{"a":1}`)}
	require.NoError(t, repo.Upsert(context.Background(), profile))
	assert.False(t, profile.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryUpsertError(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO portal_profiles").WillReturnError(errors.New("conn reset"))

	err := repo.Upsert(context.Background(), &models.Profile{OpenID: "wx-1", Data: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert profile")
}

func TestMemoryProfileRepository(t *testing.T) {
	repo := NewMemoryProfileRepository()
	ctx := context.Background()

	_, err := repo.FindByOpenID(ctx, "wx-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, &models.Profile{OpenID: "wx-1", Data: json.RawMessage(`{"v":1}`), CreatedAt: first, UpdatedAt: first}))
	later := first.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, &models.Profile{OpenID: "wx-1", Data: json.RawMessage(`{"v":2}`), CreatedAt: later, UpdatedAt: later}))

	profile, err := repo.FindByOpenID(ctx, "wx-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(profile.Data))
	assert.Equal(t, first, profile.CreatedAt)
	assert.Equal(t, later, profile.UpdatedAt)

	profile.Data[0] = 'x'
	again, err := repo.FindByOpenID(ctx, "wx-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(again.Data))
}
