package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qvt-engine/internal/domain"
)

func setupMockEntriesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresEntriesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresEntriesRepository(db, 5*time.Second)

	return db, mock, repo
}

func validEntry(userID string) *domain.MoodEntry {
	return &domain.MoodEntry{
		UserID:           userID,
		EntryDate:        "2026-08-24",
		Energy:           4,
		Stress:           2,
		Motivation:       3,
		SocialConnection: 4,
		WorkSatisfaction: 3,
	}
}

// ============================================
// Upsert
// ============================================

func TestUpsert_Success(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	ctx := context.Background()
	userID := uuid.New().String()
	entry := validEntry(userID)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO mood_entries`).
		WithArgs(userID, "2026-08-24", 4, 2, 3, 4, 3, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	saved, err := repo.Upsert(ctx, entry)

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, userID, saved.UserID)
	assert.Equal(t, "2026-08-24", saved.EntryDate)
	assert.Equal(t, now, saved.UpdatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_AxisOutOfRange_RejectedBeforeWrite(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	ctx := context.Background()
	entry := validEntry(uuid.New().String())
	entry.Stress = 6

	// 不应有任何 SQL 期望：越界值在写入前就被拒绝
	saved, err := repo.Upsert(ctx, entry)

	assert.Nil(t, saved)
	require.Error(t, err)
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "stress", verr.Fields[0].Field)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_MissingUserID_Rejected(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	entry := validEntry("")

	saved, err := repo.Upsert(context.Background(), entry)

	assert.Nil(t, saved)
	require.Error(t, err)
	_, ok := domain.AsValidationError(err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Get
// ============================================

func TestGet_Success(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	ctx := context.Background()
	userID := uuid.New().String()
	entryDate := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"user_id", "entry_date", "energy", "stress", "motivation",
		"social_connection", "work_satisfaction", "comment", "created_at", "updated_at",
	}).AddRow(userID, entryDate, 4, 2, 3, 4, 3, "journée correcte", now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs(userID, "2026-08-24").
		WillReturnRows(rows)

	entry, err := repo.Get(ctx, userID, "2026-08-24")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, "2026-08-24", entry.EntryDate)
	assert.Equal(t, 4, entry.Energy)
	assert.Equal(t, 2, entry.Stress)
	require.NotNil(t, entry.Comment)
	assert.Equal(t, "journée correcte", *entry.Comment)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	userID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(userID, "2026-08-24").
		WillReturnError(sql.ErrNoRows)

	entry, err := repo.Get(context.Background(), userID, "2026-08-24")

	assert.Nil(t, entry)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// ListForWindow
// ============================================

func TestListForWindow_ClippedAndSorted(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	user1 := uuid.New().String()
	user2 := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"user_id", "entry_date", "energy", "stress", "motivation",
		"social_connection", "work_satisfaction", "comment", "created_at", "updated_at",
	}).
		AddRow(user1, time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC), 3, 3, 3, 3, 3, nil, now, now).
		AddRow(user2, time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC), 4, 2, 4, 4, 4, nil, now, now).
		AddRow(user1, time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC), 2, 4, 2, 2, 2, nil, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs(pq.Array([]string{user1, user2}), "2026-08-18", "2026-08-24").
		WillReturnRows(rows)

	window := domain.DateWindow{Start: "2026-08-18", End: "2026-08-24"}
	entries, err := repo.ListForWindow(context.Background(), []string{user1, user2}, window)

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2026-08-18", entries[0].EntryDate)
	assert.Equal(t, "2026-08-19", entries[2].EntryDate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForWindow_EmptyMembers(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	window := domain.DateWindow{Start: "2026-08-18", End: "2026-08-24"}
	entries, err := repo.ListForWindow(context.Background(), nil, window)

	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForWindow_InvalidWindow(t *testing.T) {
	db, mock, repo := setupMockEntriesDB(t)
	defer db.Close()

	window := domain.DateWindow{Start: "2026-08-24", End: "2026-08-18"}
	entries, err := repo.ListForWindow(context.Background(), []string{uuid.New().String()}, window)

	assert.Nil(t, entries)
	require.Error(t, err)
	_, ok := domain.AsValidationError(err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
