package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"qvt-engine/internal/domain"

	"github.com/lib/pq"
)

// EntriesRepository 情绪自评存储
type EntriesRepository interface {
	// Upsert 幂等写入：同一 (user_id, entry_date) 重复提交整行覆盖（last write wins）
	Upsert(ctx context.Context, entry *domain.MoodEntry) (*domain.MoodEntry, error)

	// Get 按键读取，查无返回 domain.ErrNotFound
	Get(ctx context.Context, userID, entryDate string) (*domain.MoodEntry, error)

	// ListForWindow 读取一组用户在闭区间 [start, end] 内的全部自评
	// 单条 SQL 一次性读取 = 重算用的一致性快照
	ListForWindow(ctx context.Context, userIDs []string, window domain.DateWindow) ([]domain.MoodEntry, error)
}

// PostgresEntriesRepository EntriesRepository 的 PostgreSQL 实现
type PostgresEntriesRepository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresEntriesRepository 创建自评存储
func NewPostgresEntriesRepository(db *sql.DB, queryTimeout time.Duration) *PostgresEntriesRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &PostgresEntriesRepository{db: db, queryTimeout: queryTimeout}
}

// 确保实现了接口
var _ EntriesRepository = (*PostgresEntriesRepository)(nil)

// mapStoreErr 把超时统一成 domain.ErrStoreTimeout（瞬态、可重试）
func mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStoreTimeout, err)
	}
	return err
}

// Upsert 写入或整行覆盖自评
// 原子性依赖 (user_id, entry_date) 唯一约束 + ON CONFLICT DO UPDATE，
// 并发重复提交（如网络重试）收敛为 last write wins，不做字段级合并
func (r *PostgresEntriesRepository) Upsert(ctx context.Context, entry *domain.MoodEntry) (*domain.MoodEntry, error) {
	if entry == nil {
		return nil, fmt.Errorf("entry is required")
	}
	// 任何越界轴值在写入前拒绝
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		INSERT INTO mood_entries (
			user_id,
			entry_date,
			energy,
			stress,
			motivation,
			social_connection,
			work_satisfaction,
			comment,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		)
		ON CONFLICT (user_id, entry_date)
		DO UPDATE SET
			energy = EXCLUDED.energy,
			stress = EXCLUDED.stress,
			motivation = EXCLUDED.motivation,
			social_connection = EXCLUDED.social_connection,
			work_satisfaction = EXCLUDED.work_satisfaction,
			comment = EXCLUDED.comment,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at
	`

	saved := *entry
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID,
		entry.EntryDate,
		entry.Energy,
		entry.Stress,
		entry.Motivation,
		entry.SocialConnection,
		entry.WorkSatisfaction,
		entry.Comment,
	).Scan(&saved.CreatedAt, &saved.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert mood entry: %w", mapStoreErr(err))
	}

	return &saved, nil
}

// Get 按 (user_id, entry_date) 读取单条自评
func (r *PostgresEntriesRepository) Get(ctx context.Context, userID, entryDate string) (*domain.MoodEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if entryDate == "" {
		return nil, fmt.Errorf("entry_date is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		SELECT
			user_id::text,
			entry_date,
			energy,
			stress,
			motivation,
			social_connection,
			work_satisfaction,
			comment,
			created_at,
			updated_at
		FROM mood_entries
		WHERE user_id = $1 AND entry_date = $2
	`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, userID, entryDate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mood entry: %w", mapStoreErr(err))
	}

	return entry, nil
}

// ListForWindow 窗口查询（按 entry_date 升序，同日按 user_id 稳定排序）
func (r *PostgresEntriesRepository) ListForWindow(ctx context.Context, userIDs []string, window domain.DateWindow) ([]domain.MoodEntry, error) {
	if len(userIDs) == 0 {
		return []domain.MoodEntry{}, nil
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		SELECT
			user_id::text,
			entry_date,
			energy,
			stress,
			motivation,
			social_connection,
			work_satisfaction,
			comment,
			created_at,
			updated_at
		FROM mood_entries
		WHERE user_id = ANY($1)
		  AND entry_date >= $2
		  AND entry_date <= $3
		ORDER BY entry_date ASC, user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs), window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query mood entries: %w", mapStoreErr(err))
	}
	defer rows.Close()

	entries := []domain.MoodEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mood entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood entries: %w", mapStoreErr(err))
	}

	return entries, nil
}

// rowScanner QueryRow / rows 共用的 Scan 接口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*domain.MoodEntry, error) {
	var entry domain.MoodEntry
	var entryDate time.Time
	var comment sql.NullString

	err := row.Scan(
		&entry.UserID,
		&entryDate,
		&entry.Energy,
		&entry.Stress,
		&entry.Motivation,
		&entry.SocialConnection,
		&entry.WorkSatisfaction,
		&comment,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.EntryDate = entryDate.Format(domain.DateLayout)
	if comment.Valid {
		entry.Comment = &comment.String
	}

	return &entry, nil
}
