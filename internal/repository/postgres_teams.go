package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"qvt-engine/internal/domain"
)

// TeamsRepository 团队名录（成员关系由外部身份协作方写入，引擎只读）
type TeamsRepository interface {
	GetTeam(ctx context.Context, teamID string) (*domain.Team, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	// ListMemberIDs 解析 team_id → [user_id]，聚合前实时解析（不缓存成员关系）
	ListMemberIDs(ctx context.Context, teamID string) ([]string, error)
	// ResolveMemberTeams 反查 user_id → [team_id]
	ResolveMemberTeams(ctx context.Context, userID string) ([]string, error)
}

// PostgresTeamsRepository TeamsRepository 的 PostgreSQL 实现
type PostgresTeamsRepository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresTeamsRepository 创建团队名录
func NewPostgresTeamsRepository(db *sql.DB, queryTimeout time.Duration) *PostgresTeamsRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &PostgresTeamsRepository{db: db, queryTimeout: queryTimeout}
}

var _ TeamsRepository = (*PostgresTeamsRepository)(nil)

// GetTeam 读取单个团队
func (r *PostgresTeamsRepository) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	if teamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT team_id::text, team_name FROM teams WHERE team_id = $1`

	var team domain.Team
	err := r.db.QueryRowContext(ctx, query, teamID).Scan(&team.TeamID, &team.TeamName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", mapStoreErr(err))
	}

	return &team, nil
}

// ListTeams 列出全部团队（定时重算用）
func (r *PostgresTeamsRepository) ListTeams(ctx context.Context) ([]domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT team_id::text, team_name FROM teams ORDER BY team_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", mapStoreErr(err))
	}
	defer rows.Close()

	teams := []domain.Team{}
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.TeamID, &team.TeamName); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", mapStoreErr(err))
	}

	return teams, nil
}

// ListMemberIDs 读取团队当前成员
func (r *PostgresTeamsRepository) ListMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	if teamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT user_id::text FROM team_members WHERE team_id = $1 ORDER BY user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", mapStoreErr(err))
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team members: %w", mapStoreErr(err))
	}

	return ids, nil
}

// ResolveMemberTeams 反查用户所属团队（自评变更后确定需要重算哪些团队）
func (r *PostgresTeamsRepository) ResolveMemberTeams(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT team_id::text FROM team_members WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query member teams: %w", mapStoreErr(err))
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member teams: %w", mapStoreErr(err))
	}

	return ids, nil
}
