package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"qvt-engine/internal/domain"
)

// AlertsRepository 心理社会风险报警存储
type AlertsRepository interface {
	// Create 写入报警；同键已有未确认报警时返回 domain.ErrDuplicateOpenAlert
	Create(ctx context.Context, alert *domain.Alert) error
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	// GetOpenAlert 去重查询：同一 (team_id, axis, window) 是否已有未确认报警
	// 查无返回 (nil, nil)，不是错误
	GetOpenAlert(ctx context.Context, teamID string, axis domain.Axis, window domain.DateWindow) (*domain.Alert, error)
	ListByTeam(ctx context.Context, teamID, status string) ([]domain.Alert, error)
	// ListForPeriod 合规报告用：期间内触发的全部报警
	ListForPeriod(ctx context.Context, period domain.DateWindow) ([]domain.Alert, error)
	// Acknowledge 确认报警：只翻转状态并记录处理人，绝不改动 evidence
	Acknowledge(ctx context.Context, alertID, userID string) error
}

// PostgresAlertsRepository AlertsRepository 的 PostgreSQL 实现
type PostgresAlertsRepository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresAlertsRepository 创建报警存储
func NewPostgresAlertsRepository(db *sql.DB, queryTimeout time.Duration) *PostgresAlertsRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &PostgresAlertsRepository{db: db, queryTimeout: queryTimeout}
}

var _ AlertsRepository = (*PostgresAlertsRepository)(nil)

const alertColumns = `
	alert_id::text,
	rule_id,
	team_id::text,
	axis,
	severity,
	status,
	window_start,
	window_end,
	triggered_at,
	evidence,
	acknowledged_by,
	acknowledged_at,
	created_at,
	updated_at
`

// Create 写入报警事件
func (r *PostgresAlertsRepository) Create(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" || alert.RuleID == "" || alert.TeamID == "" {
		return fmt.Errorf("alert_id, rule_id and team_id are required")
	}

	evidence, err := json.Marshal(alert.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		INSERT INTO rps_alerts (
			alert_id,
			rule_id,
			team_id,
			axis,
			severity,
			status,
			window_start,
			window_end,
			triggered_at,
			evidence,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.RuleID,
		alert.TeamID,
		string(alert.Axis),
		string(alert.Severity),
		alert.Status,
		alert.WindowStart,
		alert.WindowEnd,
		alert.TriggeredAt,
		evidence,
	)
	if err != nil {
		// idx_rps_alerts_dedup 唯一冲突：并发评估输掉了插入竞赛，不是故障
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateOpenAlert
		}
		return fmt.Errorf("failed to create alert: %w", mapStoreErr(err))
	}

	return nil
}

// Get 按 alert_id 读取
func (r *PostgresAlertsRepository) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT ` + alertColumns + ` FROM rps_alerts WHERE alert_id = $1`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", mapStoreErr(err))
	}

	return alert, nil
}

// GetOpenAlert 查找同键未确认报警（去重约束的数据源，不是冷却计时器）
func (r *PostgresAlertsRepository) GetOpenAlert(ctx context.Context, teamID string, axis domain.Axis, window domain.DateWindow) (*domain.Alert, error) {
	if teamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		SELECT ` + alertColumns + `
		FROM rps_alerts
		WHERE team_id = $1
		  AND axis = $2
		  AND window_start = $3
		  AND window_end = $4
		  AND status = 'open'
		ORDER BY triggered_at DESC
		LIMIT 1
	`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, teamID, string(axis), window.Start, window.End))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // 没有未确认报警
		}
		return nil, fmt.Errorf("failed to query open alert: %w", mapStoreErr(err))
	}

	return alert, nil
}

// ListByTeam 按团队列出报警（status 为空则不过滤）
func (r *PostgresAlertsRepository) ListByTeam(ctx context.Context, teamID, status string) ([]domain.Alert, error) {
	if teamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	args := []interface{}{teamID}
	query := `SELECT ` + alertColumns + ` FROM rps_alerts WHERE team_id = $1`
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY triggered_at DESC`

	return r.queryAlerts(ctx, query, args...)
}

// ListForPeriod 期间查询（triggered_at 落在期间内）
func (r *PostgresAlertsRepository) ListForPeriod(ctx context.Context, period domain.DateWindow) ([]domain.Alert, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		SELECT ` + alertColumns + `
		FROM rps_alerts
		WHERE triggered_at >= $1::date
		  AND triggered_at < ($2::date + INTERVAL '1 day')
		ORDER BY triggered_at ASC
	`

	return r.queryAlerts(ctx, query, period.Start, period.End)
}

// Acknowledge 确认报警（open → acknowledged，幂等性：已确认的报警再次确认报 not found）
func (r *PostgresAlertsRepository) Acknowledge(ctx context.Context, alertID, userID string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		UPDATE rps_alerts
		SET status = 'acknowledged',
		    acknowledged_by = $1,
		    acknowledged_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $2
		  AND status = 'open'
	`

	result, err := r.db.ExecContext(ctx, query, userID, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", mapStoreErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *PostgresAlertsRepository) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", mapStoreErr(err))
	}
	defer rows.Close()

	alerts := []domain.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", mapStoreErr(err))
	}

	return alerts, nil
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var alert domain.Alert
	var axis, severity string
	var windowStart, windowEnd time.Time
	var evidence []byte
	var ackBy sql.NullString
	var ackAt sql.NullTime

	err := row.Scan(
		&alert.AlertID,
		&alert.RuleID,
		&alert.TeamID,
		&axis,
		&severity,
		&alert.Status,
		&windowStart,
		&windowEnd,
		&alert.TriggeredAt,
		&evidence,
		&ackBy,
		&ackAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.Axis = domain.Axis(axis)
	alert.Severity = domain.Severity(severity)
	alert.WindowStart = windowStart.Format(domain.DateLayout)
	alert.WindowEnd = windowEnd.Format(domain.DateLayout)
	if ackBy.Valid {
		alert.AcknowledgedBy = &ackBy.String
	}
	if ackAt.Valid {
		alert.AcknowledgedAt = &ackAt.Time
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &alert.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
	}

	return &alert, nil
}
