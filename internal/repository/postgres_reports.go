package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qvt-engine/internal/domain"
)

// ReportsRepository 合规报告存储（报告一经生成不可变，重新生成是新的一行）
type ReportsRepository interface {
	Create(ctx context.Context, report *domain.ComplianceReport) error
	Get(ctx context.Context, reportID string) (*domain.ComplianceReport, error)
}

// PostgresReportsRepository ReportsRepository 的 PostgreSQL 实现
type PostgresReportsRepository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresReportsRepository 创建报告存储
func NewPostgresReportsRepository(db *sql.DB, queryTimeout time.Duration) *PostgresReportsRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &PostgresReportsRepository{db: db, queryTimeout: queryTimeout}
}

var _ ReportsRepository = (*PostgresReportsRepository)(nil)

// reportPayload JSONB 载荷（团队分节 + 期间报警快照）
type reportPayload struct {
	Teams  []domain.ReportTeamSection `json:"teams"`
	Alerts []domain.Alert             `json:"alerts"`
}

// Create 写入报告（只 INSERT，没有对应的 UPDATE 语句）
func (r *PostgresReportsRepository) Create(ctx context.Context, report *domain.ComplianceReport) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if report.ReportID == "" {
		return fmt.Errorf("report_id is required")
	}

	payload, err := json.Marshal(reportPayload{Teams: report.Teams, Alerts: report.Alerts})
	if err != nil {
		return fmt.Errorf("failed to marshal report payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		INSERT INTO compliance_reports (
			report_id,
			period_start,
			period_end,
			generated_at,
			payload
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		report.ReportID,
		report.PeriodStart,
		report.PeriodEnd,
		report.GeneratedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to create compliance report: %w", mapStoreErr(err))
	}

	return nil
}

// Get 按 report_id 读取
func (r *PostgresReportsRepository) Get(ctx context.Context, reportID string) (*domain.ComplianceReport, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		SELECT
			report_id::text,
			period_start,
			period_end,
			generated_at,
			payload
		FROM compliance_reports
		WHERE report_id = $1
	`

	var report domain.ComplianceReport
	var periodStart, periodEnd time.Time
	var payload []byte

	err := r.db.QueryRowContext(ctx, query, reportID).Scan(
		&report.ReportID,
		&periodStart,
		&periodEnd,
		&report.GeneratedAt,
		&payload,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get compliance report: %w", mapStoreErr(err))
	}

	report.PeriodStart = periodStart.Format(domain.DateLayout)
	report.PeriodEnd = periodEnd.Format(domain.DateLayout)

	var body reportPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report payload: %w", err)
		}
	}
	report.Teams = body.Teams
	report.Alerts = body.Alerts

	return &report, nil
}
