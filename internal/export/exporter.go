package export

import (
	"context"
	"fmt"
	"time"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AggregateSource 聚合数据来源（用于测试替换聚合引擎）
type AggregateSource interface {
	Recompute(ctx context.Context, teamID string, window domain.DateWindow) (*domain.TeamAggregate, error)
}

// Exporter DUERP 风格合规导出器
// 结构性匿名保证：依赖面只有聚合引擎、团队名录、报警库和报告库，
// 没有自评存储的引用，个体数据连实现失误都漏不进报告
type Exporter struct {
	aggregates  AggregateSource
	teamsRepo   repository.TeamsRepository
	alertsRepo  repository.AlertsRepository
	reportsRepo repository.ReportsRepository
	logger      *zap.Logger
}

// NewExporter 创建导出器
func NewExporter(
	aggregates AggregateSource,
	teamsRepo repository.TeamsRepository,
	alertsRepo repository.AlertsRepository,
	reportsRepo repository.ReportsRepository,
	logger *zap.Logger,
) *Exporter {
	return &Exporter{
		aggregates:  aggregates,
		teamsRepo:   teamsRepo,
		alertsRepo:  alertsRepo,
		reportsRepo: reportsRepo,
		logger:      logger,
	}
}

// Generate 生成一期合规报告并落库
// 审计要求：请求的每个团队在报告中恰好出现一次——
// 不合格团队带"参与度不足"标记且无统计，绝不静默丢弃
// teamIDs 为空时覆盖全部团队
func (e *Exporter) Generate(ctx context.Context, period domain.DateWindow, teamIDs []string) (*domain.ComplianceReport, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	if len(teamIDs) == 0 {
		teams, err := e.teamsRepo.ListTeams(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}
		for _, team := range teams {
			teamIDs = append(teamIDs, team.TeamID)
		}
	}

	sections := make([]domain.ReportTeamSection, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		team, err := e.teamsRepo.GetTeam(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve team %s: %w", teamID, err)
		}

		aggregate, err := e.aggregates.Recompute(ctx, teamID, period)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate team %s: %w", teamID, err)
		}

		section := domain.ReportTeamSection{
			TeamID:           team.TeamID,
			TeamName:         team.TeamName,
			ParticipantCount: aggregate.ParticipantCount,
			EntryCount:       aggregate.EntryCount,
			ReleaseEligible:  aggregate.ReleaseEligible,
		}
		if aggregate.ReleaseEligible {
			section.Axes = aggregate.Axes
		} else {
			section.InsufficientParticipation = true
		}

		sections = append(sections, section)
	}

	alerts, err := e.alertsRepo.ListForPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts for period: %w", err)
	}

	report := &domain.ComplianceReport{
		ReportID:    uuid.New().String(),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		GeneratedAt: time.Now().UTC(),
		Teams:       sections,
		Alerts:      alerts,
	}

	// 报告不可变：只有 INSERT；重新生成走新的 report_id
	if err := e.reportsRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	e.logger.Info("Compliance report generated",
		zap.String("report_id", report.ReportID),
		zap.String("period_start", report.PeriodStart),
		zap.String("period_end", report.PeriodEnd),
		zap.Int("team_count", len(report.Teams)),
		zap.Int("alert_count", len(report.Alerts)),
	)

	return report, nil
}
