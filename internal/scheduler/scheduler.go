package scheduler

import (
	"context"
	"fmt"
	"time"

	"qvt-engine/internal/consumer"
	"qvt-engine/internal/domain"
	"qvt-engine/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RecomputeScheduler 周期性兜底重算
// 事件流是主要触发路径；定时任务保证错过的事件和成员变动最终也会被重算覆盖
type RecomputeScheduler struct {
	cronEngine *cron.Cron
	teamsRepo  repository.TeamsRepository
	aggregates consumer.AggregateRecomputer
	evaluator  consumer.AlertEvaluator
	logger     *zap.Logger
	spec       string
	windowDays int
	timezone   *time.Location
}

// NewRecomputeScheduler 创建定时重算器
// spec 为标准 5 段 cron 表达式；tz 决定"今天"的归属（报告时区）
func NewRecomputeScheduler(
	teamsRepo repository.TeamsRepository,
	aggregates consumer.AggregateRecomputer,
	evaluator consumer.AlertEvaluator,
	logger *zap.Logger,
	spec string,
	windowDays int,
	tz *time.Location,
) *RecomputeScheduler {
	if windowDays <= 0 {
		windowDays = 7
	}
	if tz == nil {
		tz = time.Local
	}
	return &RecomputeScheduler{
		cronEngine: cron.New(cron.WithLocation(tz)),
		teamsRepo:  teamsRepo,
		aggregates: aggregates,
		evaluator:  evaluator,
		logger:     logger,
		spec:       spec,
		windowDays: windowDays,
		timezone:   tz,
	}
}

// Start 注册并启动定时任务
func (s *RecomputeScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.RecomputeAll(ctx); err != nil {
			s.logger.Error("Scheduled recompute failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register recompute job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Recompute scheduler started",
		zap.String("spec", s.spec),
		zap.Int("window_days", s.windowDays),
	)
	return nil
}

// RecomputeAll 对全部团队重算当前滚动窗口，并对合格聚合评估规则
func (s *RecomputeScheduler) RecomputeAll(ctx context.Context) error {
	window := s.CurrentWindow(time.Now())

	teams, err := s.teamsRepo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	s.logger.Info("Scheduled recompute started",
		zap.String("window_start", window.Start),
		zap.String("window_end", window.End),
		zap.Int("team_count", len(teams)),
	)

	for _, team := range teams {
		if err := ctx.Err(); err != nil {
			return err
		}

		aggregate, err := s.aggregates.Recompute(ctx, team.TeamID, window)
		if err != nil {
			s.logger.Error("Failed to recompute team aggregate",
				zap.String("team_id", team.TeamID),
				zap.Error(err),
			)
			continue
		}

		if !aggregate.ReleaseEligible {
			continue
		}

		if _, err := s.evaluator.Evaluate(ctx, aggregate); err != nil {
			s.logger.Error("Failed to evaluate alert rules",
				zap.String("team_id", team.TeamID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// CurrentWindow 以报告时区的今天为终点的滚动窗口
func (s *RecomputeScheduler) CurrentWindow(now time.Time) domain.DateWindow {
	end := now.In(s.timezone)
	start := end.AddDate(0, 0, -(s.windowDays - 1))
	return domain.DateWindow{
		Start: start.Format(domain.DateLayout),
		End:   end.Format(domain.DateLayout),
	}
}

// Stop 停止定时任务并等待在跑的任务结束
func (s *RecomputeScheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Recompute scheduler stopped")
}
