package evaluator

import (
	"context"
	"errors"
	"time"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Evaluator RPS 报警评估器
// 规则相互独立：一次聚合可以同时触发多条规则，每条报警只携带
// 自己规则涉及的那一轴统计量作为证据，最小化附带暴露
type Evaluator struct {
	rules      []domain.Rule
	alertsRepo repository.AlertsRepository
	logger     *zap.Logger
}

// NewEvaluator 创建评估器
func NewEvaluator(rules []domain.Rule, alertsRepo repository.AlertsRepository, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		rules:      rules,
		alertsRepo: alertsRepo,
		logger:     logger,
	}
}

// Evaluate 对一个聚合评估全部规则，返回新触发并已落库的报警
// 契约：调用方只应传入 release_eligible=true 的聚合；这里再查一次，
// 不合格的聚合大声记日志后整体跳过——静默继续有匿名性泄露风险
func (e *Evaluator) Evaluate(ctx context.Context, aggregate *domain.TeamAggregate) ([]domain.Alert, error) {
	if aggregate == nil {
		return nil, &domain.ContractViolation{Op: "evaluate", Reason: "aggregate is nil"}
	}

	if !aggregate.ReleaseEligible {
		violation := &domain.ContractViolation{
			Op:     "evaluate",
			Reason: "rule evaluation requested for a non-releasable aggregate",
		}
		e.logger.Error("Refusing to evaluate rules against ineligible aggregate",
			zap.String("team_id", aggregate.TeamID),
			zap.String("window_start", aggregate.WindowStart),
			zap.String("window_end", aggregate.WindowEnd),
			zap.Int("participant_count", aggregate.ParticipantCount),
			zap.Error(violation),
		)
		// 非致命跳过：不发报警、不让调用方把它当成普通失败重试
		return []domain.Alert{}, nil
	}

	window := aggregate.Window()
	windowDays := window.Days()

	alerts := []domain.Alert{}
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if windowDays < rule.MinWindowDays {
			continue
		}

		stat, ok := aggregate.AxisStat(rule.Axis)
		if !ok {
			continue
		}

		fired, err := rule.Comparator.Compare(stat.Mean, rule.Threshold)
		if err != nil {
			e.logger.Error("Failed to evaluate rule",
				zap.String("rule_id", rule.RuleID),
				zap.Error(err),
			)
			continue
		}
		if !fired {
			continue
		}

		// 去重：同一 (team, axis, window) 已有未确认报警时不重复触发
		existing, err := e.alertsRepo.GetOpenAlert(ctx, aggregate.TeamID, rule.Axis, window)
		if err != nil {
			e.logger.Error("Failed to check open alert for dedup",
				zap.String("rule_id", rule.RuleID),
				zap.String("team_id", aggregate.TeamID),
				zap.Error(err),
			)
			continue
		}
		if existing != nil {
			e.logger.Debug("Open alert exists for key, skipping",
				zap.String("rule_id", rule.RuleID),
				zap.String("team_id", aggregate.TeamID),
				zap.String("axis", string(rule.Axis)),
			)
			continue
		}

		alert := domain.Alert{
			AlertID:     uuid.New().String(),
			RuleID:      rule.RuleID,
			TeamID:      aggregate.TeamID,
			Axis:        rule.Axis,
			Severity:    rule.Severity,
			Status:      domain.AlertStatusOpen,
			WindowStart: aggregate.WindowStart,
			WindowEnd:   aggregate.WindowEnd,
			TriggeredAt: time.Now(),
			// 证据只含本规则涉及的聚合级数值，绝无 user_id
			Evidence: domain.AlertEvidence{
				Axis:             rule.Axis,
				Mean:             stat.Mean,
				Variance:         stat.Variance,
				ParticipantCount: aggregate.ParticipantCount,
				Comparator:       rule.Comparator,
				Threshold:        rule.Threshold,
				WindowStart:      aggregate.WindowStart,
				WindowEnd:        aggregate.WindowEnd,
			},
		}

		if err := e.alertsRepo.Create(ctx, &alert); err != nil {
			// 唯一索引兜底：另一个评估实例在去重查询之后先插入了同键报警
			if errors.Is(err, domain.ErrDuplicateOpenAlert) {
				e.logger.Debug("Lost insert race for open alert key, skipping",
					zap.String("rule_id", rule.RuleID),
					zap.String("team_id", aggregate.TeamID),
					zap.String("axis", string(rule.Axis)),
				)
				continue
			}
			e.logger.Error("Failed to persist alert",
				zap.String("rule_id", rule.RuleID),
				zap.String("team_id", aggregate.TeamID),
				zap.Error(err),
			)
			// 继续评估其余规则，不中断
			continue
		}

		e.logger.Info("RPS alert triggered",
			zap.String("alert_id", alert.AlertID),
			zap.String("rule_id", rule.RuleID),
			zap.String("team_id", aggregate.TeamID),
			zap.String("axis", string(rule.Axis)),
			zap.String("severity", string(rule.Severity)),
		)

		alerts = append(alerts, alert)
	}

	return alerts, nil
}
