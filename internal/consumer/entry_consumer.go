package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "qvt-engine/common/redis"
)

// AggregateRecomputer 聚合重算入口
type AggregateRecomputer interface {
	Recompute(ctx context.Context, teamID string, window domain.DateWindow) (*domain.TeamAggregate, error)
}

// AlertEvaluator 规则评估入口
type AlertEvaluator interface {
	Evaluate(ctx context.Context, aggregate *domain.TeamAggregate) ([]domain.Alert, error)
}

// EntryConsumer 自评变更事件消费者
// 收到事件后重算该用户所在团队的滚动窗口聚合，并对合格聚合评估报警规则
type EntryConsumer struct {
	redisClient  *redis.Client
	teamsRepo    repository.TeamsRepository
	aggregates   AggregateRecomputer
	evaluator    AlertEvaluator
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	windowDays   int
}

// NewEntryConsumer 创建事件消费者
func NewEntryConsumer(
	redisClient *redis.Client,
	teamsRepo repository.TeamsRepository,
	aggregates AggregateRecomputer,
	evaluator AlertEvaluator,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
	windowDays int,
) *EntryConsumer {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &EntryConsumer{
		redisClient:  redisClient,
		teamsRepo:    teamsRepo,
		aggregates:   aggregates,
		evaluator:    evaluator,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		windowDays:   windowDays,
	}
}

// Start 启动事件消费者
func (c *EntryConsumer) Start(ctx context.Context) error {
	// 创建消费者组
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Entry consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	// 消费事件（带指数退避）
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeEvents(ctx); err != nil {
				c.logger.Error("Failed to consume events",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)

				// 指数退避
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				// 成功时重置退避时间
				backoffDuration = time.Second
			}
		}
	}
}

// consumeEvents 读取并处理一批事件
func (c *EntryConsumer) consumeEvents(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.stream,
		c.groupName,
		c.consumerName,
		c.batchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processEvent(ctx, msg); err != nil {
			c.logger.Error("Failed to process event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			// 继续处理下一条消息，不中断
		} else {
			if err := c.ackMessage(ctx, msg.ID); err != nil {
				c.logger.Warn("Failed to ack message",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}

	return nil
}

// ProcessEvent 处理单个自评变更事件（导出供测试直接驱动）
func (c *EntryConsumer) ProcessEvent(ctx context.Context, event *domain.EntryChangedEvent) error {
	window, err := c.windowFor(event.EntryDate)
	if err != nil {
		return err
	}

	teamIDs, err := c.teamsRepo.ResolveMemberTeams(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve teams for user: %w", err)
	}
	if len(teamIDs) == 0 {
		c.logger.Debug("User belongs to no team, nothing to recompute",
			zap.String("user_id", event.UserID),
		)
		return nil
	}

	for _, teamID := range teamIDs {
		aggregate, err := c.aggregates.Recompute(ctx, teamID, window)
		if err != nil {
			c.logger.Error("Failed to recompute team aggregate",
				zap.String("team_id", teamID),
				zap.String("window_start", window.Start),
				zap.String("window_end", window.End),
				zap.Error(err),
			)
			continue
		}

		// 不合格的聚合不进规则评估
		if !aggregate.ReleaseEligible {
			continue
		}

		if _, err := c.evaluator.Evaluate(ctx, aggregate); err != nil {
			c.logger.Error("Failed to evaluate alert rules",
				zap.String("team_id", teamID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (c *EntryConsumer) processEvent(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := parseEvent(msg)
	if err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	c.logger.Info("Processing entry changed event",
		zap.String("user_id", event.UserID),
		zap.String("entry_date", event.EntryDate),
	)

	return c.ProcessEvent(ctx, event)
}

// windowFor 以条目日期为终点的滚动窗口
func (c *EntryConsumer) windowFor(entryDate string) (domain.DateWindow, error) {
	end, err := time.Parse(domain.DateLayout, entryDate)
	if err != nil {
		return domain.DateWindow{}, fmt.Errorf("invalid entry_date %q: %w", entryDate, err)
	}
	start := end.AddDate(0, 0, -(c.windowDays - 1))
	return domain.DateWindow{
		Start: start.Format(domain.DateLayout),
		End:   end.Format(domain.DateLayout),
	}, nil
}

// parseEvent 解析事件消息
func parseEvent(msg rediscommon.StreamMessage) (*domain.EntryChangedEvent, error) {
	// 尝试从 data 字段解析 JSON
	if dataStr, ok := msg.Values["data"].(string); ok {
		var event domain.EntryChangedEvent
		if err := json.Unmarshal([]byte(dataStr), &event); err == nil && event.UserID != "" {
			return &event, nil
		}
	}

	// 如果 data 字段不存在，直接从 Values 解析
	event := &domain.EntryChangedEvent{}
	if userID, ok := msg.Values["user_id"].(string); ok {
		event.UserID = userID
	}
	if entryDate, ok := msg.Values["entry_date"].(string); ok {
		event.EntryDate = entryDate
	}

	if event.UserID == "" || event.EntryDate == "" {
		return nil, fmt.Errorf("invalid event: missing user_id or entry_date")
	}

	return event, nil
}

// ackMessage 确认消息
func (c *EntryConsumer) ackMessage(ctx context.Context, messageID string) error {
	return rediscommon.AckMessage(ctx, c.redisClient, c.stream, c.groupName, messageID)
}
