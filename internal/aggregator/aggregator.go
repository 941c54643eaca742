package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/repository"
	"qvt-engine/internal/scoring"

	"go.uber.org/zap"
)

// Aggregator 团队聚合引擎
// 每次重算做一次原子快照读（单条 SQL），读完之后是纯 CPU 计算；
// 不同团队的重算相互独立，可以并行
type Aggregator struct {
	kMin        int
	entriesRepo repository.EntriesRepository
	teamsRepo   repository.TeamsRepository
	cache       *AggregateCache
	logger      *zap.Logger
}

// NewAggregator 创建聚合引擎
func NewAggregator(
	kMin int,
	entriesRepo repository.EntriesRepository,
	teamsRepo repository.TeamsRepository,
	kv KVStore,
	cachePrefix string,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		kMin:        kMin,
		entriesRepo: entriesRepo,
		teamsRepo:   teamsRepo,
		cache:       NewAggregateCache(kv, cachePrefix, cacheTTL),
		logger:      logger,
	}
}

// KMin 当前匿名性门槛
func (a *Aggregator) KMin() int {
	return a.kMin
}

// Recompute 重算一个 (team, window) 聚合
// 幂等：底层自评不变时两次调用产出完全一致（无时钟、无随机数）
// 匿名性门禁：去重参与人数 < K_MIN 时 ReleaseEligible=false 且不携带任何逐轴统计
func (a *Aggregator) Recompute(ctx context.Context, teamID string, window domain.DateWindow) (*domain.TeamAggregate, error) {
	if teamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	// 成员关系每次重算时实时解析（由外部身份协作方维护）
	memberIDs, err := a.teamsRepo.ListMemberIDs(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team members: %w", err)
	}

	// 一致性快照：窗口内全部自评一次读取
	entries, err := a.entriesRepo.ListForWindow(ctx, memberIDs, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries snapshot: %w", err)
	}

	// 快照读与计算之间允许取消：部分结果直接丢弃，绝不发布
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggregate := a.compute(teamID, window, entries)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.publishToCache(ctx, aggregate)

	return aggregate, nil
}

// GetCached 读路径：先查缓存，未命中则重算
func (a *Aggregator) GetCached(ctx context.Context, teamID string, window domain.DateWindow) (*domain.TeamAggregate, error) {
	aggregate, err := a.cache.Get(ctx, teamID, window)
	if err == nil {
		return aggregate, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// 读失败或内容损坏：当作未命中重算
		a.logger.Warn("Aggregate cache read failed, recomputing",
			zap.String("team_id", teamID),
			zap.Error(err),
		)
	}

	return a.Recompute(ctx, teamID, window)
}

// compute 纯计算部分（快照 → 聚合）
func (a *Aggregator) compute(teamID string, window domain.DateWindow, entries []domain.MoodEntry) *domain.TeamAggregate {
	aggregate := &domain.TeamAggregate{
		TeamID:      teamID,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		EntryCount:  len(entries),
	}

	// 参与人数 = 贡献过至少一条自评的去重用户数（不是条目数）
	participants := map[string]struct{}{}
	for _, entry := range entries {
		participants[entry.UserID] = struct{}{}
	}
	aggregate.ParticipantCount = len(participants)

	// 匿名性门禁：门槛之下连内部结构里都不保留逐轴统计，杜绝瞬时泄露
	if aggregate.ParticipantCount < a.kMin {
		aggregate.ReleaseEligible = false
		return aggregate
	}

	aggregate.ReleaseEligible = true
	aggregate.Axes = make(map[domain.Axis]domain.AxisStats, len(domain.AllAxes())+1)

	n := float64(len(entries))
	if n == 0 {
		return aggregate
	}

	for _, axis := range domain.AllAxes() {
		var sum, sumSq float64
		for _, entry := range entries {
			v := float64(entry.AxisValue(axis))
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		aggregate.Axes[axis] = domain.AxisStats{
			Mean:     mean,
			Variance: sumSq/n - mean*mean, // 总体方差
		}
	}

	// composite 伪轴：逐条算综合分再聚合（供规则直接用综合分设阈值）
	var sum, sumSq float64
	for i := range entries {
		v := scoring.Composite(&entries[i])
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	aggregate.Axes[domain.AxisComposite] = domain.AxisStats{
		Mean:     mean,
		Variance: sumSq/n - mean*mean,
	}

	return aggregate
}

// publishToCache 聚合结果写缓存（尽力而为，失败只记日志）
func (a *Aggregator) publishToCache(ctx context.Context, aggregate *domain.TeamAggregate) {
	if err := a.cache.Put(ctx, aggregate); err != nil {
		a.logger.Warn("Failed to write aggregate cache",
			zap.String("team_id", aggregate.TeamID),
			zap.String("window_start", aggregate.WindowStart),
			zap.String("window_end", aggregate.WindowEnd),
			zap.Error(err),
		)
	}
}
