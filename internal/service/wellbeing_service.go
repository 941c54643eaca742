package service

import (
	"context"
	"sort"
	"time"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/repository"
	"qvt-engine/internal/scoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "qvt-engine/common/redis"
)

// SubmissionResult 一次自评提交的同步返回
// CatalogVersion 标记文案/建议取自哪个目录版本，便于客户端缓存与排查
type SubmissionResult struct {
	Entry             *domain.MoodEntry   `json:"entry"`
	CompositeScore    float64             `json:"composite_score"`
	Tier              domain.Tier         `json:"tier"`
	Message           string              `json:"message"`
	RecommendationIDs []string            `json:"recommendation_ids"`
	Confidence        float64             `json:"confidence"`
	Bubble            domain.BubbleReward `json:"bubble"`
	CatalogVersion    string              `json:"catalog_version"`
}

// WellbeingService 自评提交服务
// 同步路径：校验 → 入库 → 评分 → 泡泡；团队聚合重算走事件流异步触发
type WellbeingService struct {
	entriesRepo repository.EntriesRepository
	scorer      *scoring.Scorer
	bubbles     *scoring.BubbleAssigner
	redisClient *redis.Client
	phraser     Phraser
	logger      *zap.Logger
	stream      string
	locale      string
}

// NewWellbeingService 创建自评提交服务
// phraser 可为 nil：此时始终使用内置目录文案
func NewWellbeingService(
	entriesRepo repository.EntriesRepository,
	scorer *scoring.Scorer,
	bubbles *scoring.BubbleAssigner,
	redisClient *redis.Client,
	phraser Phraser,
	logger *zap.Logger,
	stream string,
	locale string,
) *WellbeingService {
	if locale == "" {
		locale = "fr"
	}
	return &WellbeingService{
		entriesRepo: entriesRepo,
		scorer:      scorer,
		bubbles:     bubbles,
		redisClient: redisClient,
		phraser:     phraser,
		logger:      logger,
		stream:      stream,
		locale:      locale,
	}
}

// SubmitEntry 提交当日自评（同日重复提交覆盖旧值）
func (s *WellbeingService) SubmitEntry(ctx context.Context, entry *domain.MoodEntry) (*SubmissionResult, error) {
	stored, err := s.entriesRepo.Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}

	scored := s.scorer.Score(stored)

	history, err := s.recentBubbleHistory(ctx, stored.UserID, stored.EntryDate)
	if err != nil {
		// 历史不可用只影响多样性，不应挡住提交
		s.logger.Warn("Failed to load bubble history, assigning without diversity data",
			zap.String("user_id", stored.UserID),
			zap.Error(err),
		)
		history = nil
	}
	bubble := s.bubbles.Assign(scored, history)

	s.publishEntryChanged(ctx, stored)

	return &SubmissionResult{
		Entry:             stored,
		CompositeScore:    scored.CompositeScore,
		Tier:              scored.Tier,
		Message:           s.messageText(ctx, scored.MessageID),
		RecommendationIDs: scored.RecommendationIDs,
		Confidence:        scored.Confidence,
		Bubble:            bubble,
		CatalogVersion:    scoring.CatalogVersion,
	}, nil
}

// GetEntry 读取单条自评及其评分
func (s *WellbeingService) GetEntry(ctx context.Context, userID, entryDate string) (*SubmissionResult, error) {
	entry, err := s.entriesRepo.Get(ctx, userID, entryDate)
	if err != nil {
		return nil, err
	}

	scored := s.scorer.Score(entry)
	history, err := s.recentBubbleHistory(ctx, userID, entryDate)
	if err != nil {
		history = nil
	}
	bubble := s.bubbles.Assign(scored, history)

	return &SubmissionResult{
		Entry:             entry,
		CompositeScore:    scored.CompositeScore,
		Tier:              scored.Tier,
		Message:           s.messageText(ctx, scored.MessageID),
		RecommendationIDs: scored.RecommendationIDs,
		Confidence:        scored.Confidence,
		Bubble:            bubble,
		CatalogVersion:    scoring.CatalogVersion,
	}, nil
}

// HistoryItem 个人趋势视图里的一天
type HistoryItem struct {
	Entry          *domain.MoodEntry `json:"entry"`
	CompositeScore float64           `json:"composite_score"`
	Tier           domain.Tier       `json:"tier"`
	Confidence     float64           `json:"confidence"`
}

// ListHistory 个人趋势窗口（只含本人条目，按日期升序）
func (s *WellbeingService) ListHistory(ctx context.Context, userID string, window domain.DateWindow) ([]HistoryItem, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.entriesRepo.ListForWindow(ctx, []string{userID}, window)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryDate < entries[j].EntryDate })

	items := make([]HistoryItem, 0, len(entries))
	for i := range entries {
		scored := s.scorer.Score(&entries[i])
		items = append(items, HistoryItem{
			Entry:          &entries[i],
			CompositeScore: scored.CompositeScore,
			Tier:           scored.Tier,
			Confidence:     scored.Confidence,
		})
	}

	return items, nil
}

// recentBubbleHistory 重放最近 7 天的提交得到泡泡历史
// 评分和分配都是纯函数，重放结果与当时实际发放的泡泡一致，无需单独持久化
func (s *WellbeingService) recentBubbleHistory(ctx context.Context, userID, entryDate string) ([]domain.BubbleReward, error) {
	ref, err := time.Parse(domain.DateLayout, entryDate)
	if err != nil {
		return nil, err
	}

	window := domain.DateWindow{
		Start: ref.AddDate(0, 0, -7).Format(domain.DateLayout),
		End:   ref.AddDate(0, 0, -1).Format(domain.DateLayout),
	}

	entries, err := s.entriesRepo.ListForWindow(ctx, []string{userID}, window)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryDate < entries[j].EntryDate })

	history := []domain.BubbleReward{}
	for i := range entries {
		scored := s.scorer.Score(&entries[i])
		history = append(history, s.bubbles.Assign(scored, history))
	}

	return history, nil
}

// publishEntryChanged 发布自评变更事件（尽力而为：失败只记日志，定时重算兜底）
func (s *WellbeingService) publishEntryChanged(ctx context.Context, entry *domain.MoodEntry) {
	if s.redisClient == nil {
		return
	}

	event := domain.EntryChangedEvent{
		UserID:    entry.UserID,
		EntryDate: entry.EntryDate,
		Timestamp: time.Now().Unix(),
	}

	if _, err := rediscommon.PublishJSONToStream(ctx, s.redisClient, s.stream, event); err != nil {
		s.logger.Error("Failed to publish entry changed event",
			zap.String("user_id", entry.UserID),
			zap.String("entry_date", entry.EntryDate),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("Entry changed event published",
		zap.String("user_id", entry.UserID),
		zap.String("entry_date", entry.EntryDate),
	)
}

// messageText 渲染消息文案：优先走协作方，失败回落内置目录
func (s *WellbeingService) messageText(ctx context.Context, messageID string) string {
	if s.phraser != nil {
		text, err := s.phraser.Compose(ctx, messageID, s.locale)
		if err == nil {
			return text
		}
		s.logger.Warn("Phrasing service unavailable, falling back to catalog",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
	return scoring.MessageText[messageID]
}
