package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/scoring"
)

type fakeEntriesRepo struct {
	entries map[string]domain.MoodEntry // key: user|date
}

func newFakeEntriesRepo() *fakeEntriesRepo {
	return &fakeEntriesRepo{entries: map[string]domain.MoodEntry{}}
}

func entryKey(userID, entryDate string) string {
	return userID + "|" + entryDate
}

func (f *fakeEntriesRepo) Upsert(ctx context.Context, entry *domain.MoodEntry) (*domain.MoodEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	f.entries[entryKey(entry.UserID, entry.EntryDate)] = *entry
	stored := *entry
	return &stored, nil
}

func (f *fakeEntriesRepo) Get(ctx context.Context, userID, entryDate string) (*domain.MoodEntry, error) {
	entry, ok := f.entries[entryKey(userID, entryDate)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

func (f *fakeEntriesRepo) ListForWindow(ctx context.Context, userIDs []string, window domain.DateWindow) ([]domain.MoodEntry, error) {
	allowed := map[string]bool{}
	for _, id := range userIDs {
		allowed[id] = true
	}
	out := []domain.MoodEntry{}
	for _, entry := range f.entries {
		if allowed[entry.UserID] && entry.EntryDate >= window.Start && entry.EntryDate <= window.End {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakePhraser struct {
	text string
	err  error
}

func (f *fakePhraser) Compose(ctx context.Context, messageID, locale string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestService(t *testing.T, repo *fakeEntriesRepo, phraser Phraser) (*WellbeingService, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	scorer := scoring.NewScorer(4.0, 3.0, 0.85, 0.10)
	svc := NewWellbeingService(
		repo,
		scorer,
		scoring.NewBubbleAssigner(),
		client,
		phraser,
		zap.NewNop(),
		"qvt:entries:changed",
		"fr",
	)
	return svc, client
}

func validEntry(date string) *domain.MoodEntry {
	return &domain.MoodEntry{
		UserID:           "user-1",
		EntryDate:        date,
		Energy:           4,
		Stress:           2,
		Motivation:       4,
		SocialConnection: 4,
		WorkSatisfaction: 4,
	}
}

func TestSubmitEntry_SynchronousResult(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, client := newTestService(t, repo, nil)

	result, err := svc.SubmitEntry(context.Background(), validEntry("2026-08-24"))

	require.NoError(t, err)
	assert.InDelta(t, 4.0, result.CompositeScore, 1e-9)
	assert.Equal(t, domain.TierHigh, result.Tier)
	assert.NotEmpty(t, result.Message)
	assert.NotEmpty(t, result.RecommendationIDs)
	// 无评论 → 置信度降一档
	assert.InDelta(t, 0.75, result.Confidence, 1e-9)
	assert.NotEmpty(t, result.Bubble.BubbleType)
	// 返回里带文案目录版本，客户端据此感知文案更新
	assert.Equal(t, scoring.CatalogVersion, result.CatalogVersion)

	// 提交落库
	_, err = repo.Get(context.Background(), "user-1", "2026-08-24")
	require.NoError(t, err)

	// 变更事件已发布到流
	length, err := client.XLen(context.Background(), "qvt:entries:changed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestSubmitEntry_InvalidEntryRejected(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, client := newTestService(t, repo, nil)

	entry := validEntry("2026-08-24")
	entry.Energy = 9

	_, err := svc.SubmitEntry(context.Background(), entry)

	require.Error(t, err)
	var validationErr *domain.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	// 拒绝的提交不产生事件
	length, err := client.XLen(context.Background(), "qvt:entries:changed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)
}

func TestSubmitEntry_SameDayResubmissionOverwrites(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.SubmitEntry(context.Background(), validEntry("2026-08-24"))
	require.NoError(t, err)

	second := validEntry("2026-08-24")
	second.Energy = 1
	second.Motivation = 1
	result, err := svc.SubmitEntry(context.Background(), second)
	require.NoError(t, err)

	assert.InDelta(t, 2.8, result.CompositeScore, 1e-9)

	stored, err := repo.Get(context.Background(), "user-1", "2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Energy)
}

func TestSubmitEntry_PhraserComposesMessage(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, _ := newTestService(t, repo, &fakePhraser{text: "Bravo pour cette belle journée !"})

	result, err := svc.SubmitEntry(context.Background(), validEntry("2026-08-24"))

	require.NoError(t, err)
	assert.Equal(t, "Bravo pour cette belle journée !", result.Message)
}

func TestSubmitEntry_PhraserFailureFallsBackToCatalog(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, _ := newTestService(t, repo, &fakePhraser{err: errors.New("connection refused")})

	result, err := svc.SubmitEntry(context.Background(), validEntry("2026-08-24"))

	require.NoError(t, err)
	assert.Equal(t, scoring.MessageText["msg_high_keep_momentum"], result.Message)
}

func TestSubmitEntry_BubbleDiversityAcrossDays(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, _ := newTestService(t, repo, nil)

	first, err := svc.SubmitEntry(context.Background(), validEntry("2026-08-23"))
	require.NoError(t, err)

	second, err := svc.SubmitEntry(context.Background(), validEntry("2026-08-24"))
	require.NoError(t, err)

	// 同档位连续提交：族内轮换，避免两天同一种泡泡
	assert.NotEqual(t, first.Bubble.BubbleType, second.Bubble.BubbleType)
}

func TestGetEntry_NotFound(t *testing.T) {
	repo := newFakeEntriesRepo()
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.GetEntry(context.Background(), "user-1", "2026-08-24")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
