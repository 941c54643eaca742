package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qvt-engine/internal/domain"
)

func scoredWith(tier domain.Tier, composite float64) domain.ScoredEntry {
	return domain.ScoredEntry{
		UserID:         "user-1",
		EntryDate:      "2026-08-24",
		CompositeScore: composite,
		Tier:           tier,
	}
}

func rewardOn(date string, bubbleType domain.BubbleType) domain.BubbleReward {
	return domain.BubbleReward{
		UserID:     "user-1",
		EntryDate:  date,
		BubbleType: bubbleType,
	}
}

func TestAssign_LowTierNoHistory_PrefersCare(t *testing.T) {
	a := NewBubbleAssigner()

	// 无历史：族内用量都是 0，按固定优先级选 care
	reward := a.Assign(scoredWith(domain.TierLow, 1.0), nil)

	assert.Equal(t, domain.BubbleCare, reward.BubbleType)
	assert.Equal(t, 1, reward.Intensity)
	assert.NotEmpty(t, reward.Message)
	require.NotNil(t, reward.RitualSuggestion)
}

func TestAssign_DiversifiesAgainstRecentHistory(t *testing.T) {
	a := NewBubbleAssigner()

	// care 近 7 天已出现两次，connection 零次 → 选 connection
	history := []domain.BubbleReward{
		rewardOn("2026-08-22", domain.BubbleCare),
		rewardOn("2026-08-23", domain.BubbleCare),
	}

	reward := a.Assign(scoredWith(domain.TierLow, 2.0), history)

	assert.Equal(t, domain.BubbleConnection, reward.BubbleType)
	assert.Equal(t, 2, reward.Intensity)
}

func TestAssign_OldHistoryIgnored(t *testing.T) {
	a := NewBubbleAssigner()

	// 8 天前的 care 不计入回看窗口 → 回到固定优先级
	history := []domain.BubbleReward{
		rewardOn("2026-08-16", domain.BubbleCare),
	}

	reward := a.Assign(scoredWith(domain.TierLow, 2.0), history)

	assert.Equal(t, domain.BubbleCare, reward.BubbleType)
}

func TestAssign_TieBrokenByFamilyPriority(t *testing.T) {
	a := NewBubbleAssigner()

	// 两种类型用量相同（各 1 次）→ connection 优先于 inspiration
	history := []domain.BubbleReward{
		rewardOn("2026-08-22", domain.BubbleConnection),
		rewardOn("2026-08-23", domain.BubbleInspiration),
	}

	reward := a.Assign(scoredWith(domain.TierMedium, 3.4), history)

	assert.Equal(t, domain.BubbleConnection, reward.BubbleType)
	assert.Equal(t, 3, reward.Intensity)
}

func TestAssign_HighTierFamily(t *testing.T) {
	a := NewBubbleAssigner()

	reward := a.Assign(scoredWith(domain.TierHigh, 4.6), nil)

	// high 档位族：inspiration / transformation
	assert.Contains(t,
		[]domain.BubbleType{domain.BubbleInspiration, domain.BubbleTransformation},
		reward.BubbleType)
	assert.Equal(t, 5, reward.Intensity)
}

func TestAssign_IntensityClamped(t *testing.T) {
	a := NewBubbleAssigner()

	reward := a.Assign(scoredWith(domain.TierLow, 1.2), nil)
	assert.Equal(t, 1, reward.Intensity)

	reward = a.Assign(scoredWith(domain.TierHigh, 5.0), nil)
	assert.Equal(t, 5, reward.Intensity)
}

func TestAssign_Deterministic(t *testing.T) {
	a := NewBubbleAssigner()

	history := []domain.BubbleReward{
		rewardOn("2026-08-21", domain.BubbleCare),
		rewardOn("2026-08-22", domain.BubbleConnection),
	}
	scored := scoredWith(domain.TierMedium, 3.0)

	first := a.Assign(scored, history)
	second := a.Assign(scored, history)

	assert.Equal(t, first, second)
}
