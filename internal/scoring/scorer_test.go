package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qvt-engine/internal/domain"
)

func newTestScorer() *Scorer {
	return NewScorer(4.0, 3.0, 0.85, 0.10)
}

func entryWith(energy, stress, motivation, social, satisfaction int) *domain.MoodEntry {
	return &domain.MoodEntry{
		UserID:           "user-1",
		EntryDate:        "2026-08-24",
		Energy:           energy,
		Stress:           stress,
		Motivation:       motivation,
		SocialConnection: social,
		WorkSatisfaction: satisfaction,
	}
}

func TestScore_BestDay(t *testing.T) {
	s := newTestScorer()

	// energy=5, stress=1（反向后=5）, 其余=5 → composite = 5.0 → high
	scored := s.Score(entryWith(5, 1, 5, 5, 5))

	assert.Equal(t, 5.0, scored.CompositeScore)
	assert.Equal(t, domain.TierHigh, scored.Tier)
	assert.Equal(t, "msg_high_keep_momentum", scored.MessageID)
	require.GreaterOrEqual(t, len(scored.RecommendationIDs), 2)
	require.LessOrEqual(t, len(scored.RecommendationIDs), 3)
}

func TestScore_WorstDay(t *testing.T) {
	s := newTestScorer()

	// energy=1, stress=5（反向后=1）, 其余=1 → composite = 1.0 → low
	scored := s.Score(entryWith(1, 5, 1, 1, 1))

	assert.Equal(t, 1.0, scored.CompositeScore)
	assert.Equal(t, domain.TierLow, scored.Tier)
	assert.Equal(t, "msg_low_take_care", scored.MessageID)
}

func TestScore_TierBoundaries(t *testing.T) {
	s := newTestScorer()

	// composite = 4.0 恰好在边界上 → high
	scored := s.Score(entryWith(4, 2, 4, 4, 4))
	assert.Equal(t, 4.0, scored.CompositeScore)
	assert.Equal(t, domain.TierHigh, scored.Tier)

	// composite = 3.0 → medium
	scored = s.Score(entryWith(3, 3, 3, 3, 3))
	assert.Equal(t, 3.0, scored.CompositeScore)
	assert.Equal(t, domain.TierMedium, scored.Tier)

	// composite = 2.8 → low
	scored = s.Score(entryWith(3, 3, 3, 2, 2))
	assert.InDelta(t, 2.8, scored.CompositeScore, 1e-9)
	assert.Equal(t, domain.TierLow, scored.Tier)
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer()
	entry := entryWith(4, 2, 3, 5, 4)

	first := s.Score(entry)
	second := s.Score(entry)

	assert.Equal(t, first, second)
}

func TestScore_TierMonotonicity(t *testing.T) {
	s := newTestScorer()

	// 综合分更高的自评，档位序不能更低
	var prev *domain.ScoredEntry
	for v := 1; v <= 5; v++ {
		scored := s.Score(entryWith(v, 6-v, v, v, v))
		if prev != nil {
			assert.GreaterOrEqual(t, scored.Tier.Rank(), prev.Tier.Rank(),
				"tier rank must not decrease as composite grows")
		}
		prev = &scored
	}
}

func TestScore_ConfidencePenalty(t *testing.T) {
	s := newTestScorer()

	// 无 comment：基线扣一次罚分
	scored := s.Score(entryWith(3, 3, 3, 3, 3))
	assert.InDelta(t, 0.75, scored.Confidence, 1e-9)

	// 有 comment：保持基线
	entry := entryWith(3, 3, 3, 3, 3)
	comment := "semaine chargée"
	entry.Comment = &comment
	scored = s.Score(entry)
	assert.InDelta(t, 0.85, scored.Confidence, 1e-9)
}

func TestScore_ConfigurableBoundaries(t *testing.T) {
	// 边界是配置：收紧 high 门槛后同一自评落到 medium
	strict := NewScorer(4.5, 3.0, 0.85, 0.10)

	scored := strict.Score(entryWith(4, 2, 4, 4, 4))
	assert.Equal(t, 4.0, scored.CompositeScore)
	assert.Equal(t, domain.TierMedium, scored.Tier)
}
