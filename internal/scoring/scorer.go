package scoring

import (
	"qvt-engine/internal/domain"
)

// Scorer 评分引擎
// 纯函数、无 I/O、无时钟：同一 MoodEntry 评分结果永远一致
// 档位边界来自配置，不在引擎里写死
type Scorer struct {
	tierHighMin              float64
	tierMediumMin            float64
	confidenceBaseline       float64
	confidenceCommentPenalty float64
}

// NewScorer 创建评分引擎
func NewScorer(tierHighMin, tierMediumMin, confidenceBaseline, confidenceCommentPenalty float64) *Scorer {
	return &Scorer{
		tierHighMin:              tierHighMin,
		tierMediumMin:            tierMediumMin,
		confidenceBaseline:       confidenceBaseline,
		confidenceCommentPenalty: confidenceCommentPenalty,
	}
}

// Composite 计算综合分：五轴算术平均，stress 反向（6-stress），值域 [1,5]
func Composite(entry *domain.MoodEntry) float64 {
	sum := float64(entry.Energy) +
		float64(domain.AxisMax+1-entry.Stress) +
		float64(entry.Motivation) +
		float64(entry.SocialConnection) +
		float64(entry.WorkSatisfaction)
	return sum / 5.0
}

// Score 对一条合法自评评分
// 非法输入由 EntryStore 在入库前拒绝，这里没有可恢复的失败路径
func (s *Scorer) Score(entry *domain.MoodEntry) domain.ScoredEntry {
	composite := Composite(entry)
	tier := s.tierFor(composite)

	// 置信度反映可用信号量，与情绪好坏无关
	confidence := s.confidenceBaseline
	if entry.Comment == nil || *entry.Comment == "" {
		confidence -= s.confidenceCommentPenalty
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	recommendations := tierRecommendations[tier]
	out := make([]string, len(recommendations))
	copy(out, recommendations)

	return domain.ScoredEntry{
		UserID:            entry.UserID,
		EntryDate:         entry.EntryDate,
		CompositeScore:    composite,
		Tier:              tier,
		MessageID:         tierMessages[tier],
		RecommendationIDs: out,
		Confidence:        confidence,
	}
}

// tierFor 档位判定（边界可配置；边界序 high > medium 由配置方保证）
func (s *Scorer) tierFor(composite float64) domain.Tier {
	switch {
	case composite >= s.tierHighMin:
		return domain.TierHigh
	case composite >= s.tierMediumMin:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}
