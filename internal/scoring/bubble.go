package scoring

import (
	"math"
	"time"

	"qvt-engine/internal/domain"
)

// historyDays 多样性统计回看的天数
const historyDays = 7

// tierBubbleFamilies 档位到泡泡类型族的确定性映射
var tierBubbleFamilies = map[domain.Tier][]domain.BubbleType{
	domain.TierHigh:   {domain.BubbleInspiration, domain.BubbleTransformation},
	domain.TierMedium: {domain.BubbleConnection, domain.BubbleInspiration},
	domain.TierLow:    {domain.BubbleCare, domain.BubbleConnection},
}

// BubbleAssigner 奖励泡泡分配器（评分结果 + 近期历史的纯函数）
type BubbleAssigner struct{}

// NewBubbleAssigner 创建分配器
func NewBubbleAssigner() *BubbleAssigner {
	return &BubbleAssigner{}
}

// Assign 为一次提交分配奖励泡泡
// 族内选近 7 天用得最少的类型，避免奖励流单调；
// 用量相同时按固定优先级 care > connection > inspiration > transformation
func (a *BubbleAssigner) Assign(scored domain.ScoredEntry, recentHistory []domain.BubbleReward) domain.BubbleReward {
	family := tierBubbleFamilies[scored.Tier]

	usage := a.countRecentUsage(scored.EntryDate, recentHistory)

	chosen := family[0]
	for _, candidate := range family[1:] {
		if usage[candidate] < usage[chosen] {
			chosen = candidate
		} else if usage[candidate] == usage[chosen] &&
			domain.BubblePriority(candidate) < domain.BubblePriority(chosen) {
			chosen = candidate
		}
	}

	intensity := int(math.Round(scored.CompositeScore))
	if intensity < domain.AxisMin {
		intensity = domain.AxisMin
	}
	if intensity > domain.AxisMax {
		intensity = domain.AxisMax
	}

	ritual := bubbleRituals[chosen]

	return domain.BubbleReward{
		UserID:           scored.UserID,
		EntryDate:        scored.EntryDate,
		BubbleType:       chosen,
		Intensity:        intensity,
		Message:          bubbleMessages[chosen],
		RitualSuggestion: &ritual,
	}
}

// countRecentUsage 统计参考日前 7 天（含当日）各类型的使用次数
func (a *BubbleAssigner) countRecentUsage(entryDate string, history []domain.BubbleReward) map[domain.BubbleType]int {
	usage := map[domain.BubbleType]int{}

	ref, err := time.Parse(domain.DateLayout, entryDate)
	if err != nil {
		return usage
	}
	cutoff := ref.AddDate(0, 0, -(historyDays - 1))

	for _, reward := range history {
		d, err := time.Parse(domain.DateLayout, reward.EntryDate)
		if err != nil {
			continue
		}
		if d.Before(cutoff) || d.After(ref) {
			continue
		}
		usage[reward.BubbleType]++
	}

	return usage
}
