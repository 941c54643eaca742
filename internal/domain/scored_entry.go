package domain

// Tier 综合分档位
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Rank 档位序（low < medium < high，用于单调性比较）
func (t Tier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	}
	return -1
}

// ScoredEntry 评分结果（MoodEntry 五轴的纯函数，可随时重算，不单独持久化）
type ScoredEntry struct {
	UserID            string   `json:"user_id"`
	EntryDate         string   `json:"entry_date"`
	CompositeScore    float64  `json:"composite_score"` // [1,5]
	Tier              Tier     `json:"tier"`
	MessageID         string   `json:"message_id"`
	RecommendationIDs []string `json:"recommendation_ids"`
	Confidence        float64  `json:"confidence"` // [0,1]，反映可用信号量，与情绪好坏无关
}

// BubbleType 奖励泡泡类型
type BubbleType string

const (
	BubbleCare           BubbleType = "care"
	BubbleInspiration    BubbleType = "inspiration"
	BubbleTransformation BubbleType = "transformation"
	BubbleConnection     BubbleType = "connection"
)

// BubblePriority 同分时的固定族优先级（care > connection > inspiration > transformation）
func BubblePriority(t BubbleType) int {
	switch t {
	case BubbleCare:
		return 0
	case BubbleConnection:
		return 1
	case BubbleInspiration:
		return 2
	case BubbleTransformation:
		return 3
	}
	return 4
}

// BubbleReward 单次提交的游戏化奖励（与 MoodEntry 1:1）
type BubbleReward struct {
	UserID           string     `json:"user_id"`
	EntryDate        string     `json:"entry_date"`
	BubbleType       BubbleType `json:"bubble_type"`
	Intensity        int        `json:"intensity"` // [1,5]
	Message          string     `json:"message"`
	RitualSuggestion *string    `json:"ritual_suggestion,omitempty"`
}
