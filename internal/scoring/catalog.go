package scoring

import "qvt-engine/internal/domain"

// CatalogVersion 静态文案目录版本
// 文案由产品侧维护，引擎只做选取、从不生成文本；调整文案即发布新版本号
const CatalogVersion = "2026-06"

// tierMessages 每个档位恰好对应一条消息
var tierMessages = map[domain.Tier]string{
	domain.TierHigh:   "msg_high_keep_momentum",
	domain.TierMedium: "msg_medium_steady",
	domain.TierLow:    "msg_low_take_care",
}

// tierRecommendations 每个档位 2~3 条建议（有序）
var tierRecommendations = map[domain.Tier][]string{
	domain.TierHigh: {
		"reco_share_positive_ritual",
		"reco_support_teammate",
	},
	domain.TierMedium: {
		"reco_micro_break",
		"reco_plan_tomorrow",
		"reco_walk_outside",
	},
	domain.TierLow: {
		"reco_breathing_exercise",
		"reco_talk_to_someone",
		"reco_lighten_afternoon",
	},
}

// MessageText 消息文案（措辞协作方不可用时的回落文本）
var MessageText = map[string]string{
	"msg_high_keep_momentum": "Belle énergie aujourd'hui, continuez sur cette lancée.",
	"msg_medium_steady":      "Journée correcte, pensez à souffler un peu.",
	"msg_low_take_care":      "Journée difficile, prenez soin de vous.",
}

// bubbleMessages 泡泡类型对应的短文案
var bubbleMessages = map[domain.BubbleType]string{
	domain.BubbleCare:           "Une bulle de douceur rien que pour vous.",
	domain.BubbleInspiration:    "Une bulle d'inspiration pour nourrir la journée.",
	domain.BubbleTransformation: "Une bulle de transformation, un petit pas de plus.",
	domain.BubbleConnection:     "Une bulle de lien, et si vous faisiez signe à quelqu'un ?",
}

// bubbleRituals 泡泡类型对应的仪式建议（可选字段）
var bubbleRituals = map[domain.BubbleType]string{
	domain.BubbleCare:           "5 minutes de respiration guidée",
	domain.BubbleInspiration:    "noter une idée qui vous a plu aujourd'hui",
	domain.BubbleTransformation: "choisir une micro-habitude pour demain",
	domain.BubbleConnection:     "envoyer un message à un collègue",
}
