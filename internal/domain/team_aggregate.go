package domain

// AxisStats 单轴统计量
type AxisStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"` // 总体方差
}

// TeamAggregate 团队时间窗聚合（派生数据，按 (team_id, window) 重算而非追加）
// 匿名性约束：ParticipantCount < K_MIN 时 ReleaseEligible=false，
// 此时 Axes 必须为 nil，对外序列化不得携带任何逐轴统计
type TeamAggregate struct {
	TeamID           string             `json:"team_id"`
	WindowStart      string             `json:"window_start"`
	WindowEnd        string             `json:"window_end"`
	ParticipantCount int                `json:"participant_count"` // 贡献过至少一条自评的去重用户数
	EntryCount       int                `json:"entry_count"`
	ReleaseEligible  bool               `json:"release_eligible"`
	Axes             map[Axis]AxisStats `json:"axes,omitempty"` // 含五个原始轴 + composite
}

// Window 聚合窗口
func (a *TeamAggregate) Window() DateWindow {
	return DateWindow{Start: a.WindowStart, End: a.WindowEnd}
}

// AxisStat 按轴取统计量（仅在 ReleaseEligible 时有值）
func (a *TeamAggregate) AxisStat(axis Axis) (AxisStats, bool) {
	if a.Axes == nil {
		return AxisStats{}, false
	}
	s, ok := a.Axes[axis]
	return s, ok
}
