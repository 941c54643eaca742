package domain

import "time"

// ReportTeamSection 报告中单个团队的条目
// 审计要求：参与度不足的团队也必须出现在报告里（带标记、无统计），不能被静默丢弃
type ReportTeamSection struct {
	TeamID                    string             `json:"team_id"`
	TeamName                  string             `json:"team_name"`
	ParticipantCount          int                `json:"participant_count"`
	EntryCount                int                `json:"entry_count"`
	ReleaseEligible           bool               `json:"release_eligible"`
	InsufficientParticipation bool               `json:"insufficient_participation"`
	Axes                      map[Axis]AxisStats `json:"axes,omitempty"` // 不合格团队必须为 nil
}

// ComplianceReport DUERP 风格合规导出（对应 compliance_reports 表）
// 生成后不可变；重新生成产生新的 report_id，不修改旧报告
type ComplianceReport struct {
	ReportID    string              `json:"report_id" db:"report_id"`
	PeriodStart string              `json:"period_start" db:"period_start"`
	PeriodEnd   string              `json:"period_end" db:"period_end"`
	GeneratedAt time.Time           `json:"generated_at" db:"generated_at"`
	Teams       []ReportTeamSection `json:"teams"`  // JSONB
	Alerts      []Alert             `json:"alerts"` // 期间内触发的报警（聚合级证据）
}

// Team 团队（成员名单由外部身份/权限协作方维护，引擎只读）
type Team struct {
	TeamID   string `json:"team_id" db:"team_id"`
	TeamName string `json:"team_name" db:"team_name"`
}
