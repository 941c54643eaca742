package domain

import (
	"fmt"
	"time"
)

// Severity 报警级别
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertStatus 报警状态
const (
	AlertStatusOpen         = "open"
	AlertStatusAcknowledged = "acknowledged"
)

// Comparator 规则比较符
type Comparator string

const (
	ComparatorLT  Comparator = "<"
	ComparatorGT  Comparator = ">"
	ComparatorLTE Comparator = "<="
	ComparatorGTE Comparator = ">="
)

// Compare 按比较符比较 value 与 threshold
func (c Comparator) Compare(value, threshold float64) (bool, error) {
	switch c {
	case ComparatorLT:
		return value < threshold, nil
	case ComparatorGT:
		return value > threshold, nil
	case ComparatorLTE:
		return value <= threshold, nil
	case ComparatorGTE:
		return value >= threshold, nil
	}
	return false, fmt.Errorf("unknown comparator: %q", c)
}

// Rule 心理社会风险(RPS)报警规则（外部配置，引擎内不写死阈值）
type Rule struct {
	RuleID        string     `json:"rule_id" yaml:"rule_id"`
	Axis          Axis       `json:"axis" yaml:"axis"`
	Comparator    Comparator `json:"comparator" yaml:"comparator"`
	Threshold     float64    `json:"threshold" yaml:"threshold"`
	Severity      Severity   `json:"severity" yaml:"severity"`
	MinWindowDays int        `json:"min_window_days" yaml:"min_window_days"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// AlertEvidence 触发证据快照（只允许聚合级数值，绝不携带 user_id / 原始自评）
type AlertEvidence struct {
	Axis             Axis       `json:"axis"`
	Mean             float64    `json:"mean"`
	Variance         float64    `json:"variance"`
	ParticipantCount int        `json:"participant_count"`
	Comparator       Comparator `json:"comparator"`
	Threshold        float64    `json:"threshold"`
	WindowStart      string     `json:"window_start"`
	WindowEnd        string     `json:"window_end"`
}

// Alert 报警事件（对应 rps_alerts 表）
// 去重约束：同一 (team_id, axis, window) 存在未确认报警时，规则不重复触发
type Alert struct {
	AlertID        string        `json:"alert_id" db:"alert_id"`
	RuleID         string        `json:"rule_id" db:"rule_id"`
	TeamID         string        `json:"team_id" db:"team_id"`
	Axis           Axis          `json:"axis" db:"axis"`
	Severity       Severity      `json:"severity" db:"severity"`
	Status         string        `json:"status" db:"status"` // open, acknowledged
	WindowStart    string        `json:"window_start" db:"window_start"`
	WindowEnd      string        `json:"window_end" db:"window_end"`
	TriggeredAt    time.Time     `json:"triggered_at" db:"triggered_at"`
	Evidence       AlertEvidence `json:"evidence" db:"evidence"` // JSONB
	AcknowledgedBy *string       `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}
