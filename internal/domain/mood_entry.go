package domain

import (
	"fmt"
	"time"
)

// DateLayout 日历日期格式（上报时区内的自然日，不是时间戳）
const DateLayout = "2006-01-02"

// Axis 情绪自评轴
type Axis string

const (
	AxisEnergy           Axis = "energy"
	AxisStress           Axis = "stress" // 数值越高越差
	AxisMotivation       Axis = "motivation"
	AxisSocialConnection Axis = "social_connection"
	AxisWorkSatisfaction Axis = "work_satisfaction"

	// AxisComposite 综合分伪轴（仅用于聚合统计和报警规则）
	AxisComposite Axis = "composite"
)

// AllAxes 五个原始自评轴（不含 composite）
func AllAxes() []Axis {
	return []Axis{
		AxisEnergy,
		AxisStress,
		AxisMotivation,
		AxisSocialConnection,
		AxisWorkSatisfaction,
	}
}

// AxisMin / AxisMax 轴取值范围
const (
	AxisMin = 1
	AxisMax = 5
)

// MoodEntry 每日情绪自评（对应 mood_entries 表）
// 唯一键：(user_id, entry_date)，同一天重复提交整行覆盖，不产生重复行
type MoodEntry struct {
	UserID           string    `json:"user_id" db:"user_id"`
	EntryDate        string    `json:"entry_date" db:"entry_date"` // YYYY-MM-DD
	Energy           int       `json:"energy" db:"energy"`
	Stress           int       `json:"stress" db:"stress"`
	Motivation       int       `json:"motivation" db:"motivation"`
	SocialConnection int       `json:"social_connection" db:"social_connection"`
	WorkSatisfaction int       `json:"work_satisfaction" db:"work_satisfaction"`
	Comment          *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// AxisValue 按轴名取值
func (e *MoodEntry) AxisValue(axis Axis) int {
	switch axis {
	case AxisEnergy:
		return e.Energy
	case AxisStress:
		return e.Stress
	case AxisMotivation:
		return e.Motivation
	case AxisSocialConnection:
		return e.SocialConnection
	case AxisWorkSatisfaction:
		return e.WorkSatisfaction
	}
	return 0
}

// Validate 校验自评内容（字段级错误，全部收集后一次返回）
func (e *MoodEntry) Validate() error {
	verr := &ValidationError{}

	if e.UserID == "" {
		verr.Add("user_id", "user_id is required")
	}
	if e.EntryDate == "" {
		verr.Add("entry_date", "entry_date is required")
	} else if _, err := time.Parse(DateLayout, e.EntryDate); err != nil {
		verr.Add("entry_date", fmt.Sprintf("entry_date must be %s format", DateLayout))
	}

	for _, axis := range AllAxes() {
		v := e.AxisValue(axis)
		if v < AxisMin || v > AxisMax {
			verr.Add(string(axis), fmt.Sprintf("%s must be between %d and %d", axis, AxisMin, AxisMax))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// DateWindow 日历日期闭区间 [Start, End]
type DateWindow struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

// Validate 校验窗口
func (w DateWindow) Validate() error {
	verr := &ValidationError{}
	start, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		verr.Add("start", "start must be YYYY-MM-DD")
	}
	end, err := time.Parse(DateLayout, w.End)
	if err != nil {
		verr.Add("end", "end must be YYYY-MM-DD")
	}
	if !verr.HasErrors() && end.Before(start) {
		verr.Add("end", "end must not be before start")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Days 窗口天数（闭区间，同一天 = 1）
func (w DateWindow) Days() int {
	start, err1 := time.Parse(DateLayout, w.Start)
	end, err2 := time.Parse(DateLayout, w.End)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
