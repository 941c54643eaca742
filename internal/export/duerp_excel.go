package export

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"qvt-engine/internal/domain"

	"github.com/xuri/excelize/v2"
)

// DUERP 工作簿的三张表
const (
	sheetSummary = "Synthèse"
	sheetTeams   = "Équipes"
	sheetAlerts  = "Alertes RPS"
)

var teamSheetHeader = []string{
	"Team ID",
	"Team Name",
	"Participants",
	"Entries",
	"Status",
	"Energy Mean",
	"Stress Mean",
	"Motivation Mean",
	"Social Mean",
	"Satisfaction Mean",
	"Composite Mean",
	"Composite Variance",
}

var alertSheetHeader = []string{
	"Alert ID",
	"Rule ID",
	"Team ID",
	"Axis",
	"Severity",
	"Status",
	"Window Start",
	"Window End",
	"Mean",
	"Threshold",
	"Participants",
	"Triggered At",
}

// 团队表逐轴列的取值顺序（与 teamSheetHeader 统计列对应）
var teamSheetAxes = []domain.Axis{
	domain.AxisEnergy,
	domain.AxisStress,
	domain.AxisMotivation,
	domain.AxisSocialConnection,
	domain.AxisWorkSatisfaction,
	domain.AxisComposite,
}

// GenerateDUERPExcel 把一份合规报告渲染为 DUERP 附件工作簿
// 数据源只有报告本身：报告里没有的东西（个体条目）这里永远画不出来
func GenerateDUERPExcel(report *domain.ComplianceReport) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：这里不要 defer Close()，WriteTo 需要文件保持打开

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, report); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTeamsSheet(f, report, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeAlertsSheet(f, report, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	// 删除默认的 Sheet1，激活摘要表
	f.DeleteSheet("Sheet1")
	index, err := f.GetSheetIndex(sheetSummary)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to find summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, report *domain.ComplianceReport) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	eligible := 0
	for _, team := range report.Teams {
		if team.ReleaseEligible {
			eligible++
		}
	}

	rows := [][2]any{
		{"Report ID", report.ReportID},
		{"Period Start", report.PeriodStart},
		{"Period End", report.PeriodEnd},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Teams Covered", len(report.Teams)},
		{"Teams With Released Statistics", eligible},
		{"Teams With Insufficient Participation", len(report.Teams) - eligible},
		{"RPS Alerts In Period", len(report.Alerts)},
	}
	for i, row := range rows {
		if err := setCell(f, sheetSummary, 1, i+1, row[0]); err != nil {
			return err
		}
		if err := setCell(f, sheetSummary, 2, i+1, row[1]); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetSummary, "A", "A", 38); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetSummary, "B", "B", 40); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	return nil
}

func writeTeamsSheet(f *excelize.File, report *domain.ComplianceReport, headerStyle int) error {
	if _, err := f.NewSheet(sheetTeams); err != nil {
		return fmt.Errorf("failed to create teams sheet: %w", err)
	}
	if err := writeHeaderRow(f, sheetTeams, teamSheetHeader, headerStyle); err != nil {
		return err
	}

	// 稳定输出顺序，报告重渲染逐字节可比对
	teams := make([]domain.ReportTeamSection, len(report.Teams))
	copy(teams, report.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })

	for rowIdx, team := range teams {
		row := rowIdx + 2
		status := "released"
		if team.InsufficientParticipation {
			status = "insufficient participation"
		}

		cells := []any{
			team.TeamID,
			team.TeamName,
			team.ParticipantCount,
			team.EntryCount,
			status,
		}
		for _, axis := range teamSheetAxes[:5] {
			cells = append(cells, axisMeanCell(team, axis))
		}
		composite, ok := team.Axes[domain.AxisComposite]
		if ok {
			cells = append(cells, round2(composite.Mean), round2(composite.Variance))
		} else {
			cells = append(cells, "", "")
		}

		for colIdx, value := range cells {
			if value == nil || value == "" {
				continue
			}
			if err := setCell(f, sheetTeams, colIdx+1, row, value); err != nil {
				return err
			}
		}
	}

	return freezeHeader(f, sheetTeams)
}

func writeAlertsSheet(f *excelize.File, report *domain.ComplianceReport, headerStyle int) error {
	if _, err := f.NewSheet(sheetAlerts); err != nil {
		return fmt.Errorf("failed to create alerts sheet: %w", err)
	}
	if err := writeHeaderRow(f, sheetAlerts, alertSheetHeader, headerStyle); err != nil {
		return err
	}

	for rowIdx, alert := range report.Alerts {
		row := rowIdx + 2
		cells := []any{
			alert.AlertID,
			alert.RuleID,
			alert.TeamID,
			string(alert.Axis),
			string(alert.Severity),
			alert.Status,
			alert.WindowStart,
			alert.WindowEnd,
			round2(alert.Evidence.Mean),
			alert.Evidence.Threshold,
			alert.Evidence.ParticipantCount,
			alert.TriggeredAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, value := range cells {
			if err := setCell(f, sheetAlerts, colIdx+1, row, value); err != nil {
				return err
			}
		}
	}

	return freezeHeader(f, sheetAlerts)
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string, headerStyle int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, name, name, 18); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func freezeHeader(f *excelize.File, sheet string) error {
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell value at %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func axisMeanCell(team domain.ReportTeamSection, axis domain.Axis) any {
	stats, ok := team.Axes[axis]
	if !ok {
		return ""
	}
	return round2(stats.Mean)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
