package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"qvt-engine/internal/domain"
)

// fakeAggregateSource 固定聚合结果，仅用于单元测试
type fakeAggregateSource struct {
	aggregates map[string]*domain.TeamAggregate
}

func (f *fakeAggregateSource) Recompute(ctx context.Context, teamID string, window domain.DateWindow) (*domain.TeamAggregate, error) {
	agg, ok := f.aggregates[teamID]
	if !ok {
		return nil, fmt.Errorf("no aggregate for team %s", teamID)
	}
	return agg, nil
}

type fakeTeamsRepo struct {
	teams map[string]domain.Team
}

func (f *fakeTeamsRepo) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, ok := f.teams[teamID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &team, nil
}

func (f *fakeTeamsRepo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	out := []domain.Team{}
	for _, team := range f.teams {
		out = append(out, team)
	}
	return out, nil
}

func (f *fakeTeamsRepo) ListMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	return nil, nil
}

func (f *fakeTeamsRepo) ResolveMemberTeams(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

type fakeAlertsRepo struct {
	alerts []domain.Alert
}

func (f *fakeAlertsRepo) Create(ctx context.Context, alert *domain.Alert) error { return nil }

func (f *fakeAlertsRepo) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeAlertsRepo) GetOpenAlert(ctx context.Context, teamID string, axis domain.Axis, window domain.DateWindow) (*domain.Alert, error) {
	return nil, nil
}

func (f *fakeAlertsRepo) ListByTeam(ctx context.Context, teamID, status string) ([]domain.Alert, error) {
	return nil, nil
}

func (f *fakeAlertsRepo) ListForPeriod(ctx context.Context, period domain.DateWindow) ([]domain.Alert, error) {
	return f.alerts, nil
}

func (f *fakeAlertsRepo) Acknowledge(ctx context.Context, alertID, userID string) error {
	return nil
}

type fakeReportsRepo struct {
	created []domain.ComplianceReport
}

func (f *fakeReportsRepo) Create(ctx context.Context, report *domain.ComplianceReport) error {
	f.created = append(f.created, *report)
	return nil
}

func (f *fakeReportsRepo) Get(ctx context.Context, reportID string) (*domain.ComplianceReport, error) {
	for _, report := range f.created {
		if report.ReportID == reportID {
			return &report, nil
		}
	}
	return nil, domain.ErrNotFound
}

var testPeriod = domain.DateWindow{Start: "2026-08-01", End: "2026-08-31"}

func eligibleAggregate(teamID string) *domain.TeamAggregate {
	return &domain.TeamAggregate{
		TeamID:           teamID,
		WindowStart:      testPeriod.Start,
		WindowEnd:        testPeriod.End,
		ParticipantCount: 8,
		EntryCount:       112,
		ReleaseEligible:  true,
		Axes: map[domain.Axis]domain.AxisStats{
			domain.AxisEnergy:    {Mean: 3.4, Variance: 0.6},
			domain.AxisStress:    {Mean: 2.8, Variance: 0.9},
			domain.AxisComposite: {Mean: 3.5, Variance: 0.5},
		},
	}
}

func ineligibleAggregate(teamID string) *domain.TeamAggregate {
	return &domain.TeamAggregate{
		TeamID:           teamID,
		WindowStart:      testPeriod.Start,
		WindowEnd:        testPeriod.End,
		ParticipantCount: 3,
		EntryCount:       21,
		ReleaseEligible:  false,
	}
}

func newTestExporter() (*Exporter, *fakeReportsRepo) {
	aggregates := &fakeAggregateSource{aggregates: map[string]*domain.TeamAggregate{
		"team-a": eligibleAggregate("team-a"),
		"team-b": ineligibleAggregate("team-b"),
	}}
	teams := &fakeTeamsRepo{teams: map[string]domain.Team{
		"team-a": {TeamID: "team-a", TeamName: "Atelier"},
		"team-b": {TeamID: "team-b", TeamName: "Bureau"},
	}}
	alerts := &fakeAlertsRepo{alerts: []domain.Alert{{
		AlertID:     "alert-1",
		RuleID:      "stress-mean-high",
		TeamID:      "team-a",
		Axis:        domain.AxisStress,
		Severity:    domain.SeverityWarning,
		Status:      domain.AlertStatusOpen,
		WindowStart: testPeriod.Start,
		WindowEnd:   testPeriod.End,
		TriggeredAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		Evidence: domain.AlertEvidence{
			Axis:             domain.AxisStress,
			Mean:             4.1,
			Variance:         0.3,
			ParticipantCount: 8,
			Comparator:       domain.ComparatorGTE,
			Threshold:        4.0,
			WindowStart:      testPeriod.Start,
			WindowEnd:        testPeriod.End,
		},
	}}}
	reports := &fakeReportsRepo{}

	return NewExporter(aggregates, teams, alerts, reports, zap.NewNop()), reports
}

func TestGenerate_EveryRequestedTeamAppearsExactlyOnce(t *testing.T) {
	exporter, reports := newTestExporter()

	report, err := exporter.Generate(context.Background(), testPeriod, []string{"team-a", "team-b"})

	require.NoError(t, err)
	require.Len(t, report.Teams, 2)

	seen := map[string]int{}
	for _, team := range report.Teams {
		seen[team.TeamID]++
	}
	assert.Equal(t, 1, seen["team-a"])
	assert.Equal(t, 1, seen["team-b"])
	assert.Len(t, reports.created, 1)
}

func TestGenerate_InsufficientParticipationMarker(t *testing.T) {
	exporter, _ := newTestExporter()

	report, err := exporter.Generate(context.Background(), testPeriod, []string{"team-a", "team-b"})
	require.NoError(t, err)

	var eligible, ineligible *domain.ReportTeamSection
	for i := range report.Teams {
		switch report.Teams[i].TeamID {
		case "team-a":
			eligible = &report.Teams[i]
		case "team-b":
			ineligible = &report.Teams[i]
		}
	}
	require.NotNil(t, eligible)
	require.NotNil(t, ineligible)

	assert.False(t, eligible.InsufficientParticipation)
	assert.NotEmpty(t, eligible.Axes)

	// 不合格团队：带标记、无统计，但绝不被丢弃
	assert.True(t, ineligible.InsufficientParticipation)
	assert.False(t, ineligible.ReleaseEligible)
	assert.Nil(t, ineligible.Axes)
}

func TestGenerate_EmptyTeamIDsCoversAllTeams(t *testing.T) {
	exporter, _ := newTestExporter()

	report, err := exporter.Generate(context.Background(), testPeriod, nil)

	require.NoError(t, err)
	assert.Len(t, report.Teams, 2)
}

func TestGenerate_ReportsAreImmutable(t *testing.T) {
	exporter, reports := newTestExporter()

	first, err := exporter.Generate(context.Background(), testPeriod, []string{"team-a"})
	require.NoError(t, err)
	second, err := exporter.Generate(context.Background(), testPeriod, []string{"team-a"})
	require.NoError(t, err)

	// 重新生成走新 report_id，旧报告原样保留
	assert.NotEqual(t, first.ReportID, second.ReportID)
	assert.Len(t, reports.created, 2)
}

func TestGenerate_ReportNeverContainsUserIDs(t *testing.T) {
	exporter, _ := newTestExporter()

	report, err := exporter.Generate(context.Background(), testPeriod, []string{"team-a", "team-b"})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "user_id")
}

func TestGenerate_InvalidPeriod(t *testing.T) {
	exporter, reports := newTestExporter()

	_, err := exporter.Generate(context.Background(), domain.DateWindow{Start: "2026-09-01", End: "2026-08-01"}, nil)

	require.Error(t, err)
	assert.Empty(t, reports.created)
}

func TestGenerate_UnknownTeamFails(t *testing.T) {
	exporter, reports := newTestExporter()

	_, err := exporter.Generate(context.Background(), testPeriod, []string{"team-zz"})

	require.Error(t, err)
	assert.Empty(t, reports.created)
}

// ============================================
// DUERP Excel 渲染
// ============================================

func TestGenerateDUERPExcel(t *testing.T) {
	exporter, _ := newTestExporter()
	report, err := exporter.Generate(context.Background(), testPeriod, []string{"team-a", "team-b"})
	require.NoError(t, err)

	data, err := GenerateDUERPExcel(report)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{sheetSummary, sheetTeams, sheetAlerts}, f.GetSheetList())

	rows, err := f.GetRows(sheetTeams)
	require.NoError(t, err)
	require.Len(t, rows, 3) // 表头 + 两个团队
	assert.Equal(t, "Team ID", rows[0][0])
	assert.Equal(t, "team-a", rows[1][0])
	assert.Equal(t, "released", rows[1][4])
	assert.Equal(t, "team-b", rows[2][0])
	assert.Equal(t, "insufficient participation", rows[2][4])
	// 不合格团队的统计列为空
	assert.LessOrEqual(t, len(rows[2]), 5)

	alertRows, err := f.GetRows(sheetAlerts)
	require.NoError(t, err)
	require.Len(t, alertRows, 2)
	assert.Equal(t, "stress-mean-high", alertRows[1][1])
	assert.Equal(t, "stress", alertRows[1][3])
}
