package analytics_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"senryaku/internal/db"
	"senryaku/internal/domain"
	"senryaku/internal/engine/analytics"
	"senryaku/internal/migrate"
	"senryaku/internal/repo"
)

// now is the fixed clock for every scenario in this file.
var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	DB   *sql.DB
	Repo repo.Repo
	Svc  analytics.Service
	Ctx  context.Context
	seq  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	return &fixture{
		DB:   conn,
		Repo: r,
		Svc:  analytics.Service{Repo: r},
		Ctx:  context.Background(),
	}
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (f *fixture) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%02d", prefix, f.seq)
}

func (f *fixture) exec(t *testing.T, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := f.DB.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) campaign(t *testing.T, name string, rank, target int) domain.Campaign {
	t.Helper()
	c := domain.Campaign{
		ID:                f.id("c"),
		Name:              name,
		Status:            domain.CampaignActive,
		PriorityRank:      rank,
		WeeklyBlockTarget: target,
		CreatedAt:         ts(now.AddDate(0, -2, 0)),
		UpdatedAt:         ts(now.AddDate(0, -2, 0)),
	}
	f.exec(t, func(tx *sql.Tx) error { return f.Repo.InsertCampaign(f.Ctx, tx, c) })
	return c
}

func (f *fixture) mission(t *testing.T, campaignID string) domain.Mission {
	t.Helper()
	m := domain.Mission{
		ID:         f.id("m"),
		CampaignID: campaignID,
		Name:       "mission " + campaignID,
		Status:     domain.MissionInProgress,
		CreatedAt:  ts(now.AddDate(0, -2, 0)),
	}
	f.exec(t, func(tx *sql.Tx) error { return f.Repo.InsertMission(f.Ctx, tx, m) })
	return m
}

func (f *fixture) queuedSortie(t *testing.T, missionID, title string, load domain.CognitiveLoad, blocks, order int) domain.Sortie {
	t.Helper()
	s := domain.Sortie{
		ID:              f.id("s"),
		MissionID:       missionID,
		Title:           title,
		CognitiveLoad:   load,
		EstimatedBlocks: blocks,
		Status:          domain.SortieQueued,
		SortOrder:       order,
		CreatedAt:       ts(now.AddDate(0, -1, 0)),
	}
	f.exec(t, func(tx *sql.Tx) error { return f.Repo.InsertSortie(f.Ctx, tx, s) })
	return s
}

// completedSortie inserts a completed sortie with a matching AAR so that both
// staleness and velocity see the work.
func (f *fixture) completedSortie(t *testing.T, missionID string, completedAt time.Time, blocks int) domain.Sortie {
	t.Helper()
	done := ts(completedAt)
	s := domain.Sortie{
		ID:              f.id("s"),
		MissionID:       missionID,
		Title:           "done work",
		CognitiveLoad:   domain.LoadMedium,
		EstimatedBlocks: blocks,
		Status:          domain.SortieCompleted,
		CreatedAt:       ts(completedAt.Add(-time.Hour)),
		CompletedAt:     &done,
	}
	a := domain.AAR{
		ID:           f.id("a"),
		SortieID:     s.ID,
		EnergyBefore: domain.EnergyGreen,
		EnergyAfter:  domain.EnergyGreen,
		Outcome:      domain.OutcomeCompleted,
		ActualBlocks: blocks,
		CreatedAt:    done,
	}
	f.exec(t, func(tx *sql.Tx) error {
		if err := f.Repo.InsertSortie(f.Ctx, tx, s); err != nil {
			return err
		}
		return f.Repo.InsertAAR(f.Ctx, tx, a)
	})
	return s
}

func (f *fixture) checkin(t *testing.T, date string, energy domain.EnergyLevel) {
	t.Helper()
	f.exec(t, func(tx *sql.Tx) error {
		return f.Repo.UpsertCheckIn(f.Ctx, tx, domain.DailyCheckIn{
			ID:              f.id("ci"),
			Date:            date,
			EnergyLevel:     energy,
			AvailableBlocks: 4,
			CreatedAt:       ts(now),
		})
	})
}

func TestStaleness(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, "Book", 1, 10)
	m := f.mission(t, c.ID)

	days, err := f.Svc.Staleness(f.Ctx, c.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if days != analytics.StalenessNever {
		t.Fatalf("no completed sorties: staleness = %d, want %d", days, analytics.StalenessNever)
	}

	f.completedSortie(t, m.ID, now.Add(-3*24*time.Hour), 1)
	days, err = f.Svc.Staleness(f.Ctx, c.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if days != 3 {
		t.Fatalf("staleness = %d, want 3", days)
	}

	// Partial days floor: 6 days 20 hours reads as 6.
	f2 := newFixture(t)
	c2 := f2.campaign(t, "Book", 1, 10)
	m2 := f2.mission(t, c2.ID)
	f2.completedSortie(t, m2.ID, now.Add(-(6*24+20)*time.Hour), 1)
	days, err = f2.Svc.Staleness(f2.Ctx, c2.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if days != 6 {
		t.Fatalf("staleness = %d, want 6", days)
	}
}

func TestVelocityWindow(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, "Book", 1, 10)
	m := f.mission(t, c.ID)
	f.completedSortie(t, m.ID, now.Add(-6*24*time.Hour), 3)  // inside
	f.completedSortie(t, m.ID, now.Add(-8*24*time.Hour), 5)  // outside
	f.completedSortie(t, m.ID, now.Add(-7*24*time.Hour), 2)  // boundary, inclusive start

	v, err := f.Svc.Velocity(f.Ctx, c.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Fatalf("velocity = %d, want 5", v)
	}
}

func TestHealthClassification(t *testing.T) {
	f := newFixture(t)

	// Zero target is always green, even with no activity.
	zero := f.campaign(t, "Maintenance", 3, 0)
	h, err := f.Svc.Health(f.Ctx, zero, now)
	if err != nil || h != analytics.HealthGreen {
		t.Fatalf("zero target health = %s (%v)", h, err)
	}

	// 8/10 blocks, last completion 2 days ago: green.
	green := f.campaign(t, "Green", 1, 10)
	gm := f.mission(t, green.ID)
	f.completedSortie(t, gm.ID, now.Add(-2*24*time.Hour), 8)
	h, err = f.Svc.Health(f.Ctx, green, now)
	if err != nil || h != analytics.HealthGreen {
		t.Fatalf("health = %s (%v), want green", h, err)
	}

	// 4/10 blocks 5 days ago: adherence 0.4 holds it at yellow.
	yellow := f.campaign(t, "Yellow", 2, 10)
	ym := f.mission(t, yellow.ID)
	f.completedSortie(t, ym.ID, now.Add(-5*24*time.Hour), 4)
	h, err = f.Svc.Health(f.Ctx, yellow, now)
	if err != nil || h != analytics.HealthYellow {
		t.Fatalf("health = %s (%v), want yellow", h, err)
	}

	// No work at all against a real target: red.
	red := f.campaign(t, "Red", 4, 10)
	f.mission(t, red.ID)
	h, err = f.Svc.Health(f.Ctx, red, now)
	if err != nil || h != analytics.HealthRed {
		t.Fatalf("health = %s (%v), want red", h, err)
	}

	// Recent touch rescues low adherence: staleness 2 <= 7 means yellow.
	rescued := f.campaign(t, "Rescued", 5, 10)
	rm := f.mission(t, rescued.ID)
	f.completedSortie(t, rm.ID, now.Add(-2*24*time.Hour), 1)
	h, err = f.Svc.Health(f.Ctx, rescued, now)
	if err != nil || h != analytics.HealthYellow {
		t.Fatalf("health = %s (%v), want yellow", h, err)
	}
}

func TestUrgencyFormula(t *testing.T) {
	f := newFixture(t)
	top := f.campaign(t, "Top", 1, 10)
	low := f.campaign(t, "Low", 2, 10)
	f.mission(t, top.ID)
	f.mission(t, low.ID)

	// No activity: deficit is the full target and staleness is the 999
	// sentinel for both, so only priority weight separates them.
	uTop, err := f.Svc.Urgency(f.Ctx, top, 2, now)
	if err != nil {
		t.Fatal(err)
	}
	uLow, err := f.Svc.Urgency(f.Ctx, low, 2, now)
	if err != nil {
		t.Fatal(err)
	}
	if uTop != 10*1.0+999*0.5 {
		t.Fatalf("top urgency = %v", uTop)
	}
	if uLow != 10*0.5+999*0.5 {
		t.Fatalf("low urgency = %v", uLow)
	}
	if uTop <= uLow {
		t.Fatalf("rank 1 should be more urgent: %v <= %v", uTop, uLow)
	}
}

func TestBriefingGreedyFill(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, "Solo", 1, 10)
	m := f.mission(t, c.ID)
	for i := 0; i < 5; i++ {
		f.queuedSortie(t, m.ID, fmt.Sprintf("task %d", i), domain.LoadMedium, 1, i)
	}

	got, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyGreen, 3, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("briefing size = %d, want 3", len(got))
	}
	for i, s := range got {
		want := fmt.Sprintf("task %d", i)
		if s.Title != want {
			t.Fatalf("briefing[%d] = %s, want %s", i, s.Title, want)
		}
	}
}

func TestBriefingEnergyFilter(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, "Mixed", 1, 10)
	m := f.mission(t, c.ID)
	f.queuedSortie(t, m.ID, "deep work", domain.LoadDeep, 1, 0)
	f.queuedSortie(t, m.ID, "medium work", domain.LoadMedium, 1, 1)
	f.queuedSortie(t, m.ID, "light work", domain.LoadLight, 1, 2)

	got, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyRed, 4, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "light work" {
		t.Fatalf("red energy briefing = %+v", got)
	}

	got, err = f.Svc.GenerateBriefing(f.Ctx, domain.EnergyYellow, 4, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range got {
		if s.CognitiveLoad == domain.LoadDeep {
			t.Fatalf("deep sortie admitted at yellow energy")
		}
	}
}

func TestBriefingDeepOnlyAtRedEnergyIsEmpty(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, "Deep only", 1, 10)
	m := f.mission(t, c.ID)
	f.queuedSortie(t, m.ID, "think hard", domain.LoadDeep, 2, 0)

	got, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyRed, 4, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("briefing = %+v, want empty", got)
	}
}

func TestBriefingCampaignCap(t *testing.T) {
	f := newFixture(t)
	// Rank 1 with nothing done is far more urgent than rank 2.
	a := f.campaign(t, "A", 1, 10)
	b := f.campaign(t, "B", 2, 10)
	am := f.mission(t, a.ID)
	bm := f.mission(t, b.ID)
	for i := 0; i < 5; i++ {
		f.queuedSortie(t, am.ID, fmt.Sprintf("a%d", i), domain.LoadMedium, 1, i)
	}
	for i := 0; i < 5; i++ {
		f.queuedSortie(t, bm.ID, fmt.Sprintf("b%d", i), domain.LoadMedium, 1, i)
	}

	// cap = max(1, floor(5*0.6)) = 3 blocks per campaign.
	got, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyGreen, 5, now)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, s := range got {
		counts[s.CampaignName] += s.EstimatedBlocks
	}
	if counts["A"] != 3 || counts["B"] != 2 {
		t.Fatalf("block split = %v, want A:3 B:2", counts)
	}
}

func TestBriefingSkipsOversizedAndKeepsFilling(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, "Solo", 1, 10)
	m := f.mission(t, c.ID)
	f.queuedSortie(t, m.ID, "big", domain.LoadMedium, 3, 0)
	f.queuedSortie(t, m.ID, "small", domain.LoadMedium, 1, 1)

	got, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyGreen, 2, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "small" {
		t.Fatalf("briefing = %+v, want just small", got)
	}
}

func TestBriefingNoCampaigns(t *testing.T) {
	f := newFixture(t)
	got, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyGreen, 4, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("briefing = %+v", got)
	}
}

func TestDriftReport(t *testing.T) {
	f := newFixture(t)
	a := f.campaign(t, "A", 1, 5)
	b := f.campaign(t, "B", 2, 5)
	am := f.mission(t, a.ID)
	bm := f.mission(t, b.ID)
	f.completedSortie(t, am.ID, now.Add(-2*24*time.Hour), 8)
	f.completedSortie(t, bm.ID, now.Add(-2*24*time.Hour), 2)

	report, err := f.Svc.ComputeDrift(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalBlocksThisWeek != 10 {
		t.Fatalf("total blocks = %d", report.TotalBlocksThisWeek)
	}
	if len(report.Campaigns) != 2 {
		t.Fatalf("campaigns = %d", len(report.Campaigns))
	}
	first := report.Campaigns[0]
	if first.Name != "A" && first.Name != "B" {
		t.Fatalf("unexpected first row %+v", first)
	}
	for _, row := range report.Campaigns {
		if row.ExpectedShare != 0.5 {
			t.Fatalf("expected share = %v", row.ExpectedShare)
		}
		switch row.Name {
		case "A":
			if row.ActualShare != 0.8 || row.Drift != 0.3 || !row.IsMisaligned {
				t.Fatalf("A row = %+v", row)
			}
		case "B":
			if row.ActualShare != 0.2 || row.Drift != -0.3 || !row.IsMisaligned {
				t.Fatalf("B row = %+v", row)
			}
		}
	}
	if len(report.MisalignmentStatements) != 2 {
		t.Fatalf("statements = %v", report.MisalignmentStatements)
	}
	if !strings.Contains(report.MisalignmentStatements[0], "allocated") {
		t.Fatalf("statement = %q", report.MisalignmentStatements[0])
	}
}

func TestDriftBalancedIsAligned(t *testing.T) {
	f := newFixture(t)
	a := f.campaign(t, "A", 1, 5)
	b := f.campaign(t, "B", 2, 5)
	am := f.mission(t, a.ID)
	bm := f.mission(t, b.ID)
	f.completedSortie(t, am.ID, now.Add(-24*time.Hour), 5)
	f.completedSortie(t, bm.ID, now.Add(-24*time.Hour), 5)

	report, err := f.Svc.ComputeDrift(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range report.Campaigns {
		if row.IsMisaligned {
			t.Fatalf("row misaligned: %+v", row)
		}
	}
	if len(report.MisalignmentStatements) != 0 {
		t.Fatalf("statements = %v", report.MisalignmentStatements)
	}
}

func TestDriftTrend(t *testing.T) {
	f := newFixture(t)
	a := f.campaign(t, "A", 1, 5)
	b := f.campaign(t, "B", 2, 5)
	am := f.mission(t, a.ID)
	bm := f.mission(t, b.ID)

	// Past three weeks: A hogged everything (drift +0.5 each week).
	for weeksAgo := 1; weeksAgo <= 3; weeksAgo++ {
		at := now.Add(-time.Duration(weeksAgo)*7*24*time.Hour - 24*time.Hour)
		f.completedSortie(t, am.ID, at, 4)
	}
	// This week: balanced (drift 0).
	f.completedSortie(t, am.ID, now.Add(-24*time.Hour), 3)
	f.completedSortie(t, bm.ID, now.Add(-24*time.Hour), 3)

	report, err := f.Svc.ComputeDrift(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range report.Campaigns {
		if row.Name == "A" && row.Trend != analytics.TrendImproving {
			t.Fatalf("A trend = %s, want improving", row.Trend)
		}
	}
}

func TestWeeklyReviewEmpty(t *testing.T) {
	f := newFixture(t)
	rv, err := f.Svc.GenerateWeeklyReview(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	md := analytics.WeeklyReviewMarkdown(rv)
	for _, want := range []string{
		"- No active campaigns",
		"- No mission status changes this week",
		"- No drift data available",
		"- All campaigns active this week",
		"- No check-ins recorded this week",
		"- No upcoming deadlines or blocked work",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if rv.EnergyPatterns.AverageLabel != "none" {
		t.Fatalf("average label = %q", rv.EnergyPatterns.AverageLabel)
	}
}

func TestWeeklyReviewSections(t *testing.T) {
	f := newFixture(t)
	a := f.campaign(t, "Book", 1, 10)
	am := f.mission(t, a.ID)
	f.completedSortie(t, am.ID, now.Add(-2*24*time.Hour), 6)
	f.checkin(t, now.Add(-2*24*time.Hour).Format("2006-01-02"), domain.EnergyGreen)
	f.checkin(t, now.Add(-24*time.Hour).Format("2006-01-02"), domain.EnergyYellow)

	rv, err := f.Svc.GenerateWeeklyReview(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rv.Scoreboard) != 1 {
		t.Fatalf("scoreboard = %+v", rv.Scoreboard)
	}
	row := rv.Scoreboard[0]
	if row.BlocksCompleted != 6 || row.WeeklyTarget != 10 || row.CompletionPct != 60 {
		t.Fatalf("scoreboard row = %+v", row)
	}
	if rv.EnergyPatterns.CheckIns != 2 {
		t.Fatalf("checkins = %d", rv.EnergyPatterns.CheckIns)
	}
	// green(3) + yellow(2) averages 2.5; rounding half away from zero
	// labels the week green.
	if rv.EnergyPatterns.Average != 2.5 || rv.EnergyPatterns.AverageLabel != "green" {
		t.Fatalf("energy = %+v", rv.EnergyPatterns)
	}
	if len(rv.CurrentRankings) != 1 || rv.CurrentRankings[0].Rank != 1 {
		t.Fatalf("rankings = %+v", rv.CurrentRankings)
	}
	md := analytics.WeeklyReviewMarkdown(rv)
	if !strings.Contains(md, "## Scoreboard") || !strings.Contains(md, "**Book**: 6/10 blocks") {
		t.Fatalf("markdown:\n%s", md)
	}
}

func TestWeeklyReviewStalenessAlertThreshold(t *testing.T) {
	f := newFixture(t)
	fresh := f.campaign(t, "Fresh", 1, 5)
	stale := f.campaign(t, "Stale", 2, 5)
	fm := f.mission(t, fresh.ID)
	sm := f.mission(t, stale.ID)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	f.completedSortie(t, fm.ID, day.Add(-5*24*time.Hour), 1) // exactly 5 days: no alert
	f.completedSortie(t, sm.ID, day.Add(-6*24*time.Hour), 1) // 6 days: alert

	rv, err := f.Svc.GenerateWeeklyReview(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rv.StalenessAlerts) != 1 || rv.StalenessAlerts[0].Name != "Stale" {
		t.Fatalf("alerts = %+v", rv.StalenessAlerts)
	}
	if rv.StalenessAlerts[0].Days != 6 {
		t.Fatalf("alert days = %d", rv.StalenessAlerts[0].Days)
	}
}

func TestWeeklyReviewNextWeekPreview(t *testing.T) {
	f := newFixture(t)
	soon := now.AddDate(0, 0, 3).Format("2006-01-02")
	far := now.AddDate(0, 0, 20).Format("2006-01-02")

	c := f.campaign(t, "Launch", 1, 5)
	f.exec(t, func(tx *sql.Tx) error {
		c.TargetDate = &soon
		c.UpdatedAt = ts(now)
		return f.Repo.UpdateCampaign(f.Ctx, tx, c)
	})
	m := f.mission(t, c.ID)
	f.exec(t, func(tx *sql.Tx) error {
		m.TargetDate = &far
		return f.Repo.UpdateMission(f.Ctx, tx, m)
	})

	blocked := f.mission(t, c.ID)
	f.exec(t, func(tx *sql.Tx) error {
		blocked.Status = domain.MissionBlocked
		return f.Repo.UpdateMission(f.Ctx, tx, blocked)
	})
	f.queuedSortie(t, blocked.ID, "waiting on vendor", domain.LoadLight, 1, 0)

	rv, err := f.Svc.GenerateWeeklyReview(f.Ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rv.NextWeekPreview.UpcomingTargets) != 1 {
		t.Fatalf("upcoming = %+v", rv.NextWeekPreview.UpcomingTargets)
	}
	if rv.NextWeekPreview.UpcomingTargets[0].Name != "Launch" {
		t.Fatalf("upcoming = %+v", rv.NextWeekPreview.UpcomingTargets[0])
	}
	if len(rv.NextWeekPreview.BlockedSorties) != 1 || rv.NextWeekPreview.BlockedSorties[0].Title != "waiting on vendor" {
		t.Fatalf("blocked = %+v", rv.NextWeekPreview.BlockedSorties)
	}
}

func TestBriefingDeterministic(t *testing.T) {
	f := newFixture(t)
	a := f.campaign(t, "A", 1, 5)
	b := f.campaign(t, "B", 2, 5)
	am := f.mission(t, a.ID)
	bm := f.mission(t, b.ID)
	for i := 0; i < 3; i++ {
		f.queuedSortie(t, am.ID, fmt.Sprintf("a%d", i), domain.LoadMedium, 1, i)
		f.queuedSortie(t, bm.ID, fmt.Sprintf("b%d", i), domain.LoadMedium, 1, i)
	}
	first, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyGreen, 4, now)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := f.Svc.GenerateBriefing(f.Ctx, domain.EnergyGreen, 4, now)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: size %d != %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].ID != first[j].ID {
				t.Fatalf("run %d: order differs at %d", i, j)
			}
		}
	}
}
