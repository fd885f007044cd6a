package engine_test

import (
	"context"
	"testing"
	"time"

	"senryaku/internal/config"
	"senryaku/internal/db"
	"senryaku/internal/domain"
	"senryaku/internal/engine"
	"senryaku/internal/migrate"
	"senryaku/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	env := &testEnv{Ctx: context.Background(), now: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}
	eng.Now = func() time.Time { return env.now }
	env.Engine = eng
	return env
}

func (env *testEnv) campaign(t *testing.T, name string, rank, target int) domain.Campaign {
	t.Helper()
	c, err := env.Engine.CreateCampaign(env.Ctx, engine.CampaignCreateOptions{
		Name:              name,
		PriorityRank:      rank,
		WeeklyBlockTarget: target,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func (env *testEnv) mission(t *testing.T, campaignID, name string) domain.Mission {
	t.Helper()
	m, err := env.Engine.CreateMission(env.Ctx, engine.MissionCreateOptions{
		CampaignID: campaignID,
		Name:       name,
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func (env *testEnv) sortie(t *testing.T, missionID, title string, load domain.CognitiveLoad, blocks int) domain.Sortie {
	t.Helper()
	s, err := env.Engine.CreateSortie(env.Ctx, engine.SortieCreateOptions{
		MissionID:       missionID,
		Title:           title,
		CognitiveLoad:   load,
		EstimatedBlocks: blocks,
	})
	if err != nil {
		t.Fatalf("create sortie: %v", err)
	}
	return s
}

func TestSortieLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := env.campaign(t, "Book", 1, 10)
	m := env.mission(t, c.ID, "Draft chapter 1")
	s := env.sortie(t, m.ID, "Outline", domain.LoadDeep, 2)

	if s.Status != domain.SortieQueued {
		t.Fatalf("new sortie status = %s, want queued", s.Status)
	}
	s, err := env.Engine.StartSortie(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Status != domain.SortieActive || s.StartedAt == nil {
		t.Fatalf("started sortie = %+v", s)
	}
	if _, err := env.Engine.StartSortie(env.Ctx, s.ID); err == nil {
		t.Fatalf("expected error starting active sortie")
	}

	s, aar, err := env.Engine.CompleteSortie(env.Ctx, engine.SortieCompleteOptions{
		SortieID:     s.ID,
		EnergyBefore: domain.EnergyGreen,
		EnergyAfter:  domain.EnergyYellow,
		Outcome:      domain.OutcomeCompleted,
		ActualBlocks: 2,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s.Status != domain.SortieCompleted || s.CompletedAt == nil {
		t.Fatalf("completed sortie = %+v", s)
	}
	if aar.SortieID != s.ID || aar.ActualBlocks != 2 {
		t.Fatalf("aar = %+v", aar)
	}
	aars, err := env.Engine.Repo.ListAARs(env.Ctx, repo.AARFilters{SortieID: s.ID})
	if err != nil || len(aars) != 1 {
		t.Fatalf("list aars: %v (%d)", err, len(aars))
	}
}

func TestCompleteSortieNonCompletedOutcomeKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	c := env.campaign(t, "Book", 1, 10)
	m := env.mission(t, c.ID, "Draft")
	s := env.sortie(t, m.ID, "Write intro", domain.LoadMedium, 1)
	s, err := env.Engine.StartSortie(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	s, _, err = env.Engine.CompleteSortie(env.Ctx, engine.SortieCompleteOptions{
		SortieID:     s.ID,
		EnergyBefore: domain.EnergyYellow,
		EnergyAfter:  domain.EnergyRed,
		Outcome:      domain.OutcomePartial,
		ActualBlocks: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Partial outcome records the session without closing the sortie.
	if s.Status != domain.SortieActive {
		t.Fatalf("status = %s, want active", s.Status)
	}
	if s.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}
}

func TestMissionCompletionStampsTimestamp(t *testing.T) {
	env := newTestEnv(t)
	c := env.campaign(t, "Fitness", 1, 5)
	m := env.mission(t, c.ID, "Base plan")

	completed := domain.MissionCompleted
	m, err := env.Engine.UpdateMission(env.Ctx, engine.MissionUpdateOptions{ID: m.ID, Status: &completed})
	if err != nil {
		t.Fatal(err)
	}
	if m.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}
	inProgress := domain.MissionInProgress
	m, err = env.Engine.UpdateMission(env.Ctx, engine.MissionUpdateOptions{ID: m.ID, Status: &inProgress})
	if err != nil {
		t.Fatal(err)
	}
	if m.CompletedAt != nil {
		t.Fatalf("completed_at should clear when leaving completed")
	}
}

func TestRerankCampaignsAtomic(t *testing.T) {
	env := newTestEnv(t)
	a := env.campaign(t, "A", 1, 5)
	b := env.campaign(t, "B", 2, 5)

	items, err := env.Engine.RerankCampaigns(env.Ctx, []engine.RankUpdate{
		{ID: a.ID, Rank: 2},
		{ID: b.ID, Rank: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if items[0].ID != b.ID || items[0].PriorityRank != 1 {
		t.Fatalf("first after rerank = %+v", items[0])
	}

	// Unknown campaign aborts the whole batch.
	if _, err := env.Engine.RerankCampaigns(env.Ctx, []engine.RankUpdate{
		{ID: a.ID, Rank: 1},
		{ID: "missing", Rank: 2},
	}); err == nil {
		t.Fatalf("expected error for unknown campaign")
	}
	got, err := env.Engine.Repo.GetCampaign(env.Ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PriorityRank != 2 {
		t.Fatalf("rank changed by failed batch: %d", got.PriorityRank)
	}
}

func TestCheckInUpsertByDate(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.CheckIn(env.Ctx, engine.CheckInOptions{
		Date:            "2024-06-10",
		EnergyLevel:     domain.EnergyGreen,
		AvailableBlocks: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.CheckIn(env.Ctx, engine.CheckInOptions{
		Date:            "2024-06-10",
		EnergyLevel:     domain.EnergyRed,
		AvailableBlocks: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.EnergyLevel != domain.EnergyRed || second.AvailableBlocks != 2 {
		t.Fatalf("upserted checkin = %+v", second)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row")
	}
	all, err := env.Engine.Repo.ListCheckIns(env.Ctx, "2024-06-01", "2024-06-30")
	if err != nil || len(all) != 1 {
		t.Fatalf("list checkins: %v (%d)", err, len(all))
	}
}

func TestArchiveCampaignIsSoftDelete(t *testing.T) {
	env := newTestEnv(t)
	c := env.campaign(t, "Old push", 1, 5)
	c, err := env.Engine.ArchiveCampaign(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != domain.CampaignArchived {
		t.Fatalf("status = %s", c.Status)
	}
	active, err := env.Engine.Repo.ListCampaigns(env.Ctx, domain.CampaignActive)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatalf("archived campaign still listed as active")
	}
	all, err := env.Engine.Repo.ListCampaigns(env.Ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("campaign row deleted: %v (%d)", err, len(all))
	}
}

func TestMoveSortie(t *testing.T) {
	env := newTestEnv(t)
	c := env.campaign(t, "Research", 1, 5)
	m1 := env.mission(t, c.ID, "Phase 1")
	m2 := env.mission(t, c.ID, "Phase 2")
	s := env.sortie(t, m1.ID, "Read papers", domain.LoadLight, 1)

	s, err := env.Engine.MoveSortie(env.Ctx, s.ID, m2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.MissionID != m2.ID {
		t.Fatalf("mission_id = %s", s.MissionID)
	}
	if _, err := env.Engine.MoveSortie(env.Ctx, s.ID, "missing"); err == nil {
		t.Fatalf("expected error moving to unknown mission")
	}
}

func TestEventsRecorded(t *testing.T) {
	env := newTestEnv(t)
	c := env.campaign(t, "Book", 1, 10)
	m := env.mission(t, c.ID, "Draft")
	s := env.sortie(t, m.ID, "Outline", domain.LoadDeep, 1)
	if _, err := env.Engine.StartSortie(env.Ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	types := map[string]bool{}
	for _, evt := range events {
		types[evt.Type] = true
	}
	for _, want := range []string{"campaign.created", "mission.created", "sortie.created", "sortie.started"} {
		if !types[want] {
			t.Fatalf("missing event %s in %v", want, types)
		}
	}
}
