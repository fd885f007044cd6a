package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"senryaku/internal/config"
	"senryaku/internal/domain"
	"senryaku/internal/events"
	"senryaku/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CampaignCreateOptions are parameters for creating a campaign.
type CampaignCreateOptions struct {
	ID                string
	Name              string
	Description       string
	PriorityRank      int
	WeeklyBlockTarget int
	Colour            string
	Tags              string
	TargetDate        string
}

func (e Engine) CreateCampaign(ctx context.Context, opts CampaignCreateOptions) (domain.Campaign, error) {
	if opts.Name == "" {
		return domain.Campaign{}, errors.New("name is required")
	}
	if opts.PriorityRank < 1 {
		return domain.Campaign{}, errors.New("priority_rank must be >= 1")
	}
	if opts.WeeklyBlockTarget < 0 {
		return domain.Campaign{}, errors.New("weekly_block_target must be >= 0")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Campaign{
		ID:                id,
		Name:              opts.Name,
		Description:       opts.Description,
		Status:            domain.CampaignActive,
		PriorityRank:      opts.PriorityRank,
		WeeklyBlockTarget: opts.WeeklyBlockTarget,
		Colour:            opts.Colour,
		Tags:              opts.Tags,
		TargetDate:        optionalString(opts.TargetDate),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCampaign(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "campaign.created", "campaign", c.ID, events.EventPayload{"name": c.Name, "rank": c.PriorityRank}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// CampaignUpdateOptions encapsulates allowed updates; nil fields are untouched.
type CampaignUpdateOptions struct {
	ID                string
	Name              *string
	Description       *string
	Status            *domain.CampaignStatus
	PriorityRank      *int
	WeeklyBlockTarget *int
	Colour            *string
	Tags              *string
	TargetDate        *string
}

func (e Engine) UpdateCampaign(ctx context.Context, opts CampaignUpdateOptions) (domain.Campaign, error) {
	c, err := e.Repo.GetCampaign(ctx, opts.ID)
	if err != nil {
		return c, err
	}
	if opts.Name != nil {
		c.Name = *opts.Name
	}
	if opts.Description != nil {
		c.Description = *opts.Description
	}
	if opts.Status != nil {
		if !opts.Status.Valid() {
			return c, fmt.Errorf("invalid campaign status %q", *opts.Status)
		}
		c.Status = *opts.Status
	}
	if opts.PriorityRank != nil {
		if *opts.PriorityRank < 1 {
			return c, errors.New("priority_rank must be >= 1")
		}
		c.PriorityRank = *opts.PriorityRank
	}
	if opts.WeeklyBlockTarget != nil {
		if *opts.WeeklyBlockTarget < 0 {
			return c, errors.New("weekly_block_target must be >= 0")
		}
		c.WeeklyBlockTarget = *opts.WeeklyBlockTarget
	}
	if opts.Colour != nil {
		c.Colour = *opts.Colour
	}
	if opts.Tags != nil {
		c.Tags = *opts.Tags
	}
	if opts.TargetDate != nil {
		c.TargetDate = optionalString(*opts.TargetDate)
	}
	c.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCampaign(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "campaign.updated", "campaign", c.ID, events.EventPayload{"status": c.Status}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// ArchiveCampaign soft-deletes a campaign by setting status to archived.
func (e Engine) ArchiveCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	archived := domain.CampaignArchived
	return e.UpdateCampaign(ctx, CampaignUpdateOptions{ID: id, Status: &archived})
}

type RankUpdate struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}

// RerankCampaigns applies a bulk priority reorder atomically; any missing
// campaign aborts the whole batch.
func (e Engine) RerankCampaigns(ctx context.Context, ranks []RankUpdate) ([]domain.Campaign, error) {
	if len(ranks) == 0 {
		return nil, errors.New("ranks required")
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	for _, ru := range ranks {
		if ru.Rank < 1 {
			return nil, fmt.Errorf("rank for campaign %s must be >= 1", ru.ID)
		}
		if err := e.Repo.SetCampaignRank(ctx, tx, ru.ID, ru.Rank, now); err != nil {
			return nil, err
		}
	}
	if err := e.Events.Append(ctx, tx, "campaign.reranked", "campaign", "", events.EventPayload{"count": len(ranks)}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.Repo.ListCampaigns(ctx, "")
}

// MissionCreateOptions are parameters for creating a mission.
type MissionCreateOptions struct {
	ID          string
	CampaignID  string
	Name        string
	Description string
	SortOrder   int
	TargetDate  string
}

func (e Engine) CreateMission(ctx context.Context, opts MissionCreateOptions) (domain.Mission, error) {
	if opts.Name == "" {
		return domain.Mission{}, errors.New("name is required")
	}
	if opts.CampaignID == "" {
		return domain.Mission{}, errors.New("campaign_id is required")
	}
	if _, err := e.Repo.GetCampaign(ctx, opts.CampaignID); err != nil {
		return domain.Mission{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	m := domain.Mission{
		ID:          id,
		CampaignID:  opts.CampaignID,
		Name:        opts.Name,
		Description: opts.Description,
		Status:      domain.MissionNotStarted,
		TargetDate:  optionalString(opts.TargetDate),
		SortOrder:   opts.SortOrder,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertMission(ctx, tx, m); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "mission.created", "mission", m.ID, events.EventPayload{"name": m.Name, "campaign_id": m.CampaignID}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	return m, nil
}

// MissionUpdateOptions encapsulates allowed updates; nil fields are untouched.
type MissionUpdateOptions struct {
	ID          string
	Name        *string
	Description *string
	Status      *domain.MissionStatus
	TargetDate  *string
	SortOrder   *int
}

// UpdateMission applies field updates. Transitioning into completed stamps
// completed_at; leaving completed clears it.
func (e Engine) UpdateMission(ctx context.Context, opts MissionUpdateOptions) (domain.Mission, error) {
	m, err := e.Repo.GetMission(ctx, opts.ID)
	if err != nil {
		return m, err
	}
	oldStatus := m.Status
	if opts.Name != nil {
		m.Name = *opts.Name
	}
	if opts.Description != nil {
		m.Description = *opts.Description
	}
	if opts.Status != nil {
		if !opts.Status.Valid() {
			return m, fmt.Errorf("invalid mission status %q", *opts.Status)
		}
		m.Status = *opts.Status
		if m.Status == domain.MissionCompleted && oldStatus != domain.MissionCompleted {
			now := e.now().UTC().Format(time.RFC3339)
			m.CompletedAt = &now
		}
		if m.Status != domain.MissionCompleted {
			m.CompletedAt = nil
		}
	}
	if opts.TargetDate != nil {
		m.TargetDate = optionalString(*opts.TargetDate)
	}
	if opts.SortOrder != nil {
		m.SortOrder = *opts.SortOrder
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateMission(ctx, tx, m); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "mission.updated", "mission", m.ID, events.EventPayload{
		"from_status": oldStatus,
		"to_status":   m.Status,
	}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	return m, nil
}

// SortieCreateOptions are parameters for creating a sortie.
type SortieCreateOptions struct {
	ID              string
	MissionID       string
	Title           string
	Description     string
	CognitiveLoad   domain.CognitiveLoad
	EstimatedBlocks int
	SortOrder       int
}

func (e Engine) CreateSortie(ctx context.Context, opts SortieCreateOptions) (domain.Sortie, error) {
	if opts.Title == "" {
		return domain.Sortie{}, errors.New("title is required")
	}
	if opts.MissionID == "" {
		return domain.Sortie{}, errors.New("mission_id is required")
	}
	if !opts.CognitiveLoad.Valid() {
		return domain.Sortie{}, fmt.Errorf("invalid cognitive_load %q", opts.CognitiveLoad)
	}
	if opts.EstimatedBlocks < 1 {
		return domain.Sortie{}, errors.New("estimated_blocks must be >= 1")
	}
	if _, err := e.Repo.GetMission(ctx, opts.MissionID); err != nil {
		return domain.Sortie{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	s := domain.Sortie{
		ID:              id,
		MissionID:       opts.MissionID,
		Title:           opts.Title,
		Description:     opts.Description,
		CognitiveLoad:   opts.CognitiveLoad,
		EstimatedBlocks: opts.EstimatedBlocks,
		Status:          domain.SortieQueued,
		SortOrder:       opts.SortOrder,
		CreatedAt:       e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSortie(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "sortie.created", "sortie", s.ID, events.EventPayload{"title": s.Title, "mission_id": s.MissionID}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// SortieUpdateOptions encapsulates allowed updates; nil fields are untouched.
type SortieUpdateOptions struct {
	ID              string
	Title           *string
	Description     *string
	CognitiveLoad   *domain.CognitiveLoad
	EstimatedBlocks *int
	SortOrder       *int
}

func (e Engine) UpdateSortie(ctx context.Context, opts SortieUpdateOptions) (domain.Sortie, error) {
	s, err := e.Repo.GetSortie(ctx, opts.ID)
	if err != nil {
		return s, err
	}
	if opts.Title != nil {
		s.Title = *opts.Title
	}
	if opts.Description != nil {
		s.Description = *opts.Description
	}
	if opts.CognitiveLoad != nil {
		if !opts.CognitiveLoad.Valid() {
			return s, fmt.Errorf("invalid cognitive_load %q", *opts.CognitiveLoad)
		}
		s.CognitiveLoad = *opts.CognitiveLoad
	}
	if opts.EstimatedBlocks != nil {
		if *opts.EstimatedBlocks < 1 {
			return s, errors.New("estimated_blocks must be >= 1")
		}
		s.EstimatedBlocks = *opts.EstimatedBlocks
	}
	if opts.SortOrder != nil {
		s.SortOrder = *opts.SortOrder
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSortie(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "sortie.updated", "sortie", s.ID, events.EventPayload{}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// StartSortie moves a queued sortie to active and stamps started_at.
func (e Engine) StartSortie(ctx context.Context, id string) (domain.Sortie, error) {
	s, err := e.Repo.GetSortie(ctx, id)
	if err != nil {
		return s, err
	}
	if s.Status != domain.SortieQueued {
		return s, fmt.Errorf("cannot start sortie with status %q", s.Status)
	}
	now := e.now().UTC().Format(time.RFC3339)
	s.Status = domain.SortieActive
	s.StartedAt = &now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSortie(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "sortie.started", "sortie", s.ID, events.EventPayload{}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// SortieCompleteOptions carries the AAR logged when a sortie is closed out.
type SortieCompleteOptions struct {
	SortieID     string
	EnergyBefore domain.EnergyLevel
	EnergyAfter  domain.EnergyLevel
	Outcome      domain.AAROutcome
	ActualBlocks int
	Notes        string
}

// CompleteSortie records an AAR and closes out the sortie. The sortie only
// moves to completed for a completed outcome; completed_at is stamped
// regardless, matching the write path the analytics core assumes.
func (e Engine) CompleteSortie(ctx context.Context, opts SortieCompleteOptions) (domain.Sortie, domain.AAR, error) {
	var a domain.AAR
	s, err := e.Repo.GetSortie(ctx, opts.SortieID)
	if err != nil {
		return s, a, err
	}
	if !opts.EnergyBefore.Valid() || !opts.EnergyAfter.Valid() {
		return s, a, errors.New("energy_before and energy_after are required")
	}
	if !opts.Outcome.Valid() {
		return s, a, fmt.Errorf("invalid outcome %q", opts.Outcome)
	}
	if opts.ActualBlocks < 0 {
		return s, a, errors.New("actual_blocks must be >= 0")
	}
	now := e.now().UTC().Format(time.RFC3339)
	a = domain.AAR{
		ID:           uuid.New().String(),
		SortieID:     s.ID,
		EnergyBefore: opts.EnergyBefore,
		EnergyAfter:  opts.EnergyAfter,
		Outcome:      opts.Outcome,
		ActualBlocks: opts.ActualBlocks,
		Notes:        opts.Notes,
		CreatedAt:    now,
	}
	if opts.Outcome == domain.OutcomeCompleted {
		s.Status = domain.SortieCompleted
	}
	s.CompletedAt = &now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, a, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAAR(ctx, tx, a); err != nil {
		return s, a, err
	}
	if err := e.Repo.UpdateSortie(ctx, tx, s); err != nil {
		return s, a, err
	}
	if err := e.Events.Append(ctx, tx, "sortie.completed", "sortie", s.ID, events.EventPayload{
		"outcome":       a.Outcome,
		"actual_blocks": a.ActualBlocks,
	}); err != nil {
		return s, a, err
	}
	if err := tx.Commit(); err != nil {
		return s, a, err
	}
	return s, a, nil
}

// AbandonSortie soft-deletes a sortie by setting status to abandoned.
func (e Engine) AbandonSortie(ctx context.Context, id string) (domain.Sortie, error) {
	s, err := e.Repo.GetSortie(ctx, id)
	if err != nil {
		return s, err
	}
	s.Status = domain.SortieAbandoned
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSortie(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "sortie.abandoned", "sortie", s.ID, events.EventPayload{}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// MoveSortie reassigns a sortie to another mission.
func (e Engine) MoveSortie(ctx context.Context, id, newMissionID string) (domain.Sortie, error) {
	s, err := e.Repo.GetSortie(ctx, id)
	if err != nil {
		return s, err
	}
	if _, err := e.Repo.GetMission(ctx, newMissionID); err != nil {
		return s, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE sorties SET mission_id=? WHERE id=?`, newMissionID, s.ID); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "sortie.moved", "sortie", s.ID, events.EventPayload{"mission_id": newMissionID}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	s.MissionID = newMissionID
	return s, nil
}

// CheckInOptions are parameters for the daily check-in upsert.
type CheckInOptions struct {
	Date            string
	EnergyLevel     domain.EnergyLevel
	AvailableBlocks int
	FocusNote       string
}

// CheckIn upserts the check-in for a date (defaults to today).
func (e Engine) CheckIn(ctx context.Context, opts CheckInOptions) (domain.DailyCheckIn, error) {
	if !opts.EnergyLevel.Valid() {
		return domain.DailyCheckIn{}, fmt.Errorf("invalid energy_level %q", opts.EnergyLevel)
	}
	if opts.AvailableBlocks < 0 {
		return domain.DailyCheckIn{}, errors.New("available_blocks must be >= 0")
	}
	date := opts.Date
	if date == "" {
		date = e.now().UTC().Format("2006-01-02")
	}
	c := domain.DailyCheckIn{
		ID:              uuid.New().String(),
		Date:            date,
		EnergyLevel:     opts.EnergyLevel,
		AvailableBlocks: opts.AvailableBlocks,
		FocusNote:       opts.FocusNote,
		CreatedAt:       e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertCheckIn(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "checkin.recorded", "checkin", c.Date, events.EventPayload{
		"energy":           c.EnergyLevel,
		"available_blocks": c.AvailableBlocks,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return e.Repo.GetCheckIn(ctx, date)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
