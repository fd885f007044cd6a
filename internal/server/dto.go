package server

import (
	"senryaku/internal/domain"
)

type CreateCampaignRequest struct {
	Name              string `json:"name" minLength:"1"`
	Description       string `json:"description,omitempty"`
	PriorityRank      int    `json:"priority_rank" minimum:"1"`
	WeeklyBlockTarget int    `json:"weekly_block_target" minimum:"0"`
	Colour            string `json:"colour,omitempty"`
	Tags              string `json:"tags,omitempty"`
	TargetDate        string `json:"target_date,omitempty" format:"date"`
}

type UpdateCampaignRequest struct {
	Name              *string                `json:"name,omitempty"`
	Description       *string                `json:"description,omitempty"`
	Status            *domain.CampaignStatus `json:"status,omitempty"`
	PriorityRank      *int                   `json:"priority_rank,omitempty"`
	WeeklyBlockTarget *int                   `json:"weekly_block_target,omitempty"`
	Colour            *string                `json:"colour,omitempty"`
	Tags              *string                `json:"tags,omitempty"`
	TargetDate        *string                `json:"target_date,omitempty"`
}

type CampaignResponse struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Description       string                `json:"description,omitempty"`
	Status            domain.CampaignStatus `json:"status"`
	PriorityRank      int                   `json:"priority_rank"`
	WeeklyBlockTarget int                   `json:"weekly_block_target"`
	Colour            string                `json:"colour,omitempty"`
	Tags              string                `json:"tags,omitempty"`
	TargetDate        *string               `json:"target_date,omitempty"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at"`
}

func campaignResponse(c domain.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:                c.ID,
		Name:              c.Name,
		Description:       c.Description,
		Status:            c.Status,
		PriorityRank:      c.PriorityRank,
		WeeklyBlockTarget: c.WeeklyBlockTarget,
		Colour:            c.Colour,
		Tags:              c.Tags,
		TargetDate:        c.TargetDate,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func mapCampaigns(items []domain.Campaign) []CampaignResponse {
	res := make([]CampaignResponse, 0, len(items))
	for _, c := range items {
		res = append(res, campaignResponse(c))
	}
	return res
}

type CreateMissionRequest struct {
	CampaignID  string `json:"campaign_id" minLength:"1"`
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
	TargetDate  string `json:"target_date,omitempty" format:"date"`
}

type UpdateMissionRequest struct {
	Name        *string               `json:"name,omitempty"`
	Description *string               `json:"description,omitempty"`
	Status      *domain.MissionStatus `json:"status,omitempty"`
	TargetDate  *string               `json:"target_date,omitempty"`
	SortOrder   *int                  `json:"sort_order,omitempty"`
}

type MissionResponse struct {
	ID          string               `json:"id"`
	CampaignID  string               `json:"campaign_id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Status      domain.MissionStatus `json:"status"`
	TargetDate  *string              `json:"target_date,omitempty"`
	SortOrder   int                  `json:"sort_order"`
	CreatedAt   string               `json:"created_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
}

func missionResponse(m domain.Mission) MissionResponse {
	return MissionResponse{
		ID:          m.ID,
		CampaignID:  m.CampaignID,
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		TargetDate:  m.TargetDate,
		SortOrder:   m.SortOrder,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}

func mapMissions(items []domain.Mission) []MissionResponse {
	res := make([]MissionResponse, 0, len(items))
	for _, m := range items {
		res = append(res, missionResponse(m))
	}
	return res
}

type CreateSortieRequest struct {
	MissionID       string               `json:"mission_id" minLength:"1"`
	Title           string               `json:"title" minLength:"1"`
	Description     string               `json:"description,omitempty"`
	CognitiveLoad   domain.CognitiveLoad `json:"cognitive_load" enum:"deep,medium,light"`
	EstimatedBlocks int                  `json:"estimated_blocks" minimum:"1"`
	SortOrder       int                  `json:"sort_order,omitempty"`
}

type UpdateSortieRequest struct {
	Title           *string               `json:"title,omitempty"`
	Description     *string               `json:"description,omitempty"`
	CognitiveLoad   *domain.CognitiveLoad `json:"cognitive_load,omitempty"`
	EstimatedBlocks *int                  `json:"estimated_blocks,omitempty"`
	SortOrder       *int                  `json:"sort_order,omitempty"`
}

type SortieResponse struct {
	ID              string               `json:"id"`
	MissionID       string               `json:"mission_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	CognitiveLoad   domain.CognitiveLoad `json:"cognitive_load"`
	EstimatedBlocks int                  `json:"estimated_blocks"`
	Status          domain.SortieStatus  `json:"status"`
	SortOrder       int                  `json:"sort_order"`
	CreatedAt       string               `json:"created_at"`
	StartedAt       *string              `json:"started_at,omitempty"`
	CompletedAt     *string              `json:"completed_at,omitempty"`
}

func sortieResponse(s domain.Sortie) SortieResponse {
	return SortieResponse{
		ID:              s.ID,
		MissionID:       s.MissionID,
		Title:           s.Title,
		Description:     s.Description,
		CognitiveLoad:   s.CognitiveLoad,
		EstimatedBlocks: s.EstimatedBlocks,
		Status:          s.Status,
		SortOrder:       s.SortOrder,
		CreatedAt:       s.CreatedAt,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}
}

func mapSorties(items []domain.Sortie) []SortieResponse {
	res := make([]SortieResponse, 0, len(items))
	for _, s := range items {
		res = append(res, sortieResponse(s))
	}
	return res
}

type CompleteSortieRequest struct {
	EnergyBefore domain.EnergyLevel `json:"energy_before" enum:"green,yellow,red"`
	EnergyAfter  domain.EnergyLevel `json:"energy_after" enum:"green,yellow,red"`
	Outcome      domain.AAROutcome  `json:"outcome" enum:"completed,partial,blocked,pivoted"`
	ActualBlocks int                `json:"actual_blocks" minimum:"0"`
	Notes        string             `json:"notes,omitempty"`
}

type AARResponse struct {
	ID           string             `json:"id"`
	SortieID     string             `json:"sortie_id"`
	EnergyBefore domain.EnergyLevel `json:"energy_before"`
	EnergyAfter  domain.EnergyLevel `json:"energy_after"`
	Outcome      domain.AAROutcome  `json:"outcome"`
	ActualBlocks int                `json:"actual_blocks"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    string             `json:"created_at"`
}

func aarResponse(a domain.AAR) AARResponse {
	return AARResponse{
		ID:           a.ID,
		SortieID:     a.SortieID,
		EnergyBefore: a.EnergyBefore,
		EnergyAfter:  a.EnergyAfter,
		Outcome:      a.Outcome,
		ActualBlocks: a.ActualBlocks,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
	}
}

func mapAARs(items []domain.AAR) []AARResponse {
	res := make([]AARResponse, 0, len(items))
	for _, a := range items {
		res = append(res, aarResponse(a))
	}
	return res
}

type CheckInRequest struct {
	Date            string             `json:"date,omitempty" format:"date"`
	EnergyLevel     domain.EnergyLevel `json:"energy_level" enum:"green,yellow,red"`
	AvailableBlocks int                `json:"available_blocks" minimum:"0"`
	FocusNote       string             `json:"focus_note,omitempty"`
}

type CheckInResponse struct {
	ID              string             `json:"id"`
	Date            string             `json:"date"`
	EnergyLevel     domain.EnergyLevel `json:"energy_level"`
	AvailableBlocks int                `json:"available_blocks"`
	FocusNote       string             `json:"focus_note,omitempty"`
	CreatedAt       string             `json:"created_at"`
}

func checkinResponse(c domain.DailyCheckIn) CheckInResponse {
	return CheckInResponse{
		ID:              c.ID,
		Date:            c.Date,
		EnergyLevel:     c.EnergyLevel,
		AvailableBlocks: c.AvailableBlocks,
		FocusNote:       c.FocusNote,
		CreatedAt:       c.CreatedAt,
	}
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload,omitempty"`
}

func mapEvents(items []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(items))
	for _, e := range items {
		res = append(res, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			Payload:    e.Payload,
		})
	}
	return res
}
