package analytics

import (
	"context"
	"errors"
	"time"

	"senryaku/internal/domain"
	"senryaku/internal/repo"
)

type HealthStatus string

const (
	HealthGreen  HealthStatus = "green"
	HealthYellow HealthStatus = "yellow"
	HealthRed    HealthStatus = "red"
)

// CampaignHealth is one dashboard row.
type CampaignHealth struct {
	CampaignID        string       `json:"campaign_id"`
	Name              string       `json:"name"`
	Colour            string       `json:"colour"`
	PriorityRank      int          `json:"priority_rank"`
	Health            HealthStatus `json:"health"`
	Velocity          int          `json:"velocity"`
	WeeklyBlockTarget int          `json:"weekly_block_target"`
	StalenessDays     int          `json:"staleness_days"`
	MissionsCompleted int          `json:"missions_completed"`
	MissionsTotal     int          `json:"missions_total"`
	NextSortieTitle   string       `json:"next_sortie_title,omitempty"`
}

// Health classifies a campaign:
//
//	target == 0                          -> green (maintenance campaign)
//	adherence >= 0.8 and staleness <= 3  -> green
//	adherence >= 0.4 or staleness <= 7   -> yellow
//	otherwise                            -> red
//
// where adherence = min(velocity/target, 1.0).
func (s Service) Health(ctx context.Context, c domain.Campaign, now time.Time) (HealthStatus, error) {
	if c.WeeklyBlockTarget == 0 {
		return HealthGreen, nil
	}
	staleness, err := s.Staleness(ctx, c.ID, now)
	if err != nil {
		return "", err
	}
	velocity, err := s.Velocity(ctx, c.ID, now)
	if err != nil {
		return "", err
	}
	adherence := float64(velocity) / float64(c.WeeklyBlockTarget)
	if adherence > 1.0 {
		adherence = 1.0
	}
	switch {
	case adherence >= 0.8 && staleness <= 3:
		return HealthGreen, nil
	case adherence >= 0.4 || staleness <= 7:
		return HealthYellow, nil
	default:
		return HealthRed, nil
	}
}

// Dashboard returns health rows for all active campaigns in priority order.
func (s Service) Dashboard(ctx context.Context, now time.Time) ([]CampaignHealth, error) {
	campaigns, err := s.Repo.ListCampaigns(ctx, domain.CampaignActive)
	if err != nil {
		return nil, err
	}
	res := make([]CampaignHealth, 0, len(campaigns))
	for _, c := range campaigns {
		missions, err := s.Repo.ListMissions(ctx, repo.MissionFilters{CampaignID: c.ID})
		if err != nil {
			return nil, err
		}
		completed := 0
		for _, m := range missions {
			if m.Status == domain.MissionCompleted {
				completed++
			}
		}
		velocity, err := s.Velocity(ctx, c.ID, now)
		if err != nil {
			return nil, err
		}
		staleness, err := s.Staleness(ctx, c.ID, now)
		if err != nil {
			return nil, err
		}
		health, err := s.Health(ctx, c, now)
		if err != nil {
			return nil, err
		}
		row := CampaignHealth{
			CampaignID:        c.ID,
			Name:              c.Name,
			Colour:            c.Colour,
			PriorityRank:      c.PriorityRank,
			Health:            health,
			Velocity:          velocity,
			WeeklyBlockTarget: c.WeeklyBlockTarget,
			StalenessDays:     staleness,
			MissionsCompleted: completed,
			MissionsTotal:     len(missions),
		}
		next, err := s.Repo.NextQueuedSortie(ctx, c.ID)
		if err == nil {
			row.NextSortieTitle = next.Title
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		res = append(res, row)
	}
	return res, nil
}
