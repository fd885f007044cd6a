package engine

import (
	"context"
	"errors"

	"senryaku/internal/domain"
	"senryaku/internal/engine/analytics"
	"senryaku/internal/repo"
)

func (e Engine) Analytics() analytics.Service {
	return analytics.Service{Repo: e.Repo}
}

// TodayBriefing resolves today's energy and block budget, then generates the
// briefing. An explicit energy wins over the check-in; with no check-in the
// energy defaults to green and the budget to the configured default.
func (e Engine) TodayBriefing(ctx context.Context, energy domain.EnergyLevel) (analytics.Briefing, error) {
	now := e.now().UTC()
	today := now.Format("2006-01-02")

	blocks := 4
	if e.Config != nil && e.Config.Briefing.DefaultBlocks > 0 {
		blocks = e.Config.Briefing.DefaultBlocks
	}
	level := domain.EnergyGreen

	checkin, err := e.Repo.GetCheckIn(ctx, today)
	switch {
	case err == nil:
		level = checkin.EnergyLevel
		blocks = checkin.AvailableBlocks
	case errors.Is(err, repo.ErrNotFound):
	default:
		return analytics.Briefing{}, err
	}
	if energy != "" {
		if !energy.Valid() {
			return analytics.Briefing{}, errors.New("invalid energy level")
		}
		level = energy
	}

	sorties, err := e.Analytics().GenerateBriefing(ctx, level, blocks, now)
	if err != nil {
		return analytics.Briefing{}, err
	}
	return analytics.Briefing{
		Date:            today,
		EnergyLevel:     level,
		AvailableBlocks: blocks,
		Sorties:         sorties,
	}, nil
}

// RouteSortie returns the single best next sortie for an energy level. The
// second return is false when nothing fits.
func (e Engine) RouteSortie(ctx context.Context, energy domain.EnergyLevel) (analytics.BriefingSortie, bool, error) {
	if energy == "" {
		energy = domain.EnergyGreen
	}
	if !energy.Valid() {
		return analytics.BriefingSortie{}, false, errors.New("invalid energy level")
	}
	sorties, err := e.Analytics().GenerateBriefing(ctx, energy, 1, e.now().UTC())
	if err != nil || len(sorties) == 0 {
		return analytics.BriefingSortie{}, false, err
	}
	return sorties[0], true, nil
}

func (e Engine) Dashboard(ctx context.Context) ([]analytics.CampaignHealth, error) {
	return e.Analytics().Dashboard(ctx, e.now().UTC())
}

func (e Engine) DriftReport(ctx context.Context) (analytics.DriftReport, error) {
	return e.Analytics().ComputeDrift(ctx, e.now().UTC())
}

func (e Engine) WeeklyReview(ctx context.Context) (analytics.WeeklyReview, error) {
	return e.Analytics().GenerateWeeklyReview(ctx, e.now().UTC())
}
