// Package analytics implements the deterministic scoring core: velocity and
// staleness, campaign health, the morning briefing, drift detection and the
// weekly review. Every entry point takes an explicit clock value so results
// are reproducible.
package analytics

import (
	"context"
	"errors"
	"math"
	"time"

	"senryaku/internal/repo"
)

// StalenessNever is returned when a campaign has no completed sorties.
const StalenessNever = 999

type Service struct {
	Repo repo.Repo
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Staleness returns whole days since the campaign's most recent completed
// sortie, or StalenessNever when none exists.
func (s Service) Staleness(ctx context.Context, campaignID string, now time.Time) (int, error) {
	last, err := s.Repo.LastSortieCompletion(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return StalenessNever, nil
		}
		return 0, err
	}
	t, err := time.Parse(time.RFC3339, last)
	if err != nil {
		return 0, err
	}
	return int(math.Floor(now.Sub(t).Hours() / 24)), nil
}

// Velocity sums actual_blocks from AARs over the trailing 7-day window
// [now-7d, now).
func (s Service) Velocity(ctx context.Context, campaignID string, now time.Time) (int, error) {
	start := now.Add(-7 * 24 * time.Hour)
	return s.Repo.WindowedCampaignBlocks(ctx, campaignID, ts(start), ts(now))
}
