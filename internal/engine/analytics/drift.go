package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"senryaku/internal/domain"
)

const (
	// MisalignmentThreshold flags campaigns whose share of real blocks
	// strays this far from their target share.
	MisalignmentThreshold = 0.15
	// TrendThreshold is the drift change below which a week-over-week
	// comparison reads as stable.
	TrendThreshold = 0.05
)

type Trend string

const (
	TrendNew       Trend = "new"
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
)

// CampaignDrift is one campaign's row in the drift report.
type CampaignDrift struct {
	CampaignID        string  `json:"campaign_id"`
	Name              string  `json:"name"`
	Colour            string  `json:"colour"`
	PriorityRank      int     `json:"priority_rank"`
	WeeklyBlockTarget int     `json:"weekly_block_target"`
	BlocksThisWeek    int     `json:"blocks_this_week"`
	ExpectedShare     float64 `json:"expected_share"`
	ActualShare       float64 `json:"actual_share"`
	Drift             float64 `json:"drift"`
	IsMisaligned      bool    `json:"is_misaligned"`
	Trend             Trend   `json:"trend"`
}

type DriftReport struct {
	Date                   string          `json:"date"`
	TotalBlocksThisWeek    int             `json:"total_blocks_this_week"`
	Campaigns              []CampaignDrift `json:"campaigns"`
	MisalignmentStatements []string        `json:"misalignment_statements"`
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func pct(v float64) int {
	return int(math.Round(v * 100))
}

// windowShare returns a campaign's share of all active campaigns' blocks in
// [start, end); zero when the window is empty.
func (s Service) windowShare(ctx context.Context, campaigns []domain.Campaign, campaignID string, start, end time.Time) (float64, error) {
	total := 0
	mine := 0
	for _, c := range campaigns {
		blocks, err := s.Repo.WindowedCampaignBlocks(ctx, c.ID, ts(start), ts(end))
		if err != nil {
			return 0, err
		}
		total += blocks
		if c.ID == campaignID {
			mine = blocks
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(mine) / float64(total), nil
}

// trend compares this week's drift magnitude against the average of the past
// three non-overlapping 7-day windows, using the campaign's current expected
// share as the baseline throughout.
func (s Service) trend(ctx context.Context, campaigns []domain.Campaign, campaignID string, expectedShare float64, now time.Time) (Trend, error) {
	var pastAbsSum float64
	for weeksAgo := 1; weeksAgo <= 3; weeksAgo++ {
		end := now.Add(-time.Duration(weeksAgo) * 7 * 24 * time.Hour)
		start := end.Add(-7 * 24 * time.Hour)
		share, err := s.windowShare(ctx, campaigns, campaignID, start, end)
		if err != nil {
			return "", err
		}
		pastAbsSum += math.Abs(share - expectedShare)
	}
	avgPastAbs := pastAbsSum / 3

	currentShare, err := s.windowShare(ctx, campaigns, campaignID, now.Add(-7*24*time.Hour), now)
	if err != nil {
		return "", err
	}
	change := math.Abs(currentShare-expectedShare) - avgPastAbs
	switch {
	case math.Abs(change) < TrendThreshold:
		return TrendStable, nil
	case change < 0:
		return TrendImproving, nil
	default:
		return TrendWorsening, nil
	}
}

// ComputeDrift builds the drift report for all active campaigns: expected
// share from weekly targets, actual share from the trailing 7-day window,
// rows sorted by |drift| descending.
func (s Service) ComputeDrift(ctx context.Context, now time.Time) (DriftReport, error) {
	report := DriftReport{
		Date:                   now.UTC().Format("2006-01-02"),
		Campaigns:              []CampaignDrift{},
		MisalignmentStatements: []string{},
	}
	campaigns, err := s.Repo.ListCampaigns(ctx, domain.CampaignActive)
	if err != nil {
		return report, err
	}
	if len(campaigns) == 0 {
		return report, nil
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	blocksByCampaign := make(map[string]int, len(campaigns))
	totalBlocks := 0
	totalTarget := 0
	for _, c := range campaigns {
		blocks, err := s.Repo.WindowedCampaignBlocks(ctx, c.ID, ts(weekAgo), ts(now))
		if err != nil {
			return report, err
		}
		blocksByCampaign[c.ID] = blocks
		totalBlocks += blocks
		totalTarget += c.WeeklyBlockTarget
	}
	report.TotalBlocksThisWeek = totalBlocks

	for _, c := range campaigns {
		expected := 0.0
		if totalTarget > 0 {
			expected = float64(c.WeeklyBlockTarget) / float64(totalTarget)
		}
		actual := 0.0
		if totalBlocks > 0 {
			actual = float64(blocksByCampaign[c.ID]) / float64(totalBlocks)
		}
		drift := actual - expected
		tr, err := s.trend(ctx, campaigns, c.ID, expected, now)
		if err != nil {
			return report, err
		}
		report.Campaigns = append(report.Campaigns, CampaignDrift{
			CampaignID:        c.ID,
			Name:              c.Name,
			Colour:            c.Colour,
			PriorityRank:      c.PriorityRank,
			WeeklyBlockTarget: c.WeeklyBlockTarget,
			BlocksThisWeek:    blocksByCampaign[c.ID],
			ExpectedShare:     round3(expected),
			ActualShare:       round3(actual),
			Drift:             round3(drift),
			IsMisaligned:      math.Abs(drift) > MisalignmentThreshold,
			Trend:             tr,
		})
	}

	sort.SliceStable(report.Campaigns, func(i, j int) bool {
		return math.Abs(report.Campaigns[i].Drift) > math.Abs(report.Campaigns[j].Drift)
	})

	for _, d := range report.Campaigns {
		if !d.IsMisaligned {
			continue
		}
		if d.Drift > 0 {
			report.MisalignmentStatements = append(report.MisalignmentStatements, fmt.Sprintf(
				"%s is ranked #%d and received %d%% of blocks (target: %d%%). Over-allocated by %d%%.",
				d.Name, d.PriorityRank, pct(d.ActualShare), pct(d.ExpectedShare), pct(math.Abs(d.Drift))))
		} else {
			report.MisalignmentStatements = append(report.MisalignmentStatements, fmt.Sprintf(
				"%s is ranked #%d but received only %d%% of blocks (target: %d%%). Under-allocated by %d%%.",
				d.Name, d.PriorityRank, pct(d.ActualShare), pct(d.ExpectedShare), pct(math.Abs(d.Drift))))
		}
	}
	return report, nil
}

// DriftMarkdown renders the drift report as a markdown table.
func DriftMarkdown(r DriftReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Drift Report — %s\n\n", r.Date)
	for _, st := range r.MisalignmentStatements {
		fmt.Fprintf(&sb, "- ⚠️ %s\n", st)
	}
	if len(r.MisalignmentStatements) == 0 {
		sb.WriteString("No significant misalignments detected.\n")
	}
	sb.WriteString("\n| Campaign | Expected | Actual | Drift | Trend |\n")
	sb.WriteString("|----------|----------|--------|-------|-------|\n")
	for _, c := range r.Campaigns {
		flag := ""
		if c.IsMisaligned {
			flag = "⚠️"
		}
		fmt.Fprintf(&sb, "| %s | %d%% | %d%% | %+d%% | %s %s |\n",
			c.Name, pct(c.ExpectedShare), pct(c.ActualShare), pct(c.Drift), c.Trend, flag)
	}
	return sb.String()
}
