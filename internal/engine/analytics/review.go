package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"senryaku/internal/domain"
	"senryaku/internal/repo"
)

type ScoreboardRow struct {
	Name            string `json:"name"`
	Colour          string `json:"colour"`
	PriorityRank    int    `json:"priority_rank"`
	BlocksCompleted int    `json:"blocks_completed"`
	WeeklyTarget    int    `json:"weekly_target"`
	CompletionPct   int    `json:"completion_pct"`
}

type MissionMove struct {
	Name         string `json:"name"`
	CampaignName string `json:"campaign_name"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
}

type DriftSummaryRow struct {
	Name          string  `json:"name"`
	Colour        string  `json:"colour"`
	ExpectedShare float64 `json:"expected_share"`
	ActualShare   float64 `json:"actual_share"`
	Drift         float64 `json:"drift"`
	IsMisaligned  bool    `json:"is_misaligned"`
}

type StalenessAlert struct {
	Name string `json:"name"`
	Days int    `json:"days"`
}

type DailyEnergy struct {
	Date     string `json:"date"`
	ShortDay string `json:"short_day"`
	Level    string `json:"level"`
}

type EnergyPatterns struct {
	CheckIns     int           `json:"checkins"`
	Daily        []DailyEnergy `json:"daily"`
	Average      float64       `json:"average"`
	AverageLabel string        `json:"average_label"`
}

type Ranking struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type UpcomingTarget struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	TargetDate string `json:"target_date"`
}

type BlockedSortie struct {
	Title        string `json:"title"`
	MissionName  string `json:"mission_name"`
	CampaignName string `json:"campaign_name"`
}

type NextWeekPreview struct {
	UpcomingTargets []UpcomingTarget `json:"upcoming_targets"`
	BlockedSorties  []BlockedSortie  `json:"blocked_sorties"`
}

// WeeklyReview carries the seven review sections.
type WeeklyReview struct {
	Date            string            `json:"date"`
	WeekEnding      string            `json:"week_ending"`
	Scoreboard      []ScoreboardRow   `json:"scoreboard"`
	MissionsMoved   []MissionMove     `json:"missions_moved"`
	DriftSummary    []DriftSummaryRow `json:"drift_summary"`
	StalenessAlerts []StalenessAlert  `json:"staleness_alerts"`
	EnergyPatterns  EnergyPatterns    `json:"energy_patterns"`
	CurrentRankings []Ranking         `json:"current_rankings"`
	NextWeekPreview NextWeekPreview   `json:"next_week_preview"`
}

var energyValues = map[domain.EnergyLevel]int{
	domain.EnergyGreen:  3,
	domain.EnergyYellow: 2,
	domain.EnergyRed:    1,
}

var energyLabels = map[int]string{3: "green", 2: "yellow", 1: "red"}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateWeeklyReview builds the review for the week ending today. The
// activity window starts at UTC midnight seven days before today.
func (s Service) GenerateWeeklyReview(ctx context.Context, today time.Time) (WeeklyReview, error) {
	today = today.UTC()
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := ts(day.AddDate(0, 0, -7))
	rv := WeeklyReview{
		Date:            day.Format("2006-01-02"),
		WeekEnding:      day.Format("2006-01-02"),
		Scoreboard:      []ScoreboardRow{},
		MissionsMoved:   []MissionMove{},
		DriftSummary:    []DriftSummaryRow{},
		StalenessAlerts: []StalenessAlert{},
		CurrentRankings: []Ranking{},
		NextWeekPreview: NextWeekPreview{UpcomingTargets: []UpcomingTarget{}, BlockedSorties: []BlockedSortie{}},
	}

	campaigns, err := s.Repo.ListCampaigns(ctx, domain.CampaignActive)
	if err != nil {
		return rv, err
	}
	campaignName := func(id string) string {
		for _, c := range campaigns {
			if c.ID == id {
				return c.Name
			}
		}
		c, err := s.Repo.GetCampaign(ctx, id)
		if err != nil {
			return "Unknown"
		}
		return c.Name
	}

	// 1. Scoreboard
	blocksByCampaign := make(map[string]int, len(campaigns))
	for _, c := range campaigns {
		blocks, err := s.Repo.CampaignBlocksSince(ctx, c.ID, cutoff)
		if err != nil {
			return rv, err
		}
		blocksByCampaign[c.ID] = blocks
		pctDone := 0
		if c.WeeklyBlockTarget > 0 {
			pctDone = int(math.Round(float64(blocks) / float64(c.WeeklyBlockTarget) * 100))
		}
		rv.Scoreboard = append(rv.Scoreboard, ScoreboardRow{
			Name:            c.Name,
			Colour:          c.Colour,
			PriorityRank:    c.PriorityRank,
			BlocksCompleted: blocks,
			WeeklyTarget:    c.WeeklyBlockTarget,
			CompletionPct:   pctDone,
		})
	}

	// 2. Missions moved
	completedMissions, err := s.Repo.MissionsCompletedSince(ctx, cutoff)
	if err != nil {
		return rv, err
	}
	completedIDs := map[string]bool{}
	for _, m := range completedMissions {
		completedIDs[m.ID] = true
		rv.MissionsMoved = append(rv.MissionsMoved, MissionMove{
			Name:         m.Name,
			CampaignName: campaignName(m.CampaignID),
			OldStatus:    string(domain.MissionInProgress),
			NewStatus:    string(m.Status),
		})
	}
	startedMissions, err := s.Repo.MissionsStartedSince(ctx, cutoff)
	if err != nil {
		return rv, err
	}
	for _, m := range startedMissions {
		if completedIDs[m.ID] {
			continue
		}
		rv.MissionsMoved = append(rv.MissionsMoved, MissionMove{
			Name:         m.Name,
			CampaignName: campaignName(m.CampaignID),
			OldStatus:    string(domain.MissionNotStarted),
			NewStatus:    string(m.Status),
		})
	}

	// 3. Drift summary; rounded to 2 decimals, coarser than the drift report
	totalTarget := 0
	totalActual := 0
	for _, c := range campaigns {
		totalTarget += c.WeeklyBlockTarget
		totalActual += blocksByCampaign[c.ID]
	}
	if totalTarget == 0 {
		totalTarget = 1
	}
	for _, c := range campaigns {
		expected := float64(c.WeeklyBlockTarget) / float64(totalTarget)
		actual := 0.0
		if totalActual > 0 {
			actual = float64(blocksByCampaign[c.ID]) / float64(totalActual)
		}
		drift := actual - expected
		rv.DriftSummary = append(rv.DriftSummary, DriftSummaryRow{
			Name:          c.Name,
			Colour:        c.Colour,
			ExpectedShare: round2(expected),
			ActualShare:   round2(actual),
			Drift:         round2(drift),
			IsMisaligned:  math.Abs(drift) > MisalignmentThreshold,
		})
	}

	// 4. Staleness alerts
	for _, c := range campaigns {
		days, err := s.Staleness(ctx, c.ID, day)
		if err != nil {
			return rv, err
		}
		if days > 5 {
			rv.StalenessAlerts = append(rv.StalenessAlerts, StalenessAlert{Name: c.Name, Days: days})
		}
	}

	// 5. Energy patterns
	checkins, err := s.Repo.ListCheckIns(ctx, day.AddDate(0, 0, -7).Format("2006-01-02"), day.Format("2006-01-02"))
	if err != nil {
		return rv, err
	}
	rv.EnergyPatterns = EnergyPatterns{CheckIns: len(checkins), Daily: []DailyEnergy{}, AverageLabel: "none"}
	totalEnergy := 0
	for _, ci := range checkins {
		val, ok := energyValues[ci.EnergyLevel]
		if !ok {
			val = 2
		}
		totalEnergy += val
		shortDay := ""
		if d, err := time.Parse("2006-01-02", ci.Date); err == nil {
			shortDay = d.Format("Mon")
		}
		rv.EnergyPatterns.Daily = append(rv.EnergyPatterns.Daily, DailyEnergy{
			Date:     ci.Date,
			ShortDay: shortDay,
			Level:    string(ci.EnergyLevel),
		})
	}
	if len(checkins) > 0 {
		avg := float64(totalEnergy) / float64(len(checkins))
		rv.EnergyPatterns.Average = math.Round(avg*10) / 10
		label, ok := energyLabels[int(math.Round(avg))]
		if !ok {
			label = "yellow"
		}
		rv.EnergyPatterns.AverageLabel = label
	}

	// 6. Current rankings
	for _, c := range campaigns {
		rv.CurrentRankings = append(rv.CurrentRankings, Ranking{Name: c.Name, Rank: c.PriorityRank})
	}

	// 7. Next week preview
	nextStart := day.AddDate(0, 0, 1).Format("2006-01-02")
	nextEnd := day.AddDate(0, 0, 8).Format("2006-01-02")
	inWindow := func(d string) bool { return d >= nextStart && d <= nextEnd }
	for _, c := range campaigns {
		if c.TargetDate != nil && inWindow(*c.TargetDate) {
			rv.NextWeekPreview.UpcomingTargets = append(rv.NextWeekPreview.UpcomingTargets, UpcomingTarget{
				Type: "campaign", Name: c.Name, TargetDate: *c.TargetDate,
			})
		}
		missions, err := s.Repo.ListMissions(ctx, repo.MissionFilters{CampaignID: c.ID})
		if err != nil {
			return rv, err
		}
		for _, m := range missions {
			if m.TargetDate != nil && inWindow(*m.TargetDate) {
				rv.NextWeekPreview.UpcomingTargets = append(rv.NextWeekPreview.UpcomingTargets, UpcomingTarget{
					Type: "mission", Name: c.Name + " > " + m.Name, TargetDate: *m.TargetDate,
				})
			}
		}
	}
	blocked, err := s.Repo.SortiesUnderBlockedMissions(ctx)
	if err != nil {
		return rv, err
	}
	for _, st := range blocked {
		m, err := s.Repo.GetMission(ctx, st.MissionID)
		if err != nil {
			return rv, err
		}
		rv.NextWeekPreview.BlockedSorties = append(rv.NextWeekPreview.BlockedSorties, BlockedSortie{
			Title:        st.Title,
			MissionName:  m.Name,
			CampaignName: campaignName(m.CampaignID),
		})
	}

	return rv, nil
}

// barWidth caps scoreboard progress bars so a huge target stays readable.
const barWidth = 24

func scoreboardBar(completed, target int) string {
	filled := completed
	if filled > barWidth {
		filled = barWidth
	}
	empty := target - completed
	if empty < 0 {
		empty = 0
	}
	if filled+empty > barWidth {
		empty = barWidth - filled
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

// WeeklyReviewMarkdown renders the seven sections as markdown.
func WeeklyReviewMarkdown(rv WeeklyReview) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# 振り返り Weekly Review — %s\n\n", rv.WeekEnding)

	sb.WriteString("## Scoreboard\n")
	if len(rv.Scoreboard) > 0 {
		for _, row := range rv.Scoreboard {
			fmt.Fprintf(&sb, "- **%s**: %d/%d blocks [%s] (%d%%)\n",
				row.Name, row.BlocksCompleted, row.WeeklyTarget, scoreboardBar(row.BlocksCompleted, row.WeeklyTarget), row.CompletionPct)
		}
	} else {
		sb.WriteString("- No active campaigns\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Missions Moved\n")
	if len(rv.MissionsMoved) > 0 {
		for _, m := range rv.MissionsMoved {
			fmt.Fprintf(&sb, "- %s → **%s**: %s → %s\n", m.CampaignName, m.Name, m.OldStatus, m.NewStatus)
		}
	} else {
		sb.WriteString("- No mission status changes this week\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Drift Summary\n")
	if len(rv.DriftSummary) > 0 {
		misaligned := false
		for _, d := range rv.DriftSummary {
			if !d.IsMisaligned {
				continue
			}
			misaligned = true
			direction := "under"
			if d.Drift > 0 {
				direction = "over"
			}
			fmt.Fprintf(&sb, "- **%s**: %s-allocated by %.0f%%\n", d.Name, direction, math.Abs(d.Drift)*100)
		}
		if !misaligned {
			sb.WriteString("- All campaigns within alignment thresholds\n")
		}
	} else {
		sb.WriteString("- No drift data available\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Staleness Alerts\n")
	if len(rv.StalenessAlerts) > 0 {
		for _, a := range rv.StalenessAlerts {
			fmt.Fprintf(&sb, "- ⚠️ **%s** untouched for %d days\n", a.Name, a.Days)
		}
	} else {
		sb.WriteString("- All campaigns active this week\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Energy Patterns\n")
	if rv.EnergyPatterns.CheckIns > 0 {
		days := make([]string, 0, len(rv.EnergyPatterns.Daily))
		dots := make([]string, 0, len(rv.EnergyPatterns.Daily))
		dot := map[string]string{"green": "🟢", "yellow": "🟡", "red": "🔴"}
		for _, d := range rv.EnergyPatterns.Daily {
			days = append(days, d.ShortDay)
			glyph, ok := dot[d.Level]
			if !ok {
				glyph = "⚪"
			}
			dots = append(dots, glyph)
		}
		fmt.Fprintf(&sb, "  %s\n", strings.Join(days, " "))
		fmt.Fprintf(&sb, "  %s\n", strings.Join(dots, " "))
		fmt.Fprintf(&sb, "- Average energy: **%s** (%v)\n", rv.EnergyPatterns.AverageLabel, rv.EnergyPatterns.Average)
	} else {
		sb.WriteString("- No check-ins recorded this week\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Re-rank Your Campaigns\n")
	sb.WriteString("Current priority order:\n")
	for _, r := range rv.CurrentRankings {
		fmt.Fprintf(&sb, "  %d. %s\n", r.Rank, r.Name)
	}
	sb.WriteString("\n")

	sb.WriteString("## Next Week Preview\n")
	nwp := rv.NextWeekPreview
	if len(nwp.UpcomingTargets) > 0 {
		sb.WriteString("**Upcoming deadlines:**\n")
		for _, t := range nwp.UpcomingTargets {
			fmt.Fprintf(&sb, "- %s — %s\n", t.Name, t.TargetDate)
		}
	}
	if len(nwp.BlockedSorties) > 0 {
		sb.WriteString("**Blocked sorties:**\n")
		for _, b := range nwp.BlockedSorties {
			fmt.Fprintf(&sb, "- %s > %s > %s\n", b.CampaignName, b.MissionName, b.Title)
		}
	}
	if len(nwp.UpcomingTargets) == 0 && len(nwp.BlockedSorties) == 0 {
		sb.WriteString("- No upcoming deadlines or blocked work\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
