package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"senryaku/internal/domain"
	"senryaku/internal/repo"
)

// allowedLoads maps a day's energy level to the cognitive loads a sortie may
// carry to be admitted into the briefing.
var allowedLoads = map[domain.EnergyLevel]map[domain.CognitiveLoad]bool{
	domain.EnergyGreen:  {domain.LoadDeep: true, domain.LoadMedium: true, domain.LoadLight: true},
	domain.EnergyYellow: {domain.LoadMedium: true, domain.LoadLight: true},
	domain.EnergyRed:    {domain.LoadLight: true},
}

// BriefingSortie is one recommended sortie with campaign/mission context.
type BriefingSortie struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	CognitiveLoad   domain.CognitiveLoad `json:"cognitive_load"`
	EstimatedBlocks int                  `json:"estimated_blocks"`
	CampaignID      string               `json:"campaign_id"`
	CampaignName    string               `json:"campaign_name"`
	CampaignColour  string               `json:"campaign_colour"`
	MissionName     string               `json:"mission_name"`
}

// Briefing is the full morning briefing response.
type Briefing struct {
	Date            string             `json:"date"`
	EnergyLevel     domain.EnergyLevel `json:"energy_level"`
	AvailableBlocks int                `json:"available_blocks"`
	Sorties         []BriefingSortie   `json:"sorties"`
}

// Urgency scores a campaign against the others:
//
//	priority_weight = (n - rank + 1) / n
//	deficit         = max(0, weekly_block_target - velocity)
//	urgency         = deficit*priority_weight + staleness*0.5
func (s Service) Urgency(ctx context.Context, c domain.Campaign, numCampaigns int, now time.Time) (float64, error) {
	weight := float64(numCampaigns-c.PriorityRank+1) / float64(numCampaigns)
	velocity, err := s.Velocity(ctx, c.ID, now)
	if err != nil {
		return 0, err
	}
	deficit := float64(c.WeeklyBlockTarget - velocity)
	if deficit < 0 {
		deficit = 0
	}
	staleness, err := s.Staleness(ctx, c.ID, now)
	if err != nil {
		return 0, err
	}
	return deficit*weight + float64(staleness)*0.5, nil
}

type briefingCandidate struct {
	sortie   domain.Sortie
	campaign domain.Campaign
	mission  domain.Mission
	urgency  float64
}

// GenerateBriefing picks queued sorties for the day. Candidates are filtered
// by energy-compatible cognitive load, ordered by campaign urgency (desc)
// then sort_order, and greedily packed into available_blocks. A sortie that
// does not fit is skipped, not a stopping point. With more than one active
// campaign, no campaign may take more than max(1, floor(blocks*0.6)) blocks.
func (s Service) GenerateBriefing(ctx context.Context, energy domain.EnergyLevel, availableBlocks int, now time.Time) ([]BriefingSortie, error) {
	campaigns, err := s.Repo.ListCampaigns(ctx, domain.CampaignActive)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return []BriefingSortie{}, nil
	}
	loads := allowedLoads[energy]

	var candidates []briefingCandidate
	for _, c := range campaigns {
		urgency, err := s.Urgency(ctx, c, len(campaigns), now)
		if err != nil {
			return nil, err
		}
		missions, err := s.Repo.ListMissions(ctx, repo.MissionFilters{CampaignID: c.ID})
		if err != nil {
			return nil, err
		}
		missionByID := make(map[string]domain.Mission, len(missions))
		for _, m := range missions {
			missionByID[m.ID] = m
		}
		sorties, err := s.Repo.QueuedSortiesForCampaign(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		for _, st := range sorties {
			if !loads[st.CognitiveLoad] {
				continue
			}
			candidates = append(candidates, briefingCandidate{
				sortie:   st,
				campaign: c,
				mission:  missionByID[st.MissionID],
				urgency:  urgency,
			})
		}
	}

	// Stable sort keeps the campaign-rank/sort-order pre-ordering for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].urgency != candidates[j].urgency {
			return candidates[i].urgency > candidates[j].urgency
		}
		return candidates[i].sortie.SortOrder < candidates[j].sortie.SortOrder
	})

	result := []BriefingSortie{}
	blocksUsed := 0
	perCampaign := map[string]int{}
	maxPerCampaign := int(float64(availableBlocks) * 0.6)
	if maxPerCampaign < 1 {
		maxPerCampaign = 1
	}

	for _, cand := range candidates {
		if blocksUsed >= availableBlocks {
			break
		}
		est := cand.sortie.EstimatedBlocks
		if len(campaigns) > 1 && perCampaign[cand.campaign.ID]+est > maxPerCampaign {
			continue
		}
		if blocksUsed+est > availableBlocks {
			continue
		}
		result = append(result, BriefingSortie{
			ID:              cand.sortie.ID,
			Title:           cand.sortie.Title,
			CognitiveLoad:   cand.sortie.CognitiveLoad,
			EstimatedBlocks: est,
			CampaignID:      cand.campaign.ID,
			CampaignName:    cand.campaign.Name,
			CampaignColour:  cand.campaign.Colour,
			MissionName:     cand.mission.Name,
		})
		blocksUsed += est
		perCampaign[cand.campaign.ID] += est
	}
	return result, nil
}

// BriefingMarkdown renders a briefing for chat/terminal delivery.
func BriefingMarkdown(b Briefing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Daily Briefing — %s\n\n", b.Date)
	fmt.Fprintf(&sb, "Energy: %s | Blocks: %d\n\n", b.EnergyLevel, b.AvailableBlocks)
	loadEmoji := map[domain.CognitiveLoad]string{
		domain.LoadDeep:   "🧠",
		domain.LoadMedium: "⚡",
		domain.LoadLight:  "🌿",
	}
	for i, s := range b.Sorties {
		fmt.Fprintf(&sb, "%d. %s **%s** (%s → %s)\n", i+1, loadEmoji[s.CognitiveLoad], s.Title, s.CampaignName, s.MissionName)
	}
	return sb.String()
}
