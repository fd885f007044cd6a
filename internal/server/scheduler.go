package server

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/robfig/cron/v3"

	"senryaku/internal/engine"
	"senryaku/internal/engine/analytics"
)

// StartScheduler wires the morning briefing and weekly review cron jobs.
// Returns nil when no job is configured.
func StartScheduler(e engine.Engine) *cron.Cron {
	if e.Config == nil {
		return nil
	}
	n := newNotifier(e.Config.Webhook)
	c := cron.New()
	jobs := 0
	if spec := strings.TrimSpace(e.Config.Briefing.Cron); spec != "" {
		if _, err := c.AddFunc(spec, func() { runMorningBriefing(e, n) }); err != nil {
			log.Printf("scheduler: invalid briefing cron %q: %v", spec, err)
		} else {
			jobs++
		}
	}
	if spec := strings.TrimSpace(e.Config.Review.Cron); spec != "" {
		if _, err := c.AddFunc(spec, func() { runWeeklyReview(e, n) }); err != nil {
			log.Printf("scheduler: invalid review cron %q: %v", spec, err)
		} else {
			jobs++
		}
	}
	if jobs == 0 {
		return nil
	}
	c.Start()
	return c
}

func runMorningBriefing(e engine.Engine, n *notifier) {
	if !n.configured() {
		return
	}
	ctx := context.Background()
	b, err := e.TodayBriefing(ctx, "")
	if err != nil {
		log.Printf("scheduler: briefing failed: %v", err)
		return
	}
	lines := []string{fmt.Sprintf("Morning Briefing — %s", b.Date), ""}
	for i, s := range b.Sorties {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, s.Title, s.CampaignName))
	}
	if err := n.Send(ctx, strings.Join(lines, "\n")); err != nil {
		log.Printf("scheduler: briefing notification failed: %v", err)
	}
}

func runWeeklyReview(e engine.Engine, n *notifier) {
	if !n.configured() {
		return
	}
	ctx := context.Background()
	rv, err := e.WeeklyReview(ctx)
	if err != nil {
		log.Printf("scheduler: weekly review failed: %v", err)
		return
	}
	if err := n.Send(ctx, analytics.WeeklyReviewMarkdown(rv)); err != nil {
		log.Printf("scheduler: review notification failed: %v", err)
	}
}
