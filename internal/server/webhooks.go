package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"senryaku/internal/domain"
	"senryaku/internal/engine"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookBatch    = 100
)

// webhookDispatcher tails the event log and forwards new events to the
// configured webhook. It polls with a cursor initialised to the latest event
// at startup, so only events emitted while the server runs are delivered.
type webhookDispatcher struct {
	engine   engine.Engine
	notifier *notifier
	mu       sync.Mutex
	cursor   int64
	hasCur   bool
}

// StartWebhookDispatcher begins tailing the event log in the background when
// a webhook is configured.
func StartWebhookDispatcher(e engine.Engine) {
	if e.Config == nil || strings.TrimSpace(e.Config.Webhook.URL) == "" {
		return
	}
	n := newNotifier(e.Config.Webhook)
	if !n.configured() {
		return
	}
	d := &webhookDispatcher{engine: e, notifier: n}
	go d.run()
}

func (d *webhookDispatcher) run() {
	ticker := time.NewTicker(defaultWebhookInterval)
	defer ticker.Stop()
	for {
		d.dispatch()
		<-ticker.C
	}
}

func (d *webhookDispatcher) dispatch() {
	ctx := context.Background()
	cursor := d.currentCursor(ctx)
	events, err := d.engine.Repo.EventsAfter(ctx, defaultWebhookBatch, cursor)
	if err != nil {
		log.Printf("webhook: fetch events failed: %v", err)
		return
	}
	filter := newEventFilter(d.engine.Config.Webhook.Events)
	for _, evt := range events {
		if !filter.match(evt.Type) {
			d.setCursor(evt.ID)
			continue
		}
		if err := d.notifier.Send(ctx, formatEvent(evt)); err != nil {
			log.Printf("webhook: deliver event %d failed: %v", evt.ID, err)
			return
		}
		d.setCursor(evt.ID)
	}
}

func (d *webhookDispatcher) currentCursor(ctx context.Context) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasCur {
		return d.cursor
	}
	cur, err := d.engine.Repo.LatestEventID(ctx)
	if err != nil {
		log.Printf("webhook: init cursor failed: %v", err)
		cur = 0
	}
	d.cursor = cur
	d.hasCur = true
	return cur
}

func (d *webhookDispatcher) setCursor(value int64) {
	d.mu.Lock()
	d.cursor = value
	d.hasCur = true
	d.mu.Unlock()
}

func formatEvent(evt domain.Event) string {
	var payload map[string]any
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	msg := fmt.Sprintf("%s %s", evt.Type, evt.EntityID)
	if len(payload) > 0 {
		if data, err := json.Marshal(payload); err == nil {
			msg += " " + string(data)
		}
	}
	return msg
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(events []string) eventFilter {
	if len(events) == 0 {
		return eventFilter{all: true}
	}
	set := make(map[string]struct{}, len(events))
	for _, evt := range events {
		key := strings.TrimSpace(evt)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
