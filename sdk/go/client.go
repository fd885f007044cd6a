package senryakusdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Senryaku HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Campaign represents the API campaign model.
type Campaign struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	PriorityRank      int    `json:"priority_rank"`
	WeeklyBlockTarget int    `json:"weekly_block_target"`
	Colour            string `json:"colour,omitempty"`
	TargetDate        string `json:"target_date,omitempty"`
}

// Mission represents the API mission model.
type Mission struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	SortOrder  int    `json:"sort_order"`
}

// Sortie represents the API sortie model.
type Sortie struct {
	ID              string `json:"id"`
	MissionID       string `json:"mission_id"`
	Title           string `json:"title"`
	CognitiveLoad   string `json:"cognitive_load"`
	EstimatedBlocks int    `json:"estimated_blocks"`
	Status          string `json:"status"`
}

// BriefingSortie is one recommended sortie.
type BriefingSortie struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	CognitiveLoad   string `json:"cognitive_load"`
	EstimatedBlocks int    `json:"estimated_blocks"`
	CampaignID      string `json:"campaign_id"`
	CampaignName    string `json:"campaign_name"`
	MissionName     string `json:"mission_name"`
}

// Briefing is the morning briefing response.
type Briefing struct {
	Date            string           `json:"date"`
	EnergyLevel     string           `json:"energy_level"`
	AvailableBlocks int              `json:"available_blocks"`
	Sorties         []BriefingSortie `json:"sorties"`
}

// CampaignHealth is one dashboard row.
type CampaignHealth struct {
	CampaignID        string `json:"campaign_id"`
	Name              string `json:"name"`
	PriorityRank      int    `json:"priority_rank"`
	Health            string `json:"health"`
	Velocity          int    `json:"velocity"`
	WeeklyBlockTarget int    `json:"weekly_block_target"`
	StalenessDays     int    `json:"staleness_days"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCampaign creates a campaign.
func (c *Client) CreateCampaign(ctx context.Context, name string, rank, weeklyTarget int) (Campaign, error) {
	body := map[string]any{
		"name":                name,
		"priority_rank":       rank,
		"weekly_block_target": weeklyTarget,
	}
	var resp Campaign
	err := c.do(ctx, http.MethodPost, "v0/campaigns", body, &resp)
	return resp, err
}

// ListCampaigns lists campaigns, optionally filtered by status.
func (c *Client) ListCampaigns(ctx context.Context, status string) ([]Campaign, error) {
	endpoint := "v0/campaigns"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Campaign
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateSortie creates a sortie under a mission.
func (c *Client) CreateSortie(ctx context.Context, missionID, title, load string, blocks int) (Sortie, error) {
	body := map[string]any{
		"mission_id":       missionID,
		"title":            title,
		"cognitive_load":   load,
		"estimated_blocks": blocks,
	}
	var resp Sortie
	err := c.do(ctx, http.MethodPost, "v0/sorties", body, &resp)
	return resp, err
}

// CheckIn records today's check-in.
func (c *Client) CheckIn(ctx context.Context, energy string, blocks int) error {
	body := map[string]any{
		"energy_level":     energy,
		"available_blocks": blocks,
	}
	return c.do(ctx, http.MethodPost, "v0/checkin", body, nil)
}

// TodayBriefing fetches the morning briefing, optionally overriding energy.
func (c *Client) TodayBriefing(ctx context.Context, energy string) (Briefing, error) {
	endpoint := "v0/briefing/today"
	if energy != "" {
		endpoint += "?energy=" + url.QueryEscape(energy)
	}
	var resp Briefing
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Dashboard fetches per-campaign health rows.
func (c *Client) Dashboard(ctx context.Context) ([]CampaignHealth, error) {
	var resp []CampaignHealth
	err := c.do(ctx, http.MethodGet, "v0/dashboard/health", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
