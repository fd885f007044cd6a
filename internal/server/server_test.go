package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"senryaku/internal/config"
	"senryaku/internal/db"
	"senryaku/internal/engine"
	"senryaku/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestSortieLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/campaigns", map[string]any{
		"name":                "Book",
		"priority_rank":       1,
		"weekly_block_target": 10,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create campaign status %d: %s", res.StatusCode, string(data))
	}
	var campaign CampaignResponse
	if err := json.Unmarshal(data, &campaign); err != nil {
		t.Fatalf("unmarshal campaign: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions", map[string]any{
		"campaign_id": campaign.ID,
		"name":        "Draft chapter 1",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create mission status %d: %s", res.StatusCode, string(data))
	}
	var mission MissionResponse
	_ = json.Unmarshal(data, &mission)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sorties", map[string]any{
		"mission_id":       mission.ID,
		"title":            "Outline",
		"cognitive_load":   "deep",
		"estimated_blocks": 2,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create sortie status %d: %s", res.StatusCode, string(data))
	}
	var sortie SortieResponse
	_ = json.Unmarshal(data, &sortie)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sorties/"+sortie.ID+"/start", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sorties/"+sortie.ID+"/start", nil, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("double start: expected 409, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sorties/"+sortie.ID+"/complete", map[string]any{
		"energy_before": "green",
		"energy_after":  "yellow",
		"outcome":       "completed",
		"actual_blocks": 2,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete status %d: %s", res.StatusCode, string(data))
	}
	var done struct {
		Sortie SortieResponse `json:"sortie"`
		AAR    AARResponse    `json:"aar"`
	}
	if err := json.Unmarshal(data, &done); err != nil {
		t.Fatalf("unmarshal complete: %v", err)
	}
	if done.Sortie.Status != "completed" || done.Sortie.CompletedAt == nil {
		t.Fatalf("completed sortie = %+v", done.Sortie)
	}
	if done.AAR.SortieID != sortie.ID || done.AAR.ActualBlocks != 2 {
		t.Fatalf("aar = %+v", done.AAR)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/campaigns/missing", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" || envelope.Error.Message == "" {
		t.Fatalf("envelope = %+v", envelope)
	}
}

func TestBriefingMarkdownFormat(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/briefing/today?format=markdown", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(string(data), "# Daily Briefing") {
		t.Fatalf("markdown body: %s", string(data))
	}
}

func TestRouteWithoutCandidates(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/briefing/route?energy=red", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestCheckInAndBriefingEnergy(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/checkin", map[string]any{
		"energy_level":     "red",
		"available_blocks": 2,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("checkin status %d: %s", res.StatusCode, string(data))
	}

	// The briefing picks up today's check-in when no energy override is given.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/briefing/today", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("briefing status %d: %s", res.StatusCode, string(data))
	}
	var briefing struct {
		EnergyLevel     string `json:"energy_level"`
		AvailableBlocks int    `json:"available_blocks"`
	}
	if err := json.Unmarshal(data, &briefing); err != nil {
		t.Fatalf("unmarshal briefing: %v", err)
	}
	if briefing.EnergyLevel != "red" || briefing.AvailableBlocks != 2 {
		t.Fatalf("briefing = %+v", briefing)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{APIKey: "secret-key"})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/campaigns", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/campaigns", nil, map[string]string{"X-Api-Key": "wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key: expected 401, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/campaigns", nil, map[string]string{"X-Api-Key": "secret-key"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("valid key: %d: %s", res.StatusCode, string(data))
	}

	// Health stays open so probes work without credentials.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}
