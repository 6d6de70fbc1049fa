// Package agentbeats is the HTTP client for the battle coordination backend.
// It fetches battle assignments and reports turn events, final results, and
// agent readiness.
package agentbeats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"coinquest/internal/app/ports"
)

const reportedBy = "green_agent"

// turnEventTries keeps per-turn reporting bounded so a flaky backend slows
// a turn by at most one backoff interval.
const turnEventTries = 2

type Client struct {
	// BaseURL is the fallback backend for calls that name no endpoint.
	BaseURL    string
	HTTPClient *http.Client
	Metrics    ports.BattleMetrics
	// MaxTries bounds result and readiness submissions. Zero means 4.
	MaxTries uint

	mu       sync.Mutex
	agentURL map[string]string
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: client,
		agentURL:   map[string]string{},
	}
}

// taskConfig is the game parameter document embedded in a battle row as a
// JSON string.
type taskConfig struct {
	MaxTurns       int `json:"max_turns"`
	WorldSize      int `json:"world_size"`
	CurrencyTarget int `json:"currency_target"`
	StartingWealth int `json:"starting_wealth"`
	StartingHealth int `json:"starting_health"`
}

type battleRow struct {
	Opponents []struct {
		AgentID string `json:"agent_id"`
	} `json:"opponents"`
	TaskConfig string `json:"task_config"`
}

// base resolves the backend to talk to: the per-call endpoint when the
// notification named one, the configured default otherwise.
func (c *Client) base(endpoint string) string {
	if e := strings.TrimRight(strings.TrimSpace(endpoint), "/"); e != "" {
		return e
	}
	return c.BaseURL
}

func (c *Client) FetchBattle(ctx context.Context, endpoint, battleID string) (ports.BattleConfig, error) {
	var row battleRow
	if err := c.getJSON(ctx, c.base(endpoint)+"/battles/"+battleID, &row); err != nil {
		return ports.BattleConfig{}, err
	}
	if len(row.Opponents) == 0 {
		return ports.BattleConfig{}, fmt.Errorf("battle %s has no opponents", battleID)
	}

	var cfg taskConfig
	if row.TaskConfig != "" {
		if err := json.Unmarshal([]byte(row.TaskConfig), &cfg); err != nil {
			return ports.BattleConfig{}, fmt.Errorf("parse task config for %s: %w", battleID, err)
		}
	}

	participants := make(map[string]string, len(row.Opponents))
	for i, opp := range row.Opponents {
		participants[fmt.Sprintf("player_%d", i+1)] = opp.AgentID
	}
	return ports.BattleConfig{
		BattleID:       battleID,
		Participants:   participants,
		MaxTurns:       cfg.MaxTurns,
		WorldRadius:    cfg.WorldSize,
		CurrencyTarget: cfg.CurrencyTarget,
		StartingMoney:  cfg.StartingWealth,
		StartingHealth: cfg.StartingHealth,
	}, nil
}

// AgentURL resolves an agent id to its A2A endpoint via the backend's agent
// registry. Resolutions are cached for the life of the process.
func (c *Client) AgentURL(ctx context.Context, agentID string) (string, error) {
	c.mu.Lock()
	if url, ok := c.agentURL[agentID]; ok {
		c.mu.Unlock()
		return url, nil
	}
	c.mu.Unlock()

	var row struct {
		RegisterInfo struct {
			AgentURL string `json:"agent_url"`
		} `json:"register_info"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/agents/"+agentID, &row); err != nil {
		return "", err
	}
	if row.RegisterInfo.AgentURL == "" {
		return "", fmt.Errorf("agent %s has no registered url", agentID)
	}
	c.mu.Lock()
	c.agentURL[agentID] = row.RegisterInfo.AgentURL
	c.mu.Unlock()
	return row.RegisterInfo.AgentURL, nil
}

type turnEventBody struct {
	IsResult   bool                           `json:"is_result"`
	Turn       int                            `json:"turn"`
	ReportedBy string                         `json:"reported_by"`
	Message    string                         `json:"message"`
	Actions    map[string]string              `json:"actions"`
	Stats      map[string]ports.PlayerStats   `json:"player_stats"`
	Agents     map[string]ports.AgentMetadata `json:"agent_metadata"`
	Timestamp  string                         `json:"timestamp"`
}

// PostTurnEvent retries once with backoff and then gives up; the caller
// treats failures as non-fatal and moves on to the next turn.
func (c *Client) PostTurnEvent(ctx context.Context, endpoint, battleID string, event ports.TurnEvent) error {
	body := turnEventBody{
		IsResult:   false,
		Turn:       event.Turn,
		ReportedBy: reportedBy,
		Message:    event.Message,
		Actions:    event.Actions,
		Stats:      event.Stats,
		Agents:     event.Agents,
		Timestamp:  timestamp(),
	}
	return c.withRetry(ctx, turnEventTries, func() error {
		return c.postJSON(ctx, c.base(endpoint)+"/battles/"+battleID, body)
	})
}

type resultDetail struct {
	FinalWealth  map[string]int    `json:"final_wealth"`
	FinalHealth  map[string]int    `json:"final_health"`
	TurnsPlayed  int               `json:"turns_played"`
	FinalActions map[string]string `json:"final_actions,omitempty"`
}

type resultBody struct {
	IsResult   bool                           `json:"is_result"`
	Winner     string                         `json:"winner"`
	ReportedBy string                         `json:"reported_by"`
	Message    string                         `json:"message"`
	Errored    bool                           `json:"errored,omitempty"`
	Detail     resultDetail                   `json:"detail"`
	Agents     map[string]ports.AgentMetadata `json:"agent_metadata"`
	Timestamp  string                         `json:"timestamp"`
}

// PostResult retries with exponential backoff before giving up; the
// duplicate-notification path covers anything beyond that.
func (c *Client) PostResult(ctx context.Context, endpoint, battleID string, result ports.BattleResult) error {
	detail := resultDetail{
		FinalWealth:  map[string]int{},
		FinalHealth:  map[string]int{},
		TurnsPlayed:  result.TurnsPlayed,
		FinalActions: result.FinalActions,
	}
	for agentID, stats := range result.FinalStats {
		detail.FinalWealth[agentID] = stats.Money
		detail.FinalHealth[agentID] = stats.Health
	}
	body := resultBody{
		IsResult:   true,
		Winner:     result.Winner,
		ReportedBy: reportedBy,
		Message:    result.Message,
		Errored:    result.Errored,
		Detail:     detail,
		Agents:     result.Agents,
		Timestamp:  timestamp(),
	}
	return c.withRetry(ctx, c.maxTries(), func() error {
		return c.postJSON(ctx, c.base(endpoint)+"/battles/"+battleID, body)
	})
}

func (c *Client) MarkAgentReady(ctx context.Context, endpoint, agentID string) error {
	return c.withRetry(ctx, c.maxTries(), func() error {
		return c.putJSON(ctx, c.base(endpoint)+"/agents/"+agentID, map[string]bool{"ready": true})
	})
}

func (c *Client) maxTries() uint {
	if c.MaxTries == 0 {
		return 4
	}
	return c.MaxTries
}

func (c *Client) withRetry(ctx context.Context, tries uint, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		// Every attempt past the first is a retry, whatever its outcome.
		if attempts > 1 && c.Metrics != nil {
			c.Metrics.RecordReportRetry()
		}
		return struct{}{}, op()
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))
	return err
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ports.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, url string, body any) error {
	return c.sendJSON(ctx, http.MethodPost, url, body)
}

func (c *Client) putJSON(ctx context.Context, url string, body any) error {
	return c.sendJSON(ctx, http.MethodPut, url, body)
}

func (c *Client) sendJSON(ctx context.Context, method, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
