package ports

import "context"

// BattleConfig is what the coordination backend knows about one battle:
// which agent fills each role, and the game parameters.
type BattleConfig struct {
	BattleID       string
	Participants   map[string]string // role -> agent id
	MaxTurns       int
	WorldRadius    int
	CurrencyTarget int
	StartingMoney  int
	StartingHealth int
}

// TurnEvent is the per-turn report. All player-keyed maps use stable agent
// ids, never role labels.
type TurnEvent struct {
	Turn    int                      `json:"turn"`
	Message string                   `json:"message"`
	Actions map[string]string        `json:"actions"`
	Stats   map[string]PlayerStats   `json:"player_stats"`
	Agents  map[string]AgentMetadata `json:"agent_metadata"`
}

type PlayerStats struct {
	Money  int `json:"money"`
	Health int `json:"health"`
}

type AgentMetadata struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BattleResult is the final report. Winner holds an agent id, or "draw".
type BattleResult struct {
	Winner       string                   `json:"winner"`
	Message      string                   `json:"message"`
	FinalStats   map[string]PlayerStats   `json:"final_stats"`
	FinalActions map[string]string        `json:"final_actions,omitempty"`
	TurnsPlayed  int                      `json:"turns_played"`
	Agents       map[string]AgentMetadata `json:"agent_metadata"`
	Errored      bool                     `json:"errored,omitempty"`
}

// BattleBackend talks to the coordination backend that announced a battle.
// Every call targets the endpoint the announcement named; an empty endpoint
// falls back to the adapter's configured default.
type BattleBackend interface {
	FetchBattle(ctx context.Context, endpoint, battleID string) (BattleConfig, error)
	PostTurnEvent(ctx context.Context, endpoint, battleID string, event TurnEvent) error
	PostResult(ctx context.Context, endpoint, battleID string, result BattleResult) error
	MarkAgentReady(ctx context.Context, endpoint, agentID string) error
}
