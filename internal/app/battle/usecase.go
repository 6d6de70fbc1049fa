package battle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"coinquest/internal/app/engine"
	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

var ErrInvalidNotification = errors.New("invalid battle notification")

// Defaults fill in game parameters the backend's battle config omits.
type Defaults struct {
	MaxTurns       int
	WorldRadius    int
	VisionRadius   int
	CurrencyTarget int
	StartingMoney  int
	StartingHealth int
	ActionTimeout  time.Duration
}

type phase int

const (
	phaseInFlight phase = iota
	// phaseResultPending means gameplay finished but the final submission
	// failed; a later notification may retry delivery without replaying.
	phaseResultPending
	phaseProcessed
)

type record struct {
	phase phase
	// endpoint is the backend named by the notification that started this
	// battle; all fetching and reporting for the battle targets it.
	endpoint string
	result   ports.BattleResult
}

// UseCase bridges the engine's single-game execution model to the external
// battle lifecycle. It owns the correlation records and never mutates game
// state directly.
type UseCase struct {
	Backend  ports.BattleBackend
	Engine   *engine.UseCase
	Agents   ports.AgentGateway
	Metrics  ports.BattleMetrics
	Defaults Defaults

	mu      sync.Mutex
	records map[string]*record
}

// HandleReset clears all agent conversation state for this process, then
// signals readiness to the backend the reset named. Safe to call any number
// of times.
func (u *UseCase) HandleReset(ctx context.Context, agentID, backendURL string) error {
	if u.Agents != nil {
		if err := u.Agents.Reset(ctx); err != nil {
			return fmt.Errorf("reset agents: %w", err)
		}
	}
	if agentID != "" && u.Backend != nil {
		if err := u.Backend.MarkAgentReady(ctx, backendURL, agentID); err != nil {
			return fmt.Errorf("mark agent ready: %w", err)
		}
	}
	return nil
}

// HandleNotification runs the battle's game logic at most once per battle id
// for the life of the process, no matter how many duplicate notifications
// arrive. Result delivery alone may be retried by a later notification.
// backendURL is the backend that sent the notification; the whole battle is
// fetched from and reported to it.
func (u *UseCase) HandleNotification(ctx context.Context, battleID, backendURL string) error {
	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		return ErrInvalidNotification
	}
	backendURL = strings.TrimSpace(backendURL)

	// Check-and-mark is atomic: two racing duplicates cannot both pass.
	u.mu.Lock()
	if u.records == nil {
		u.records = map[string]*record{}
	}
	rec, seen := u.records[battleID]
	if seen {
		switch rec.phase {
		case phaseProcessed, phaseInFlight:
			u.mu.Unlock()
			hlog.Infof("battle %s: duplicate notification ignored", battleID)
			if u.Metrics != nil {
				u.Metrics.RecordDuplicateNotification()
			}
			return nil
		case phaseResultPending:
			result := rec.result
			if backendURL != "" {
				rec.endpoint = backendURL
			}
			endpoint := rec.endpoint
			rec.phase = phaseInFlight
			u.mu.Unlock()
			hlog.Infof("battle %s: retrying result delivery without replaying", battleID)
			return u.deliverResult(ctx, endpoint, battleID, result)
		}
	}
	rec = &record{phase: phaseInFlight, endpoint: backendURL}
	u.records[battleID] = rec
	u.mu.Unlock()

	cfg, err := u.Backend.FetchBattle(ctx, backendURL, battleID)
	if err != nil {
		// Gameplay never started; forget the marker so a retry can work.
		u.forget(battleID)
		return fmt.Errorf("fetch battle %s: %w", battleID, err)
	}

	result, runErr := u.runBattle(ctx, backendURL, cfg)
	if runErr != nil && result == nil {
		u.forget(battleID)
		return runErr
	}
	return u.deliverResult(ctx, backendURL, battleID, *result)
}

// runBattle maps roles to agents, initializes the engine, and drives turns,
// reporting each settled turn best-effort. Returns a result to deliver even
// for errored games; returns a nil result only when initialization failed.
func (u *UseCase) runBattle(ctx context.Context, endpoint string, cfg ports.BattleConfig) (*ports.BattleResult, error) {
	roleToAgent := cfg.Participants
	roles := make([]string, 0, len(roleToAgent))
	for role := range roleToAgent {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	if len(roles) == 0 {
		return nil, fmt.Errorf("battle %s: no participants", cfg.BattleID)
	}

	engCfg := u.engineConfig(cfg, roles)
	g, err := u.Engine.Initialize(ctx, engCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize battle %s: %w", cfg.BattleID, err)
	}

	metadata := agentMetadata(roles, roleToAgent)
	var lastActions map[string]string
	for g.Status() == game.StatusRunning {
		turn, err := g.RunTurn(ctx)
		if err != nil {
			break
		}
		lastActions = turn.Actions
		u.reportTurn(ctx, endpoint, cfg.BattleID, turn, roleToAgent, metadata)
	}

	res := u.buildResult(g, roleToAgent, metadata, lastActions)
	return &res, nil
}

func (u *UseCase) engineConfig(cfg ports.BattleConfig, roles []string) engine.Config {
	d := u.Defaults
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = d.MaxTurns
	}
	radius := cfg.WorldRadius
	if radius <= 0 {
		radius = d.WorldRadius
	}
	target := cfg.CurrencyTarget
	if target <= 0 {
		target = d.CurrencyTarget
	}
	health := cfg.StartingHealth
	if health <= 0 {
		health = d.StartingHealth
	}
	money := cfg.StartingMoney
	if money < 0 {
		money = d.StartingMoney
	}
	vision := d.VisionRadius
	if vision <= 0 {
		vision = 1
	}
	timeout := d.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	players := make([]engine.PlayerConfig, 0, len(roles))
	for _, role := range roles {
		players = append(players, engine.PlayerConfig{
			UID:            role,
			AgentID:        cfg.Participants[role],
			StartingMoney:  money,
			StartingHealth: health,
		})
	}
	return engine.Config{
		GameID:            cfg.BattleID,
		Name:              "battle " + cfg.BattleID,
		WorldRadius:       radius,
		VisionRadius:      vision,
		Rules:             game.Rules{CurrencyTarget: target, MaxTurns: maxTurns},
		Players:           players,
		ActionTimeout:     timeout,
		AdjudicateRetries: 2,
	}
}

// reportTurn submits the turn event keyed by agent ids. Failures are logged
// and never stall gameplay.
func (u *UseCase) reportTurn(ctx context.Context, endpoint, battleID string, turn game.Turn, roleToAgent map[string]string, metadata map[string]ports.AgentMetadata) {
	event := ports.TurnEvent{
		Turn:    turn.Number,
		Message: fmt.Sprintf("Turn %d completed", turn.Number),
		Actions: map[string]string{},
		Stats:   map[string]ports.PlayerStats{},
		Agents:  metadata,
	}
	for role, action := range turn.Actions {
		event.Actions[agentFor(role, roleToAgent)] = action
	}
	for role, p := range turn.Snapshot.Players {
		event.Stats[agentFor(role, roleToAgent)] = ports.PlayerStats{Money: p.Values.Money, Health: p.Values.Health}
	}
	if err := u.Backend.PostTurnEvent(ctx, endpoint, battleID, event); err != nil {
		hlog.Warnf("battle %s: turn %d report failed: %v", battleID, turn.Number, err)
	}
}

func (u *UseCase) buildResult(g *engine.Game, roleToAgent map[string]string, metadata map[string]ports.AgentMetadata, lastActions map[string]string) ports.BattleResult {
	res := g.Result()
	out := ports.BattleResult{
		Winner:       "draw",
		FinalStats:   map[string]ports.PlayerStats{},
		FinalActions: map[string]string{},
		TurnsPlayed:  res.TurnsPlayed,
		Agents:       metadata,
		Errored:      res.Status == game.StatusError,
	}
	if res.Winner != game.DrawWinner {
		out.Winner = agentFor(res.Winner, roleToAgent)
	}
	for role, stats := range res.FinalStats {
		out.FinalStats[agentFor(role, roleToAgent)] = stats
	}
	for role, action := range lastActions {
		out.FinalActions[agentFor(role, roleToAgent)] = action
	}
	switch {
	case out.Errored:
		out.Message = "Battle errored: " + res.Reason
	case out.Winner == "draw":
		out.Message = "Battle completed - Draw"
	default:
		out.Message = "Battle completed - Winner: " + out.Winner
	}
	return out
}

// deliverResult submits the final payload and flips the record to processed
// only when submission succeeded; otherwise the result is cached for a
// legitimate retry notification.
func (u *UseCase) deliverResult(ctx context.Context, endpoint, battleID string, result ports.BattleResult) error {
	err := u.Backend.PostResult(ctx, endpoint, battleID, result)

	u.mu.Lock()
	rec := u.records[battleID]
	if rec == nil {
		rec = &record{endpoint: endpoint}
		u.records[battleID] = rec
	}
	if err != nil {
		rec.phase = phaseResultPending
		rec.result = result
		u.mu.Unlock()
		hlog.Errorf("battle %s: result submission failed, will accept retry: %v", battleID, err)
		return fmt.Errorf("submit result for %s: %w", battleID, err)
	}
	rec.phase = phaseProcessed
	rec.result = ports.BattleResult{}
	u.mu.Unlock()

	hlog.Infof("battle %s: processed (winner=%s, turns=%d)", battleID, result.Winner, result.TurnsPlayed)
	if u.Metrics != nil {
		if result.Errored {
			u.Metrics.RecordBattleErrored()
		} else {
			u.Metrics.RecordBattleCompleted()
		}
	}
	return nil
}

func (u *UseCase) forget(battleID string) {
	u.mu.Lock()
	delete(u.records, battleID)
	u.mu.Unlock()
}

func agentFor(role string, roleToAgent map[string]string) string {
	if id, ok := roleToAgent[role]; ok && id != "" {
		return id
	}
	return role
}

func agentMetadata(roles []string, roleToAgent map[string]string) map[string]ports.AgentMetadata {
	out := make(map[string]ports.AgentMetadata, len(roles))
	for i, role := range roles {
		id := agentFor(role, roleToAgent)
		out[id] = ports.AgentMetadata{
			Identifier:  id,
			Name:        fmt.Sprintf("Player %d", i+1),
			Description: "arena player agent",
		}
	}
	return out
}
