package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

var (
	ErrInvalidConfig = errors.New("invalid engine config")
	ErrGameOver      = errors.New("game is in a terminal state")
)

// WorldGenerationError reports a starting position the world cannot accept.
type WorldGenerationError struct {
	UID    string
	Pos    game.Position
	Reason string
}

func (e *WorldGenerationError) Error() string {
	return fmt.Sprintf("world generation failed for %s at (%d,%d): %s", e.UID, e.Pos.X, e.Pos.Y, e.Reason)
}

// UseCase builds and drives games. All collaborators come in through ports;
// the engine never talks to a concrete agent or store.
type UseCase struct {
	Agents    ports.AgentGateway
	Judge     ports.Adjudicator
	Games     ports.GameRepository
	Turns     ports.TurnRepository
	TxManager ports.TxManager
	Metrics   ports.BattleMetrics
	Now       func() time.Time
}

// Game is one running instance. The engine instance is the sole writer of
// its state; readers go through View/Summary under the read lock.
type Game struct {
	uc  *UseCase
	cfg Config

	mu     sync.RWMutex
	state  *game.State
	agents map[string]string // uid -> agent id
}

// Initialize generates the world tile by tile, places the players, persists
// turn 0, and leaves the game in the running state.
func (u *UseCase) Initialize(ctx context.Context, cfg Config) (*Game, error) {
	if cfg.GameID == "" || cfg.WorldRadius < 0 || len(cfg.Players) == 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.VisionRadius <= 0 {
		cfg.VisionRadius = 1
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 30 * time.Second
	}
	if cfg.AdjudicateBackoff <= 0 {
		cfg.AdjudicateBackoff = time.Second
	}

	st := &game.State{
		GameID:      cfg.GameID,
		Name:        cfg.Name,
		Status:      game.StatusInitializing,
		WorldRadius: cfg.WorldRadius,
		Players:     map[string]*game.Player{},
		Tiles:       map[game.Position]*game.Tile{},
	}

	for x := -cfg.WorldRadius; x <= cfg.WorldRadius; x++ {
		for y := -cfg.WorldRadius; y <= cfg.WorldRadius; y++ {
			pos := game.Position{X: x, Y: y}
			tile, err := u.Judge.GenerateTile(ctx, pos, cfg.WorldRadius)
			if err != nil {
				return nil, fmt.Errorf("generate tile (%d,%d): %w", x, y, err)
			}
			tile.Position = pos
			st.Tiles[pos] = &tile
		}
	}

	if err := placePlayers(st, cfg); err != nil {
		return nil, err
	}

	st.Status = game.StatusRunning
	g := &Game{uc: u, cfg: cfg, state: st, agents: map[string]string{}}
	for _, pc := range cfg.Players {
		agentID := pc.AgentID
		if agentID == "" {
			agentID = pc.UID
		}
		g.agents[pc.UID] = agentID
	}

	// Turn 0 records the generated world before anyone has acted.
	genesis := game.Turn{
		GameID:   cfg.GameID,
		Number:   0,
		Actions:  map[string]string{},
		Snapshot: st.TakeSnapshot(),
	}
	if err := u.persistTurn(ctx, g, genesis); err != nil {
		return nil, fmt.Errorf("persist turn 0: %w", err)
	}
	return g, nil
}

func placePlayers(st *game.State, cfg Config) error {
	rng := rand.New(rand.NewSource(cfg.Seed))
	taken := map[game.Position]string{}

	for _, pc := range cfg.Players {
		if pc.UID == "" {
			return ErrInvalidConfig
		}
		if _, dup := st.Players[pc.UID]; dup {
			return &WorldGenerationError{UID: pc.UID, Reason: "duplicate uid"}
		}

		var pos game.Position
		if pc.Position != nil {
			pos = *pc.Position
			if !st.InBounds(pos) {
				return &WorldGenerationError{UID: pc.UID, Pos: pos, Reason: "out of bounds"}
			}
			if holder, occupied := taken[pos]; occupied {
				return &WorldGenerationError{UID: pc.UID, Pos: pos, Reason: "occupied by " + holder}
			}
		} else {
			var ok bool
			pos, ok = randomFreePosition(rng, st, taken)
			if !ok {
				return &WorldGenerationError{UID: pc.UID, Reason: "no free tile"}
			}
		}
		taken[pos] = pc.UID

		health := pc.StartingHealth
		if health <= 0 {
			health = 100
		}
		st.Players[pc.UID] = &game.Player{
			UID:      pc.UID,
			Position: pos,
			Model:    pc.Model,
			Values:   game.Values{Money: pc.StartingMoney, Health: health},
		}
	}
	return nil
}

func randomFreePosition(rng *rand.Rand, st *game.State, taken map[game.Position]string) (game.Position, bool) {
	side := 2*st.WorldRadius + 1
	for attempt := 0; attempt < side*side*4; attempt++ {
		pos := game.Position{
			X: rng.Intn(side) - st.WorldRadius,
			Y: rng.Intn(side) - st.WorldRadius,
		}
		if _, occupied := taken[pos]; !occupied {
			return pos, true
		}
	}
	return game.Position{}, false
}

// persistTurn appends the turn and refreshes the game summary as one unit.
func (u *UseCase) persistTurn(ctx context.Context, g *Game, turn game.Turn) error {
	if u.Turns == nil && u.Games == nil {
		return nil
	}
	run := func(txCtx context.Context) error {
		if u.Turns != nil {
			if err := u.Turns.Append(txCtx, turn); err != nil {
				return err
			}
		}
		if u.Games != nil {
			if err := u.Games.Save(txCtx, g.summaryLocked()); err != nil {
				return err
			}
		}
		return nil
	}
	if u.TxManager != nil {
		return u.TxManager.RunInTx(ctx, run)
	}
	return run(ctx)
}

func (u *UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Summary builds the persistable metadata row for this game.
func (g *Game) Summary() ports.GameSummary {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.summaryLocked()
}

func (g *Game) summaryLocked() ports.GameSummary {
	return ports.GameSummary{
		ID:             g.state.GameID,
		Name:           g.state.Name,
		Status:         g.state.Status,
		WorldRadius:    g.state.WorldRadius,
		CurrencyTarget: g.cfg.Rules.CurrencyTarget,
		MaxTurns:       g.cfg.Rules.MaxTurns,
		Winner:         g.state.Winner,
		TurnsPlayed:    g.state.TurnNumber,
		EndReason:      g.state.EndReason,
		UpdatedAt:      g.uc.now(),
	}
}

// View returns a deep snapshot of the current state. Concurrent with a
// running turn it observes either the pre-turn or the post-turn state.
func (g *Game) View() game.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.TakeSnapshot()
}

func (g *Game) Status() game.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Status
}
