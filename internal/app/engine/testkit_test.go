package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

type stubGateway struct {
	mu      sync.Mutex
	actions map[string]string        // agent id -> scripted action
	hang    map[string]bool          // agent id -> block until ctx expires
	errs    map[string]error
	calls   []string
	resets  int
}

func (s *stubGateway) RequestAction(ctx context.Context, agentID string, _ ports.TurnContext) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, agentID)
	hang := s.hang[agentID]
	err := s.errs[agentID]
	action := s.actions[agentID]
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return action, nil
}

func (s *stubGateway) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return nil
}

type stubJudge struct {
	mu       sync.Mutex
	script   func(turn int, req ports.AdjudicationRequest) (game.Verdict, error)
	attempts int
}

func (s *stubJudge) Adjudicate(_ context.Context, req ports.AdjudicationRequest) (game.Verdict, error) {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	if s.script == nil {
		return zeroVerdict(req), nil
	}
	return s.script(req.TurnNumber, req)
}

func (s *stubJudge) GenerateTile(_ context.Context, pos game.Position, _ int) (game.Tile, error) {
	return game.Tile{
		Position:    pos,
		Description: fmt.Sprintf("plains at (%d,%d)", pos.X, pos.Y),
		Secrets:     []game.Secret{{Name: "buried coin", Value: 1}},
	}, nil
}

// zeroVerdict covers every acting uid with a no-op delta.
func zeroVerdict(req ports.AdjudicationRequest) game.Verdict {
	v := game.Verdict{Narrative: "nothing happens"}
	for uid := range req.Actions {
		v.Players = append(v.Players, game.PlayerDelta{UID: uid})
	}
	return v
}

func grant(uid string, money int) func(int, ports.AdjudicationRequest) (game.Verdict, error) {
	return func(_ int, req ports.AdjudicationRequest) (game.Verdict, error) {
		v := zeroVerdict(req)
		for i := range v.Players {
			if v.Players[i].UID == uid {
				v.Players[i].MoneyChange = money
			}
		}
		v.Narrative = "the judge rules"
		return v, nil
	}
}

type stubTurnRepo struct {
	mu    sync.Mutex
	turns []game.Turn
}

func (r *stubTurnRepo) Append(_ context.Context, turn game.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.turns {
		if t.GameID == turn.GameID && t.Number == turn.Number {
			return ports.ErrConflict
		}
	}
	r.turns = append(r.turns, turn)
	return nil
}

func (r *stubTurnRepo) Latest(_ context.Context, gameID string) (game.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	best := -1
	var out game.Turn
	for _, t := range r.turns {
		if t.GameID == gameID && t.Number > best {
			best = t.Number
			out = t
		}
	}
	if best < 0 {
		return game.Turn{}, ports.ErrNotFound
	}
	return out, nil
}

func (r *stubTurnRepo) GetByNumber(_ context.Context, gameID string, number int) (game.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.turns {
		if t.GameID == gameID && t.Number == number {
			return t, nil
		}
	}
	return game.Turn{}, ports.ErrNotFound
}

type stubGameRepo struct {
	mu     sync.Mutex
	byID   map[string]ports.GameSummary
	saves  int
}

func (r *stubGameRepo) Save(_ context.Context, summary ports.GameSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = map[string]ports.GameSummary{}
	}
	r.byID[summary.ID] = summary
	r.saves++
	return nil
}

func (r *stubGameRepo) GetByID(_ context.Context, gameID string) (ports.GameSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.byID[gameID]
	if !ok {
		return ports.GameSummary{}, ports.ErrNotFound
	}
	return summary, nil
}

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var errJudgeDown = errors.New("judge unreachable")

func testConfig() Config {
	posA := game.Position{X: 0, Y: 0}
	posB := game.Position{X: 1, Y: 0}
	return Config{
		GameID:       "g-test",
		Name:         "test arena",
		WorldRadius:  2,
		VisionRadius: 1,
		Rules:        game.Rules{CurrencyTarget: 20, MaxTurns: 3},
		Players: []PlayerConfig{
			{UID: "player_1", AgentID: "agent-a", Position: &posA, StartingHealth: 100},
			{UID: "player_2", AgentID: "agent-b", Position: &posB, StartingHealth: 100},
		},
		ActionTimeout:     50 * time.Millisecond,
		AdjudicateRetries: 1,
		AdjudicateBackoff: time.Millisecond,
	}
}

func newTestUseCase(gateway *stubGateway, judge *stubJudge, turns *stubTurnRepo, games *stubGameRepo) *UseCase {
	return &UseCase{
		Agents:    gateway,
		Judge:     judge,
		Games:     games,
		Turns:     turns,
		TxManager: stubTxManager{},
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	}
}
