package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

// RunTurn drives one full turn: concurrent action collection, one
// adjudication call, atomic verdict application, termination check, and a
// durable append of the turn record. The next turn must not start until this
// one has been persisted.
func (g *Game) RunTurn(ctx context.Context) (game.Turn, error) {
	g.mu.RLock()
	if g.state.Status != game.StatusRunning {
		g.mu.RUnlock()
		return game.Turn{}, ErrGameOver
	}
	uids := g.state.ActiveUIDs()
	contexts := make(map[string]ports.TurnContext, len(uids))
	for _, uid := range uids {
		contexts[uid] = g.turnContextLocked(uid)
	}
	g.mu.RUnlock()

	actions := g.collectActions(ctx, uids, contexts)

	verdict, err := g.adjudicate(ctx, actions)
	if err != nil {
		g.fail(ctx, fmt.Sprintf("adjudication failed: %v", err))
		return game.Turn{}, err
	}

	g.mu.Lock()
	if err := g.state.ApplyVerdict(verdict, actions); err != nil {
		// One retry with the invalid deltas dropped; a second failure is
		// treated like an unusable verdict.
		sanitized := g.state.SanitizeVerdict(verdict, actions)
		if err2 := g.state.ApplyVerdict(sanitized, actions); err2 != nil {
			g.mu.Unlock()
			g.fail(ctx, fmt.Sprintf("verdict rejected: %v", err))
			return game.Turn{}, err2
		}
		verdict = sanitized
	}
	for _, uid := range uids {
		g.state.Players[uid].RecordResponse(actions[uid])
	}
	g.state.TurnNumber++

	if outcome := g.cfg.Rules.EvaluateEnd(g.state); outcome.Over {
		g.state.Status = game.StatusCompleted
		g.state.Winner = outcome.Winner
		g.state.EndReason = outcome.Reason
	}

	turn := game.Turn{
		GameID:   g.state.GameID,
		Number:   g.state.TurnNumber,
		Actions:  actions,
		Verdict:  verdict,
		Snapshot: g.state.TakeSnapshot(),
	}
	g.mu.Unlock()

	if err := g.uc.persistTurn(ctx, g, turn); err != nil {
		g.fail(ctx, fmt.Sprintf("persist turn %d: %v", turn.Number, err))
		return game.Turn{}, err
	}
	if g.uc.Metrics != nil {
		g.uc.Metrics.RecordTurnSettled()
	}
	return turn, nil
}

// Run loops RunTurn until a termination condition or a fatal error.
func (g *Game) Run(ctx context.Context) (Result, error) {
	var last game.Turn
	for g.Status() == game.StatusRunning {
		if err := ctx.Err(); err != nil {
			g.fail(ctx, fmt.Sprintf("run cancelled: %v", err))
			return g.result(last), err
		}
		turn, err := g.RunTurn(ctx)
		if err != nil {
			return g.result(last), err
		}
		last = turn
	}
	return g.result(last), nil
}

// Result summarizes the game as it currently stands.
func (g *Game) Result() Result {
	return g.result(game.Turn{})
}

func (g *Game) result(last game.Turn) Result {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := Result{
		GameID:      g.state.GameID,
		Status:      g.state.Status,
		Winner:      g.state.Winner,
		TurnsPlayed: g.state.TurnNumber,
		Reason:      g.state.EndReason,
		FinalStats:  map[string]ports.PlayerStats{},
		LastActions: map[string]string{},
	}
	for uid, p := range g.state.Players {
		res.FinalStats[uid] = ports.PlayerStats{Money: p.Values.Money, Health: p.Values.Health}
	}
	for uid, action := range last.Actions {
		res.LastActions[uid] = action
	}
	return res
}

func (g *Game) turnContextLocked(uid string) ports.TurnContext {
	p := g.state.Players[uid]
	remaining := 0
	if g.cfg.Rules.MaxTurns > 0 {
		remaining = g.cfg.Rules.MaxTurns - g.state.TurnNumber
	}
	return ports.TurnContext{
		UID:            uid,
		Stats:          p.Values,
		Position:       p.Position,
		VisibleTiles:   g.state.VisibleTiles(p.Position, g.cfg.VisionRadius),
		PriorVerdict:   g.state.LastNarrative,
		TurnNumber:     g.state.TurnNumber + 1,
		CurrencyGoal:   g.cfg.Rules.CurrencyTarget,
		TurnsRemaining: remaining,
	}
}

// collectActions fans out to every active player and joins on the complete
// set. A timeout or error from one agent becomes an empty action for that
// player; it never aborts the turn.
func (g *Game) collectActions(ctx context.Context, uids []string, contexts map[string]ports.TurnContext) map[string]string {
	actions := make(map[string]string, len(uids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, uid := range uids {
		wg.Add(1)
		go func(uid string, tc ports.TurnContext) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, g.cfg.ActionTimeout)
			defer cancel()
			action, err := g.uc.Agents.RequestAction(reqCtx, g.agents[uid], tc)
			if err != nil {
				action = ""
				if g.uc.Metrics != nil {
					g.uc.Metrics.RecordAgentTimeout()
				}
			}
			mu.Lock()
			actions[uid] = action
			mu.Unlock()
		}(uid, contexts[uid])
	}
	wg.Wait()
	return actions
}

// adjudicate requests one verdict for the full action set, retrying with a
// short doubling backoff before declaring the turn failed.
func (g *Game) adjudicate(ctx context.Context, actions map[string]string) (game.Verdict, error) {
	g.mu.RLock()
	snap := g.state.TakeSnapshot()
	req := ports.AdjudicationRequest{
		Players:        snap.Players,
		Tiles:          snap.Tiles,
		Actions:        actions,
		PriorNarrative: g.state.LastNarrative,
		TurnNumber:     g.state.TurnNumber + 1,
	}
	g.mu.RUnlock()

	delay := g.cfg.AdjudicateBackoff
	var lastErr error
	for attempt := 0; attempt <= g.cfg.AdjudicateRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return game.Verdict{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		verdict, err := g.uc.Judge.Adjudicate(ctx, req)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
	}
	return game.Verdict{}, lastErr
}

// fail moves the game to the error state and stores the summary best-effort.
// The last successfully applied turn stays the latest readable state.
func (g *Game) fail(ctx context.Context, reason string) {
	g.mu.Lock()
	if g.state.Status.Terminal() {
		g.mu.Unlock()
		return
	}
	g.state.Status = game.StatusError
	g.state.EndReason = reason
	summary := g.summaryLocked()
	g.mu.Unlock()

	if g.uc.Games != nil {
		_ = g.uc.Games.Save(ctx, summary)
	}
}
