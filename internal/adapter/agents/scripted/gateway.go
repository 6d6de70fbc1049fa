// Package scripted provides a deterministic AgentGateway used by tests and
// by the server's mock mode.
package scripted

import (
	"context"
	"fmt"
	"sync"

	"coinquest/internal/app/ports"
)

type Gateway struct {
	// Actions maps agent id to the canned action returned on every turn.
	// A missing agent falls back to a generic explore action.
	Actions map[string]string
	// Err, when set, fails every request; the engine turns that into a
	// no-op action.
	Err error

	mu     sync.Mutex
	resets int
	calls  int
}

func (g *Gateway) RequestAction(ctx context.Context, agentID string, tc ports.TurnContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if action, ok := g.Actions[agentID]; ok {
		return action, nil
	}
	return fmt.Sprintf("explore the tile at (%d,%d)", tc.Position.X, tc.Position.Y), nil
}

func (g *Gateway) Reset(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resets++
	return nil
}

func (g *Gateway) Resets() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resets
}

func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
