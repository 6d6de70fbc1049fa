// Package a2a talks to player agents over the A2A JSON-RPC protocol.
// Each agent keeps one conversation per process; the context id returned by
// the agent's first reply is echoed back on every later turn so the agent
// sees the whole game as a single dialogue.
package a2a

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

	"github.com/google/uuid"

	"coinquest/internal/app/ports"
)

type Gateway struct {
	Client *http.Client
	// URLs maps agent id to its JSON-RPC endpoint. An agent id that is
	// itself an http(s) URL needs no entry.
	URLs map[string]string
	// Resolve looks up endpoints for agent ids missing from URLs, usually
	// backed by the coordination backend's agent registry.
	Resolve func(ctx context.Context, agentID string) (string, error)

	mu       sync.Mutex
	contexts map[string]string // agent id -> conversation context id
}

func NewGateway(client *http.Client, urls map[string]string) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Gateway{Client: client, URLs: urls, contexts: map[string]string{}}
}

func (g *Gateway) RequestAction(ctx context.Context, agentID string, tc ports.TurnContext) (string, error) {
	url, err := g.endpoint(ctx, agentID)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	contextID := g.contexts[agentID]
	g.mu.Unlock()

	reply, newContextID, err := g.send(ctx, url, renderPrompt(tc), contextID)
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", agentID, err)
	}
	if newContextID != "" {
		g.mu.Lock()
		g.contexts[agentID] = newContextID
		g.mu.Unlock()
	}
	return strings.TrimSpace(reply), nil
}

// Reset drops every conversation so the next battle starts clean.
func (g *Gateway) Reset(context.Context) error {
	g.mu.Lock()
	g.contexts = map[string]string{}
	g.mu.Unlock()
	return nil
}

func (g *Gateway) endpoint(ctx context.Context, agentID string) (string, error) {
	if url, ok := g.URLs[agentID]; ok && url != "" {
		return url, nil
	}
	if strings.HasPrefix(agentID, "http://") || strings.HasPrefix(agentID, "https://") {
		return agentID, nil
	}
	if g.Resolve != nil {
		return g.Resolve(ctx, agentID)
	}
	return "", fmt.Errorf("no endpoint configured for agent %s", agentID)
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Message rpcMessage `json:"message"`
}

type rpcMessage struct {
	Kind      string    `json:"kind"`
	Role      string    `json:"role"`
	MessageID string    `json:"messageId"`
	ContextID string    `json:"contextId,omitempty"`
	Parts     []rpcPart `json:"parts"`
}

type rpcPart struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// rpcResult covers both reply shapes the protocol allows: a direct message,
// or a task whose status message or artifacts carry the text.
type rpcResult struct {
	Kind      string    `json:"kind"`
	ContextID string    `json:"contextId"`
	Parts     []rpcPart `json:"parts"`
	Status    struct {
		Message struct {
			Parts []rpcPart `json:"parts"`
		} `json:"message"`
	} `json:"status"`
	Artifacts []struct {
		Parts []rpcPart `json:"parts"`
	} `json:"artifacts"`
}

type rpcResponse struct {
	Result *rpcResult `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) send(ctx context.Context, url, text, contextID string) (string, string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "message/send",
		Params: rpcParams{Message: rpcMessage{
			Kind:      "message",
			Role:      "user",
			MessageID: uuid.NewString(),
			ContextID: contextID,
			Parts:     []rpcPart{{Kind: "text", Text: text}},
		}},
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("agent endpoint returned %d", resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", fmt.Errorf("decode agent reply: %w", err)
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("agent rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.Result == nil {
		return "", "", fmt.Errorf("agent reply has no result")
	}
	return extractText(parsed.Result), parsed.Result.ContextID, nil
}

func extractText(res *rpcResult) string {
	collect := func(parts []rpcPart) string {
		var sb strings.Builder
		for _, p := range parts {
			if p.Kind == "text" || p.Kind == "" {
				sb.WriteString(p.Text)
			}
		}
		return sb.String()
	}
	if text := collect(res.Parts); text != "" {
		return text
	}
	if text := collect(res.Status.Message.Parts); text != "" {
		return text
	}
	for _, a := range res.Artifacts {
		if text := collect(a.Parts); text != "" {
			return text
		}
	}
	return ""
}

// renderPrompt turns the structured view into the briefing the agent reads.
// Only public tile descriptions are included; secrets never leave the judge.
func renderPrompt(tc ports.TurnContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn %d. You are %s.\n", tc.TurnNumber, tc.UID)
	fmt.Fprintf(&sb, "Money: %d (goal: %d). Health: %d. Level %d, %d XP.\n",
		tc.Stats.Money, tc.CurrencyGoal, tc.Stats.Health, tc.Stats.Level, tc.Stats.Experience)
	if len(tc.Stats.Inventory) > 0 {
		fmt.Fprintf(&sb, "Inventory: %s.\n", strings.Join(tc.Stats.Inventory, ", "))
	}
	fmt.Fprintf(&sb, "Position: (%d,%d). Turns remaining: %d.\n", tc.Position.X, tc.Position.Y, tc.TurnsRemaining)
	if len(tc.VisibleTiles) > 0 {
		sb.WriteString("You can see:\n")
		for _, tile := range tc.VisibleTiles {
			fmt.Fprintf(&sb, "- (%d,%d): %s\n", tile.Position.X, tile.Position.Y, tile.Description)
		}
	}
	if tc.PriorVerdict != "" {
		fmt.Fprintf(&sb, "Last turn: %s\n", tc.PriorVerdict)
	}
	sb.WriteString("Reply with one sentence describing your action this turn.")
	return sb.String()
}
