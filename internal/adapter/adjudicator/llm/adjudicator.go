// Package llm implements the referee on top of an OpenAI-compatible
// responses endpoint. The model sees the full hidden state and replies with
// a verdict document, which is schema-checked before the engine sees it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

// Config configures the referee's model endpoint and HTTP behavior.
type Config struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

type Adjudicator struct {
	cfg Config
}

func NewAdjudicator(cfg Config) *Adjudicator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	return &Adjudicator{cfg: cfg}
}

const verdictSchemaJSON = `{
  "type": "object",
  "required": ["character_state_change", "narrative_result"],
  "properties": {
    "character_state_change": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["uid"],
        "properties": {
          "uid": {"type": "string"},
          "money_change": {"type": "integer"},
          "health_change": {"type": "integer"},
          "position_change": {
            "type": "object",
            "required": ["x", "y"],
            "properties": {"x": {"type": "integer"}, "y": {"type": "integer"}}
          },
          "experience_change": {"type": "integer"},
          "inventory_add": {"type": "array", "items": {"type": "string"}},
          "inventory_remove": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "world_state_change": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["position", "description"],
        "properties": {
          "position": {
            "type": "object",
            "required": ["x", "y"],
            "properties": {"x": {"type": "integer"}, "y": {"type": "integer"}}
          },
          "description": {"type": "string"},
          "secrets": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {"name": {"type": "string"}, "value": {"type": "integer"}}
            }
          }
        }
      }
    },
    "narrative_result": {"type": "string"}
  }
}`

const tileSchemaJSON = `{
  "type": "object",
  "required": ["description"],
  "properties": {
    "description": {"type": "string"},
    "secrets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {"name": {"type": "string"}, "value": {"type": "integer"}}
      }
    }
  }
}`

var (
	verdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchemaJSON)
	tileSchema    = jsonschema.MustCompileString("tile.json", tileSchemaJSON)
)

func (a *Adjudicator) Adjudicate(ctx context.Context, req ports.AdjudicationRequest) (game.Verdict, error) {
	raw, err := a.invoke(ctx, refereeInstructions, renderAdjudicationPrompt(req))
	if err != nil {
		return game.Verdict{}, err
	}
	doc, err := decodeJSONReply(raw, verdictSchema)
	if err != nil {
		return game.Verdict{}, fmt.Errorf("verdict reply: %w", err)
	}
	var v game.Verdict
	if err := json.Unmarshal(doc, &v); err != nil {
		return game.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}

func (a *Adjudicator) GenerateTile(ctx context.Context, pos game.Position, worldRadius int) (game.Tile, error) {
	prompt := fmt.Sprintf(
		"Invent the tile at (%d,%d) in a square world of radius %d. Reply with a JSON object holding \"description\" (one sentence, what any visitor sees) and optional \"secrets\" (array of {\"name\",\"value\"} hidden features worth money).",
		pos.X, pos.Y, worldRadius)
	raw, err := a.invoke(ctx, worldBuilderInstructions, prompt)
	if err != nil {
		return game.Tile{}, err
	}
	doc, err := decodeJSONReply(raw, tileSchema)
	if err != nil {
		return game.Tile{}, fmt.Errorf("tile reply: %w", err)
	}
	var tile game.Tile
	if err := json.Unmarshal(doc, &tile); err != nil {
		return game.Tile{}, fmt.Errorf("decode tile: %w", err)
	}
	tile.Position = pos
	return tile, nil
}

const refereeInstructions = "You are the referee of a turn-based treasure-hunting game. " +
	"You see every player's full state and every tile's hidden secrets. " +
	"Given the players' declared actions for one turn, decide what happens. " +
	"Reply with exactly one JSON object: \"character_state_change\" (one entry per acting player, relative changes only), " +
	"optional \"world_state_change\" (tiles whose description or secrets changed), and \"narrative_result\" (a short story of the turn). " +
	"An empty action string means the player hesitated and nothing happens to them. No text outside the JSON."

const worldBuilderInstructions = "You are the world builder for a turn-based treasure-hunting game. " +
	"Reply with exactly one JSON object and no text outside it."

func renderAdjudicationPrompt(req ports.AdjudicationRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn %d.\n\nPlayers:\n", req.TurnNumber)
	uids := make([]string, 0, len(req.Players))
	for uid := range req.Players {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	for _, uid := range uids {
		p := req.Players[uid]
		fmt.Fprintf(&sb, "- %s at (%d,%d): money=%d health=%d level=%d xp=%d inventory=[%s]\n",
			uid, p.Position.X, p.Position.Y,
			p.Values.Money, p.Values.Health, p.Values.Level, p.Values.Experience,
			strings.Join(p.Values.Inventory, ", "))
	}
	sb.WriteString("\nTiles:\n")
	for _, tile := range req.Tiles {
		fmt.Fprintf(&sb, "- (%d,%d): %s", tile.Position.X, tile.Position.Y, tile.Description)
		for _, s := range tile.Secrets {
			fmt.Fprintf(&sb, " [secret: %s worth %d]", s.Name, s.Value)
		}
		sb.WriteString("\n")
	}
	if req.PriorNarrative != "" {
		fmt.Fprintf(&sb, "\nPreviously: %s\n", req.PriorNarrative)
	}
	sb.WriteString("\nActions:\n")
	for _, uid := range uids {
		if action, ok := req.Actions[uid]; ok {
			fmt.Fprintf(&sb, "- %s: %s\n", uid, action)
		}
	}
	return sb.String()
}

func (a *Adjudicator) invoke(ctx context.Context, instructions, input string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":        a.cfg.Model,
		"instructions": instructions,
		"input":        input,
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoke request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.ResponsesURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	res, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("invoke request status %d: %s", res.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode invoke response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", fmt.Errorf("invoke response missing output text")
	}
	return outputText, nil
}

// decodeJSONReply pulls the JSON object out of a model reply that may wrap
// it in a code fence or surrounding prose, then schema-checks it.
func decodeJSONReply(reply string, schema *jsonschema.Schema) ([]byte, error) {
	doc := extractJSONObject(reply)
	if doc == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("schema check: %w", err)
	}
	return []byte(doc), nil
}

func extractJSONObject(reply string) string {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return ""
	}
	return reply[start : end+1]
}
