// Package config loads server settings from the environment and arena
// tuning from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `env:"COINQUEST_LISTEN_ADDR" envDefault:":8080"`
	// Mode selects the agent and judge wiring: "live" talks to real agents
	// and a real model, "mock" runs fully scripted.
	Mode          string `env:"COINQUEST_MODE" envDefault:"live"`
	DBDSN         string `env:"COINQUEST_DB_DSN"`
	MigrationsDir string `env:"COINQUEST_MIGRATIONS_DIR" envDefault:"./migrations"`

	BackendURL string `env:"COINQUEST_BACKEND_URL" envDefault:"https://agentbeats.org/api"`
	AgentID    string `env:"COINQUEST_AGENT_ID"`

	JudgeModel   string `env:"COINQUEST_JUDGE_MODEL" envDefault:"gpt-4o-mini"`
	ResponsesURL string `env:"COINQUEST_RESPONSES_URL"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	ArenaFile string `env:"COINQUEST_ARENA_FILE"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Arena holds the game parameters used when a battle's task config leaves
// them unset.
type Arena struct {
	MaxTurns             int `yaml:"max_turns"`
	WorldRadius          int `yaml:"world_radius"`
	VisionRadius         int `yaml:"vision_radius"`
	CurrencyTarget       int `yaml:"currency_target"`
	StartingMoney        int `yaml:"starting_money"`
	StartingHealth       int `yaml:"starting_health"`
	ActionTimeoutSeconds int `yaml:"action_timeout_seconds"`
}

func DefaultArena() Arena {
	return Arena{
		MaxTurns:             10,
		WorldRadius:          2,
		VisionRadius:         1,
		CurrencyTarget:       300,
		StartingMoney:        100,
		StartingHealth:       100,
		ActionTimeoutSeconds: 60,
	}
}

// LoadArena reads path over the defaults; an empty path returns defaults.
func LoadArena(path string) (Arena, error) {
	arena := DefaultArena()
	if path == "" {
		return arena, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Arena{}, fmt.Errorf("read arena file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &arena); err != nil {
		return Arena{}, fmt.Errorf("parse arena file: %w", err)
	}
	return arena, nil
}

func (a Arena) ActionTimeout() time.Duration {
	return time.Duration(a.ActionTimeoutSeconds) * time.Second
}
