package main

import (
	"context"
	"log"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	judgellm "coinquest/internal/adapter/adjudicator/llm"
	judgescripted "coinquest/internal/adapter/adjudicator/scripted"
	"coinquest/internal/adapter/agents/a2a"
	agentscripted "coinquest/internal/adapter/agents/scripted"
	"coinquest/internal/adapter/backend/agentbeats"
	httpadapter "coinquest/internal/adapter/http"
	metricsinmem "coinquest/internal/adapter/metrics/inmemory"
	gormrepo "coinquest/internal/adapter/repo/gorm"
	"coinquest/internal/adapter/repo/memory"
	"coinquest/internal/app/battle"
	"coinquest/internal/app/engine"
	"coinquest/internal/app/ports"
	"coinquest/internal/app/replay"
	"coinquest/internal/app/status"
	"coinquest/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	arena, err := config.LoadArena(cfg.ArenaFile)
	if err != nil {
		log.Fatalf("load arena config: %v", err)
	}

	games, turns, txManager := mustBuildRepos(cfg)
	kpiRecorder := metricsinmem.NewRecorder()

	backend := agentbeats.NewClient(cfg.BackendURL, nil)
	backend.Metrics = kpiRecorder

	agents, judge := buildAgentsAndJudge(cfg, backend)

	eng := &engine.UseCase{
		Agents:    agents,
		Judge:     judge,
		Games:     games,
		Turns:     turns,
		TxManager: txManager,
		Metrics:   kpiRecorder,
		Now:       time.Now,
	}
	battleUC := &battle.UseCase{
		Backend: backend,
		Engine:  eng,
		Agents:  agents,
		Metrics: kpiRecorder,
		Defaults: battle.Defaults{
			MaxTurns:       arena.MaxTurns,
			WorldRadius:    arena.WorldRadius,
			VisionRadius:   arena.VisionRadius,
			CurrencyTarget: arena.CurrencyTarget,
			StartingMoney:  arena.StartingMoney,
			StartingHealth: arena.StartingHealth,
			ActionTimeout:  arena.ActionTimeout(),
		},
	}

	h := httpadapter.Handler{
		Battle:   battleUC,
		StatusUC: status.UseCase{Games: games},
		ReplayUC: replay.UseCase{Turns: turns},
		KPI:      kpiRecorder,
		AgentID:  cfg.AgentID,
	}

	s := server.Default(server.WithHostPorts(cfg.ListenAddr))
	h.RegisterRoutes(s)

	log.Printf("coinquest judge listening on %s (mode=%s)", cfg.ListenAddr, cfg.Mode)
	s.Spin()
}

func mustBuildRepos(cfg config.Config) (ports.GameRepository, ports.TurnRepository, ports.TxManager) {
	if cfg.DBDSN == "" {
		log.Println("COINQUEST_DB_DSN not set, using in-memory storage")
		store := memory.NewStore()
		return memory.NewGameRepo(store), memory.NewTurnRepo(store), memory.NewTxManager(store)
	}

	db, err := gormrepo.OpenPostgres(cfg.DBDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gormrepo.ApplyMigrations(context.Background(), db, cfg.MigrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	return gormrepo.NewGameRepo(db), gormrepo.NewTurnRepo(db), gormrepo.NewTxManager(db)
}

func buildAgentsAndJudge(cfg config.Config, backend *agentbeats.Client) (ports.AgentGateway, ports.Adjudicator) {
	if cfg.Mode == "mock" {
		return &agentscripted.Gateway{}, &judgescripted.Adjudicator{}
	}

	gateway := a2a.NewGateway(nil, nil)
	gateway.Resolve = backend.AgentURL
	judge := judgellm.NewAdjudicator(judgellm.Config{
		ResponsesURL: cfg.ResponsesURL,
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.JudgeModel,
	})
	return gateway, judge
}
