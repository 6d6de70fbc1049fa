package battle

import (
	"context"
	"sync"
	"time"

	agentstub "coinquest/internal/adapter/agents/scripted"
	judgestub "coinquest/internal/adapter/adjudicator/scripted"
	"coinquest/internal/adapter/repo/memory"
	"coinquest/internal/app/engine"
	"coinquest/internal/app/ports"
)

type stubBackend struct {
	mu sync.Mutex

	battles map[string]ports.BattleConfig

	fetchErr   error
	turnErr    error
	resultErrs int // first N PostResult calls fail

	fetches     int
	endpoints   []string // endpoint of every backend call, in order
	turnEvents  []ports.TurnEvent
	results     []ports.BattleResult
	readyAgents []string
}

func (b *stubBackend) FetchBattle(_ context.Context, endpoint, battleID string) (ports.BattleConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	b.endpoints = append(b.endpoints, endpoint)
	if b.fetchErr != nil {
		return ports.BattleConfig{}, b.fetchErr
	}
	cfg, ok := b.battles[battleID]
	if !ok {
		return ports.BattleConfig{}, ports.ErrNotFound
	}
	return cfg, nil
}

func (b *stubBackend) PostTurnEvent(_ context.Context, endpoint, _ string, event ports.TurnEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints = append(b.endpoints, endpoint)
	if b.turnErr != nil {
		return b.turnErr
	}
	b.turnEvents = append(b.turnEvents, event)
	return nil
}

func (b *stubBackend) PostResult(_ context.Context, endpoint, _ string, result ports.BattleResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints = append(b.endpoints, endpoint)
	if b.resultErrs > 0 {
		b.resultErrs--
		return errBackendDown
	}
	b.results = append(b.results, result)
	return nil
}

func (b *stubBackend) MarkAgentReady(_ context.Context, endpoint, agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints = append(b.endpoints, endpoint)
	b.readyAgents = append(b.readyAgents, agentID)
	return nil
}

func (b *stubBackend) calledEndpoints() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.endpoints))
	copy(out, b.endpoints)
	return out
}

func (b *stubBackend) postedResults() []ports.BattleResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.BattleResult, len(b.results))
	copy(out, b.results)
	return out
}

func (b *stubBackend) postedTurns() []ports.TurnEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.TurnEvent, len(b.turnEvents))
	copy(out, b.turnEvents)
	return out
}

type countingMetrics struct {
	mu         sync.Mutex
	settled    int
	timeouts   int
	completed  int
	errored    int
	duplicates int
	retries    int
}

func (m *countingMetrics) RecordTurnSettled()           { m.mu.Lock(); m.settled++; m.mu.Unlock() }
func (m *countingMetrics) RecordAgentTimeout()          { m.mu.Lock(); m.timeouts++; m.mu.Unlock() }
func (m *countingMetrics) RecordBattleCompleted()       { m.mu.Lock(); m.completed++; m.mu.Unlock() }
func (m *countingMetrics) RecordBattleErrored()         { m.mu.Lock(); m.errored++; m.mu.Unlock() }
func (m *countingMetrics) RecordDuplicateNotification() { m.mu.Lock(); m.duplicates++; m.mu.Unlock() }
func (m *countingMetrics) RecordReportRetry()           { m.mu.Lock(); m.retries++; m.mu.Unlock() }

type errConst string

func (e errConst) Error() string { return string(e) }

const errBackendDown = errConst("backend unavailable")

// fixture wires a real engine over in-memory storage behind the battle
// use case, with scripted agents and a scripted judge.
type fixture struct {
	uc      *UseCase
	backend *stubBackend
	gateway *agentstub.Gateway
	judge   *judgestub.Adjudicator
	metrics *countingMetrics
	store   *memory.Store
}

func newFixture(judge *judgestub.Adjudicator) *fixture {
	store := memory.NewStore()
	gateway := &agentstub.Gateway{Actions: map[string]string{
		"agent-a": "mine the north vein",
		"agent-b": "haggle at the market",
	}}
	backend := &stubBackend{battles: map[string]ports.BattleConfig{
		"b-1": {
			BattleID: "b-1",
			Participants: map[string]string{
				"player_1": "agent-a",
				"player_2": "agent-b",
			},
			MaxTurns:       4,
			WorldRadius:    2,
			CurrencyTarget: 3,
			StartingHealth: 100,
		},
	}}
	metrics := &countingMetrics{}
	eng := &engine.UseCase{
		Agents:    gateway,
		Judge:     judge,
		Games:     memory.NewGameRepo(store),
		Turns:     memory.NewTurnRepo(store),
		TxManager: memory.NewTxManager(store),
		Metrics:   metrics,
		Now:       func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	uc := &UseCase{
		Backend: backend,
		Engine:  eng,
		Agents:  gateway,
		Metrics: metrics,
		Defaults: Defaults{
			MaxTurns:       10,
			WorldRadius:    2,
			VisionRadius:   1,
			CurrencyTarget: 50,
			StartingHealth: 100,
			ActionTimeout:  100 * time.Millisecond,
		},
	}
	return &fixture{uc: uc, backend: backend, gateway: gateway, judge: judge, metrics: metrics, store: store}
}
