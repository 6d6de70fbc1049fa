package inmemory

import "sync"

type Snapshot struct {
	TurnsSettled           uint64 `json:"turns_settled"`
	AgentTimeouts          uint64 `json:"agent_timeouts"`
	BattlesCompleted       uint64 `json:"battles_completed"`
	BattlesErrored         uint64 `json:"battles_errored"`
	BattlesTotal           uint64 `json:"battles_total"`
	DuplicateNotifications uint64 `json:"duplicate_notifications"`
	ReportRetries          uint64 `json:"report_retries"`
}

type Recorder struct {
	mu         sync.Mutex
	turns      uint64
	timeouts   uint64
	completed  uint64
	errored    uint64
	duplicates uint64
	retries    uint64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordTurnSettled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns++
}

func (r *Recorder) RecordAgentTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts++
}

func (r *Recorder) RecordBattleCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *Recorder) RecordBattleErrored() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errored++
}

func (r *Recorder) RecordDuplicateNotification() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates++
}

func (r *Recorder) RecordReportRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		TurnsSettled:           r.turns,
		AgentTimeouts:          r.timeouts,
		BattlesCompleted:       r.completed,
		BattlesErrored:         r.errored,
		BattlesTotal:           r.completed + r.errored,
		DuplicateNotifications: r.duplicates,
		ReportRetries:          r.retries,
	}
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
