package memory

import (
	"context"
	"sync"
)

// TxManager serializes transactional sections against each other. The
// per-table locking in the repos keeps plain reads consistent on their own.
type TxManager struct {
	store *Store
	txMu  sync.Mutex
}

func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

func (t *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	return fn(ctx)
}
