package gormrepo

import (
	"context"

	"gorm.io/gorm"
)

// The settled turn and the refreshed game summary must commit together, so
// the open transaction rides the context between the two repositories.
type txCtxKey struct{}

func txContext(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// dbFor picks the transaction bound to ctx, or the base handle outside one.
func dbFor(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txCtxKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return base
}

// TxManager groups repository writes into one database transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return TxManager{db: db}
}

func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txContext(ctx, tx))
	})
}
