package ports

import (
	"context"
	"time"

	"coinquest/internal/domain/game"
)

// GameSummary is the durable metadata row for one game.
type GameSummary struct {
	ID             string
	Name           string
	Status         game.Status
	WorldRadius    int
	CurrencyTarget int
	MaxTurns       int
	Winner         string
	TurnsPlayed    int
	EndReason      string
	UpdatedAt      time.Time
}

type GameRepository interface {
	Save(ctx context.Context, summary GameSummary) error
	GetByID(ctx context.Context, gameID string) (GameSummary, error)
}

// TurnRepository is append-only: a turn, once written, is never updated.
type TurnRepository interface {
	Append(ctx context.Context, turn game.Turn) error
	Latest(ctx context.Context, gameID string) (game.Turn, error)
	GetByNumber(ctx context.Context, gameID string, number int) (game.Turn, error)
}

type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
