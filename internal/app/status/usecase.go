package status

import (
	"context"
	"errors"
	"strings"

	"coinquest/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid status request")

type Request struct {
	GameID string
}

type Response struct {
	Game ports.GameSummary `json:"game"`
}

// UseCase answers "how is this game doing" from the durable summary row, so
// it works for finished games long after the engine instance is gone.
type UseCase struct {
	Games ports.GameRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return Response{}, ErrInvalidRequest
	}
	summary, err := u.Games.GetByID(ctx, req.GameID)
	if err != nil {
		return Response{}, err
	}
	return Response{Game: summary}, nil
}
