package replay

import (
	"context"
	"errors"
	"strings"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

var ErrInvalidRequest = errors.New("invalid replay request")

type Request struct {
	GameID string
	// Turn selects a single turn. Negative means the latest turn.
	Turn int
}

type Response struct {
	Turn game.Turn `json:"turn"`
}

// UseCase reads back the immutable turn history. Turn 0 is the generated
// world before anyone acted.
type UseCase struct {
	Turns ports.TurnRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return Response{}, ErrInvalidRequest
	}
	var (
		turn game.Turn
		err  error
	)
	if req.Turn < 0 {
		turn, err = u.Turns.Latest(ctx, req.GameID)
	} else {
		turn, err = u.Turns.GetByNumber(ctx, req.GameID, req.Turn)
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Turn: turn}, nil
}
