package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"

	"github.com/klauspost/compress/zstd"
	"gorm.io/gorm"
)

// TurnRepo persists full turn records. Snapshots dominate row size, so the
// JSON payload is stored zstd-compressed.
type TurnRepo struct {
	db  *gorm.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewTurnRepo(db *gorm.DB) TurnRepo {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	dec, _ := zstd.NewReader(nil)
	return TurnRepo{db: db, enc: enc, dec: dec}
}

type turnPayload struct {
	Actions  map[string]string `json:"actions"`
	Verdict  game.Verdict      `json:"verdict"`
	Snapshot game.Snapshot     `json:"snapshot"`
}

func (r TurnRepo) Append(ctx context.Context, turn game.Turn) error {
	payload, err := json.Marshal(turnPayload{
		Actions:  turn.Actions,
		Verdict:  turn.Verdict,
		Snapshot: turn.Snapshot,
	})
	if err != nil {
		return fmt.Errorf("encode turn payload: %w", err)
	}
	row := turnRow{
		GameID:  turn.GameID,
		Number:  turn.Number,
		Payload: r.enc.EncodeAll(payload, nil),
	}
	if err := dbFor(ctx, r.db).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.ErrConflict
		}
		return err
	}
	return nil
}

func (r TurnRepo) Latest(ctx context.Context, gameID string) (game.Turn, error) {
	var row turnRow
	err := dbFor(ctx, r.db).
		Where(&turnRow{GameID: gameID}).
		Order("number DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.Turn{}, ports.ErrNotFound
		}
		return game.Turn{}, err
	}
	return r.decode(row)
}

func (r TurnRepo) GetByNumber(ctx context.Context, gameID string, number int) (game.Turn, error) {
	var row turnRow
	err := dbFor(ctx, r.db).
		Where("game_id = ? AND number = ?", gameID, number).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.Turn{}, ports.ErrNotFound
		}
		return game.Turn{}, err
	}
	return r.decode(row)
}

func (r TurnRepo) decode(row turnRow) (game.Turn, error) {
	raw, err := r.dec.DecodeAll(row.Payload, nil)
	if err != nil {
		return game.Turn{}, fmt.Errorf("decompress turn %d of %s: %w", row.Number, row.GameID, err)
	}
	var p turnPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return game.Turn{}, fmt.Errorf("decode turn %d of %s: %w", row.Number, row.GameID, err)
	}
	return game.Turn{
		GameID:   row.GameID,
		Number:   row.Number,
		Actions:  p.Actions,
		Verdict:  p.Verdict,
		Snapshot: p.Snapshot,
	}, nil
}
