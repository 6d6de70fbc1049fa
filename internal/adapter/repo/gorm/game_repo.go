package gormrepo

import (
	"context"
	"errors"
	"strings"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GameRepo struct {
	db *gorm.DB
}

func NewGameRepo(db *gorm.DB) GameRepo {
	return GameRepo{db: db}
}

func (r GameRepo) Save(ctx context.Context, summary ports.GameSummary) error {
	row := gameRow{
		ID:             summary.ID,
		Name:           summary.Name,
		Status:         string(summary.Status),
		WorldRadius:    summary.WorldRadius,
		CurrencyTarget: summary.CurrencyTarget,
		MaxTurns:       summary.MaxTurns,
		Winner:         summary.Winner,
		TurnsPlayed:    summary.TurnsPlayed,
		EndReason:      summary.EndReason,
		UpdatedAt:      summary.UpdatedAt,
	}
	return dbFor(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (r GameRepo) GetByID(ctx context.Context, gameID string) (ports.GameSummary, error) {
	var row gameRow
	if err := dbFor(ctx, r.db).Where(&gameRow{ID: gameID}).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.GameSummary{}, ports.ErrNotFound
		}
		return ports.GameSummary{}, err
	}
	return ports.GameSummary{
		ID:             row.ID,
		Name:           row.Name,
		Status:         game.Status(row.Status),
		WorldRadius:    row.WorldRadius,
		CurrencyTarget: row.CurrencyTarget,
		MaxTurns:       row.MaxTurns,
		Winner:         row.Winner,
		TurnsPlayed:    row.TurnsPlayed,
		EndReason:      row.EndReason,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
