package gormrepo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"

	"gorm.io/gorm"
)

func requireDSN(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("COINQUEST_DB_DSN")
	if dsn == "" {
		t.Skip("COINQUEST_DB_DSN is required for integration test")
	}
	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db, "../../../../migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func cleanupGame(t *testing.T, db *gorm.DB, gameID string) {
	t.Helper()
	_ = db.Exec("DELETE FROM turns WHERE game_id = ?", gameID).Error
	_ = db.Exec("DELETE FROM games WHERE id = ?", gameID).Error
}

func TestGameRepo_SaveIsUpsert(t *testing.T) {
	db := requireDSN(t)
	ctx := context.Background()
	gameID := "it-game-upsert"
	cleanupGame(t, db, gameID)

	repo := NewGameRepo(db)
	seed := ports.GameSummary{
		ID:             gameID,
		Name:           "integration game",
		Status:         game.StatusRunning,
		WorldRadius:    3,
		CurrencyTarget: 100,
		MaxTurns:       20,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := repo.Save(ctx, seed); err != nil {
		t.Fatalf("save: %v", err)
	}

	seed.Status = game.StatusCompleted
	seed.Winner = "player_1"
	seed.TurnsPlayed = 7
	seed.EndReason = "currency target reached"
	if err := repo.Save(ctx, seed); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := repo.GetByID(ctx, gameID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != game.StatusCompleted || got.Winner != "player_1" || got.TurnsPlayed != 7 {
		t.Fatalf("unexpected summary after upsert: %+v", got)
	}

	if _, err := repo.GetByID(ctx, "it-no-such-game"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTurnRepo_AppendOnlyRoundTrip(t *testing.T) {
	db := requireDSN(t)
	ctx := context.Background()
	gameID := "it-turn-roundtrip"
	cleanupGame(t, db, gameID)

	repo := NewTurnRepo(db)
	turn := game.Turn{
		GameID:  gameID,
		Number:  1,
		Actions: map[string]string{"player_1": "dig for coins"},
		Verdict: game.Verdict{
			Players:   []game.PlayerDelta{{UID: "player_1", MoneyChange: 5}},
			Narrative: "a glint of gold in the dirt",
		},
		Snapshot: game.Snapshot{
			Players: map[string]game.Player{
				"player_1": {
					UID:    "player_1",
					Values: game.Values{Money: 5, Health: 100, Inventory: []string{"shovel"}},
				},
			},
			Tiles: []game.Tile{{
				Position:    game.Position{X: 0, Y: 0},
				Description: "open plains",
				Secrets:     []game.Secret{{Name: "buried coin", Value: 1}},
			}},
			Narrative: "a glint of gold in the dirt",
		},
	}
	if err := repo.Append(ctx, turn); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, turn); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("re-append: expected ErrConflict, got %v", err)
	}

	got, err := repo.GetByNumber(ctx, gameID, 1)
	if err != nil {
		t.Fatalf("get by number: %v", err)
	}
	if got.Actions["player_1"] != "dig for coins" {
		t.Fatalf("actions did not round-trip: %+v", got.Actions)
	}
	if got.Snapshot.Players["player_1"].Values.Money != 5 {
		t.Fatalf("snapshot did not round-trip: %+v", got.Snapshot)
	}
	if len(got.Snapshot.Tiles) != 1 || got.Snapshot.Tiles[0].Secrets[0].Name != "buried coin" {
		t.Fatalf("tile secrets did not round-trip: %+v", got.Snapshot.Tiles)
	}

	turn.Number = 2
	turn.Snapshot.Narrative = "the hole deepens"
	if err := repo.Append(ctx, turn); err != nil {
		t.Fatalf("append turn 2: %v", err)
	}
	latest, err := repo.Latest(ctx, gameID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Number != 2 || latest.Snapshot.Narrative != "the hole deepens" {
		t.Fatalf("latest returned wrong turn: %+v", latest)
	}
}

func TestTxManager_RollsBackTurnAndSummaryTogether(t *testing.T) {
	db := requireDSN(t)
	ctx := context.Background()
	gameID := "it-tx-rollback"
	cleanupGame(t, db, gameID)

	games := NewGameRepo(db)
	turns := NewTurnRepo(db)
	tm := NewTxManager(db)

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		if err := games.Save(ctx, ports.GameSummary{ID: gameID, Status: game.StatusRunning, UpdatedAt: time.Now().UTC()}); err != nil {
			return err
		}
		if err := turns.Append(ctx, game.Turn{GameID: gameID, Number: 0}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := games.GetByID(ctx, gameID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("game row survived rollback: %v", err)
	}
	if _, err := turns.Latest(ctx, gameID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("turn row survived rollback: %v", err)
	}
}
