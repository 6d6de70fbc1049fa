package gormrepo

import "time"

// gameRow mirrors the games table. One row per battle, updated in place.
type gameRow struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	Status         string
	WorldRadius    int
	CurrencyTarget int
	MaxTurns       int
	Winner         string
	TurnsPlayed    int
	EndReason      string
	UpdatedAt      time.Time
}

func (gameRow) TableName() string { return "games" }

// turnRow mirrors the turns table. Rows are append-only; Payload holds the
// zstd-compressed JSON of actions, verdict, and snapshot.
type turnRow struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	GameID  string `gorm:"uniqueIndex:idx_turns_game_number"`
	Number  int    `gorm:"uniqueIndex:idx_turns_game_number"`
	Payload []byte
}

func (turnRow) TableName() string { return "turns" }
