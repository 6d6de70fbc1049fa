package game

import "testing"

func TestEvaluateEnd_CurrencyTarget(t *testing.T) {
	s := twoPlayerState()
	s.Players["player_1"].Values.Money = 51

	out := Rules{CurrencyTarget: 50, MaxTurns: 10}.EvaluateEnd(s)
	if !out.Over {
		t.Fatal("expected game over")
	}
	if out.Winner != "player_1" {
		t.Fatalf("winner = %q, want player_1", out.Winner)
	}
}

func TestEvaluateEnd_TieBreakLowestUID(t *testing.T) {
	s := twoPlayerState()
	s.Players["player_1"].Values.Money = 60
	s.Players["player_2"].Values.Money = 60

	for range 5 {
		out := Rules{CurrencyTarget: 50}.EvaluateEnd(s)
		if !out.Over || out.Winner != "player_1" {
			t.Fatalf("tie must resolve to lowest uid, got over=%v winner=%q", out.Over, out.Winner)
		}
	}
}

func TestEvaluateEnd_DeadPlayerCannotWin(t *testing.T) {
	s := twoPlayerState()
	s.Players["player_1"].Values.Money = 200
	s.Players["player_1"].Values.Health = 0
	s.Players["player_2"].Values.Money = 55

	out := Rules{CurrencyTarget: 50}.EvaluateEnd(s)
	if !out.Over || out.Winner != "player_2" {
		t.Fatalf("expected player_2 to win, got over=%v winner=%q", out.Over, out.Winner)
	}
}

func TestEvaluateEnd_AllInactiveIsDraw(t *testing.T) {
	s := twoPlayerState()
	s.Players["player_1"].Values.Health = 0
	s.Players["player_2"].Values.Health = 0

	out := Rules{CurrencyTarget: 50, MaxTurns: 10}.EvaluateEnd(s)
	if !out.Over || out.Winner != DrawWinner {
		t.Fatalf("expected draw, got over=%v winner=%q", out.Over, out.Winner)
	}
	if out.Reason != "all players inactive" {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestEvaluateEnd_MaxTurnsPicksRichestActive(t *testing.T) {
	s := twoPlayerState()
	s.TurnNumber = 10
	s.Players["player_2"].Values.Money = 30

	out := Rules{CurrencyTarget: 100, MaxTurns: 10}.EvaluateEnd(s)
	if !out.Over || out.Winner != "player_2" {
		t.Fatalf("expected player_2 at max turns, got over=%v winner=%q", out.Over, out.Winner)
	}
}

func TestEvaluateEnd_NotOverMidGame(t *testing.T) {
	s := twoPlayerState()
	s.TurnNumber = 3
	if out := (Rules{CurrencyTarget: 100, MaxTurns: 10}).EvaluateEnd(s); out.Over {
		t.Fatalf("game should continue, got %+v", out)
	}
}

func TestVisibleTiles_StripsSecretsAndHonorsBounds(t *testing.T) {
	s := twoPlayerState()
	s.Tiles[Position{X: 1, Y: 1}].Secrets = []Secret{{Name: "gold", Value: 10}}

	tiles := s.VisibleTiles(Position{X: 2, Y: 2}, 1)
	for _, tile := range tiles {
		if len(tile.Secrets) != 0 {
			t.Fatalf("secrets leaked for tile %+v", tile.Position)
		}
		if Chebyshev(tile.Position, Position{}) > s.WorldRadius {
			t.Fatalf("tile %+v outside world", tile.Position)
		}
	}
	// corner of a radius-2 world sees a 2x2 window at vision 1
	if len(tiles) != 4 {
		t.Fatalf("expected 4 visible tiles at the corner, got %d", len(tiles))
	}
}
