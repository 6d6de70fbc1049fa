package game

import "fmt"

const DrawWinner = ""

// Rules are the termination parameters of one game.
type Rules struct {
	CurrencyTarget int
	MaxTurns       int
}

// Outcome is the result of evaluating termination after a turn.
type Outcome struct {
	Over   bool
	Reason string
	Winner string // uid; DrawWinner when nobody wins
}

// EvaluateEnd checks the three termination conditions in priority order:
// currency target, all players inactive, max turns. The winner is always the
// richest active player, ties broken by lowest uid; with no active players
// the game is a draw.
func (r Rules) EvaluateEnd(s *State) Outcome {
	active := s.ActiveUIDs()

	if r.CurrencyTarget > 0 {
		for _, uid := range active {
			if s.Players[uid].Values.Money >= r.CurrencyTarget {
				winner := richestActive(s)
				return Outcome{
					Over:   true,
					Reason: fmt.Sprintf("currency target %d reached", r.CurrencyTarget),
					Winner: winner,
				}
			}
		}
	}

	if len(active) == 0 {
		return Outcome{Over: true, Reason: "all players inactive", Winner: DrawWinner}
	}

	if r.MaxTurns > 0 && s.TurnNumber >= r.MaxTurns {
		return Outcome{Over: true, Reason: "max turns reached", Winner: richestActive(s)}
	}

	return Outcome{}
}

// richestActive picks the active player with the most money; equal money
// resolves to the lowest uid because ActiveUIDs is sorted.
func richestActive(s *State) string {
	winner := DrawWinner
	best := -1
	for _, uid := range s.ActiveUIDs() {
		if money := s.Players[uid].Values.Money; money > best {
			best = money
			winner = uid
		}
	}
	return winner
}
