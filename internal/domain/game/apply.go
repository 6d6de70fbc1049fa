package game

import (
	"errors"
	"fmt"
)

var ErrInvalidVerdict = errors.New("invalid verdict")

// VerdictValidationError reports which parts of a verdict the state cannot
// accept. It unwraps to ErrInvalidVerdict.
type VerdictValidationError struct {
	UnknownUIDs  []string
	MissingUIDs  []string
	UnknownTiles []Position
}

func (e *VerdictValidationError) Error() string {
	return fmt.Sprintf("invalid verdict: unknown uids %v, missing uids %v, unknown tiles %v",
		e.UnknownUIDs, e.MissingUIDs, e.UnknownTiles)
}

func (e *VerdictValidationError) Unwrap() error { return ErrInvalidVerdict }

// ValidateVerdict enforces the adjudicator contract: a delta for every uid
// that acted, no delta for an unknown uid, and no tile update outside the
// known world. Narrative is advisory and never validated.
func (s *State) ValidateVerdict(v Verdict, actions map[string]string) error {
	verr := &VerdictValidationError{}
	seen := map[string]bool{}
	for _, d := range v.Players {
		if _, ok := s.Players[d.UID]; !ok {
			verr.UnknownUIDs = append(verr.UnknownUIDs, d.UID)
			continue
		}
		seen[d.UID] = true
	}
	for uid := range actions {
		if !seen[uid] {
			verr.MissingUIDs = append(verr.MissingUIDs, uid)
		}
	}
	for _, tu := range v.Tiles {
		if _, ok := s.Tiles[tu.Position]; !ok {
			verr.UnknownTiles = append(verr.UnknownTiles, tu.Position)
		}
	}
	if len(verr.UnknownUIDs) > 0 || len(verr.MissingUIDs) > 0 || len(verr.UnknownTiles) > 0 {
		return verr
	}
	return nil
}

// SanitizeVerdict drops deltas for unknown uids and updates for unknown
// tiles, and fills a zero-valued delta for any acting uid the adjudicator
// skipped. The result always validates.
func (s *State) SanitizeVerdict(v Verdict, actions map[string]string) Verdict {
	out := Verdict{Narrative: v.Narrative}
	seen := map[string]bool{}
	for _, d := range v.Players {
		if _, ok := s.Players[d.UID]; !ok {
			continue
		}
		if seen[d.UID] {
			continue
		}
		seen[d.UID] = true
		out.Players = append(out.Players, d)
	}
	for uid := range actions {
		if !seen[uid] {
			out.Players = append(out.Players, PlayerDelta{UID: uid})
		}
	}
	for _, tu := range v.Tiles {
		if _, ok := s.Tiles[tu.Position]; !ok {
			continue
		}
		out.Tiles = append(out.Tiles, tu)
	}
	return out
}

// ApplyVerdict applies every delta as one unit: it validates first, builds
// the next player/tile maps on copies, and swaps them in only when the whole
// verdict landed. A failed validation leaves the state untouched, and a
// concurrent reader observes either the pre-turn or the fully applied state.
func (s *State) ApplyVerdict(v Verdict, actions map[string]string) error {
	if err := s.ValidateVerdict(v, actions); err != nil {
		return err
	}

	nextPlayers := make(map[string]*Player, len(s.Players))
	for uid, p := range s.Players {
		cp := copyPlayer(*p)
		nextPlayers[uid] = &cp
	}
	nextTiles := make(map[Position]*Tile, len(s.Tiles))
	for pos, t := range s.Tiles {
		ct := copyTile(*t)
		nextTiles[pos] = &ct
	}

	for _, d := range v.Players {
		applyPlayerDelta(nextPlayers[d.UID], d, s.WorldRadius)
	}
	for _, tu := range v.Tiles {
		t := nextTiles[tu.Position]
		t.Description = tu.Description
		if len(tu.Secrets) > 0 {
			t.Secrets = append([]Secret(nil), tu.Secrets...)
		}
	}

	s.Players = nextPlayers
	s.Tiles = nextTiles
	s.LastNarrative = v.Narrative
	return nil
}

func applyPlayerDelta(p *Player, d PlayerDelta, radius int) {
	// A player who already dropped to zero health stays out of the game;
	// a later verdict cannot revive or move them.
	if !p.Active() {
		return
	}

	p.Values.Money += d.MoneyChange
	if p.Values.Money < 0 {
		p.Values.Money = 0
	}
	p.Values.Health += d.HealthChange
	if p.Values.Health < 0 {
		p.Values.Health = 0
	}
	p.Values.Experience += d.ExperienceChange
	if p.Values.Experience < 0 {
		p.Values.Experience = 0
	}

	if d.PositionChange != nil {
		next := p.Position.Add(*d.PositionChange)
		if Chebyshev(next, Position{}) <= radius {
			p.Position = next
		}
	}

	if len(d.InventoryAdd) > 0 {
		p.Values.Inventory = append(p.Values.Inventory, d.InventoryAdd...)
	}
	for _, item := range d.InventoryRemove {
		for i, have := range p.Values.Inventory {
			if have == item {
				p.Values.Inventory = append(p.Values.Inventory[:i], p.Values.Inventory[i+1:]...)
				break
			}
		}
	}
}
