package game

import "sort"

type Status string

const (
	StatusPending      Status = "pending"
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// State is the mutable world+player state of one game. It is owned by a
// single engine instance; nothing else writes to it.
type State struct {
	GameID      string
	Name        string
	Status      Status
	WorldRadius int

	Players map[string]*Player
	Tiles   map[Position]*Tile

	TurnNumber    int
	LastNarrative string

	Winner    string
	EndReason string
}

// Snapshot is a deep, read-only copy of players and tiles taken after a
// verdict has been applied. Stored on every Turn.
type Snapshot struct {
	Players   map[string]Player `json:"players"`
	Tiles     []Tile            `json:"tiles"`
	Narrative string            `json:"narrative"`
}

// Turn is one immutable record of an action batch, its verdict, and the
// resulting snapshot.
type Turn struct {
	GameID   string            `json:"game_id"`
	Number   int               `json:"turn_number"`
	Actions  map[string]string `json:"actions"`
	Verdict  Verdict           `json:"verdict"`
	Snapshot Snapshot          `json:"snapshot"`
}

func (s *State) InBounds(p Position) bool {
	return Chebyshev(p, Position{}) <= s.WorldRadius
}

// SortedUIDs returns every player uid in stable order.
func (s *State) SortedUIDs() []string {
	uids := make([]string, 0, len(s.Players))
	for uid := range s.Players {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// ActiveUIDs returns the uids of players still able to act, in stable order.
func (s *State) ActiveUIDs() []string {
	uids := make([]string, 0, len(s.Players))
	for uid, p := range s.Players {
		if p.Active() {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids
}

// VisibleTiles returns public copies of the tiles within vision of center,
// ordered by position for prompt stability.
func (s *State) VisibleTiles(center Position, vision int) []Tile {
	tiles := make([]Tile, 0, (2*vision+1)*(2*vision+1))
	for dx := -vision; dx <= vision; dx++ {
		for dy := -vision; dy <= vision; dy++ {
			pos := Position{X: center.X + dx, Y: center.Y + dy}
			if !s.InBounds(pos) {
				continue
			}
			if t, ok := s.Tiles[pos]; ok {
				tiles = append(tiles, t.Public())
			}
		}
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Position.X != tiles[j].Position.X {
			return tiles[i].Position.X < tiles[j].Position.X
		}
		return tiles[i].Position.Y < tiles[j].Position.Y
	})
	return tiles
}

// TakeSnapshot deep-copies the current players and tiles.
func (s *State) TakeSnapshot() Snapshot {
	snap := Snapshot{
		Players:   make(map[string]Player, len(s.Players)),
		Tiles:     make([]Tile, 0, len(s.Tiles)),
		Narrative: s.LastNarrative,
	}
	for uid, p := range s.Players {
		snap.Players[uid] = copyPlayer(*p)
	}
	for _, t := range s.Tiles {
		snap.Tiles = append(snap.Tiles, copyTile(*t))
	}
	sort.Slice(snap.Tiles, func(i, j int) bool {
		if snap.Tiles[i].Position.X != snap.Tiles[j].Position.X {
			return snap.Tiles[i].Position.X < snap.Tiles[j].Position.X
		}
		return snap.Tiles[i].Position.Y < snap.Tiles[j].Position.Y
	})
	return snap
}

func copyPlayer(p Player) Player {
	p.Values.Inventory = append([]string(nil), p.Values.Inventory...)
	p.Responses = append([]string(nil), p.Responses...)
	return p
}

func copyTile(t Tile) Tile {
	t.Secrets = append([]Secret(nil), t.Secrets...)
	return t
}
