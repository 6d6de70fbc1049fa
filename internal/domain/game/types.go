package game

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Chebyshev distance; both world bounds and vision windows use it so a
// "radius" always means the same square neighborhood.
func Chebyshev(a, b Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

type Secret struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Tile struct {
	Position    Position `json:"position"`
	Description string   `json:"description"`
	Secrets     []Secret `json:"secrets,omitempty"`
}

// Public returns the tile as players may see it: secrets stripped.
func (t Tile) Public() Tile {
	return Tile{Position: t.Position, Description: t.Description}
}

type Values struct {
	Money      int      `json:"money"`
	Health     int      `json:"health"`
	Inventory  []string `json:"inventory,omitempty"`
	Level      int      `json:"level,omitempty"`
	Experience int      `json:"experience,omitempty"`
}

type Player struct {
	UID       string   `json:"uid"`
	Position  Position `json:"position"`
	Model     string   `json:"model,omitempty"`
	Values    Values   `json:"values"`
	Responses []string `json:"responses"`
}

// Active reports whether the player can still act. Health is clamped at 0
// during verdict application, so once false this never flips back.
func (p Player) Active() bool {
	return p.Values.Health > 0
}

func (p *Player) RecordResponse(action string) {
	p.Responses = append(p.Responses, action)
}
