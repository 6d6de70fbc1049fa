package game

// PlayerDelta is one player's slice of a verdict. All numeric fields are
// relative changes; the engine is the only writer of absolute state.
type PlayerDelta struct {
	UID              string    `json:"uid"`
	MoneyChange      int       `json:"money_change"`
	HealthChange     int       `json:"health_change"`
	PositionChange   *Position `json:"position_change,omitempty"`
	ExperienceChange int       `json:"experience_change,omitempty"`
	InventoryAdd     []string  `json:"inventory_add,omitempty"`
	InventoryRemove  []string  `json:"inventory_remove,omitempty"`
}

type TileUpdate struct {
	Position    Position `json:"position"`
	Description string   `json:"description"`
	Secrets     []Secret `json:"secrets,omitempty"`
}

type Verdict struct {
	Players   []PlayerDelta `json:"character_state_change"`
	Tiles     []TileUpdate  `json:"world_state_change,omitempty"`
	Narrative string        `json:"narrative_result"`
}

// DeltaFor returns the delta addressed to uid, if any.
func (v Verdict) DeltaFor(uid string) (PlayerDelta, bool) {
	for _, d := range v.Players {
		if d.UID == uid {
			return d, true
		}
	}
	return PlayerDelta{}, false
}
