// models/achievement.go
package models

// Category groups achievements on the map.
type Category string

const (
	CategoryGeneral     Category = "General"
	CategoryAcademic    Category = "Academic"
	CategorySocial      Category = "Social"
	CategoryExploration Category = "Exploration"
)

// Categories lists every valid category, in display order.
var Categories = []Category{CategoryGeneral, CategoryAcademic, CategorySocial, CategoryExploration}

// Kind affects presentation and whether the co-op invite flow applies.
type Kind string

const (
	KindRoot      Kind = "Root"
	KindTask      Kind = "Task"
	KindGoal      Kind = "Goal"
	KindChallenge Kind = "Challenge"
	KindCoop      Kind = "Coop"
)

// AchievementDefinition is one node of the static catalog. The catalog is
// immutable at runtime, so definitions live in memory rather than in a table.
type AchievementDefinition struct {
	ID          string   `json:"id"`
	ParentID    string   `json:"parent_id,omitempty"` // lineage for display only, never gates unlocking
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
	Kind        Kind     `json:"kind"`
	XP          int      `json:"xp"`
	// RequiredCodeCount is the number of distinct scan codes that must be
	// collected before the client offers the unlock action. 0 means the
	// achievement has no scan component.
	RequiredCodeCount int `json:"required_code_count,omitempty"`
	// Map placement hints for the client renderer.
	MapX float64 `json:"map_x,omitempty"`
	MapY float64 `json:"map_y,omitempty"`
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidKind reports whether k is a known achievement kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindRoot, KindTask, KindGoal, KindChallenge, KindCoop:
		return true
	}
	return false
}
