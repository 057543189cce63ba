// models/trophy.go
package models

// Trophy is a derived badge. Definitions are static; membership is computed
// from Progress and recorded in Progress.UnlockedTrophyIDs. Trophies are
// never revoked once earned.
type Trophy struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}
