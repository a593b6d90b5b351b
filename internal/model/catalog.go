package model

// Avatar is a cosmetic character a user can pick.
//
// Locked is informational only (it drives the padlock on the login page).
// Whether a particular user may pick the avatar is decided from their points,
// see UnlockedFor.
type Avatar struct {
	ID             int    `json:"id"              yaml:"id"`
	Name           string `json:"name"            yaml:"name"`
	Locked         bool   `json:"locked"          yaml:"locked"`
	PointsRequired int    `json:"points_required" yaml:"points_required"`
}

// WellnessTask is an activity that earns points per minute spent on it.
type WellnessTask struct {
	ID          int    `json:"id"          yaml:"id"`
	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
}
