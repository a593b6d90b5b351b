// Package model defines the data structures used throughout the application.
package model

// UserRecord is everything the app knows about one user. It lives in the
// session store under the browser's session id and is rewritten in full by
// every mutating request.
//
// The JSON tags are the persisted layout, so renaming a tag orphans the field
// in every stored session.
type UserRecord struct {
	Name            string         `json:"name"`
	Age             int            `json:"age"`
	ScreenTime      float64        `json:"screen_time"` // self-reported hours per day
	AvatarID        int            `json:"avatar_id"`
	Points          int            `json:"points"`
	UnlockedAvatars []int          `json:"unlocked_avatars"`
	MostUsedApp     string         `json:"most_used_app"`
	TaskCompletions map[string]int `json:"task_completions"` // "task_<id>" → count
	StudySessions   int            `json:"study_sessions"`

	// TotalWellnessTime is minutes spent on wellness tasks. Older records were
	// written before this field existed; they decode to 0.
	TotalWellnessTime int `json:"total_wellness_time"`
}

// NewUserRecord builds the record created at registration: zero progress and
// only the free avatars unlocked.
func NewUserRecord(name string, age int, screenTime float64, avatarID int) *UserRecord {
	return &UserRecord{
		Name:            name,
		Age:             age,
		ScreenTime:      screenTime,
		AvatarID:        avatarID,
		Points:          0,
		UnlockedAvatars: BaseUnlockedAvatars(),
		MostUsedApp:     "",
		TaskCompletions: map[string]int{},
		StudySessions:   0,
	}
}

// Normalize repairs records decoded from older or hand-edited sessions so the
// rest of the code can rely on non-nil collections.
func (u *UserRecord) Normalize() {
	if u.TaskCompletions == nil {
		u.TaskCompletions = map[string]int{}
	}
	if len(u.UnlockedAvatars) == 0 {
		u.UnlockedAvatars = BaseUnlockedAvatars()
	}
	if u.Points < 0 {
		u.Points = 0
	}
}
