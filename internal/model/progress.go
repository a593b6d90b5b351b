package model

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/sakif/wellness-tracker/internal/apperror"
)

// Scoring rules. All point arithmetic in the app goes through the methods
// below so the numbers live in one place.
const (
	PointsPerTaskMinute = 2
	StudySessionPoints  = 10
	StopStudyPenalty    = 5
	MostUsedAppBonus    = 20

	// PointsPerUnlock is the unlock threshold: every full 50 points makes one
	// more avatar available, up to MaxExtraUnlocks beyond the free ones.
	PointsPerUnlock = 50
	MaxExtraUnlocks = 7

	firstLockedAvatarID = 4
)

// bonusAppNames are the answers that count as "this app" for the most-used-app
// question. Compared lower-cased.
var bonusAppNames = []string{"wellness app", "this app", "this one"}

// BaseUnlockedAvatars returns a fresh copy of the always-free avatar ids.
func BaseUnlockedAvatars() []int {
	return []int{1, 2, 3}
}

// UnlockedFor returns the avatar ids available at the given point total:
// {1,2,3} ∪ {4 .. 3+min(points/50, 7)}.
func UnlockedFor(points int) []int {
	unlocked := BaseUnlockedAvatars()
	if points < 0 {
		return unlocked
	}
	extra := min(points/PointsPerUnlock, MaxExtraUnlocks)
	for i := 0; i < extra; i++ {
		unlocked = append(unlocked, firstLockedAvatarID+i)
	}
	return unlocked
}

// TaskKey is the task_completions key for a task id.
func TaskKey(taskID int) string {
	return fmt.Sprintf("task_%d", taskID)
}

// RecomputeUnlocks replaces UnlockedAvatars with the set derived from Points.
// Anything unlocked by other means is dropped.
func (u *UserRecord) RecomputeUnlocks() {
	u.UnlockedAvatars = UnlockedFor(u.Points)
}

// IsUnlocked reports whether the avatar id is in the stored unlocked set.
func (u *UserRecord) IsUnlocked(avatarID int) bool {
	return slices.Contains(u.UnlockedAvatars, avatarID)
}

// CompleteTask credits a finished wellness task and returns the points earned.
func (u *UserRecord) CompleteTask(taskID, minutes int) int {
	if minutes < 0 {
		minutes = 0
	}
	earned := math.MaxInt
	if minutes <= math.MaxInt/PointsPerTaskMinute {
		earned = minutes * PointsPerTaskMinute
	}
	u.Points = addCapped(u.Points, earned)
	u.TotalWellnessTime = addCapped(u.TotalWellnessTime, minutes)

	if u.TaskCompletions == nil {
		u.TaskCompletions = map[string]int{}
	}
	u.TaskCompletions[TaskKey(taskID)]++
	return earned
}

// CompleteStudy credits a study session. Its length does not affect scoring.
func (u *UserRecord) CompleteStudy() {
	u.Points = addCapped(u.Points, StudySessionPoints)
	u.StudySessions = addCapped(u.StudySessions, 1)
}

// StopStudy applies the early-stop penalty, never going below zero.
func (u *UserRecord) StopStudy() {
	u.Points = max(0, u.Points-StopStudyPenalty)
}

// SetMostUsedApp stores the answer verbatim and returns the bonus awarded.
// The bonus is paid on every matching submission, not once per user.
func (u *UserRecord) SetMostUsedApp(appName string) int {
	u.MostUsedApp = appName
	if slices.Contains(bonusAppNames, strings.ToLower(appName)) {
		u.Points = addCapped(u.Points, MostUsedAppBonus)
		return MostUsedAppBonus
	}
	return 0
}

// addCapped adds a non-negative n to total, stopping at math.MaxInt.
func addCapped(total, n int) int {
	if total > math.MaxInt-n {
		return math.MaxInt
	}
	return total + n
}

// ChangeAvatar switches to avatarID if it has been unlocked.
func (u *UserRecord) ChangeAvatar(avatarID int) error {
	if !u.IsUnlocked(avatarID) {
		return apperror.Forbidden("Avatar not unlocked")
	}
	u.AvatarID = avatarID
	return nil
}
