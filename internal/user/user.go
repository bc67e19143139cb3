package user

import (
	"fmt"
	"time"

	"dailyCheckAPI/internal/task"
)

// Settings holds per-user preferences. Zero values are filled in by
// DefaultSettings so older records pick up new fields on load.
type Settings struct {
	Timezone      string `json:"timezone"`
	ReminderTime  string `json:"reminder_time"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
	WeeklyGoal    int    `json:"weekly_goal"`
}

func DefaultSettings() Settings {
	return Settings{
		Timezone:      "UTC",
		ReminderTime:  "09:00",
		Language:      "en",
		Notifications: true,
		WeeklyGoal:    7,
	}
}

// AchievementProgress tracks how far a user is toward an unearned
// achievement. Once Completed is set it never reverts, even if the
// underlying counters later move backwards.
type AchievementProgress struct {
	Current   int       `json:"current"`
	Target    int       `json:"target"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// notesMaxLen caps the free-form notes field; longer text is truncated
// on write and on load.
const notesMaxLen = 5000

// User is the unit of storage: one record per telegram user id,
// holding all of their tasks and gamification state.
type User struct {
	ID        int64                 `json:"user_id"`
	Username  string                `json:"username,omitempty"`
	FirstName string                `json:"first_name,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	LastSeen  time.Time             `json:"last_seen"`
	Tasks     map[string]*task.Task `json:"tasks"`
	Settings  Settings              `json:"settings"`
	Stats     Stats                 `json:"stats"`
	Notes     string                `json:"notes,omitempty"`

	// WeeklyGoals overrides the default weekly goal per ISO week key,
	// e.g. "2026-W35" -> 10.
	WeeklyGoals map[string]int `json:"weekly_goals,omitempty"`

	// Earned maps achievement id to the time it was awarded.
	Earned   map[string]time.Time            `json:"achievements"`
	Progress map[string]*AchievementProgress `json:"achievement_progress,omitempty"`
}

func New(id int64, username, firstName string, now time.Time) *User {
	return &User{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		CreatedAt: now,
		Tasks:     make(map[string]*task.Task),
		Settings:  DefaultSettings(),
		Stats:     Stats{Level: 1, LastActive: now},
		Earned:    make(map[string]time.Time),
		Progress:  make(map[string]*AchievementProgress),
	}
}

// Normalize repairs nil maps and zero fields after a decode, so code
// downstream never has to guard against partially filled records.
func (u *User) Normalize() {
	if u.Tasks == nil {
		u.Tasks = make(map[string]*task.Task)
	}
	if u.Earned == nil {
		u.Earned = make(map[string]time.Time)
	}
	if u.Progress == nil {
		u.Progress = make(map[string]*AchievementProgress)
	}
	if u.WeeklyGoals == nil {
		u.WeeklyGoals = make(map[string]int)
	}
	if len(u.Notes) > notesMaxLen {
		u.Notes = u.Notes[:notesMaxLen]
	}
	if u.Stats.Level < 1 {
		u.Stats.Level = 1
	}
	if u.Settings.Timezone == "" {
		u.Settings = DefaultSettings()
	}
}

// Clone returns a deep copy detached from the record, safe to read or
// encode after the lock protecting the original is released.
func (u *User) Clone() *User {
	c := *u
	c.Tasks = make(map[string]*task.Task, len(u.Tasks))
	for id, t := range u.Tasks {
		c.Tasks[id] = t.Clone()
	}
	c.WeeklyGoals = make(map[string]int, len(u.WeeklyGoals))
	for k, v := range u.WeeklyGoals {
		c.WeeklyGoals[k] = v
	}
	c.Earned = make(map[string]time.Time, len(u.Earned))
	for k, v := range u.Earned {
		c.Earned[k] = v
	}
	c.Progress = make(map[string]*AchievementProgress, len(u.Progress))
	for k, v := range u.Progress {
		p := *v
		c.Progress[k] = &p
	}
	return &c
}

// SetNotes stores the personal notes, truncated to the storage cap.
func (u *User) SetNotes(notes string) {
	if len(notes) > notesMaxLen {
		notes = notes[:notesMaxLen]
	}
	u.Notes = notes
}

// WeekKey returns the ISO week key for a moment, e.g. "2026-W35".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeeklyGoalFor returns the goal for the week, falling back to the
// settings default when none was set for that week.
func (u *User) WeeklyGoalFor(week string) int {
	if goal, ok := u.WeeklyGoals[week]; ok {
		return goal
	}
	return u.Settings.WeeklyGoal
}

// SetWeeklyGoal overrides the goal for one week.
func (u *User) SetWeeklyGoal(week string, goal int) error {
	if goal < 1 {
		return fmt.Errorf("weekly goal must be positive")
	}
	if u.WeeklyGoals == nil {
		u.WeeklyGoals = make(map[string]int)
	}
	u.WeeklyGoals[week] = goal
	return nil
}

// ActiveToday reports whether the user was already seen on now's
// calendar day.
func (u *User) ActiveToday(now time.Time) bool {
	return !u.LastSeen.IsZero() && task.DateOf(u.LastSeen) == task.DateOf(now)
}

// Touch records activity at now, counting a new active day when the
// calendar day changed since the last visit.
func (u *User) Touch(now time.Time) {
	if !u.ActiveToday(now) {
		u.Stats.DaysActive++
	}
	u.LastSeen = now
	u.Stats.LastActive = now
}

func (u *User) AddTask(t *task.Task) {
	u.Tasks[t.ID] = t
}

func (u *User) Task(id string) (*task.Task, bool) {
	t, ok := u.Tasks[id]
	return t, ok
}

func (u *User) DeleteTask(id string) bool {
	if _, ok := u.Tasks[id]; !ok {
		return false
	}
	delete(u.Tasks, id)
	return true
}

// ActiveTasks returns tasks in the active status.
func (u *User) ActiveTasks() []*task.Task {
	var out []*task.Task
	for _, t := range u.Tasks {
		if t.Status == task.StatusActive {
			out = append(out, t)
		}
	}
	return out
}

func (u *User) TasksByCategory(c task.Category) []*task.Task {
	var out []*task.Task
	for _, t := range u.Tasks {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

func (u *User) HasEarned(achievementID string) bool {
	_, ok := u.Earned[achievementID]
	return ok
}

// CompletedCount counts completed entries across every task, archived
// ones included.
func (u *User) CompletedCount() int {
	n := 0
	for _, t := range u.Tasks {
		n += t.TotalCompletions()
	}
	return n
}

// CompletedInCategory counts completions on tasks of the category.
func (u *User) CompletedInCategory(c task.Category) int {
	n := 0
	for _, t := range u.Tasks {
		if t.Category == c {
			n += t.TotalCompletions()
		}
	}
	return n
}

// MaxCurrentStreak is the best streak among all tasks as of today.
func (u *User) MaxCurrentStreak(today string) int {
	best := 0
	for _, t := range u.Tasks {
		if s := t.CurrentStreak(today); s > best {
			best = s
		}
	}
	return best
}

func (u *User) MaxLongestStreak() int {
	best := 0
	for _, t := range u.Tasks {
		if s := t.LongestStreak(); s > best {
			best = s
		}
	}
	return best
}

// CompletedOn counts tasks with a completed entry on the date.
func (u *User) CompletedOn(date string) int {
	n := 0
	for _, t := range u.Tasks {
		if t.IsCompletedOn(date) {
			n++
		}
	}
	return n
}

// IsPerfectDay reports whether every active task was completed on the
// date. A user with no active tasks has no perfect days.
func (u *User) IsPerfectDay(date string) bool {
	active := u.ActiveTasks()
	if len(active) == 0 {
		return false
	}
	for _, t := range active {
		if !t.IsCompletedOn(date) {
			return false
		}
	}
	return true
}

// CompletionsInHourRange counts completions whose timestamp falls in
// [fromHour, toHour) local to the stored timestamp. Used for the time
// of day achievements.
func (u *User) CompletionsInHourRange(fromHour, toHour int) int {
	n := 0
	for _, t := range u.Tasks {
		for i := range t.Completions {
			c := &t.Completions[i]
			if !c.Completed || c.Timestamp.IsZero() {
				continue
			}
			h := c.Timestamp.Hour()
			if h >= fromHour && h < toHour {
				n++
			}
		}
	}
	return n
}

// SyncDerivedStats recomputes the counters that are derivable from the
// task logs. Called after any mutation that touches completions, so
// stale counters never survive a write.
func (u *User) SyncDerivedStats(today string, now time.Time) {
	u.Stats.TasksCompleted = u.CompletedCount()
	u.Stats.CurrentStreak = u.MaxCurrentStreak(today)
	if l := u.MaxLongestStreak(); l > u.Stats.LongestStreak {
		u.Stats.LongestStreak = l
	}
	u.Stats.LastActive = now
}
