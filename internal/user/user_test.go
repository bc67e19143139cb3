package user

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyCheckAPI/internal/task"
)

func TestXPForLevelCurve(t *testing.T) {
	assert.Equal(t, 0, XPForLevel(1))
	assert.Equal(t, 150, XPForLevel(2))
	assert.Equal(t, 300, XPForLevel(3))
	assert.Equal(t, 1350, XPForLevel(10))
}

func TestAddXPLevelsUp(t *testing.T) {
	s := Stats{Level: 1}

	assert.False(t, s.AddXP(100))
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, 50, s.XPToNextLevel())

	assert.True(t, s.AddXP(50))
	assert.Equal(t, 2, s.Level)

	// One large credit can cover several levels at once.
	assert.True(t, s.AddXP(500))
	assert.Equal(t, 650, s.TotalXP)
	assert.Equal(t, 5, s.Level)

	assert.False(t, s.AddXP(0))
	assert.False(t, s.AddXP(-10))
	assert.Equal(t, 650, s.TotalXP)
}

func TestLevelProgress(t *testing.T) {
	s := Stats{Level: 2, TotalXP: 225}
	assert.InDelta(t, 0.5, s.LevelProgress(), 1e-9)
}

func addTask(t *testing.T, u *User, title string, category task.Category) *task.Task {
	t.Helper()
	tk, err := task.New(u.ID, title, "", category, task.PriorityMedium, 1, nil, time.Now())
	require.NoError(t, err)
	u.AddTask(tk)
	return tk
}

func TestDerivedStats(t *testing.T) {
	now := time.Now()
	u := New(7, "reader", "Sam", now)
	a := addTask(t, u, "Read 10 pages", task.CategoryLearning)
	b := addTask(t, u, "Morning run", task.CategoryHealth)

	for _, d := range []string{"2026-08-10", "2026-08-11", "2026-08-12"} {
		_, err := a.Complete(d, "", 0, now)
		require.NoError(t, err)
	}
	_, err := b.Complete("2026-08-12", "", 0, now)
	require.NoError(t, err)

	u.SyncDerivedStats("2026-08-12", now)
	assert.Equal(t, 4, u.Stats.TasksCompleted)
	assert.Equal(t, 3, u.Stats.CurrentStreak)
	assert.Equal(t, 3, u.Stats.LongestStreak)

	// Losing the streak does not shrink the longest record.
	u.SyncDerivedStats("2026-08-20", now)
	assert.Equal(t, 0, u.Stats.CurrentStreak)
	assert.Equal(t, 3, u.Stats.LongestStreak)

	assert.Equal(t, 3, u.CompletedInCategory(task.CategoryLearning))
	assert.Equal(t, 2, u.CompletedOn("2026-08-12"))
}

func TestPerfectDay(t *testing.T) {
	now := time.Now()
	u := New(7, "", "", now)
	assert.False(t, u.IsPerfectDay("2026-08-12"), "no active tasks, no perfect days")

	a := addTask(t, u, "Read 10 pages", task.CategoryLearning)
	b := addTask(t, u, "Morning run", task.CategoryHealth)
	_, err := a.Complete("2026-08-12", "", 0, now)
	require.NoError(t, err)
	assert.False(t, u.IsPerfectDay("2026-08-12"))

	_, err = b.Complete("2026-08-12", "", 0, now)
	require.NoError(t, err)
	assert.True(t, u.IsPerfectDay("2026-08-12"))

	// Paused tasks do not count against the day.
	c := addTask(t, u, "Stretching", task.CategoryHealth)
	require.NoError(t, c.Pause(now))
	assert.True(t, u.IsPerfectDay("2026-08-12"))
}

func TestNormalize(t *testing.T) {
	u := &User{ID: 1, Notes: strings.Repeat("x", notesMaxLen+100)}
	u.Normalize()
	assert.NotNil(t, u.Tasks)
	assert.NotNil(t, u.Earned)
	assert.NotNil(t, u.Progress)
	assert.NotNil(t, u.WeeklyGoals)
	assert.Len(t, u.Notes, notesMaxLen)
	assert.Equal(t, 1, u.Stats.Level)
	assert.Equal(t, "UTC", u.Settings.Timezone)
}

func TestClone(t *testing.T) {
	now := time.Now()
	u := New(7, "reader", "Sam", now)
	a := addTask(t, u, "Read 10 pages", task.CategoryLearning)
	_, err := a.Complete("2026-08-10", "", 0, now)
	require.NoError(t, err)
	u.Earned["first_task"] = now
	u.Progress["tasks_10"] = &AchievementProgress{Current: 1, Target: 10}
	require.NoError(t, u.SetWeeklyGoal("2026-W33", 9))

	c := u.Clone()
	c.Username = "copy"
	c.Tasks[a.ID].Title = "changed"
	c.Tasks[a.ID].Completions[0].Note = "changed"
	delete(c.Earned, "first_task")
	c.Progress["tasks_10"].Current = 5
	c.WeeklyGoals["2026-W33"] = 1

	assert.Equal(t, "reader", u.Username)
	assert.Equal(t, "Read 10 pages", u.Tasks[a.ID].Title)
	assert.Empty(t, u.Tasks[a.ID].Completions[0].Note)
	assert.True(t, u.HasEarned("first_task"))
	assert.Equal(t, 1, u.Progress["tasks_10"].Current)
	assert.Equal(t, 9, u.WeeklyGoalFor("2026-W33"))
}

func TestTouchCountsActiveDays(t *testing.T) {
	u := New(7, "reader", "Sam", time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))

	u.Touch(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, u.Stats.DaysActive)

	u.Touch(time.Date(2026, 8, 10, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, u.Stats.DaysActive, "same day counts once")
	assert.True(t, u.ActiveToday(time.Date(2026, 8, 10, 20, 0, 0, 0, time.UTC)))

	u.Touch(time.Date(2026, 8, 12, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, u.Stats.DaysActive)
	assert.False(t, u.ActiveToday(time.Date(2026, 8, 13, 8, 0, 0, 0, time.UTC)))
}

func TestWeeklyGoals(t *testing.T) {
	u := New(7, "reader", "Sam", time.Now())
	assert.Equal(t, "2026-W33", WeekKey(time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)))

	assert.Equal(t, u.Settings.WeeklyGoal, u.WeeklyGoalFor("2026-W33"))
	require.NoError(t, u.SetWeeklyGoal("2026-W33", 12))
	assert.Equal(t, 12, u.WeeklyGoalFor("2026-W33"))
	assert.Equal(t, u.Settings.WeeklyGoal, u.WeeklyGoalFor("2026-W34"))
	assert.Error(t, u.SetWeeklyGoal("2026-W34", 0))
}

func TestCompletionsInHourRange(t *testing.T) {
	now := time.Now()
	u := New(7, "", "", now)
	a := addTask(t, u, "Read 10 pages", task.CategoryLearning)

	_, err := a.Complete("2026-08-10", "", 0, time.Date(2026, 8, 10, 7, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = a.Complete("2026-08-11", "", 0, time.Date(2026, 8, 11, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, u.CompletionsInHourRange(0, 9))
	assert.Equal(t, 1, u.CompletionsInHourRange(22, 24))
}
