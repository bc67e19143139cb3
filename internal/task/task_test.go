package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(t *testing.T, priority Priority, difficulty int) *Task {
	t.Helper()
	tk, err := New(42, "Read 10 pages", "", CategoryLearning, priority, difficulty, nil, time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return tk
}

func TestNewValidation(t *testing.T) {
	now := time.Now()

	_, err := New(1, "ab", "", CategoryWork, PriorityLow, 1, nil, now)
	assert.Error(t, err, "title below minimum length")

	_, err = New(1, "valid title", "", "cooking", PriorityLow, 1, nil, now)
	assert.Error(t, err, "unknown category")

	_, err = New(1, "valid title", "", CategoryWork, PriorityLow, 6, nil, now)
	assert.Error(t, err, "difficulty out of range")

	tk, err := New(1, "  valid title  ", "", "", "", 3, []string{" go ", ""}, now)
	require.NoError(t, err)
	assert.Equal(t, "valid title", tk.Title)
	assert.Equal(t, CategoryPersonal, tk.Category)
	assert.Equal(t, PriorityMedium, tk.Priority)
	assert.Equal(t, StatusActive, tk.Status)
	assert.Equal(t, []string{"go"}, tk.Tags)
	assert.True(t, tk.IsDaily)
}

func TestCompleteIdempotentPerDate(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)

	first, err := tk.Complete("2026-08-10", "morning", 15, at)
	require.NoError(t, err)
	require.Len(t, tk.Completions, 1)

	second, err := tk.Complete("2026-08-10", "again", 20, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, tk.Completions, 1, "same-date completion must overwrite, not append")
	assert.Equal(t, "again", second.Note)
	assert.Equal(t, 20, second.TimeSpent)
	assert.Equal(t, first.Date, second.Date)
}

func TestCompleteRejectsBadInput(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	now := time.Now()

	_, err := tk.Complete("10/08/2026", "", 0, now)
	assert.Error(t, err)

	_, err = tk.Complete("2026-08-10", "", -5, now)
	assert.Error(t, err)
}

func TestCompletionXP(t *testing.T) {
	// Medium priority, difficulty 1: floor(25 * 1.0) = 25 base.
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Date(2026, 8, 12, 7, 0, 0, 0, time.UTC)

	c1, err := tk.Complete("2026-08-10", "", 0, at)
	require.NoError(t, err)
	assert.Equal(t, 25+3, c1.XPAwarded, "day one carries a single streak unit")

	c2, err := tk.Complete("2026-08-11", "", 0, at)
	require.NoError(t, err)
	assert.Equal(t, 25+6, c2.XPAwarded)

	c3, err := tk.Complete("2026-08-12", "", 0, at)
	require.NoError(t, err)
	assert.Equal(t, 25+9, c3.XPAwarded)
}

func TestCompletionXPBonuses(t *testing.T) {
	tk := newTestTask(t, PriorityHigh, 5)
	at := time.Now()

	id, err := tk.AddSubtask("warm up", at)
	require.NoError(t, err)
	_, ok := tk.ToggleSubtask(id, at)
	require.True(t, ok)

	c, err := tk.Complete("2026-08-20", "", 0, at)
	require.NoError(t, err)
	// floor(40 * 1.8) = 72, plus one streak unit, plus one done subtask.
	assert.Equal(t, 72+3+5, c.XPAwarded)
}

func TestXPAwardedIsStable(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()

	c1, err := tk.Complete("2026-08-10", "", 0, at)
	require.NoError(t, err)
	awarded := c1.XPAwarded

	// Later completions extend the streak but never rewrite old entries.
	_, err = tk.Complete("2026-08-11", "", 0, at)
	require.NoError(t, err)

	assert.Equal(t, awarded, tk.Completions[0].XPAwarded)
}

func TestCurrentStreakAnchoredAtToday(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()
	for _, d := range []string{"2026-08-10", "2026-08-11", "2026-08-12"} {
		_, err := tk.Complete(d, "", 0, at)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, tk.CurrentStreak("2026-08-12"))
	assert.Equal(t, 0, tk.CurrentStreak("2026-08-13"), "no completion today means no streak")
	assert.Equal(t, 2, tk.CurrentStreak("2026-08-11"))
}

func TestLongestStreakSurvivesGaps(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()
	for _, d := range []string{
		"2026-08-01", "2026-08-02",
		"2026-08-05", "2026-08-06", "2026-08-07", "2026-08-08",
		"2026-08-11",
	} {
		_, err := tk.Complete(d, "", 0, at)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, tk.LongestStreak())
}

func TestUncomplete(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()
	_, err := tk.Complete("2026-08-10", "", 0, at)
	require.NoError(t, err)

	assert.False(t, tk.Uncomplete("2026-08-11", at), "no entry for the date")
	assert.True(t, tk.Uncomplete("2026-08-10", at))
	assert.False(t, tk.IsCompletedOn("2026-08-10"))
	assert.Equal(t, 0, tk.CurrentStreak("2026-08-10"))
}

func TestCompletionRate(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()
	for _, d := range []string{"2026-08-10", "2026-08-12", "2026-08-14"} {
		_, err := tk.Complete(d, "", 0, at)
		require.NoError(t, err)
	}

	assert.InDelta(t, 3.0/7.0, tk.CompletionRate("2026-08-14", 7), 1e-9)
	assert.Equal(t, 0.0, tk.CompletionRate("2026-08-14", 0))
}

func TestCompletionRateAllTime(t *testing.T) {
	// Created 2026-08-01, so 14 days have passed through 2026-08-14.
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()
	assert.Equal(t, 0.0, tk.CompletionRateAllTime("2026-08-14"))

	for _, d := range []string{"2026-08-10", "2026-08-12", "2026-08-14"} {
		_, err := tk.Complete(d, "", 0, at)
		require.NoError(t, err)
	}
	assert.InDelta(t, 3.0/14.0, tk.CompletionRateAllTime("2026-08-14"), 1e-9)

	// More completions than elapsed days caps the rate at one.
	assert.InDelta(t, 1.0, tk.CompletionRateAllTime("2026-08-01"), 1e-9)
}

func TestStatusTransitions(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()

	assert.Error(t, tk.Resume(at), "active task cannot be resumed")
	require.NoError(t, tk.Pause(at))
	assert.Error(t, tk.Pause(at), "paused task cannot be paused again")
	require.NoError(t, tk.Resume(at))
	require.NoError(t, tk.Archive(at))
	require.NotNil(t, tk.ArchivedAt)

	assert.Error(t, tk.Pause(at), "archived is terminal")
	assert.Error(t, tk.Resume(at), "archived is terminal")
	assert.Error(t, tk.Archive(at), "archived is terminal")
}

func TestSubtasks(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()

	id, err := tk.AddSubtask("step one", at)
	require.NoError(t, err)

	done, ok := tk.ToggleSubtask(id, at)
	require.True(t, ok)
	assert.True(t, done)
	assert.Equal(t, 1, tk.SubtasksCompleted())

	done, ok = tk.ToggleSubtask(id, at)
	require.True(t, ok)
	assert.False(t, done)

	_, ok = tk.ToggleSubtask("missing", at)
	assert.False(t, ok)

	assert.True(t, tk.RemoveSubtask(id, at))
	assert.Empty(t, tk.Subtasks)
}

func TestTags(t *testing.T) {
	tk := newTestTask(t, PriorityMedium, 1)
	at := time.Now()

	assert.True(t, tk.AddTag("reading", at))
	assert.False(t, tk.AddTag("reading", at), "duplicate tag")
	assert.False(t, tk.AddTag("", at))
	assert.True(t, tk.RemoveTag("reading", at))
	assert.False(t, tk.RemoveTag("reading", at))
}
