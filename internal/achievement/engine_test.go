package achievement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyCheckAPI/internal/task"
	"dailyCheckAPI/internal/user"
)

func testContext(today string) Context {
	return Context{Today: today, Now: time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)}
}

func newUserWithTask(t *testing.T) (*user.User, *task.Task) {
	t.Helper()
	now := time.Now()
	u := user.New(42, "reader", "Sam", now)
	tk, err := task.New(u.ID, "Read 10 pages", "", task.CategoryLearning, task.PriorityMedium, 1, nil, now)
	require.NoError(t, err)
	u.AddTask(tk)
	return u, tk
}

func TestFirstTaskAwardedOnce(t *testing.T) {
	u, tk := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())
	ctx := testContext("2026-08-12")

	_, err := tk.Complete("2026-08-12", "", 0, ctx.Now)
	require.NoError(t, err)

	awards := engine.Evaluate(u, ctx)
	require.Len(t, awards, 1)
	assert.Equal(t, "first_task", awards[0].Achievement.ID)
	assert.Equal(t, 50, awards[0].XPGranted)
	assert.Equal(t, 50, u.Stats.TotalXP)
	assert.True(t, u.HasEarned("first_task"))

	awards = engine.Evaluate(u, ctx)
	assert.Empty(t, awards, "an achievement is granted at most once")
	assert.Equal(t, 50, u.Stats.TotalXP)
}

func TestStreakChainUnlocksInOrder(t *testing.T) {
	u, tk := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())
	ctx := testContext("2026-08-12")

	for _, d := range []string{"2026-08-10", "2026-08-11", "2026-08-12"} {
		_, err := tk.Complete(d, "", 0, ctx.Now)
		require.NoError(t, err)
	}

	awards := engine.Evaluate(u, ctx)
	ids := make([]string, len(awards))
	for i, a := range awards {
		ids[i] = a.Achievement.ID
	}
	assert.Contains(t, ids, "first_task")
	assert.Contains(t, ids, "streak_3")
	assert.NotContains(t, ids, "streak_7", "a 3 day streak must not reach the next milestone")

	p, ok := u.Progress["streak_7"]
	require.True(t, ok)
	assert.Equal(t, 3, p.Current)
	assert.Equal(t, 7, p.Target)
	assert.False(t, p.Completed)
}

func TestLevelAchievementSeesXPFromSamePass(t *testing.T) {
	u, tk := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())
	ctx := testContext("2026-08-12")

	// Enough prior XP that the pass's own rewards push the user over
	// level 5.
	u.Stats.AddXP(550)
	require.Equal(t, 4, u.Stats.Level)

	_, err := tk.Complete("2026-08-12", "", 0, ctx.Now)
	require.NoError(t, err)

	awards := engine.Evaluate(u, ctx)
	ids := make([]string, len(awards))
	for i, a := range awards {
		ids[i] = a.Achievement.ID
	}
	assert.Contains(t, ids, "level_5", "rewards credited mid-pass count toward level milestones")
}

func TestCheckerErrorIsIsolated(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Achievement{
		ID: "broken", Name: "Broken", XPReward: 10,
		Category: CategorySpecial, Rarity: RarityCommon, Kind: KindConditional,
		Checker: &CondChecker{Cond: func(*user.User, Context) (bool, error) {
			return false, errors.New("boom")
		}},
	}))
	require.NoError(t, r.Register(&Achievement{
		ID: "works", Name: "Works", XPReward: 20,
		Category: CategorySpecial, Rarity: RarityCommon, Kind: KindConditional,
		Checker: &CondChecker{Cond: func(*user.User, Context) (bool, error) {
			return true, nil
		}},
	}))

	u := user.New(1, "", "", time.Now())
	awards := NewEngine(r).Evaluate(u, testContext("2026-08-12"))
	require.Len(t, awards, 1)
	assert.Equal(t, "works", awards[0].Achievement.ID)
}

func TestProgressNeverReverts(t *testing.T) {
	u, tk := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())

	for _, d := range []string{"2026-08-10", "2026-08-11", "2026-08-12"} {
		_, err := tk.Complete(d, "", 0, time.Now())
		require.NoError(t, err)
	}
	engine.Evaluate(u, testContext("2026-08-12"))
	require.True(t, u.Progress["streak_3"].Completed)

	// Days later the streak is gone; the completed entry must hold.
	engine.Evaluate(u, testContext("2026-08-20"))
	p := u.Progress["streak_3"]
	assert.True(t, p.Completed)
	assert.Equal(t, 3, p.Current)
}

func TestWindowChecker(t *testing.T) {
	u, tk := newUserWithTask(t)
	ctx := testContext("2026-08-12")

	c := &WindowChecker{
		Days:     3,
		Lookback: 10,
		Qualifies: func(u *user.User, date string) bool {
			return u.CompletedOn(date) > 0
		},
	}

	ok, err := c.Check(u, ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A gap resets the run.
	for _, d := range []string{"2026-08-05", "2026-08-06", "2026-08-08", "2026-08-09"} {
		_, err := tk.Complete(d, "", 0, ctx.Now)
		require.NoError(t, err)
	}
	ok, err = c.Check(u, ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	cur, target := c.Progress(u, ctx)
	assert.Equal(t, 2, cur)
	assert.Equal(t, 3, target)

	_, err = tk.Complete("2026-08-10", "", 0, ctx.Now)
	require.NoError(t, err)
	ok, err = c.Check(u, ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHiddenAchievementsOmittedFromSummary(t *testing.T) {
	u, _ := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())
	ctx := testContext("2026-08-12")

	for _, s := range engine.SummaryFor(u, ctx) {
		assert.NotEqual(t, "new_year_resolution", s.Achievement.ID)
	}

	u.Earned["new_year_resolution"] = ctx.Now
	found := false
	for _, s := range engine.SummaryFor(u, ctx) {
		if s.Achievement.ID == "new_year_resolution" {
			found = true
			assert.True(t, s.Earned)
		}
	}
	assert.True(t, found)
}

func TestOnEarnedCallback(t *testing.T) {
	u, tk := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())
	ctx := testContext("2026-08-12")

	var seen []string
	engine.OnEarned(func(_ *user.User, a *Achievement) {
		seen = append(seen, a.ID)
	})

	_, err := tk.Complete("2026-08-12", "", 0, ctx.Now)
	require.NoError(t, err)
	engine.Evaluate(u, ctx)
	assert.Equal(t, []string{"first_task"}, seen)
}

func TestRegistryRejectsBadRegistration(t *testing.T) {
	r := NewRegistry()
	ok := &CondChecker{Cond: func(*user.User, Context) (bool, error) { return false, nil }}
	valid := func(id string) *Achievement {
		return &Achievement{
			ID: id, Checker: ok,
			Category: CategorySpecial, Rarity: RarityCommon, Kind: KindConditional,
		}
	}

	assert.Error(t, r.Register(valid("")))
	a := valid("a")
	a.Checker = nil
	assert.Error(t, r.Register(a))
	a = valid("a")
	a.Category = "cooking"
	assert.Error(t, r.Register(a))
	a = valid("a")
	a.Rarity = "shiny"
	assert.Error(t, r.Register(a))
	a = valid("a")
	a.Kind = "magic"
	assert.Error(t, r.Register(a))

	require.NoError(t, r.Register(valid("a")))
	assert.Error(t, r.Register(valid("a")), "duplicate id")
	b := valid("b")
	b.Requires = []string{"missing"}
	assert.Error(t, r.Register(b))
}

func TestCatalogCarriesMetadata(t *testing.T) {
	r := DefaultRegistry()
	for _, a := range r.All() {
		assert.True(t, a.Category.IsValid(), "%s category", a.ID)
		assert.True(t, a.Rarity.IsValid(), "%s rarity", a.ID)
		assert.True(t, a.Kind.IsValid(), "%s kind", a.ID)
	}

	first, ok := r.Get("first_task")
	require.True(t, ok)
	assert.Equal(t, CategoryProductivity, first.Category)
	assert.Equal(t, RarityCommon, first.Rarity)
	assert.Equal(t, KindInstant, first.Kind)

	marathon, ok := r.Get("marathon_challenge")
	require.True(t, ok)
	assert.Equal(t, CategoryChallenges, marathon.Category)
	assert.Equal(t, RarityEpic, marathon.Rarity)
	assert.Equal(t, KindTimeWindow, marathon.Kind)

	legend, ok := r.Get("tasks_1000")
	require.True(t, ok)
	assert.Equal(t, RarityLegendary, legend.Rarity)

	specialist, ok := r.Get("category_learning_10")
	require.True(t, ok)
	assert.Equal(t, []string{"category_learning"}, specialist.Tags)
}

func TestOverviewBreakdown(t *testing.T) {
	u, tk := newUserWithTask(t)
	engine := NewEngine(DefaultRegistry())
	ctx := testContext("2026-08-12")

	for _, d := range []string{"2026-08-10", "2026-08-11", "2026-08-12"} {
		_, err := tk.Complete(d, "", 0, ctx.Now)
		require.NoError(t, err)
	}
	engine.Evaluate(u, ctx)

	ov := engine.OverviewFor(u, ctx)
	assert.Equal(t, len(u.Earned), ov.Earned)
	assert.Greater(t, ov.Total, ov.Earned)

	// first_task is earned, the tasks_N chain is productivity too.
	prod := ov.ByCategory[CategoryProductivity]
	assert.Equal(t, 1, prod.Earned)
	assert.Equal(t, 11, prod.Total)

	streaks := ov.ByCategory[CategoryStreaks]
	assert.Equal(t, 1, streaks.Earned, "streak_3 landed")
	assert.Equal(t, 5, streaks.Total)

	common := ov.ByRarity[RarityCommon]
	assert.Equal(t, 2, common.Earned, "first_task and streak_3 are common")

	// Hidden achievements stay out of the totals until earned.
	seasonal := ov.ByCategory[CategorySeasonal]
	assert.Zero(t, seasonal.Total)

	// tasks_10 has 3 of 10 completions on the books.
	foundInProgress := false
	for _, sum := range ov.InProgress {
		assert.False(t, sum.Earned)
		if sum.Achievement.ID == "tasks_10" {
			foundInProgress = true
			assert.Equal(t, 3, sum.Current)
		}
	}
	assert.True(t, foundInProgress)
}
