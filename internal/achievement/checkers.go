package achievement

import (
	"time"

	"dailyCheckAPI/internal/task"
	"dailyCheckAPI/internal/user"
)

// CountChecker is satisfied once Count reaches Target.
type CountChecker struct {
	Target int
	Count  func(u *user.User, ctx Context) int
}

func (c *CountChecker) Check(u *user.User, ctx Context) (bool, error) {
	return c.Count(u, ctx) >= c.Target, nil
}

func (c *CountChecker) Progress(u *user.User, ctx Context) (int, int) {
	n := c.Count(u, ctx)
	if n > c.Target {
		n = c.Target
	}
	return n, c.Target
}

// StreakChecker is satisfied when any task's streak as of today
// reaches Target days.
type StreakChecker struct {
	Target int
}

func (c *StreakChecker) Check(u *user.User, ctx Context) (bool, error) {
	return u.MaxCurrentStreak(ctx.Today) >= c.Target, nil
}

func (c *StreakChecker) Progress(u *user.User, ctx Context) (int, int) {
	n := u.MaxCurrentStreak(ctx.Today)
	if n > c.Target {
		n = c.Target
	}
	return n, c.Target
}

// WindowChecker is satisfied when Days consecutive qualifying days
// exist within the Lookback days ending today.
type WindowChecker struct {
	Days      int
	Lookback  int
	Qualifies func(u *user.User, date string) bool
}

func (c *WindowChecker) Check(u *user.User, ctx Context) (bool, error) {
	return c.bestRun(u, ctx) >= c.Days, nil
}

func (c *WindowChecker) Progress(u *user.User, ctx Context) (int, int) {
	n := c.bestRun(u, ctx)
	if n > c.Days {
		n = c.Days
	}
	return n, c.Days
}

func (c *WindowChecker) bestRun(u *user.User, ctx Context) int {
	day, err := time.Parse(task.DateLayout, ctx.Today)
	if err != nil {
		return 0
	}
	best, run := 0, 0
	// Walk the window oldest first so runs accumulate forward.
	for i := c.Lookback - 1; i >= 0; i-- {
		if c.Qualifies(u, day.AddDate(0, 0, -i).Format(task.DateLayout)) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// CondChecker wraps a single yes/no condition with no meaningful
// partial progress.
type CondChecker struct {
	Cond func(u *user.User, ctx Context) (bool, error)
}

func (c *CondChecker) Check(u *user.User, ctx Context) (bool, error) {
	return c.Cond(u, ctx)
}

func (c *CondChecker) Progress(u *user.User, ctx Context) (int, int) {
	ok, err := c.Cond(u, ctx)
	if err != nil || !ok {
		return 0, 1
	}
	return 1, 1
}
