package achievement

import (
	"log"

	"dailyCheckAPI/internal/user"
)

// Award reports one achievement granted during an evaluation pass.
type Award struct {
	Achievement *Achievement
	XPGranted   int
}

// EarnedFunc is notified after an achievement is granted. Callbacks
// run synchronously inside the evaluation pass.
type EarnedFunc func(u *user.User, a *Achievement)

// Engine evaluates the catalog against a user record. One checker
// failing is logged and skipped; it never blocks the rest of the pass.
type Engine struct {
	registry *Registry
	onEarned []EarnedFunc
}

func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// OnEarned registers a callback fired for every award. Not safe to
// call concurrently with Evaluate.
func (e *Engine) OnEarned(fn EarnedFunc) {
	e.onEarned = append(e.onEarned, fn)
}

// Evaluate runs the whole catalog against the user in registration
// order. Already earned achievements are skipped, so each can be
// granted at most once. XP rewards are credited immediately, which
// lets a level achievement later in the same pass see the new level.
func (e *Engine) Evaluate(u *user.User, ctx Context) []Award {
	var awards []Award
	for _, a := range e.registry.All() {
		if u.HasEarned(a.ID) {
			continue
		}
		if !e.prerequisitesMet(u, a) {
			e.updateProgress(u, a, ctx)
			continue
		}

		ok, err := a.Checker.Check(u, ctx)
		if err != nil {
			log.Printf("achievement %s: check failed: %v", a.ID, err)
			continue
		}
		if !ok {
			e.updateProgress(u, a, ctx)
			continue
		}

		u.Earned[a.ID] = ctx.Now
		e.markCompleted(u, a, ctx)
		if a.XPReward > 0 {
			u.Stats.AddXP(a.XPReward)
		}
		awards = append(awards, Award{Achievement: a, XPGranted: a.XPReward})
		for _, fn := range e.onEarned {
			fn(u, a)
		}
	}
	return awards
}

func (e *Engine) prerequisitesMet(u *user.User, a *Achievement) bool {
	for _, req := range a.Requires {
		if !u.HasEarned(req) {
			return false
		}
	}
	return true
}

// updateProgress refreshes the stored progress entry. An entry already
// marked completed is left alone even when the counters moved back.
func (e *Engine) updateProgress(u *user.User, a *Achievement, ctx Context) {
	current, target := a.Checker.Progress(u, ctx)
	p, ok := u.Progress[a.ID]
	if !ok {
		if current == 0 {
			return
		}
		p = &user.AchievementProgress{}
		u.Progress[a.ID] = p
	}
	if p.Completed {
		return
	}
	p.Current = current
	p.Target = target
	p.UpdatedAt = ctx.Now
}

func (e *Engine) markCompleted(u *user.User, a *Achievement, ctx Context) {
	p, ok := u.Progress[a.ID]
	if !ok {
		p = &user.AchievementProgress{}
		u.Progress[a.ID] = p
	}
	_, target := a.Checker.Progress(u, ctx)
	p.Current = target
	p.Target = target
	p.Completed = true
	p.UpdatedAt = ctx.Now
}

// Summary describes one achievement from a user's point of view.
type Summary struct {
	Achievement *Achievement `json:"achievement"`
	Earned      bool         `json:"earned"`
	Current     int          `json:"current"`
	Target      int          `json:"target"`
}

// SummaryFor lists the catalog with per-user earned state and
// progress. Hidden achievements are omitted until earned.
func (e *Engine) SummaryFor(u *user.User, ctx Context) []Summary {
	var out []Summary
	for _, a := range e.registry.All() {
		earned := u.HasEarned(a.ID)
		if a.Hidden && !earned {
			continue
		}
		current, target := a.Checker.Progress(u, ctx)
		if earned {
			current = target
		}
		out = append(out, Summary{
			Achievement: a,
			Earned:      earned,
			Current:     current,
			Target:      target,
		})
	}
	return out
}

// GroupCount pairs earned and total counts for one catalog slice.
type GroupCount struct {
	Earned int `json:"earned"`
	Total  int `json:"total"`
}

// Overview aggregates a user's standing across the whole catalog.
// Hidden achievements stay out of the totals until earned, matching
// SummaryFor.
type Overview struct {
	Earned     int                     `json:"earned"`
	Total      int                     `json:"total"`
	ByCategory map[Category]GroupCount `json:"by_category"`
	ByRarity   map[Rarity]GroupCount   `json:"by_rarity"`
	InProgress []Summary               `json:"in_progress"`
}

// OverviewFor builds the dashboard rollup: earned versus total counts
// overall and per category and rarity, plus the visible achievements
// the user has started but not finished.
func (e *Engine) OverviewFor(u *user.User, ctx Context) Overview {
	ov := Overview{
		ByCategory: make(map[Category]GroupCount),
		ByRarity:   make(map[Rarity]GroupCount),
	}
	for _, sum := range e.SummaryFor(u, ctx) {
		a := sum.Achievement
		ov.Total++
		cat := ov.ByCategory[a.Category]
		rar := ov.ByRarity[a.Rarity]
		cat.Total++
		rar.Total++
		if sum.Earned {
			ov.Earned++
			cat.Earned++
			rar.Earned++
		} else if sum.Current > 0 {
			ov.InProgress = append(ov.InProgress, sum)
		}
		ov.ByCategory[a.Category] = cat
		ov.ByRarity[a.Rarity] = rar
	}
	return ov
}
