package achievement

import (
	"fmt"
	"strings"
	"time"

	"dailyCheckAPI/internal/task"
	"dailyCheckAPI/internal/user"
)

// Registry holds the achievement catalog in registration order.
// Evaluation follows that order, so an achievement that requires
// another must be registered after it.
type Registry struct {
	ordered []*Achievement
	byID    map[string]*Achievement
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Achievement)}
}

func (r *Registry) Register(a *Achievement) error {
	if a.ID == "" {
		return fmt.Errorf("achievement id must not be empty")
	}
	if a.Checker == nil {
		return fmt.Errorf("achievement %s has no checker", a.ID)
	}
	if !a.Category.IsValid() {
		return fmt.Errorf("achievement %s has invalid category %q", a.ID, a.Category)
	}
	if !a.Rarity.IsValid() {
		return fmt.Errorf("achievement %s has invalid rarity %q", a.ID, a.Rarity)
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("achievement %s has invalid kind %q", a.ID, a.Kind)
	}
	if _, exists := r.byID[a.ID]; exists {
		return fmt.Errorf("achievement %s already registered", a.ID)
	}
	for _, req := range a.Requires {
		if _, ok := r.byID[req]; !ok {
			return fmt.Errorf("achievement %s requires unknown %s", a.ID, req)
		}
	}
	r.ordered = append(r.ordered, a)
	r.byID[a.ID] = a
	return nil
}

func (r *Registry) Get(id string) (*Achievement, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// All returns the catalog in registration order.
func (r *Registry) All() []*Achievement {
	return r.ordered
}

func (r *Registry) Len() int {
	return len(r.ordered)
}

func mustRegister(r *Registry, a *Achievement) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

func completedCount(u *user.User, _ Context) int {
	return u.CompletedCount()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// DefaultRegistry builds the standard catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	mustRegister(r, &Achievement{
		ID: "first_task", Name: "First Step", Icon: "🎯",
		Description: "Complete your first task",
		Category: CategoryProductivity, Rarity: RarityCommon, Kind: KindInstant,
		XPReward: 50,
		Checker:  &CountChecker{Target: 1, Count: completedCount},
	})

	taskMilestones := []struct {
		count, xp int
		name      string
		rarity    Rarity
	}{
		{10, 100, "Getting Started", RarityCommon},
		{50, 250, "Regular", RarityUncommon},
		{100, 500, "Dedicated", RarityRare},
		{500, 1000, "Master", RarityEpic},
		{1000, 2000, "Legend", RarityLegendary},
	}
	prev := "first_task"
	for _, m := range taskMilestones {
		id := fmt.Sprintf("tasks_%d", m.count)
		mustRegister(r, &Achievement{
			ID: id, Name: m.name, Icon: "✅",
			Description: fmt.Sprintf("Complete %d tasks", m.count),
			Category: CategoryProductivity, Rarity: m.rarity, Kind: KindCumulative,
			XPReward: m.xp,
			Requires: []string{prev},
			Checker:  &CountChecker{Target: m.count, Count: completedCount},
		})
		prev = id
	}

	streakMilestones := []struct {
		days, xp int
		name     string
		rarity   Rarity
	}{
		{3, 100, "On a Roll", RarityCommon},
		{7, 200, "Week Warrior", RarityUncommon},
		{30, 500, "Monthly Hero", RarityRare},
		{100, 1000, "Centurion", RarityEpic},
		{365, 3000, "Year of Discipline", RarityLegendary},
	}
	prev = ""
	for _, m := range streakMilestones {
		id := fmt.Sprintf("streak_%d", m.days)
		a := &Achievement{
			ID: id, Name: m.name, Icon: "🔥",
			Description: fmt.Sprintf("Keep a %d day streak", m.days),
			Category: CategoryStreaks, Rarity: m.rarity, Kind: KindStreak,
			XPReward: m.xp,
			Checker:  &StreakChecker{Target: m.days},
		}
		if prev != "" {
			a.Requires = []string{prev}
		}
		mustRegister(r, a)
		prev = id
	}

	levelMilestones := []struct {
		level, xp int
		name      string
		rarity    Rarity
	}{
		{5, 200, "Rising Star", RarityCommon},
		{10, 500, "Achiever", RarityUncommon},
		{20, 1000, "Grandmaster", RarityRare},
	}
	for _, m := range levelMilestones {
		level := m.level
		mustRegister(r, &Achievement{
			ID: fmt.Sprintf("level_%d", level), Name: m.name, Icon: "⭐",
			Description: fmt.Sprintf("Reach level %d", level),
			Category: CategoryMilestones, Rarity: m.rarity, Kind: KindInstant,
			XPReward: m.xp,
			Checker: &CountChecker{Target: level, Count: func(u *user.User, _ Context) int {
				return u.Stats.Level
			}},
		})
	}

	for _, c := range task.Categories() {
		cat := c
		mustRegister(r, &Achievement{
			ID:          fmt.Sprintf("category_%s_10", cat),
			Name:        fmt.Sprintf("%s Specialist", capitalize(string(cat))),
			Icon:        "📚",
			Description: fmt.Sprintf("Complete 10 %s tasks", cat),
			Category:    CategoryProductivity,
			Rarity:      RarityCommon,
			Kind:        KindCumulative,
			XPReward:    150,
			Tags:        []string{fmt.Sprintf("category_%s", cat)},
			Checker: &CountChecker{Target: 10, Count: func(u *user.User, _ Context) int {
				return u.CompletedInCategory(cat)
			}},
		})
	}

	mustRegister(r, &Achievement{
		ID: "perfect_week", Name: "Perfect Week", Icon: "💯",
		Description: "Complete every active task for 7 days straight",
		Category: CategorySpecial, Rarity: RarityRare, Kind: KindConditional,
		XPReward: 300,
		Checker: &CondChecker{Cond: func(u *user.User, ctx Context) (bool, error) {
			day, err := time.Parse(task.DateLayout, ctx.Today)
			if err != nil {
				return false, err
			}
			for i := 0; i < 7; i++ {
				if !u.IsPerfectDay(day.AddDate(0, 0, -i).Format(task.DateLayout)) {
					return false, nil
				}
			}
			return true, nil
		}},
	})

	mustRegister(r, &Achievement{
		ID: "early_bird", Name: "Early Bird", Icon: "🌅",
		Description: "Complete 10 tasks before 9 AM",
		Category: CategorySpecial, Rarity: RarityUncommon, Kind: KindCumulative,
		XPReward: 200,
		Checker: &CountChecker{Target: 10, Count: func(u *user.User, _ Context) int {
			return u.CompletionsInHourRange(0, 9)
		}},
	})

	mustRegister(r, &Achievement{
		ID: "night_owl", Name: "Night Owl", Icon: "🦉",
		Description: "Complete 10 tasks after 10 PM",
		Category: CategorySpecial, Rarity: RarityUncommon, Kind: KindCumulative,
		XPReward: 200,
		Checker: &CountChecker{Target: 10, Count: func(u *user.User, _ Context) int {
			return u.CompletionsInHourRange(22, 24)
		}},
	})

	mustRegister(r, &Achievement{
		ID: "new_year_resolution", Name: "New Year, New Me", Icon: "🎆",
		Description: "Complete a task on January 1st",
		Category: CategorySeasonal, Rarity: RarityUncommon, Kind: KindConditional,
		XPReward: 250,
		Hidden:   true,
		Checker: &CondChecker{Cond: func(u *user.User, _ Context) (bool, error) {
			for _, t := range u.Tasks {
				for i := range t.Completions {
					c := &t.Completions[i]
					if c.Completed && strings.HasSuffix(c.Date, "-01-01") {
						return true, nil
					}
				}
			}
			return false, nil
		}},
	})

	mustRegister(r, &Achievement{
		ID: "marathon_challenge", Name: "Marathon", Icon: "🏃",
		Description: "Complete at least one task every day for 30 days",
		Category: CategoryChallenges, Rarity: RarityEpic, Kind: KindTimeWindow,
		XPReward: 800,
		Checker: &WindowChecker{
			Days:     30,
			Lookback: 60,
			Qualifies: func(u *user.User, date string) bool {
				return u.CompletedOn(date) > 0
			},
		},
	})

	return r
}
