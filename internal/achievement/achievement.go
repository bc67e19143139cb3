package achievement

import (
	"time"

	"dailyCheckAPI/internal/user"
)

// Context carries the evaluation moment. Today is the calendar-day key
// matching the task completion log; Now is the wall clock stamped onto
// awards.
type Context struct {
	Today string
	Now   time.Time
}

// Checker decides whether one achievement is satisfied and reports
// progress toward it. Implementations must not mutate the user.
type Checker interface {
	Check(u *user.User, ctx Context) (bool, error)
	Progress(u *user.User, ctx Context) (current, target int)
}

// Category groups achievements for the dashboard breakdown.
type Category string

const (
	CategoryProductivity Category = "productivity"
	CategoryStreaks      Category = "streaks"
	CategoryMilestones   Category = "milestones"
	CategorySpecial      Category = "special"
	CategorySeasonal     Category = "seasonal"
	CategoryChallenges   Category = "challenges"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryProductivity, CategoryStreaks, CategoryMilestones,
		CategorySpecial, CategorySeasonal, CategoryChallenges:
		return true
	}
	return false
}

// Rarity ranks how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// Kind names the shape of the rule behind an achievement.
type Kind string

const (
	KindInstant     Kind = "instant"
	KindCumulative  Kind = "cumulative"
	KindStreak      Kind = "streak"
	KindTimeWindow  Kind = "time_window"
	KindConditional Kind = "conditional"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindInstant, KindCumulative, KindStreak, KindTimeWindow, KindConditional:
		return true
	}
	return false
}

// Achievement is a single unlockable. Requires lists achievement ids
// that must already be earned before this one is evaluated, which lets
// chains unlock in order within a single evaluation pass.
type Achievement struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Category    Category `json:"category"`
	Rarity      Rarity   `json:"rarity"`
	Kind        Kind     `json:"kind"`
	XPReward    int      `json:"xp_reward"`
	Hidden      bool     `json:"hidden"`
	Requires    []string `json:"requires,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Checker Checker `json:"-"`
}
