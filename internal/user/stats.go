package user

import "time"

// Stats carries the gamification counters for one user. TotalXP only
// ever grows; the streak fields are recomputed from task logs by
// SyncDerivedStats.
type Stats struct {
	TotalXP        int       `json:"total_xp"`
	Level          int       `json:"level"`
	TasksCompleted int       `json:"tasks_completed"`
	CurrentStreak  int       `json:"current_streak"`
	LongestStreak  int       `json:"longest_streak"`
	PerfectDays    int       `json:"perfect_days"`
	DaysActive     int       `json:"days_active"`
	LastActive     time.Time `json:"last_active"`
}

// XPForLevel returns the total XP required to reach the given level.
// Level 1 is free; each step up costs 150 XP more than the last
// threshold.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return int(100 * float64(level-1) * 1.5)
}

// AddXP credits XP and applies as many level-ups as the new total
// covers. It reports whether at least one level was gained.
func (s *Stats) AddXP(amount int) bool {
	if amount <= 0 {
		return false
	}
	s.TotalXP += amount
	leveled := false
	for s.TotalXP >= XPForLevel(s.Level+1) {
		s.Level++
		leveled = true
	}
	return leveled
}

// XPToNextLevel returns how much XP is still missing for the next level.
func (s *Stats) XPToNextLevel() int {
	need := XPForLevel(s.Level+1) - s.TotalXP
	if need < 0 {
		return 0
	}
	return need
}

// LevelProgress returns the fraction of the current level already
// covered, in the range 0..1.
func (s *Stats) LevelProgress() float64 {
	floor := XPForLevel(s.Level)
	ceil := XPForLevel(s.Level + 1)
	if ceil <= floor {
		return 0
	}
	p := float64(s.TotalXP-floor) / float64(ceil-floor)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
