package task

import "time"

const (
	baseXPLow    = 15
	baseXPMedium = 25
	baseXPHigh   = 40

	streakUnitBonus = 3
	streakBonusCap  = 75
	subtaskBonus    = 5
)

func (t *Task) baseXP() int {
	switch t.Priority {
	case PriorityLow:
		return baseXPLow
	case PriorityHigh:
		return baseXPHigh
	default:
		return baseXPMedium
	}
}

// completionXP computes the XP for a completion recorded on date. The
// streak bonus counts the entry being recorded, so the first day of a
// streak already earns one streak unit.
func (t *Task) completionXP(date string) int {
	difficultyFactor := float64(t.Difficulty)*0.2 + 0.8
	xp := int(float64(t.baseXP()) * difficultyFactor)

	streakBonus := t.CurrentStreak(date) * streakUnitBonus
	if streakBonus > streakBonusCap {
		streakBonus = streakBonusCap
	}

	return xp + streakBonus + t.SubtasksCompleted()*subtaskBonus
}

// CurrentStreak counts consecutive completed days ending at today. A
// task not completed today has a streak of zero regardless of history.
func (t *Task) CurrentStreak(today string) int {
	day, err := time.Parse(DateLayout, today)
	if err != nil {
		return 0
	}
	done := t.completedDates()
	streak := 0
	for done[day.Format(DateLayout)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak scans the whole completion log for the longest run of
// consecutive completed days.
func (t *Task) LongestStreak() int {
	done := t.completedDates()
	longest := 0
	for date := range done {
		day, err := time.Parse(DateLayout, date)
		if err != nil {
			continue
		}
		// Only start counting at the beginning of a run.
		if done[day.AddDate(0, 0, -1).Format(DateLayout)] {
			continue
		}
		run := 0
		for done[day.Format(DateLayout)] {
			run++
			day = day.AddDate(0, 0, 1)
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func (t *Task) completedDates() map[string]bool {
	done := make(map[string]bool, len(t.Completions))
	for i := range t.Completions {
		if t.Completions[i].Completed {
			done[t.Completions[i].Date] = true
		}
	}
	return done
}

// CompletionRate returns the fraction of days in the window ending at
// today (inclusive) with a completed entry, in the range 0..1.
func (t *Task) CompletionRate(today string, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	day, err := time.Parse(DateLayout, today)
	if err != nil {
		return 0
	}
	done := t.completedDates()
	count := 0
	for i := 0; i < windowDays; i++ {
		if done[day.AddDate(0, 0, -i).Format(DateLayout)] {
			count++
		}
	}
	return float64(count) / float64(windowDays)
}

// CompletionRateAllTime returns the fraction of days since the task
// was created (through today, inclusive) with a completed entry, in
// the range 0..1.
func (t *Task) CompletionRateAllTime(today string) float64 {
	day, err := time.Parse(DateLayout, today)
	if err != nil {
		return 0
	}
	start, err := time.Parse(DateLayout, DateOf(t.CreatedAt))
	if err != nil {
		return 0
	}
	totalDays := int(day.Sub(start).Hours()/24) + 1
	if totalDays < 1 {
		return 0
	}
	rate := float64(t.TotalCompletions()) / float64(totalDays)
	if rate > 1 {
		return 1
	}
	return rate
}

// TotalCompletions counts completed entries across the whole log.
func (t *Task) TotalCompletions() int {
	n := 0
	for i := range t.Completions {
		if t.Completions[i].Completed {
			n++
		}
	}
	return n
}

// TotalTimeSpent sums the minutes logged across completed entries.
func (t *Task) TotalTimeSpent() int {
	total := 0
	for i := range t.Completions {
		if t.Completions[i].Completed {
			total += t.Completions[i].TimeSpent
		}
	}
	return total
}

// TotalXPEarned sums the XP frozen into completed entries.
func (t *Task) TotalXPEarned() int {
	total := 0
	for i := range t.Completions {
		if t.Completions[i].Completed {
			total += t.Completions[i].XPAwarded
		}
	}
	return total
}
