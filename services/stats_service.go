package services

import (
	"sort"
	"time"

	"dailyCheckAPI/internal/task"
	"dailyCheckAPI/internal/user"
)

// StatsService builds read-only views over user records. It goes
// through the gamification service so reads see records under the same
// lock as mutations.
type StatsService struct {
	game *GamificationService
}

func NewStatsService(game *GamificationService) *StatsService {
	return &StatsService{game: game}
}

// Overview is the headline stats block shown by the dashboard and the
// bot's /stats command.
type Overview struct {
	UserID         int64          `json:"user_id"`
	Level          int            `json:"level"`
	TotalXP        int            `json:"total_xp"`
	XPToNextLevel  int            `json:"xp_to_next_level"`
	LevelProgress  float64        `json:"level_progress"`
	CurrentStreak  int            `json:"current_streak"`
	LongestStreak  int            `json:"longest_streak"`
	TasksCompleted int            `json:"tasks_completed"`
	ActiveTasks    int            `json:"active_tasks"`
	TotalTasks     int            `json:"total_tasks"`
	TimeSpentMin   int            `json:"time_spent_minutes"`
	PerfectDays    int            `json:"perfect_days"`
	DaysActive     int            `json:"days_active"`
	ByCategory     map[string]int `json:"completions_by_category"`
	Achievements   int            `json:"achievements_earned"`
	MemberSince    time.Time      `json:"member_since"`
}

func (s *StatsService) Overview(userID int64) (*Overview, error) {
	var out *Overview
	err := s.game.withUser(userID, func(u *user.User) error {
		today := s.game.today()
		byCategory := make(map[string]int)
		timeSpent := 0
		for _, t := range u.Tasks {
			if n := t.TotalCompletions(); n > 0 {
				byCategory[string(t.Category)] += n
			}
			timeSpent += t.TotalTimeSpent()
		}
		out = &Overview{
			UserID:         u.ID,
			Level:          u.Stats.Level,
			TotalXP:        u.Stats.TotalXP,
			XPToNextLevel:  u.Stats.XPToNextLevel(),
			LevelProgress:  u.Stats.LevelProgress(),
			CurrentStreak:  u.MaxCurrentStreak(today),
			LongestStreak:  u.Stats.LongestStreak,
			TasksCompleted: u.CompletedCount(),
			ActiveTasks:    len(u.ActiveTasks()),
			TotalTasks:     len(u.Tasks),
			TimeSpentMin:   timeSpent,
			PerfectDays:    u.Stats.PerfectDays,
			DaysActive:     u.Stats.DaysActive,
			ByCategory:     byCategory,
			Achievements:   len(u.Earned),
			MemberSince:    u.CreatedAt,
		}
		return nil
	})
	return out, err
}

// CalendarDay summarizes one day of a month view.
type CalendarDay struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Perfect   bool   `json:"perfect"`
}

// Calendar returns per-day completion counts for the month, oldest
// first. Perfect marks days where every active task was done.
func (s *StatsService) Calendar(userID int64, year int, month time.Month) ([]CalendarDay, error) {
	var out []CalendarDay
	err := s.game.withUser(userID, func(u *user.User) error {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		for day := first; day.Month() == month; day = day.AddDate(0, 0, 1) {
			date := day.Format(task.DateLayout)
			out = append(out, CalendarDay{
				Date:      date,
				Completed: u.CompletedOn(date),
				Perfect:   u.IsPerfectDay(date),
			})
		}
		return nil
	})
	return out, err
}

// WeeklyProgress reports completions over the 7 days ending today
// against the goal for the current ISO week.
type WeeklyProgress struct {
	Week      string `json:"week"`
	Goal      int    `json:"goal"`
	Completed int    `json:"completed"`
	Days      []int  `json:"days"`
	Met       bool   `json:"met"`
}

func (s *StatsService) Weekly(userID int64) (*WeeklyProgress, error) {
	var out *WeeklyProgress
	err := s.game.withUser(userID, func(u *user.User) error {
		end, err := time.Parse(task.DateLayout, s.game.today())
		if err != nil {
			return err
		}
		days := make([]int, 7)
		total := 0
		for i := 0; i < 7; i++ {
			n := u.CompletedOn(end.AddDate(0, 0, i-6).Format(task.DateLayout))
			days[i] = n
			total += n
		}
		week := user.WeekKey(s.game.now())
		goal := u.WeeklyGoalFor(week)
		out = &WeeklyProgress{
			Week:      week,
			Goal:      goal,
			Completed: total,
			Days:      days,
			Met:       total >= goal,
		}
		return nil
	})
	return out, err
}

// TaskSummary is the list row for a user's tasks.
type TaskSummary struct {
	ID            string        `json:"task_id"`
	Title         string        `json:"title"`
	Category      task.Category `json:"category"`
	Priority      task.Priority `json:"priority"`
	Status        task.Status   `json:"status"`
	CompletedNow  bool          `json:"completed_today"`
	CurrentStreak int           `json:"current_streak"`
	Completions   int           `json:"completions"`
}

// Tasks lists a user's tasks sorted by status then title, archived
// last.
func (s *StatsService) Tasks(userID int64) ([]TaskSummary, error) {
	var out []TaskSummary
	err := s.game.withUser(userID, func(u *user.User) error {
		today := s.game.today()
		for _, t := range u.Tasks {
			out = append(out, TaskSummary{
				ID:            t.ID,
				Title:         t.Title,
				Category:      t.Category,
				Priority:      t.Priority,
				Status:        t.Status,
				CompletedNow:  t.IsCompletedOn(today),
				CurrentStreak: t.CurrentStreak(today),
				Completions:   t.TotalCompletions(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rank := map[task.Status]int{task.StatusActive: 0, task.StatusPaused: 1, task.StatusArchived: 2}
	sort.Slice(out, func(i, j int) bool {
		if rank[out[i].Status] != rank[out[j].Status] {
			return rank[out[i].Status] < rank[out[j].Status]
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}
