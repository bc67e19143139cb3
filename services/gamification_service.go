package services

import (
	"fmt"
	"sync"
	"time"

	"dailyCheckAPI/internal/achievement"
	"dailyCheckAPI/internal/metrics"
	"dailyCheckAPI/internal/store"
	"dailyCheckAPI/internal/task"
	"dailyCheckAPI/internal/user"
)

// GamificationService is the single mutation entry point for user
// records. Its mutex serializes all record access, so task updates, XP
// credits and achievement evaluation apply as one unit per call.
type GamificationService struct {
	mu     sync.Mutex
	store  *store.Store
	engine *achievement.Engine
	nowFn  func() time.Time
}

func NewGamificationService(st *store.Store, engine *achievement.Engine) *GamificationService {
	return &GamificationService{
		store:  st,
		engine: engine,
		nowFn:  time.Now,
	}
}

// OnAchievementEarned registers a callback fired whenever an
// achievement is granted. Register before serving traffic.
func (s *GamificationService) OnAchievementEarned(fn achievement.EarnedFunc) {
	s.engine.OnEarned(fn)
}

func (s *GamificationService) now() time.Time {
	return s.nowFn()
}

func (s *GamificationService) today() string {
	return task.DateOf(s.now())
}

// withUser runs fn with the user's record under the service lock.
func (s *GamificationService) withUser(id int64, fn func(u *user.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.store.Get(id)
	if err != nil {
		return err
	}
	return fn(u)
}

// GetUser returns a detached copy of the record. Live records never
// leave the service lock; callers read and encode the copy freely.
func (s *GamificationService) GetUser(id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// GetOrCreateUser returns the record for the id, creating a fresh one
// on first contact. Name fields are refreshed on every call so renames
// in the client propagate.
func (s *GamificationService) GetOrCreateUser(id int64, username, firstName string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.Get(id)
	if err == store.ErrNotFound {
		u = user.New(id, username, firstName, s.now())
		u.Touch(s.now())
		if err := s.store.Put(u); err != nil {
			return nil, err
		}
		s.store.RequestFlush()
		return u.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	changed := false
	if username != "" && u.Username != username {
		u.Username = username
		changed = true
	}
	if firstName != "" && u.FirstName != firstName {
		u.FirstName = firstName
		changed = true
	}
	if !u.ActiveToday(s.now()) {
		u.Touch(s.now())
		changed = true
	}
	if changed {
		if err := s.store.MarkDirty(id); err != nil {
			return nil, err
		}
	}
	return u.Clone(), nil
}

func (s *GamificationService) DeleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.store.RequestFlush()
	return nil
}

type CreateTaskInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    task.Category `json:"category"`
	Priority    task.Priority `json:"priority"`
	Difficulty  int           `json:"difficulty"`
	Tags        []string      `json:"tags"`
}

func (s *GamificationService) CreateTask(userID int64, in CreateTaskInput) (*task.Task, error) {
	if in.Difficulty == 0 {
		in.Difficulty = 1
	}
	var created *task.Task
	err := s.withUser(userID, func(u *user.User) error {
		t, err := task.New(userID, in.Title, in.Description, in.Category, in.Priority, in.Difficulty, in.Tags, s.now())
		if err != nil {
			return err
		}
		u.AddTask(t)
		created = t.Clone()
		return s.markAndFlush(userID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *GamificationService) GetTask(userID int64, taskID string) (*task.Task, error) {
	var found *task.Task
	err := s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		found = t.Clone()
		return nil
	})
	return found, err
}

// CompleteResult describes everything one completion triggered.
type CompleteResult struct {
	Task             *task.Task          `json:"task"`
	Date             string              `json:"date"`
	AlreadyCompleted bool                `json:"already_completed"`
	XPAwarded        int                 `json:"xp_awarded"`
	NewAchievements  []achievement.Award `json:"new_achievements,omitempty"`
	LeveledUp        bool                `json:"leveled_up"`
	Level            int                 `json:"level"`
	CurrentStreak    int                 `json:"current_streak"`
}

// CompleteTask records a completion for the date (today when empty),
// credits XP, refreshes derived stats and runs the achievement pass.
// Completing an already completed date changes nothing and awards
// nothing.
func (s *GamificationService) CompleteTask(userID int64, taskID, date, note string, minutes int) (*CompleteResult, error) {
	if date == "" {
		date = s.today()
	}
	var result *CompleteResult
	err := s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		if t.Status != task.StatusActive {
			return fmt.Errorf("task %s is %s, only active tasks can be completed", taskID, t.Status)
		}
		if t.IsCompletedOn(date) {
			result = &CompleteResult{
				Task:             t.Clone(),
				Date:             date,
				AlreadyCompleted: true,
				Level:            u.Stats.Level,
				CurrentStreak:    t.CurrentStreak(date),
			}
			return nil
		}

		now := s.now()
		entry, err := t.Complete(date, note, minutes, now)
		if err != nil {
			return err
		}

		levelBefore := u.Stats.Level
		u.Stats.AddXP(entry.XPAwarded)
		// The entry just recorded was the missing one if the day is
		// perfect now, so this counts each perfect day exactly once.
		if u.IsPerfectDay(date) {
			u.Stats.PerfectDays++
		}
		u.Touch(now)
		u.SyncDerivedStats(s.today(), now)

		awards := s.engine.Evaluate(u, achievement.Context{Today: s.today(), Now: now})

		leveledUp := u.Stats.Level > levelBefore
		metrics.TasksCompleted.Inc()
		metrics.AchievementsAwarded.Add(float64(len(awards)))
		if leveledUp {
			metrics.LevelUps.Inc()
		}

		result = &CompleteResult{
			Task:            t.Clone(),
			Date:            date,
			XPAwarded:       entry.XPAwarded,
			NewAchievements: awards,
			LeveledUp:       leveledUp,
			Level:           u.Stats.Level,
			CurrentStreak:   t.CurrentStreak(date),
		}
		return s.markAndFlush(userID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UncompleteTask clears a completion. The XP it granted is kept; only
// the streak and completion counters move.
func (s *GamificationService) UncompleteTask(userID int64, taskID, date string) error {
	if date == "" {
		date = s.today()
	}
	return s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		if !t.Uncomplete(date, s.now()) {
			return fmt.Errorf("no completion on %s: %w", date, store.ErrNotFound)
		}
		u.SyncDerivedStats(s.today(), s.now())
		return s.markAndFlush(userID)
	})
}

func (s *GamificationService) PauseTask(userID int64, taskID string) error {
	return s.transitionTask(userID, taskID, (*task.Task).Pause)
}

func (s *GamificationService) ResumeTask(userID int64, taskID string) error {
	return s.transitionTask(userID, taskID, (*task.Task).Resume)
}

func (s *GamificationService) ArchiveTask(userID int64, taskID string) error {
	return s.transitionTask(userID, taskID, (*task.Task).Archive)
}

func (s *GamificationService) transitionTask(userID int64, taskID string, apply func(*task.Task, time.Time) error) error {
	return s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		if err := apply(t, s.now()); err != nil {
			return err
		}
		return s.markAndFlush(userID)
	})
}

// DeleteTask removes a task and its history outright. Archiving is
// the recoverable alternative.
func (s *GamificationService) DeleteTask(userID int64, taskID string) error {
	return s.withUser(userID, func(u *user.User) error {
		if !u.DeleteTask(taskID) {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		u.SyncDerivedStats(s.today(), s.now())
		return s.markAndFlush(userID)
	})
}

func (s *GamificationService) AddSubtask(userID int64, taskID, title string) (string, error) {
	var id string
	err := s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		subID, err := t.AddSubtask(title, s.now())
		if err != nil {
			return err
		}
		id = subID
		return s.markAndFlush(userID)
	})
	return id, err
}

func (s *GamificationService) ToggleSubtask(userID int64, taskID, subtaskID string) (bool, error) {
	var done bool
	err := s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		state, ok := t.ToggleSubtask(subtaskID, s.now())
		if !ok {
			return fmt.Errorf("subtask %s: %w", subtaskID, store.ErrNotFound)
		}
		done = state
		return s.markAndFlush(userID)
	})
	return done, err
}

func (s *GamificationService) RemoveSubtask(userID int64, taskID, subtaskID string) error {
	return s.withUser(userID, func(u *user.User) error {
		t, ok := u.Task(taskID)
		if !ok {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		if !t.RemoveSubtask(subtaskID, s.now()) {
			return fmt.Errorf("subtask %s: %w", subtaskID, store.ErrNotFound)
		}
		return s.markAndFlush(userID)
	})
}

func (s *GamificationService) UpdateSettings(userID int64, settings user.Settings) error {
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}
	if settings.WeeklyGoal < 1 || settings.WeeklyGoal > 100 {
		return fmt.Errorf("weekly goal must be between 1 and 100")
	}
	return s.withUser(userID, func(u *user.User) error {
		u.Settings = settings
		return s.markAndFlush(userID)
	})
}

// UpdateNotes replaces the user's free-form notes.
func (s *GamificationService) UpdateNotes(userID int64, notes string) error {
	return s.withUser(userID, func(u *user.User) error {
		u.SetNotes(notes)
		return s.markAndFlush(userID)
	})
}

// SetWeeklyGoal overrides the goal for one ISO week. An empty week key
// targets the current week; the resolved key is returned.
func (s *GamificationService) SetWeeklyGoal(userID int64, week string, goal int) (string, error) {
	if week == "" {
		week = user.WeekKey(s.now())
	}
	err := s.withUser(userID, func(u *user.User) error {
		if err := u.SetWeeklyGoal(week, goal); err != nil {
			return err
		}
		return s.markAndFlush(userID)
	})
	return week, err
}

// Achievements lists the visible catalog with the user's progress.
func (s *GamificationService) Achievements(userID int64) ([]achievement.Summary, error) {
	var out []achievement.Summary
	err := s.withUser(userID, func(u *user.User) error {
		out = s.engine.SummaryFor(u, achievement.Context{Today: s.today(), Now: s.now()})
		return nil
	})
	return out, err
}

// AchievementOverview rolls the catalog up by category and rarity for
// the dashboard.
func (s *GamificationService) AchievementOverview(userID int64) (achievement.Overview, error) {
	var out achievement.Overview
	err := s.withUser(userID, func(u *user.User) error {
		out = s.engine.OverviewFor(u, achievement.Context{Today: s.today(), Now: s.now()})
		return nil
	})
	return out, err
}

// ExportUser returns the user's data in the requested format along
// with a content type for the response.
func (s *GamificationService) ExportUser(userID int64, format string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch format {
	case "", "json":
		data, err := s.store.ExportJSON(userID)
		return data, "application/json", err
	case "csv":
		data, err := s.store.ExportCSV(userID)
		return data, "text/csv", err
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

func (s *GamificationService) markAndFlush(userID int64) error {
	if err := s.store.MarkDirty(userID); err != nil {
		return err
	}
	s.store.RequestFlush()
	return nil
}
