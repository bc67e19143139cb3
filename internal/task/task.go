package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day key used throughout the completion log.
// Dates are plain YYYY-MM-DD strings with no timezone component, so a
// record never drifts across day boundaries when reloaded elsewhere.
const DateLayout = "2006-01-02"

// DateOf returns the calendar-day key for t.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

type Category string

const (
	CategoryWork     Category = "work"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
	CategoryPersonal Category = "personal"
	CategoryFinance  Category = "finance"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryWork, CategoryHealth, CategoryLearning, CategoryPersonal, CategoryFinance:
		return true
	default:
		return false
	}
}

// Categories lists all valid task categories.
func Categories() []Category {
	return []Category{CategoryWork, CategoryHealth, CategoryLearning, CategoryPersonal, CategoryFinance}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusArchived:
		return true
	default:
		return false
	}
}

// Completion is a single day-keyed entry in a task's completion log.
// XPAwarded is frozen at the moment the completion is recorded and is
// never recomputed afterwards.
type Completion struct {
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TimeSpent int       `json:"time_spent,omitempty"`
	XPAwarded int       `json:"xp_awarded"`
}

type Subtask struct {
	ID        string    `json:"subtask_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a per-user recurring task with a day-keyed completion log.
// A task belongs to exactly one user record and is never shared.
type Task struct {
	ID           string       `json:"task_id"`
	UserID       int64        `json:"user_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Category     Category     `json:"category"`
	Priority     Priority     `json:"priority"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	Completions  []Completion `json:"completions"`
	Subtasks     []Subtask    `json:"subtasks"`
	Tags         []string     `json:"tags,omitempty"`
	IsDaily      bool         `json:"is_daily"`
	Difficulty   int          `json:"difficulty"`
	LastModified time.Time    `json:"last_modified"`
	ArchivedAt   *time.Time   `json:"archived_at,omitempty"`
}

const (
	titleMinLen = 3
	titleMaxLen = 200
	descMaxLen  = 1000
	noteMaxLen  = 500
	maxTags     = 10
	maxTagLen   = 30
)

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if len(title) < titleMinLen {
		return "", validationErr("title", "too short")
	}
	if len(title) > titleMaxLen {
		return "", validationErr("title", "too long")
	}
	return title, nil
}

// New validates the input and returns a fresh active task.
func New(userID int64, title, description string, category Category, priority Priority, difficulty int, tags []string, now time.Time) (*Task, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}
	if len(description) > descMaxLen {
		return nil, validationErr("description", "too long")
	}
	if category == "" {
		category = CategoryPersonal
	}
	if !category.IsValid() {
		return nil, validationErr("category", "unknown value")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, validationErr("priority", "unknown value")
	}
	if difficulty < 1 || difficulty > 5 {
		return nil, validationErr("difficulty", "must be between 1 and 5")
	}

	var cleanTags []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || len(tag) > maxTagLen {
			continue
		}
		cleanTags = append(cleanTags, tag)
		if len(cleanTags) == maxTags {
			break
		}
	}

	return &Task{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        title,
		Description:  description,
		Category:     category,
		Priority:     priority,
		Status:       StatusActive,
		CreatedAt:    now,
		Tags:         cleanTags,
		IsDaily:      true,
		Difficulty:   difficulty,
		LastModified: now,
	}, nil
}

// Clone returns a deep copy detached from the original task.
func (t *Task) Clone() *Task {
	c := *t
	c.Completions = append([]Completion(nil), t.Completions...)
	c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	c.Tags = append([]string(nil), t.Tags...)
	if t.ArchivedAt != nil {
		at := *t.ArchivedAt
		c.ArchivedAt = &at
	}
	return &c
}

// Complete records a completion for the given calendar date. It is
// idempotent per date: a second call for the same date overwrites the
// existing entry instead of appending a duplicate. The returned entry
// carries the XP computed at this moment.
func (t *Task) Complete(date, note string, minutes int, at time.Time) (*Completion, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, validationErr("date", "must be YYYY-MM-DD")
	}
	if len(note) > noteMaxLen {
		return nil, validationErr("note", "too long")
	}
	if minutes < 0 {
		return nil, validationErr("time_spent", "must not be negative")
	}

	var entry *Completion
	for i := range t.Completions {
		if t.Completions[i].Date == date {
			entry = &t.Completions[i]
			break
		}
	}
	if entry == nil {
		t.Completions = append(t.Completions, Completion{Date: date})
		entry = &t.Completions[len(t.Completions)-1]
	}

	entry.Completed = true
	entry.Note = note
	entry.TimeSpent = minutes
	entry.Timestamp = at
	entry.XPAwarded = t.completionXP(date)
	t.LastModified = at
	return entry, nil
}

// Uncomplete clears the completed flag on an existing entry for the
// date. It reports false when no entry exists, in which case nothing
// changes.
func (t *Task) Uncomplete(date string, at time.Time) bool {
	for i := range t.Completions {
		if t.Completions[i].Date == date {
			t.Completions[i].Completed = false
			t.Completions[i].Timestamp = at
			t.LastModified = at
			return true
		}
	}
	return false
}

// IsCompletedOn reports whether the task has a completed entry for the date.
func (t *Task) IsCompletedOn(date string) bool {
	for i := range t.Completions {
		if t.Completions[i].Date == date && t.Completions[i].Completed {
			return true
		}
	}
	return false
}

func (t *Task) Pause(at time.Time) error {
	if t.Status != StatusActive {
		return validationErr("status", "only an active task can be paused")
	}
	t.Status = StatusPaused
	t.LastModified = at
	return nil
}

func (t *Task) Resume(at time.Time) error {
	if t.Status != StatusPaused {
		return validationErr("status", "only a paused task can be resumed")
	}
	t.Status = StatusActive
	t.LastModified = at
	return nil
}

// Archive moves the task to its terminal status. Archived tasks keep
// their history but accept no further transitions.
func (t *Task) Archive(at time.Time) error {
	if t.Status == StatusArchived {
		return validationErr("status", "task is already archived")
	}
	t.Status = StatusArchived
	t.ArchivedAt = &at
	t.LastModified = at
	return nil
}

func (t *Task) AddSubtask(title string, at time.Time) (string, error) {
	title, err := validateTitle(title)
	if err != nil {
		return "", err
	}
	sub := Subtask{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: at,
	}
	t.Subtasks = append(t.Subtasks, sub)
	t.LastModified = at
	return sub.ID, nil
}

func (t *Task) RemoveSubtask(subtaskID string, at time.Time) bool {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subtaskID {
			t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
			t.LastModified = at
			return true
		}
	}
	return false
}

// ToggleSubtask flips a subtask's done flag and returns its new state.
func (t *Task) ToggleSubtask(subtaskID string, at time.Time) (bool, bool) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subtaskID {
			t.Subtasks[i].Completed = !t.Subtasks[i].Completed
			t.LastModified = at
			return t.Subtasks[i].Completed, true
		}
	}
	return false, false
}

// SubtasksCompleted counts subtasks marked done.
func (t *Task) SubtasksCompleted() int {
	n := 0
	for i := range t.Subtasks {
		if t.Subtasks[i].Completed {
			n++
		}
	}
	return n
}

func (t *Task) AddTag(tag string, at time.Time) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || len(tag) > maxTagLen || len(t.Tags) >= maxTags {
		return false
	}
	for _, existing := range t.Tags {
		if existing == tag {
			return false
		}
	}
	t.Tags = append(t.Tags, tag)
	t.LastModified = at
	return true
}

func (t *Task) RemoveTag(tag string, at time.Time) bool {
	for i, existing := range t.Tags {
		if existing == tag {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			t.LastModified = at
			return true
		}
	}
	return false
}
