package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ExportJSON returns one user's full record as indented JSON.
func (s *Store) ExportJSON(id int64) ([]byte, error) {
	u, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting user %d: %w", id, err)
	}
	return data, nil
}

// ExportCSV returns one user's completion history as CSV, one row per
// completed entry, ordered by date then task title.
func (s *Store) ExportCSV(id int64) ([]byte, error) {
	u, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	type row struct {
		date, taskID, title, category string
		xp, minutes                   int
		note                          string
	}
	var rows []row

	s.mu.Lock()
	for _, t := range u.Tasks {
		for i := range t.Completions {
			c := &t.Completions[i]
			if !c.Completed {
				continue
			}
			rows = append(rows, row{
				date:     c.Date,
				taskID:   t.ID,
				title:    t.Title,
				category: string(t.Category),
				xp:       c.XPAwarded,
				minutes:  c.TimeSpent,
				note:     c.Note,
			})
		}
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].date != rows[j].date {
			return rows[i].date < rows[j].date
		}
		return rows[i].title < rows[j].title
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "task_id", "title", "category", "xp_awarded", "time_spent_minutes", "note"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{r.date, r.taskID, r.title, r.category, strconv.Itoa(r.xp), strconv.Itoa(r.minutes), r.note}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("exporting user %d: %w", id, err)
	}
	return buf.Bytes(), nil
}
