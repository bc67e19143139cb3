package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyCheckAPI/internal/achievement"
	"dailyCheckAPI/internal/store"
	"dailyCheckAPI/services"
)

func newTestRouter(t *testing.T) (*mux.Router, *services.GamificationService) {
	t.Helper()
	base := t.TempDir()
	st, err := store.Open(store.Config{
		DataDir:       filepath.Join(base, "data"),
		BackupDir:     filepath.Join(base, "backups"),
		CacheCapacity: 10,
		MaxBackups:    2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	game := services.NewGamificationService(st, achievement.NewEngine(achievement.DefaultRegistry()))
	stats := services.NewStatsService(game)
	userHandler := NewUserHandler(game, stats)
	adminHandler := NewAdminHandler(st)

	r := mux.NewRouter()
	r.HandleFunc("/health", adminHandler.Health).Methods("GET")
	r.HandleFunc("/api/users/{id}", userHandler.GetUser).Methods("GET")
	r.HandleFunc("/api/users/{id}/stats", userHandler.GetStats).Methods("GET")
	r.HandleFunc("/api/users/{id}/achievements", userHandler.GetAchievements).Methods("GET")
	r.HandleFunc("/api/users/{id}/notes", userHandler.UpdateNotes).Methods("PUT")
	r.HandleFunc("/api/users/{id}/goals/weekly", userHandler.SetWeeklyGoal).Methods("PUT")
	r.HandleFunc("/api/users/{id}/export", userHandler.ExportUser).Methods("GET")
	r.HandleFunc("/api/users/{id}/tasks", userHandler.ListTasks).Methods("GET")
	r.HandleFunc("/api/users/{id}/tasks", userHandler.CreateTask).Methods("POST")
	r.HandleFunc("/api/users/{id}/tasks/{taskID}", userHandler.DeleteTask).Methods("DELETE")
	r.HandleFunc("/api/users/{id}/tasks/{taskID}/complete", userHandler.CompleteTask).Methods("POST")
	r.HandleFunc("/api/users/{id}/tasks/{taskID}/{action:pause|resume|archive}", userHandler.TransitionTask).Methods("POST")
	r.HandleFunc("/api/admin/store", adminHandler.StoreStats).Methods("GET")
	return r, game
}

func doRequest(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetUserNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/api/users/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, r, http.MethodGet, "/api/users/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndCompleteTaskOverHTTP(t *testing.T) {
	r, game := newTestRouter(t)
	_, err := game.GetOrCreateUser(42, "reader", "Sam")
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodPost, "/api/users/42/tasks", services.CreateTaskInput{
		Title:      "Read 10 pages",
		Difficulty: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = doRequest(t, r, http.MethodPost,
		fmt.Sprintf("/api/users/42/tasks/%s/complete", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.CompleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 28, result.XPAwarded)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.False(t, result.AlreadyCompleted)

	rec = doRequest(t, r, http.MethodGet, "/api/users/42/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tasks_completed":1`)
}

func TestCreateTaskValidationOverHTTP(t *testing.T) {
	r, game := newTestRouter(t)
	_, err := game.GetOrCreateUser(42, "reader", "Sam")
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodPost, "/api/users/42/tasks", services.CreateTaskInput{
		Title: "ab",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")
}

func TestTransitionAndDeleteOverHTTP(t *testing.T) {
	r, game := newTestRouter(t)
	_, err := game.GetOrCreateUser(42, "reader", "Sam")
	require.NoError(t, err)
	tk, err := game.CreateTask(42, services.CreateTaskInput{Title: "Read 10 pages"})
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodPost, "/api/users/42/tasks/"+tk.ID+"/pause", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodPost, "/api/users/42/tasks/"+tk.ID+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "paused tasks cannot be completed")

	rec = doRequest(t, r, http.MethodDelete, "/api/users/42/tasks/"+tk.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodDelete, "/api/users/42/tasks/"+tk.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportOverHTTP(t *testing.T) {
	r, game := newTestRouter(t)
	_, err := game.GetOrCreateUser(42, "reader", "Sam")
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodGet, "/api/users/42/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dailycheck_42.csv")

	rec = doRequest(t, r, http.MethodGet, "/api/users/42/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndStoreStats(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = doRequest(t, r, http.MethodGet, "/api/admin/store", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), store.SchemaVersion)
}

func TestAchievementsEndpoint(t *testing.T) {
	r, game := newTestRouter(t)
	_, err := game.GetOrCreateUser(42, "reader", "Sam")
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodGet, "/api/users/42/achievements", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summary      achievement.Overview  `json:"summary"`
		Achievements []achievement.Summary `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Achievements)
	for _, s := range body.Achievements {
		assert.False(t, s.Earned)
	}
	assert.Equal(t, 0, body.Summary.Earned)
	assert.Greater(t, body.Summary.Total, 0)
	assert.NotEmpty(t, body.Summary.ByCategory)
}

func TestNotesAndWeeklyGoalOverHTTP(t *testing.T) {
	r, game := newTestRouter(t)
	_, err := game.GetOrCreateUser(42, "reader", "Sam")
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodPut, "/api/users/42/notes",
		map[string]string{"notes": "buy a new notebook"})
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := game.GetUser(42)
	require.NoError(t, err)
	assert.Equal(t, "buy a new notebook", u.Notes)

	rec = doRequest(t, r, http.MethodPut, "/api/users/42/goals/weekly",
		map[string]interface{}{"week": "2026-W33", "goal": 12})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"week":"2026-W33"`)

	rec = doRequest(t, r, http.MethodPut, "/api/users/42/goals/weekly",
		map[string]interface{}{"goal": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
