package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"dailyCheckAPI/internal/user"
	"dailyCheckAPI/services"
)

// UserHandler serves the dashboard API for user records, tasks and
// progress views.
type UserHandler struct {
	game  *services.GamificationService
	stats *services.StatsService
}

func NewUserHandler(game *services.GamificationService, stats *services.StatsService) *UserHandler {
	return &UserHandler{game: game, stats: stats}
}

func userIDFromRequest(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.game.GetUser(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// GetStats handles GET /api/users/{id}/stats
func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	overview, err := h.stats.Overview(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, overview)
}

// GetAchievements handles GET /api/users/{id}/achievements
func (h *UserHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	summaries, err := h.game.Achievements(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	overview, err := h.game.AchievementOverview(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"summary":      overview,
		"achievements": summaries,
	})
}

// GetCalendar handles GET /api/users/{id}/calendar?year=2026&month=8
func (h *UserHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	year := now.Year()
	month := now.Month()
	if v := r.URL.Query().Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid year")
			return
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			respondWithError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = time.Month(m)
	}

	days, err := h.stats.Calendar(id, year, month)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

// GetWeekly handles GET /api/users/{id}/weekly
func (h *UserHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	weekly, err := h.stats.Weekly(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, weekly)
}

// ListTasks handles GET /api/users/{id}/tasks
func (h *UserHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	tasks, err := h.stats.Tasks(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /api/users/{id}/tasks
func (h *UserHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in services.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.game.CreateTask(id, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// CompleteTask handles POST /api/users/{id}/tasks/{taskID}/complete
func (h *UserHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	taskID := mux.Vars(r)["taskID"]

	var body struct {
		Date    string `json:"date"`
		Note    string `json:"note"`
		Minutes int    `json:"time_spent_minutes"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.game.CompleteTask(id, taskID, body.Date, body.Note, body.Minutes)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// UncompleteTask handles POST /api/users/{id}/tasks/{taskID}/uncomplete
func (h *UserHandler) UncompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	taskID := mux.Vars(r)["taskID"]
	date := r.URL.Query().Get("date")

	if err := h.game.UncompleteTask(id, taskID, date); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "uncompleted"})
}

// TransitionTask handles the pause, resume and archive actions on
// POST /api/users/{id}/tasks/{taskID}/{action}
func (h *UserHandler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	vars := mux.Vars(r)
	taskID := vars["taskID"]

	switch vars["action"] {
	case "pause":
		err = h.game.PauseTask(id, taskID)
	case "resume":
		err = h.game.ResumeTask(id, taskID)
	case "archive":
		err = h.game.ArchiveTask(id, taskID)
	default:
		respondWithError(w, http.StatusNotFound, "Unknown action")
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": vars["action"] + "d"})
}

// DeleteTask handles DELETE /api/users/{id}/tasks/{taskID}
func (h *UserHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.game.DeleteTask(id, mux.Vars(r)["taskID"]); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateSettings handles PUT /api/users/{id}/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var settings user.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.game.UpdateSettings(id, settings); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateNotes handles PUT /api/users/{id}/notes
func (h *UserHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.game.UpdateNotes(id, body.Notes); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetWeeklyGoal handles PUT /api/users/{id}/goals/weekly
func (h *UserHandler) SetWeeklyGoal(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Week string `json:"week"`
		Goal int    `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	week, err := h.game.SetWeeklyGoal(id, body.Week, body.Goal)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"week": week, "goal": body.Goal})
}

// ExportUser handles GET /api/users/{id}/export?format=json|csv
func (h *UserHandler) ExportUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := r.URL.Query().Get("format")
	data, contentType, err := h.game.ExportUser(id, format)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if format == "" {
		format = "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="dailycheck_%d.%s"`, id, format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
