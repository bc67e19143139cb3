package handlers

import (
	"encoding/json"
	"net/http"

	"dailyCheckAPI/internal/store"
)

// AdminHandler exposes store introspection and backup controls on the
// token-guarded admin routes.
type AdminHandler struct {
	store *store.Store
}

func NewAdminHandler(st *store.Store) *AdminHandler {
	return &AdminHandler{store: st}
}

// Health handles GET /health. Unauthenticated; load balancers poll it.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	status := "ok"
	code := http.StatusOK
	if stats.Degraded {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, map[string]interface{}{
		"status": status,
		"store":  stats,
	})
}

// StoreStats handles GET /api/admin/store
func (h *AdminHandler) StoreStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.Stats())
}

// ListBackups handles GET /api/admin/backups
func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Backups()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	respondWithJSON(w, http.StatusOK, names)
}

// CreateBackup handles POST /api/admin/backup
func (h *AdminHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	name, err := h.store.Backup()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"backup": name})
}

// Flush handles POST /api/admin/flush
func (h *AdminHandler) Flush(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.FlushDirty()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "flushed",
		"records": count,
	})
}

// RestoreBackup handles POST /api/admin/restore with {"backup": name}
func (h *AdminHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Backup string `json:"backup"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Backup == "" {
		respondWithError(w, http.StatusBadRequest, "Field backup is required")
		return
	}
	if err := h.store.RestoreBackup(body.Backup); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "restored", "backup": body.Backup})
}

// SearchUsers handles GET /api/admin/users?q=
func (h *AdminHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	type match struct {
		ID        int64  `json:"user_id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	results := []match{}
	for _, u := range h.store.Search(query) {
		results = append(results, match{ID: u.ID, Username: u.Username, FirstName: u.FirstName})
	}
	respondWithJSON(w, http.StatusOK, results)
}
