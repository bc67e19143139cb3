package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dailyCheckAPI/internal/store"
	"dailyCheckAPI/internal/task"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service errors onto status codes.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var vErr *task.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDegraded):
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Request failed: %v", err)
		respondWithError(w, http.StatusBadRequest, err.Error())
	}
}
