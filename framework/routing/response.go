package routing

import (
	"encoding/json"
	"net/http"
)

type envelope map[string]any

// JSON sends a JSON response.
//
//	routing.JSON(w, http.StatusOK, map[string]any{"message": "ok"})
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func Success(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func Created(w http.ResponseWriter, v any) {
	JSON(w, http.StatusCreated, envelope{"data": v})
}

// Error sends a JSON error response: {"message": message}
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, envelope{"message": message})
}

// NotFound sends 404.
func NotFound(w http.ResponseWriter, message ...string) {
	Error(w, http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func ServerError(w http.ResponseWriter, message ...string) {
	Error(w, http.StatusInternalServerError, first(message, "Server Error."))
}

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
