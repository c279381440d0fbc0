package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"forumhub/app/repositories"
	"forumhub/app/services"
	"forumhub/app/storage"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const maxJSONBody = 1 << 20

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[http] failed to encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, map[string]string{"error": message})
}

// handleError logs err and replies with "Failed to <op>: <cause>" and the
// status matching the error's kind
func handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s %s: failed to %s: %+v", r.Method, r.URL.Path, op, err)
	} else {
		log.Printf("[http] %s %s: failed to %s: %v", r.Method, r.URL.Path, op, err)
	}
	sendError(w, "Failed to "+op+": "+err.Error(), status)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrInvalid), errors.Is(err, storage.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, repositories.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, storage.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return &services.InputError{Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, &services.InputError{Reason: "invalid " + name}
	}
	return id, nil
}

// pageParams reads the page and per_page query parameters; bad values
// fall back to the first page and the default size
func pageParams(r *http.Request) (page, perPage int) {
	page, perPage = 1, services.DefaultPerPage
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if pp, err := strconv.Atoi(v); err == nil && pp > 0 {
			perPage = pp
		}
	}
	if perPage > services.MaxPerPage {
		perPage = services.MaxPerPage
	}
	return page, perPage
}
