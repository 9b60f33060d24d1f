package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"messenger/internal/messenger"
	"messenger/internal/models"
	"messenger/internal/validator"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.sugar.Error(err)
	}
}

// handleError replies with the wire code of a reported outcome, anything else
// is a 500.
func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, messenger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, messenger.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, messenger.ErrPrecondition):
		status = http.StatusForbidden
	default:
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	h.sugar.Debug(err)
	http.Error(w, messenger.Code(err), status)
}

// decodeRequest reads the JSON body into request and validates it. It replies
// 400 itself and returns false when either fails.
func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request, request any) bool {
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.sugar.Debug(err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}

	if err := validator.Struct(request); err != nil {
		h.sugar.Debug(err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(validator.Fields(err))
		return false
	}

	return true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		http.Error(w, fmt.Sprintf("Invalid %s", param), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// userByID returns the user with userID or ErrUserNotFound.
func (h *Handlers) userByID(ctx context.Context, userID int) (models.User, error) {
	users, err := h.svc.Users(ctx)
	if err != nil {
		return models.User{}, err
	}

	user, found := lo.Find(users, func(u models.User) bool { return u.ID == userID })
	if !found {
		return models.User{}, fmt.Errorf("%w: id %d", messenger.ErrUserNotFound, userID)
	}
	return user, nil
}

// userName returns name, or the name of the user with userID when name is empty.
func (h *Handlers) userName(ctx context.Context, userID int, name string) (string, error) {
	if name != "" {
		return name, nil
	}

	user, err := h.userByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}
