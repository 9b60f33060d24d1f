package handlers

import (
	"net/http"
)

type nameRequest struct {
	Name string `json:"name" validate:"name"`
}

// banRequest only needs a name, files written elsewhere can hold names that
// would not pass creation rules.
type banRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handlers) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, users)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.userByID(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, user)
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var request nameRequest
	if !h.decodeRequest(w, r, &request) {
		return
	}

	user, err := h.svc.CreateUser(r.Context(), request.Name)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, user)
}

func (h *Handlers) BanUser(w http.ResponseWriter, r *http.Request) {
	var request banRequest
	if !h.decodeRequest(w, r, &request) {
		return
	}

	if err := h.svc.BanUser(r.Context(), request.Name); err != nil {
		h.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
