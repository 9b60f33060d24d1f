package handlers

import (
	"net/http"
)

type joinRequest struct {
	UserID int    `json:"user_id" validate:"required_without=Name"`
	Name   string `json:"name" validate:"omitempty,name"`
}

func (h *Handlers) GetChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.svc.Channels(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, channels)
}

func (h *Handlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var request nameRequest
	if !h.decodeRequest(w, r, &request) {
		return
	}

	channel, err := h.svc.CreateChannel(r.Context(), request.Name)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, channel)
}

func (h *Handlers) BanChannel(w http.ResponseWriter, r *http.Request) {
	var request banRequest
	if !h.decodeRequest(w, r, &request) {
		return
	}

	if err := h.svc.BanChannel(r.Context(), request.Name); err != nil {
		h.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetMembers(w http.ResponseWriter, r *http.Request) {
	channelID, ok := parseID(w, r, "channelID")
	if !ok {
		return
	}

	members, err := h.svc.ChannelMembers(r.Context(), channelID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, members)
}

func (h *Handlers) JoinChannel(w http.ResponseWriter, r *http.Request) {
	channelID, ok := parseID(w, r, "channelID")
	if !ok {
		return
	}

	var request joinRequest
	if !h.decodeRequest(w, r, &request) {
		return
	}

	ctx := r.Context()

	name, err := h.userName(ctx, request.UserID, request.Name)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.svc.JoinChannel(ctx, channelID, name); err != nil {
		h.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
