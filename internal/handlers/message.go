package handlers

import (
	"net/http"
)

type postRequest struct {
	SenderID   int    `json:"sender_id" validate:"required_without=SenderName"`
	SenderName string `json:"sender_name" validate:"omitempty,name"`
	Content    string `json:"content" validate:"content"`
}

func (h *Handlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.svc.AllMessages(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, messages)
}

func (h *Handlers) GetChannelMessages(w http.ResponseWriter, r *http.Request) {
	channelID, ok := parseID(w, r, "channelID")
	if !ok {
		return
	}

	messages, err := h.svc.Messages(r.Context(), channelID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, messages)
}

func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := parseID(w, r, "channelID")
	if !ok {
		return
	}

	var request postRequest
	if !h.decodeRequest(w, r, &request) {
		return
	}

	ctx := r.Context()

	senderName, err := h.userName(ctx, request.SenderID, request.SenderName)
	if err != nil {
		h.handleError(w, err)
		return
	}

	message, err := h.svc.PostMessage(ctx, channelID, senderName, request.Content)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, message)
}
