package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/internal/http/middleware"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// SessionAdmin reads and resets conversation sessions.
type SessionAdmin interface {
	Session(ctx context.Context, userID string) (conversation.UserSession, error)
	Reset(ctx context.Context, userID string) (conversation.UserSession, error)
}

// AdminSessionsHandler exposes session inspection for operators.
type AdminSessionsHandler struct {
	sessions SessionAdmin
	logger   *logging.Logger
}

func NewAdminSessionsHandler(sessions SessionAdmin, logger *logging.Logger) *AdminSessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSessionsHandler{sessions: sessions, logger: logger}
}

// SessionResponse is the admin view of one session.
type SessionResponse struct {
	UserID       string `json:"user_id"`
	State        string `json:"state"`
	CapturedName string `json:"captured_name,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func toSessionResponse(s conversation.UserSession) SessionResponse {
	resp := SessionResponse{UserID: s.UserID, State: string(s.State), CapturedName: s.CapturedName}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// GetSession handles GET /admin/sessions/{userID}.
func (h *AdminSessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}
	sess, err := h.sessions.Session(r.Context(), userID)
	if errors.Is(err, conversation.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		h.logger.Error("admin session lookup failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// ResetSession handles POST /admin/sessions/{userID}/reset.
func (h *AdminSessionsHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}
	sess, err := h.sessions.Reset(r.Context(), userID)
	if err != nil {
		h.logger.Error("admin session reset failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session store unavailable"})
		return
	}
	actor := ""
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		actor = claims.Subject
	}
	h.logger.Info("admin reset session", "user_id", sess.UserID, "actor", actor)
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
