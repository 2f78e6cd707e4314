package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"chatline-backend/internal/middleware"
	"chatline-backend/internal/models"
)

type AuthHandler struct {
	jwtAuth *middleware.JWTAuth
}

func NewAuthHandler(jwtAuth *middleware.JWTAuth) *AuthHandler {
	return &AuthHandler{jwtAuth: jwtAuth}
}

// GuestToken mints a short-lived guest session token. There are no
// accounts; the token just gates the API and the websocket feed.
func (h *AuthHandler) GuestToken(w http.ResponseWriter, r *http.Request) {
	const ttl = 24 * time.Hour

	token, sessionID, err := h.jwtAuth.GenerateGuestToken(ttl)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("AUTH_ERROR", "Failed to create guest session", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"session_id": sessionID,
		"expires_in": int(ttl.Seconds()),
	})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}
