package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/api/middleware"
)

// AuthHandler mints development tokens. User identity lives in the platform
// auth service; this endpoint only exists for local testing and is mounted
// solely when dev auth is enabled.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// DevLogin handles POST /v1/auth/dev-login.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid JSON body")
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "user_id must be a UUID")
		return
	}
	role := req.Role
	if role == "" {
		role = "user"
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uid.String(),
		"role":    role,
		"sub":     uid.String(),
		"iss":     middleware.JWTIssuer(),
		"aud":     middleware.JWTAudience(),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	})

	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"token": signed})
}
