package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"wablast-backend/internal/config"
	"wablast-backend/internal/dashboard"
	"wablast-backend/internal/utils"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	Config *config.Config
	State  *dashboard.State
}

func NewAuthHandler(cfg *config.Config, state *dashboard.State) *AuthHandler {
	return &AuthHandler{Config: cfg, State: state}
}

// Login exchanges the operator password for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.Config.OperatorPass)) != 1 {
		utils.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateOperatorToken(h.Config.JWTSecret, tokenTTL)
	if err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.SuccessResponse(w, http.StatusOK, map[string]string{"token": token}, "Login successful")
}

// WebSocketHandler authenticates via ?token= (browser WebSocket clients
// cannot set headers) and attaches the observer to the dashboard hub.
func (h *AuthHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.ErrorResponse(w, http.StatusUnauthorized, "Missing token")
		return
	}
	if err := utils.ValidateOperatorToken(token, h.Config.JWTSecret); err != nil {
		utils.ErrorResponse(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	dashboard.ServeWs(h.State.Hub(), w, r, h.Config.AllowedOrigins)
}
