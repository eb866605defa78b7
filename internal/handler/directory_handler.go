package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"

	"wablast-backend/internal/config"
	"wablast-backend/internal/model"
	"wablast-backend/internal/service"
	"wablast-backend/internal/utils"
)

type DirectoryHandler struct {
	Directory *service.DirectoryService
	Config    *config.Config

	mu           sync.Mutex
	pendingState string
}

func NewDirectoryHandler(directory *service.DirectoryService, cfg *config.Config) *DirectoryHandler {
	return &DirectoryHandler{Directory: directory, Config: cfg}
}

// Authorize redirects the operator to the external authorization page.
func (h *DirectoryHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	state := hex.EncodeToString(buf)

	h.mu.Lock()
	h.pendingState = state
	h.mu.Unlock()

	http.Redirect(w, r, h.Directory.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback exchanges the authorization code, persists the token and sends
// the operator back to the frontend import page.
func (h *DirectoryHandler) Callback(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	expected := h.pendingState
	h.pendingState = ""
	h.mu.Unlock()

	if state := r.URL.Query().Get("state"); expected == "" || state != expected {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid authorization state")
		return
	}

	if err := h.Directory.HandleCallback(r.Context(), r.URL.Query().Get("code")); err != nil {
		utils.ErrorFromService(w, err)
		return
	}

	http.Redirect(w, r, h.Config.FrontendURL+"/import", http.StatusTemporaryRedirect)
}

// ListContacts returns the normalized external directory, 401 when no
// usable token is stored.
func (h *DirectoryHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.Directory.ListContacts(r.Context())
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, contacts, "")
}

// Disconnect drops the stored directory credential.
func (h *DirectoryHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.Disconnect(); err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, nil, "Directory disconnected")
}

func (h *DirectoryHandler) SaveSelected(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SetName string   `json:"setName"`
		Numbers []string `json:"numbers"`
		Names   []string `json:"names,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SetName == "" {
		utils.ErrorResponse(w, http.StatusBadRequest, "Missing set name")
		return
	}

	selection := make([]*model.DirectoryContact, len(req.Numbers))
	for i, number := range req.Numbers {
		name := ""
		if i < len(req.Names) {
			name = req.Names[i]
		}
		selection[i] = &model.DirectoryContact{Name: name, Phone: number}
	}

	result, err := h.Directory.SaveSelected(req.SetName, selection)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, result, "Contacts imported")
}
