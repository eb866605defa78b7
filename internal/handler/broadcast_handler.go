package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wablast-backend/internal/dashboard"
	"wablast-backend/internal/model"
	"wablast-backend/internal/service"
	"wablast-backend/internal/utils"

	"github.com/gorilla/mux"
)

type BroadcastHandler struct {
	Broadcast *service.BroadcastService
	State     *dashboard.State
}

func NewBroadcastHandler(broadcast *service.BroadcastService, state *dashboard.State) *BroadcastHandler {
	return &BroadcastHandler{Broadcast: broadcast, State: state}
}

// Send runs a full broadcast synchronously and returns the final counters.
func (h *BroadcastHandler) Send(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	run, err := h.Broadcast.Broadcast(r.Context(), setName, req.Message)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, model.Progress{
		Total:  run.Total,
		Sent:   run.Sent,
		Failed: run.Failed,
	}, "Broadcast finished")
}

// History returns past runs, newest first.
func (h *BroadcastHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.Broadcast.ListHistory(limit)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, runs, "")
}

// Status reports the current session status and progress snapshot.
func (h *BroadcastHandler) Status(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, http.StatusOK, map[string]interface{}{
		"status":   h.State.Status(),
		"progress": h.State.Progress(),
	}, "")
}
