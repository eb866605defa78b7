package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"wablast-backend/internal/model"
	"wablast-backend/internal/service"
	"wablast-backend/internal/utils"

	"github.com/gorilla/mux"
)

type ContactHandler struct {
	Contacts *service.ContactService
}

func NewContactHandler(contacts *service.ContactService) *ContactHandler {
	return &ContactHandler{Contacts: contacts}
}

func (h *ContactHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.Contacts.ListSets()
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, sets, "")
}

func (h *ContactHandler) GetSet(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	contacts, err := h.Contacts.GetSet(setName)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, contacts, "")
}

func (h *ContactHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.Contacts.AddContact(setName, req.Phone, req.Name)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusCreated, contact, "Contact added")
}

func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	setName := vars["setName"]
	contactID, err := strconv.ParseInt(vars["contactID"], 10, 64)
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid contact id")
		return
	}

	var patch model.ContactPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.Contacts.UpdateContact(setName, contactID, patch)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, contact, "Contact updated")
}

func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	setName := vars["setName"]
	contactID, err := strconv.ParseInt(vars["contactID"], 10, 64)
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid contact id")
		return
	}

	count, err := h.Contacts.DeleteContact(setName, contactID)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, map[string]int{"count": count}, "Contact deleted")
}

func (h *ContactHandler) RenameSet(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	var req struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Contacts.RenameSet(setName, req.NewName); err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, map[string]string{"name": strings.TrimSpace(req.NewName)}, "Set renamed")
}

func (h *ContactHandler) DeleteSet(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	if err := h.Contacts.DeleteSet(setName); err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, nil, "Set deleted")
}

func (h *ContactHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	// Resolve before writing headers so a missing set still returns 404;
	// the fetched snapshot is what gets streamed.
	contacts, err := h.Contacts.GetSet(setName)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", setName+".csv"))
	// Headers are already out; a mid-stream write error has no recovery.
	_ = h.Contacts.WriteCSV(w, contacts)
}
