package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"groupcast/internal/middleware"
	"groupcast/internal/models"
	"groupcast/internal/service"
)

// GroupHandler handles HTTP requests for group operations
type GroupHandler struct {
	groupService *service.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

// Create handles POST /groups - creates a new group
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGroupRequest

	// Parse JSON body
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to create group
	group, err := h.groupService.CreateGroup(r.Context(), middleware.RequesterID(r), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 201 Created
	WriteCreated(w, group)
}

// List handles GET /groups - lists the caller's groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Parse pagination parameters
	page := 1
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	perPage := 50
	if perPageStr := query.Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 {
			perPage = pp
		}
	}

	// Validate per_page max 100
	if perPage > 100 {
		perPage = 100
	}

	includeArchived := query.Get("include_archived") == "true"

	// Call service to list groups
	groups, err := h.groupService.ListGroups(r.Context(), middleware.RequesterID(r), includeArchived, perPage, (page-1)*perPage)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, ListGroupsResponse{Groups: groups})
}

// GetByID handles GET /groups/{id} - gets a group by ID
func (h *GroupHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	idStr := vars["id"]

	// Convert to integer
	id, err := strconv.Atoi(idStr)
	if err != nil {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Validate ID > 0
	if id <= 0 {
		WriteValidationError(w, "group ID must be greater than 0")
		return
	}

	// Call service to get group
	group, err := h.groupService.GetGroup(r.Context(), id, middleware.RequesterID(r))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, group)
}

// Update handles PUT /groups/{id} - updates a group
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Parse JSON body
	var req service.UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to update group
	group, err := h.groupService.UpdateGroup(r.Context(), id, middleware.RequesterID(r), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, group)
}

// Archive handles DELETE /groups/{id} - archives a group. Groups are never
// hard-deleted; their history stays queryable.
func (h *GroupHandler) Archive(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Call service to archive group
	if err := h.groupService.SetArchived(r.Context(), id, middleware.RequesterID(r), true); err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 204 No Content
	WriteNoContent(w)
}

// ConnectChannel handles POST /groups/{id}/channels/{channel} - enables a
// delivery channel on a group
func (h *GroupHandler) ConnectChannel(w http.ResponseWriter, r *http.Request) {
	// Extract ID and channel from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}
	channel := models.Channel(vars["channel"])

	// Call service to connect channel
	group, err := h.groupService.ConnectChannel(r.Context(), id, middleware.RequesterID(r), channel)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, group)
}

// DisconnectChannel handles DELETE /groups/{id}/channels/{channel} -
// disables a delivery channel on a group
func (h *GroupHandler) DisconnectChannel(w http.ResponseWriter, r *http.Request) {
	// Extract ID and channel from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}
	channel := models.Channel(vars["channel"])

	// Call service to disconnect channel
	group, err := h.groupService.DisconnectChannel(r.Context(), id, middleware.RequesterID(r), channel)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, group)
}

// Request/Response types

// ListGroupsResponse represents the response for listing groups
type ListGroupsResponse struct {
	Groups []*models.GroupWithCounts `json:"groups"`
}
