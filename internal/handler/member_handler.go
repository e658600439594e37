package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"groupcast/internal/middleware"
	"groupcast/internal/models"
	"groupcast/internal/service"
)

// MemberHandler handles HTTP requests for group roster operations
type MemberHandler struct {
	memberService *service.MemberService
	exportService *service.ExportService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *service.MemberService, exportService *service.ExportService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		exportService: exportService,
	}
}

// List handles GET /groups/{id}/members - lists a group's roster
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	// Extract group ID from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Call service to list the roster
	roster, err := h.memberService.ListRoster(r.Context(), groupID, middleware.RequesterID(r))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, ListMembersResponse{Members: roster})
}

// AddBatch handles POST /groups/{id}/members - adds a batch of contacts to
// a group
func (h *MemberHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	// Extract group ID from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Parse JSON body
	var req service.AddMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to add members
	result, err := h.memberService.AddMembers(r.Context(), groupID, middleware.RequesterID(r), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 201 Created
	WriteCreated(w, result)
}

// Upsert handles PUT /groups/{id}/members/{contactID} - adds a contact to a
// group or updates its member settings
func (h *MemberHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	// Extract group and contact IDs from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}
	contactID, err := strconv.Atoi(vars["contactID"])
	if err != nil || contactID <= 0 {
		WriteValidationError(w, "invalid contact ID format")
		return
	}

	// Parse JSON body; an empty body means default settings
	var req service.UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to add or update the member
	member, created, err := h.memberService.UpsertMember(r.Context(), groupID, contactID, middleware.RequesterID(r), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 201 when a membership was created, 200 when updated
	if created {
		WriteCreated(w, member)
		return
	}
	WriteOK(w, member)
}

// Delete handles DELETE /groups/{id}/members/{contactID} - removes a
// contact from a group
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	// Extract group and contact IDs from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}
	contactID, err := strconv.Atoi(vars["contactID"])
	if err != nil || contactID <= 0 {
		WriteValidationError(w, "invalid contact ID format")
		return
	}

	// Call service to remove the member
	if err := h.memberService.RemoveMember(r.Context(), groupID, contactID, middleware.RequesterID(r)); err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 204 No Content
	WriteNoContent(w)
}

// Export handles GET /groups/{id}/members/export - downloads the roster as
// an xlsx workbook
func (h *MemberHandler) Export(w http.ResponseWriter, r *http.Request) {
	// Extract group ID from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Load the roster
	roster, err := h.memberService.ListRoster(r.Context(), groupID, middleware.RequesterID(r))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Render the workbook
	workbook, err := h.exportService.RosterWorkbook(roster)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="group-%d-members.xlsx"`, groupID))
	w.Header().Set("Content-Length", strconv.Itoa(len(workbook)))
	w.WriteHeader(http.StatusOK)
	w.Write(workbook)
}

// Request/Response types

// ListMembersResponse represents the response for listing a roster
type ListMembersResponse struct {
	Members []*models.MemberWithContact `json:"members"`
}
