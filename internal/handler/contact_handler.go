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

// ContactHandler handles HTTP requests for contact operations
type ContactHandler struct {
	contactService *service.ContactService
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

// Create handles POST /contacts - creates a new contact
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ContactRequest

	// Parse JSON body
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to create contact
	contact, err := h.contactService.CreateContact(r.Context(), middleware.RequesterID(r), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 201 Created
	WriteCreated(w, contact)
}

// List handles GET /contacts - lists the caller's contacts. The search
// query matches name, phone and email case-insensitively.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
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

	// Call service to list contacts
	contacts, err := h.contactService.ListContacts(r.Context(), middleware.RequesterID(r), query.Get("search"), perPage, (page-1)*perPage)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, ListContactsResponse{Contacts: contacts})
}

// GetByID handles GET /contacts/{id} - gets a contact by ID
func (h *ContactHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid contact ID format")
		return
	}

	// Call service to get contact
	contact, err := h.contactService.GetContact(r.Context(), id, middleware.RequesterID(r))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, contact)
}

// Update handles PUT /contacts/{id} - updates a contact
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid contact ID format")
		return
	}

	// Parse JSON body
	var req service.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to update contact
	contact, err := h.contactService.UpdateContact(r.Context(), id, middleware.RequesterID(r), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, contact)
}

// Delete handles DELETE /contacts/{id} - deletes a contact
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid contact ID format")
		return
	}

	// Call service to delete contact
	if err := h.contactService.DeleteContact(r.Context(), id, middleware.RequesterID(r)); err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 204 No Content
	WriteNoContent(w)
}

// Request/Response types

// ListContactsResponse represents the response for listing contacts
type ListContactsResponse struct {
	Contacts []*models.Contact `json:"contacts"`
}
