package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"groupcast/internal/middleware"
	"groupcast/internal/models"
	"groupcast/internal/repository"
	"groupcast/internal/service"
	"groupcast/internal/validation"
)

// MessageHandler handles HTTP requests for message operations
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// Create handles POST /groups/{id}/messages - creates a message through the
// cross-field rules. The body is the edit form exactly as the UI posts it.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Extract group ID from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	// Parse JSON body
	var form validation.MessageForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to create message
	message, err := h.messageService.CreateMessage(r.Context(), groupID, middleware.RequesterID(r), &form)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 201 Created
	WriteCreated(w, message)
}

// List handles GET /groups/{id}/messages - lists a group's messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	// Extract group ID from URL
	vars := mux.Vars(r)
	groupID, err := strconv.Atoi(vars["id"])
	if err != nil || groupID <= 0 {
		WriteValidationError(w, "invalid group ID format")
		return
	}

	query := r.URL.Query()

	// Parse pagination parameters
	page := 1
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	perPage := 20
	if perPageStr := query.Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 {
			perPage = pp
		}
	}

	// Validate per_page max 100
	if perPage > 100 {
		perPage = 100
	}

	// Build filters
	filters := repository.MessageFilters{
		Page:     page,
		PageSize: perPage,
	}

	// Parse status filter
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.MessageStatus(statusStr)
		if !status.Valid() {
			WriteValidationError(w, "invalid status: must be one of draft, pending, sent, failed")
			return
		}
		filters.Status = &status
	}

	// Parse type filter
	if typeStr := query.Get("type"); typeStr != "" {
		validTypes := map[string]models.MessageType{
			"default":   models.MessageTypeDefault,
			"scheduled": models.MessageTypeScheduled,
			"recurring": models.MessageTypeRecurring,
		}
		if msgType, ok := validTypes[typeStr]; ok {
			filters.Type = &msgType
		} else {
			WriteValidationError(w, "invalid type: must be one of default, scheduled, recurring")
			return
		}
	}

	// Call service to list messages
	messages, pagination, err := h.messageService.ListMessages(r.Context(), groupID, middleware.RequesterID(r), filters)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, ListMessagesResponse{
		Messages:   messages,
		Pagination: pagination,
	})
}

// GetByID handles GET /messages/{id} - gets a message with its reminders
func (h *MessageHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid message ID format")
		return
	}

	// Call service to get message
	message, err := h.messageService.GetMessage(r.Context(), id, middleware.RequesterID(r))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, message)
}

// Update handles PUT /messages/{id} - edits a message through the same
// rules as creation
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid message ID format")
		return
	}

	// Parse JSON body
	var form validation.MessageForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	// Call service to update message
	message, err := h.messageService.UpdateMessage(r.Context(), id, middleware.RequesterID(r), &form)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, message)
}

// Delete handles DELETE /messages/{id} - deletes a message
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid message ID format")
		return
	}

	// Call service to delete message
	if err := h.messageService.DeleteMessage(r.Context(), id, middleware.RequesterID(r)); err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 204 No Content
	WriteNoContent(w)
}

// Dispatch handles POST /messages/{id}/dispatch - snapshots the recipients
// and queues the message for delivery. An Idempotency-Key header makes the
// call safe to retry: a replayed key returns the original batch.
func (h *MessageHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid message ID format")
		return
	}

	// Call service to dispatch
	result, err := h.messageService.Dispatch(r.Context(), id, middleware.RequesterID(r), r.Header.Get("Idempotency-Key"))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, result)
}

// Recipients handles GET /messages/{id}/recipients - lists the snapshot
// recipients of a dispatch batch (the latest, or ?batch_id=...)
func (h *MessageHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	// Extract ID from URL
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid message ID format")
		return
	}

	// Parse optional batch ID
	var batchID *uuid.UUID
	if batchStr := r.URL.Query().Get("batch_id"); batchStr != "" {
		parsed, err := uuid.Parse(batchStr)
		if err != nil {
			WriteValidationError(w, "invalid batch ID format")
			return
		}
		batchID = &parsed
	}

	// Call service to get recipients
	result, err := h.messageService.GetRecipients(r.Context(), id, middleware.RequesterID(r), batchID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 200 OK
	WriteOK(w, result)
}

// Request/Response types

// ListMessagesResponse represents the response for listing messages
type ListMessagesResponse struct {
	Messages   []*models.Message       `json:"messages"`
	Pagination *service.PaginationInfo `json:"pagination"`
}
