package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"groupcast/internal/models"
	"groupcast/internal/repository"
)

// ContactService handles contact business logic
type ContactService struct {
	contactRepo repository.ContactRepository
}

// NewContactService creates a new contact service
func NewContactService(contactRepo repository.ContactRepository) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
	}
}

// CreateContact creates a new contact in the caller's address book
func (s *ContactService) CreateContact(ctx context.Context, ownerID string, req *ContactRequest) (*models.Contact, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	// Create contact model
	contact := &models.Contact{
		OwnerID:   ownerID,
		Name:      req.Name,
		Phone:     req.normalizedPhone(),
		Email:     req.normalizedEmail(),
		Notes:     req.Notes,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// Save to database
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{
				Resource: "contact",
				Message:  "a contact with this phone or email already exists",
			}
		}
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	return contact, nil
}

// GetContact retrieves a contact by ID
func (s *ContactService) GetContact(ctx context.Context, id int, ownerID string) (*models.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "contact", ID: id}
	}
	return contact, nil
}

// ListContacts lists the caller's contacts, optionally filtered by a
// case-insensitive search over name, phone and email
func (s *ContactService) ListContacts(ctx context.Context, ownerID string, search string, limit, offset int) ([]*models.Contact, error) {
	contacts, err := s.contactRepo.List(ctx, ownerID, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// UpdateContact updates a contact's fields
func (s *ContactService) UpdateContact(ctx context.Context, id int, ownerID string, req *ContactRequest) (*models.Contact, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	// Get existing contact
	contact, err := s.contactRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "contact", ID: id}
	}

	// Apply changes
	contact.Name = req.Name
	contact.Phone = req.normalizedPhone()
	contact.Email = req.normalizedEmail()
	contact.Notes = req.Notes

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{
				Resource: "contact",
				Message:  "a contact with this phone or email already exists",
			}
		}
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	return contact, nil
}

// DeleteContact removes a contact and its group memberships
func (s *ContactService) DeleteContact(ctx context.Context, id int, ownerID string) error {
	if err := s.contactRepo.Delete(ctx, id, ownerID); err != nil {
		return &NotFoundError{Resource: "contact", ID: id}
	}
	return nil
}

// isUniqueViolation reports whether a postgres error is a unique
// constraint violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Request/Response types

// ContactRequest represents a request to create or update a contact
type ContactRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
	Notes string  `json:"notes"`
}

// Validate validates the contact request
func (r *ContactRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Email != nil && *r.Email != "" && !strings.Contains(*r.Email, "@") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// normalizedPhone returns the phone value with empty strings collapsed to nil
func (r *ContactRequest) normalizedPhone() *string {
	if r.Phone == nil || strings.TrimSpace(*r.Phone) == "" {
		return nil
	}
	phone := strings.TrimSpace(*r.Phone)
	return &phone
}

// normalizedEmail returns the email value with empty strings collapsed to nil
func (r *ContactRequest) normalizedEmail() *string {
	if r.Email == nil || strings.TrimSpace(*r.Email) == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(*r.Email))
	return &email
}
