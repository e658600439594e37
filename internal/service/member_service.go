package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"groupcast/internal/models"
	"groupcast/internal/repository"
)

// MemberService handles group membership business logic
type MemberService struct {
	memberRepo  repository.MemberRepository
	contactRepo repository.ContactRepository
	groupRepo   repository.GroupRepository
	db          *sql.DB
}

// NewMemberService creates a new member service
func NewMemberService(
	memberRepo repository.MemberRepository,
	contactRepo repository.ContactRepository,
	groupRepo repository.GroupRepository,
	db *sql.DB,
) *MemberService {
	return &MemberService{
		memberRepo:  memberRepo,
		contactRepo: contactRepo,
		groupRepo:   groupRepo,
		db:          db,
	}
}

// AddMembers adds a batch of contacts to a group. Contacts that are already
// members are skipped rather than rejected, so bulk adds are idempotent.
func (s *MemberService) AddMembers(ctx context.Context, groupID int, ownerID string, req *AddMembersRequest) (*AddMembersResult, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	// Get group
	group, err := s.groupRepo.GetByID(ctx, groupID, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "group", ID: groupID}
	}

	if group.IsArchived {
		return nil, &BusinessLogicError{Message: "cannot add members to an archived group"}
	}

	// Get contacts, scoped to the owner so foreign IDs silently drop out
	contacts, err := s.contactRepo.GetByIDs(ctx, ownerID, req.ContactIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}

	if len(contacts) == 0 {
		return nil, &ValidationError{Message: "no valid contacts found"}
	}

	result := &AddMembersResult{Members: make([]*models.Member, 0, len(contacts))}
	for _, contact := range contacts {
		exists, err := s.memberRepo.ExistsInGroup(ctx, groupID, contact.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if exists {
			result.Skipped++
			continue
		}

		member := &models.Member{
			GroupID:     groupID,
			ContactID:   contact.ID,
			IsRecipient: true,
			CreatedBy:   ownerID,
			UpdatedBy:   ownerID,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := s.memberRepo.Create(ctx, member); err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}

		result.Added++
		result.Members = append(result.Members, member)
	}

	return result, nil
}

// UpsertMember adds a contact to a group or, if it is already a member,
// updates its recipient flag and notes. It records the caller as creator or
// last editor and reports whether a new membership was created.
func (s *MemberService) UpsertMember(ctx context.Context, groupID, contactID int, ownerID string, req *UpdateMemberRequest) (*models.MemberWithContact, bool, error) {
	// Get group
	group, err := s.groupRepo.GetByID(ctx, groupID, ownerID)
	if err != nil {
		return nil, false, &NotFoundError{Resource: "group", ID: groupID}
	}

	if group.IsArchived {
		return nil, false, &BusinessLogicError{Message: "cannot modify members of an archived group"}
	}

	// Get contact
	contact, err := s.contactRepo.GetByID(ctx, contactID, ownerID)
	if err != nil {
		return nil, false, &NotFoundError{Resource: "contact", ID: contactID}
	}

	existing, err := s.memberRepo.GetByGroupAndContact(ctx, groupID, contactID, ownerID)
	if err != nil {
		// Not a member yet: create with the requested settings
		member := &models.Member{
			GroupID:     groupID,
			ContactID:   contact.ID,
			IsRecipient: true,
			CreatedBy:   ownerID,
			UpdatedBy:   ownerID,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if req.IsRecipient != nil {
			member.IsRecipient = *req.IsRecipient
		}
		if req.Notes != nil {
			member.Notes = *req.Notes
		}

		if err := s.memberRepo.Create(ctx, member); err != nil {
			return nil, false, fmt.Errorf("failed to add member: %w", err)
		}

		return &models.MemberWithContact{Member: *member, Contact: *contact}, true, nil
	}

	// Already a member: apply changes
	if req.IsRecipient != nil {
		existing.IsRecipient = *req.IsRecipient
	}
	if req.Notes != nil {
		existing.Notes = *req.Notes
	}
	existing.UpdatedBy = ownerID

	if err := s.memberRepo.Update(ctx, &existing.Member); err != nil {
		return nil, false, fmt.Errorf("failed to update member: %w", err)
	}

	return existing, false, nil
}

// ListRoster lists a group's members with their contact details
func (s *MemberService) ListRoster(ctx context.Context, groupID int, ownerID string) ([]*models.MemberWithContact, error) {
	// Verify the group exists and belongs to the caller
	if _, err := s.groupRepo.GetByID(ctx, groupID, ownerID); err != nil {
		return nil, &NotFoundError{Resource: "group", ID: groupID}
	}

	roster, err := s.memberRepo.ListRoster(ctx, s.db, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return roster, nil
}

// RemoveMember removes a contact from a group. The contact itself is kept,
// and snapshots already taken from the membership stay frozen.
func (s *MemberService) RemoveMember(ctx context.Context, groupID, contactID int, ownerID string) error {
	if err := s.memberRepo.Delete(ctx, groupID, contactID, ownerID); err != nil {
		return &NotFoundError{Resource: "member", ID: contactID}
	}
	return nil
}

// Request/Response types

// AddMembersRequest represents a request to add contacts to a group
type AddMembersRequest struct {
	ContactIDs []int `json:"contact_ids"`
}

// Validate validates the add members request
func (r *AddMembersRequest) Validate() error {
	if len(r.ContactIDs) == 0 {
		return fmt.Errorf("at least one contact ID required")
	}
	return nil
}

// AddMembersResult represents the result of a bulk member add
type AddMembersResult struct {
	Added   int              `json:"added"`
	Skipped int              `json:"skipped"`
	Members []*models.Member `json:"members"`
}

// UpdateMemberRequest represents a request to set a member's settings
type UpdateMemberRequest struct {
	IsRecipient *bool   `json:"is_recipient,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}
