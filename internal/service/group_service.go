package service

import (
	"context"
	"fmt"
	"time"

	"groupcast/internal/models"
	"groupcast/internal/repository"
)

// GroupService handles group business logic
type GroupService struct {
	groupRepo repository.GroupRepository
}

// NewGroupService creates a new group service
func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
	}
}

// CreateGroup creates a new group owned by the requesting user
func (s *GroupService) CreateGroup(ctx context.Context, ownerID string, req *CreateGroupRequest) (*models.Group, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	// Create group model
	group := &models.Group{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// Save to database
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// GetGroup retrieves a group by ID
func (s *GroupService) GetGroup(ctx context.Context, id int, ownerID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "group", ID: id}
	}
	return group, nil
}

// ListGroups lists the caller's groups with member and message counts
func (s *GroupService) ListGroups(ctx context.Context, ownerID string, includeArchived bool, limit, offset int) ([]*models.GroupWithCounts, error) {
	groups, err := s.groupRepo.List(ctx, ownerID, includeArchived, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup updates a group's editable fields
func (s *GroupService) UpdateGroup(ctx context.Context, id int, ownerID string, req *UpdateGroupRequest) (*models.Group, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	// Get existing group
	group, err := s.groupRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "group", ID: id}
	}

	// Apply changes
	group.Name = req.Name
	group.Description = req.Description
	group.ImageURL = req.ImageURL

	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return group, nil
}

// ConnectChannel enables a delivery channel on a group. Connecting a channel
// that is already enabled is a conflict, not a no-op, so the caller learns
// the connection already existed.
func (s *GroupService) ConnectChannel(ctx context.Context, id int, ownerID string, channel models.Channel) (*models.Group, error) {
	if !channel.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid channel: must be 'sms', 'email' or 'groupme', got %q", channel)}
	}

	group, err := s.groupRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "group", ID: id}
	}

	if group.ChannelEnabled(channel) {
		return nil, &ConflictError{
			Resource: "channel",
			Message:  fmt.Sprintf("%s is already connected to this group", channel),
		}
	}

	group.SetChannel(channel, true)
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to connect channel: %w", err)
	}

	return group, nil
}

// DisconnectChannel disables a delivery channel on a group
func (s *GroupService) DisconnectChannel(ctx context.Context, id int, ownerID string, channel models.Channel) (*models.Group, error) {
	if !channel.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid channel: must be 'sms', 'email' or 'groupme', got %q", channel)}
	}

	group, err := s.groupRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "group", ID: id}
	}

	if !group.ChannelEnabled(channel) {
		return nil, &ConflictError{
			Resource: "channel",
			Message:  fmt.Sprintf("%s is not connected to this group", channel),
		}
	}

	group.SetChannel(channel, false)
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to disconnect channel: %w", err)
	}

	return group, nil
}

// SetArchived archives or restores a group. Archived groups keep their
// members and message history but stop accepting new messages.
func (s *GroupService) SetArchived(ctx context.Context, id int, ownerID string, archived bool) error {
	if err := s.groupRepo.SetArchived(ctx, id, ownerID, archived); err != nil {
		return &NotFoundError{Resource: "group", ID: id}
	}
	return nil
}

// Request/Response types

// CreateGroupRequest represents a request to create a group
type CreateGroupRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Validate validates the create group request
func (r *CreateGroupRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// UpdateGroupRequest represents a request to update a group
type UpdateGroupRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Validate validates the update group request
func (r *UpdateGroupRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
