package models

import (
	"fmt"
	"time"
)

// Channel represents valid delivery channels
type Channel string

const (
	ChannelSMS     Channel = "sms"
	ChannelEmail   Channel = "email"
	ChannelGroupMe Channel = "groupme"
)

// Valid checks if c is a known channel
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail || c == ChannelGroupMe
}

// Group represents a messaging group owned by one user
type Group struct {
	ID          int       `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	UseSMS      bool      `json:"use_sms" db:"use_sms"`
	UseEmail    bool      `json:"use_email" db:"use_email"`
	UseGroupMe  bool      `json:"use_groupme" db:"use_groupme"`
	IsArchived  bool      `json:"is_archived" db:"is_archived"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// GroupWithCounts represents a group with its roster size
type GroupWithCounts struct {
	Group
	MemberCount  int `json:"member_count"`
	MessageCount int `json:"message_count"`
}

// Validate checks if the group fields are valid
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	return nil
}

// ChannelEnabled checks if channel c is switched on for the group
func (g *Group) ChannelEnabled(c Channel) bool {
	switch c {
	case ChannelSMS:
		return g.UseSMS
	case ChannelEmail:
		return g.UseEmail
	case ChannelGroupMe:
		return g.UseGroupMe
	}
	return false
}

// SetChannel switches channel c on or off
func (g *Group) SetChannel(c Channel, enabled bool) {
	switch c {
	case ChannelSMS:
		g.UseSMS = enabled
	case ChannelEmail:
		g.UseEmail = enabled
	case ChannelGroupMe:
		g.UseGroupMe = enabled
	}
}

// EnabledChannels returns the channels the group can deliver on
func (g *Group) EnabledChannels() []Channel {
	var channels []Channel
	if g.UseSMS {
		channels = append(channels, ChannelSMS)
	}
	if g.UseEmail {
		channels = append(channels, ChannelEmail)
	}
	if g.UseGroupMe {
		channels = append(channels, ChannelGroupMe)
	}
	return channels
}
