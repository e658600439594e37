package models

import (
	"fmt"
	"time"
)

// Contact represents a person in the owner's address book
type Contact struct {
	ID        int       `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks if the contact fields are valid
func (c *Contact) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("contact name is required")
	}
	return nil
}

// HasPhone checks if the contact has a non-empty phone number
func (c *Contact) HasPhone() bool {
	return c.Phone != nil && *c.Phone != ""
}

// HasEmail checks if the contact has a non-empty email address
func (c *Contact) HasEmail() bool {
	return c.Email != nil && *c.Email != ""
}

// Reachable checks if the contact has at least one delivery address
func (c *Contact) Reachable() bool {
	return c.HasPhone() || c.HasEmail()
}
