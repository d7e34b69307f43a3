// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// Role is the closed set of client privileges.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// ParseRole converts s into a Role. An empty string yields RoleClient.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleClient:
		return RoleClient, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleClient }

// Client is an account that can place orders and, with a password hash,
// log in.
type Client struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the client holds the admin role.
func (c *Client) IsAdmin() bool { return c.Role == RoleAdmin }

// NormalizeEmail trims and lower-cases an address so lookups and the
// attempt counter agree on one identity per mailbox.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports ErrInvalidEmail unless email is a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ClientRepository is the port for client persistence. Lookups return
// (nil, nil) when no row matches.
type ClientRepository interface {
	GetClientByEmail(ctx context.Context, email string) (*Client, error)
	GetClientByID(ctx context.Context, id int64) (*Client, error)
	// CreateClient inserts c and sets its ID and CreatedAt. Unique
	// violations surface as ErrEmailExists or ErrPhoneExists.
	CreateClient(ctx context.Context, c *Client) error
	ListClients(ctx context.Context) ([]Client, error)
	// UpdateClientRole returns ErrClientNotFound when id does not exist.
	UpdateClientRole(ctx context.Context, id int64, role Role) error
}
