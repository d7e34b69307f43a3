package domain

import "time"

// Claims is the verified identity carried by an access token.
type Claims struct {
	ClientID  int64
	Name      string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(c *Client) (token string, expiresAt time.Time, err error)
	// Verify returns ErrUnauthenticated for any malformed, forged or
	// expired token.
	Verify(token string) (*Claims, error)
}
