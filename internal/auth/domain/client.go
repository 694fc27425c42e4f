package domain

import (
	"slices"
	"time"
)

// Client is a registered OAuth application. Clients without a secret hash
// are public and may only identify themselves.
type Client struct {
	ID          string
	DisplayName string
	SecretHash  string
	GrantTypes  []string
	Scopes      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Client) IsConfidential() bool {
	return c.SecretHash != ""
}

func (c *Client) AllowsGrant(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}
