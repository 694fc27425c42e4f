package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"
)

var (
	ErrInvalidUsername = errors.New("domain: username must be 3-64 characters of letters, digits, '.', '_', '-' or '@'")
	ErrInvalidEmail    = errors.New("domain: invalid email address")
	ErrInvalidRole     = errors.New("domain: invalid role name")
	ErrWeakPassword    = errors.New("domain: password must be between 8 and 128 characters")
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._@-]{3,64}$`)
	roleRe     = regexp.MustCompile(`^[a-z][a-z0-9_:-]{0,31}$`)
)

// User is a resource owner for the password grant.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id, PHC encoded
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFields are the attributes an administrator may change through a
// partial update. JSON names match the admin API.
type UserFields struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Apply copies the fields named in p onto u after validating them. Fields
// not named are left untouched; on error u is unchanged.
func (u *User) Apply(p Patch[UserFields]) error {
	next := *u

	if p.Has("username") {
		name := NormalizeUsername(p.Value.Username)
		if err := ValidateUsername(name); err != nil {
			return err
		}
		next.Username = name
	}
	if p.Has("email") {
		if err := ValidateEmail(p.Value.Email); err != nil {
			return err
		}
		next.Email = strings.TrimSpace(p.Value.Email)
	}
	if p.Has("roles") {
		roles, err := NormalizeRoles(p.Value.Roles)
		if err != nil {
			return err
		}
		next.Roles = roles
	}

	*u = next
	return nil
}

// NormalizeUsername is the form usernames are stored, looked up and
// counted for lockout under.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ValidateUsername(s string) error {
	if !usernameRe.MatchString(s) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(s string) error {
	if n := len(s); n < 8 || n > 128 {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeRoles lowercases, validates, sorts and de-duplicates roles.
func NormalizeRoles(roles []string) ([]string, error) {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if !roleRe.MatchString(r) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
		out = append(out, r)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
