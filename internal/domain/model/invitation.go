//revive:disable-next-line:var-naming // legacy package name used across the project
package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLen       = 120
	maxDepartmentLen = 120
	maxPositionLen   = 120
	maxNoteLen       = 2000

	// DefaultInvitationTTL is used when no explicit expiry is requested.
	DefaultInvitationTTL = 7 * 24 * time.Hour
)

// Role is the application role assigned to an invitation and, on
// acceptance, copied to the resulting directory user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMentor   Role = "mentor"
	RoleTeamLead Role = "team_lead"
	RoleIntern   Role = "intern"
	RoleStaff    Role = "staff"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMentor, RoleTeamLead, RoleIntern, RoleStaff:
		return true
	default:
		return false
	}
}

// ParseRole converts a string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q (valid: admin, mentor, team_lead, intern, staff)", s)
	}
	return r, nil
}

// Invitation is a single-use, token-addressed offer to join the
// directory with a pre-assigned role. The token is the only lookup key
// exposed outside the admin surface; it is random and unguessable.
//
// An invitation is usable iff ConsumedAt is nil and the current time is
// before ExpiresAt. Email is immutable once created and becomes the
// signup email.
type Invitation struct {
	ID         string     `json:"id"                   db:"id"`
	Token      string     `json:"token,omitempty"      db:"token"`
	Email      string     `json:"email"                db:"email"`
	FirstName  string     `json:"first_name"           db:"first_name"`
	LastName   string     `json:"last_name"            db:"last_name"`
	Role       Role       `json:"role"                 db:"role"`
	Department *string    `json:"department,omitempty" db:"department"`
	Position   *string    `json:"position,omitempty"   db:"position"`
	Note       *string    `json:"note,omitempty"       db:"note"`
	CreatedBy  string     `json:"created_by"           db:"created_by"`
	CreatedAt  time.Time  `json:"created_at"           db:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"           db:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"  db:"revoked_at"`
}

// Usable reports whether the invitation can still gate a signup at the
// given instant.
func (i *Invitation) Usable(now time.Time) bool {
	return i.ConsumedAt == nil && i.RevokedAt == nil && now.Before(i.ExpiresAt)
}

// Profile is the subset of invitation fields surfaced to the signup
// form. These render read-only; the server never trusts client copies.
type Profile struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Role       Role    `json:"role"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
}

// Profile returns the locked signup fields for this invitation.
func (i *Invitation) Profile() Profile {
	return Profile{
		Email:      i.Email,
		FirstName:  i.FirstName,
		LastName:   i.LastName,
		Role:       i.Role,
		Department: i.Department,
		Position:   i.Position,
	}
}

// CreateInvitationRequest contains fields to create a new invitation.
type CreateInvitationRequest struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Role       Role    `json:"role"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	Note       *string `json:"note,omitempty"`

	// ExpiresIn overrides the default invitation lifetime when positive.
	ExpiresIn time.Duration `json:"expires_in,omitempty"`
}

func (r *CreateInvitationRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validatePersonName("first_name", r.FirstName); err != nil {
		return err
	}
	if err := validatePersonName("last_name", r.LastName); err != nil {
		return err
	}
	if !r.Role.Valid() {
		return fmt.Errorf("invalid role %q (valid: admin, mentor, team_lead, intern, staff)", r.Role)
	}
	if r.Department != nil && utf8.RuneCountInString(*r.Department) > maxDepartmentLen {
		return errors.New("department cannot exceed 120 characters")
	}
	if r.Position != nil && utf8.RuneCountInString(*r.Position) > maxPositionLen {
		return errors.New("position cannot exceed 120 characters")
	}
	if r.Note != nil && utf8.RuneCountInString(*r.Note) > maxNoteLen {
		return errors.New("note cannot exceed 2000 characters")
	}
	if r.ExpiresIn < 0 {
		return errors.New("expires_in cannot be negative")
	}
	return nil
}

func validateEmail(email string) error {
	e := strings.TrimSpace(email)
	if e == "" {
		return errors.New("email is required and cannot be empty")
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return errors.New("email must be a plain, valid address")
	}
	return nil
}

func validatePersonName(field, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return fmt.Errorf("%s is required and cannot be empty", field)
	}
	if utf8.RuneCountInString(v) > maxNameLen {
		return fmt.Errorf("%s cannot exceed 120 characters", field)
	}
	return nil
}
