package model

import "time"

// UserStatus tracks a directory user's lifecycle. Users are created
// pending at registration time, before the email confirmation
// completes; an abandoned verification leaves a pending row behind,
// which the admin surface can clean up or activate later.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// Valid reports whether s is one of the defined statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusInactive:
		return true
	default:
		return false
	}
}

// User is a directory record. Identity fields are copied from the
// accepted invitation; Role in particular is always sourced from the
// invitation row, never from client-editable form state.
type User struct {
	ID         string     `json:"id"                   db:"id"`
	Email      string     `json:"email"                db:"email"`
	FirstName  string     `json:"first_name"           db:"first_name"`
	LastName   string     `json:"last_name"            db:"last_name"`
	Role       Role       `json:"role"                 db:"role"`
	Department *string    `json:"department,omitempty" db:"department"`
	Position   *string    `json:"position,omitempty"   db:"position"`
	Status     UserStatus `json:"status"               db:"status"`
	StartDate  time.Time  `json:"start_date"           db:"start_date"`
	CreatedAt  time.Time  `json:"created_at"           db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"           db:"updated_at"`
}

// ListUsersQuery filters directory listings.
type ListUsersQuery struct {
	Status UserStatus
	Role   Role
	Limit  int
	Offset int
}

const defaultListLimit = 50

// Sanitize clamps paging values to safe bounds.
func (q *ListUsersQuery) Sanitize() {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = defaultListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
