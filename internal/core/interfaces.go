package core

import (
	"context"

	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/domain/signup"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// AcceptInvitationParams groups parameters for InvitationRepository.Accept.
type AcceptInvitationParams struct {
	Token string
	Email string
}

// AcceptResult reports what an Accept call did. A repeated accept for
// the same (token, email) is not an error: Consumed is false and the
// existing user row (if any) is returned unchanged.
type AcceptResult struct {
	// Consumed is true when this call transitioned the invitation from
	// unused to consumed and created the directory user.
	Consumed bool
	// User is the directory record for the invitation email, whether
	// created by this call or an earlier one.
	User *model.User
}

// InvitationRepository defines the interface for invitation data operations.
type InvitationRepository interface {
	Create(ctx context.Context, req model.CreateInvitationRequest, createdBy string) (*model.Invitation, error)
	// GetByToken resolves a token read-only. Unusable invitations come
	// back as AppErrors distinguishing not found, expired, and consumed.
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	// Accept consumes the invitation and creates the pending directory
	// user from the invitation row in one transaction. It is idempotent
	// by (token, email): calling it again neither errors nor creates a
	// second user.
	Accept(ctx context.Context, params AcceptInvitationParams) (*AcceptResult, error)
	List(ctx context.Context, limit, offset int) ([]*model.Invitation, error)
	Revoke(ctx context.Context, id string) error
}

// UserRepository defines the interface for directory user operations.
type UserRepository interface {
	// CreateFromInvitation inserts the pending directory user from the
	// invitation's identity fields at registration-submission time. If a
	// user already exists for the email, the existing row is returned
	// unchanged.
	CreateFromInvitation(ctx context.Context, inv *model.Invitation) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, q model.ListUsersQuery) ([]*model.User, error)
	// SetStatus transitions a user's lifecycle status (admin action).
	SetStatus(ctx context.Context, id string, status model.UserStatus) (*model.User, error)
}

// FlowStore persists transient signup flow state under a TTL.
type FlowStore interface {
	Save(ctx context.Context, f signup.Flow) error
	// Get returns the flow for a token; missing flows come back as a
	// NotFound AppError.
	Get(ctx context.Context, token string) (signup.Flow, error)
	Delete(ctx context.Context, token string) error
}
