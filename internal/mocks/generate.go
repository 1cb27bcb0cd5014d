// Package mocks provides mock implementations for testing the portal services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// repository and provider interfaces. The mocks are generated with go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	repo := mocks.NewMockInvitationRepository(ctrl)
//	repo.EXPECT().GetByToken(gomock.Any(), "tok").Return(invitation, nil)
package mocks

// Generate mock for InvitationRepository interface from internal/core package.
// This creates MockInvitationRepository with methods:
// Create, GetByToken, Accept, List, Revoke
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=invitation_repository_mock.go github.com/peoplehub/portal-api/internal/core InvitationRepository

// Generate mock for UserRepository interface from internal/core package.
// This creates MockUserRepository with methods:
// CreateFromInvitation, GetByEmail, List, SetStatus
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/peoplehub/portal-api/internal/core UserRepository

// Generate mock for FlowStore interface from internal/core package.
// This creates MockFlowStore with methods:
// Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=flow_store_mock.go github.com/peoplehub/portal-api/internal/core FlowStore

// Generate mock for IdentityProvider interface from internal/ports package.
// This creates MockIdentityProvider with methods:
// Register, Confirm, SignIn
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/peoplehub/portal-api/internal/ports IdentityProvider
