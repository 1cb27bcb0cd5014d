package service

import (
	"context"
	"log/slog"

	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/domain/model"
)

// DirectoryServiceOptions groups dependencies for DirectoryService.
type DirectoryServiceOptions struct {
	Users  core.UserRepository
	Logger *slog.Logger
}

// DirectoryService is the admin surface over directory users.
type DirectoryService struct {
	users  core.UserRepository
	logger *slog.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(opts DirectoryServiceOptions) *DirectoryService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{
		users:  opts.Users,
		logger: logger,
	}
}

// List returns directory users filtered by the query.
func (s *DirectoryService) List(ctx context.Context, q model.ListUsersQuery) ([]*model.User, error) {
	return s.users.List(ctx, q)
}

// Activate transitions a pending user to active.
func (s *DirectoryService) Activate(ctx context.Context, id, activatedBy string) (*model.User, error) {
	user, err := s.users.SetStatus(ctx, id, model.UserStatusActive)
	if err != nil {
		return nil, err
	}
	s.logger.Info("directory user activated",
		"user_id", user.ID,
		"email", user.Email,
		"activated_by", activatedBy)
	return user, nil
}

// Deactivate transitions a user to inactive, which also refuses future
// logins for the account.
func (s *DirectoryService) Deactivate(ctx context.Context, id, deactivatedBy string) (*model.User, error) {
	user, err := s.users.SetStatus(ctx, id, model.UserStatusInactive)
	if err != nil {
		return nil, err
	}
	s.logger.Info("directory user deactivated",
		"user_id", user.ID,
		"email", user.Email,
		"deactivated_by", deactivatedBy)
	return user, nil
}
