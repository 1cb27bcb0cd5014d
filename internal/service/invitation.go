package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/observability/metrics"
)

// InvitationServiceOptions groups dependencies for InvitationService.
type InvitationServiceOptions struct {
	Invitations core.InvitationRepository
	Metrics     *metrics.Collector
	Logger      *slog.Logger

	// DefaultTTL applies when a create request carries no expiry.
	// Zero falls back to the model default.
	DefaultTTL time.Duration
}

// InvitationService is the admin surface over invitations.
type InvitationService struct {
	invitations core.InvitationRepository
	metrics     *metrics.Collector
	logger      *slog.Logger
	defaultTTL  time.Duration
}

// NewInvitationService constructs an InvitationService.
func NewInvitationService(opts InvitationServiceOptions) *InvitationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationService{
		invitations: opts.Invitations,
		metrics:     opts.Metrics,
		logger:      logger,
		defaultTTL:  opts.DefaultTTL,
	}
}

// Create issues a new invitation on behalf of createdBy. The repository
// generates the unguessable token and applies the default expiry when
// the request carries none.
func (s *InvitationService) Create(
	ctx context.Context,
	req model.CreateInvitationRequest,
	createdBy string,
) (*model.Invitation, error) {
	if req.ExpiresIn == 0 {
		req.ExpiresIn = s.defaultTTL
	}

	inv, err := s.invitations.Create(ctx, req, createdBy)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvitationIssued()
	s.logger.Info("invitation created",
		"invitation_id", inv.ID,
		"email", inv.Email,
		"role", inv.Role,
		"created_by", createdBy)
	return inv, nil
}

// List returns invitations newest-first.
func (s *InvitationService) List(ctx context.Context, limit, offset int) ([]*model.Invitation, error) {
	return s.invitations.List(ctx, limit, offset)
}

// Revoke withdraws an unused invitation.
func (s *InvitationService) Revoke(ctx context.Context, id, revokedBy string) error {
	if err := s.invitations.Revoke(ctx, id); err != nil {
		return err
	}
	s.logger.Info("invitation revoked",
		"invitation_id", id,
		"revoked_by", revokedBy)
	return nil
}
