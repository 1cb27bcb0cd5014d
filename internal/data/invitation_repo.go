package data

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/domain/model"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/data/pgxutil"
)

// Reason strings surfaced as-is to the signup form when a token cannot
// be used. The UI shows them verbatim, so they are written for people.
const (
	msgInvitationNotFound = "this invitation could not be found"
	msgInvitationExpired  = "this invitation has expired"
	msgInvitationConsumed = "this invitation has already been used"
	msgInvitationRevoked  = "this invitation has been revoked"
)

const invitationTokenBytes = 32

// InvitationRepo provides invitation persistence on PostgreSQL.
type InvitationRepo struct {
	DB *sql.DB
}

// NewInvitationRepo creates a new InvitationRepo.
func NewInvitationRepo(db *sql.DB) *InvitationRepo {
	return &InvitationRepo{DB: db}
}

var _ core.InvitationRepository = (*InvitationRepo)(nil)

// Create inserts a new invitation with a freshly generated unguessable token.
func (r *InvitationRepo) Create(
	ctx context.Context,
	req model.CreateInvitationRequest,
	createdBy string,
) (*model.Invitation, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, ErrCreatorMissing
	}

	token, err := generateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	ttl := req.ExpiresIn
	if ttl == 0 {
		ttl = model.DefaultInvitationTTL
	}

	var out model.Invitation
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			INSERT INTO invitations
				(token, email, first_name, last_name, role, department, position, note, created_by, expires_at)
			VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, now() + $10)
			RETURNING *`,
			token, req.Email, req.FirstName, req.LastName, req.Role,
			req.Department, req.Position, req.Note, createdBy, ttl,
		)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		out, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Invitation])
		return qErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create invitation: %w", err))
	}
	return &out, nil
}

// GetByToken resolves a token read-only. The returned errors carry the
// user-facing reason an unusable invitation cannot gate a signup.
func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	inv, err := r.fetchByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(msgInvitationNotFound)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get invitation by token: %w", err))
	}

	if reasonErr := usabilityError(inv, time.Now()); reasonErr != nil {
		return nil, reasonErr
	}
	return inv, nil
}

// Accept consumes the invitation and creates the pending directory user
// in one transaction. Idempotent by (token, email): if the invitation
// was already consumed for that email, the call reports Consumed=false
// and returns the existing user without error. Two tabs racing on the
// same token resolve on the `consumed_at IS NULL` guard; the loser
// takes the idempotent path.
func (r *InvitationRepo) Accept(
	ctx context.Context,
	params core.AcceptInvitationParams,
) (*core.AcceptResult, error) {
	if params.Token == "" {
		return nil, ErrTokenRequired
	}
	if params.Email == "" {
		return nil, ErrEmailRequired
	}

	var result core.AcceptResult
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return r.acceptInTx(ctx, tx, params, &result)
		},
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *InvitationRepo) acceptInTx(
	ctx context.Context,
	tx pgx.Tx,
	params core.AcceptInvitationParams,
	result *core.AcceptResult,
) error {
	rows, err := tx.Query(ctx, `
		UPDATE invitations
		SET consumed_at = now()
		WHERE token = $1
		  AND email = lower($2)
		  AND consumed_at IS NULL
		  AND revoked_at IS NULL
		  AND expires_at > now()
		RETURNING *`,
		params.Token, params.Email,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("consume invitation: %w", err))
	}
	inv, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Invitation])
	if collectErr != nil && !errors.Is(collectErr, pgx.ErrNoRows) {
		return apperrors.MapDBError(fmt.Errorf("consume invitation: %w", collectErr))
	}

	if errors.Is(collectErr, pgx.ErrNoRows) {
		// Nothing consumed: either a repeat call (fine) or a token that
		// was never usable for this email (error).
		return r.resolveNoopAccept(ctx, tx, params, result)
	}

	// First consumption: create the directory user from the invitation
	// row. Role and identity fields come from the invitation, never
	// from anything the client submitted. The conflict guard keeps a
	// concurrent duplicate from producing a second row.
	if _, execErr := tx.Exec(ctx, `
		INSERT INTO users (email, first_name, last_name, role, department, position, status, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', now())
		ON CONFLICT (email) DO NOTHING`,
		inv.Email, inv.FirstName, inv.LastName, inv.Role, inv.Department, inv.Position,
	); execErr != nil {
		return apperrors.MapDBError(fmt.Errorf("create directory user: %w", execErr))
	}

	user, userErr := fetchUserByEmailTx(ctx, tx, inv.Email)
	if userErr != nil {
		return userErr
	}
	result.Consumed = true
	result.User = user
	return nil
}

// resolveNoopAccept distinguishes a benign repeated accept from a token
// that cannot be accepted at all.
func (r *InvitationRepo) resolveNoopAccept(
	ctx context.Context,
	tx pgx.Tx,
	params core.AcceptInvitationParams,
	result *core.AcceptResult,
) error {
	rows, err := tx.Query(ctx,
		`SELECT * FROM invitations WHERE token = $1 AND email = lower($2)`,
		params.Token, params.Email,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("inspect invitation: %w", err))
	}
	inv, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Invitation])
	if collectErr != nil {
		if errors.Is(collectErr, pgx.ErrNoRows) {
			return apperrors.NotFound(msgInvitationNotFound)
		}
		return apperrors.MapDBError(fmt.Errorf("inspect invitation: %w", collectErr))
	}

	if inv.ConsumedAt != nil {
		// Repeat accept for the same (token, email): no-op success.
		user, userErr := fetchUserByEmailTx(ctx, tx, inv.Email)
		if userErr != nil && !apperrors.IsNotFound(userErr) {
			return userErr
		}
		result.Consumed = false
		result.User = user
		return nil
	}
	return usabilityError(&inv, time.Now())
}

// List returns invitations newest-first.
func (r *InvitationRepo) List(ctx context.Context, limit, offset int) ([]*model.Invitation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var out []*model.Invitation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx,
			`SELECT * FROM invitations ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		out, qErr = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Invitation])
		return qErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list invitations: %w", err))
	}
	return out, nil
}

// Revoke withdraws an unused invitation. Consumed invitations cannot be
// revoked; the user already exists.
func (r *InvitationRepo) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE invitations
			SET revoked_at = now()
			WHERE id = $1 AND consumed_at IS NULL AND revoked_at IS NULL`,
			id,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("no revocable invitation with this id")
		}
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("revoke invitation: %w", err))
	}
	return nil
}

func (r *InvitationRepo) fetchByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `SELECT * FROM invitations WHERE token = $1`, token)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		inv, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Invitation])
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// usabilityError returns nil for a usable invitation, otherwise the
// AppError carrying the reason to surface.
func usabilityError(inv *model.Invitation, now time.Time) error {
	switch {
	case inv.ConsumedAt != nil:
		return apperrors.Consumed(msgInvitationConsumed)
	case inv.RevokedAt != nil:
		return apperrors.Consumed(msgInvitationRevoked)
	case !now.Before(inv.ExpiresAt):
		return apperrors.Expired(msgInvitationExpired)
	default:
		return nil
	}
}

// generateInvitationToken returns a URL-safe random token.
func generateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
