package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/data/pgxutil"
	"github.com/peoplehub/portal-api/internal/domain/model"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
)

// UserRepo provides directory user persistence on PostgreSQL.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

var _ core.UserRepository = (*UserRepo)(nil)

// CreateFromInvitation inserts the pending directory user from the
// invitation's identity fields. Role and identity come from the
// invitation row, never client input. Re-running for the same email is
// safe: the conflict guard leaves the existing row untouched and it is
// returned as-is.
func (r *UserRepo) CreateFromInvitation(
	ctx context.Context,
	inv *model.Invitation,
) (*model.User, error) {
	if inv == nil || inv.Email == "" {
		return nil, ErrEmailRequired
	}

	var out *model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if _, execErr := conn.Exec(ctx, `
			INSERT INTO users (email, first_name, last_name, role, department, position, status, start_date)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending', now())
			ON CONFLICT (email) DO NOTHING`,
			inv.Email, inv.FirstName, inv.LastName, inv.Role, inv.Department, inv.Position,
		); execErr != nil {
			return execErr
		}
		rows, qErr := conn.Query(ctx, `SELECT * FROM users WHERE email = lower($1)`, inv.Email)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		u, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		if collectErr != nil {
			return collectErr
		}
		out = &u
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create user from invitation: %w", err))
	}
	return out, nil
}

// GetByEmail fetches a directory user by email (case-insensitive).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}

	var out *model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `SELECT * FROM users WHERE email = lower($1)`, email)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		u, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		if collectErr != nil {
			return collectErr
		}
		out = &u
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("no directory user with email %s", email)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get user by email: %w", err))
	}
	return out, nil
}

// List returns directory users filtered by the query, newest-first.
func (r *UserRepo) List(ctx context.Context, q model.ListUsersQuery) ([]*model.User, error) {
	q.Sanitize()

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.Role != "" {
		args = append(args, q.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}

	query := `SELECT * FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var out []*model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, query, args...)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		out, qErr = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.User])
		return qErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list users: %w", err))
	}
	return out, nil
}

// SetStatus transitions a user's lifecycle status.
func (r *UserRepo) SetStatus(
	ctx context.Context,
	id string,
	status model.UserStatus,
) (*model.User, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if !status.Valid() {
		return nil, ErrStatusInvalid
	}

	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			UPDATE users SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING *`,
			id, status,
		)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		out, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return qErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("no directory user with id %s", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("set user status: %w", err))
	}
	return &out, nil
}

// fetchUserByEmailTx reads a user inside an open transaction. Shared
// with the invitation accept path.
func fetchUserByEmailTx(ctx context.Context, tx pgx.Tx, email string) (*model.User, error) {
	rows, err := tx.Query(ctx, `SELECT * FROM users WHERE email = lower($1)`, email)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get user by email: %w", err))
	}
	u, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if collectErr != nil {
		if errors.Is(collectErr, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no directory user with email %s", email)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get user by email: %w", collectErr))
	}
	return &u, nil
}
