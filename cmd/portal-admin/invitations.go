package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/peoplehub/portal-api/internal/bootstrap"
	"github.com/peoplehub/portal-api/internal/data"
	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/service"
)

const commandTimeout = 2 * time.Minute

// connectDB opens the database for a single admin command. The caller
// owns the returned handle.
func connectDB(cmdCtx *commandContext) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func closeDB(cmdCtx *commandContext, db *sql.DB) {
	if closeErr := db.Close(); closeErr != nil {
		cmdCtx.Logger.Warn("db close failed", "error", closeErr)
	}
}

func invitationServiceFor(cmdCtx *commandContext, db *sql.DB) *service.InvitationService {
	return service.NewInvitationService(service.InvitationServiceOptions{
		Invitations: data.NewInvitationRepo(db),
		Logger:      cmdCtx.Logger,
		DefaultTTL:  cmdCtx.Config.Signup.InvitationTTL,
	})
}

type createInvitationOptions struct {
	Email      string
	FirstName  string
	LastName   string
	Role       string
	Department string
	Position   string
	Note       string
	ExpiresIn  time.Duration
	Actor      string
	JSON       bool
}

func parseCreateInvitationFlags(args []string) (createInvitationOptions, error) {
	fs := flag.NewFlagSet("create-invitation", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts createInvitationOptions
	fs.StringVar(&opts.Email, "email", "", "Invitee email (required)")
	fs.StringVar(&opts.FirstName, "first-name", "", "Invitee first name (required)")
	fs.StringVar(&opts.LastName, "last-name", "", "Invitee last name (required)")
	fs.StringVar(&opts.Role, "role", string(model.RoleStaff), "Role assigned on acceptance")
	fs.StringVar(&opts.Department, "department", "", "Optional department")
	fs.StringVar(&opts.Position, "position", "", "Optional position title")
	fs.StringVar(&opts.Note, "note", "", "Optional internal note")
	fs.DurationVar(&opts.ExpiresIn, "expires-in", 0, "Invitation lifetime (default from config)")
	fs.StringVar(&opts.Actor, "actor", "portal-admin", "Recorded as the invitation creator")
	fs.BoolVar(&opts.JSON, "json", false, "Print the created invitation as JSON")

	if err := fs.Parse(args); err != nil {
		return createInvitationOptions{}, err
	}
	if opts.Email == "" {
		return createInvitationOptions{}, errors.New("--email is required")
	}
	if opts.FirstName == "" || opts.LastName == "" {
		return createInvitationOptions{}, errors.New("--first-name and --last-name are required")
	}
	return opts, nil
}

func runCreateInvitation(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateInvitationFlags(args)
	if err != nil {
		return err
	}

	role, err := model.ParseRole(opts.Role)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	req := model.CreateInvitationRequest{
		Email:     opts.Email,
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Role:      role,
		ExpiresIn: opts.ExpiresIn,
	}
	if opts.Department != "" {
		req.Department = &opts.Department
	}
	if opts.Position != "" {
		req.Position = &opts.Position
	}
	if opts.Note != "" {
		req.Note = &opts.Note
	}

	inv, err := invitationServiceFor(cmdCtx, db).Create(ctx, req, opts.Actor)
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}

	if opts.JSON {
		return printJSON(inv)
	}

	if err := writef(os.Stdout, "Invitation created\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "  ID:         %s\n", inv.ID); err != nil {
		return err
	}
	if err := writef(os.Stdout, "  Email:      %s\n", inv.Email); err != nil {
		return err
	}
	if err := writef(os.Stdout, "  Role:       %s\n", inv.Role); err != nil {
		return err
	}
	if err := writef(os.Stdout, "  Expires:    %s\n", inv.ExpiresAt.Format(time.RFC3339)); err != nil {
		return err
	}
	return writef(os.Stdout, "  Signup URL: /signup?invitation_token=%s\n", inv.Token)
}

type listInvitationsOptions struct {
	Limit  int
	Offset int
	JSON   bool
}

func parseListInvitationsFlags(args []string) (listInvitationsOptions, error) {
	fs := flag.NewFlagSet("list-invitations", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts listInvitationsOptions
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum invitations to return")
	fs.IntVar(&opts.Offset, "offset", 0, "Pagination offset")
	fs.BoolVar(&opts.JSON, "json", false, "Print invitations as JSON")

	if err := fs.Parse(args); err != nil {
		return listInvitationsOptions{}, err
	}
	return opts, nil
}

func runListInvitations(cmdCtx *commandContext, args []string) error {
	opts, err := parseListInvitationsFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	invitations, err := invitationServiceFor(cmdCtx, db).List(ctx, opts.Limit, opts.Offset)
	if err != nil {
		return fmt.Errorf("list invitations: %w", err)
	}

	if opts.JSON {
		return printJSON(invitations)
	}

	if len(invitations) == 0 {
		return writeln(os.Stdout, "No invitations found")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tEMAIL\tROLE\tCREATED BY\tEXPIRES\tSTATE"); err != nil {
		return err
	}
	now := time.Now()
	for _, inv := range invitations {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.ID,
			inv.Email,
			inv.Role,
			inv.CreatedBy,
			inv.ExpiresAt.Format(time.RFC3339),
			invitationState(inv, now)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func invitationState(inv *model.Invitation, now time.Time) string {
	switch {
	case inv.ConsumedAt != nil:
		return "consumed"
	case inv.RevokedAt != nil:
		return "revoked"
	case !now.Before(inv.ExpiresAt):
		return "expired"
	default:
		return "pending"
	}
}

func runRevokeInvitation(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("revoke-invitation", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var id, actor string
	fs.StringVar(&id, "id", "", "Invitation ID to revoke (required)")
	fs.StringVar(&actor, "actor", "portal-admin", "Recorded as the revoking actor")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if id == "" {
		return errors.New("--id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	if err := invitationServiceFor(cmdCtx, db).Revoke(ctx, id, actor); err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}

	return writef(os.Stdout, "Invitation %s revoked\n", id)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
