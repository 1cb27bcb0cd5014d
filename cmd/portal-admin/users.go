package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/peoplehub/portal-api/internal/data"
	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/service"
)

func directoryServiceFor(cmdCtx *commandContext, db *sql.DB) *service.DirectoryService {
	return service.NewDirectoryService(service.DirectoryServiceOptions{
		Users:  data.NewUserRepo(db),
		Logger: cmdCtx.Logger,
	})
}

type listUsersOptions struct {
	Status string
	Role   string
	Limit  int
	Offset int
	JSON   bool
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts listUsersOptions
	fs.StringVar(&opts.Status, "status", "", "Filter by status (pending, active, inactive)")
	fs.StringVar(&opts.Role, "role", "", "Filter by role")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum users to return")
	fs.IntVar(&opts.Offset, "offset", 0, "Pagination offset")
	fs.BoolVar(&opts.JSON, "json", false, "Print users as JSON")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}
	return opts, nil
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}

	query := model.ListUsersQuery{Limit: opts.Limit, Offset: opts.Offset}
	if opts.Status != "" {
		status := model.UserStatus(opts.Status)
		if !status.Valid() {
			return fmt.Errorf("invalid status %q (valid: pending, active, inactive)", opts.Status)
		}
		query.Status = status
	}
	if opts.Role != "" {
		role, roleErr := model.ParseRole(opts.Role)
		if roleErr != nil {
			return roleErr
		}
		query.Role = role
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	users, err := directoryServiceFor(cmdCtx, db).List(ctx, query)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if opts.JSON {
		return printJSON(users)
	}

	if len(users) == 0 {
		return writeln(os.Stdout, "No users found")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tEMAIL\tNAME\tROLE\tSTATUS\tSTART DATE"); err != nil {
		return err
	}
	for _, u := range users {
		if err := writef(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
			u.ID,
			u.Email,
			u.FirstName,
			u.LastName,
			u.Role,
			u.Status,
			u.StartDate.Format(time.DateOnly)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runActivateUser(cmdCtx *commandContext, args []string) error {
	return runUserStatusChange(cmdCtx, args, "activate-user", true)
}

func runDeactivateUser(cmdCtx *commandContext, args []string) error {
	return runUserStatusChange(cmdCtx, args, "deactivate-user", false)
}

func runUserStatusChange(cmdCtx *commandContext, args []string, name string, activate bool) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var id, actor string
	fs.StringVar(&id, "id", "", "User ID (required)")
	fs.StringVar(&actor, "actor", "portal-admin", "Recorded as the acting admin")

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

	svc := directoryServiceFor(cmdCtx, db)

	var user *model.User
	if activate {
		user, err = svc.Activate(ctx, id, actor)
	} else {
		user, err = svc.Deactivate(ctx, id, actor)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return writef(os.Stdout, "User %s (%s) is now %s\n", user.ID, user.Email, user.Status)
}
