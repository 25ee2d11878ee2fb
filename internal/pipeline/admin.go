package pipeline

import (
	"context"
	"fmt"
)

// Admin performs administrative operations on the target database.
// Implemented by tsdb.Client and influxdb.Client.
type Admin interface {
	// Ping checks that the server is reachable.
	Ping(ctx context.Context) error
	DropDatabase(ctx context.Context, name string) error
	CreateDatabase(ctx context.Context, name string) error
	// SwitchUser makes subsequent requests authenticate as username.
	SwitchUser(ctx context.Context, username, password string) error
}

// PrepareOptions controls what Prepare does before a run.
type PrepareOptions struct {
	// Database is the database (or bucket) the run writes to.
	Database string

	// Recreate drops and creates Database before the run.
	Recreate bool

	// Username and Password, if Username is set, are switched to after the
	// optional recreate.
	Username string
	Password string
}

// Prepare readies the target: ping, optional drop and create, then switch
// user. It stops at the first failing step.
func Prepare(ctx context.Context, admin Admin, opts PrepareOptions) error {
	if err := admin.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrPrepare, err)
	}

	if opts.Recreate {
		if opts.Database == "" {
			return fmt.Errorf("%w: recreate requires a database name", ErrPrepare)
		}
		if err := admin.DropDatabase(ctx, opts.Database); err != nil {
			return fmt.Errorf("%w: dropping %q: %w", ErrPrepare, opts.Database, err)
		}
		if err := admin.CreateDatabase(ctx, opts.Database); err != nil {
			return fmt.Errorf("%w: creating %q: %w", ErrPrepare, opts.Database, err)
		}
	}

	if opts.Username != "" {
		if err := admin.SwitchUser(ctx, opts.Username, opts.Password); err != nil {
			return fmt.Errorf("%w: switching to user %q: %w", ErrPrepare, opts.Username, err)
		}
	}

	return nil
}
