package influxdb

import (
	"context"
	"fmt"
	"strings"
)

// DropDatabase deletes bucket name. A missing bucket is not an error.
func (c *Client) DropDatabase(ctx context.Context, name string) error {
	buckets := c.client.BucketsAPI()

	b, err := buckets.FindBucketByName(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: finding bucket %q: %w", ErrAdminFailed, name, err)
	}

	if err := buckets.DeleteBucket(ctx, b); err != nil {
		return fmt.Errorf("%w: deleting bucket %q: %w", ErrAdminFailed, name, err)
	}
	return nil
}

// CreateDatabase creates bucket name in the configured organization with
// infinite retention. An existing bucket is left as is.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	buckets := c.client.BucketsAPI()

	if _, err := buckets.FindBucketByName(ctx, name); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("%w: finding bucket %q: %w", ErrAdminFailed, name, err)
	}

	org, err := c.client.OrganizationsAPI().FindOrganizationByName(ctx, c.cfg.Org)
	if err != nil {
		return fmt.Errorf("%w: finding organization %q: %w", ErrAdminFailed, c.cfg.Org, err)
	}

	if _, err := buckets.CreateBucketWithName(ctx, org, name); err != nil {
		return fmt.Errorf("%w: creating bucket %q: %w", ErrAdminFailed, name, err)
	}
	return nil
}

// isNotFound reports whether a lookup error means the resource is absent.
// The client returns plain errors for empty lookups.
func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
