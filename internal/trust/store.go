package trust

import (
	"context"

	id "ledgergate/pkg/domain"
)

// Store persists role assignments. Implementations return
// sentinel.ErrNotFound for unassigned accounts; the service maps that to
// RoleNone.
type Store interface {
	GetRole(ctx context.Context, account id.Address) (Role, error)
	SetRole(ctx context.Context, account id.Address, role Role) error
	RemoveRole(ctx context.Context, account id.Address) error
	// Owner returns the account currently holding MASTER, or
	// sentinel.ErrNotFound before bootstrap.
	Owner(ctx context.Context) (id.Address, error)
	// Snapshot exposes all assignments for the flat state export.
	Snapshot(ctx context.Context) (map[id.Address]Role, error)
}
