package repository

import (
	"context"

	"github.com/syncline-io/approvalsync/internal/domain"
)

// Source defines the read side of the sync: a paginated listing of approval
// instances in a time window plus per-instance detail. Credential management
// and transient-failure retries are the implementation's concern; callers
// only see overall success or retry exhaustion.
type Source interface {
	ListInstances(ctx context.Context, q domain.ListQuery) (*domain.InstancePage, error)
	GetInstanceDetail(ctx context.Context, instanceID string) (*domain.InstanceDetail, error)
	// GetUserInfo is a soft lookup: it returns (nil, nil) when the user
	// cannot be resolved.
	GetUserInfo(ctx context.Context, userID string) (*domain.SourceUser, error)
}
