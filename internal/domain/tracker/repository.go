package tracker

import "context"

// Repository is the record store. Update must reject writes computed
// from a stale version with a STALE_WRITE domain error.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, repo string, number int) (Record, error)
	GetByMessage(ctx context.Context, chatID, messageID int64) (Record, error)
	Update(ctx context.Context, rec Record, expectedVersion int64) error
	ListTracked(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, repo string, number int) error

	// Seen rows outlive the record itself and prevent a purged PR from
	// being re-announced or resurrected.
	MarkSeen(ctx context.Context, repo string, number int) error
	Seen(ctx context.Context, repo string, number int) (bool, error)
}

// RepoStore holds the set of repositories under full monitoring.
type RepoStore interface {
	Add(ctx context.Context, ref RepoRef) error
	List(ctx context.Context) ([]RepoRef, error)
}
