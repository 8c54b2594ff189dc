package tracker

import "context"

// Forge is the source-control side of the world. Errors other than a
// NOT_FOUND domain error are treated as EXTERNAL_UNAVAILABLE: the
// caller skips the PR for this cycle and retries on the next one.
type Forge interface {
	OpenPullRequests(ctx context.Context, ref RepoRef) ([]Snapshot, error)
	PullRequest(ctx context.Context, ref RepoRef, number int) (Snapshot, error)
}

// Messenger is the chat side. Edit and Delete return a MESSAGE_GONE
// domain error when the message no longer exists; callers purge the
// record and carry on.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (int64, error)
	Edit(ctx context.Context, chatID, messageID int64, text string) error
	Delete(ctx context.Context, chatID, messageID int64) error
}
