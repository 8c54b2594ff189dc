package tracker

import (
	"fmt"
	"strings"
	"time"
)

type Lifecycle string

const (
	LifecycleOpen   Lifecycle = "OPEN"
	LifecycleMerged Lifecycle = "MERGED"
	LifecycleClosed Lifecycle = "CLOSED"
)

type ReviewerStatus string

const (
	StatusAssigned         ReviewerStatus = "ASSIGNED"
	StatusReviewing        ReviewerStatus = "REVIEWING"
	StatusApproved         ReviewerStatus = "APPROVED"
	StatusChangesRequested ReviewerStatus = "CHANGES_REQUESTED"
	StatusCommented        ReviewerStatus = "COMMENTED"
)

// Record is the locally persisted tracked state for one pull request.
// (Repo, Number) is the identity and never changes after creation.
// Lifecycle, IsDraft, Title and URL are owned by the reconciler; the
// reviewer ledger is mutated by both the reconciler and user signals.
type Record struct {
	Repo   string // "owner/name"
	Number int

	Title  string
	URL    string
	Author string

	IsDraft   bool
	Lifecycle Lifecycle

	// Reviewers maps a username to its current status. One entry per
	// user; a give-up removes the entry entirely.
	Reviewers map[string]ReviewerStatus

	ChatID    int64
	MessageID int64 // 0 until a chat message has been posted

	LastSyncedAt time.Time
	Version      int64
}

func (r Record) Key() string {
	return fmt.Sprintf("%s#%d", r.Repo, r.Number)
}

func (r Record) Terminal() bool {
	return r.Lifecycle == LifecycleMerged || r.Lifecycle == LifecycleClosed
}

func (r Record) Approvals() int {
	return r.countStatus(StatusApproved)
}

func (r Record) ChangesRequested() int {
	return r.countStatus(StatusChangesRequested)
}

func (r Record) ActiveComments() int {
	return r.countStatus(StatusCommented)
}

func (r Record) countStatus(st ReviewerStatus) int {
	n := 0
	for _, s := range r.Reviewers {
		if s == st {
			n++
		}
	}
	return n
}

// Clone deep-copies the reviewer ledger so transition functions can
// mutate a copy without touching the stored record.
func (r Record) Clone() Record {
	out := r
	out.Reviewers = make(map[string]ReviewerStatus, len(r.Reviewers))
	for u, s := range r.Reviewers {
		out.Reviewers[u] = s
	}
	return out
}

// SplitRepo breaks an "owner/name" repository string into its parts.
func SplitRepo(repo string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ReviewDecision is a formal review outcome recognized by the forge, as
// opposed to a locally expressed in-progress signal.
type ReviewDecision string

const (
	DecisionNone             ReviewDecision = "NONE"
	DecisionApproved         ReviewDecision = "APPROVED"
	DecisionChangesRequested ReviewDecision = "CHANGES_REQUESTED"
	DecisionCommented        ReviewDecision = "COMMENTED"
)

type SnapshotReview struct {
	User     string
	Decision ReviewDecision
}

// Snapshot is a point-in-time external read of a pull request.
type Snapshot struct {
	Repo   string
	Number int

	Title  string
	URL    string
	Author string

	IsDraft   bool
	Lifecycle Lifecycle

	Reviews []SnapshotReview
}
