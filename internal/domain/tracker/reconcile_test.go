package tracker_test

import (
	"testing"
	"time"

	"prmonitor/internal/domain/tracker"
)

var syncTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func baseSnapshot() tracker.Snapshot {
	return tracker.Snapshot{
		Repo:      "acme/api",
		Number:    42,
		Title:     "Add search",
		URL:       "https://github.com/acme/api/pull/42",
		Author:    "alice",
		Lifecycle: tracker.LifecycleOpen,
	}
}

func TestReconcile_SnapshotOwnsLifecycleDraftTitleURL(t *testing.T) {
	rec := openRecord()
	snap := baseSnapshot()
	snap.Title = "Add fulltext search"
	snap.URL = "https://github.com/acme/api/pull/42/files"
	snap.IsDraft = true

	next, changed := tracker.Reconcile(rec, snap, syncTime)
	if !changed {
		t.Fatal("expected change")
	}
	if next.Title != snap.Title || next.URL != snap.URL || !next.IsDraft {
		t.Fatalf("snapshot fields not taken verbatim: %+v", next)
	}
	if next.Version != rec.Version+1 {
		t.Fatalf("expected version bump, got %d", next.Version)
	}
}

func TestReconcile_DecisionOverwritesLocalStatus(t *testing.T) {
	rec := openRecord()
	rec.Reviewers["bob"] = tracker.StatusApproved

	snap := baseSnapshot()
	snap.Reviews = []tracker.SnapshotReview{
		{User: "bob", Decision: tracker.DecisionChangesRequested},
	}

	next, changed := tracker.Reconcile(rec, snap, syncTime)
	if !changed {
		t.Fatal("expected change")
	}
	if next.Reviewers["bob"] != tracker.StatusChangesRequested {
		t.Fatalf("expected CHANGES_REQUESTED, got %s", next.Reviewers["bob"])
	}
}

func TestReconcile_LocalReviewingSurvivesNoDecision(t *testing.T) {
	rec := openRecord()
	rec.Reviewers["bob"] = tracker.StatusReviewing

	snap := baseSnapshot()
	snap.Reviews = []tracker.SnapshotReview{
		{User: "bob", Decision: tracker.DecisionNone},
	}

	next, changed := tracker.Reconcile(rec, snap, syncTime)
	if changed {
		t.Fatal("pending local review must not be erased by no decision")
	}
	if next.Reviewers["bob"] != tracker.StatusReviewing {
		t.Fatalf("expected REVIEWING kept, got %s", next.Reviewers["bob"])
	}
}

func TestReconcile_ReRequestResetsDecidedReviewer(t *testing.T) {
	rec := openRecord()
	rec.Reviewers["bob"] = tracker.StatusApproved

	snap := baseSnapshot()
	snap.Reviews = []tracker.SnapshotReview{
		{User: "bob", Decision: tracker.DecisionNone},
	}

	next, changed := tracker.Reconcile(rec, snap, syncTime)
	if !changed {
		t.Fatal("expected change")
	}
	if next.Reviewers["bob"] != tracker.StatusAssigned {
		t.Fatalf("expected ASSIGNED, got %s", next.Reviewers["bob"])
	}
}

func TestReconcile_UnknownUserWithoutDecisionNotAdded(t *testing.T) {
	rec := openRecord()

	snap := baseSnapshot()
	snap.Reviews = []tracker.SnapshotReview{
		{User: "ghost", Decision: tracker.DecisionNone},
		{User: "bob", Decision: tracker.DecisionApproved},
	}

	next, changed := tracker.Reconcile(rec, snap, syncTime)
	if !changed {
		t.Fatal("expected change")
	}
	if _, ok := next.Reviewers["ghost"]; ok {
		t.Fatal("user without a decision and without a local entry must not be added")
	}
	if next.Reviewers["bob"] != tracker.StatusApproved {
		t.Fatalf("expected APPROVED for bob, got %s", next.Reviewers["bob"])
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	rec := openRecord()
	snap := baseSnapshot()
	snap.IsDraft = true
	snap.Reviews = []tracker.SnapshotReview{
		{User: "bob", Decision: tracker.DecisionApproved},
	}

	once, changed := tracker.Reconcile(rec, snap, syncTime)
	if !changed {
		t.Fatal("first pass expected to change")
	}

	later := syncTime.Add(time.Minute)
	twice, changed := tracker.Reconcile(once, snap, later)
	if changed {
		t.Fatal("second pass with the same snapshot must be a no-op")
	}
	if twice.Version != once.Version {
		t.Fatal("no-op pass must not bump the version")
	}
	if !twice.LastSyncedAt.Equal(later) {
		t.Fatal("sync timestamp must be refreshed even on a no-op pass")
	}
}

func TestReconcile_TerminalFromSnapshot(t *testing.T) {
	rec := openRecord()
	snap := baseSnapshot()
	snap.Lifecycle = tracker.LifecycleMerged

	next, changed := tracker.Reconcile(rec, snap, syncTime)
	if !changed || !next.Terminal() {
		t.Fatalf("expected terminal record, got changed=%v lifecycle=%s", changed, next.Lifecycle)
	}
}

func TestNewRecord_SeedsFromSnapshot(t *testing.T) {
	snap := baseSnapshot()
	snap.Reviews = []tracker.SnapshotReview{
		{User: "bob", Decision: tracker.DecisionChangesRequested},
		{User: "eve", Decision: tracker.DecisionNone},
	}

	rec := tracker.NewRecord(snap, -100, syncTime)
	if rec.Repo != "acme/api" || rec.Number != 42 {
		t.Fatalf("identity not seeded: %+v", rec)
	}
	if rec.ChatID != -100 {
		t.Fatalf("expected chat id -100, got %d", rec.ChatID)
	}
	if rec.Version != 1 {
		t.Fatalf("fresh record must start at version 1, got %d", rec.Version)
	}
	if rec.MessageID != 0 {
		t.Fatal("message id must stay unbound until a message is posted")
	}
	if rec.Reviewers["bob"] != tracker.StatusChangesRequested {
		t.Fatalf("expected seeded decision, got %s", rec.Reviewers["bob"])
	}
	if _, ok := rec.Reviewers["eve"]; ok {
		t.Fatal("decision-less reviewer must not be seeded")
	}
}
