package tracker

import "time"

// Reconcile merges a freshly fetched snapshot into a stored record and
// returns the next record. The forge is authoritative for lifecycle,
// draft, title and URL. Reviewer decisions from the snapshot overwrite
// local ledger entries with one exception: a local REVIEWING entry is
// kept while the snapshot still shows no formal decision for that user,
// so an in-progress review is not erased by the absence of information.
//
// LastSyncedAt is always refreshed. Version is bumped only when a field
// other than the sync timestamp actually changed; re-running with an
// unchanged snapshot is a no-op.
func Reconcile(rec Record, snap Snapshot, now time.Time) (Record, bool) {
	out := rec.Clone()
	changed := false

	if out.Lifecycle != snap.Lifecycle {
		out.Lifecycle = snap.Lifecycle
		changed = true
	}
	if out.IsDraft != snap.IsDraft {
		out.IsDraft = snap.IsDraft
		changed = true
	}
	if snap.Title != "" && out.Title != snap.Title {
		out.Title = snap.Title
		changed = true
	}
	if snap.URL != "" && out.URL != snap.URL {
		out.URL = snap.URL
		changed = true
	}

	for _, rv := range snap.Reviews {
		next, ok := statusForDecision(rv.Decision)
		cur, tracked := out.Reviewers[rv.User]

		switch {
		case !tracked:
			// Reviewers with no formal decision and no local entry
			// are not added.
			if ok && rv.Decision != DecisionNone {
				out.Reviewers[rv.User] = next
				changed = true
			}
		case rv.Decision == DecisionNone && cur == StatusReviewing:
			// Pending local review; nothing new from the forge.
		case ok && cur != next:
			out.Reviewers[rv.User] = next
			changed = true
		}
	}

	out.LastSyncedAt = now
	if changed {
		out.Version = rec.Version + 1
	}
	return out, changed
}

// NewRecord seeds a record from its first snapshot. The chat message is
// bound afterwards, once it has been posted.
func NewRecord(snap Snapshot, chatID int64, now time.Time) Record {
	rec := Record{
		Repo:      snap.Repo,
		Number:    snap.Number,
		Title:     snap.Title,
		URL:       snap.URL,
		Author:    snap.Author,
		IsDraft:   snap.IsDraft,
		Lifecycle: snap.Lifecycle,
		Reviewers: make(map[string]ReviewerStatus),
		ChatID:    chatID,
		Version:   1,
	}
	rec, _ = Reconcile(rec, snap, now)
	rec.Version = 1
	return rec
}

func statusForDecision(d ReviewDecision) (ReviewerStatus, bool) {
	switch d {
	case DecisionApproved:
		return StatusApproved, true
	case DecisionChangesRequested:
		return StatusChangesRequested, true
	case DecisionCommented:
		return StatusCommented, true
	case DecisionNone:
		return StatusAssigned, true
	}
	return "", false
}
