package tracker

type SignalKind string

const (
	SignalReview    SignalKind = "review"
	SignalApprove   SignalKind = "approve"
	SignalComment   SignalKind = "comment"
	SignalGiveUp    SignalKind = "giveup"
	SignalMerge     SignalKind = "merge"
	SignalDraft     SignalKind = "draft"
	SignalAddressed SignalKind = "addressed"
)

// Transition runs one user signal through the status model and returns
// the resulting record. The input record is not mutated. changed reports
// whether any field actually moved; callers must not bump the version or
// persist anything when it is false.
//
// Terminal records accept no mutation at all.
func Transition(rec Record, user string, kind SignalKind) (Record, bool) {
	if rec.Terminal() {
		return rec, false
	}

	out := rec.Clone()

	switch kind {
	case SignalReview:
		if out.Reviewers[user] == StatusReviewing {
			return rec, false
		}
		out.Reviewers[user] = StatusReviewing

	case SignalApprove:
		if out.Reviewers[user] == StatusApproved {
			return rec, false
		}
		out.Reviewers[user] = StatusApproved

	case SignalComment:
		if out.Reviewers[user] == StatusCommented {
			return rec, false
		}
		out.Reviewers[user] = StatusCommented

	case SignalGiveUp:
		if _, ok := out.Reviewers[user]; !ok {
			return rec, false
		}
		delete(out.Reviewers, user)

	case SignalMerge:
		if out.Lifecycle == LifecycleMerged {
			return rec, false
		}
		out.Lifecycle = LifecycleMerged

	case SignalDraft:
		out.IsDraft = !out.IsDraft

	case SignalAddressed:
		// Ledger-wide reset: everyone who had left changes or comments
		// goes back to an in-progress review. Approvals are kept.
		reset := false
		for u, s := range out.Reviewers {
			if s == StatusChangesRequested || s == StatusCommented {
				out.Reviewers[u] = StatusReviewing
				reset = true
			}
		}
		if !reset {
			return rec, false
		}

	default:
		return rec, false
	}

	out.Version = rec.Version + 1
	return out, true
}
