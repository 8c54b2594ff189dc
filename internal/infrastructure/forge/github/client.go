package github

import (
	"context"
	"net/http"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"prmonitor/internal/domain"
	"prmonitor/internal/domain/tracker"
)

const openPRsPageSize = 30

// Client adapts the GitHub REST API to the tracker's Forge contract.
// All calls go through a shared client-side limiter so one busy tick
// cannot burn the API quota.
type Client struct {
	gh      *gh.Client
	limiter *rate.Limiter
}

func NewClient(token string, rps float64) *Client {
	return &Client{
		gh:      gh.NewClient(nil).WithAuthToken(token),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *Client) OpenPullRequests(ctx context.Context, ref tracker.RepoRef) ([]tracker.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prs, resp, err := c.gh.PullRequests.List(ctx, ref.Owner, ref.Name, &gh.PullRequestListOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: openPRsPageSize},
	})
	if err != nil {
		return nil, c.mapError(resp, err)
	}

	snaps := make([]tracker.Snapshot, 0, len(prs))
	for _, pr := range prs {
		snaps = append(snaps, snapshotOf(ref, pr, nil))
	}
	return snaps, nil
}

func (c *Client) PullRequest(ctx context.Context, ref tracker.RepoRef, number int) (tracker.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tracker.Snapshot{}, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Name, number)
	if err != nil {
		return tracker.Snapshot{}, c.mapError(resp, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return tracker.Snapshot{}, err
	}
	reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, ref.Owner, ref.Name, number, &gh.ListOptions{PerPage: 100})
	if err != nil {
		return tracker.Snapshot{}, c.mapError(resp, err)
	}

	return snapshotOf(ref, pr, reviews), nil
}

func (c *Client) mapError(resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return &domain.DomainError{
			Code:       domain.ErrorCodeNotFound,
			Message:    "pull request not found on GitHub",
			HTTPStatus: http.StatusNotFound,
		}
	}
	return err
}

func snapshotOf(ref tracker.RepoRef, pr *gh.PullRequest, reviews []*gh.PullRequestReview) tracker.Snapshot {
	snap := tracker.Snapshot{
		Repo:      ref.String(),
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		Author:    pr.GetUser().GetLogin(),
		IsDraft:   pr.GetDraft(),
		Lifecycle: lifecycleOf(pr),
	}

	// Reviews arrive in chronological order; the latest state per user
	// wins. A dismissal voids the user's decision entirely.
	latest := make(map[string]string)
	var order []string
	for _, rv := range reviews {
		user := rv.GetUser().GetLogin()
		if user == "" {
			continue
		}
		if _, ok := latest[user]; !ok {
			order = append(order, user)
		}
		latest[user] = rv.GetState()
	}

	// A re-requested reviewer is back to square one regardless of any
	// earlier decision.
	for _, u := range pr.RequestedReviewers {
		user := u.GetLogin()
		if user == "" {
			continue
		}
		if _, ok := latest[user]; !ok {
			order = append(order, user)
		}
		latest[user] = "REQUESTED"
	}

	for _, user := range order {
		d, ok := decisionOf(latest[user])
		if !ok {
			continue
		}
		snap.Reviews = append(snap.Reviews, tracker.SnapshotReview{User: user, Decision: d})
	}

	return snap
}

func lifecycleOf(pr *gh.PullRequest) tracker.Lifecycle {
	switch {
	case pr.GetMerged() || pr.MergedAt != nil:
		return tracker.LifecycleMerged
	case pr.GetState() == "closed":
		return tracker.LifecycleClosed
	}
	return tracker.LifecycleOpen
}

func decisionOf(state string) (tracker.ReviewDecision, bool) {
	switch state {
	case "APPROVED":
		return tracker.DecisionApproved, true
	case "CHANGES_REQUESTED":
		return tracker.DecisionChangesRequested, true
	case "COMMENTED":
		return tracker.DecisionCommented, true
	case "REQUESTED":
		return tracker.DecisionNone, true
	}
	// PENDING and DISMISSED carry no decision.
	return "", false
}
