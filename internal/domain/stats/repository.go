package stats

import "context"

type Repository interface {
	GetRepoStats(ctx context.Context) ([]RepoStat, error)
	GetReviewerStats(ctx context.Context) ([]ReviewerStat, error)
}
