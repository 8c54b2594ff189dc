package stats

import "context"

type Service interface {
	GetRepoStats(ctx context.Context) ([]RepoStat, error)
	GetReviewerStats(ctx context.Context) ([]ReviewerStat, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetRepoStats(ctx context.Context) ([]RepoStat, error) {
	return s.repo.GetRepoStats(ctx)
}

func (s *service) GetReviewerStats(ctx context.Context) ([]ReviewerStat, error) {
	return s.repo.GetReviewerStats(ctx)
}
