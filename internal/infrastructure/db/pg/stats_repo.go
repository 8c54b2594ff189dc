package pg

import (
	"context"
	"database/sql"

	"prmonitor/internal/domain/stats"
)

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) GetRepoStats(ctx context.Context) ([]stats.RepoStat, error) {
	const q = `
	SELECT repo,
	       COUNT(*) AS tracked,
	       COUNT(*) FILTER (WHERE is_draft) AS drafts
	  FROM tracked_prs
	 GROUP BY repo
	 ORDER BY repo;`

	rows, err := query(ctx, r.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []stats.RepoStat
	for rows.Next() {
		var s stats.RepoStat
		if err := rows.Scan(&s.Repo, &s.Tracked, &s.Drafts); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *StatsRepository) GetReviewerStats(ctx context.Context) ([]stats.ReviewerStat, error) {
	const q = `
	SELECT username,
	       COUNT(*) FILTER (WHERE status = 'REVIEWING') AS reviewing,
	       COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
	       COUNT(*) FILTER (WHERE status = 'CHANGES_REQUESTED') AS changes_requested,
	       COUNT(*) FILTER (WHERE status = 'COMMENTED') AS commented
	  FROM tracked_pr_reviewers
	 GROUP BY username
	 ORDER BY username;`

	rows, err := query(ctx, r.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []stats.ReviewerStat
	for rows.Next() {
		var s stats.ReviewerStat
		if err := rows.Scan(&s.User, &s.Reviewing, &s.Approved, &s.ChangesRequested, &s.Commented); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
