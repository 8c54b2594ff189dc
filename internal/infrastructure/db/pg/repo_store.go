package pg

import (
	"context"
	"database/sql"

	"prmonitor/internal/domain/tracker"
)

type RepoStore struct {
	db *sql.DB
}

func NewRepoStore(db *sql.DB) *RepoStore {
	return &RepoStore{db: db}
}

func (r *RepoStore) Add(ctx context.Context, ref tracker.RepoRef) error {
	_, err := exec(ctx, r.db,
		`INSERT INTO repositories (owner, name) VALUES ($1, $2)
		 ON CONFLICT (owner, name) DO NOTHING`,
		ref.Owner, ref.Name,
	)
	return err
}

func (r *RepoStore) List(ctx context.Context) ([]tracker.RepoRef, error) {
	rows, err := query(ctx, r.db,
		`SELECT owner, name FROM repositories ORDER BY owner, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []tracker.RepoRef
	for rows.Next() {
		var ref tracker.RepoRef
		if err := rows.Scan(&ref.Owner, &ref.Name); err != nil {
			return nil, err
		}
		res = append(res, ref)
	}
	return res, rows.Err()
}
