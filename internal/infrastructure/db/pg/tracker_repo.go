package pg

import (
	"context"
	"database/sql"
	"errors"

	"prmonitor/internal/domain"
	"prmonitor/internal/domain/tracker"
)

type TrackerRepository struct {
	db *sql.DB
}

func NewTrackerRepository(db *sql.DB) *TrackerRepository {
	return &TrackerRepository{db: db}
}

func (r *TrackerRepository) Create(ctx context.Context, rec tracker.Record) error {
	if _, err := exec(ctx, r.db,
		`INSERT INTO tracked_prs
		 (repo, number, title, url, author, is_draft, lifecycle, chat_id, message_id, last_synced_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.Repo, rec.Number, rec.Title, rec.URL, rec.Author,
		rec.IsDraft, string(rec.Lifecycle), rec.ChatID, nullableID(rec.MessageID),
		rec.LastSyncedAt, rec.Version,
	); err != nil {
		return err
	}
	return r.insertReviewers(ctx, rec)
}

func (r *TrackerRepository) Get(ctx context.Context, repo string, number int) (tracker.Record, error) {
	return r.getWhere(ctx,
		`SELECT repo, number, title, url, author, is_draft, lifecycle, chat_id, message_id, last_synced_at, version
		   FROM tracked_prs
		  WHERE repo = $1 AND number = $2`,
		repo, number,
	)
}

func (r *TrackerRepository) GetByMessage(ctx context.Context, chatID, messageID int64) (tracker.Record, error) {
	return r.getWhere(ctx,
		`SELECT repo, number, title, url, author, is_draft, lifecycle, chat_id, message_id, last_synced_at, version
		   FROM tracked_prs
		  WHERE chat_id = $1 AND message_id = $2`,
		chatID, messageID,
	)
}

// Update persists the record only when the stored version still matches
// expectedVersion. A mismatch means another mutation won the race; the
// caller reloads and re-derives.
func (r *TrackerRepository) Update(ctx context.Context, rec tracker.Record, expectedVersion int64) error {
	res, err := exec(ctx, r.db,
		`UPDATE tracked_prs
		    SET title = $3, url = $4, author = $5, is_draft = $6, lifecycle = $7,
		        chat_id = $8, message_id = $9, last_synced_at = $10, version = $11
		  WHERE repo = $1 AND number = $2 AND version = $12`,
		rec.Repo, rec.Number, rec.Title, rec.URL, rec.Author,
		rec.IsDraft, string(rec.Lifecycle), rec.ChatID, nullableID(rec.MessageID),
		rec.LastSyncedAt, rec.Version, expectedVersion,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.DomainError{
			Code:       domain.ErrorCodeStaleWrite,
			Message:    "record version changed since read",
			HTTPStatus: 409,
		}
	}

	if _, err := exec(ctx, r.db,
		`DELETE FROM tracked_pr_reviewers WHERE repo = $1 AND number = $2`,
		rec.Repo, rec.Number,
	); err != nil {
		return err
	}
	return r.insertReviewers(ctx, rec)
}

func (r *TrackerRepository) ListTracked(ctx context.Context) ([]tracker.Record, error) {
	rows, err := query(ctx, r.db,
		`SELECT repo, number, title, url, author, is_draft, lifecycle, chat_id, message_id, last_synced_at, version
		   FROM tracked_prs
		  ORDER BY repo, number`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []tracker.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range res {
		if err := r.loadReviewers(ctx, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *TrackerRepository) Delete(ctx context.Context, repo string, number int) error {
	if _, err := exec(ctx, r.db,
		`DELETE FROM tracked_pr_reviewers WHERE repo = $1 AND number = $2`,
		repo, number,
	); err != nil {
		return err
	}
	_, err := exec(ctx, r.db,
		`DELETE FROM tracked_prs WHERE repo = $1 AND number = $2`,
		repo, number,
	)
	return err
}

func (r *TrackerRepository) MarkSeen(ctx context.Context, repo string, number int) error {
	_, err := exec(ctx, r.db,
		`INSERT INTO seen_prs (repo, number) VALUES ($1, $2)
		 ON CONFLICT (repo, number) DO NOTHING`,
		repo, number,
	)
	return err
}

func (r *TrackerRepository) Seen(ctx context.Context, repo string, number int) (bool, error) {
	var seen bool
	err := queryRow(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM seen_prs WHERE repo = $1 AND number = $2)`,
		repo, number,
	).Scan(&seen)
	return seen, err
}

func (r *TrackerRepository) getWhere(ctx context.Context, q string, args ...any) (tracker.Record, error) {
	row := queryRow(ctx, r.db, q, args...)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.Record{}, &domain.DomainError{
			Code:       domain.ErrorCodeNotFound,
			Message:    "tracked pull request not found",
			HTTPStatus: 404,
		}
	}
	if err != nil {
		return tracker.Record{}, err
	}
	if err := r.loadReviewers(ctx, &rec); err != nil {
		return tracker.Record{}, err
	}
	return rec, nil
}

func (r *TrackerRepository) loadReviewers(ctx context.Context, rec *tracker.Record) error {
	rows, err := query(ctx, r.db,
		`SELECT username, status
		   FROM tracked_pr_reviewers
		  WHERE repo = $1 AND number = $2`,
		rec.Repo, rec.Number,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	rec.Reviewers = make(map[string]tracker.ReviewerStatus)
	for rows.Next() {
		var user, status string
		if err := rows.Scan(&user, &status); err != nil {
			return err
		}
		rec.Reviewers[user] = tracker.ReviewerStatus(status)
	}
	return rows.Err()
}

func (r *TrackerRepository) insertReviewers(ctx context.Context, rec tracker.Record) error {
	for user, status := range rec.Reviewers {
		if _, err := exec(ctx, r.db,
			`INSERT INTO tracked_pr_reviewers (repo, number, username, status)
			 VALUES ($1, $2, $3, $4)`,
			rec.Repo, rec.Number, user, string(status),
		); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (tracker.Record, error) {
	var rec tracker.Record
	var lifecycle string
	var messageID sql.NullInt64
	var syncedAt sql.NullTime

	err := row.Scan(
		&rec.Repo, &rec.Number, &rec.Title, &rec.URL, &rec.Author,
		&rec.IsDraft, &lifecycle, &rec.ChatID, &messageID, &syncedAt, &rec.Version,
	)
	if err != nil {
		return tracker.Record{}, err
	}

	rec.Lifecycle = tracker.Lifecycle(lifecycle)
	if messageID.Valid {
		rec.MessageID = messageID.Int64
	}
	if syncedAt.Valid {
		rec.LastSyncedAt = syncedAt.Time
	}
	return rec, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
