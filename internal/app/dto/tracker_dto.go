package dto

import "time"

type TrackedPR struct {
	Repo             string            `json:"repo"`
	Number           int               `json:"number"`
	Title            string            `json:"title"`
	URL              string            `json:"url"`
	Author           string            `json:"author"`
	IsDraft          bool              `json:"is_draft"`
	Lifecycle        string            `json:"lifecycle"`
	Reviewers        map[string]string `json:"reviewers"`
	Approvals        int               `json:"approvals"`
	ChangesRequested int               `json:"changes_requested"`
	Comments         int               `json:"comments"`
	LastSyncedAt     *time.Time        `json:"last_synced_at,omitempty"`
	Version          int64             `json:"version"`
}

type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

type RepoStat struct {
	Repo    string `json:"repo"`
	Tracked int    `json:"tracked"`
	Drafts  int    `json:"drafts"`
}

type ReviewerStat struct {
	User             string `json:"user"`
	Reviewing        int    `json:"reviewing"`
	Approved         int    `json:"approved"`
	ChangesRequested int    `json:"changes_requested"`
	Commented        int    `json:"commented"`
}

type StatsResponse struct {
	PerRepo     []RepoStat     `json:"per_repo,omitempty"`
	PerReviewer []ReviewerStat `json:"per_reviewer,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error Error `json:"error"`
}
