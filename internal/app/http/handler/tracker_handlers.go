package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prmonitor/internal/app/dto"
	"prmonitor/internal/domain/tracker"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) TrackedList(c *gin.Context) {
	recs, err := h.TrackerSvc.ListTracked(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]dto.TrackedPR, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toTrackedPR(rec))
	}

	c.JSON(http.StatusOK, gin.H{"prs": out})
}

func (h *Handler) RepoList(c *gin.Context) {
	refs, err := h.TrackerSvc.Repositories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]dto.Repository, 0, len(refs))
	for _, ref := range refs {
		out = append(out, dto.Repository{Owner: ref.Owner, Name: ref.Name})
	}

	c.JSON(http.StatusOK, gin.H{"repositories": out})
}

func (h *Handler) RepoAdd(c *gin.Context) {
	var body struct {
		Owner string `json:"owner"`
		Name  string `json:"name"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid JSON")
		return
	}
	if body.Owner == "" || body.Name == "" {
		h.badRequest(c, "owner and name are required")
		return
	}

	ref := tracker.RepoRef{Owner: body.Owner, Name: body.Name}
	if err := h.TrackerSvc.AddRepository(c.Request.Context(), ref); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Repository{Owner: ref.Owner, Name: ref.Name})
}

func (h *Handler) StatsTracked(c *gin.Context) {
	perRepo, err := h.StatsSvc.GetRepoStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	perReviewer, err := h.StatsSvc.GetReviewerStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := dto.StatsResponse{}
	for _, s := range perRepo {
		resp.PerRepo = append(resp.PerRepo, dto.RepoStat{
			Repo:    s.Repo,
			Tracked: s.Tracked,
			Drafts:  s.Drafts,
		})
	}
	for _, s := range perReviewer {
		resp.PerReviewer = append(resp.PerReviewer, dto.ReviewerStat{
			User:             s.User,
			Reviewing:        s.Reviewing,
			Approved:         s.Approved,
			ChangesRequested: s.ChangesRequested,
			Commented:        s.Commented,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func toTrackedPR(rec tracker.Record) dto.TrackedPR {
	reviewers := make(map[string]string, len(rec.Reviewers))
	for u, s := range rec.Reviewers {
		reviewers[u] = string(s)
	}

	out := dto.TrackedPR{
		Repo:             rec.Repo,
		Number:           rec.Number,
		Title:            rec.Title,
		URL:              rec.URL,
		Author:           rec.Author,
		IsDraft:          rec.IsDraft,
		Lifecycle:        string(rec.Lifecycle),
		Reviewers:        reviewers,
		Approvals:        rec.Approvals(),
		ChangesRequested: rec.ChangesRequested(),
		Comments:         rec.ActiveComments(),
		Version:          rec.Version,
	}
	if !rec.LastSyncedAt.IsZero() {
		t := rec.LastSyncedAt
		out.LastSyncedAt = &t
	}
	return out
}
