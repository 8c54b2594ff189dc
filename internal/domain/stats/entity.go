package stats

type RepoStat struct {
	Repo    string
	Tracked int
	Drafts  int
}

type ReviewerStat struct {
	User             string
	Reviewing        int
	Approved         int
	ChangesRequested int
	Commented        int
}
