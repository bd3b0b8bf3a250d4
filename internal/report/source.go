package report

import "context"

// PullRequest is the slice of PR data the reporter consumes.
type PullRequest struct {
	Title  string
	Body   string
	Repo   string // owner/name
	URL    string
	State  string // open or closed
	Merged bool
	Draft  bool
}

// Status summarizes the PR's progress for the standup digest.
func (pr PullRequest) Status() string {
	switch {
	case pr.Merged:
		return "merged"
	case pr.State == "closed":
		return "closed without merging"
	case pr.Draft:
		return "in progress (draft)"
	}
	return "in progress"
}

// Source supplies the pull requests a developer opened on a given date.
type Source interface {
	Name() string
	FetchPullRequests(ctx context.Context, date string) ([]PullRequest, error)
	HealthCheck() error
}
