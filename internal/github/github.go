package github

import (
	"context"
	"strings"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/report"
)

// PullSource adapts the GitHub client to the report.Source interface.
type PullSource struct {
	Client *Client
}

func NewPullSource(token, username string) *PullSource {
	return &PullSource{Client: NewClient(token, username)}
}

var _ report.Source = (*PullSource)(nil)

func (p *PullSource) Name() string {
	return "GitHub"
}

func (p *PullSource) HealthCheck() error {
	return p.Client.HealthCheck()
}

func (p *PullSource) FetchPullRequests(ctx context.Context, date string) ([]report.PullRequest, error) {
	resp, err := p.Client.SearchPullRequests(ctx, date)
	if err != nil {
		return nil, err
	}
	return toPullRequests(resp.Items), nil
}

func toPullRequests(items []Item) []report.PullRequest {
	prs := make([]report.PullRequest, 0, len(items))
	for _, item := range items {
		prs = append(prs, report.PullRequest{
			Title:  item.Title,
			Body:   item.Body,
			Repo:   strings.TrimPrefix(item.RepositoryURL, "https://api.github.com/repos/"),
			URL:    item.HTMLURL,
			State:  item.State,
			Merged: item.PullRequest.MergedAt != nil,
			Draft:  item.Draft,
		})
	}
	return prs
}
