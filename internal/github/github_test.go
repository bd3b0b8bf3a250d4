package github

import (
	"testing"
)

func TestToPullRequests(t *testing.T) {
	mergedAt := "2026-08-31T10:00:00Z"
	items := []Item{
		{
			Title:         "Rework login flow",
			Body:          "body text",
			RepositoryURL: "https://api.github.com/repos/acme/shop",
			HTMLURL:       "https://github.com/acme/shop/pull/7",
			State:         "closed",
		},
		{
			Title:         "Add caching",
			RepositoryURL: "https://api.github.com/repos/acme/infra",
			State:         "open",
			Draft:         true,
		},
	}
	items[0].PullRequest.MergedAt = &mergedAt

	prs := toPullRequests(items)
	if len(prs) != 2 {
		t.Fatalf("got %d PRs, want 2", len(prs))
	}

	if prs[0].Repo != "acme/shop" {
		t.Errorf("Repo = %q, want acme/shop", prs[0].Repo)
	}
	if !prs[0].Merged {
		t.Error("first PR should be merged")
	}
	if prs[1].Merged {
		t.Error("second PR should not be merged")
	}
	if !prs[1].Draft {
		t.Error("second PR should be a draft")
	}
}

func TestToPullRequestsEmpty(t *testing.T) {
	if prs := toPullRequests(nil); len(prs) != 0 {
		t.Fatalf("got %d PRs, want 0", len(prs))
	}
}
