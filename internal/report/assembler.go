package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/ledger"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/taskref"
)

// aiInstructions is appended to the digest so a chat model can turn the
// raw PR data into the final standup message.
const aiInstructions = `Based on the GitHub PR data above, produce a daily standup report with
these line formats:
- work with a linked task:    [days]project#id - summary of the work
- work without a linked task: [days]summary of the work
[days] is the accumulated working-day count shown next to each task; use
[1] when no count is given.

Rules:
1. Keep each line short; skip anything that took under an hour.
2. Infer progress from PR status: merged = done, in progress = ongoing,
   closed without merging = likely dropped or restarted.
3. Derive a short project code from the repository name, stripping the
   organization and suffixes (Acme-Corp/shop_flutter -> shop). Do not
   uppercase it.
4. Output plain text only, no markdown.
5. Do not leak confidential project details; describe the work briefly.`

// Report is the assembled result of one invocation: the raw digest plus
// the day-count for every task reference observed.
type Report struct {
	Date         string
	PullRequests []PullRequest
	TaskDays     map[string]int
	Digest       string
}

// Assembler builds the daily digest: it pulls PRs from the source,
// records task sightings in the ledger, and renders the text handed to
// the AI formatter (or delivered as-is).
type Assembler struct {
	Source Source
	Ledger *ledger.Ledger
	Logger *slog.Logger
}

func NewAssembler(source Source, led *ledger.Ledger, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{Source: source, Ledger: led, Logger: logger}
}

// Assemble produces the report for date. Per-key stale sightings are
// logged and the existing day-count is used; source or store failures
// abort the whole run so a partial report is never produced.
func (a *Assembler) Assemble(ctx context.Context, date string) (*Report, error) {
	if err := a.Source.HealthCheck(); err != nil {
		return nil, fmt.Errorf("%s health check failed: %w", a.Source.Name(), err)
	}

	prs, err := a.Source.FetchPullRequests(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull requests from %s: %w", a.Source.Name(), err)
	}
	a.Logger.Info("pull requests fetched", "source", a.Source.Name(), "date", date, "count", len(prs))

	keys := collectTaskKeys(prs)
	taskDays := make(map[string]int, len(keys))

	if len(keys) > 0 {
		sightings, err := a.Ledger.RecordSightings(ctx, keys, date)
		if err != nil {
			return nil, err
		}
		for key, s := range sightings {
			switch {
			case errors.Is(s.Err, ledger.ErrStaleSighting):
				a.Logger.Warn("stale sighting skipped", "task", key, "date", date)
				days, derr := a.Ledger.Days(ctx, key)
				if derr != nil {
					return nil, derr
				}
				taskDays[key] = days
			case s.Err != nil:
				return nil, s.Err
			default:
				taskDays[key] = s.Record.TotalDays
			}
		}
	}

	rep := &Report{
		Date:         date,
		PullRequests: prs,
		TaskDays:     taskDays,
	}
	rep.Digest = renderDigest(rep)
	return rep, nil
}

func collectTaskKeys(prs []PullRequest) []string {
	texts := make([]string, 0, len(prs)*2)
	for _, pr := range prs {
		texts = append(texts, pr.Title, pr.Body)
	}
	return taskref.ExtractAll(texts...)
}

func renderDigest(rep *Report) string {
	var b strings.Builder

	b.WriteString("=== Daily Standup Data ===\n\n")
	b.WriteString("## GitHub PR summary\n")
	fmt.Fprintf(&b, "- Date: %s\n", rep.Date)
	fmt.Fprintf(&b, "- PRs opened: %d\n\n", len(rep.PullRequests))

	if len(rep.PullRequests) == 0 {
		b.WriteString("No PRs were opened today; there may be no code work to report.\n\n")
	} else {
		b.WriteString("## PR details\n\n")
		for i, pr := range rep.PullRequests {
			fmt.Fprintf(&b, "### PR #%d\n", i+1)
			fmt.Fprintf(&b, "- Title: %s\n", pr.Title)
			fmt.Fprintf(&b, "- Repository: %s\n", pr.Repo)
			fmt.Fprintf(&b, "- Status: %s\n", pr.Status())
			for _, key := range taskref.ExtractAll(pr.Title, pr.Body) {
				fmt.Fprintf(&b, "- Task: %s (day %d)\n", key, displayDays(rep.TaskDays[key]))
			}
			if summary := summarizeBody(pr.Body); summary != "" {
				fmt.Fprintf(&b, "- Work: %s\n", summary)
			}
			fmt.Fprintf(&b, "- Link: %s\n\n", pr.URL)
		}
	}

	b.WriteString("## Formatting instructions\n")
	b.WriteString(aiInstructions)
	return b.String()
}

// displayDays floors at 1: a task only ever seen on non-working days has
// an accrued count of 0 but still reads as day one of work.
func displayDays(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// summarizeBody flattens a PR description to a single line of at most
// 200 runes.
func summarizeBody(body string) string {
	if body == "" {
		return ""
	}
	runes := []rune(body)
	if len(runes) > 200 {
		body = string(runes[:200]) + "..."
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

// Statistics summarizes a report for log output.
func (a *Assembler) Statistics(rep *Report) map[string]any {
	merged, closed, open := 0, 0, 0
	for _, pr := range rep.PullRequests {
		switch {
		case pr.Merged:
			merged++
		case pr.State == "closed":
			closed++
		default:
			open++
		}
	}

	return map[string]any{
		"total":   len(rep.PullRequests),
		"merged":  merged,
		"closed":  closed,
		"open":    open,
		"tracked": len(rep.TaskDays),
	}
}
