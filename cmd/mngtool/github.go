package main

import (
	"context"
	"fmt"
	"time"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/github"
	"github.com/marcin-skalski/mngtool/internal/render"
	"github.com/marcin-skalski/mngtool/internal/timewindow"
)

var githubCommands = []string{"prs", "review-status", "commits"}

// defaultCommitsLimit is the CLI default; the client falls back to
// github.DefaultCommitLimit when no limit is passed at all.
const defaultCommitsLimit = 40

// commitsPayload is the commit list plus the window it was queried with.
type commitsPayload struct {
	*github.CommitList
	WindowDays     int        `json:"windowDays"`
	WindowBoundary *time.Time `json:"windowBoundary,omitempty"`
	TimeZone       string     `json:"timeZone"`
}

func (a *app) runGitHub(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "prs":
		return a.githubPRs(ctx, rest)
	case "review-status":
		return a.githubReviewStatus(ctx, rest)
	case "commits":
		return a.githubCommits(ctx, rest)
	}
	return a.unknown("github", cmd, githubCommands)
}

// parseTimestamp accepts RFC 3339 or a bare YYYY-MM-DD date (UTC midnight).
func parseTimestamp(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.Validation("invalid --%s %q: use RFC 3339 or YYYY-MM-DD", name, raw)
}

func positive(name string, v int) error {
	if v < 1 {
		return apperrors.Validation("--%s must be a positive integer, got %d", name, v)
	}
	return nil
}

func (a *app) githubPRs(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "github prs")
	state := fs.String("state", "open", "open|closed|all")
	limit := fs.Int("limit", github.DefaultPullRequestLimit, "maximum pull requests")
	raw := map[string]*string{}
	for _, name := range []string{"created-after", "created-before", "updated-after", "updated-before"} {
		raw[name] = fs.String(name, "", "RFC 3339 timestamp or YYYY-MM-DD")
	}
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	opts := github.PullRequestOptions{State: *state, Limit: *limit}
	switch opts.State {
	case "open", "closed", "all":
	default:
		return apperrors.Validation("invalid --state %q (open|closed|all)", opts.State)
	}
	if err := positive("limit", opts.Limit); err != nil {
		return err
	}
	for name, dst := range map[string]*time.Time{
		"created-after":  &opts.CreatedAfter,
		"created-before": &opts.CreatedBefore,
		"updated-after":  &opts.UpdatedAfter,
		"updated-before": &opts.UpdatedBefore,
	} {
		t, err := parseTimestamp(name, *raw[name])
		if err != nil {
			return err
		}
		*dst = t
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}

	gh, err := a.core.GitHub()
	if err != nil {
		return err
	}
	res, err := gh.FetchRepositoryPullRequests(ctx, opts)
	if err != nil {
		return err
	}
	return a.emit("github prs", res, out, render.Options{CollectionKey: "pullRequests"})
}

func (a *app) githubReviewStatus(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "github review-status")
	limit := fs.Int("limit", github.DefaultReviewStatusLimit, "maximum pull requests")
	days := fs.Int("days", github.DefaultReviewWindowDays, "only pull requests updated in the last n days")
	readyOnly := fs.Bool("ready-only", false, "drop drafts and WIP titles")
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := positive("limit", *limit); err != nil {
		return err
	}
	if err := positive("days", *days); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}

	gh, err := a.core.GitHub()
	if err != nil {
		return err
	}
	res, err := gh.FetchRecentReviewStatus(ctx, github.ReviewStatusOptions{WindowDays: *days, Limit: *limit})
	if err != nil {
		return err
	}
	if *readyOnly {
		res.PullRequests = github.FilterReadyReviewEntries(res.PullRequests)
		res.Count = len(res.PullRequests)
	}
	return a.emit("github review-status", res, out, render.Options{CollectionKey: "pullRequests", WhitelistKey: "reviewStatus"})
}

// commitWindow resolves [since, until]: until is the boundary in the given
// zone, or now when no boundary is set.
func commitWindow(now time.Time, days int, tz, boundary string) (since, until time.Time, label string, err error) {
	spec, label, err := timewindow.ResolveTimeZone(tz)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	until = now.UTC()
	if boundary != "" {
		local, err := timewindow.ParseLocalDateTime(boundary)
		if err != nil {
			return time.Time{}, time.Time{}, "", err
		}
		if until, err = timewindow.ToUTC(local, spec); err != nil {
			return time.Time{}, time.Time{}, "", err
		}
	}
	since = until.Add(-time.Duration(days) * 24 * time.Hour)
	return since, until, label, nil
}

func (a *app) githubCommits(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "github commits")
	user := fs.String("user", "", "commit author login (required)")
	limit := fs.Int("limit", defaultCommitsLimit, "maximum commits (1-200)")
	days := fs.Int("days", github.DefaultReviewWindowDays, "window length in days")
	owner := fs.String("owner", "", "repository owner override")
	repo := fs.String("repo", "", "repository name override")
	excludeMerges := fs.Bool("exclude-merges", false, "skip merge commits")
	tz := fs.String("timezone", "", "IANA zone, ±HH:MM offset or local")
	boundary := fs.String("window-boundary", "", "window end as YYYYMMDD or YYYYMMDDHHMM")
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	if *user == "" {
		return apperrors.Validation("--user is required")
	}
	if err := positive("limit", *limit); err != nil {
		return err
	}
	if err := positive("days", *days); err != nil {
		return err
	}
	var override *github.Repository
	switch {
	case *owner != "" && *repo != "":
		override = &github.Repository{Owner: *owner, Repo: *repo}
	case *owner != "" || *repo != "":
		return apperrors.Validation("--owner and --repo must be given together")
	}
	since, until, label, err := commitWindow(a.now(), *days, *tz, *boundary)
	if err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}
	a.logger.Debug("commit window", "since", since, "until", until, "timezone", label)

	gh, err := a.core.GitHub()
	if err != nil {
		return err
	}
	res, err := gh.FetchUserCommits(ctx, github.CommitOptions{
		Author:        *user,
		Limit:         *limit,
		Since:         since,
		Until:         until,
		Repository:    override,
		ExcludeMerges: *excludeMerges,
	})
	if err != nil {
		return err
	}
	payload := commitsPayload{CommitList: res, WindowDays: *days, TimeZone: label}
	if *boundary != "" {
		payload.WindowBoundary = &until
	}
	return a.emit("github commits", payload, out, render.Options{CollectionKey: "commits"})
}
