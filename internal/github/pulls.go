package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/paginate"
)

const (
	DefaultPullRequestLimit  = 20
	DefaultReviewWindowDays  = 7
	DefaultReviewStatusLimit = 50
)

type PullRequestSummary struct {
	Number        int               `json:"number"`
	Title         string            `json:"title"`
	URL           string            `json:"url"`
	State         string            `json:"state"`
	Draft         bool              `json:"draft"`
	Author        string            `json:"author,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	MergedAt      *time.Time        `json:"mergedAt,omitempty"`
	HeadRef       string            `json:"headRef"`
	BaseRef       string            `json:"baseRef"`
	Labels        []string          `json:"labels"`
	Reviewers     []ReviewerSummary `json:"reviewers"`
	ReviewSummary ReviewSummary     `json:"reviewSummary"`
}

type PullRequestList struct {
	Repository   string               `json:"repository"`
	FetchedAt    time.Time            `json:"fetchedAt"`
	Count        int                  `json:"count"`
	PullRequests []PullRequestSummary `json:"pullRequests"`
}

type ReviewStatusResult struct {
	Repository   string              `json:"repository"`
	FetchedAt    time.Time           `json:"fetchedAt"`
	WindowStart  time.Time           `json:"windowStart"`
	Count        int                 `json:"count"`
	PullRequests []ReviewStatusEntry `json:"pullRequests"`
}

// PullRequestOptions filter the PR listing. Zero times are unbounded.
type PullRequestOptions struct {
	State         string
	Limit         int
	CreatedAfter  time.Time
	CreatedBefore time.Time
	UpdatedAfter  time.Time
	UpdatedBefore time.Time
}

type ReviewStatusOptions struct {
	WindowDays int
	Limit      int
}

type restUser struct {
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL string  `json:"avatar_url"`
}

type restPull struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	HTMLURL   string     `json:"html_url"`
	State     string     `json:"state"`
	Draft     bool       `json:"draft"`
	User      *restUser  `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
	Head      struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

type restRequestedReviewers struct {
	Users []restUser `json:"users"`
	Teams []struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"teams"`
}

type restReview struct {
	User        *restUser  `json:"user"`
	State       string     `json:"state"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

func (o PullRequestOptions) matches(pr restPull) bool {
	if !o.CreatedAfter.IsZero() && pr.CreatedAt.Before(o.CreatedAfter) {
		return false
	}
	if !o.CreatedBefore.IsZero() && pr.CreatedAt.After(o.CreatedBefore) {
		return false
	}
	if !o.UpdatedAfter.IsZero() && pr.UpdatedAt.Before(o.UpdatedAfter) {
		return false
	}
	if !o.UpdatedBefore.IsZero() && pr.UpdatedAt.After(o.UpdatedBefore) {
		return false
	}
	return true
}

// FetchRepositoryPullRequests lists PRs by most recent update, keeps those
// matching the date filters up to the limit, and enriches each with its
// reviewers.
func (c *Client) FetchRepositoryPullRequests(ctx context.Context, opts PullRequestOptions) (*PullRequestList, error) {
	repo, err := c.Repository()
	if err != nil {
		return nil, err
	}
	state := opts.State
	if state == "" {
		state = "open"
	}
	switch state {
	case "open", "closed", "all":
	default:
		return nil, apperrors.Validation("invalid state %q: expected open, closed or all", state)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPullRequestLimit
	}

	query := url.Values{
		"state":     {state},
		"per_page":  {strconv.Itoa(min(limit, 100))},
		"sort":      {"updated"},
		"direction": {"desc"},
	}
	base, err := paginate.Collect(ctx,
		pages[restPull](c, "list pulls", repoPath(repo, "/pulls"), query),
		paginate.Options[restPull]{Keep: opts.matches, Limit: limit})
	if err != nil {
		return nil, err
	}

	prs := make([]PullRequestSummary, len(base))
	g, gctx := errgroup.WithContext(ctx)
	if c.maxConc > 0 {
		g.SetLimit(c.maxConc)
	}
	for i, pr := range base {
		g.Go(func() error {
			summary, err := c.enrichPullRequest(gctx, repo, pr)
			if err != nil {
				return err
			}
			prs[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched pull requests", "repository", repo.String(), "count", len(prs))
	return &PullRequestList{
		Repository:   repo.String(),
		FetchedAt:    c.now().UTC(),
		Count:        len(prs),
		PullRequests: prs,
	}, nil
}

// enrichPullRequest loads requested reviewers and submitted reviews
// concurrently.
func (c *Client) enrichPullRequest(ctx context.Context, repo Repository, pr restPull) (PullRequestSummary, error) {
	var (
		requested restRequestedReviewers
		reviews   []restReview
	)
	prPath := repoPath(repo, fmt.Sprintf("/pulls/%d", pr.Number))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.get(gctx, "requested reviewers", prPath+"/requested_reviewers", url.Values{"per_page": {"100"}}, &requested)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = paginate.All(gctx, pages[restReview](c, "list reviews", prPath+"/reviews", url.Values{"per_page": {"100"}}))
		return err
	})
	if err := g.Wait(); err != nil {
		return PullRequestSummary{}, err
	}

	users := make([]RequestedUser, 0, len(requested.Users))
	for _, u := range requested.Users {
		users = append(users, RequestedUser{Login: u.Login, Name: deref(u.Name), AvatarURL: u.AvatarURL})
	}
	teams := make([]RequestedTeam, 0, len(requested.Teams))
	for _, t := range requested.Teams {
		teams = append(teams, RequestedTeam{Slug: t.Slug, Name: t.Name})
	}
	submitted := make([]SubmittedReview, 0, len(reviews))
	for _, r := range reviews {
		if r.User == nil {
			continue
		}
		submitted = append(submitted, SubmittedReview{
			Login:       r.User.Login,
			Name:        deref(r.User.Name),
			AvatarURL:   r.User.AvatarURL,
			State:       r.State,
			SubmittedAt: r.SubmittedAt,
		})
	}
	reviewers := AggregateReviewers(users, teams, submitted)

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		if l.Name != "" {
			labels = append(labels, l.Name)
		}
	}
	summary := PullRequestSummary{
		Number:        pr.Number,
		Title:         pr.Title,
		URL:           pr.HTMLURL,
		State:         pr.State,
		Draft:         pr.Draft,
		CreatedAt:     pr.CreatedAt,
		UpdatedAt:     pr.UpdatedAt,
		MergedAt:      pr.MergedAt,
		HeadRef:       pr.Head.Ref,
		BaseRef:       pr.Base.Ref,
		Labels:        labels,
		Reviewers:     reviewers,
		ReviewSummary: BuildReviewSummary(reviewers),
	}
	if pr.User != nil {
		summary.Author = pr.User.Login
	}
	return summary, nil
}

// FetchRecentReviewStatus reports open PRs updated within the window.
func (c *Client) FetchRecentReviewStatus(ctx context.Context, opts ReviewStatusOptions) (*ReviewStatusResult, error) {
	days := opts.WindowDays
	if days <= 0 {
		days = DefaultReviewWindowDays
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultReviewStatusLimit
	}
	windowStart := c.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	base, err := c.FetchRepositoryPullRequests(ctx, PullRequestOptions{
		State:        "open",
		Limit:        limit,
		UpdatedAfter: windowStart,
	})
	if err != nil {
		return nil, err
	}
	return &ReviewStatusResult{
		Repository:   base.Repository,
		FetchedAt:    base.FetchedAt,
		WindowStart:  windowStart,
		Count:        base.Count,
		PullRequests: BuildReviewStatusEntries(base.PullRequests),
	}, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
