package github

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/paginate"
)

const (
	DefaultCommitLimit = 50
	MaxCommitLimit     = 200
)

// CommitOptions select commits by author. Zero Since/Until are unbounded and
// a nil Repository falls back to the client's configured one.
type CommitOptions struct {
	Author        string
	Limit         int
	Since         time.Time
	Until         time.Time
	Repository    *Repository
	ExcludeMerges bool
}

type CommitSummary struct {
	Owner           string     `json:"owner"`
	Repo            string     `json:"repo"`
	SHA             string     `json:"sha"`
	ShortMessage    string     `json:"shortMessage"`
	Message         string     `json:"message"`
	URL             string     `json:"url"`
	AuthorLogin     string     `json:"authorLogin,omitempty"`
	AuthorName      string     `json:"authorName,omitempty"`
	AuthorEmail     string     `json:"authorEmail,omitempty"`
	AuthorAvatarURL string     `json:"authorAvatarUrl,omitempty"`
	CommittedAt     *time.Time `json:"committedAt,omitempty"`
	Parents         []string   `json:"parents"`
	Verified        bool       `json:"verified"`
}

type CommitList struct {
	Repository string          `json:"repository"`
	Owner      string          `json:"owner"`
	Repo       string          `json:"repo"`
	Author     string          `json:"author"`
	FetchedAt  time.Time       `json:"fetchedAt"`
	Since      *time.Time      `json:"since,omitempty"`
	Until      *time.Time      `json:"until,omitempty"`
	Count      int             `json:"count"`
	Commits    []CommitSummary `json:"commits"`
}

type restSignature struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Date  *time.Time `json:"date"`
}

type restCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message      string         `json:"message"`
		Author       *restSignature `json:"author"`
		Committer    *restSignature `json:"committer"`
		Verification *struct {
			Verified bool `json:"verified"`
		} `json:"verification"`
	} `json:"commit"`
	Author  *restUser `json:"author"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

func (rc restCommit) isMerge() bool { return len(rc.Parents) > 1 }

func toCommitSummary(rc restCommit, repo Repository) CommitSummary {
	short, _, _ := strings.Cut(rc.Commit.Message, "\n")
	cs := CommitSummary{
		Owner:        repo.Owner,
		Repo:         repo.Repo,
		SHA:          rc.SHA,
		ShortMessage: short,
		Message:      rc.Commit.Message,
		URL:          rc.HTMLURL,
		Parents:      make([]string, 0, len(rc.Parents)),
		Verified:     rc.Commit.Verification != nil && rc.Commit.Verification.Verified,
	}
	if rc.Author != nil {
		cs.AuthorLogin = rc.Author.Login
		cs.AuthorName = rc.Author.Login
		cs.AuthorAvatarURL = rc.Author.AvatarURL
	}
	if a := rc.Commit.Author; a != nil {
		if a.Name != "" {
			cs.AuthorName = a.Name
		}
		cs.AuthorEmail = a.Email
		cs.CommittedAt = a.Date
	}
	if cs.CommittedAt == nil && rc.Commit.Committer != nil {
		cs.CommittedAt = rc.Commit.Committer.Date
	}
	for _, p := range rc.Parents {
		if p.SHA != "" {
			cs.Parents = append(cs.Parents, p.SHA)
		}
	}
	return cs
}

// FetchUserCommits lists commits by one author within an optional window.
func (c *Client) FetchUserCommits(ctx context.Context, opts CommitOptions) (*CommitList, error) {
	if strings.TrimSpace(opts.Author) == "" {
		return nil, apperrors.Validation("author login is required to fetch commits")
	}
	var repo Repository
	if opts.Repository != nil && opts.Repository.valid() {
		repo = *opts.Repository
	} else {
		r, err := c.Repository()
		if err != nil {
			return nil, err
		}
		repo = r
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultCommitLimit
	}
	limit = max(1, min(limit, MaxCommitLimit))

	query := url.Values{
		"author":   {opts.Author},
		"per_page": {strconv.Itoa(min(limit, 100))},
	}
	result := &CommitList{
		Repository: repo.String(),
		Owner:      repo.Owner,
		Repo:       repo.Repo,
		Author:     opts.Author,
	}
	if !opts.Since.IsZero() {
		s := opts.Since.UTC()
		result.Since = &s
		query.Set("since", s.Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		u := opts.Until.UTC()
		result.Until = &u
		query.Set("until", u.Format(time.RFC3339))
	}

	keep := func(rc restCommit) bool { return !opts.ExcludeMerges || !rc.isMerge() }
	raw, err := paginate.Collect(ctx,
		pages[restCommit](c, "list commits", repoPath(repo, "/commits"), query),
		paginate.Options[restCommit]{Keep: keep, Limit: limit})
	if err != nil {
		return nil, err
	}

	result.Commits = make([]CommitSummary, 0, len(raw))
	for _, rc := range raw {
		result.Commits = append(result.Commits, toCommitSummary(rc, repo))
	}
	result.Count = len(result.Commits)
	result.FetchedAt = c.now().UTC()
	c.logger.Info("fetched commits", "repository", result.Repository, "author", opts.Author, "count", result.Count)
	return result, nil
}
