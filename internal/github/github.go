// Package github reads pull requests, reviews and commits from the GitHub
// REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/paginate"
)

const DefaultAPIURL = "https://api.github.com"

// Repository names one owner/repo pair.
type Repository struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (r Repository) String() string { return r.Owner + "/" + r.Repo }

func (r Repository) valid() bool { return r.Owner != "" && r.Repo != "" }

// ParseRepository splits an "owner/repo" value.
func ParseRepository(s string) (Repository, error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Repository{}, apperrors.Validation("repository %q must look like owner/repo", s)
	}
	return Repository{Owner: owner, Repo: repo}, nil
}

type Config struct {
	Token      string
	APIURL     string
	Repository Repository
	// MaxConcurrency bounds concurrent pull request enrichment. Zero means unbounded.
	MaxConcurrency int
	HTTPClient     *http.Client
}

type Client struct {
	token   string
	baseURL string
	repo    Repository
	maxConc int
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	base := cfg.APIURL
	if base == "" {
		base = DefaultAPIURL
	}
	return &Client{
		token:   cfg.Token,
		baseURL: strings.TrimRight(base, "/"),
		repo:    cfg.Repository,
		maxConc: cfg.MaxConcurrency,
		http:    hc,
		logger:  logger,
		now:     time.Now,
	}
}

// Repository returns the configured repository or a configuration error.
func (c *Client) Repository() (Repository, error) {
	if !c.repo.valid() {
		return Repository{}, apperrors.Configuration(
			"missing repository configuration; set GITHUB_OWNER and GITHUB_REPO or a combined GITHUB_REPOSITORY value")
	}
	return c.repo, nil
}

// get issues one GET and decodes the JSON body into out. The response
// headers are returned for pagination.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) (http.Header, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("github", "op", op, "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("github "+op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Upstream("github "+op, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream("github "+op, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.Upstream("github "+op, fmt.Errorf("parse response: %w", err))
	}
	return resp.Header, nil
}

// pages adapts a REST list endpoint to the cursor paginator. The cursor is
// the page number taken from the Link header's rel="next" entry.
func pages[T any](c *Client, op, path string, query url.Values) paginate.FetchFunc[T] {
	return func(ctx context.Context, cursor string) (paginate.Page[T], error) {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if cursor != "" {
			q.Set("page", cursor)
		}
		var nodes []T
		header, err := c.get(ctx, op, path, q, &nodes)
		if err != nil {
			return paginate.Page[T]{}, err
		}
		next := nextPage(header.Get("Link"))
		return paginate.Page[T]{
			Nodes:    nodes,
			PageInfo: paginate.PageInfo{HasNextPage: next != "", EndCursor: next},
		}, nil
	}
}

// nextPage extracts the page parameter of the rel="next" link.
func nextPage(link string) string {
	for _, part := range strings.Split(link, ",") {
		target, params, ok := strings.Cut(part, ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		target = strings.Trim(strings.TrimSpace(target), "<>")
		u, err := url.Parse(target)
		if err != nil {
			return ""
		}
		return u.Query().Get("page")
	}
	return ""
}

func repoPath(r Repository, suffix string) string {
	return "/repos/" + url.PathEscape(r.Owner) + "/" + url.PathEscape(r.Repo) + suffix
}
