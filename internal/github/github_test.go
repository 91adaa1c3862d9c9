package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/logging"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		Token:      "tok",
		APIURL:     srv.URL,
		Repository: Repository{Owner: "acme", Repo: "web"},
	}, logging.Discard())
	c.now = func() time.Time { return fixedNow }
	return c, srv
}

func pullJSON(number int, title, updated string, draft bool) string {
	return fmt.Sprintf(`{"number":%d,"title":%q,"html_url":"https://github.com/acme/web/pull/%d","state":"open",
		"draft":%t,"user":{"login":"dev"},"created_at":"2024-06-01T00:00:00Z","updated_at":%q,
		"head":{"ref":"feat-%d"},"base":{"ref":"main"},"labels":[{"name":"backend"}]}`,
		number, title, number, draft, updated, number)
}

func TestParseRepository(t *testing.T) {
	r, err := ParseRepository("acme/web")
	require.NoError(t, err)
	assert.Equal(t, Repository{Owner: "acme", Repo: "web"}, r)
	assert.Equal(t, "acme/web", r.String())

	for _, bad := range []string{"", "acme", "/web", "acme/", "a/b/c"} {
		_, err := ParseRepository(bad)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), bad)
	}
}

func TestNextPage(t *testing.T) {
	link := `<https://api.github.com/repos/acme/web/pulls?page=3&per_page=2>; rel="next", ` +
		`<https://api.github.com/repos/acme/web/pulls?page=9&per_page=2>; rel="last"`
	assert.Equal(t, "3", nextPage(link))
	assert.Equal(t, "", nextPage(`<https://x/y?page=1>; rel="prev"`))
	assert.Equal(t, "", nextPage(""))
}

func TestFetchRepositoryPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("GET /repos/acme/web/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("direction"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/web/pulls?page=2>; rel="next"`, srvURL))
			_, _ = io.WriteString(w, "["+pullJSON(10, "Add sync", "2024-06-09T00:00:00Z", false)+","+
				pullJSON(11, "Old", "2024-01-01T00:00:00Z", false)+"]")
		case "2":
			_, _ = io.WriteString(w, "["+pullJSON(12, "Render csv", "2024-06-08T00:00:00Z", true)+"]")
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	mux.HandleFunc("GET /repos/acme/web/pulls/{n}/requested_reviewers", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("n") == "10" {
			_, _ = io.WriteString(w, `{"users":[{"login":"bob"}],"teams":[{"slug":"core","name":"Core"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"users":[],"teams":[]}`)
	})
	mux.HandleFunc("GET /repos/acme/web/pulls/{n}/reviews", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("n") == "10" {
			_, _ = io.WriteString(w, `[{"user":{"login":"alice"},"state":"APPROVED","submitted_at":"2024-06-09T01:00:00Z"},
				{"user":{"login":"bob"},"state":"CHANGES_REQUESTED","submitted_at":"2024-06-09T02:00:00Z"}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	c, srv := newTestClient(t, mux)
	srvURL = srv.URL

	res, err := c.FetchRepositoryPullRequests(context.Background(), PullRequestOptions{
		Limit:        2,
		UpdatedAfter: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "acme/web", res.Repository)
	assert.Equal(t, fixedNow, res.FetchedAt)
	require.Equal(t, 2, res.Count)

	first := res.PullRequests[0]
	assert.Equal(t, 10, first.Number)
	assert.Equal(t, "dev", first.Author)
	assert.Equal(t, "feat-10", first.HeadRef)
	assert.Equal(t, []string{"backend"}, first.Labels)
	require.Len(t, first.Reviewers, 3)
	assert.Equal(t, "alice", first.Reviewers[0].Login)
	assert.Equal(t, "CHANGES_REQUESTED", first.Reviewers[1].State)
	assert.Equal(t, ReviewerTeam, first.Reviewers[2].Type)
	assert.Equal(t, StatusChangesRequested, first.ReviewSummary.OverallStatus)

	second := res.PullRequests[1]
	assert.Equal(t, 12, second.Number)
	assert.True(t, second.Draft)
	assert.Equal(t, StatusNoReviews, second.ReviewSummary.OverallStatus)
}

func TestFetchRepositoryPullRequestsValidation(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())
	_, err := c.FetchRepositoryPullRequests(context.Background(), PullRequestOptions{State: "merged"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	c.repo = Repository{}
	_, err = c.FetchRepositoryPullRequests(context.Background(), PullRequestOptions{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfiguration))
}

func TestFetchRepositoryPullRequestsUpstreamFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/web/pulls", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.FetchRepositoryPullRequests(context.Background(), PullRequestOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFetch))
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestFetchRecentReviewStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/web/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		_, _ = io.WriteString(w, "["+pullJSON(1, "WIP parser", "2024-06-09T00:00:00Z", false)+","+
			pullJSON(2, "Stale", "2024-05-01T00:00:00Z", false)+"]")
	})
	mux.HandleFunc("GET /repos/acme/web/pulls/1/requested_reviewers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"users":[{"login":"bob"}],"teams":[]}`)
	})
	mux.HandleFunc("GET /repos/acme/web/pulls/1/reviews", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	c, _ := newTestClient(t, mux)

	res, err := c.FetchRecentReviewStatus(context.Background(), ReviewStatusOptions{})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-7*24*time.Hour), res.WindowStart)
	require.Equal(t, 1, res.Count)
	entry := res.PullRequests[0]
	assert.True(t, entry.TitleIncludesWIP)
	assert.Equal(t, map[string]string{"bob": StateReviewRequested}, entry.Reviewers)
	assert.Empty(t, FilterReadyReviewEntries(res.PullRequests))
}

func TestFetchUserCommits(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/other/lib/commits", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "dev", q.Get("author"))
		assert.Equal(t, "2", q.Get("per_page"))
		assert.Equal(t, "2024-06-01T00:00:00Z", q.Get("since"))
		assert.Equal(t, "2024-06-08T00:00:00Z", q.Get("until"))
		_, _ = io.WriteString(w, `[
			{"sha":"m1","html_url":"u","commit":{"message":"Merge branch"},"parents":[{"sha":"a"},{"sha":"b"}]},
			{"sha":"c1","html_url":"https://github.com/other/lib/commit/c1",
			 "commit":{"message":"Fix paginator\n\nLonger body","author":{"name":"Dev One","email":"dev@example.com","date":"2024-06-02T10:00:00Z"},
			 "verification":{"verified":true}},
			 "author":{"login":"dev","avatar_url":"https://avatars/dev"},"parents":[{"sha":"p0"}]},
			{"sha":"c2","commit":{"message":"Second","committer":{"date":"2024-06-03T10:00:00Z"}},"parents":[]},
			{"sha":"c3","commit":{"message":"Beyond limit"},"parents":[]}
		]`)
	})
	c, _ := newTestClient(t, mux)

	res, err := c.FetchUserCommits(context.Background(), CommitOptions{
		Author:        "dev",
		Limit:         2,
		Since:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Until:         time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
		Repository:    &Repository{Owner: "other", Repo: "lib"},
		ExcludeMerges: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "other/lib", res.Repository)
	require.Equal(t, 2, res.Count)

	first := res.Commits[0]
	assert.Equal(t, "c1", first.SHA)
	assert.Equal(t, "Fix paginator", first.ShortMessage)
	assert.Equal(t, "Dev One", first.AuthorName)
	assert.Equal(t, "dev", first.AuthorLogin)
	assert.True(t, first.Verified)
	assert.Equal(t, []string{"p0"}, first.Parents)
	assert.Equal(t, "2024-06-02T10:00:00Z", first.CommittedAt.Format(time.RFC3339))

	second := res.Commits[1]
	assert.Equal(t, "2024-06-03T10:00:00Z", second.CommittedAt.Format(time.RFC3339))
	assert.NotNil(t, second.Parents)
}

func TestFetchUserCommitsRequiresAuthor(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())
	_, err := c.FetchUserCommits(context.Background(), CommitOptions{Author: "  "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
