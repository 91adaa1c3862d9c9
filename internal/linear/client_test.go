package linear

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/logging"
)

type gqlCall struct {
	Query     string
	Variables map[string]any
}

// fakeLinear answers GraphQL requests by matching the root field in the query.
type fakeLinear struct {
	mu      sync.Mutex
	calls   []gqlCall
	orgID   string
	answers map[string][]string
}

func (f *fakeLinear) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var call gqlCall
		require.NoError(t, json.Unmarshal(body, &call))

		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		if strings.Contains(call.Query, "viewer") {
			_, _ = io.WriteString(w, `{"data":{"viewer":{"organization":{"id":"`+f.orgID+`"}}}}`)
			return
		}
		for field, pages := range f.answers {
			if !strings.Contains(call.Query, field+"(first: $first") {
				continue
			}
			idx := 0
			if after, ok := call.Variables["after"].(string); ok {
				idx = int(after[len(after)-1] - '0')
			}
			_, _ = io.WriteString(w, `{"data":{"`+field+`":`+pages[idx]+`}}`)
			return
		}
		http.Error(w, "unknown query", http.StatusBadRequest)
	}
}

func (f *fakeLinear) callsFor(field string) []gqlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gqlCall
	for _, c := range f.calls {
		if strings.Contains(c.Query, field+"(first: $first") {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, f *fakeLinear, workspace string) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:      "test-key",
		WorkspaceID: workspace,
		Endpoint:    srv.URL,
		PageSize:    2,
	}, logging.Discard())
}

func TestFetchIssuesPaginatesAndNormalizes(t *testing.T) {
	f := &fakeLinear{orgID: "org-1", answers: map[string][]string{
		"issues": {
			`{"nodes":[
				{"id":"i1","identifier":"CORE-1","number":1,"title":"First","priority":2,
				 "createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-02T10:00:00Z",
				 "labelIds":["l1","l2"],"team":{"id":"t1","key":"CORE"},"project":{"id":"p1"},
				 "cycle":{"id":"c1"},"state":{"id":"s1","name":"In Progress"},"assignee":null}
			],"pageInfo":{"hasNextPage":true,"endCursor":"cur1"}}`,
			`{"nodes":[
				{"id":"i2","identifier":"OPS-7","number":7.0,"title":"Second",
				 "createdAt":"2024-05-03T10:00:00Z","updatedAt":"2024-05-03T10:00:00Z",
				 "labelIds":null,"team":{"id":"t2","key":"OPS"}}
			],"pageInfo":{"hasNextPage":false,"endCursor":null}}`,
		},
	}}
	c := newTestClient(t, f, "org-1")

	issues, err := c.FetchIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)

	first := issues[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "CORE", first.TeamKey())
	assert.Equal(t, "t1", first.TeamID)
	assert.Equal(t, "p1", first.ProjectID)
	assert.Equal(t, "c1", first.CycleID)
	assert.Equal(t, "s1", first.StateID)
	assert.Equal(t, "In Progress", first.StateName)
	assert.Empty(t, first.AssigneeID)
	assert.Equal(t, []string{"l1", "l2"}, first.LabelIDs)

	second := issues[1]
	assert.Equal(t, 7, second.Number)
	assert.NotNil(t, second.LabelIDs)
	assert.Empty(t, second.LabelIDs)

	calls := f.callsFor("issues")
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[0].Variables, "after")
	assert.Equal(t, "cur1", calls[1].Variables["after"])
	assert.EqualValues(t, 2, calls[0].Variables["first"])
}

func TestFetchProjectsSummaryAndFull(t *testing.T) {
	page := `{"nodes":[{"id":"p1","name":"Roadmap","state":"started","url":"https://linear.app/p1",
		"description":"big","progress":0.5,"status":{"name":"In Progress"},
		"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-02T00:00:00Z",
		"teams":{"nodes":[{"id":"t1"},{"id":"t2"}]}}],
		"pageInfo":{"hasNextPage":false}}`
	f := &fakeLinear{orgID: "org-1", answers: map[string][]string{"projects": {page}}}
	c := newTestClient(t, f, "")

	summary, err := c.FetchProjects(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, KindSummary, summary[0].Kind)
	assert.Nil(t, summary[0].ProjectDetail)
	assert.Equal(t, []string{"t1", "t2"}, summary[0].TeamIDs)

	full, err := c.FetchProjects(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Equal(t, KindFull, full[0].Kind)
	require.NotNil(t, full[0].ProjectDetail)
	assert.Equal(t, "In Progress", full[0].Status)
	assert.InDelta(t, 0.5, full[0].Progress, 1e-9)

	raw, err := json.Marshal(summary[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "progress")
	assert.Contains(t, string(raw), `"kind":"summary"`)
}

func TestEnsureWorkspaceMismatch(t *testing.T) {
	f := &fakeLinear{orgID: "org-other", answers: map[string][]string{}}
	c := newTestClient(t, f, "org-1")

	_, err := c.FetchUsers(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfiguration))
	assert.Contains(t, err.Error(), "org-other")
}

func TestEnsureWorkspaceIsMemoized(t *testing.T) {
	f := &fakeLinear{orgID: "org-1", answers: map[string][]string{
		"users": {`{"nodes":[{"id":"u1","name":"Ada","displayName":"ada","email":"ada@example.com","active":true,
			"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}],"pageInfo":{"hasNextPage":false}}`},
	}}
	c := newTestClient(t, f, "org-1")

	for range 3 {
		users, err := c.FetchUsers(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 1)
	}
	viewer := 0
	for _, call := range f.calls {
		if strings.Contains(call.Query, "viewer") {
			viewer++
		}
	}
	assert.Equal(t, 1, viewer)
	assert.Equal(t, "org-1", c.WorkspaceID())
}

func TestGraphQLErrorsBecomeUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"rate limited"}]}`)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL}, logging.Discard())

	_, err := c.FetchTeams(context.Background(), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFetch))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFetchMasterDataFailsAsAWhole(t *testing.T) {
	empty := `{"nodes":[],"pageInfo":{"hasNextPage":false}}`
	f := &fakeLinear{orgID: "org-1", answers: map[string][]string{
		"teams":       {empty},
		"projects":    {empty},
		"issues":      {empty},
		"users":       {empty},
		"issueLabels": {empty},
		// cycles missing: the fake answers 400
	}}
	c := newTestClient(t, f, "org-1")

	md, err := c.FetchMasterData(context.Background())
	require.Error(t, err)
	assert.Nil(t, md)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFetch))
}

func TestFetchMasterData(t *testing.T) {
	f := &fakeLinear{orgID: "org-1", answers: map[string][]string{
		"teams":       {`{"nodes":[{"id":"t1","name":"Core","key":"CORE","cycleDuration":2}],"pageInfo":{"hasNextPage":false}}`},
		"projects":    {`{"nodes":[],"pageInfo":{"hasNextPage":false}}`},
		"issues":      {`{"nodes":[],"pageInfo":{"hasNextPage":false}}`},
		"users":       {`{"nodes":[],"pageInfo":{"hasNextPage":false}}`},
		"issueLabels": {`{"nodes":[{"id":"l1","name":"bug","color":"#f00","team":{"id":"t1"},"parent":null}],"pageInfo":{"hasNextPage":false}}`},
		"cycles":      {`{"nodes":[{"id":"c1","number":3,"team":{"id":"t1"},"progress":0.25}],"pageInfo":{"hasNextPage":false}}`},
	}}
	c := newTestClient(t, f, "org-1")

	md, err := c.FetchMasterData(context.Background())
	require.NoError(t, err)
	require.Len(t, md.Teams, 1)
	assert.Equal(t, KindFull, md.Teams[0].Kind)
	assert.InDelta(t, 2.0, md.Teams[0].CycleDuration, 1e-9)
	require.Len(t, md.Labels, 1)
	assert.Equal(t, "t1", md.Labels[0].TeamID)
	assert.Empty(t, md.Labels[0].ParentID)
	require.Len(t, md.Cycles, 1)
	assert.Equal(t, 3, md.Cycles[0].Number)
	assert.Equal(t, "t1", md.Cycles[0].TeamID)
	assert.False(t, md.FetchedAt.IsZero())
}
