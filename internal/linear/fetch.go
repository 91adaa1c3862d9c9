package linear

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcin-skalski/mngtool/internal/paginate"
)

type ref struct {
	ID string `json:"id"`
}

type projectNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	State       string     `json:"state"`
	TargetDate  *string    `json:"targetDate"`
	URL         string     `json:"url"`
	Description *string    `json:"description"`
	StartDate   *string    `json:"startDate"`
	Health      *string    `json:"health"`
	Color       string     `json:"color"`
	Icon        *string    `json:"icon"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	CanceledAt  *time.Time `json:"canceledAt"`
	Status      *struct {
		Name string `json:"name"`
	} `json:"status"`
	Teams struct {
		Nodes []ref `json:"nodes"`
	} `json:"teams"`
}

type teamNode struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Key                 string    `json:"key"`
	Description         *string   `json:"description"`
	CycleDuration       float64   `json:"cycleDuration"`
	CyclesEnabled       bool      `json:"cyclesEnabled"`
	TriageEnabled       bool      `json:"triageEnabled"`
	Private             bool      `json:"private"`
	Color               *string   `json:"color"`
	Timezone            string    `json:"timezone"`
	IssueEstimationType string    `json:"issueEstimationType"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type issueNode struct {
	ID              string     `json:"id"`
	Identifier      string     `json:"identifier"`
	Number          float64    `json:"number"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Priority        float64    `json:"priority"`
	PriorityLabel   string     `json:"priorityLabel"`
	BranchName      string     `json:"branchName"`
	URL             string     `json:"url"`
	DueDate         *string    `json:"dueDate"`
	Estimate        *float64   `json:"estimate"`
	Trashed         *bool      `json:"trashed"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	CanceledAt      *time.Time `json:"canceledAt"`
	ArchivedAt      *time.Time `json:"archivedAt"`
	AutoArchivedAt  *time.Time `json:"autoArchivedAt"`
	AutoClosedAt    *time.Time `json:"autoClosedAt"`
	SnoozedUntilAt  *time.Time `json:"snoozedUntilAt"`
	StartedTriageAt *time.Time `json:"startedTriageAt"`
	TriagedAt       *time.Time `json:"triagedAt"`
	AddedToCycleAt  *time.Time `json:"addedToCycleAt"`
	SLAStartedAt    *time.Time `json:"slaStartedAt"`
	SLABreachesAt   *time.Time `json:"slaBreachesAt"`
	LabelIDs        []string   `json:"labelIds"`
	Team            *TeamRef   `json:"team"`
	Project         *ref       `json:"project"`
	Cycle           *ref       `json:"cycle"`
	Assignee        *ref       `json:"assignee"`
	State           *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"state"`
}

type labelNode struct {
	Label
	Team   *ref `json:"team"`
	Parent *ref `json:"parent"`
}

type cycleNode struct {
	Cycle
	Number float64 `json:"number"`
	Team   *ref    `json:"team"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func refID(r *ref) string {
	if r == nil {
		return ""
	}
	return r.ID
}

func toProject(n projectNode, full bool) Project {
	p := Project{
		Kind:       KindSummary,
		ID:         n.ID,
		Name:       n.Name,
		State:      n.State,
		TargetDate: str(n.TargetDate),
		URL:        n.URL,
		TeamIDs:    make([]string, 0, len(n.Teams.Nodes)),
	}
	for _, t := range n.Teams.Nodes {
		p.TeamIDs = append(p.TeamIDs, t.ID)
	}
	if !full {
		return p
	}
	p.Kind = KindFull
	p.ProjectDetail = &ProjectDetail{
		Description: str(n.Description),
		StartDate:   str(n.StartDate),
		Health:      str(n.Health),
		Color:       n.Color,
		Icon:        str(n.Icon),
		Progress:    n.Progress,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		CompletedAt: n.CompletedAt,
		CanceledAt:  n.CanceledAt,
	}
	if n.Status != nil {
		p.Status = n.Status.Name
	}
	return p
}

func toTeam(n teamNode, full bool) Team {
	t := Team{
		Kind:        KindSummary,
		ID:          n.ID,
		Name:        n.Name,
		Key:         n.Key,
		Description: str(n.Description),
	}
	if !full {
		return t
	}
	t.Kind = KindFull
	t.TeamDetail = &TeamDetail{
		CycleDuration:       n.CycleDuration,
		CyclesEnabled:       n.CyclesEnabled,
		TriageEnabled:       n.TriageEnabled,
		Private:             n.Private,
		Color:               str(n.Color),
		Timezone:            n.Timezone,
		IssueEstimationType: n.IssueEstimationType,
		CreatedAt:           n.CreatedAt,
		UpdatedAt:           n.UpdatedAt,
	}
	return t
}

// toIssue flattens nested references into ids. labelIds is never null.
func toIssue(n issueNode) Issue {
	is := Issue{
		ID:              n.ID,
		Identifier:      n.Identifier,
		Number:          int(n.Number),
		Title:           n.Title,
		Description:     str(n.Description),
		Priority:        int(n.Priority),
		PriorityLabel:   n.PriorityLabel,
		BranchName:      n.BranchName,
		URL:             n.URL,
		DueDate:         str(n.DueDate),
		Estimate:        n.Estimate,
		Trashed:         n.Trashed != nil && *n.Trashed,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
		StartedAt:       n.StartedAt,
		CompletedAt:     n.CompletedAt,
		CanceledAt:      n.CanceledAt,
		ArchivedAt:      n.ArchivedAt,
		AutoArchivedAt:  n.AutoArchivedAt,
		AutoClosedAt:    n.AutoClosedAt,
		SnoozedUntilAt:  n.SnoozedUntilAt,
		StartedTriageAt: n.StartedTriageAt,
		TriagedAt:       n.TriagedAt,
		AddedToCycleAt:  n.AddedToCycleAt,
		SLAStartedAt:    n.SLAStartedAt,
		SLABreachesAt:   n.SLABreachesAt,
		Team:            n.Team,
		ProjectID:       refID(n.Project),
		CycleID:         refID(n.Cycle),
		AssigneeID:      refID(n.Assignee),
		LabelIDs:        n.LabelIDs,
	}
	if n.Team != nil {
		is.TeamID = n.Team.ID
	}
	if n.State != nil {
		is.StateID = n.State.ID
		is.StateName = n.State.Name
	}
	if is.LabelIDs == nil {
		is.LabelIDs = []string{}
	}
	return is
}

// fetchConnection validates workspace access, then drains one connection.
func fetchConnection[N any](ctx context.Context, c *Client, op, field, query string) ([]N, error) {
	if _, err := c.EnsureWorkspace(ctx); err != nil {
		return nil, err
	}
	return paginate.All(ctx, func(ctx context.Context, cursor string) (paginate.Page[N], error) {
		vars := map[string]any{"first": c.pageSize}
		if cursor != "" {
			vars["after"] = cursor
		}
		var data map[string]paginate.Page[N]
		if err := c.query(ctx, op, query, vars, &data); err != nil {
			return paginate.Page[N]{}, err
		}
		return data[field], nil
	})
}

func mapAll[N, T any](nodes []N, fn func(N) T) []T {
	out := make([]T, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, fn(n))
	}
	return out
}

func (c *Client) FetchProjects(ctx context.Context, full bool) ([]Project, error) {
	q := projectsSummaryQuery
	if full {
		q = projectsFullQuery
	}
	nodes, err := fetchConnection[projectNode](ctx, c, "projects", "projects", q)
	if err != nil {
		return nil, err
	}
	return mapAll(nodes, func(n projectNode) Project { return toProject(n, full) }), nil
}

func (c *Client) FetchTeams(ctx context.Context, full bool) ([]Team, error) {
	q := teamsSummaryQuery
	if full {
		q = teamsFullQuery
	}
	nodes, err := fetchConnection[teamNode](ctx, c, "teams", "teams", q)
	if err != nil {
		return nil, err
	}
	return mapAll(nodes, func(n teamNode) Team { return toTeam(n, full) }), nil
}

func (c *Client) FetchIssues(ctx context.Context) ([]Issue, error) {
	nodes, err := fetchConnection[issueNode](ctx, c, "issues", "issues", issuesQuery)
	if err != nil {
		return nil, err
	}
	return mapAll(nodes, toIssue), nil
}

func (c *Client) FetchUsers(ctx context.Context) ([]User, error) {
	return fetchConnection[User](ctx, c, "users", "users", usersQuery)
}

func (c *Client) FetchLabels(ctx context.Context) ([]Label, error) {
	nodes, err := fetchConnection[labelNode](ctx, c, "labels", "issueLabels", labelsQuery)
	if err != nil {
		return nil, err
	}
	return mapAll(nodes, func(n labelNode) Label {
		l := n.Label
		l.TeamID = refID(n.Team)
		l.ParentID = refID(n.Parent)
		return l
	}), nil
}

func (c *Client) FetchCycles(ctx context.Context) ([]Cycle, error) {
	nodes, err := fetchConnection[cycleNode](ctx, c, "cycles", "cycles", cyclesQuery)
	if err != nil {
		return nil, err
	}
	return mapAll(nodes, func(n cycleNode) Cycle {
		cy := n.Cycle
		cy.Number = int(n.Number)
		cy.TeamID = refID(n.Team)
		return cy
	}), nil
}

// FetchMasterData pulls every collection concurrently with full shapes. Any
// failure cancels the rest and nothing is returned.
func (c *Client) FetchMasterData(ctx context.Context) (*MasterData, error) {
	if _, err := c.EnsureWorkspace(ctx); err != nil {
		return nil, err
	}

	var md MasterData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { md.Teams, err = c.FetchTeams(gctx, true); return })
	g.Go(func() (err error) { md.Projects, err = c.FetchProjects(gctx, true); return })
	g.Go(func() (err error) { md.Issues, err = c.FetchIssues(gctx); return })
	g.Go(func() (err error) { md.Users, err = c.FetchUsers(gctx); return })
	g.Go(func() (err error) { md.Labels, err = c.FetchLabels(gctx); return })
	g.Go(func() (err error) { md.Cycles, err = c.FetchCycles(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	md.FetchedAt = time.Now().UTC()
	c.logger.Info("fetched linear master data",
		"teams", len(md.Teams), "projects", len(md.Projects), "issues", len(md.Issues),
		"users", len(md.Users), "labels", len(md.Labels), "cycles", len(md.Cycles))
	return &md, nil
}
