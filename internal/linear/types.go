package linear

import "time"

// Kind tags whether a record carries the summary or the full field set.
type Kind string

const (
	KindSummary Kind = "summary"
	KindFull    Kind = "full"
)

// Project is a tagged variant: Detail is set only when Kind is KindFull.
type Project struct {
	Kind       Kind     `json:"kind"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	State      string   `json:"state"`
	TargetDate string   `json:"targetDate,omitempty"`
	URL        string   `json:"url"`
	TeamIDs    []string `json:"teamIds"`

	*ProjectDetail
}

type ProjectDetail struct {
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty"`
	StartDate   string     `json:"startDate,omitempty"`
	Health      string     `json:"health,omitempty"`
	Color       string     `json:"color"`
	Icon        string     `json:"icon,omitempty"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CanceledAt  *time.Time `json:"canceledAt,omitempty"`
}

// Team is a tagged variant: Detail is set only when Kind is KindFull.
type Team struct {
	Kind        Kind   `json:"kind"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`

	*TeamDetail
}

type TeamDetail struct {
	CycleDuration       float64   `json:"cycleDuration"`
	CyclesEnabled       bool      `json:"cyclesEnabled"`
	TriageEnabled       bool      `json:"triageEnabled"`
	Private             bool      `json:"private"`
	Color               string    `json:"color,omitempty"`
	Timezone            string    `json:"timezone"`
	IssueEstimationType string    `json:"issueEstimationType"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// TeamRef is the inline team reference kept on each issue.
type TeamRef struct {
	ID  string `json:"id"`
	Key string `json:"key,omitempty"`
}

type Issue struct {
	ID              string     `json:"id"`
	Identifier      string     `json:"identifier"`
	Number          int        `json:"number"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Priority        int        `json:"priority"`
	PriorityLabel   string     `json:"priorityLabel"`
	BranchName      string     `json:"branchName"`
	URL             string     `json:"url"`
	DueDate         string     `json:"dueDate,omitempty"`
	Estimate        *float64   `json:"estimate,omitempty"`
	Trashed         bool       `json:"trashed,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CanceledAt      *time.Time `json:"canceledAt,omitempty"`
	ArchivedAt      *time.Time `json:"archivedAt,omitempty"`
	AutoArchivedAt  *time.Time `json:"autoArchivedAt,omitempty"`
	AutoClosedAt    *time.Time `json:"autoClosedAt,omitempty"`
	SnoozedUntilAt  *time.Time `json:"snoozedUntilAt,omitempty"`
	StartedTriageAt *time.Time `json:"startedTriageAt,omitempty"`
	TriagedAt       *time.Time `json:"triagedAt,omitempty"`
	AddedToCycleAt  *time.Time `json:"addedToCycleAt,omitempty"`
	SLAStartedAt    *time.Time `json:"slaStartedAt,omitempty"`
	SLABreachesAt   *time.Time `json:"slaBreachesAt,omitempty"`

	Team       *TeamRef `json:"team,omitempty"`
	TeamID     string   `json:"teamId,omitempty"`
	ProjectID  string   `json:"projectId,omitempty"`
	CycleID    string   `json:"cycleId,omitempty"`
	StateID    string   `json:"stateId,omitempty"`
	StateName  string   `json:"stateName,omitempty"`
	AssigneeID string   `json:"assigneeId,omitempty"`
	LabelIDs   []string `json:"labelIds"`
}

type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email"`
	Active      bool       `json:"active"`
	Admin       bool       `json:"admin"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	StatusEmoji string     `json:"statusEmoji,omitempty"`
	StatusLabel string     `json:"statusLabel,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`
}

type Label struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Color       string     `json:"color"`
	TeamID      string     `json:"teamId,omitempty"`
	ParentID    string     `json:"parentId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`
}

type Cycle struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Number      int        `json:"number"`
	Description string     `json:"description,omitempty"`
	TeamID      string     `json:"teamId,omitempty"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      time.Time  `json:"endsAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// MasterData is one consistent fetch of every workspace collection.
type MasterData struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Teams     []Team    `json:"teams"`
	Projects  []Project `json:"projects"`
	Issues    []Issue   `json:"issues"`
	Users     []User    `json:"users"`
	Labels    []Label   `json:"labels"`
	Cycles    []Cycle   `json:"cycles"`
}

// TeamKey resolves the issue's team short-code from the inline reference.
func (i Issue) TeamKey() string {
	if i.Team != nil {
		return i.Team.Key
	}
	return ""
}

// ResolvedTeamID prefers the normalized id and falls back to the inline reference.
func (i Issue) ResolvedTeamID() string {
	if i.TeamID != "" {
		return i.TeamID
	}
	if i.Team != nil {
		return i.Team.ID
	}
	return ""
}
