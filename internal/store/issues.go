package store

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/linear"
)

// IssueFilters are ANDed. An empty value places no constraint.
type IssueFilters struct {
	ProjectID string `json:"projectId,omitempty"`
	CycleID   string `json:"cycleId,omitempty"`
	LabelID   string `json:"labelId,omitempty"`
}

func (f IssueFilters) match(is linear.Issue) bool {
	if f.ProjectID != "" && is.ProjectID != f.ProjectID {
		return false
	}
	if f.CycleID != "" && is.CycleID != f.CycleID {
		return false
	}
	if f.LabelID != "" && !slices.Contains(is.LabelIDs, f.LabelID) {
		return false
	}
	return true
}

type IssueSearch struct {
	FetchedAt time.Time      `json:"fetchedAt"`
	Filters   IssueFilters   `json:"filters"`
	Count     int            `json:"count"`
	Issues    []linear.Issue `json:"issues"`
}

// SearchIssues filters the local issues snapshot.
func (s *Store) SearchIssues(filters IssueFilters) (IssueSearch, error) {
	snap, err := Read[linear.Issue](s, Issues)
	if err != nil {
		return IssueSearch{}, err
	}
	matched := make([]linear.Issue, 0)
	for _, is := range snap.Items {
		if filters.match(is) {
			matched = append(matched, is)
		}
	}
	return IssueSearch{
		FetchedAt: snap.FetchedAt,
		Filters:   filters,
		Count:     len(matched),
		Issues:    matched,
	}, nil
}

// IssueLookup is the result of a key lookup. A miss is Found=false, not an
// error.
type IssueLookup struct {
	FetchedAt time.Time     `json:"fetchedAt"`
	Key       string        `json:"key"`
	Found     bool          `json:"found"`
	Issue     *linear.Issue `json:"issue,omitempty"`
}

// ParseIssueKey splits "TEAM-123" on the first hyphen.
func ParseIssueKey(key string) (team string, number int, err error) {
	prefix, suffix, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok || prefix == "" {
		return "", 0, apperrors.Validation("invalid issue key %q: expected TEAM-NUMBER", key)
	}
	n, convErr := strconv.Atoi(suffix)
	if convErr != nil || n < 0 || strings.ContainsAny(suffix, "+-") {
		return "", 0, apperrors.Validation("invalid issue key %q: %q is not a number", key, suffix)
	}
	return prefix, n, nil
}

// FindIssueByKey scans the issues snapshot for the issue with the key's
// number whose team short-code matches. The teams snapshot is consulted only
// for issues with a team id but no inline team key, and at most once.
func (s *Store) FindIssueByKey(key string) (IssueLookup, error) {
	team, number, err := ParseIssueKey(key)
	if err != nil {
		return IssueLookup{}, err
	}
	snap, err := Read[linear.Issue](s, Issues)
	if err != nil {
		return IssueLookup{}, err
	}

	var teamKeys map[string]string
	resolve := func(is linear.Issue) (string, error) {
		if k := is.TeamKey(); k != "" {
			return k, nil
		}
		if is.ResolvedTeamID() == "" {
			return "", nil
		}
		if teamKeys == nil {
			teams, err := Read[linear.Team](s, Teams)
			if err != nil {
				return "", err
			}
			teamKeys = make(map[string]string, len(teams.Items))
			for _, t := range teams.Items {
				teamKeys[t.ID] = t.Key
			}
		}
		return teamKeys[is.ResolvedTeamID()], nil
	}

	res := IssueLookup{FetchedAt: snap.FetchedAt, Key: key}
	for _, is := range snap.Items {
		if is.Number != number {
			continue
		}
		code, err := resolve(is)
		if err != nil {
			return IssueLookup{}, err
		}
		if code == team {
			res.Found = true
			res.Issue = &is
			return res, nil
		}
	}
	return res, nil
}
