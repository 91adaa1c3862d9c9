package github

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

type ReviewerType string

const (
	ReviewerUser ReviewerType = "USER"
	ReviewerTeam ReviewerType = "TEAM"
)

const StateReviewRequested = "REVIEW_REQUESTED"

// Overall review statuses, in decreasing precedence.
const (
	StatusChangesRequested = "changes_requested"
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusNoReviews        = "no_reviews"
)

type ReviewerSummary struct {
	Type        ReviewerType `json:"type"`
	Login       string       `json:"login"`
	Name        string       `json:"name,omitempty"`
	State       string       `json:"state"`
	SubmittedAt *time.Time   `json:"submittedAt,omitempty"`
	AvatarURL   string       `json:"avatarUrl,omitempty"`
}

type ReviewSummary struct {
	Approved         int    `json:"approved"`
	ChangesRequested int    `json:"changesRequested"`
	Commented        int    `json:"commented"`
	Dismissed        int    `json:"dismissed"`
	Pending          int    `json:"pending"`
	Total            int    `json:"total"`
	OverallStatus    string `json:"overallStatus"`
}

type RequestedUser struct {
	Login     string
	Name      string
	AvatarURL string
}

type RequestedTeam struct {
	Slug string
	Name string
}

type SubmittedReview struct {
	Login       string
	Name        string
	AvatarURL   string
	State       string
	SubmittedAt *time.Time
}

type reviewerKey struct {
	typ   ReviewerType
	login string
}

// AggregateReviewers merges requested reviewers and submitted reviews into
// one entry per (type, login), sorted by login.
//
// A timestamped signal replaces an entry unless the entry holds a newer
// timestamp. A signal without a timestamp only replaces an entry that has
// none, so a re-request never erases a recorded decision.
func AggregateReviewers(users []RequestedUser, teams []RequestedTeam, reviews []SubmittedReview) []ReviewerSummary {
	entries := make(map[reviewerKey]*ReviewerSummary)
	var order []reviewerKey

	upsert := func(r ReviewerSummary) {
		key := reviewerKey{r.Type, r.Login}
		existing, ok := entries[key]
		if !ok {
			entries[key] = &r
			order = append(order, key)
			return
		}
		if r.SubmittedAt == nil {
			if existing.SubmittedAt == nil {
				*existing = r
			}
			return
		}
		if existing.SubmittedAt == nil || !r.SubmittedAt.Before(*existing.SubmittedAt) {
			*existing = r
		}
	}

	for _, u := range users {
		upsert(ReviewerSummary{Type: ReviewerUser, Login: u.Login, Name: u.Name, State: StateReviewRequested, AvatarURL: u.AvatarURL})
	}
	for _, t := range teams {
		login := t.Slug
		if login == "" {
			login = t.Name
		}
		upsert(ReviewerSummary{Type: ReviewerTeam, Login: login, Name: t.Name, State: StateReviewRequested})
	}
	for _, rv := range reviews {
		if rv.Login == "" {
			continue
		}
		state := rv.State
		if state == "" {
			state = "COMMENTED"
		}
		upsert(ReviewerSummary{
			Type:        ReviewerUser,
			Login:       rv.Login,
			Name:        rv.Name,
			State:       state,
			SubmittedAt: rv.SubmittedAt,
			AvatarURL:   rv.AvatarURL,
		})
	}

	out := make([]ReviewerSummary, 0, len(order))
	for _, key := range order {
		out = append(out, *entries[key])
	}
	slices.SortStableFunc(out, func(a, b ReviewerSummary) int {
		return strings.Compare(a.Login, b.Login)
	})
	return out
}

// BuildReviewSummary tallies reviewer states. Unknown states count as pending.
func BuildReviewSummary(reviewers []ReviewerSummary) ReviewSummary {
	var s ReviewSummary
	for _, r := range reviewers {
		switch strings.ToUpper(r.State) {
		case "APPROVED":
			s.Approved++
		case "CHANGES_REQUESTED":
			s.ChangesRequested++
		case "COMMENTED":
			s.Commented++
		case "DISMISSED":
			s.Dismissed++
		default:
			s.Pending++
		}
	}
	s.Total = s.Approved + s.ChangesRequested + s.Commented + s.Dismissed + s.Pending

	switch {
	case s.ChangesRequested > 0:
		s.OverallStatus = StatusChangesRequested
	case s.Pending > 0:
		s.OverallStatus = StatusPending
	case s.Approved > 0:
		s.OverallStatus = StatusApproved
	default:
		s.OverallStatus = StatusNoReviews
	}
	return s
}

var wipPattern = regexp.MustCompile(`(?i)\bwip\b`)

// ReviewStatusEntry is the compact per-PR view used by review-status.
type ReviewStatusEntry struct {
	Number           int               `json:"number"`
	Title            string            `json:"title"`
	TitleIncludesWIP bool              `json:"titleIncludesWip"`
	Draft            bool              `json:"draft"`
	Author           string            `json:"author,omitempty"`
	Reviewers        map[string]string `json:"reviewers"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Labels           []string          `json:"labels"`
}

func BuildReviewStatusEntries(prs []PullRequestSummary) []ReviewStatusEntry {
	out := make([]ReviewStatusEntry, 0, len(prs))
	for _, pr := range prs {
		reviewers := make(map[string]string, len(pr.Reviewers))
		for _, r := range pr.Reviewers {
			reviewers[r.Login] = r.State
		}
		out = append(out, ReviewStatusEntry{
			Number:           pr.Number,
			Title:            pr.Title,
			TitleIncludesWIP: wipPattern.MatchString(pr.Title),
			Draft:            pr.Draft,
			Author:           pr.Author,
			Reviewers:        reviewers,
			UpdatedAt:        pr.UpdatedAt,
			Labels:           pr.Labels,
		})
	}
	return out
}

// FilterReadyReviewEntries drops drafts and work-in-progress titles.
func FilterReadyReviewEntries(entries []ReviewStatusEntry) []ReviewStatusEntry {
	out := make([]ReviewStatusEntry, 0, len(entries))
	for _, e := range entries {
		if e.Draft || wipPattern.MatchString(e.Title) {
			continue
		}
		out = append(out, e)
	}
	return out
}
