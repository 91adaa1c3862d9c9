package render

// Whitelists are keyed by collection and list the fields kept in filtered
// output, in output order.
var Whitelists = map[string][]string{
	"issues": {
		"identifier", "title", "description", "priority", "priorityLabel", "branchName", "url",
		"dueDate", "estimate", "slaBreachesAt", "slaHighRiskAt", "slaMediumRiskAt", "slaStartedAt",
		"snoozedUntilAt", "trashed", "createdAt", "updatedAt", "completedAt", "archivedAt",
		"autoArchivedAt", "autoClosedAt", "canceledAt", "startedAt", "startedTriageAt", "triagedAt",
		"addedToCycleAt",
	},
	"projects": {
		"id", "name", "state", "status", "description", "targetDate", "startDate", "endDate",
		"createdAt", "updatedAt", "health", "color", "progress", "url", "issueCount",
	},
	"teams": {
		"name", "key", "description", "cycleDuration", "triageEnabled", "color", "timezone",
		"issueEstimationType", "createdAt", "updatedAt",
	},
	"users": {
		"name", "displayName", "email", "active", "admin", "avatarUrl", "statusEmoji", "statusLabel",
		"disabledAt", "createdAt", "updatedAt",
	},
	"labels": {
		"name", "description", "color", "archivedAt", "createdAt", "updatedAt",
	},
	"cycles": {
		"name", "number", "status", "description", "startsAt", "endsAt", "completedAt", "progress",
		"createdAt", "updatedAt",
	},
	"pullRequests": {
		"number", "title", "state", "draft", "author", "createdAt", "updatedAt", "mergedAt",
		"headRef", "baseRef", "url", "labels", "reviewSummary", "reviewers",
	},
	"reviewStatus": {
		"number", "title", "titleIncludesWip", "draft", "author", "updatedAt", "labels", "reviewers",
	},
	"commits": {
		"owner", "repo", "sha", "message", "authorLogin", "committedAt", "parents",
	},
}

// project keeps only whitelisted fields that are present, in whitelist order.
func project(obj *Object, fields []string) *Object {
	out := NewObject()
	for _, f := range fields {
		if v, ok := obj.Get(f); ok {
			out.Set(f, v)
		}
	}
	return out
}

// filterValue projects a record or every record of an array. Other values
// pass through unchanged.
func filterValue(v any, fields []string) any {
	switch t := v.(type) {
	case *Object:
		return project(t, fields)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			if obj, ok := item.(*Object); ok {
				out[i] = project(obj, fields)
			} else {
				out[i] = item
			}
		}
		return out
	}
	return v
}
