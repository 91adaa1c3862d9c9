package linear

const viewerQuery = `query Viewer { viewer { organization { id } } }`

const pageInfoFields = `pageInfo { hasNextPage endCursor }`

const projectsSummaryQuery = `query Projects($first: Int!, $after: String) {
  projects(first: $first, after: $after, includeArchived: false) {
    nodes {
      id name state targetDate url
      teams(first: 50) { nodes { id } }
    }
    ` + pageInfoFields + `
  }
}`

const projectsFullQuery = `query Projects($first: Int!, $after: String) {
  projects(first: $first, after: $after, includeArchived: false) {
    nodes {
      id name state targetDate url
      description startDate health color icon progress
      createdAt updatedAt completedAt canceledAt
      status { name }
      teams(first: 50) { nodes { id } }
    }
    ` + pageInfoFields + `
  }
}`

const teamsSummaryQuery = `query Teams($first: Int!, $after: String) {
  teams(first: $first, after: $after, includeArchived: false) {
    nodes { id name key description }
    ` + pageInfoFields + `
  }
}`

const teamsFullQuery = `query Teams($first: Int!, $after: String) {
  teams(first: $first, after: $after, includeArchived: false) {
    nodes {
      id name key description
      cycleDuration cyclesEnabled triageEnabled private color timezone
      issueEstimationType createdAt updatedAt
    }
    ` + pageInfoFields + `
  }
}`

const issuesQuery = `query Issues($first: Int!, $after: String) {
  issues(first: $first, after: $after, includeArchived: false) {
    nodes {
      id identifier number title description priority priorityLabel branchName url
      dueDate estimate trashed createdAt updatedAt startedAt completedAt canceledAt
      archivedAt autoArchivedAt autoClosedAt snoozedUntilAt startedTriageAt triagedAt
      addedToCycleAt slaStartedAt slaBreachesAt
      labelIds
      team { id key }
      project { id }
      cycle { id }
      state { id name }
      assignee { id }
    }
    ` + pageInfoFields + `
  }
}`

const usersQuery = `query Users($first: Int!, $after: String) {
  users(first: $first, after: $after) {
    nodes {
      id name displayName email active admin avatarUrl statusEmoji statusLabel
      timezone createdAt updatedAt archivedAt
    }
    ` + pageInfoFields + `
  }
}`

const labelsQuery = `query Labels($first: Int!, $after: String) {
  issueLabels(first: $first, after: $after, includeArchived: false) {
    nodes {
      id name description color createdAt updatedAt archivedAt
      team { id }
      parent { id }
    }
    ` + pageInfoFields + `
  }
}`

const cyclesQuery = `query Cycles($first: Int!, $after: String) {
  cycles(first: $first, after: $after) {
    nodes {
      id name number description startsAt endsAt completedAt progress createdAt updatedAt
      team { id }
    }
    ` + pageInfoFields + `
  }
}`
