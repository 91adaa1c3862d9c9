package main

import (
	"context"
	"fmt"

	"github.com/marcin-skalski/mngtool/internal/linear"
	"github.com/marcin-skalski/mngtool/internal/render"
	"github.com/marcin-skalski/mngtool/internal/store"
	"github.com/marcin-skalski/mngtool/internal/syncer"
)

var linearCommands = []string{
	store.Projects, store.Teams, store.Issues, store.Users, store.Labels, store.Cycles,
	"issue", "search-issues", "sync",
}

func (a *app) runLinear(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case store.Projects, store.Teams, store.Issues, store.Users, store.Labels, store.Cycles:
		return a.linearDataset(ctx, cmd, rest)
	case "issue":
		return a.linearIssue(rest)
	case "search-issues":
		return a.linearSearch(rest)
	case "sync":
		return a.linearSync(ctx, rest)
	}
	return a.unknown("linear", cmd, linearCommands)
}

// linearFetch adapts a client method to the orchestrator's fetch shape. The
// client is only built when a remote read actually happens.
func linearFetch[T any](a *app, fetch func(*linear.Client, context.Context) ([]T, error)) func(context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		lc, err := a.core.Linear()
		if err != nil {
			return nil, err
		}
		return fetch(lc, ctx)
	}
}

func (a *app) linearDataset(ctx context.Context, name string, args []string) error {
	fs := newFlagSet(a, "linear "+name)
	remote := fs.Bool("remote", false, "fetch live data and refresh the local snapshot")
	full := new(bool)
	if name == store.Projects || name == store.Teams {
		fs.BoolVar(full, "full", false, "include extended fields")
	}
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}

	o := a.core.Syncer
	var (
		payload any
		err     error
	)
	switch name {
	case store.Projects:
		payload, err = syncer.GetDataset(ctx, o, name, *remote, linearFetch(a, func(c *linear.Client, ctx context.Context) ([]linear.Project, error) {
			return c.FetchProjects(ctx, *full)
		}))
	case store.Teams:
		payload, err = syncer.GetDataset(ctx, o, name, *remote, linearFetch(a, func(c *linear.Client, ctx context.Context) ([]linear.Team, error) {
			return c.FetchTeams(ctx, *full)
		}))
	case store.Issues:
		payload, err = syncer.GetDataset(ctx, o, name, *remote, linearFetch(a, (*linear.Client).FetchIssues))
	case store.Users:
		payload, err = syncer.GetDataset(ctx, o, name, *remote, linearFetch(a, (*linear.Client).FetchUsers))
	case store.Labels:
		payload, err = syncer.GetDataset(ctx, o, name, *remote, linearFetch(a, (*linear.Client).FetchLabels))
	case store.Cycles:
		payload, err = syncer.GetDataset(ctx, o, name, *remote, linearFetch(a, (*linear.Client).FetchCycles))
	}
	if err != nil {
		return err
	}
	return a.emit("linear "+name, payload, out, render.Options{CollectionKey: "items", WhitelistKey: name})
}

func (a *app) linearIssue(args []string) error {
	fs := newFlagSet(a, "linear issue")
	out := registerOutput(fs)
	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		fmt.Fprintln(a.stderr, "linear issue takes exactly one issue key, e.g. CORE-123")
		return errUsage
	}
	if _, _, err := store.ParseIssueKey(pos[0]); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}

	res, err := a.core.Store.FindIssueByKey(pos[0])
	if err != nil {
		return err
	}
	return a.emit("linear issue", res, out, render.Options{CollectionKey: "issue", WhitelistKey: store.Issues})
}

func (a *app) linearSearch(args []string) error {
	fs := newFlagSet(a, "linear search-issues")
	var f store.IssueFilters
	fs.StringVar(&f.ProjectID, "project", "", "project id")
	fs.StringVar(&f.LabelID, "label", "", "label id")
	fs.StringVar(&f.CycleID, "cycle", "", "cycle id")
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}

	res, err := a.core.Store.SearchIssues(f)
	if err != nil {
		return err
	}
	return a.emit("linear search-issues", res, out, render.Options{CollectionKey: "issues"})
}

func (a *app) linearSync(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "linear sync")
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	if err := a.start(false); err != nil {
		return err
	}

	lc, err := a.core.Linear()
	if err != nil {
		return err
	}
	res, err := a.core.Syncer.Sync(ctx, lc)
	if err != nil {
		return err
	}
	return a.emit("linear sync", res, out, render.Options{CollectionKey: "files"})
}
