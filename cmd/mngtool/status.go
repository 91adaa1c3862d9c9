package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/marcin-skalski/mngtool/internal/dashboard"
	"github.com/marcin-skalski/mngtool/internal/render"
	"github.com/marcin-skalski/mngtool/internal/syncer"
	"github.com/marcin-skalski/mngtool/internal/tui"
)

func (a *app) runStatus(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "status")
	noTUI := fs.Bool("no-tui", false, "print status as JSON instead of the dashboard")
	out := registerOutput(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}

	enableTUI := !*noTUI && !out.output.set && os.Getenv("MNGTOOL_TUI") != "0" &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	if err := a.start(enableTUI); err != nil {
		return err
	}

	d := dashboard.New(a.core.Store, func(ctx context.Context) (*syncer.SyncResult, error) {
		lc, err := a.core.Linear()
		if err != nil {
			return nil, err
		}
		return a.core.Syncer.Sync(ctx, lc)
	}, a.logger.With("component", "dashboard"))

	if !enableTUI {
		return a.emit("status", d.GetSnapshot(), out, render.Options{CollectionKey: "collections"})
	}

	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	a.logger.Info("status dashboard starting", "storage", a.cfg.StorageDir)
	tuiErr := tui.Run(d, a.cfg.TUI.RefreshInterval)
	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	if tuiErr != nil {
		return fmt.Errorf("tui: %w", tuiErr)
	}
	return nil
}
