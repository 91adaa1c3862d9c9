package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/config"
	"github.com/marcin-skalski/mngtool/internal/core"
	"github.com/marcin-skalski/mngtool/internal/logging"
)

const usage = `usage: mngtool [--config path] [--verbose] <command> ...

commands:
  linear projects|teams [--full] [--remote]
  linear issues|users|labels|cycles [--remote]
  linear issue <KEY>
  linear search-issues [--project id] [--label id] [--cycle id]
  linear sync
  github prs [--state s] [--limit n] [--created-after ts] [--created-before ts]
             [--updated-after ts] [--updated-before ts]
  github review-status [--limit n] [--days n] [--ready-only]
  github commits --user login [--limit n] [--days n] [--owner o --repo r]
                 [--exclude-merges] [--timezone tz] [--window-boundary YYYYMMDD[HHMM]]
  figma capture --ids-file path [--file key] [--format png|jpg] [--scale 1..4]
                [--output path] [--output-dir dir]
  status [--no-tui]

output flags: --format json|csv, --all-fields, --output[=path]
`

var errUsage = errors.New("usage")

type app struct {
	configPath string
	verbose    bool

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	cfg    *config.Config
	logger *logging.Logger
	core   *core.Core
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	defer a.close()

	fs := flag.NewFlagSet("mngtool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&a.configPath, "config", config.DefaultPath, "path to config file")
	fs.BoolVar(&a.verbose, "verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	err := a.dispatch(ctx, fs.Args())
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}

	if a.logger != nil {
		a.logger.Debug("command failed", "code", apperrors.CodeOf(err), "err", err)
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	if apperrors.IsCode(err, apperrors.CodeValidation) {
		fmt.Fprintln(stderr, "run \"mngtool --help\" for usage")
	}
	return 1
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "linear":
		return a.runLinear(ctx, rest)
	case "github":
		return a.runGitHub(ctx, rest)
	case "figma":
		return a.runFigma(ctx, rest)
	case "status":
		return a.runStatus(ctx, rest)
	case "help":
		fmt.Fprint(a.stdout, usage)
		return nil
	}
	return a.unknown("", cmd, []string{"linear", "github", "figma", "status", "help"})
}

// start loads configuration and builds the logger and core. Commands call it
// after their own flags validated, so bad input never touches disk.
func (a *app) start(quiet bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return apperrors.Configuration(err.Error())
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.Setup(logging.Options{
		File:   cfg.LogFile,
		Level:  level,
		Quiet:  quiet,
		Stderr: a.stderr,
	})
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.core = core.New(cfg, logger.Logger)
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func (a *app) unknown(group, got string, candidates []string) error {
	prefix := "mngtool"
	if group != "" {
		prefix += " " + group
	}
	msg := fmt.Sprintf("unknown command %q for %s", got, prefix)
	if s := suggest(got, candidates); s != "" {
		msg += fmt.Sprintf(", did you mean %q?", s)
	}
	fmt.Fprintln(a.stderr, msg)
	fmt.Fprint(a.stderr, usage)
	return errUsage
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags lets flags follow positional arguments, which flag.Parse
// alone stops at.
func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, errUsage
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}
