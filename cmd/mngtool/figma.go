package main

import (
	"context"
	"fmt"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/figma"
	"github.com/marcin-skalski/mngtool/internal/render"
)

type captureOutput struct {
	Count    int                   `json:"count"`
	Captures []figma.CaptureResult `json:"captures"`
}

func (a *app) runFigma(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	if cmd != "capture" {
		return a.unknown("figma", cmd, []string{"capture"})
	}

	fs := newFlagSet(a, "figma capture")
	idsFile := fs.String("ids-file", "", "file with node URLs or ids (.txt or .json)")
	fileKey := fs.String("file", "", "file key for bare node ids")
	format := fs.String("format", "", "png|jpg")
	scale := fs.Int("scale", 0, "export scale 1-4")
	output := fs.String("output", "", "output path, single node only")
	outputDir := fs.String("output-dir", "", "output directory")
	if _, err := parseFlags(fs, rest); err != nil {
		return err
	}
	if *idsFile == "" {
		return apperrors.Validation("--ids-file is required")
	}
	if err := a.start(false); err != nil {
		return err
	}

	opts := figma.CaptureOptions{
		Format:     *format,
		Scale:      *scale,
		OutputDir:  *outputDir,
		OutputPath: *output,
	}
	if opts.Format == "" {
		opts.Format = a.cfg.Figma.Format
	}
	if opts.Scale == 0 {
		opts.Scale = a.cfg.Figma.Scale
	}
	if opts.OutputDir == "" {
		opts.OutputDir = a.cfg.Figma.OutputDir
	}
	if *fileKey == "" {
		*fileKey = a.cfg.Figma.FileKey
	}

	entries, err := figma.ParseNodeEntriesFile(*idsFile, *fileKey)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return apperrors.Validation("no node ids found in %s", *idsFile)
	}

	fc, err := a.core.Figma()
	if err != nil {
		return err
	}
	results, err := fc.Capture(ctx, entries, opts)
	if err != nil {
		return err
	}
	return render.Print(a.stdout, captureOutput{Count: len(results), Captures: results}, render.FormatJSON, render.Options{})
}
