package main

import (
	"flag"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/render"
)

// outputTarget is --output: bare it selects the default export path,
// --output=path writes to path.
type outputTarget struct {
	set  bool
	path string
}

func (o *outputTarget) String() string { return o.path }

func (o *outputTarget) Set(v string) error {
	switch v {
	case "true":
		o.set, o.path = true, ""
	case "false":
		o.set, o.path = false, ""
	default:
		o.set, o.path = true, v
	}
	return nil
}

func (o *outputTarget) IsBoolFlag() bool { return true }

type outputFlags struct {
	format    string
	allFields bool
	output    outputTarget
}

func registerOutput(fs *flag.FlagSet) *outputFlags {
	o := &outputFlags{}
	fs.StringVar(&o.format, "format", "json", "output format: json|csv")
	fs.BoolVar(&o.allFields, "all-fields", false, "keep every field")
	fs.Var(&o.output, "output", "write to a file; bare flag uses the exports dir")
	return o
}

func (o *outputFlags) validate() error {
	switch o.format {
	case "", "json", "csv", "JSON", "CSV":
		return nil
	}
	return apperrors.Validation("invalid --format %q (json|csv)", o.format)
}

// emit renders payload to stdout or to the --output file.
func (a *app) emit(command string, payload any, out *outputFlags, opts render.Options) error {
	format := render.NormalizeFormat(out.format)
	opts.SkipFilter = out.allFields

	if !out.output.set {
		return render.Print(a.stdout, payload, format, opts)
	}

	path := out.output.path
	if path == "" {
		path = render.DefaultExportPath(a.cfg.ExportsDir, command, format, a.now())
	}
	if err := render.Write(path, payload, format, opts); err != nil {
		return err
	}
	a.logger.Info("wrote output", "command", command, "format", format, "path", path)
	return nil
}
