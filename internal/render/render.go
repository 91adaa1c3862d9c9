// Package render turns command payloads into JSON or CSV text.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// NormalizeFormat maps "csv" (any case) to CSV and everything else to JSON.
func NormalizeFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "csv") {
		return FormatCSV
	}
	return FormatJSON
}

func (f Format) Ext() string { return string(f) }

type Options struct {
	// CollectionKey names the payload member holding the records.
	CollectionKey string
	// WhitelistKey selects the field whitelist; defaults to CollectionKey.
	WhitelistKey string
	// SkipFilter keeps every field.
	SkipFilter bool
}

func (o Options) whitelist() ([]string, bool) {
	key := o.WhitelistKey
	if key == "" {
		key = o.CollectionKey
	}
	fields, ok := Whitelists[key]
	return fields, ok
}

// Render serializes payload after optional field filtering.
func Render(payload any, format Format, opts Options) (string, error) {
	tree, err := toTree(payload)
	if err != nil {
		return "", err
	}
	if fields, ok := opts.whitelist(); ok && !opts.SkipFilter {
		tree = applyFilter(tree, opts.CollectionKey, fields)
	}
	if format == FormatCSV {
		return toCSV(records(tree, opts.CollectionKey))
	}
	return toJSON(tree)
}

func applyFilter(tree any, key string, fields []string) any {
	if key == "" {
		return filterValue(tree, fields)
	}
	root, ok := tree.(*Object)
	if !ok {
		return tree
	}
	if sub, ok := root.Get(key); ok {
		root.Set(key, filterValue(sub, fields))
	}
	return root
}

func toJSON(tree any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// records picks the CSV rows: the keyed member, or the payload itself.
// Arrays yield their object elements; a single object yields one row.
func records(tree any, key string) []*Object {
	v := tree
	if key != "" {
		root, ok := tree.(*Object)
		if !ok {
			return nil
		}
		if v, ok = root.Get(key); !ok {
			return nil
		}
	}
	switch t := v.(type) {
	case *Object:
		return []*Object{t}
	case []any:
		rows := make([]*Object, 0, len(t))
		for _, item := range t {
			if obj, ok := item.(*Object); ok {
				rows = append(rows, obj)
			}
		}
		return rows
	}
	return nil
}

func toCSV(rows []*Object) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	var headers []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinCSV(headers))
	for _, row := range rows {
		fields := make([]string, len(headers))
		for i, h := range headers {
			v, _ := row.Get(h)
			s, err := csvString(v)
			if err != nil {
				return "", err
			}
			fields[i] = s
		}
		lines = append(lines, joinCSV(fields))
	}
	return strings.Join(lines, "\n"), nil
}

func csvString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		b, err := marshalCompact(t)
		if err != nil {
			return "", fmt.Errorf("encode csv value: %w", err)
		}
		return string(b), nil
	}
}

func joinCSV(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = escapeCSV(f)
	}
	return strings.Join(out, ",")
}

func escapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Print writes the rendered payload and a trailing newline to w.
func Print(w io.Writer, payload any, format Format, opts Options) error {
	out, err := Render(payload, format, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}

// Write renders payload into path, creating parent directories.
func Write(path string, payload any, format Format, opts Options) error {
	out, err := Render(payload, format, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// DefaultExportPath names an export file for command under dir.
func DefaultExportPath(dir, command string, format Format, now time.Time) string {
	name := strings.ReplaceAll(strings.TrimSpace(command), " ", "-")
	return filepath.Join(dir, fmt.Sprintf("%s-%s.%s", name, now.UTC().Format("20060102T150405Z"), format.Ext()))
}
