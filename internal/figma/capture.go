package figma

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

type CaptureOptions struct {
	Format    string
	Scale     int
	OutputDir string
	// OutputPath overrides the generated path; only valid for a single node.
	OutputPath string
	Now        func() time.Time
}

type CaptureResult struct {
	NodeID    string `json:"nodeId"`
	FileKey   string `json:"fileKey"`
	Format    string `json:"format"`
	Scale     int    `json:"scale"`
	SavedPath string `json:"savedPath"`
	Timestamp string `json:"timestamp"`
	ImageURL  string `json:"imageUrl"`
	Bytes     int    `json:"bytes"`
}

func captureTimestamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("2006-01-02T15-04-05.000Z"), ".", "-")
}

func outputPath(dir, timestamp, fileKey, nodeID, format string) string {
	name := fmt.Sprintf("figma-design-%s-%s.%s", fileKey, strings.ReplaceAll(nodeID, ":", "-"), format)
	return filepath.Join(dir, timestamp, name)
}

// Capture renders and downloads every entry. Entries are deduplicated by
// file key and node id, image URLs are requested once per file, and
// downloads run one at a time into a per-run timestamped directory.
func (c *Client) Capture(ctx context.Context, entries []NodeEntry, opts CaptureOptions) ([]CaptureResult, error) {
	if len(entries) == 0 {
		return nil, apperrors.Validation("no node ids supplied")
	}
	format := opts.Format
	if format == "" {
		format = DefaultFormat
	}
	if format != "png" && format != "jpg" {
		return nil, apperrors.Validation("format must be png or jpg, got %q", format)
	}
	scale := opts.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	if scale < 1 || scale > 4 {
		return nil, apperrors.Validation("scale must be an integer between 1 and 4, got %d", scale)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	seen := make(map[NodeEntry]bool, len(entries))
	var unique []NodeEntry
	for _, e := range entries {
		id, err := NormalizeNodeID(e.NodeID)
		if err != nil {
			return nil, err
		}
		e.NodeID = id
		if seen[e] {
			continue
		}
		seen[e] = true
		unique = append(unique, e)
	}
	if opts.OutputPath != "" && len(unique) > 1 {
		return nil, apperrors.Validation("--output can only be used when capturing a single node")
	}

	var fileOrder []string
	byFile := make(map[string][]string)
	for _, e := range unique {
		if _, ok := byFile[e.FileKey]; !ok {
			fileOrder = append(fileOrder, e.FileKey)
		}
		byFile[e.FileKey] = append(byFile[e.FileKey], e.NodeID)
	}

	c.logger.Info("fetching figma image urls", "nodes", len(unique), "files", len(fileOrder), "format", format, "scale", scale)
	urls := make(map[NodeEntry]string, len(unique))
	for _, key := range fileOrder {
		images, err := c.FetchImages(ctx, key, byFile[key], format, scale)
		if err != nil {
			return nil, err
		}
		for _, id := range byFile[key] {
			u := images[id]
			if u == "" {
				return nil, apperrors.Upstream("figma images", fmt.Errorf("no image url returned for node %s", id))
			}
			urls[NodeEntry{FileKey: key, NodeID: id}] = u
		}
	}

	timestamp := captureTimestamp(now())
	results := make([]CaptureResult, 0, len(unique))
	for _, e := range unique {
		imageURL := urls[e]
		data, err := c.download(ctx, imageURL)
		if err != nil {
			return nil, err
		}

		target := opts.OutputPath
		if target == "" {
			target = outputPath(opts.OutputDir, timestamp, e.FileKey, e.NodeID, format)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", target, err)
		}
		c.logger.Info("saved figma node", "node", e.NodeID, "file", e.FileKey,
			"size", humanize.Bytes(uint64(len(data))), "path", target)

		results = append(results, CaptureResult{
			NodeID:    e.NodeID,
			FileKey:   e.FileKey,
			Format:    format,
			Scale:     scale,
			SavedPath: target,
			Timestamp: timestamp,
			ImageURL:  imageURL,
			Bytes:     len(data),
		})
	}
	return results, nil
}
