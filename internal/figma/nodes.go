package figma

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

// NodeEntry addresses one node inside one design file.
type NodeEntry struct {
	FileKey string `json:"fileKey"`
	NodeID  string `json:"nodeId"`
}

var nodeIDPattern = regexp.MustCompile(`^(\d+)[:-](\d+)$`)

// NormalizeNodeID accepts "12:34", "12-34" or their URL-encoded forms and
// returns the colon form.
func NormalizeNodeID(raw string) (string, error) {
	decoded, err := url.QueryUnescape(strings.TrimSpace(raw))
	if err != nil {
		decoded = raw
	}
	m := nodeIDPattern.FindStringSubmatch(decoded)
	if m == nil {
		return "", apperrors.Validation("invalid node id %q: expected format 123:456", raw)
	}
	return m[1] + ":" + m[2], nil
}

// ParseNodeURL extracts the file key and node id from a design or file URL.
func ParseNodeURL(raw string) (NodeEntry, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return NodeEntry{}, apperrors.Validation("invalid figma url %q", raw)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var fileKey string
	for i := 0; i+1 < len(segments); i++ {
		switch segments[i] {
		case "file", "design", "proto", "board":
			fileKey = segments[i+1]
		}
		if fileKey != "" {
			break
		}
	}
	if fileKey == "" {
		return NodeEntry{}, apperrors.Validation("no file key found in figma url %q", raw)
	}
	param := u.Query().Get("node-id")
	if param == "" {
		return NodeEntry{}, apperrors.Validation("no node-id parameter found in url %q", raw)
	}
	nodeID, err := NormalizeNodeID(param)
	if err != nil {
		return NodeEntry{}, err
	}
	return NodeEntry{FileKey: fileKey, NodeID: nodeID}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ParseNodeEntries reads one URL or node id per line. Blank lines and lines
// starting with # are skipped. Bare node ids use fallbackFileKey.
func ParseNodeEntries(r io.Reader, fallbackFileKey string) ([]NodeEntry, error) {
	var entries []NodeEntry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if isURL(text) {
			e, err := ParseNodeURL(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			entries = append(entries, e)
			continue
		}
		if fallbackFileKey == "" {
			return nil, apperrors.Validation("line %d: a file key is required for bare node id %q", line, text)
		}
		id, err := NormalizeNodeID(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, NodeEntry{FileKey: fallbackFileKey, NodeID: id})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read node entries: %w", err)
	}
	return entries, nil
}

type nodeConfig struct {
	URL     string `json:"url"`
	FileKey string `json:"fileKey"`
	NodeID  string `json:"nodeId"`
}

// ParseNodeEntriesJSON reads an array of {url} or {nodeId, fileKey} objects.
func ParseNodeEntriesJSON(data []byte, fallbackFileKey string) ([]NodeEntry, error) {
	var configs []nodeConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, apperrors.Validation("node entries file must contain a JSON array: %v", err)
	}
	entries := make([]NodeEntry, 0, len(configs))
	for i, cfg := range configs {
		switch {
		case cfg.URL != "":
			e, err := ParseNodeURL(cfg.URL)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, e)
		case cfg.NodeID != "":
			key := cfg.FileKey
			if key == "" {
				key = fallbackFileKey
			}
			if key == "" {
				return nil, apperrors.Validation("entry %d: fileKey is required when nodeId is given without a url", i)
			}
			id, err := NormalizeNodeID(cfg.NodeID)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, NodeEntry{FileKey: key, NodeID: id})
		default:
			return nil, apperrors.Validation("entry %d: must provide either url or nodeId", i)
		}
	}
	return entries, nil
}

// ParseNodeEntriesFile dispatches on the extension: .json or .txt (or none).
func ParseNodeEntriesFile(path, fallbackFileKey string) ([]NodeEntry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".txt" && ext != "" {
		return nil, apperrors.Validation("unsupported node entries format %q: only .txt and .json are supported", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node entries: %w", err)
	}
	if ext == ".json" {
		return ParseNodeEntriesJSON(data, fallbackFileKey)
	}
	return ParseNodeEntries(strings.NewReader(string(data)), fallbackFileKey)
}
