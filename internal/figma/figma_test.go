package figma

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/logging"
)

func TestNormalizeNodeID(t *testing.T) {
	for in, want := range map[string]string{
		"123:456":   "123:456",
		"123-456":   "123:456",
		"123%3A456": "123:456",
		" 1:2 ":     "1:2",
	} {
		got, err := NormalizeNodeID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "abc", "12:", "1:2:3", "12_34"} {
		_, err := NormalizeNodeID(bad)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), bad)
	}
}

func TestParseNodeURL(t *testing.T) {
	e, err := ParseNodeURL("https://www.figma.com/design/AbC123/Checkout?node-id=12-34&t=x")
	require.NoError(t, err)
	assert.Equal(t, NodeEntry{FileKey: "AbC123", NodeID: "12:34"}, e)

	e, err = ParseNodeURL("https://www.figma.com/file/Key9/Name?node-id=5%3A6")
	require.NoError(t, err)
	assert.Equal(t, NodeEntry{FileKey: "Key9", NodeID: "5:6"}, e)

	_, err = ParseNodeURL("https://www.figma.com/design/AbC123/Checkout")
	assert.ErrorContains(t, err, "node-id")
	_, err = ParseNodeURL("https://www.figma.com/community?node-id=1-2")
	assert.ErrorContains(t, err, "file key")
}

func TestParseNodeEntries(t *testing.T) {
	input := strings.Join([]string{
		"# checkout screens",
		"",
		"https://www.figma.com/design/Other/Page?node-id=1-2",
		"3:4",
		"  5-6  ",
	}, "\n")
	entries, err := ParseNodeEntries(strings.NewReader(input), "Main")
	require.NoError(t, err)
	assert.Equal(t, []NodeEntry{
		{FileKey: "Other", NodeID: "1:2"},
		{FileKey: "Main", NodeID: "3:4"},
		{FileKey: "Main", NodeID: "5:6"},
	}, entries)

	_, err = ParseNodeEntries(strings.NewReader("3:4\n"), "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestParseNodeEntriesFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "nodes.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[
		{"url":"https://www.figma.com/design/K1/x?node-id=1-1"},
		{"nodeId":"2:2","fileKey":"K2"},
		{"nodeId":"3-3"}
	]`), 0o644))

	entries, err := ParseNodeEntriesFile(jsonPath, "Fallback")
	require.NoError(t, err)
	assert.Equal(t, []NodeEntry{
		{FileKey: "K1", NodeID: "1:1"},
		{FileKey: "K2", NodeID: "2:2"},
		{FileKey: "Fallback", NodeID: "3:3"},
	}, entries)

	_, err = ParseNodeEntriesFile(filepath.Join(dir, "nodes.csv"), "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCapture(t *testing.T) {
	var imageCalls atomic.Int32
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("GET /v1/images/{key}", func(w http.ResponseWriter, r *http.Request) {
		imageCalls.Add(1)
		assert.Equal(t, "tok", r.Header.Get("X-FIGMA-TOKEN"))
		assert.Equal(t, "jpg", r.URL.Query().Get("format"))
		assert.Equal(t, "3", r.URL.Query().Get("scale"))
		key := r.PathValue("key")
		var parts []string
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			parts = append(parts, `"`+id+`":"`+srvURL+`/img/`+key+`/`+strings.ReplaceAll(id, ":", "_")+`"`)
		}
		_, _ = io.WriteString(w, `{"err":null,"images":{`+strings.Join(parts, ",")+`}}`)
	})
	mux.HandleFunc("GET /img/{key}/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "bytes-of-"+r.PathValue("key")+"-"+r.PathValue("id"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	c := NewClient(Config{AccessToken: "tok", APIBaseURL: srv.URL}, logging.Discard())
	out := t.TempDir()
	results, err := c.Capture(context.Background(), []NodeEntry{
		{FileKey: "A", NodeID: "1:2"},
		{FileKey: "A", NodeID: "1-2"},
		{FileKey: "B", NodeID: "3:4"},
		{FileKey: "A", NodeID: "5:6"},
	}, CaptureOptions{
		Format:    "jpg",
		Scale:     3,
		OutputDir: out,
		Now:       func() time.Time { return time.Date(2024, 6, 10, 12, 30, 45, 123e6, time.UTC) },
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), imageCalls.Load())
	require.Len(t, results, 3)

	first := results[0]
	assert.Equal(t, "2024-06-10T12-30-45-123Z", first.Timestamp)
	assert.Equal(t, filepath.Join(out, first.Timestamp, "figma-design-A-1-2.jpg"), first.SavedPath)
	data, err := os.ReadFile(first.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, "bytes-of-A-1_2", string(data))
	assert.Equal(t, "B", results[1].FileKey)
	assert.Equal(t, "5:6", results[2].NodeID)
}

func TestCaptureValidation(t *testing.T) {
	c := NewClient(Config{AccessToken: "tok"}, logging.Discard())
	ctx := context.Background()

	_, err := c.Capture(ctx, nil, CaptureOptions{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = c.Capture(ctx, []NodeEntry{{FileKey: "A", NodeID: "1:2"}}, CaptureOptions{Format: "gif"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = c.Capture(ctx, []NodeEntry{{FileKey: "A", NodeID: "1:2"}, {FileKey: "A", NodeID: "3:4"}},
		CaptureOptions{OutputPath: "one.png"})
	assert.ErrorContains(t, err, "single node")

	_, err = c.Capture(ctx, []NodeEntry{{FileKey: "A", NodeID: "oops"}}, CaptureOptions{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestFetchImagesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"err":"File not found","images":{}}`)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{AccessToken: "tok", APIBaseURL: srv.URL}, logging.Discard())

	_, err := c.FetchImages(context.Background(), "K", []string{"1:2"}, "png", 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFetch))
	assert.Contains(t, err.Error(), "File not found")

	_, err = NewClient(Config{}, logging.Discard()).FetchImages(context.Background(), "K", []string{"1:2"}, "png", 2)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfiguration))
}

func TestCaptureTimestamp(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2024-06-10T10-30-45-007Z", captureTimestamp(time.Date(2024, 6, 10, 12, 30, 45, 7e6, zone)))
	assert.Equal(t, "2024-06-10T12-30-45-000Z", captureTimestamp(time.Date(2024, 6, 10, 12, 30, 45, 0, time.UTC)))
}
