// Package linear reads workspace collections from the Linear GraphQL API and
// projects them into typed records.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

const DefaultPageSize = 50

type Config struct {
	APIKey      string
	WorkspaceID string
	Endpoint    string
	PageSize    int
	HTTPClient  *http.Client
}

type Client struct {
	apiKey      string
	workspaceID string
	endpoint    string
	pageSize    int
	http        *http.Client
	logger      *slog.Logger

	mu             sync.Mutex
	organizationID string
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		apiKey:      cfg.APIKey,
		workspaceID: cfg.WorkspaceID,
		endpoint:    cfg.Endpoint,
		pageSize:    pageSize,
		http:        hc,
		logger:      logger,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query posts one GraphQL operation and decodes its data member into out.
func (c *Client) query(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	c.logger.Debug("linear", "op", op, "after", vars["after"])
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Upstream("linear "+op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Upstream("linear "+op, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Upstream("linear "+op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 300)))
	}

	var gr graphQLResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return apperrors.Upstream("linear "+op, fmt.Errorf("parse response: %w", err))
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return apperrors.Upstream("linear "+op, fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return apperrors.Upstream("linear "+op, fmt.Errorf("parse data: %w", err))
	}
	return nil
}

// EnsureWorkspace checks once per client that the API key belongs to the
// configured workspace and returns the organization id.
func (c *Client) EnsureWorkspace(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.organizationID != "" {
		return c.organizationID, nil
	}

	var data struct {
		Viewer struct {
			Organization struct {
				ID string `json:"id"`
			} `json:"organization"`
		} `json:"viewer"`
	}
	if err := c.query(ctx, "viewer", viewerQuery, nil, &data); err != nil {
		return "", err
	}

	orgID := data.Viewer.Organization.ID
	if c.workspaceID != "" && orgID != c.workspaceID {
		return "", apperrors.Configuration(fmt.Sprintf(
			"authenticated workspace (%s) does not match expected workspace (%s)", orgID, c.workspaceID))
	}
	c.organizationID = orgID
	return orgID, nil
}

// WorkspaceID returns the configured workspace id, or the validated one.
func (c *Client) WorkspaceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workspaceID != "" {
		return c.workspaceID
	}
	return c.organizationID
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
