// Package figma exports design nodes as images through the Figma REST API.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

const (
	DefaultAPIBaseURL = "https://api.figma.com"
	DefaultFormat     = "png"
	DefaultScale      = 2
)

type Config struct {
	AccessToken string
	APIBaseURL  string
	HTTPClient  *http.Client
}

type Client struct {
	token   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	base := cfg.APIBaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	return &Client{
		token:   cfg.AccessToken,
		baseURL: strings.TrimRight(base, "/"),
		http:    hc,
		logger:  logger,
	}
}

type imagesResponse struct {
	Err    *string           `json:"err"`
	Images map[string]string `json:"images"`
}

// FetchImages asks Figma to render nodeIDs of one file and returns the
// short-lived download URL per node id.
func (c *Client) FetchImages(ctx context.Context, fileKey string, nodeIDs []string, format string, scale int) (map[string]string, error) {
	if len(nodeIDs) == 0 {
		return nil, apperrors.Validation("at least one node id must be provided")
	}
	if c.token == "" {
		return nil, apperrors.Configuration("FIGMA_ACCESS_TOKEN is not configured")
	}

	q := url.Values{
		"ids":    {strings.Join(nodeIDs, ",")},
		"format": {format},
		"scale":  {strconv.Itoa(scale)},
	}
	u := c.baseURL + "/v1/images/" + url.PathEscape(fileKey) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build images request: %w", err)
	}
	req.Header.Set("X-FIGMA-TOKEN", c.token)

	c.logger.Debug("figma images", "file", fileKey, "nodes", len(nodeIDs), "format", format, "scale", scale)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("figma images", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Upstream("figma images", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream("figma images", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	var ir imagesResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return nil, apperrors.Upstream("figma images", fmt.Errorf("parse response: %w", err))
	}
	if ir.Err != nil && *ir.Err != "" {
		return nil, apperrors.Upstream("figma images", fmt.Errorf("api error: %s", *ir.Err))
	}
	return ir.Images, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("figma download", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream("figma download", fmt.Errorf("status %d: %s", resp.StatusCode, imageURL))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Upstream("figma download", err)
	}
	return data, nil
}
