// Package styles is the client for the style-recommendation collaborator.
// The service is advisory: if it is unreachable, callers receive a small
// built-in gallery of generic styles instead of an error.
package styles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/intent"
	"reelsmith/internal/logging"
	"reelsmith/internal/resilience"
)

// ServiceName is the resilience service name for the style service.
const ServiceName = "style-recommendation"

// StyleReference describes one recommended visual style.
type StyleReference struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	PreviewURL  string   `json:"previewUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Gallery is a browsable set of styles with a rendering hint for the
// presentation layer.
type Gallery struct {
	Styles []StyleReference `json:"styles"`
	UIHint string           `json:"uiHint"`
}

// GalleryQuery filters a gallery fetch.
type GalleryQuery struct {
	Category string
	Limit    int
}

// SearchQuery filters a style search.
type SearchQuery struct {
	Keyword  string
	Category string
	Tags     []string
	Limit    int
}

// Client talks to the style-recommendation service.
type Client struct {
	baseURL string
	httpc   *http.Client
	exec    *resilience.Executor
}

// NewClient creates a style client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, exec *resilience.Executor) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		exec:    exec,
	}
}

// GetRecommendations returns styles matched to the intent, degrading to
// the fallback gallery when the service is unreachable.
func (c *Client) GetRecommendations(ctx context.Context, in intent.Intent) []StyleReference {
	q := url.Values{}
	q.Set("purpose", string(in.Purpose))
	q.Set("platform", string(in.Platform))
	q.Set("style", string(in.Style))
	q.Set("mediaType", string(in.MediaType))

	var out []StyleReference
	err := c.exec.Execute(ctx, ServiceName, func(ctx context.Context) error {
		return c.getJSON(ctx, "/recommendations?"+q.Encode(), &out)
	})
	if err != nil || len(out) == 0 {
		logging.Get(logging.CategoryStyles).Warnf("style recommendations unavailable, using fallback gallery: %v", err)
		return FallbackGallery().Styles
	}
	return out
}

// GetGallery fetches a browsable gallery, degrading to the fallback.
func (c *Client) GetGallery(ctx context.Context, query GalleryQuery) *Gallery {
	q := url.Values{}
	if query.Category != "" {
		q.Set("category", query.Category)
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	var out Gallery
	err := c.exec.Execute(ctx, ServiceName, func(ctx context.Context) error {
		return c.getJSON(ctx, "/gallery?"+q.Encode(), &out)
	})
	if err != nil || len(out.Styles) == 0 {
		logging.Get(logging.CategoryStyles).Warnf("style gallery unavailable, using fallback: %v", err)
		return FallbackGallery()
	}
	return &out
}

// SearchStyles searches the catalog, returning the fallback styles when
// the service is unreachable.
func (c *Client) SearchStyles(ctx context.Context, query SearchQuery) []StyleReference {
	q := url.Values{}
	if query.Keyword != "" {
		q.Set("keyword", query.Keyword)
	}
	if query.Category != "" {
		q.Set("category", query.Category)
	}
	for _, tag := range query.Tags {
		q.Add("tag", tag)
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	var out []StyleReference
	err := c.exec.Execute(ctx, ServiceName, func(ctx context.Context) error {
		return c.getJSON(ctx, "/search?"+q.Encode(), &out)
	})
	if err != nil {
		logging.Get(logging.CategoryStyles).Warnf("style search unavailable, using fallback: %v", err)
		return FallbackGallery().Styles
	}
	return out
}

// statusError adapts HTTP status failures to the classifier's
// status-coder contract.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("style service returned %d: %s", e.status, e.body)
}

func (e *statusError) HTTPStatus() int { return e.status }

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build style request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("style service call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read style response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode style response: %w", err)
	}
	return nil
}

// FallbackGallery returns the built-in generic styles used when the
// service is unreachable.
func FallbackGallery() *Gallery {
	return &Gallery{
		UIHint: "list",
		Styles: []StyleReference{
			{
				ID:          "clean-modern",
				Name:        "Clean & Modern",
				Category:    "general",
				Description: "Bright, minimal compositions with plenty of negative space.",
				Tags:        []string{"minimal", "bright"},
			},
			{
				ID:          "warm-documentary",
				Name:        "Warm Documentary",
				Category:    "general",
				Description: "Natural light and handheld energy for an authentic feel.",
				Tags:        []string{"natural", "authentic"},
			},
			{
				ID:          "bold-vibrant",
				Name:        "Bold & Vibrant",
				Category:    "general",
				Description: "Saturated colors and punchy motion for social feeds.",
				Tags:        []string{"colorful", "energetic"},
			},
		},
	}
}
