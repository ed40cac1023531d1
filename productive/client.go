package productive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.productive.io/api/v2"
	pageSize       = 200
)

// Client defines the Productive API operations the pipeline needs.
type Client interface {
	FetchBookings(ctx context.Context, personID, date string) ([]ResolvedBooking, error)
	ListTimeEntries(ctx context.Context, personID, date string) ([]TimeEntry, error)
	CreateTimeEntry(ctx context.Context, personID, date string, booking ResolvedBooking, note string) (TimeEntry, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig carries the per-run immutable API credentials. It is passed
// explicitly into NewClient and never stored in package state.
type ClientConfig struct {
	APIToken   string
	OrgID      string
	BaseURL    string
	HTTPClient httpDoer
	Logger     *slog.Logger
}

type HTTPClient struct {
	baseURL    string
	apiToken   string
	orgID      string
	httpClient httpDoer
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errors.New("API token is required")
	}
	if strings.TrimSpace(cfg.OrgID) == "" {
		return nil, errors.New("organization id is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL:    baseURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		orgID:      strings.TrimSpace(cfg.OrgID),
		httpClient: doer,
		logger:     logger,
	}, nil
}

// Resource is a generic JSON:API resource envelope. Attributes stay raw until
// a caller knows the concrete shape.
type Resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships"`
}

// ResourceRef identifies a related resource.
type ResourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship keeps its data raw because JSON:API allows an object, an
// array, or null there.
type Relationship struct {
	Data json.RawMessage `json:"data"`
}

// Ref returns the single related resource, false for null or to-many data.
func (r Relationship) Ref() (ResourceRef, bool) {
	text := strings.TrimSpace(string(r.Data))
	if text == "" || text == "null" || strings.HasPrefix(text, "[") {
		return ResourceRef{}, false
	}
	var ref ResourceRef
	if err := json.Unmarshal(r.Data, &ref); err != nil || ref.ID == "" {
		return ResourceRef{}, false
	}
	return ref, true
}

// relationshipRef looks up a to-one relationship on a resource.
func (r Resource) relationshipRef(name string) (ResourceRef, bool) {
	rel, ok := r.Relationships[name]
	if !ok {
		return ResourceRef{}, false
	}
	return rel.Ref()
}

type document struct {
	Data     json.RawMessage `json:"data"`
	Included []Resource      `json:"included"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

// resources normalizes the data member, which may be a single resource or a
// list.
func (d *document) resources() []Resource {
	text := strings.TrimSpace(string(d.Data))
	if text == "" || text == "null" {
		return nil
	}
	if strings.HasPrefix(text, "[") {
		var many []Resource
		if err := json.Unmarshal(d.Data, &many); err != nil {
			return nil
		}
		return many
	}
	var one Resource
	if err := json.Unmarshal(d.Data, &one); err != nil {
		return nil
	}
	return []Resource{one}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) (*document, error) {
	endpoint := c.baseURL + "/" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	c.logger.Debug("api request", "method", http.MethodGet, "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request GET %s: %w", path, err)
	}
	return c.do(req, path)
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*document, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	endpoint := c.baseURL + "/" + path
	c.logger.Debug("api request", "method", http.MethodPost, "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request POST %s: %w", path, err)
	}
	return c.do(req, path)
}

func (c *HTTPClient) do(req *http.Request, path string) (*document, error) {
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("X-Auth-Token", c.apiToken)
	req.Header.Set("X-Organization-Id", c.orgID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf(
			"request %s %s failed with status %d: %s",
			req.Method,
			path,
			resp.StatusCode,
			strings.TrimSpace(string(responseBody)),
		)
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("decode response %s %s: %w", req.Method, path, err)
	}
	return &doc, nil
}

// getAll pages through a collection until no next link remains or a page
// comes back short.
func (c *HTTPClient) getAll(ctx context.Context, path string, params url.Values) ([]Resource, []Resource, error) {
	var allData []Resource
	var allIncluded []Resource

	for page := 1; ; page++ {
		pageParams := url.Values{}
		for key, values := range params {
			pageParams[key] = values
		}
		pageParams.Set("page[number]", strconv.Itoa(page))
		pageParams.Set("page[size]", strconv.Itoa(pageSize))

		doc, err := c.get(ctx, path, pageParams)
		if err != nil {
			return nil, nil, err
		}

		data := doc.resources()
		allData = append(allData, data...)
		allIncluded = append(allIncluded, doc.Included...)

		if doc.Links.Next == "" || len(data) < pageSize {
			break
		}
	}

	return allData, allIncluded, nil
}

// includedMap indexes included resources by "type:id" for relationship
// lookups.
func includedMap(included []Resource) map[string]Resource {
	out := make(map[string]Resource, len(included))
	for _, resource := range included {
		out[resource.Type+":"+resource.ID] = resource
	}
	return out
}
