package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360studio/goldenthread/trace"
)

// maxResponseSize limits registry response bodies to prevent memory
// exhaustion on a misbehaving endpoint.
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// defaultRequestsPerSecond matches the registry's documented rate limit.
const defaultRequestsPerSecond = 3

// Config holds registry connection settings.
type Config struct {
	BaseURL    string
	Token      string
	APIVersion string
	Timeout    time.Duration

	// Databases maps each ID type to its registry database. Types without
	// a database cannot be resolved.
	Databases map[trace.IDType]string

	// RequestsPerSecond caps the client-side request rate. Zero means the
	// registry default.
	RequestsPerSecond float64

	Retry RetryConfig
}

// Client queries the requirements registry. One Client is shared across all
// concurrent service validations so the rate limit holds globally.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	apiVersion string
	databases  map[trace.IDType]string
	limiter    *rate.Limiter
	cache      *Cache
	retry      RetryConfig
	logger     *slog.Logger
}

// NewClient creates a registry client. cache may be nil to disable caching.
func NewClient(cfg Config, cache *Cache, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("registry API token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		apiVersion: cfg.APIVersion,
		databases:  cfg.Databases,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cache:      cache,
		retry:      retryCfg,
		logger:     logger,
	}, nil
}

// Fetch resolves one ID to its registry record. Cache hits skip the network
// entirely; misses go through the rate limiter and retry loop. A missing ID
// returns ErrNotFound and is not cached, so a record added to the registry
// is visible on the next run.
func (c *Client) Fetch(ctx context.Context, id string) (*Record, error) {
	idType, ok := trace.TypeOf(id)
	if !ok {
		return nil, NewFatalError(fmt.Errorf("ID %q has no known registry type", id))
	}
	database, ok := c.databases[idType]
	if !ok {
		return nil, NewFatalError(fmt.Errorf("no registry database configured for type %s", idType))
	}

	key := Key(string(idType), id, database+":ID.equals")
	if c.cache != nil {
		if record, ok := c.cache.Get(key); ok {
			return record, nil
		}
	}

	var record *Record
	err := withRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		record, err = c.query(ctx, database, id, idType)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if c.cache != nil {
		if err := c.cache.Put(key, record); err != nil {
			// Cache failures degrade to uncached operation, never fail a run.
			c.logger.Warn("Failed to write registry cache", "id", id, "error", err)
		}
	}
	return record, nil
}

// queryRequest is the registry's database query body: filter on the ID
// property by exact match.
type queryRequest struct {
	Filter struct {
		Property string `json:"property"`
		RichText struct {
			Equals string `json:"equals"`
		} `json:"rich_text"`
	} `json:"filter"`
}

type queryResponse struct {
	Results []struct {
		Properties map[string]property `json:"properties"`
	} `json:"results"`
}

// property covers the registry property shapes the validator reads.
type property struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title,omitempty"`
	RichText []richText `json:"rich_text,omitempty"`
	Select   *struct {
		Name string `json:"name"`
	} `json:"select,omitempty"`
	Status *struct {
		Name string `json:"name"`
	} `json:"status,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

func plainText(parts []richText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

// query runs one database query and parses the first matching page.
// A query with no results returns (nil, nil): absence is an answer, not an
// error to retry.
func (c *Client) query(ctx context.Context, database, id string, idType trace.IDType) (*Record, error) {
	var reqBody queryRequest
	reqBody.Filter.Property = "ID"
	reqBody.Filter.RichText.Equals = id

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal query: %w", err))
	}

	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build query request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("Registry-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("query registry: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read registry response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(resp.StatusCode, respBody)
	}

	var parsed queryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewTransientError(fmt.Errorf("parse registry response: %w", err))
	}
	if len(parsed.Results) == 0 {
		return nil, nil
	}

	return parseRecord(id, idType, parsed.Results[0].Properties), nil
}

// parseRecord maps registry page properties onto a Record. Related IDs are
// recognized by shape inside any text property, so the registry can link
// records in free text without a rigid relation schema.
func parseRecord(id string, idType trace.IDType, props map[string]property) *Record {
	record := &Record{
		ID:        id,
		Type:      idType,
		FetchedAt: time.Now().UTC(),
	}

	for name, prop := range props {
		var text string
		switch prop.Type {
		case "title":
			text = plainText(prop.Title)
			record.Title = text
		case "rich_text":
			text = plainText(prop.RichText)
		case "select":
			if prop.Select != nil {
				text = prop.Select.Name
			}
		case "status":
			if prop.Status != nil {
				record.Status = prop.Status.Name
			}
			continue
		default:
			continue
		}

		if name == "Status" && prop.Type == "select" {
			record.Status = text
			continue
		}

		related := make([]string, 0)
		for _, found := range trace.FindIDs(text) {
			if found != id {
				related = append(related, found)
			}
		}
		if len(related) > 0 {
			if record.Related == nil {
				record.Related = make(map[string][]string)
			}
			relKey := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
			record.Related[relKey] = related
		}
	}
	return record
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("registry API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		// Rate limiting is transient
		return NewTransientError(err)
	case statusCode >= 500:
		// Server errors are transient
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		// Auth errors are fatal
		return NewFatalError(err)
	case statusCode == http.StatusBadRequest:
		// Bad requests are fatal
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
