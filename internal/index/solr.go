package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/query"
	"github.com/igusev/rgs/internal/types"
)

const (
	// DefaultSolrURL is the base URL of a local Solr
	DefaultSolrURL = "http://localhost:8983/solr"
	// DefaultCore holds stored results
	DefaultCore = "search_results"

	defaultRetries = 3
	maxErrorBody   = 4096
)

// SolrClient talks to a Solr core over its JSON update and select handlers
type SolrClient struct {
	baseURL string
	core    string
	http    *retryablehttp.Client
}

// NewSolrClient creates a client for core at baseURL (e.g. http://localhost:8983/solr)
func NewSolrClient(baseURL, core string, timeout time.Duration) *SolrClient {
	if baseURL == "" {
		baseURL = DefaultSolrURL
	}
	if core == "" {
		core = DefaultCore
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = retryLogger{}
	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}

	return &SolrClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		core:    core,
		http:    rc,
	}
}

// SetRetries changes how many times failed requests are retried
func (s *SolrClient) SetRetries(n int) {
	s.http.RetryMax = n
}

func (s *SolrClient) endpoint(path string) string {
	return s.baseURL + "/" + s.core + path
}

// Add posts records to the update handler and commits
func (s *SolrClient) Add(ctx context.Context, docs []types.StoredSearchResult) error {
	if len(docs) == 0 {
		return nil
	}
	payload := make([]map[string]interface{}, len(docs))
	for i, d := range docs {
		payload[i] = d.IndexFields()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	return s.postJSON(ctx, "/update?commit=true", body, nil)
}

// DeleteByQuery posts a delete-by-query directive and commits
func (s *SolrClient) DeleteByQuery(ctx context.Context, q string) error {
	body, err := json.Marshal(map[string]interface{}{
		"delete": map[string]string{"query": q},
	})
	if err != nil {
		return err
	}
	return s.postJSON(ctx, "/update?commit=true", body, nil)
}

type selectResponse struct {
	Response struct {
		NumFound int                      `json:"numFound"`
		Start    int                      `json:"start"`
		Docs     []map[string]interface{} `json:"docs"`
	} `json:"response"`
	Highlighting types.HighlightMap `json:"highlighting"`
}

// Query posts form-encoded parameters to the select handler
func (s *SolrClient) Query(ctx context.Context, params query.Params) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("/select"),
		strings.NewReader(params.Values().Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var decoded selectResponse
	if err := s.do(req, &decoded); err != nil {
		return nil, err
	}

	resp := &Response{
		NumFound:     decoded.Response.NumFound,
		Start:        decoded.Response.Start,
		Docs:         make([]types.StoredSearchResult, 0, len(decoded.Response.Docs)),
		Highlighting: decoded.Highlighting,
	}
	for _, fields := range decoded.Response.Docs {
		resp.Docs = append(resp.Docs, types.FromFields(fields))
	}
	return resp, nil
}

// Close releases idle connections
func (s *SolrClient) Close() error {
	s.http.HTTPClient.CloseIdleConnections()
	return nil
}

func (s *SolrClient) postJSON(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return s.do(req, out)
}

func (s *SolrClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return s.do(req, out)
}

type solrError struct {
	Error struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

// do sends req and decodes a JSON body into out (when non-nil)
func (s *SolrClient) do(req *retryablehttp.Request, out interface{}) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("solr request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var se solrError
		if json.Unmarshal(raw, &se) == nil && se.Error.Msg != "" {
			return fmt.Errorf("solr returned %d: %s", resp.StatusCode, se.Error.Msg)
		}
		return fmt.Errorf("solr returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("malformed solr response: %w", err)
	}
	return nil
}

// retryLogger routes retryablehttp's leveled logs to the debug log
type retryLogger struct{}

func (retryLogger) Error(msg string, kv ...interface{}) { logger.Debug("solr: %s %v", msg, kv) }
func (retryLogger) Info(msg string, kv ...interface{})  { logger.Debug("solr: %s %v", msg, kv) }
func (retryLogger) Debug(msg string, kv ...interface{}) { logger.Debug("solr: %s %v", msg, kv) }
func (retryLogger) Warn(msg string, kv ...interface{})  { logger.Debug("solr: %s %v", msg, kv) }
