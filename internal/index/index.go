// Package index stores search results in a document index and queries them back
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/query"
	"github.com/igusev/rgs/internal/types"
)

// Backends
const (
	BackendBleve = "bleve"
	BackendSolr  = "solr"
)

// Response is the decoded result of a query
type Response struct {
	NumFound     int
	Start        int
	Docs         []types.StoredSearchResult
	Highlighting types.HighlightMap
}

// Client is the document-index collaborator
type Client interface {
	// Add indexes records, replacing documents with the same id
	Add(ctx context.Context, docs []types.StoredSearchResult) error
	// Query runs a search with select-style parameters (q, fq, rows, start, sort, fl, hl.*)
	Query(ctx context.Context, params query.Params) (*Response, error)
	// DeleteByQuery removes every document matching q
	DeleteByQuery(ctx context.Context, q string) error
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend string
	Path    string // bleve index directory
	SolrURL string
	Core    string
	Timeout time.Duration
}

// Open creates the configured client
func Open(opts Options) (Client, error) {
	switch opts.Backend {
	case BackendBleve, "":
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		idx, recreated, err := NewBleveIndexWithAutoRecreate(opts.Path)
		if err != nil {
			return nil, err
		}
		if recreated {
			logger.Warn("Index schema changed, recreated %s", opts.Path)
		}
		return idx, nil
	case BackendSolr:
		return NewSolrClient(opts.SolrURL, opts.Core, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", opts.Backend)
	}
}

// SessionQuery matches every record of a session
func SessionQuery(sessionID string) string {
	return query.FieldEquals(types.FieldSessionID, sessionID)
}

// DeleteSession removes all records of a session
func DeleteSession(ctx context.Context, c Client, sessionID string) error {
	return c.DeleteByQuery(ctx, SessionQuery(sessionID))
}

// DeleteAll removes every stored record
func DeleteAll(ctx context.Context, c Client) error {
	return c.DeleteByQuery(ctx, query.MatchAllDocuments)
}

// FetchAll returns every record matching filter (all records when empty), newest first
func FetchAll(ctx context.Context, c Client, filter string) ([]types.StoredSearchResult, error) {
	var all []types.StoredSearchResult
	for {
		p := query.NewParams()
		p.Set(query.ParamQuery, query.MatchAllDocuments)
		p.Set(query.ParamRows, strconv.Itoa(query.MaxRows))
		if len(all) > 0 {
			p.Set(query.ParamStart, strconv.Itoa(len(all)))
		}
		p.Set(query.ParamFormat, "json")
		p.Set(query.ParamSort, types.FieldTimestamp+" desc")
		p.Set(query.ParamFields, query.DefaultFieldList)
		if filter != "" {
			p.Set(query.ParamFilter, filter)
		}

		resp, err := c.Query(ctx, p)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Docs...)
		if len(resp.Docs) == 0 || len(all) >= resp.NumFound {
			return all, nil
		}
	}
}
