package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/igusev/rgs/internal/highlight"
	"github.com/igusev/rgs/internal/query"
	"github.com/igusev/rgs/internal/types"
)

const (
	// IndexVersion is the current version of the index schema
	// Increment this when making breaking changes to the index structure
	IndexVersion = 2 // Version 2: code_all uses the camelCase analyzer

	// Version metadata document ID (reserved, never used for actual results)
	versionDocID = "__index_version__"
	versionField = "version"

	// markers emitted by bleve's html highlighter
	bleveMarkOpen  = "<mark>"
	bleveMarkClose = "</mark>"

	defaultRows    = 10
	deletePageSize = 1000
)

// ErrIndexVersionMismatch indicates the index schema version is incompatible
var ErrIndexVersionMismatch = errors.New("index version mismatch")

// BleveIndex is the embedded document index
type BleveIndex struct {
	index bleve.Index
	path  string
}

// versionDocument stores the index schema version
type versionDocument struct {
	Version int `json:"version"`
}

// NewBleveIndex creates or opens an index at indexPath
// Returns ErrIndexVersionMismatch if existing index has incompatible version
func NewBleveIndex(indexPath string) (*BleveIndex, error) {
	var index bleve.Index
	var err error

	if _, statErr := os.Stat(indexPath); os.IsNotExist(statErr) {
		indexMapping, err := buildIndexMapping()
		if err != nil {
			return nil, fmt.Errorf("failed to build index mapping: %w", err)
		}
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}

		if err := index.Index(versionDocID, versionDocument{Version: IndexVersion}); err != nil {
			_ = index.Close() // Ignore close error on error path
			return nil, fmt.Errorf("failed to store index version: %w", err)
		}
	} else {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}

		if storedVersion := readVersion(index); storedVersion != IndexVersion {
			_ = index.Close() // Ignore close error on error path
			return nil, fmt.Errorf("%w: index version %d, current version %d",
				ErrIndexVersionMismatch, storedVersion, IndexVersion)
		}
	}

	return &BleveIndex{
		index: index,
		path:  indexPath,
	}, nil
}

// readVersion returns the stored schema version, 0 when missing
func readVersion(index bleve.Index) int {
	searchReq := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{versionDocID}))
	searchReq.Fields = []string{versionField}
	searchRes, err := index.Search(searchReq)
	if err != nil || len(searchRes.Hits) == 0 {
		return 0
	}
	if v, ok := searchRes.Hits[0].Fields[versionField].(float64); ok {
		return int(v)
	}
	return 0
}

// NewBleveIndexWithAutoRecreate opens the index, recreating it on a version mismatch
// The bool result reports whether the index was recreated (stored results are lost).
func NewBleveIndexWithAutoRecreate(indexPath string) (*BleveIndex, bool, error) {
	idx, err := NewBleveIndex(indexPath)
	if err == nil {
		return idx, false, nil
	}
	if !errors.Is(err, ErrIndexVersionMismatch) {
		return nil, false, err
	}

	if err := os.RemoveAll(indexPath); err != nil {
		return nil, false, fmt.Errorf("failed to remove old index: %w", err)
	}
	idx, err = NewBleveIndex(indexPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create new index after version mismatch: %w", err)
	}
	return idx, true, nil
}

// Exists checks if an index exists at the given path
func Exists(indexPath string) bool {
	_, err := os.Stat(indexPath)
	return !os.IsNotExist(err)
}

// Add indexes records in one batch
func (b *BleveIndex) Add(ctx context.Context, docs []types.StoredSearchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if doc.ID == "" {
			return errors.New("document without id")
		}
		if err := batch.Index(doc.ID, document(doc)); err != nil {
			return fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Query runs a select-style request
func (b *BleveIndex) Query(ctx context.Context, params query.Params) (*Response, error) {
	q, err := ParseLucene(params.Get(query.ParamQuery))
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	required := []bleveQuery.Query{q}
	if fq := params.Get(query.ParamFilter); fq != "" {
		filter, err := ParseLucene(fq)
		if err != nil {
			return nil, fmt.Errorf("invalid filter query: %w", err)
		}
		required = append(required, filter)
	}

	hl := params.Get(highlight.ParamEnabled) == "true"
	hlFields := highlightFields(params.Get(highlight.ParamFields))

	// bleve only highlights fields the query matched, so an optional clause
	// re-targets the text of q to each highlighted field
	var optional []bleveQuery.Query
	if hl {
		for _, field := range hlFields {
			if shadow := highlightQuery(params.Get(query.ParamQuery), field); shadow != nil {
				optional = append(optional, shadow)
			}
		}
	}

	final := bleveQuery.NewBooleanQuery(required, optional, []bleveQuery.Query{bleve.NewDocIDQuery([]string{versionDocID})})

	start := atoi(params.Get(query.ParamStart), 0)
	req := bleve.NewSearchRequestOptions(final, atoi(params.Get(query.ParamRows), defaultRows), start, false)
	req.Fields = []string{"*"}
	req.SortBy(sortOrder(params.Get(query.ParamSort)))
	if hl {
		req.Highlight = bleve.NewHighlightWithStyle(html.Name)
		for _, field := range hlFields {
			req.Highlight.AddField(field)
		}
	}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	pre := valueOr(params.Get(highlight.ParamPre), highlight.DefaultPreTag)
	post := valueOr(params.Get(highlight.ParamPost), highlight.DefaultPostTag)

	resp := &Response{
		NumFound: int(res.Total),
		Start:    start,
		Docs:     make([]types.StoredSearchResult, 0, len(res.Hits)),
	}
	if hl {
		resp.Highlighting = make(types.HighlightMap)
	}
	for _, hit := range res.Hits {
		fields := make(map[string]interface{}, len(hit.Fields)+1)
		for k, v := range hit.Fields {
			fields[k] = v
		}
		fields[types.FieldScore] = hit.Score

		doc := types.FromFields(fields)
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		resp.Docs = append(resp.Docs, doc)

		if hl {
			byField := make(map[string][]string, len(hit.Fragments))
			for field, frags := range hit.Fragments {
				byField[field] = retag(frags, pre, post)
			}
			resp.Highlighting[hit.ID] = byField
		}
	}
	return resp, nil
}

// DeleteByQuery removes every document matching q
func (b *BleveIndex) DeleteByQuery(ctx context.Context, q string) error {
	parsed, err := ParseLucene(q)
	if err != nil {
		return fmt.Errorf("invalid delete query: %w", err)
	}
	final := bleveQuery.NewBooleanQuery([]bleveQuery.Query{parsed}, nil, []bleveQuery.Query{bleve.NewDocIDQuery([]string{versionDocID})})

	for {
		req := bleve.NewSearchRequestOptions(final, deletePageSize, 0, false)
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := b.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		if len(res.Hits) < deletePageSize {
			return nil
		}
	}
}

// Count returns the number of stored records
func (b *BleveIndex) Count() (uint64, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		n-- // version document
	}
	return n, nil
}

// Close closes the index
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// sortOrder translates "score desc, search_timestamp desc" into bleve sort keys
func sortOrder(s string) []string {
	var order []string
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if name == types.FieldScore {
			name = "_score"
		}
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			name = "-" + name
		}
		order = append(order, name)
	}
	if len(order) == 0 {
		return []string{"-_score"}
	}
	return order
}

func highlightFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return []string{types.FieldDisplayContent}
	}
	return fields
}

// retag swaps bleve's markers for the requested ones
func retag(frags []string, pre, post string) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		f = strings.ReplaceAll(f, bleveMarkOpen, pre)
		out[i] = strings.ReplaceAll(f, bleveMarkClose, post)
	}
	return out
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
