package rag

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/extract"
	"github.com/nefro313/jobfit-ai-backend/logging"
)

// ChunkDocument is a stored passage in the index.
type ChunkDocument struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is one retrieved passage with its relevance score.
type Result struct {
	Text   string
	Source string
	Score  float64
}

// Index is a full-text chunk index backed by Bleve BM25 search.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	log   *logging.Logger

	chunkSize    int
	chunkOverlap int
}

// IndexConfig configures a chunk index.
type IndexConfig struct {
	// Path is the on-disk index location. Empty means in-memory only.
	Path string

	// ChunkSize and ChunkOverlap control document splitting. Zero values
	// use the defaults.
	ChunkSize    int
	ChunkOverlap int

	Logger *logging.Logger
}

// NewIndex opens or creates a chunk index.
func NewIndex(cfg IndexConfig) (*Index, error) {
	var idx bleve.Index
	var err error

	switch {
	case cfg.Path == "":
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	default:
		if _, statErr := os.Stat(cfg.Path); os.IsNotExist(statErr) {
			idx, err = bleve.New(cfg.Path, buildIndexMapping())
		} else {
			idx, err = bleve.Open(cfg.Path)
		}
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeConfig,
			"failed to open chunk index")
	}

	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	return &Index{
		index:        idx,
		log:          log.WithComponent("rag"),
		chunkSize:    size,
		chunkOverlap: overlap,
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	chunkMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	dateFieldMapping := bleve.NewDateTimeFieldMapping()

	chunkMapping.AddFieldMappingsAt("text", textFieldMapping)
	chunkMapping.AddFieldMappingsAt("source", keywordFieldMapping)
	chunkMapping.AddFieldMappingsAt("created_at", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// IngestText splits a document into chunks and indexes them under source.
func (ix *Index) IngestText(source, text string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	chunks := splitText(cleanText(text), ix.chunkSize, ix.chunkOverlap)
	if len(chunks) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("document %q contains no indexable text", source))
	}

	batch := ix.index.NewBatch()
	now := time.Now()
	for _, chunk := range chunks {
		doc := ChunkDocument{
			ID:        uuid.NewString(),
			Text:      chunk,
			Source:    source,
			CreatedAt: now,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return 0, errors.Wrap(err, "failed to batch chunk")
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return 0, errors.Wrap(err, "failed to index chunks")
	}

	ix.log.Info("document indexed", map[string]interface{}{
		"source": source,
		"chunks": len(chunks),
	})
	return len(chunks), nil
}

// IngestPDF extracts a PDF file's text and indexes it.
func (ix *Index) IngestPDF(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrCodeConfig,
			"failed to read document")
	}
	text, err := extract.Text(extract.MimePDF, data)
	if err != nil {
		return 0, err
	}
	return ix.IngestText(path, text)
}

// Search returns the k passages most relevant to the query.
func (ix *Index) Search(query string, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 {
		k = 5
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("text")

	searchReq := bleve.NewSearchRequest(matchQuery)
	searchReq.Size = k
	searchReq.Fields = []string{"text", "source"}

	searchResult, err := ix.index.Search(searchReq)
	if err != nil {
		return nil, errors.Wrap(err, "chunk search failed")
	}

	var results []Result
	for _, hit := range searchResult.Hits {
		text, _ := hit.Fields["text"].(string)
		source, _ := hit.Fields["source"].(string)
		results = append(results, Result{
			Text:   text,
			Source: source,
			Score:  hit.Score,
		})
	}
	return results, nil
}

// Context joins retrieved passages into a prompt-ready context block.
func Context(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// DocCount returns the number of indexed chunks.
func (ix *Index) DocCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Close closes the underlying index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}
