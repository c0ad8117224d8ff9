package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchIndex wraps a Bleve index with domain-specific operations.
//
// All public methods are safe for concurrent use. Rebuild takes the write lock.
type SearchIndex struct {
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger
}

// mappingVersion is bumped whenever buildIndexMapping changes, forcing a rebuild on open.
const mappingVersion = "1"

// batchSize bounds documents per Bleve batch during bulk indexing.
const batchSize = 500

// NewSearchIndex creates or opens a search index.
// A corrupt index or one written with an older mapping is removed and recreated empty;
// callers repopulate it with a reindex.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var index bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(existing) != mappingVersion:
			logger.Info("Search index mapping version changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
		default:
			var err error
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("Failed to open existing search index, recreating", "path", indexPath, "error", err)
				index = nil
			}
		}
	}

	if index == nil {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o600); err != nil {
			logger.Warn("Failed to write search version file", "error", err)
		}
		logger.Info("Created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("Opened existing search index", "path", indexPath)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Shutdown implements do.Shutdowner.
func (s *SearchIndex) Shutdown() error {
	return s.Close()
}

// IndexDocument indexes or replaces a single document.
func (s *SearchIndex) IndexDocument(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes documents in batches.
func (s *SearchIndex) IndexDocuments(docs []*SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteDocument removes a document from the index.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DeleteDocuments removes multiple documents from the index.
func (s *SearchIndex) DeleteDocuments(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DeleteByBook removes the book document and every topic document beneath it.
func (s *SearchIndex) DeleteByBook(ctx context.Context, bookID string) (int, error) {
	return s.deleteByTerm(ctx, "book_id", bookID)
}

// DeleteByChapter removes every topic document of a chapter.
func (s *SearchIndex) DeleteByChapter(ctx context.Context, chapterID string) (int, error) {
	return s.deleteByTerm(ctx, "chapter_id", chapterID)
}

func (s *SearchIndex) deleteByTerm(ctx context.Context, field, value string) (int, error) {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)

	deleted := 0
	for {
		s.mu.RLock()
		req := bleve.NewSearchRequestOptions(tq, batchSize, 0, false)
		res, err := s.index.SearchInContext(ctx, req)
		s.mu.RUnlock()
		if err != nil {
			return deleted, fmt.Errorf("find %s=%s: %w", field, value, err)
		}
		if len(res.Hits) == 0 {
			return deleted, nil
		}

		ids := make([]string, len(res.Hits))
		for i, hit := range res.Hits {
			ids[i] = hit.ID
		}
		if err := s.DeleteDocuments(ids); err != nil {
			return deleted, err
		}
		deleted += len(ids)
	}
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and starts from an empty index.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("Rebuilt search index", "path", s.path)
	return nil
}
