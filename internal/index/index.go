package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/philippgille/chromem-go"

	"legal-docs/internal/embeddings"
)

const (
	metaSession = "session"
	metaChunk   = "chunk"
)

var ErrEmptyQuery = errors.New("query must not be empty")

// Hit is one search result.
type Hit struct {
	ID         string  `json:"id"`
	Session    string  `json:"session"`
	Chunk      int     `json:"chunk"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Index stores contract chunks with their embeddings in a chromem-go
// collection persisted under a directory.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
	log *slog.Logger
}

// Open loads or creates the collection under dir.
func Open(dir, collection string, embedder embeddings.Embedder, log *slog.Logger) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", dir, err)
	}
	embed := func(ctx context.Context, text string) ([]float32, error) {
		v, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return []float32(v), nil
	}
	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	log.Info("vector index ready", "dir", dir, "collection", collection, "documents", col.Count())
	return &Index{db: db, col: col, log: log}, nil
}

// Build replaces every chunk stored for sessionID with chunks and returns how
// many were indexed.
func (ix *Index) Build(ctx context.Context, sessionID string, chunks []string) (int, error) {
	if err := ix.col.Delete(ctx, map[string]string{metaSession: sessionID}, nil); err != nil {
		return 0, fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      sessionID + "-" + strconv.Itoa(i),
			Content: c,
			Metadata: map[string]string{
				metaSession: sessionID,
				metaChunk:   strconv.Itoa(i),
			},
		}
	}
	if err := ix.col.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	ix.log.Info("index built", "session", sessionID, "chunks", len(docs))
	return len(docs), nil
}

// Search returns up to k chunks most similar to query. An empty sessionID
// searches across all sessions.
func (ix *Index) Search(ctx context.Context, sessionID, query string, k int) ([]Hit, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if n := ix.col.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	var where map[string]string
	if sessionID != "" {
		where = map[string]string{metaSession: sessionID}
	}
	results, err := ix.col.Query(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		chunk, _ := strconv.Atoi(r.Metadata[metaChunk])
		hits = append(hits, Hit{
			ID:         r.ID,
			Session:    r.Metadata[metaSession],
			Chunk:      chunk,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

// Count returns the number of stored chunks across all sessions.
func (ix *Index) Count() int { return ix.col.Count() }
