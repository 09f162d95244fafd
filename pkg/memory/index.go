package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

const (
	collectionName = "messages"

	// DefaultMinSimilarity drops weak matches from search results
	DefaultMinSimilarity = 0.75
)

// SearchResult is one message matched by Search
type SearchResult struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Role      string  `json:"role"`
	ConvID    string  `json:"conv_id"`
	Timestamp int64   `json:"timestamp"`
	Score     float32 `json:"score"`
}

// Index is a semantic index over stored messages backed by chromem-go.
type Index struct {
	collection    *chromem.Collection
	minSimilarity float32
	mu            sync.RWMutex
}

// IndexOption configures an Index
type IndexOption func(*Index)

// WithMinSimilarity overrides DefaultMinSimilarity
func WithMinSimilarity(min float32) IndexOption {
	return func(ix *Index) {
		ix.minSimilarity = min
	}
}

// NewIndex creates an in-memory index that embeds text with embed.
func NewIndex(embed chromem.EmbeddingFunc, opts ...IndexOption) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", collectionName, err)
	}

	ix := &Index{collection: col, minSimilarity: DefaultMinSimilarity}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// OllamaEmbedding embeds text with an Ollama embedding model. baseURL is the
// server root, e.g. http://localhost:11434.
func OllamaEmbedding(model, baseURL string) chromem.EmbeddingFunc {
	if baseURL != "" {
		baseURL = strings.TrimRight(baseURL, "/") + "/api"
	}
	return chromem.NewEmbeddingFuncOllama(model, baseURL)
}

// Add indexes a message. Blank content is skipped.
func (ix *Index) Add(ctx context.Context, msgID, role, content, convID string, at time.Time) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	err := ix.collection.AddDocument(ctx, chromem.Document{
		ID:      msgID,
		Content: content,
		Metadata: map[string]string{
			"role":      role,
			"conv_id":   convID,
			"timestamp": strconv.FormatInt(at.Unix(), 10),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to index message %s: %w", msgID, err)
	}
	return nil
}

// Search returns up to limit messages similar to query. A non-empty convID
// restricts results to that conversation.
func (ix *Index) Search(ctx context.Context, query string, limit int, convID string) ([]SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := ix.collection.Count()
	if count == 0 || limit <= 0 {
		return []SearchResult{}, nil
	}
	if limit > count {
		limit = count
	}

	var where map[string]string
	if convID != "" {
		where = map[string]string{"conv_id": convID}
	}

	matches, err := ix.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < ix.minSimilarity {
			continue
		}
		ts, _ := strconv.ParseInt(m.Metadata["timestamp"], 10, 64)
		results = append(results, SearchResult{
			ID:        m.ID,
			Content:   m.Content,
			Role:      m.Metadata["role"],
			ConvID:    m.Metadata["conv_id"],
			Timestamp: ts,
			Score:     m.Similarity,
		})
	}

	logger.WithComponent("memory_index").Debug("Search complete",
		"conv_id", convID, "candidates", len(matches), "results", len(results))
	return results, nil
}

// Forget removes every indexed message of a conversation
func (ix *Index) Forget(ctx context.Context, convID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.collection.Count() == 0 {
		return nil
	}
	if err := ix.collection.Delete(ctx, map[string]string{"conv_id": convID}, nil); err != nil {
		return fmt.Errorf("failed to forget conversation %s: %w", convID, err)
	}
	return nil
}

// Count returns the number of indexed messages
func (ix *Index) Count() int {
	return ix.collection.Count()
}
