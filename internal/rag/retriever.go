package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ventabot/ventabot/internal/providers"
)

// Retriever binds the chunk store, the embedder and the splitter into the
// search and ingestion operations used by the pipeline tools and the admin
// ingest surface.
type Retriever struct {
	store    *Store
	embedder providers.Embedder
	splitter *Splitter
	topK     int
	minScore float64
}

func NewRetriever(store *Store, embedder providers.Embedder, splitter *Splitter, topK int, minScore float64) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		topK:     topK,
		minScore: minScore,
	}
}

// SearchCatalog returns formatted catalog passages relevant to the query.
func (r *Retriever) SearchCatalog(ctx context.Context, query string, k int) (string, error) {
	return r.search(ctx, CollectionCatalog, query, k)
}

// SearchDocs returns formatted documentation passages relevant to the query.
func (r *Retriever) SearchDocs(ctx context.Context, query string, k int) (string, error) {
	return r.search(ctx, CollectionDocs, query, k)
}

func (r *Retriever) search(ctx context.Context, collection, query string, k int) (string, error) {
	if k <= 0 {
		k = r.topK
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Search(ctx, collection, vecs[0], k, r.minScore)
	if err != nil {
		return "", err
	}
	slog.Debug("knowledge search", "collection", collection, "results", len(results))
	return FormatResults(collection, results), nil
}

// IngestCatalog replaces the catalog collection with the given products.
// Returns the number of indexed chunks.
func (r *Retriever) IngestCatalog(ctx context.Context, products []Product) (int, error) {
	var texts []string
	var chunks []Chunk
	for _, p := range products {
		text := ProductText(p)
		for _, piece := range r.splitter.Split(text) {
			texts = append(texts, piece)
			chunks = append(chunks, Chunk{
				Content: piece,
				Metadata: map[string]string{
					"product_id": p.ID,
					"source":     "catalog",
					"precio":     strconv.FormatFloat(p.Price, 'f', 2, 64),
				},
			})
		}
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("catalog is empty")
	}

	if err := r.embedChunks(ctx, texts, chunks); err != nil {
		return 0, err
	}
	if err := r.store.ReplaceCollection(ctx, CollectionCatalog, chunks); err != nil {
		return 0, err
	}
	slog.Info("catalog ingested", "products", len(products), "chunks", len(chunks))
	return len(chunks), nil
}

// IngestCatalogFile reads a JSON array of products and ingests it.
func (r *Retriever) IngestCatalogFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("parse catalog: %w", err)
	}
	return r.IngestCatalog(ctx, products)
}

// IngestDocument splits and indexes a documentation text under sourceTag.
func (r *Retriever) IngestDocument(ctx context.Context, text, sourceTag string) (int, error) {
	pieces := r.splitter.Split(text)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("document is empty")
	}

	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{
			Content:  piece,
			Metadata: map[string]string{"source": sourceTag},
		}
	}
	if err := r.embedChunks(ctx, pieces, chunks); err != nil {
		return 0, err
	}
	if err := r.store.Add(ctx, CollectionDocs, chunks); err != nil {
		return 0, err
	}
	slog.Info("document ingested", "source", sourceTag, "chunks", len(chunks))
	return len(chunks), nil
}

// IngestDocumentFile reads a UTF-8 text or markdown file and indexes it,
// tagging chunks with the file name unless sourceTag is set.
func (r *Retriever) IngestDocumentFile(ctx context.Context, path, sourceTag string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read document: %w", err)
	}
	if sourceTag == "" {
		sourceTag = filepath.Base(path)
	}
	return r.IngestDocument(ctx, string(data), sourceTag)
}

// Stats returns per-collection chunk counts.
func (r *Retriever) Stats(ctx context.Context) (map[string]int, error) {
	return r.store.Stats(ctx)
}

// embedChunks fills chunk embeddings in batches to stay under request
// size limits.
func (r *Retriever) embedChunks(ctx context.Context, texts []string, chunks []Chunk) error {
	const batch = 64
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := r.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		for i, v := range vecs {
			chunks[start+i].Embedding = v
		}
	}
	return nil
}
