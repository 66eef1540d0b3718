package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"
)

// Collection names used by the pipeline tools.
const (
	CollectionCatalog = "product_catalog"
	CollectionDocs    = "support_docs"
)

// Chunk is one indexed piece of text with its embedding.
type Chunk struct {
	ID        int64
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// SearchResult is a chunk with its similarity to the query.
type SearchResult struct {
	Chunk
	Score float64
}

// Store is the SQLite-backed chunk store. A single file holds both
// collections; writes and reads go through database/sql so the store is
// safe for the server and worker goroutines.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed initializes) the chunk database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS chunks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		content    TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '{}',
		embedding  BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init knowledge db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Add inserts chunks into a collection.
func (s *Store) Add(ctx context.Context, collection string, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (collection, content, metadata, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metaJSON, _ := json.Marshal(c.Metadata)
		if _, err := stmt.ExecContext(ctx, collection, c.Content, string(metaJSON), encodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// ReplaceCollection atomically swaps a collection's contents, used by
// full catalog re-ingestion.
func (s *Store) ReplaceCollection(ctx context.Context, collection string, chunks []Chunk) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return s.Add(ctx, collection, chunks)
}

// Search ranks all chunks of a collection by cosine similarity to the
// query vector and returns the top k at or above minScore.
func (s *Store) Search(ctx context.Context, collection string, query []float32, k int, minScore float64) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM chunks WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var c Chunk
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		json.Unmarshal([]byte(metaJSON), &c.Metadata)
		c.Embedding = decodeVector(blob)

		score := Cosine(query, c.Embedding)
		if score < minScore {
			continue
		}
		results = append(results, SearchResult{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats returns the chunk count per collection.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, COUNT(*) FROM chunks GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var collection string
		var n int
		if err := rows.Scan(&collection, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		stats[collection] = n
	}
	return stats, rows.Err()
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Embeddings are stored as little-endian float32 blobs.

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
