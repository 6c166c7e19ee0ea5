package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/vectlabs/vectdb/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/vectlabs/vectdb/internal/core/domain"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
)

// Store is the SQLite-backed content store.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.ContentStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vectdb/vectdb.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vectdb")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectdb.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys so cascade deletes work
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// CreateDocument inserts a document, deduplicating on content hash. When
// a document with the same hash already exists, the stored record is
// returned with created=false and nothing is written.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) (*domain.Document, bool, error) {
	if doc.ContentHash == "" {
		return nil, false, fmt.Errorf("%w: document content hash is empty", domain.ErrValidation)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source, content_hash, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, doc.ID, doc.Source, doc.ContentHash, string(metadataJSON), doc.CreatedAt)

	if err != nil {
		// A hash collision means the content is already stored; hand the
		// existing record back instead of failing.
		if isUniqueViolation(err) {
			existing, getErr := s.GetDocumentByHash(ctx, doc.ContentHash)
			if getErr != nil {
				return nil, false, fmt.Errorf("fetching existing document: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("inserting document: %w", err)
	}

	return doc, true, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, content_hash, metadata, created_at
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// GetDocumentByHash retrieves a document by content hash.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, content_hash, metadata, created_at
		FROM documents WHERE content_hash = ?
	`, hash)
	return scanDocument(row)
}

// DeleteDocument removes a document; chunks and embeddings follow via
// cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Chunks ====================

// InsertChunk stores a single chunk.
func (s *Store) InsertChunk(ctx context.Context, chunk domain.Chunk) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, token_count)
		VALUES (?, ?, ?, ?, ?)
	`, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content, chunk.TokenCount)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: chunk %d of document %s already exists",
				domain.ErrConstraintViolation, chunk.Index, chunk.DocumentID)
		}
		return fmt.Errorf("inserting chunk: %w", err)
	}
	return nil
}

// InsertChunks stores a batch of chunks in one transaction. Either every
// chunk lands or none do.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, token_count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID,
			chunk.Index, chunk.Content, chunk.TokenCount); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: chunk %d of document %s already exists",
					domain.ErrConstraintViolation, chunk.Index, chunk.DocumentID)
			}
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// GetChunksByDocument returns a document's chunks ordered by index.
func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, token_count
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index,
			&chunk.Content, &chunk.TokenCount); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Embeddings ====================

// UpsertEmbedding stores an embedding, replacing any existing one for
// the same chunk.
func (s *Store) UpsertEmbedding(ctx context.Context, emb domain.Embedding) error {
	if emb.Model == "" {
		return fmt.Errorf("%w: embedding model is empty", domain.ErrValidation)
	}
	if emb.Dimension != len(emb.Vector) {
		return fmt.Errorf("%w: declared dimension %d does not match vector length %d",
			domain.ErrValidation, emb.Dimension, len(emb.Vector))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, model, vector, dimension)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			model = excluded.model,
			vector = excluded.vector,
			dimension = excluded.dimension
	`, emb.ChunkID, emb.Model, float32SliceToBytes(emb.Vector), emb.Dimension)

	if err != nil {
		return fmt.Errorf("upserting embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the embedding stored for a chunk.
func (s *Store) GetEmbedding(ctx context.Context, chunkID string) (*domain.Embedding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, model, vector, dimension
		FROM embeddings WHERE chunk_id = ?
	`, chunkID)

	var emb domain.Embedding
	var blob []byte
	if err := row.Scan(&emb.ChunkID, &emb.Model, &blob, &emb.Dimension); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}

	emb.Vector = bytesToFloat32Slice(blob)
	if len(emb.Vector) != emb.Dimension {
		return nil, fmt.Errorf("%w: embedding for chunk %s stores dimension %d but decoded %d components",
			domain.ErrValidation, chunkID, emb.Dimension, len(emb.Vector))
	}
	return &emb, nil
}

// ScanEmbeddings opens a cursor over all embeddings for the given model,
// joined with chunk and document rows. Rows stream out in ascending
// chunk ID order.
func (s *Store) ScanEmbeddings(ctx context.Context, model string) (driven.EmbeddingScan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.chunk_index, c.content, c.token_count,
		       d.id, d.source, d.metadata, e.vector, e.dimension
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE e.model = ?
		ORDER BY c.id
	`, model)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}

	return &embeddingScan{rows: rows}, nil
}

// embeddingScan implements driven.EmbeddingScan over *sql.Rows.
type embeddingScan struct {
	rows    *sql.Rows
	current driven.EmbeddingRow
	err     error
}

func (e *embeddingScan) Next() bool {
	if e.err != nil || !e.rows.Next() {
		return false
	}

	var row driven.EmbeddingRow
	var metadataJSON string
	var blob []byte
	var dimension int
	if err := e.rows.Scan(&row.ChunkID, &row.ChunkIndex, &row.ChunkContent,
		&row.TokenCount, &row.DocumentID, &row.Source, &metadataJSON, &blob, &dimension); err != nil {
		e.err = fmt.Errorf("scanning embedding row: %w", err)
		return false
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &row.Metadata); err != nil {
			e.err = fmt.Errorf("unmarshaling document metadata: %w", err)
			return false
		}
	}

	row.Vector = bytesToFloat32Slice(blob)
	if len(row.Vector) != dimension {
		e.err = fmt.Errorf("%w: embedding for chunk %s stores dimension %d but decoded %d components",
			domain.ErrValidation, row.ChunkID, dimension, len(row.Vector))
		return false
	}
	e.current = row
	return true
}

func (e *embeddingScan) Row() driven.EmbeddingRow {
	return e.current
}

func (e *embeddingScan) Err() error {
	if e.err != nil {
		return e.err
	}
	return e.rows.Err()
}

func (e *embeddingScan) Close() error {
	return e.rows.Close()
}

// ==================== Maintenance ====================

// Stats returns document, chunk, and embedding counts plus the database
// size as reported by SQLite's page accounting.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats

	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM embeddings)
	`)
	if err := row.Scan(&stats.Documents, &stats.Chunks, &stats.Embeddings); err != nil {
		return domain.Stats{}, fmt.Errorf("counting rows: %w", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return domain.Stats{}, fmt.Errorf("reading page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return domain.Stats{}, fmt.Errorf("reading page size: %w", err)
	}
	stats.SizeBytes = pageCount * pageSize

	return stats, nil
}

// Optimize reclaims free pages and refreshes the query planner's
// statistics.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyzing database: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string
	var createdAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.Source, &doc.ContentHash, &metadataJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}

	return &doc, nil
}
