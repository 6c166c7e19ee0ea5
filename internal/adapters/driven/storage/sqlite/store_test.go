package sqlite

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "vectdb-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// seedDocument inserts a fresh document built from the given content.
func seedDocument(t *testing.T, store *Store, source, content string) *domain.Document {
	t.Helper()
	doc := domain.NewDocument(source, content)
	stored, created, err := store.CreateDocument(context.Background(), doc)
	require.NoError(t, err)
	require.True(t, created)
	return stored
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_Reopen(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "vectdb-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	doc := seedDocument(t, store, "a.txt", "persisted content")
	require.NoError(t, store.Close())

	// Re-running migrations against an existing database is a no-op.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
}

func TestCreateDocument_Dedup(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := domain.NewDocument("a.txt", "same content")
	stored, created, err := store.CreateDocument(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, stored.ID)

	// Same content under a different source dedups on hash.
	second := domain.NewDocument("b.txt", "same content")
	stored, created, err = store.CreateDocument(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, stored.ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
}

func TestGetDocumentByHash(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "findable")

	got, err := store.GetDocumentByHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = store.GetDocumentByHash(ctx, "no-such-hash")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocument_MetadataRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := domain.NewDocument("a.txt", "with metadata").
		WithMetadata("lang", "en").
		WithMetadata("origin", "test")
	_, _, err := store.CreateDocument(ctx, doc)
	require.NoError(t, err)

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "en", got.Metadata["lang"])
	assert.Equal(t, "test", got.Metadata["origin"])
}

func TestDeleteDocument_Cascades(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "to be deleted")
	chunk := domain.NewChunk(doc.ID, 0, "chunk content")
	require.NoError(t, store.InsertChunk(ctx, chunk))
	require.NoError(t, store.UpsertEmbedding(ctx, domain.NewEmbedding(chunk.ID, "test-model", []float32{1, 2, 3})))

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	_, err := store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.GetChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = store.GetEmbedding(ctx, chunk.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.DeleteDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertChunk_DuplicateIndex(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "chunked")
	require.NoError(t, store.InsertChunk(ctx, domain.NewChunk(doc.ID, 0, "first")))

	err := store.InsertChunk(ctx, domain.NewChunk(doc.ID, 0, "second at same index"))
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestInsertChunks_Transactional(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "batch chunked")
	require.NoError(t, store.InsertChunk(ctx, domain.NewChunk(doc.ID, 1, "occupies index 1")))

	batch := []domain.Chunk{
		domain.NewChunk(doc.ID, 0, "zero"),
		domain.NewChunk(doc.ID, 1, "collides"),
		domain.NewChunk(doc.ID, 2, "two"),
	}
	err := store.InsertChunks(ctx, batch)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	// The failed batch must not have left partial rows behind.
	chunks, err := store.GetChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].Index)
}

func TestGetChunksByDocument_Ordered(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "ordering")
	require.NoError(t, store.InsertChunks(ctx, []domain.Chunk{
		domain.NewChunk(doc.ID, 2, "third"),
		domain.NewChunk(doc.ID, 0, "first"),
		domain.NewChunk(doc.ID, 1, "second"),
	}))

	chunks, err := store.GetChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{chunks[0].Index, chunks[1].Index, chunks[2].Index})
}

func TestUpsertEmbedding_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "embedded")
	chunk := domain.NewChunk(doc.ID, 0, "chunk")
	require.NoError(t, store.InsertChunk(ctx, chunk))

	vector := []float32{0.1, -2.5, 3.75, 0}
	require.NoError(t, store.UpsertEmbedding(ctx, domain.NewEmbedding(chunk.ID, "nomic-embed-text", vector)))

	got, err := store.GetEmbedding(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", got.Model)
	assert.Equal(t, 4, got.Dimension)
	assert.Equal(t, vector, got.Vector)
}

func TestUpsertEmbedding_Replaces(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "re-embedded")
	chunk := domain.NewChunk(doc.ID, 0, "chunk")
	require.NoError(t, store.InsertChunk(ctx, chunk))

	require.NoError(t, store.UpsertEmbedding(ctx, domain.NewEmbedding(chunk.ID, "model-a", []float32{1, 2})))
	require.NoError(t, store.UpsertEmbedding(ctx, domain.NewEmbedding(chunk.ID, "model-b", []float32{3, 4, 5})))

	got, err := store.GetEmbedding(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "model-b", got.Model)
	assert.Equal(t, []float32{3, 4, 5}, got.Vector)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Embeddings)
}

func TestUpsertEmbedding_Validation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	err := store.UpsertEmbedding(ctx, domain.Embedding{
		ChunkID: "c1", Model: "", Vector: []float32{1}, Dimension: 1,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.UpsertEmbedding(ctx, domain.Embedding{
		ChunkID: "c1", Model: "m", Vector: []float32{1, 2}, Dimension: 3,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestScanEmbeddings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := domain.NewDocument("a.txt", "scanned").
		WithMetadata("topic", "testing")
	_, _, err := store.CreateDocument(ctx, doc)
	require.NoError(t, err)

	var wantChunks []string
	for i := 0; i < 3; i++ {
		chunk := domain.NewChunk(doc.ID, i, "chunk content")
		require.NoError(t, store.InsertChunk(ctx, chunk))
		require.NoError(t, store.UpsertEmbedding(ctx,
			domain.NewEmbedding(chunk.ID, "scan-model", []float32{float32(i), 1})))
		wantChunks = append(wantChunks, chunk.ID)
	}

	// One embedding under a different model must not appear in the scan.
	other := domain.NewChunk(doc.ID, 3, "other model")
	require.NoError(t, store.InsertChunk(ctx, other))
	require.NoError(t, store.UpsertEmbedding(ctx,
		domain.NewEmbedding(other.ID, "other-model", []float32{9, 9})))

	scan, err := store.ScanEmbeddings(ctx, "scan-model")
	require.NoError(t, err)
	defer scan.Close()

	var got []string
	for scan.Next() {
		row := scan.Row()
		assert.Equal(t, doc.ID, row.DocumentID)
		assert.Equal(t, "a.txt", row.Source)
		assert.Equal(t, "testing", row.Metadata["topic"])
		assert.Len(t, row.Vector, 2)
		got = append(got, row.ChunkID)
	}
	require.NoError(t, scan.Err())

	assert.ElementsMatch(t, wantChunks, got)
}

func TestScanEmbeddings_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	scan, err := store.ScanEmbeddings(context.Background(), "nothing-here")
	require.NoError(t, err)
	defer scan.Close()

	assert.False(t, scan.Next())
	assert.NoError(t, scan.Err())
}

// truncateVector shortens a stored blob behind the store's back,
// simulating on-disk corruption. The dimension column keeps its
// original value.
func truncateVector(t *testing.T, store *Store, chunkID string, bytes int) {
	t.Helper()
	_, err := store.db.Exec(
		`UPDATE embeddings SET vector = substr(vector, 1, ?) WHERE chunk_id = ?`,
		bytes, chunkID)
	require.NoError(t, err)
}

func TestGetEmbedding_TruncatedBlob(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "truncated")
	chunk := domain.NewChunk(doc.ID, 0, "chunk")
	require.NoError(t, store.InsertChunk(ctx, chunk))
	require.NoError(t, store.UpsertEmbedding(ctx,
		domain.NewEmbedding(chunk.ID, "nomic-embed-text", []float32{1, 2, 3, 4})))

	// 8 bytes decode to 2 floats, but the row still declares 4.
	truncateVector(t, store, chunk.ID, 8)

	_, err := store.GetEmbedding(ctx, chunk.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "dimension 4")
}

func TestScanEmbeddings_TruncatedBlob(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "truncated scan")
	chunk := domain.NewChunk(doc.ID, 0, "chunk")
	require.NoError(t, store.InsertChunk(ctx, chunk))
	require.NoError(t, store.UpsertEmbedding(ctx,
		domain.NewEmbedding(chunk.ID, "scan-model", []float32{1, 2, 3, 4})))

	truncateVector(t, store, chunk.ID, 8)

	scan, err := store.ScanEmbeddings(ctx, "scan-model")
	require.NoError(t, err)
	defer scan.Close()

	assert.False(t, scan.Next())
	assert.ErrorIs(t, scan.Err(), domain.ErrValidation)
}

func TestStats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Documents)
	assert.Positive(t, stats.SizeBytes)

	doc := seedDocument(t, store, "a.txt", "counted")
	chunk := domain.NewChunk(doc.ID, 0, "chunk")
	require.NoError(t, store.InsertChunk(ctx, chunk))
	require.NoError(t, store.UpsertEmbedding(ctx, domain.NewEmbedding(chunk.ID, "m", []float32{1})))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, int64(1), stats.Chunks)
	assert.Equal(t, int64(1), stats.Embeddings)
}

func TestOptimize(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := seedDocument(t, store, "a.txt", "vacuumed")
	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	assert.NoError(t, store.Optimize(ctx))
}

func TestVectorCodec(t *testing.T) {
	vectors := [][]float32{
		nil,
		{},
		{0},
		{1.5, -2.25, 3.125},
		{math.MaxFloat32, -math.MaxFloat32},
	}

	for _, v := range vectors {
		round := bytesToFloat32Slice(float32SliceToBytes(v))
		if len(v) == 0 {
			assert.Nil(t, round)
			continue
		}
		assert.Equal(t, v, round)
	}
}
