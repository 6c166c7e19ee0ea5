package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vectlabs/vectdb/internal/core/domain"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
)

// fakeStore is an in-memory ContentStore for service tests.
type fakeStore struct {
	mu         sync.Mutex
	docs       map[string]*domain.Document
	byHash     map[string]string
	chunks     map[string]domain.Chunk
	embeddings map[string]domain.Embedding

	insertChunksErr error
	upsertErr       func(domain.Embedding) error
}

var _ driven.ContentStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:       make(map[string]*domain.Document),
		byHash:     make(map[string]string),
		chunks:     make(map[string]domain.Chunk),
		embeddings: make(map[string]domain.Embedding),
	}
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *domain.Document) (*domain.Document, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.byHash[doc.ContentHash]; ok {
		return f.docs[id], false, nil
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	f.byHash[doc.ContentHash] = doc.ID
	return &copied, true, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.docs[id], nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(f.byHash, doc.ContentHash)
	delete(f.docs, id)
	for chunkID, chunk := range f.chunks {
		if chunk.DocumentID == id {
			delete(f.chunks, chunkID)
			delete(f.embeddings, chunkID)
		}
	}
	return nil
}

func (f *fakeStore) InsertChunk(_ context.Context, chunk domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[chunk.ID] = chunk
	return nil
}

func (f *fakeStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if f.insertChunksErr != nil {
		return f.insertChunksErr
	}
	for _, chunk := range chunks {
		if err := f.InsertChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) GetChunksByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Chunk
	for _, chunk := range f.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (f *fakeStore) UpsertEmbedding(_ context.Context, emb domain.Embedding) error {
	if f.upsertErr != nil {
		if err := f.upsertErr(emb); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeddings[emb.ChunkID] = emb
	return nil
}

func (f *fakeStore) GetEmbedding(_ context.Context, chunkID string) (*domain.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	emb, ok := f.embeddings[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &emb, nil
}

func (f *fakeStore) ScanEmbeddings(_ context.Context, model string) (driven.EmbeddingScan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rows []driven.EmbeddingRow
	for chunkID, emb := range f.embeddings {
		if emb.Model != model {
			continue
		}
		chunk := f.chunks[chunkID]
		doc := f.docs[chunk.DocumentID]
		row := driven.EmbeddingRow{
			ChunkID:      chunkID,
			ChunkIndex:   chunk.Index,
			ChunkContent: chunk.Content,
			TokenCount:   chunk.TokenCount,
			DocumentID:   chunk.DocumentID,
			Vector:       emb.Vector,
		}
		if doc != nil {
			row.Source = doc.Source
			row.Metadata = doc.Metadata
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ChunkID < rows[j].ChunkID })
	return &sliceScan{rows: rows}, nil
}

func (f *fakeStore) Stats(_ context.Context) (domain.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return domain.Stats{
		Documents:  int64(len(f.docs)),
		Chunks:     int64(len(f.chunks)),
		Embeddings: int64(len(f.embeddings)),
	}, nil
}

// seedEmbedding inserts a chunk with a fixed ID and its embedding,
// bypassing ingestion. Used to control tie-break ordering in tests.
func (f *fakeStore) seedEmbedding(chunkID, docID string, index int, model string, vector []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.chunks[chunkID] = domain.Chunk{
		ID:         chunkID,
		DocumentID: docID,
		Index:      index,
		Content:    fmt.Sprintf("chunk %s", chunkID),
	}
	f.embeddings[chunkID] = domain.Embedding{
		ChunkID:   chunkID,
		Model:     model,
		Vector:    vector,
		Dimension: len(vector),
	}
}

// sliceScan is an EmbeddingScan over a prepared slice.
type sliceScan struct {
	rows []driven.EmbeddingRow
	pos  int
}

func (s *sliceScan) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceScan) Row() driven.EmbeddingRow { return s.rows[s.pos-1] }
func (s *sliceScan) Err() error               { return nil }
func (s *sliceScan) Close() error             { return nil }

// fakeEmbedder is a deterministic EmbeddingService for service tests.
type fakeEmbedder struct {
	mu         sync.Mutex
	batchSizes []int
	calls      int

	queryVector []float32
	embedErr    error
	failOnCall  int // 1-based EmbedBatch call that fails; 0 disables
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

// vectorFor derives a stable vector from text length.
func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (f *fakeEmbedder) Embed(ctx context.Context, model, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))

	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.failOnCall > 0 && f.calls >= f.failOnCall {
		return nil, fmt.Errorf("%w: injected failure", domain.ErrEmbeddingUnavailable)
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		if f.queryVector != nil {
			vecs[i] = f.queryVector
		} else {
			vecs[i] = vectorFor(text)
		}
	}
	return vecs, nil
}

func (f *fakeEmbedder) HealthCheck(context.Context) bool { return true }

func (f *fakeEmbedder) ListModels(context.Context) ([]driven.ModelInfo, error) {
	return []driven.ModelInfo{{Name: "fake-model"}}, nil
}

func (f *fakeEmbedder) HasModel(_ context.Context, name string) (bool, error) {
	return name == "fake-model", nil
}
