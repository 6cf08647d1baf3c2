package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/ports"
)

// CorpusStore owns the corpus and its derived index behind a single
// coordination discipline: ingests serialize on a mutex, readers use an
// immutable snapshot swapped atomically after every mutation. A reader
// therefore never observes a corpus whose size disagrees with its
// snapshot; stale-but-consistent is the worst case.
type CorpusStore struct {
	repo       ports.CorpusRepository
	index      ports.VectorIndex
	embedder   ports.Embedder
	collection string

	mu       sync.Mutex
	snapshot atomic.Pointer[corpusSnapshot]
	stale    atomic.Bool
}

type corpusSnapshot struct {
	documents []domain.Document
}

func NewCorpusStore(repo ports.CorpusRepository, index ports.VectorIndex, embedder ports.Embedder, collection string) *CorpusStore {
	return &CorpusStore{
		repo:       repo,
		index:      index,
		embedder:   embedder,
		collection: collection,
	}
}

// Ingest upserts documents by id into the durable corpus and the vector
// index, then rebuilds the snapshot. With replace set the corpus is
// cleared first. A failed embedding or index step marks the index stale
// and surfaces the error; the snapshot still tracks the durable corpus
// so keyword fallback stays consistent.
func (s *CorpusStore) Ingest(ctx context.Context, docs []domain.Document, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs = dedupeByID(docs)

	if replace {
		if err := s.repo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear corpus: %w", err)
		}
		if err := s.index.DeleteAll(ctx); err != nil {
			s.stale.Store(true)
			return fmt.Errorf("clear index: %w", err)
		}
	}

	if err := s.repo.UpsertAll(ctx, docs); err != nil {
		return fmt.Errorf("upsert corpus: %w", err)
	}

	indexErr := s.reindex(ctx, docs)

	if err := s.reloadLocked(ctx); err != nil {
		return err
	}

	if indexErr != nil {
		s.stale.Store(true)
		return fmt.Errorf("rebuild index: %w", indexErr)
	}
	s.stale.Store(false)
	return nil
}

// reindex embeds and upserts every document with non-empty text. Empty
// texts cannot be recalled semantically, only via keyword fallback.
func (s *CorpusStore) reindex(ctx context.Context, docs []domain.Document) error {
	embeddable := make([]domain.Document, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Text == "" {
			continue
		}
		embeddable = append(embeddable, doc)
		texts = append(texts, doc.Title+"\n"+doc.Text)
	}
	if len(embeddable) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(embeddable) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(embeddable), len(vectors))
	}
	return s.index.Upsert(ctx, embeddable, vectors)
}

// Load returns the current corpus snapshot, lazily reading the durable
// store after a process restart. An empty corpus is a valid result.
func (s *CorpusStore) Load(ctx context.Context) ([]domain.Document, error) {
	if snap := s.snapshot.Load(); snap != nil {
		return snap.documents, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.snapshot.Load(); snap != nil {
		return snap.documents, nil
	}
	if err := s.reloadLocked(ctx); err != nil {
		return nil, err
	}
	return s.snapshot.Load().documents, nil
}

// Reload re-reads the durable corpus into a fresh snapshot. Used when
// another process reports a corpus mutation.
func (s *CorpusStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *CorpusStore) reloadLocked(ctx context.Context) error {
	docs, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	s.snapshot.Store(&corpusSnapshot{documents: docs})
	return nil
}

// IndexStale reports whether the vector index may lag the corpus.
func (s *CorpusStore) IndexStale() bool {
	return s.stale.Load()
}

func (s *CorpusStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	total, byState, err := s.repo.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus stats: %w", err)
	}
	return &domain.CorpusStats{
		TotalDocuments: total,
		Collection:     s.collection,
		States:         byState,
		IndexStale:     s.stale.Load(),
	}, nil
}

// dedupeByID keeps the last occurrence of each id, preserving first-seen
// order, so a batch with colliding ids behaves like sequential upserts.
func dedupeByID(docs []domain.Document) []domain.Document {
	seen := make(map[string]int, len(docs))
	out := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if at, ok := seen[doc.ID]; ok {
			out[at] = doc
			continue
		}
		seen[doc.ID] = len(out)
		out = append(out, doc)
	}
	return out
}
