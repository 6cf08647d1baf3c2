package usecase

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

func newIngestFixture(source *fakeSource) (*IngestUseCase, *fakeRepo, *fakeStatusStore, *fakeBus) {
	repo := &fakeRepo{}
	index := &fakeIndex{}
	store := newTestStore(repo, index, &fakeEmbedder{})
	status := &fakeStatusStore{}
	bus := &fakeBus{}
	uc := NewIngestUseCase(source, store, status, bus, clockwork.NewFakeClock(), testLogger())
	return uc, repo, status, bus
}

func TestIngestFromUpstreamBuildsAllDocumentKinds(t *testing.T) {
	source := &fakeSource{
		rain: []domain.Reading{
			{StationID: "R1", StationName: "A", State: "SEL", RecordedAt: "2026-08-28T10:00:00Z", Value: floatPtr(50)},
		},
		water: []domain.Reading{
			{StationID: "W1", StationName: "B", State: "JHR", RecordedAt: "2026-08-28T09:00:00Z", Value: floatPtr(3)},
		},
	}
	uc, repo, status, bus := newIngestFixture(source)

	result, err := uc.IngestFromUpstream(context.Background(), "", 0, true)
	if err != nil {
		t.Fatalf("IngestFromUpstream() error = %v", err)
	}

	// 1 rainfall + 1 water level + 2 per-state risk documents.
	if result.Ingested != 4 || result.Total != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Source != "express" {
		t.Fatalf("unexpected source: %s", result.Source)
	}

	kinds := make(map[domain.DocType]int)
	for _, doc := range repo.docs {
		kinds[doc.Type]++
	}
	if kinds[domain.TypeRainfall] != 1 || kinds[domain.TypeWaterLevel] != 1 || kinds[domain.TypeFloodRisk] != 2 {
		t.Fatalf("unexpected document mix: %v", kinds)
	}

	if len(status.successes) != 1 || status.successes[0] != 4 {
		t.Fatalf("expected recorded success, got %+v", status.successes)
	}
	if bus.published != 1 {
		t.Fatalf("expected one corpus update event, got %d", bus.published)
	}
}

func TestIngestFromUpstreamFetchFailureRecordsStatus(t *testing.T) {
	source := &fakeSource{rainErr: errFakeBackend}
	uc, repo, status, bus := newIngestFixture(source)

	_, err := uc.IngestFromUpstream(context.Background(), "", 0, true)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if len(status.failures) != 1 {
		t.Fatalf("expected recorded failure, got %+v", status.failures)
	}
	if len(repo.docs) != 0 {
		t.Fatalf("failed fetch must not touch the corpus")
	}
	if bus.published != 0 {
		t.Fatalf("failed ingest must not publish")
	}
}

func TestIngestDocumentsNormalizesAndSkipsMissingIDs(t *testing.T) {
	uc, repo, _, bus := newIngestFixture(&fakeSource{})

	result, err := uc.IngestDocuments(context.Background(), []domain.Document{
		{ID: "custom-1", State: "sarawak", RecordedAt: "2026-08-27T23:00:00Z", Text: "note"},
		{ID: "", Text: "dropped"},
	})
	if err != nil {
		t.Fatalf("IngestDocuments() error = %v", err)
	}
	if result.Ingested != 1 || result.Source != "manual" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(repo.docs) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(repo.docs))
	}
	doc := repo.docs[0]
	if doc.State != "SWK" || doc.RecordedDate != "2026-08-27" || doc.Source != "manual" {
		t.Fatalf("document not normalized: %+v", doc)
	}
	if bus.published != 1 {
		t.Fatalf("expected one corpus update event, got %d", bus.published)
	}
}

func TestIngestDocumentsAppendsWithoutReplacing(t *testing.T) {
	uc, repo, _, _ := newIngestFixture(&fakeSource{})

	if _, err := uc.IngestDocuments(context.Background(), []domain.Document{{ID: "a", Text: "x"}}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	result, err := uc.IngestDocuments(context.Background(), []domain.Document{{ID: "b", Text: "y"}})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("manual ingest must append, got total %d", result.Total)
	}
	if repo.deleted != 0 {
		t.Fatalf("manual ingest must not clear the corpus")
	}
}
