package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

type countingSource struct {
	calls atomic.Int64
}

func (s *countingSource) LatestRainfall(context.Context, string, int) ([]domain.Reading, error) {
	s.calls.Add(1)
	return []domain.Reading{
		{StationID: "R1", State: "SEL", RecordedAt: "2026-08-28T10:00:00Z", Value: floatPtr(10)},
	}, nil
}

func (s *countingSource) LatestWaterLevel(context.Context, string, int) ([]domain.Reading, error) {
	return nil, nil
}

type countingObserver struct {
	started  atomic.Int64
	finished atomic.Int64
	lastErr  atomic.Value
}

func (o *countingObserver) StartRefresh() {
	o.started.Add(1)
}

func (o *countingObserver) FinishRefresh(_ time.Duration, _ int, err error) {
	o.finished.Add(1)
	if err != nil {
		o.lastErr.Store(err)
	}
}

func newRefresherFixture(clock clockwork.Clock, runOnStart bool) (*Refresher, *countingSource) {
	source := &countingSource{}
	repo := &fakeRepo{}
	store := newTestStore(repo, &fakeIndex{}, &fakeEmbedder{})
	ingest := NewIngestUseCase(source, store, &fakeStatusStore{}, nil, clock, testLogger())
	return NewRefresher(ingest, time.Minute, 0, runOnStart, clock, testLogger()), source
}

func TestRefresherRunsOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	refresher, source := newRefresherFixture(clock, false)
	observer := &countingObserver{}
	refresher.SetObserver(observer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.EqualValues(t, 0, source.calls.Load())

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return source.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return source.calls.Load() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.EqualValues(t, observer.started.Load(), observer.finished.Load())
	assert.Nil(t, observer.lastErr.Load())
}

func TestRefresherRunOnStart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	refresher, source := newRefresherFixture(clock, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	require.Eventually(t, func() bool {
		return source.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRefresherSurvivesIngestFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &fakeSource{rainErr: errFakeBackend}
	repo := &fakeRepo{}
	store := newTestStore(repo, &fakeIndex{}, &fakeEmbedder{})
	status := &fakeStatusStore{}
	ingest := NewIngestUseCase(source, store, status, nil, clock, testLogger())
	refresher := NewRefresher(ingest, time.Minute, 0, true, clock, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	// The initial failing pass records a failure and keeps the loop up.
	require.Eventually(t, func() bool {
		return status.failureCount() >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	cancel()
	require.NoError(t, <-done)
}
