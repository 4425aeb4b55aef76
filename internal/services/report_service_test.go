package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreport/internal/adapters"
	"famreport/internal/core"
	"famreport/internal/storage"
	"famreport/internal/storage/memory"
)

type recordingPublisher struct {
	mu       sync.Mutex
	versions []int64
	err      error
}

func (p *recordingPublisher) PublishReportSaved(_ context.Context, version int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	return p.err
}

func newTestService(pub SavePublisher) *ReportService {
	return NewReportService(adapters.NewStoreAdapter(memory.New()), pub, nil)
}

func TestReportService_CurrentEmpty(t *testing.T) {
	svc := newTestService(nil)

	r, _, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoReport)
	assert.Equal(t, core.Default().Payload(), r.Payload())
}

func TestReportService_MutateSavesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	r, rec, err := svc.Mutate(ctx, func(r core.Report) (core.Report, error) {
		return core.AddMonth(r, "2025-03")
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Version)
	assert.True(t, r.HasPeriod(core.ViewMonth, "2025-03"))

	_, rec, err = svc.Mutate(ctx, func(r core.Report) (core.Report, error) {
		return core.AddMonth(r, "2025-04")
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.Version)
	assert.Equal(t, []int64{1, 2}, pub.versions)

	stored, _, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.True(t, stored.HasPeriod(core.ViewMonth, "2025-04"))
}

func TestReportService_ValidationFailureWritesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)

	_, _, err := svc.Mutate(context.Background(), func(r core.Report) (core.Report, error) {
		return core.AddMonth(r, "2025-13")
	})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	_, _, err = svc.Current(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoReport)
	assert.Empty(t, pub.versions)
}

func TestReportService_PublishFailureIsNotReturned(t *testing.T) {
	svc := newTestService(&recordingPublisher{err: errors.New("broker down")})

	_, rec, err := svc.Replace(context.Background(), core.Default().Payload())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Version)
}

func TestReportService_ReplaceMigrates(t *testing.T) {
	svc := newTestService(nil)

	r, _, err := svc.Replace(context.Background(), core.Payload{
		Years:  []string{"2024"},
		Groups: []core.Group{{ID: "g", Type: "income", Name: "Pay"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024"}, r.Years())
	assert.Len(t, r.FlowGroups(), 1)
}

func TestReportService_Delete(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx), "deleting an empty store succeeds")

	_, _, err := svc.Replace(ctx, core.Default().Payload())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx))

	_, _, err = svc.Current(ctx)
	assert.ErrorIs(t, err, storage.ErrNoReport)
}

func TestReportService_ConcurrentMutationsAreSerialized(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.Mutate(ctx, func(r core.Report) (core.Report, error) {
				next, _ := core.AddNote(r, "n", "v")
				return next, nil
			})
		}()
	}
	wg.Wait()

	r, rec, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, rec.Version)
	assert.Len(t, r.Notes(), len(core.Default().Notes())+10)
}
