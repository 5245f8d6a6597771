package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/models"
	"smartreceipts/pkg/nfce"
)

type fakeUploads struct {
	failed      []models.Upload
	listErr     error
	okIDs       map[uint]bool
	processed   []uint
	maxAttempts int
	limit       int
}

func (f *fakeUploads) Failed(_ context.Context, maxAttempts, limit int) ([]models.Upload, error) {
	f.maxAttempts, f.limit = maxAttempts, limit
	return f.failed, f.listErr
}

func (f *fakeUploads) Process(_ context.Context, up *models.Upload) (nfce.Receipt, error) {
	f.processed = append(f.processed, up.ID)
	if f.okIDs[up.ID] {
		return nfce.Receipt{ID: up.ID * 10}, nil
	}
	return nfce.Receipt{}, errors.New("still unreadable")
}

func TestRunOnceCountsRecovered(t *testing.T) {
	f := &fakeUploads{
		failed: []models.Upload{{ID: 1}, {ID: 2}, {ID: 3}},
		okIDs:  map[uint]bool{2: true},
	}
	s := New(f)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Retried: 3, Recovered: 1}, res)
	assert.Equal(t, []uint{1, 2, 3}, f.processed)
	assert.Equal(t, defaultMaxAttempts, f.maxAttempts)
	assert.Equal(t, defaultBatchSize, f.limit)

	started, completed := s.LastRun()
	assert.False(t, started.IsZero())
	assert.False(t, completed.Before(started))
}

func TestRunOnceListError(t *testing.T) {
	s := New(&fakeUploads{listErr: errors.New("db down")})
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnceSkipsWhileRunning(t *testing.T) {
	f := &fakeUploads{failed: []models.Upload{{ID: 1}}}
	s := New(f)
	s.running = true

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, f.processed)
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	f := &fakeUploads{failed: []models.Upload{{ID: 1}, {ID: 2}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(f).RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Retried)
}

func TestStartRejectsBadCron(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := Start(ctx, &fakeUploads{}, "not a cron")
	assert.Error(t, err)
}
