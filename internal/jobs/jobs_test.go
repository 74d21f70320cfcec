package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-portal/internal/models"
)

type fakeBroadcaster struct {
	calls atomic.Int32
	role  models.Role
	err   error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, role models.Role, _ models.Notification) (int, error) {
	f.calls.Add(1)
	f.role = role
	return 1, f.err
}

func TestSchoolYearNotifier_OncePerYear(t *testing.T) {
	out := &fakeBroadcaster{}
	n := NewSchoolYearNotifier(out, time.UTC)
	n.now = func() time.Time { return time.Date(2025, time.September, 1, 7, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Run(context.Background()))
	require.NoError(t, n.Run(context.Background()))
	assert.EqualValues(t, 1, out.calls.Load())
	assert.Equal(t, models.Admin, out.role)
}

func TestSchoolYearNotifier_OtherDays(t *testing.T) {
	out := &fakeBroadcaster{}
	n := NewSchoolYearNotifier(out, time.UTC)
	n.now = func() time.Time { return time.Date(2025, time.September, 2, 7, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Run(context.Background()))
	assert.Zero(t, out.calls.Load())
}

func TestSchoolYearNotifier_RetryAfterError(t *testing.T) {
	out := &fakeBroadcaster{err: errors.New("db down")}
	n := NewSchoolYearNotifier(out, time.UTC)
	n.now = func() time.Time { return time.Date(2025, time.September, 1, 7, 0, 0, 0, time.UTC) }

	require.Error(t, n.Run(context.Background()))
	out.err = nil
	require.NoError(t, n.Run(context.Background()))
	assert.EqualValues(t, 2, out.calls.Load())
}

func TestNextDaily(t *testing.T) {
	loc := time.UTC
	before := time.Date(2025, 3, 10, 6, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 10, 7, 0, 0, 0, loc), NextDaily(before, 7, loc))

	at := time.Date(2025, 3, 10, 7, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, loc), NextDaily(at, 7, loc))
}

func TestRunner_RecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, nil)

	var ran atomic.Int32
	assert.NotPanics(t, func() {
		r.run("boom", func(context.Context) error {
			ran.Add(1)
			panic("boom")
		})
	})
	assert.EqualValues(t, 1, ran.Load())
}

func TestRunner_EveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, nil)

	var ran atomic.Int32
	r.Every(5*time.Millisecond, "tick", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return ran.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()
}
