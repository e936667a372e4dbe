package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestJanitor_RegisterRejectsBadSchedule(t *testing.T) {
	j := NewJanitor(arbor.NewLogger())
	err := j.Register("bad", "every minute", func() int { return 0 })
	assert.Error(t, err)
}

func TestJanitor_RunNowSweepsStore(t *testing.T) {
	store, clock := newTestStore(StoreOptions{TTL: time.Minute})
	ctx := context.Background()
	id := store.CreateJob(ctx)
	require.NoError(t, store.FailJob(ctx, id, "x"))
	clock.Advance(2 * time.Minute)

	j := NewJanitor(arbor.NewLogger())
	require.NoError(t, j.RegisterStoreSweep(store, ""))
	j.RunNow()

	assert.Equal(t, 0, store.Len())
}

func TestJanitor_TaskPanicIsContained(t *testing.T) {
	j := NewJanitor(arbor.NewLogger())
	calls := 0
	require.NoError(t, j.Register("panicky", "@every 1h", func() int {
		calls++
		panic("boom")
	}))

	assert.NotPanics(t, j.RunNow)
	assert.Equal(t, 1, calls)
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(arbor.NewLogger())
	require.NoError(t, j.Register("noop", "@every 1h", func() int { return 0 }))

	j.Start()
	j.Start()
	j.Stop()
	j.Stop()
}
