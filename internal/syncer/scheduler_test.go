package syncer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type firedKeys struct {
	mu   sync.Mutex
	keys []string
}

func (f *firedKeys) fire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
}

func (f *firedKeys) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func TestSchedulerFiresOnceAfterQuiescence(t *testing.T) {
	fired := &firedKeys{}
	sched := NewScheduler(20*time.Millisecond, fired.fire)
	defer sched.Stop()

	for i := 0; i < 10; i++ {
		sched.Schedule("room-1")
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(fired.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	// No second firing without a new edit.
	time.Sleep(60 * time.Millisecond)
	require.Len(t, fired.snapshot(), 1)
}

func TestSchedulerKeysAreIndependent(t *testing.T) {
	fired := &firedKeys{}
	sched := NewScheduler(10*time.Millisecond, fired.fire)
	defer sched.Stop()

	sched.Schedule("room-1")
	sched.Schedule("room-2")

	require.Eventually(t, func() bool {
		return len(fired.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
	require.ElementsMatch(t, []string{"room-1", "room-2"}, fired.snapshot())
}

func TestSchedulerRearmsAfterFiring(t *testing.T) {
	fired := &firedKeys{}
	sched := NewScheduler(10*time.Millisecond, fired.fire)
	defer sched.Stop()

	sched.Schedule("room-1")
	require.Eventually(t, func() bool {
		return len(fired.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	sched.Schedule("room-1")
	require.Eventually(t, func() bool {
		return len(fired.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerFlush(t *testing.T) {
	fired := &firedKeys{}
	sched := NewScheduler(time.Hour, fired.fire)
	defer sched.Stop()

	sched.Schedule("room-1")
	sched.Schedule("room-2")
	sched.Flush()

	require.ElementsMatch(t, []string{"room-1", "room-2"}, fired.snapshot())
}

func TestSchedulerStopCancelsPending(t *testing.T) {
	fired := &firedKeys{}
	sched := NewScheduler(10*time.Millisecond, fired.fire)

	sched.Schedule("room-1")
	sched.Stop()
	sched.Schedule("room-2")

	time.Sleep(40 * time.Millisecond)
	require.Empty(t, fired.snapshot())
}
