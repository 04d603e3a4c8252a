package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
	"github.com/matryer/is"
)

func TestExactSchedulerRefusesWhenCapabilityMissing(t *testing.T) {
	is := is.New(t)

	s := NewExactScheduler(func(context.Context, types.TriggerPayload, bool) {}, false)

	is.Equal(s.CanScheduleExact(), false)
	is.Equal(s.ScheduleExact("t1", time.Now().Add(time.Hour).UnixMilli(), types.TriggerPayload{}), false)
}

func TestExactSchedulerFiresDueTrigger(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := newRecorder()
	s := NewExactScheduler(fired.handler, true)
	s.Start(ctx)

	payload := types.TriggerPayload{AlarmID: "alarm-01", StationName: "NRJ"}
	ok := s.ScheduleExact("t1", time.Now().Add(10*time.Millisecond).UnixMilli(), payload)
	is.True(ok)

	got := fired.wait(t, time.Second)
	is.Equal(got.AlarmID, "alarm-01")
	is.Equal(got.StationName, "NRJ")
}

func TestExactSchedulerCancelPreventsFiring(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := newRecorder()
	s := NewExactScheduler(fired.handler, true)
	s.Start(ctx)

	s.ScheduleExact("t1", time.Now().Add(30*time.Millisecond).UnixMilli(), types.TriggerPayload{AlarmID: "alarm-01"})
	is.NoErr(s.Cancel("t1"))

	select {
	case <-fired.c:
		t.Fatal("cancelled trigger fired anyway")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExactSchedulerCancelOfUnknownIDFails(t *testing.T) {
	is := is.New(t)

	s := NewExactScheduler(func(context.Context, types.TriggerPayload, bool) {}, true)
	is.Equal(s.Cancel("never-registered"), ErrUnknownHandle)
}

func TestExactSchedulerFiresInOrder(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := newRecorder()
	s := NewExactScheduler(fired.handler, true)
	s.Start(ctx)

	now := time.Now()
	s.ScheduleExact("late", now.Add(60*time.Millisecond).UnixMilli(), types.TriggerPayload{AlarmID: "late"})
	s.ScheduleExact("early", now.Add(20*time.Millisecond).UnixMilli(), types.TriggerPayload{AlarmID: "early"})

	first := fired.wait(t, time.Second)
	second := fired.wait(t, time.Second)
	is.Equal(first.AlarmID, "early")
	is.Equal(second.AlarmID, "late")
}

func TestNotificationSchedulerReturnsOpaqueHandle(t *testing.T) {
	is := is.New(t)

	s := NewNotificationScheduler(func(context.Context, types.TriggerPayload, bool) {}, "", true)

	h1, err := s.ScheduleAt("t1", time.Now().Add(time.Hour), types.TriggerPayload{}, DefaultChannel)
	is.NoErr(err)
	h2, err := s.ScheduleAt("t1", time.Now().Add(time.Hour), types.TriggerPayload{}, DefaultChannel)
	is.NoErr(err)

	is.True(h1 != "")
	is.True(h1 != h2)

	is.NoErr(s.Cancel(h1))
	is.NoErr(s.Cancel(h2))
	is.Equal(s.Cancel(h1), ErrUnknownHandle)
}

func TestNotificationSchedulerUnavailableWithoutPermission(t *testing.T) {
	is := is.New(t)

	s := NewNotificationScheduler(func(context.Context, types.TriggerPayload, bool) {}, "", false)

	is.Equal(s.Available(), false)
	_, err := s.ScheduleAt("t1", time.Now(), types.TriggerPayload{}, DefaultChannel)
	is.True(err != nil)
}

func TestNotificationSchedulerDeliversLocally(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := newRecorder()
	s := NewNotificationScheduler(fired.handler, "", true)
	s.Start(ctx)

	_, err := s.ScheduleAt("t1", time.Now().Add(10*time.Millisecond), types.TriggerPayload{AlarmID: "alarm-01"}, DefaultChannel)
	is.NoErr(err)

	got := fired.wait(t, time.Second)
	is.Equal(got.AlarmID, "alarm-01")
}

type recorder struct {
	mu sync.Mutex
	c  chan types.TriggerPayload
}

func newRecorder() *recorder {
	return &recorder{c: make(chan types.TriggerPayload, 8)}
}

func (r *recorder) handler(ctx context.Context, payload types.TriggerPayload, userInitiated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c <- payload
}

func (r *recorder) wait(t *testing.T, timeout time.Duration) types.TriggerPayload {
	t.Helper()
	select {
	case p := <-r.c:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for trigger delivery")
		return types.TriggerPayload{}
	}
}
