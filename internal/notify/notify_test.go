package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestShowReplacesCurrent(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()

	c.Show("Added to cart", false)
	c.Show("Update failed", true)

	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "Update failed", n.Message)
	assert.True(t, n.IsError)
	assert.EqualValues(t, 2, n.ID)
}

func TestAutoDismiss(t *testing.T) {
	c := NewCenter(30 * time.Millisecond)
	defer c.Close()
	events := c.Subscribe()

	c.Show("hello", false)
	assert.Equal(t, EventShown, recv(t, events).Kind)

	evt := recv(t, events)
	assert.Equal(t, EventDismissed, evt.Kind)
	assert.Equal(t, "hello", evt.Notification.Message)

	_, ok := c.Current()
	assert.False(t, ok)
}

func TestShowResetsTimer(t *testing.T) {
	c := NewCenter(80 * time.Millisecond)
	defer c.Close()
	events := c.Subscribe()

	c.Show("first", false)
	time.Sleep(50 * time.Millisecond)
	c.Show("second", false)
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first Show, but only 50ms after the second.
	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", n.Message)

	assert.Equal(t, "first", recv(t, events).Notification.Message)
	assert.Equal(t, "second", recv(t, events).Notification.Message)
	dismissed := recv(t, events)
	assert.Equal(t, EventDismissed, dismissed.Kind)
	assert.Equal(t, "second", dismissed.Notification.Message, "first timer never fired a dismissal")
}

func TestDismissAndClose(t *testing.T) {
	c := NewCenter(time.Minute)
	events := c.Subscribe()

	c.Show("x", false)
	c.Dismiss()
	c.Dismiss() // no-op

	assert.Equal(t, EventShown, recv(t, events).Kind)
	assert.Equal(t, EventDismissed, recv(t, events).Kind)

	c.Close()
	_, open := <-events
	assert.False(t, open)

	c.Show("after close", false)
	_, ok := c.Current()
	assert.False(t, ok)
}

func TestUnsubscribe(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()
	events := c.Subscribe()
	c.Unsubscribe(events)

	_, open := <-events
	assert.False(t, open)
	c.Show("nobody listening", false)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Show("ok", false)
	r.Show("bad", true)

	assert.Len(t, r.All(), 2)
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, "bad", r.Errors()[0].Message)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "bad", last.Message)

	r.Reset()
	assert.Empty(t, r.All())
}
