package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("s1")
	require.Equal(t, 1, b.Subscribers("s1"))

	evt := RunEvent{Type: EventRunImproved, Data: map[string]any{"x": 1}}
	b.Publish("s1", evt)
	b.Publish("other", RunEvent{Type: EventRunStarted})

	select {
	case got := <-ch:
		require.Equal(t, evt.Type, got.Type)
		require.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected event %+v", got)
	default:
	}

	b.Unsubscribe("s1", ch)
	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
	require.Zero(t, b.Subscribers("s1"))

	// a second unsubscribe must not close twice
	require.NotPanics(t, func() { b.Unsubscribe("s1", ch) })
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("s1")
	for i := 0; i < 20; i++ {
		b.Publish("s1", RunEvent{Type: EventRunImproved, Data: map[string]any{"i": i}})
	}
	require.Len(t, ch, cap(ch))
	first := <-ch
	require.Equal(t, 0, first.Data["i"])
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("s1")
	c := b.Subscribe("s2")
	require.NoError(t, b.Close())
	_, ok := <-a
	require.False(t, ok)
	_, ok = <-c
	require.False(t, ok)
	require.NotPanics(t, func() { b.Unsubscribe("s1", a) })
}
