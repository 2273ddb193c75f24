package history

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PublishesToAllSubscribers(t *testing.T) {
	n := newNotifier(zerolog.Nop())

	var mu sync.Mutex
	var got []Event
	n.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	n.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})

	n.publish(Event{GSN: 1})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
}

func TestNotifier_UnsubscribeStopsDelivery(t *testing.T) {
	n := newNotifier(zerolog.Nop())

	count := 0
	tok := n.Subscribe(func(Event) { count++ })
	n.publish(Event{GSN: 1})
	require.Equal(t, 1, count)

	n.Unsubscribe(tok)
	n.publish(Event{GSN: 2})
	require.Equal(t, 1, count)
}

func TestNotifier_PanicInSubscriberDoesNotPropagate(t *testing.T) {
	n := newNotifier(zerolog.Nop())

	n.Subscribe(func(Event) { panic("boom") })

	delivered := false
	n.Subscribe(func(Event) { delivered = true })

	require.NotPanics(t, func() { n.publish(Event{GSN: 1}) })
	require.True(t, delivered)
}

func TestNotifier_UnsubscribeUnknownTokenIsNoop(t *testing.T) {
	n := newNotifier(zerolog.Nop())
	require.NotPanics(t, func() { n.Unsubscribe(Token(999)) })
}
