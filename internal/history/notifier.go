package history

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is the record_appended notification payload: delivered once
// per successful append, after the record is durably on disk.
type Event struct {
	Workspace  string
	Project    string
	MessageID  string
	GSN        uint64
	CurrentGSN uint64
}

// Subscriber receives record_appended events, invoked synchronously in
// the thread that performed the append. A Subscriber that must not
// block the writer should hand off to its own queue.
type Subscriber func(Event)

// Token is returned by Subscribe; Unsubscribe(token) removes the
// registration. There is no weak-reference magic here: subscribers own
// their token and are responsible for unsubscribing when done.
type Token uint64

// Notifier is a small synchronous publish/subscribe hub. Panics raised
// by a subscriber are recovered and logged; they never propagate to
// the writer that triggered the publish.
type Notifier struct {
	mu     sync.Mutex
	next   Token
	subs   map[Token]Subscriber
	logger zerolog.Logger
}

func newNotifier(logger zerolog.Logger) *Notifier {
	return &Notifier{subs: make(map[Token]Subscriber), logger: logger}
}

// Subscribe registers fn and returns a token that can later be passed
// to Unsubscribe.
func (n *Notifier) Subscribe(fn Subscriber) Token {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	tok := n.next
	n.subs[tok] = fn
	return tok
}

// Unsubscribe removes a prior subscription. Unsubscribing an unknown
// or already-removed token is a no-op.
func (n *Notifier) Unsubscribe(tok Token) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, tok)
}

// publish invokes every current subscriber synchronously, in
// registration order is not guaranteed (map iteration), recovering
// from and logging any panic so one misbehaving subscriber can't fail
// the writer's append.
func (n *Notifier) publish(e Event) {
	n.mu.Lock()
	subs := make([]Subscriber, 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		n.invokeSafely(fn, e)
	}
}

func (n *Notifier) invokeSafely(fn Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error().Interface("panic", r).Msg("record_appended subscriber panicked")
		}
	}()
	fn(e)
}
