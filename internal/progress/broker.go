package progress

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/model"
)

// EventType distinguishes the two message shapes on a run's stream.
type EventType string

const (
	EventTick  EventType = "tick"
	EventFinal EventType = "final"
)

// Event is one message delivered to a run's subscribers.
type Event struct {
	Type   EventType           `json:"type"`
	Tick   *model.ProgressTick `json:"tick,omitempty"`
	Result *model.ImportResult `json:"result,omitempty"`
}

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it.
const subscriberBuffer = 32

// Broker is an in-memory pub/sub hub keyed by run token. It implements
// Reporter for the publishing side; the serve command bridges subscriptions
// to websocket clients. Publishing never blocks the pipeline: events to a
// full subscriber channel are dropped with a logged warning.
type Broker struct {
	mu   sync.Mutex
	subs map[string][]chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for a run token. The returned cancel
// function removes the subscription and closes the channel.
func (b *Broker) Subscribe(token string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[token] = append(b.subs[token], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[token]
		for i, c := range chans {
			if c == ch {
				b.subs[token] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[token]) == 0 {
			delete(b.subs, token)
		}
	}
	return ch, cancel
}

// publish fans an event out to every subscriber of the token. The send
// happens under the mutex so it can never race a cancel closing the
// channel; it is buffered and non-blocking, so the lock is held only
// briefly.
func (b *Broker) publish(token string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[token] {
		select {
		case ch <- ev:
		default:
			zap.L().Warn("progress: dropping event for slow subscriber",
				zap.String("token", token),
				zap.String("type", string(ev.Type)),
			)
		}
	}
}

// Tick implements Reporter.
func (b *Broker) Tick(token string, processed, total int) {
	b.publish(token, Event{
		Type: EventTick,
		Tick: &model.ProgressTick{Processed: processed, Total: total},
	})
}

// Final implements Reporter.
func (b *Broker) Final(token string, result *model.ImportResult) {
	b.publish(token, Event{Type: EventFinal, Result: result})
}
