package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestBroker_TickAndFinal(t *testing.T) {
	b := NewBroker()
	events, cancel := b.Subscribe("token-1")
	defer cancel()

	b.Tick("token-1", 10, 25)
	b.Final("token-1", &model.ImportResult{TotalSuccess: 20, TotalError: 5})

	ev := <-events
	assert.Equal(t, EventTick, ev.Type)
	require.NotNil(t, ev.Tick)
	assert.Equal(t, 10, ev.Tick.Processed)
	assert.Equal(t, 25, ev.Tick.Total)

	ev = <-events
	assert.Equal(t, EventFinal, ev.Type)
	require.NotNil(t, ev.Result)
	assert.Equal(t, 20, ev.Result.TotalSuccess)
}

func TestBroker_TokenIsolation(t *testing.T) {
	b := NewBroker()
	evA, cancelA := b.Subscribe("token-a")
	defer cancelA()
	evB, cancelB := b.Subscribe("token-b")
	defer cancelB()

	b.Tick("token-a", 1, 1)

	ev := <-evA
	assert.Equal(t, EventTick, ev.Type)

	select {
	case ev := <-evB:
		t.Fatalf("subscriber for token-b received %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	b := NewBroker()
	ev1, cancel1 := b.Subscribe("token-1")
	defer cancel1()
	ev2, cancel2 := b.Subscribe("token-1")
	defer cancel2()

	b.Tick("token-1", 5, 10)

	assert.Equal(t, EventTick, (<-ev1).Type)
	assert.Equal(t, EventTick, (<-ev2).Type)
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := NewBroker()
	events, cancel := b.Subscribe("token-1")
	cancel()

	_, open := <-events
	assert.False(t, open)

	// Publishing after cancel must not panic or block.
	b.Tick("token-1", 1, 1)
}

func TestBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe("token-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody drains the channel; overflow past the buffer must drop.
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Tick("token-1", i, subscriberBuffer*2)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBroker_PublishDuringUnsubscribe(t *testing.T) {
	b := NewBroker()

	// Publishers hammer the token while subscribers come and go, the way a
	// websocket client disconnecting mid-run races the import goroutine's
	// ticks. A send landing on a closed channel would panic the publisher.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					b.Tick("token-1", 1, 1)
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		_, cancel := b.Subscribe("token-1")
		cancel()
	}

	close(stop)
	wg.Wait()
}

func TestBroker_PublishWithoutSubscribers(t *testing.T) {
	b := NewBroker()
	// No-op, no panic.
	b.Tick("nobody", 1, 1)
	b.Final("nobody", &model.ImportResult{})
}
