package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// SubscriberBuffer is how many undelivered messages a subscriber may hold.
const SubscriberBuffer = 64

// PubSub is an in-process fan-out with the same contract as the Redis one.
// A subscriber that falls more than SubscriberBuffer messages behind is
// dropped: its channel is closed so the consumer can resync.
type PubSub struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewPubSub() *PubSub {
	return &PubSub{subs: make(map[string]map[chan []byte]struct{})}
}

func (ps *PubSub) Publish(_ context.Context, channel string, payload []byte) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for ch := range ps.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case ch <- msg:
		default:
			log.Warn().Str("channel", channel).Msg("memory.PubSub: subscriber lagging, closing its stream")
			ps.remove(channel, ch)
		}
	}
	return nil
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, SubscriberBuffer)

	ps.mu.Lock()
	if ps.subs[channel] == nil {
		ps.subs[channel] = make(map[chan []byte]struct{})
	}
	ps.subs[channel][ch] = struct{}{}
	ps.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cleanup := func() {
		once.Do(func() {
			close(done)
			ps.mu.Lock()
			ps.remove(channel, ch)
			ps.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()

	return ch, cleanup, nil
}

// remove unregisters ch and closes it if it is still registered. Callers hold mu.
func (ps *PubSub) remove(channel string, ch chan []byte) {
	subs := ps.subs[channel]
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(ps.subs, channel)
	}
	close(ch)
}
