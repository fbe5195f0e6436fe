package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/faultline/internal/model"
)

// DefaultSubscriberBuffer is the channel capacity of a subscriber
const DefaultSubscriberBuffer = 16

// ErrPhaseRegression is returned when a snapshot would move a run backwards
var ErrPhaseRegression = errors.New("phase regression")

// Publisher fans run snapshots out to subscribers. Every published state is
// deep-copied, so observers never share memory with the running pipeline.
// A subscriber that falls behind loses its oldest snapshots, never blocking
// the publisher.
type Publisher struct {
	mu     sync.Mutex
	latest *model.RunState
	subs   map[int]chan model.RunState
	nextID int
	buffer int
	closed bool
}

// NewPublisher creates a publisher. buffer <= 0 uses DefaultSubscriberBuffer.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Publisher{
		subs:   make(map[int]chan model.RunState),
		buffer: buffer,
	}
}

// Subscribe returns a channel receiving every later snapshot and a function
// that unsubscribes. The channel is closed on unsubscribe or Close.
func (p *Publisher) Subscribe() (<-chan model.RunState, func()) {
	if p == nil {
		ch := make(chan model.RunState)
		close(ch)
		return ch, func() {}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan model.RunState, p.buffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextID
	p.nextID++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(sub)
			}
		})
	}
}

// Publish records state as the latest snapshot and delivers it.
// A phase that cannot follow the previous one is rejected.
func (p *Publisher) Publish(state model.RunState) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publish %s: publisher closed", state.Phase)
	}
	if p.latest != nil && !p.latest.Phase.CanAdvance(state.Phase) {
		return fmt.Errorf("%w: %s -> %s", ErrPhaseRegression, p.latest.Phase, state.Phase)
	}

	snapshot := state.Clone()
	p.latest = &snapshot

	for _, ch := range p.subs {
		deliver(ch, snapshot.Clone())
	}
	return nil
}

// deliver sends without blocking, evicting the oldest queued snapshot
func deliver(ch chan model.RunState, state model.RunState) {
	for {
		select {
		case ch <- state:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Latest returns the newest snapshot, if any
func (p *Publisher) Latest() (model.RunState, bool) {
	if p == nil {
		return model.RunState{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.latest == nil {
		return model.RunState{}, false
	}
	return p.latest.Clone(), true
}

// Close closes every subscriber channel. Later publishes fail.
func (p *Publisher) Close() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
