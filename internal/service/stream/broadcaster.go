package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Subscription receives encoded frames from a Broadcaster until it is closed
// by the subscriber or the broadcaster.
type Subscription struct {
	ID string

	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	owner     *Broadcaster
}

// Frames returns the channel frames arrive on. It is closed when the run ends.
func (s *Subscription) Frames() <-chan []byte {
	return s.frames
}

// Done is closed once the subscriber has detached.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the subscriber. Safe to call multiple times.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.owner != nil {
			s.owner.remove(s.ID)
		}
	})
}

// Broadcaster fans every published frame out to all current subscribers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]*Subscription),
	}
}

// Subscribe registers a new subscriber with room for buffer queued frames.
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		frames: make(chan []byte, buffer),
		done:   make(chan struct{}),
		owner:  b,
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()
	return sub
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Publish hands frame to every subscriber, waiting on each one until it has room,
// detaches, or ctx is cancelled. Frames are never dropped for a live subscriber.
// Publish and CloseAll must be called from the same goroutine.
func (b *Broadcaster) Publish(ctx context.Context, frame []byte) error {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.frames <- frame:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// CloseAll ends every current subscription by closing its frame channel.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.frames)
	}
}

// Len returns the number of attached subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
