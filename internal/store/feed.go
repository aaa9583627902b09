package store

import (
	"context"
	"log"
	"os"
	"sync"
)

// Feed fans ChangeEvents out to per-user subscribers.
//
// Stores call Publish after each committed mutation. Publish never
// blocks: a subscriber whose buffer is full loses the event and gets an
// error on its Errors channel instead.
type Feed struct {
	mu     sync.RWMutex
	subs   map[*feedSub]struct{}
	closed bool
	buffer int
	logger *log.Logger
}

// NewFeed creates a Feed with the given per-subscriber buffer size.
// If logger is nil, a default logger writing to stderr is used.
func NewFeed(buffer int, logger *log.Logger) *Feed {
	if buffer <= 0 {
		buffer = 100
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[feed] ", log.LstdFlags)
	}
	return &Feed{
		subs:   make(map[*feedSub]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a subscriber for events whose row belongs to userID.
// The subscription is closed when ctx is done, when Close is called, or
// when the feed itself is closed.
func (f *Feed) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	sub := &feedSub{
		feed:   f,
		userID: userID,
		events: make(chan ChangeEvent, f.buffer),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
	f.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish delivers ev to every subscriber of the event's user.
func (f *Feed) Publish(ev ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	userID := ev.UserID()
	for sub := range f.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			f.logger.Printf("WARNING: subscriber for %s is full, dropping %s", userID, ev)
			select {
			case sub.errors <- errDropped:
			default:
			}
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close ends every subscription. Later Subscribe calls return ErrClosed.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := make([]*feedSub, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
}

func (f *Feed) remove(sub *feedSub) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

type feedErr string

func (e feedErr) Error() string { return string(e) }

const errDropped = feedErr("subscriber buffer full, events dropped")

// feedSub is a single Feed subscription.
type feedSub struct {
	feed   *Feed
	userID string
	events chan ChangeEvent
	errors chan error
	done   chan struct{}
	once   sync.Once
}

func (s *feedSub) Events() <-chan ChangeEvent { return s.events }
func (s *feedSub) Errors() <-chan error       { return s.errors }

// Close removes the subscriber from the feed and closes its channels.
func (s *feedSub) Close() error {
	s.once.Do(func() {
		s.feed.remove(s)
		// Publish holds the read lock while sending, so once remove has
		// returned no sender can still be writing to these channels.
		close(s.done)
		close(s.events)
		close(s.errors)
	})
	return nil
}
