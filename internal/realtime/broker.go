// Package realtime delivers inserted rows to in-process subscribers and
// streams pushed frames to browsers over WebSocket.
package realtime

import (
	"sync"
)

// Filter restricts a subscription to rows whose column equals value.
// The zero Filter matches every row of the table.
type Filter struct {
	Column string
	Value  string
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

func (f Filter) match(cols map[string]string) bool {
	if f.Column == "" {
		return true
	}
	v, ok := cols[f.Column]
	return ok && v == f.Value
}

// Event is one inserted row. Record is a private copy of the inserted model
// (for example *model.Message); Columns holds its column values as text.
type Event struct {
	Table   string
	Columns map[string]string
	Record  interface{}
}

type Handler func(Event)

type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	named  map[string]*Subscription
}

func NewBroker() *Broker {
	return &Broker{
		subs:  make(map[uint64]*Subscription),
		named: make(map[string]*Subscription),
	}
}

// Subscribe registers fn for inserts on table matching filter. Events of one
// subscription are delivered in publish order on a dedicated goroutine.
// A live subscription with the same channel name is fully torn down first.
func (b *Broker) Subscribe(channel, table string, filter Filter, fn Handler) *Subscription {
	b.mu.Lock()
	old := b.named[channel]
	b.mu.Unlock()
	if old != nil {
		old.Unsubscribe()
	}

	s := &Subscription{
		broker:  b,
		channel: channel,
		table:   table,
		filter:  filter,
		fn:      fn,
		done:    make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	b.mu.Lock()
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	if channel != "" {
		b.named[channel] = s
	}
	b.mu.Unlock()

	go s.run()
	return s
}

// Publish queues ev on every matching subscription without blocking.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.table == ev.Table && s.filter.match(ev.Columns) {
			s.enqueue(ev)
		}
	}
}

// Len is the number of live subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s.id)
	if b.named[s.channel] == s {
		delete(b.named, s.channel)
	}
	b.mu.Unlock()
}

type Subscription struct {
	broker  *Broker
	id      uint64
	channel string
	table   string
	filter  Filter
	fn      Handler

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	done   chan struct{}
}

func (s *Subscription) Channel() string {
	return s.channel
}

func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, ev)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.fn(ev)
	}
}

// Unsubscribe stops delivery and returns once no handler call is running.
// It must not be called from inside the subscription's own handler.
// Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()
	if !already {
		s.broker.remove(s)
	}
	<-s.done
}
