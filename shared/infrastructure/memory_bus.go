package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ events.Publisher = (*MemoryBus)(nil)

// MemoryBus is an in-process at-least-once bus.
//
// Every consumer group owns one lane per (topic, key) pair, the in-process
// counterpart of a partition. A lane is delivered strictly in publish order:
// a failed delivery stays at the head of its lane and blocks the events
// behind it until it succeeds or reaches MaxAttempts, after which it is
// parked as a dead letter. Other lanes of the group keep flowing. Payloads
// travel through the same JSON codec the network transports use.
type MemoryBus struct {
	mu          sync.Mutex
	groups      map[string]*memoryGroup
	order       []string
	cursor      int
	deadLetters []*events.Event

	maxAttempts int
	retryDelay  time.Duration
	duplicate   bool
	logger      *zap.Logger
	wake        chan struct{}
}

type laneKey struct {
	topic events.Topic
	key   models.ID
}

type memoryLane struct {
	queue    []*memoryDelivery
	inFlight bool
	ready    bool
}

type memoryGroup struct {
	name    string
	handler events.EventHandler
	topics  map[events.Topic]struct{}
	lanes   map[laneKey]*memoryLane
	ready   []laneKey
}

type memoryDelivery struct {
	event    *events.Event
	attempts int
}

// enqueue appends d to its lane. Must be called with the bus lock held.
func (g *memoryGroup) enqueue(d *memoryDelivery) {
	k := laneKey{topic: d.event.Topic, key: d.event.Key}
	lane, ok := g.lanes[k]
	if !ok {
		lane = &memoryLane{}
		g.lanes[k] = lane
	}
	lane.queue = append(lane.queue, d)
	g.schedule(k, lane)
}

// schedule puts a lane with queued work back in the ready rotation
func (g *memoryGroup) schedule(k laneKey, lane *memoryLane) {
	if lane.inFlight || lane.ready || len(lane.queue) == 0 {
		return
	}
	lane.ready = true
	g.ready = append(g.ready, k)
}

func (g *memoryGroup) pending() int {
	n := 0
	for _, lane := range g.lanes {
		n += len(lane.queue)
	}
	return n
}

type MemoryBusOption func(*MemoryBus)

// WithMaxAttempts bounds redelivery of a failing event
func WithMaxAttempts(n int) MemoryBusOption {
	return func(b *MemoryBus) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// WithRetryDelay spaces out redeliveries while the bus is running
func WithRetryDelay(d time.Duration) MemoryBusOption {
	return func(b *MemoryBus) {
		b.retryDelay = d
	}
}

// WithDuplicateDelivery delivers every event twice to every group
func WithDuplicateDelivery() MemoryBusOption {
	return func(b *MemoryBus) {
		b.duplicate = true
	}
}

func NewMemoryBus(logger *zap.Logger, opts ...MemoryBusOption) *MemoryBus {
	b := &MemoryBus{
		groups:      make(map[string]*memoryGroup),
		maxAttempts: 10,
		retryDelay:  100 * time.Millisecond,
		logger:      logger,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish enqueues evts on every group subscribed to their topic
func (b *MemoryBus) Publish(_ context.Context, evts ...*events.Event) error {
	decoded := make([]*events.Event, len(evts))
	for i, event := range evts {
		body, err := encodeEvent(event)
		if err != nil {
			return err
		}
		if decoded[i], err = decodeEvent(body); err != nil {
			return err
		}
	}

	b.mu.Lock()
	for _, event := range decoded {
		for _, name := range b.order {
			g := b.groups[name]
			if _, ok := g.topics[event.Topic]; !ok {
				continue
			}
			g.enqueue(&memoryDelivery{event: event.Clone()})
			if b.duplicate {
				g.enqueue(&memoryDelivery{event: event.Clone()})
			}
		}
	}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// Subscriber returns the member of consumer group `group`
func (b *MemoryBus) Subscriber(group string) events.Subscriber {
	return &memorySubscriber{bus: b, group: group}
}

// DeadLetters returns events that exhausted their delivery attempts
func (b *MemoryBus) DeadLetters() []*events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*events.Event(nil), b.deadLetters...)
}

// Pending reports how many deliveries are queued across all groups
func (b *MemoryBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingLocked()
}

func (b *MemoryBus) pendingLocked() int {
	n := 0
	for _, g := range b.groups {
		n += g.pending()
	}
	return n
}

// Drain delivers queued events, including those published by handlers along
// the way, until every lane is empty. Redeliveries happen immediately.
func (b *MemoryBus) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, k, d := b.next()
		if d == nil {
			return nil
		}
		b.deliver(ctx, g, k, d)
	}
}

// Run delivers events as they are published until ctx is done
func (b *MemoryBus) Run(ctx context.Context) error {
	for {
		g, k, d := b.next()
		if d == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-b.wake:
				continue
			}
		}

		if d.attempts > 0 && b.retryDelay > 0 {
			sleep(ctx, b.retryDelay)
		}
		if ctx.Err() != nil {
			b.release(g, k, d)
			return nil
		}
		b.deliver(ctx, g, k, d)
	}
}

// next takes the head of the next ready lane, visiting groups round robin.
// The lane stays in flight until deliver settles it.
func (b *MemoryBus) next() (*memoryGroup, laneKey, *memoryDelivery) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := 0; i < len(b.order); i++ {
		g := b.groups[b.order[(b.cursor+i)%len(b.order)]]
		if len(g.ready) == 0 {
			continue
		}
		b.cursor = (b.cursor + i + 1) % len(b.order)

		k := g.ready[0]
		g.ready = g.ready[1:]
		lane := g.lanes[k]
		lane.ready = false
		lane.inFlight = true

		d := lane.queue[0]
		lane.queue = lane.queue[1:]
		return g, k, d
	}
	return nil, laneKey{}, nil
}

func (b *MemoryBus) deliver(ctx context.Context, g *memoryGroup, k laneKey, d *memoryDelivery) {
	err := g.handler.Handle(ctx, d.event.Clone())
	if err == nil {
		b.settle(ctx, g, k)
		return
	}

	d.attempts++
	fields := []zap.Field{
		zap.String("group", g.name),
		zap.String("event_id", d.event.ID.String()),
		zap.String("topic", d.event.Topic.String()),
		zap.String("key", d.event.Key.String()),
		zap.Int("attempts", d.attempts),
		zap.Error(err),
	}

	if d.attempts >= b.maxAttempts {
		b.mu.Lock()
		b.deadLetters = append(b.deadLetters, d.event)
		b.mu.Unlock()
		logging.Error(ctx, b.logger, "event exhausted delivery attempts", fields...)
		b.settle(ctx, g, k)
		return
	}

	logging.Warn(ctx, b.logger, "event handling failed, redelivering", fields...)
	b.release(g, k, d)
	b.record(ctx)
}

// release puts d back at the head of its lane
func (b *MemoryBus) release(g *memoryGroup, k laneKey, d *memoryDelivery) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lane, ok := g.lanes[k]
	if !ok {
		return
	}
	lane.inFlight = false
	if current, ok := b.groups[g.name]; !ok || current != g {
		return
	}
	lane.queue = append([]*memoryDelivery{d}, lane.queue...)
	g.schedule(k, lane)
}

// settle ends the in-flight delivery of a lane and lets the next one through
func (b *MemoryBus) settle(ctx context.Context, g *memoryGroup, k laneKey) {
	b.mu.Lock()
	if lane, ok := g.lanes[k]; ok {
		lane.inFlight = false
		if len(lane.queue) == 0 {
			delete(g.lanes, k)
		} else {
			g.schedule(k, lane)
		}
	}
	b.mu.Unlock()
	b.record(ctx)
}

func (b *MemoryBus) record(ctx context.Context) {
	b.mu.Lock()
	pending, dead := b.pendingLocked(), len(b.deadLetters)
	b.mu.Unlock()

	telemetry.RecordGauge(ctx, "memory_bus_pending_deliveries", "Deliveries queued on the in-process bus", float64(pending))
	telemetry.RecordGauge(ctx, "memory_bus_dead_letters", "Events parked after exhausting delivery attempts", float64(dead))
}

func (b *MemoryBus) subscribe(group string, handler events.EventHandler, topics []events.Topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.groups[group]; exists {
		return errors.Errorf("consumer group %q already subscribed", group)
	}

	g := &memoryGroup{
		name:    group,
		handler: handler,
		topics:  make(map[events.Topic]struct{}, len(topics)),
		lanes:   make(map[laneKey]*memoryLane),
	}
	for _, t := range topics {
		g.topics[t] = struct{}{}
	}
	b.groups[group] = g
	b.order = append(b.order, group)
	return nil
}

func (b *MemoryBus) unsubscribe(group string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.groups[group]; !ok {
		return
	}
	delete(b.groups, group)
	for i, name := range b.order {
		if name == group {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.cursor = 0
}

type memorySubscriber struct {
	bus   *MemoryBus
	group string
}

func (s *memorySubscriber) Subscribe(_ context.Context, handler events.EventHandler, topics ...events.Topic) error {
	if len(topics) == 0 {
		topics = events.AllTopics()
	}
	return s.bus.subscribe(s.group, handler, topics)
}

func (s *memorySubscriber) Close() error {
	s.bus.unsubscribe(s.group)
	return nil
}
