// Package eventstore provides the EventStore component (§4.B): an
// append-only, per-session event log with monotonically increasing
// envelope ids, resume-cursor replay, and bounded per-subscriber delivery
// that drops the oldest buffered event on overflow rather than the newest.
//
// Each envelope is also published to a per-session topic on watermill's
// gochannel pub/sub, the same infrastructure the teacher wires for its own
// event bus, but nothing here subscribes to that topic: live fan-out, the
// envelope id, replay and drop-oldest semantics (absent from the teacher,
// which drops incoming events on a full channel) are implemented directly
// on per-subscriber channels.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/agentcore-ai/runtime/pkg/types"
)

// DefaultCapacity is the default per-session retention window and
// per-subscriber buffer size, matching the runtime's ring buffer
// guideline.
const DefaultCapacity = 1000

// EventStore is the append-only per-session/branch event log.
type EventStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	pubsub   *gochannel.GoChannel
	capacity int
}

type sessionState struct {
	mu        sync.Mutex
	nextID    uint64
	nextSubID uint64
	retention *ringBuffer
	subs      map[uint64]*subscriber
	topic     string
}

type subscriber struct {
	id uint64
	ch chan types.EventEnvelope
}

// deliver sends env to the subscriber, dropping the oldest buffered event
// instead of the new one when the channel is full.
func (s *subscriber) deliver(env types.EventEnvelope) {
	attempts := cap(s.ch) + 1
	for i := 0; i < attempts; i++ {
		select {
		case s.ch <- env:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// ringBuffer is a bounded, drop-oldest retention window used to answer
// resume-cursor replay requests.
type ringBuffer struct {
	mu  sync.Mutex
	cap int
	buf []types.EventEnvelope
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{cap: capacity, buf: make([]types.EventEnvelope, 0, capacity)}
}

func (r *ringBuffer) push(e types.EventEnvelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, e)
	if len(r.buf) > r.cap {
		r.buf = r.buf[len(r.buf)-r.cap:]
	}
}

func (r *ringBuffer) since(after uint64) []types.EventEnvelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.EventEnvelope, 0, len(r.buf))
	for _, e := range r.buf {
		if e.ID > after {
			out = append(out, e)
		}
	}
	return out
}

// New creates an EventStore with the given per-session retention window
// and per-subscriber buffer size.
func New(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventStore{
		sessions: make(map[string]*sessionState),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: int64(capacity),
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		capacity: capacity,
	}
}

func (es *EventStore) stateFor(sessionID string) *sessionState {
	es.mu.Lock()
	defer es.mu.Unlock()
	st, ok := es.sessions[sessionID]
	if !ok {
		st = &sessionState{
			retention: newRingBuffer(es.capacity),
			subs:      make(map[uint64]*subscriber),
			topic:     "session." + sessionID,
		}
		es.sessions[sessionID] = st
	}
	return st
}

// Publish appends ev to sessionID's log, assigning it the next
// monotonically increasing envelope id for that session, and fans it out
// to every live subscriber.
func (es *EventStore) Publish(ctx context.Context, sessionID, branchID string, ev types.Event) (types.EventEnvelope, error) {
	st := es.stateFor(sessionID)

	st.mu.Lock()
	st.nextID++
	env := types.EventEnvelope{
		ID:          st.nextID,
		SessionID:   sessionID,
		BranchID:    branchID,
		Event:       ev,
		PublishedAt: time.Now().UnixMilli(),
	}
	st.mu.Unlock()

	st.retention.push(env)

	payload, err := json.Marshal(env)
	if err != nil {
		return env, &types.EventStoreError{Message: fmt.Sprintf("marshal %s", ev.Tag()), Cause: err}
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := es.pubsub.Publish(st.topic, msg); err != nil {
		return env, &types.EventStoreError{Message: "publish to pubsub", Cause: err}
	}

	st.mu.Lock()
	subs := make([]*subscriber, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	st.mu.Unlock()
	for _, s := range subs {
		s.deliver(env)
	}

	return env, nil
}

// Subscription is a live, resumable view onto one session's event log.
type Subscription struct {
	C      <-chan types.EventEnvelope
	cancel func()
}

// Close detaches the subscription. It does not close C; the caller should
// simply stop reading from it.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe opens a subscription to sessionID, replaying any retained
// events with id > after before switching to live delivery. A subscriber
// that falls behind has its oldest buffered events dropped first, so a
// slow consumer loses history rather than stalling the publisher.
func (es *EventStore) Subscribe(ctx context.Context, sessionID string, after uint64) (*Subscription, error) {
	st := es.stateFor(sessionID)

	st.mu.Lock()
	backlog := st.retention.since(after)
	id := st.nextSubID
	st.nextSubID++
	sub := &subscriber{id: id, ch: make(chan types.EventEnvelope, es.capacity)}
	st.subs[id] = sub
	st.mu.Unlock()

	for _, env := range backlog {
		sub.deliver(env)
	}

	cancel := func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}

	return &Subscription{C: sub.ch, cancel: cancel}, nil
}

// Close releases the underlying pubsub infrastructure.
func (es *EventStore) Close() error {
	return es.pubsub.Close()
}
