package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

const defaultQueueSize = 256

type envelope struct {
	topic string
	msg   any
}

// Async is a non-blocking Publisher. Messages are queued and delivered to
// every Sender from Run. When the queue is full new messages are dropped and
// counted.
type Async struct {
	q       chan envelope
	senders []Sender

	marshal func(any) ([]byte, error)

	dropped  atomic.Uint64
	failures atomic.Uint64
}

func NewAsync(queueSize int, senders ...Sender) *Async {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Async{
		q:       make(chan envelope, queueSize),
		senders: senders,
		marshal: json.Marshal,
	}
}

func (a *Async) Publish(topic string, msg any) {
	select {
	case a.q <- envelope{topic: topic, msg: msg}:
	default:
		if n := a.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Warnf("bus: queue full, dropped=%d", n)
		}
	}
}

// Dropped returns how many messages were discarded because the queue was full.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Failures returns how many sender deliveries returned an error.
func (a *Async) Failures() uint64 { return a.failures.Load() }

// Run delivers queued messages until ctx is done. Anything still queued at
// that point is flushed with a background context before Run returns.
func (a *Async) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("bus: ctx is nil")
	}
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return ctx.Err()
		case e := <-a.q:
			a.deliver(ctx, e)
		}
	}
}

func (a *Async) drain() {
	for {
		select {
		case e := <-a.q:
			a.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (a *Async) deliver(ctx context.Context, e envelope) {
	if len(a.senders) == 0 {
		return
	}
	payload, err := a.marshal(e.msg)
	if err != nil {
		a.fail(e.topic, err)
		return
	}
	for _, s := range a.senders {
		if err := s.Send(ctx, e.topic, payload); err != nil {
			a.fail(e.topic, err)
		}
	}
}

func (a *Async) fail(topic string, err error) {
	if n := a.failures.Add(1); n == 1 || n%100 == 0 {
		log.Warnf("bus: send topic=%s failed (failures=%d): %v", topic, n, err)
	}
}

// Close closes every sender and returns the first error.
func (a *Async) Close() error {
	var first error
	for _, s := range a.senders {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
