// Package bus carries published sensor records from the conditioning core to
// whatever transports are configured.
//
// The core only sees Publisher, which must never block. Transports implement
// Sender and sit behind an Async queue.
package bus

import (
	"context"
	"sync"
)

// Publisher accepts one message for a topic. Implementations must not block.
type Publisher interface {
	Publish(topic string, msg any)
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(topic string, msg any)

func (f PublisherFunc) Publish(topic string, msg any) { f(topic, msg) }

type discard struct{}

func (discard) Publish(string, any) {}

// Discard drops every message.
var Discard Publisher = discard{}

// Sender delivers an encoded message to a transport.
type Sender interface {
	Send(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Message is one captured publication.
type Message struct {
	Topic   string
	Payload any
}

// Recorder keeps every published message in memory, in order.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Publish(topic string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Topic: topic, Payload: msg})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Topic returns the payloads recorded for one topic.
func (r *Recorder) Topic(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, m := range r.msgs {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}
