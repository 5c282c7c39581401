// Package delivery sends one-time codes to users. The engine hands a code to
// a [Deliverer] exactly once, at issuance; nothing else ever sees it.
package delivery

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnreachable reports that the code could not be handed to the transport.
var ErrUnreachable = errors.New("delivery transport unreachable")

// Message is a code addressed to one email.
type Message struct {
	Email     string
	Code      string
	Purpose   string
	ExpiresAt time.Time
}

// Deliverer hands a code to the user out of band.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// DelivererFunc adapts a function to [Deliverer].
type DelivererFunc func(ctx context.Context, msg Message) error

func (f DelivererFunc) Deliver(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Recorder keeps every delivered message in memory. Set Err to simulate an
// outage.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	Err  error
}

func (r *Recorder) Deliver(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

// Last returns the most recent message for email.
func (r *Recorder) Last(email string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].Email == email {
			return r.msgs[i], true
		}
	}
	return Message{}, false
}

// Count returns how many messages were delivered.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}
