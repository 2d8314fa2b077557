// Package confirm correlates confirmation requests shown to the user with
// the decisions sent back by the confirmation UI.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signum-network/xt-wallet-go/internal/utils"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

const DefaultTimeout = 5 * time.Minute

var (
	// ErrDeclined is returned by Request when the user declined, closed the
	// confirmation UI or let the request time out.
	ErrDeclined    = errors.New("confirmation declined")
	ErrDuplicateID = errors.New("confirmation id already pending")
	ErrClosed      = errors.New("confirmation channel closed")
)

type EventType string

const (
	EventRequested EventType = "requested"
	EventResolved  EventType = "resolved"
)

// Event notifies UI subscribers about a pending confirmation being opened
// or settled.
type Event struct {
	Type    EventType                 `json:"type"`
	Request types.ConfirmationRequest `json:"request"`
}

// Request is a confirmation to show to the user. Messages of type Expect
// with the request's ID are routed to OnConfirm once the user confirmed.
type Request struct {
	ID        string
	Payload   types.ConfirmationPayload
	Expect    types.MessageType
	OnConfirm func(ctx context.Context, msg types.ConfirmationMessage) error
}

type pending struct {
	req       Request
	createdAt time.Time
	done      chan error
}

type Channel struct {
	timeout time.Duration
	opener  func(ctx context.Context, req types.ConfirmationRequest) error

	lock        *sync.Mutex
	pending     map[string]*pending
	broadcaster *utils.Broadcaster[Event]
	closed      bool
}

func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		timeout:     DefaultTimeout,
		lock:        &sync.Mutex{},
		pending:     make(map[string]*pending),
		broadcaster: utils.NewBroadcaster[Event](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewID returns a fresh confirmation id.
func NewID() string {
	return uuid.New().String()
}

// Request registers req and blocks until it reaches its terminal outcome:
// the error returned by OnConfirm, ErrDeclined, or the ctx error if ctx is
// done before the user answers. Once a confirmation is being handled it
// can't be canceled anymore and Request waits for its outcome.
func (c *Channel) Request(ctx context.Context, req Request) error {
	if req.ID == "" {
		return fmt.Errorf("missing confirmation id")
	}
	if req.Expect == "" {
		return fmt.Errorf("missing expected message type")
	}
	if req.OnConfirm == nil {
		return fmt.Errorf("missing confirmation handler")
	}

	entry := &pending{req: req, createdAt: time.Now(), done: make(chan error, 1)}

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return ErrClosed
	}
	if _, ok := c.pending[req.ID]; ok {
		c.lock.Unlock()
		return ErrDuplicateID
	}
	c.pending[req.ID] = entry
	c.lock.Unlock()

	confirmation := types.ConfirmationRequest{ID: req.ID, Payload: req.Payload}
	c.broadcaster.Publish(Event{Type: EventRequested, Request: confirmation})
	if c.opener != nil {
		if err := c.opener(ctx, confirmation); err != nil {
			log.WithError(err).Warn("failed to open confirmation ui")
		}
	}
	log.Debugf("confirmation %s (%s) pending for %s", req.ID, req.Payload.Type, req.Payload.Origin)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-entry.done:
		return err
	case <-timer.C:
		if c.remove(req.ID, entry) {
			log.Debugf("confirmation %s timed out", req.ID)
			return fmt.Errorf("%w: timed out after %s", ErrDeclined, c.timeout)
		}
	case <-ctx.Done():
		if c.remove(req.ID, entry) {
			return ctx.Err()
		}
	}
	// Dispatch took the entry first.
	return <-entry.done
}

// Dispatch routes msg to the pending confirmation with the same id and
// expected type. It returns false if no such confirmation exists, letting
// the caller try other handlers. The returned ack is sent back to the UI.
func (c *Channel) Dispatch(
	ctx context.Context, msg types.ConfirmationMessage,
) (*types.ConfirmationAck, bool) {
	c.lock.Lock()
	entry, ok := c.pending[msg.ID]
	if !ok || entry.req.Expect != msg.Type {
		c.lock.Unlock()
		return nil, false
	}
	delete(c.pending, msg.ID)
	c.lock.Unlock()

	ack := &types.ConfirmationAck{Type: msg.Type.ResponseType()}

	if !msg.Confirmed {
		c.settle(entry, ErrDeclined)
		return ack, true
	}

	err := entry.req.OnConfirm(context.WithoutCancel(ctx), msg)
	c.settle(entry, err)
	return ack, true
}

// Decline rejects the pending confirmation with the given id, returning
// false if it's not pending anymore.
func (c *Channel) Decline(id string) bool {
	c.lock.Lock()
	entry, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.lock.Unlock()

	if !ok {
		return false
	}
	c.settle(entry, ErrDeclined)
	return true
}

// Pending returns the confirmations waiting for a decision, oldest first.
func (c *Channel) Pending() []types.ConfirmationRequest {
	c.lock.Lock()
	entries := make([]*pending, 0, len(c.pending))
	for _, entry := range c.pending {
		entries = append(entries, entry)
	}
	c.lock.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	requests := make([]types.ConfirmationRequest, 0, len(entries))
	for _, entry := range entries {
		requests = append(requests, types.ConfirmationRequest{
			ID: entry.req.ID, Payload: entry.req.Payload,
		})
	}
	return requests
}

func (c *Channel) Subscribe() <-chan Event {
	return c.broadcaster.Subscribe(16)
}

// Subscribers returns the number of live subscriptions.
func (c *Channel) Subscribers() int {
	return c.broadcaster.Len()
}

func (c *Channel) Unsubscribe(ch <-chan Event) {
	c.broadcaster.Unsubscribe(ch)
}

// Close declines every pending confirmation and rejects new ones.
func (c *Channel) Close() {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	c.closed = true
	entries := c.pending
	c.pending = make(map[string]*pending)
	c.lock.Unlock()

	for _, entry := range entries {
		c.settle(entry, ErrDeclined)
	}
	c.broadcaster.Close()
}

func (c *Channel) remove(id string, entry *pending) bool {
	c.lock.Lock()
	current, ok := c.pending[id]
	if ok && current == entry {
		delete(c.pending, id)
	}
	c.lock.Unlock()

	if ok && current == entry {
		c.broadcaster.Publish(Event{
			Type:    EventResolved,
			Request: types.ConfirmationRequest{ID: id, Payload: entry.req.Payload},
		})
		return true
	}
	return false
}

func (c *Channel) settle(entry *pending, err error) {
	entry.done <- err
	c.broadcaster.Publish(Event{
		Type:    EventResolved,
		Request: types.ConfirmationRequest{ID: entry.req.ID, Payload: entry.req.Payload},
	})
}
