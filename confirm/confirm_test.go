package confirm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/stretchr/testify/require"
)

func newRequest(id string, onConfirm func(context.Context, types.ConfirmationMessage) error) confirm.Request {
	if onConfirm == nil {
		onConfirm = func(context.Context, types.ConfirmationMessage) error { return nil }
	}
	return confirm.Request{
		ID: id,
		Payload: types.ConfirmationPayload{
			Type:   types.ConfirmSign,
			Origin: "https://dapp.example",
		},
		Expect:    types.DAppSignConfirmationRequest,
		OnConfirm: onConfirm,
	}
}

// startRequest runs Request in background and waits until it is pending.
func startRequest(t *testing.T, c *confirm.Channel, ctx context.Context, req confirm.Request) <-chan error {
	t.Helper()
	result := make(chan error, 1)
	go func() {
		result <- c.Request(ctx, req)
	}()
	require.Eventually(t, func() bool {
		for _, p := range c.Pending() {
			if p.ID == req.ID {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return result
}

func TestRequestConfirmed(t *testing.T) {
	c := confirm.NewChannel()
	id := confirm.NewID()

	var received types.ConfirmationMessage
	result := startRequest(t, c, context.Background(), newRequest(id, func(
		_ context.Context, msg types.ConfirmationMessage,
	) error {
		received = msg
		return nil
	}))

	msg := types.ConfirmationMessage{
		Type:      types.DAppSignConfirmationRequest,
		ID:        id,
		Confirmed: true,
	}
	ack, handled := c.Dispatch(context.Background(), msg)
	require.True(t, handled)
	require.Equal(t, types.DAppSignConfirmationResponse, ack.Type)
	require.NoError(t, <-result)
	require.Equal(t, msg, received)
	require.Empty(t, c.Pending())

	// Already settled.
	_, handled = c.Dispatch(context.Background(), msg)
	require.False(t, handled)
}

func TestRequestHandlerError(t *testing.T) {
	c := confirm.NewChannel()
	id := confirm.NewID()
	errBroadcast := errors.New("broadcast failed")

	result := startRequest(t, c, context.Background(), newRequest(id, func(
		context.Context, types.ConfirmationMessage,
	) error {
		return errBroadcast
	}))

	_, handled := c.Dispatch(context.Background(), types.ConfirmationMessage{
		Type: types.DAppSignConfirmationRequest, ID: id, Confirmed: true,
	})
	require.True(t, handled)
	require.ErrorIs(t, <-result, errBroadcast)
}

func TestRequestDeclined(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		c := confirm.NewChannel()
		id := confirm.NewID()
		called := false
		result := startRequest(t, c, context.Background(), newRequest(id, func(
			context.Context, types.ConfirmationMessage,
		) error {
			called = true
			return nil
		}))

		_, handled := c.Dispatch(context.Background(), types.ConfirmationMessage{
			Type: types.DAppSignConfirmationRequest, ID: id, Confirmed: false,
		})
		require.True(t, handled)
		require.ErrorIs(t, <-result, confirm.ErrDeclined)
		require.False(t, called)
	})

	t.Run("explicit", func(t *testing.T) {
		c := confirm.NewChannel()
		id := confirm.NewID()
		result := startRequest(t, c, context.Background(), newRequest(id, nil))

		require.True(t, c.Decline(id))
		require.ErrorIs(t, <-result, confirm.ErrDeclined)
		require.False(t, c.Decline(id))
	})

	t.Run("timeout", func(t *testing.T) {
		c := confirm.NewChannel(confirm.WithTimeout(50 * time.Millisecond))
		err := c.Request(context.Background(), newRequest(confirm.NewID(), nil))
		require.ErrorIs(t, err, confirm.ErrDeclined)
		require.Empty(t, c.Pending())
	})

	t.Run("close", func(t *testing.T) {
		c := confirm.NewChannel()
		result := startRequest(t, c, context.Background(), newRequest(confirm.NewID(), nil))
		c.Close()
		require.ErrorIs(t, <-result, confirm.ErrDeclined)

		err := c.Request(context.Background(), newRequest(confirm.NewID(), nil))
		require.ErrorIs(t, err, confirm.ErrClosed)
	})
}

func TestRequestContextCanceled(t *testing.T) {
	c := confirm.NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	id := confirm.NewID()
	result := startRequest(t, c, ctx, newRequest(id, nil))

	cancel()
	require.ErrorIs(t, <-result, context.Canceled)

	_, handled := c.Dispatch(context.Background(), types.ConfirmationMessage{
		Type: types.DAppSignConfirmationRequest, ID: id, Confirmed: true,
	})
	require.False(t, handled)
}

func TestConfirmedRequestIsNotCanceled(t *testing.T) {
	c := confirm.NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	id := confirm.NewID()

	started := make(chan struct{})
	release := make(chan struct{})
	result := startRequest(t, c, ctx, newRequest(id, func(
		ctx context.Context, _ types.ConfirmationMessage,
	) error {
		close(started)
		<-release
		return ctx.Err()
	}))

	dispatched := make(chan struct{})
	go func() {
		c.Dispatch(ctx, types.ConfirmationMessage{
			Type: types.DAppSignConfirmationRequest, ID: id, Confirmed: true,
		})
		close(dispatched)
	}()

	<-started
	cancel()
	close(release)
	<-dispatched
	require.NoError(t, <-result)
}

func TestDispatchRouting(t *testing.T) {
	c := confirm.NewChannel()
	idA, idB := confirm.NewID(), confirm.NewID()

	var mu sync.Mutex
	confirmed := make([]string, 0)
	onConfirm := func(_ context.Context, msg types.ConfirmationMessage) error {
		mu.Lock()
		defer mu.Unlock()
		confirmed = append(confirmed, msg.ID)
		return nil
	}

	resultA := startRequest(t, c, context.Background(), newRequest(idA, onConfirm))
	resultB := startRequest(t, c, context.Background(), newRequest(idB, onConfirm))
	require.Len(t, c.Pending(), 2)

	// Unknown id and wrong type are ignored.
	_, handled := c.Dispatch(context.Background(), types.ConfirmationMessage{
		Type: types.DAppSignConfirmationRequest, ID: "unknown", Confirmed: true,
	})
	require.False(t, handled)
	_, handled = c.Dispatch(context.Background(), types.ConfirmationMessage{
		Type: types.DAppOpsConfirmationRequest, ID: idA, Confirmed: true,
	})
	require.False(t, handled)

	_, handled = c.Dispatch(context.Background(), types.ConfirmationMessage{
		Type: types.DAppSignConfirmationRequest, ID: idB, Confirmed: true,
	})
	require.True(t, handled)
	require.NoError(t, <-resultB)

	pending := c.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, idA, pending[0].ID)

	require.True(t, c.Decline(idA))
	require.ErrorIs(t, <-resultA, confirm.ErrDeclined)
	require.Equal(t, []string{idB}, confirmed)
}

func TestRequestValidation(t *testing.T) {
	c := confirm.NewChannel()

	require.Error(t, c.Request(context.Background(), newRequest("", nil)))

	req := newRequest(confirm.NewID(), nil)
	req.Expect = ""
	require.Error(t, c.Request(context.Background(), req))

	req = newRequest(confirm.NewID(), nil)
	req.OnConfirm = nil
	require.Error(t, c.Request(context.Background(), req))

	id := confirm.NewID()
	result := startRequest(t, c, context.Background(), newRequest(id, nil))
	require.ErrorIs(t, c.Request(context.Background(), newRequest(id, nil)), confirm.ErrDuplicateID)
	require.True(t, c.Decline(id))
	require.ErrorIs(t, <-result, confirm.ErrDeclined)
}

func TestSubscribe(t *testing.T) {
	opened := make(chan types.ConfirmationRequest, 1)
	c := confirm.NewChannel(confirm.WithOpener(func(
		_ context.Context, req types.ConfirmationRequest,
	) error {
		opened <- req
		return nil
	}))
	events := c.Subscribe()
	defer c.Unsubscribe(events)

	id := confirm.NewID()
	result := startRequest(t, c, context.Background(), newRequest(id, nil))

	event := <-events
	require.Equal(t, confirm.EventRequested, event.Type)
	require.Equal(t, id, event.Request.ID)
	require.Equal(t, "https://dapp.example", event.Request.Payload.Origin)
	require.Equal(t, id, (<-opened).ID)

	require.True(t, c.Decline(id))
	require.ErrorIs(t, <-result, confirm.ErrDeclined)

	event = <-events
	require.Equal(t, confirm.EventResolved, event.Type)
	require.Equal(t, id, event.Request.ID)
}
