package bridge

import (
	"context"
	"net/http"
	"sync"

	xtwallet "github.com/signum-network/xt-wallet-go"
	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

// serveIntercom handles a confirmation UI connection. The UI first gets
// the pending confirmations, then every new one, and answers them with
// confirmation messages.
func (s *Server) serveIntercom(w http.ResponseWriter, r *http.Request) {
	ws, err := s.intercomUp.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade intercom connection")
		return
	}
	c := newConn(ws, s.readLimit)
	defer c.close()

	channel := s.svc.Confirmations()
	events := channel.Subscribe()
	defer channel.Unsubscribe(events)

	// A confirmation requested right after subscribing is both pending and
	// notified, it must be sent once.
	sent := make(map[string]struct{})
	for _, req := range channel.Pending() {
		env, err := newEnvelope(ConfirmationRequested, req.ID, req)
		if err != nil {
			continue
		}
		if err := c.write(env); err != nil {
			return
		}
		sent[req.ID] = struct{}{}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-events:
				// Dropped as a slow subscriber or channel closed. Closing
				// the connection makes the UI reconnect and fetch the
				// pending confirmations again.
				if !ok {
					log.Debug("intercom subscription closed, disconnecting")
					c.close()
					return
				}
				if _, ok := sent[event.Request.ID]; ok && event.Type == confirm.EventRequested {
					delete(sent, event.Request.ID)
					continue
				}
				env, err := confirmationEnvelope(event)
				if err != nil {
					log.WithError(err).Warn("failed to encode confirmation event")
					continue
				}
				if err := c.write(env); err != nil {
					log.WithError(err).Debug("failed to forward confirmation event")
					c.close()
					return
				}
			}
		}
	}()

	wg := &sync.WaitGroup{}
	defer wg.Wait()

	for {
		var msg types.ConfirmationMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !isClosed(err) {
				log.WithError(err).Debug("intercom disconnected")
			}
			return
		}

		// Dispatch blocks while the confirmed request is carried out.
		wg.Add(1)
		go func(msg types.ConfirmationMessage) {
			defer wg.Done()
			if err := c.write(s.handleIntercom(msg)); err != nil {
				log.WithError(err).Debug("failed to answer intercom")
			}
		}(msg)
	}
}

func (s *Server) handleIntercom(msg types.ConfirmationMessage) Envelope {
	if err := validateIntercomMessage(msg); err != nil {
		return errorEnvelope(msg.ID, &xtwallet.DAppError{
			Kind: xtwallet.InvalidParams, Msg: err.Error(),
		})
	}

	channel := s.svc.Confirmations()
	if msg.Type == types.MessageType(ConfirmationDecline) {
		if !channel.Decline(msg.ID) {
			return errorEnvelope(msg.ID, xtwallet.ErrNotFound)
		}
		return Envelope{Type: ConfirmationDecline, ID: msg.ID}
	}

	ack, handled := channel.Dispatch(context.Background(), msg)
	if !handled {
		return errorEnvelope(msg.ID, xtwallet.ErrNotFound)
	}
	return Envelope{Type: MessageType(ack.Type), ID: msg.ID}
}
