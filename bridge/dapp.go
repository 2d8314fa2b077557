package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	xtwallet "github.com/signum-network/xt-wallet-go"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

// serveDApp handles a page connection. Requests are served concurrently
// and canceled if the page goes away before the user answers.
func (s *Server) serveDApp(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	ws, err := s.dappUp.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade dapp connection")
		return
	}
	c := newConn(ws, s.readLimit)
	defer c.close()

	wg := &sync.WaitGroup{}
	defer wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Debugf("dapp %s connected", origin)
	for {
		var req Envelope
		if err := ws.ReadJSON(&req); err != nil {
			if !isClosed(err) {
				log.WithError(err).Debugf("dapp %s disconnected", origin)
			}
			return
		}

		wg.Add(1)
		go func(req Envelope) {
			defer wg.Done()
			resp := s.dispatch(ctx, origin, req)
			if err := c.write(resp); err != nil {
				log.WithError(err).Debugf("failed to answer %s", origin)
			}
		}(req)
	}
}

func (s *Server) dispatch(ctx context.Context, origin string, req Envelope) Envelope {
	var (
		resp     any
		respType MessageType
		err      error
	)

	switch req.Type {
	case GetCurrentPermissionRequest:
		respType = GetCurrentPermissionResponse
		resp, err = s.svc.GetCurrentPermission(ctx, origin)

	case PermissionRequest:
		var params types.PermissionRequest
		if err = decodePayload(req.Payload, &params); err == nil {
			respType = PermissionResponse
			resp, err = s.svc.RequestPermission(ctx, origin, params)
		}

	case SignRequest:
		var params types.SignRequest
		if err = decodePayload(req.Payload, &params); err == nil {
			respType = SignResponse
			resp, err = s.svc.RequestSign(ctx, origin, params)
		}

	case OperationRequest:
		var params types.OperationRequest
		if err = decodePayload(req.Payload, &params); err == nil {
			respType = OperationResponse
			resp, err = s.svc.RequestOperation(ctx, origin, params)
		}

	default:
		err = &xtwallet.DAppError{
			Kind: xtwallet.InvalidParams,
			Msg:  fmt.Sprintf("unknown message type %q", req.Type),
		}
	}

	if err != nil {
		log.WithError(err).Debugf("%s request from %s failed", req.Type, origin)
		return errorEnvelope(req.ID, err)
	}

	env, err := newEnvelope(respType, req.ID, resp)
	if err != nil {
		return errorEnvelope(req.ID, err)
	}
	return env
}

func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return xtwallet.ErrInvalidParams
	}
	// Amounts above 2^53 must reach the node unchanged.
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return &xtwallet.DAppError{Kind: xtwallet.InvalidParams, Msg: err.Error()}
	}
	return nil
}
