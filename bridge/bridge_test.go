package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	xtwallet "github.com/signum-network/xt-wallet-go"
	"github.com/signum-network/xt-wallet-go/bridge"
	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/stretchr/testify/require"
)

const origin = "https://dapp.example"

// mockService answers sign requests through the real confirmation channel
// and everything else with canned responses.
type mockService struct {
	channel    *confirm.Channel
	origins    chan string
	operations chan types.OperationRequest
}

func (m *mockService) GetVersion() string { return "test" }

func (m *mockService) GetCurrentPermission(
	_ context.Context, origin string,
) (*types.CurrentPermissionResponse, error) {
	m.origins <- origin
	return &types.CurrentPermissionResponse{}, nil
}

func (m *mockService) RequestPermission(
	_ context.Context, _ string, req types.PermissionRequest,
) (*types.PermissionResponse, error) {
	if req.AppMeta.Name == "" {
		return nil, xtwallet.ErrInvalidParams
	}
	return &types.PermissionResponse{Permission: types.Permission{
		RPC: "https://europe.signum.network", Pkh: "123", PublicKey: "abc",
	}}, nil
}

func (m *mockService) RequestSign(
	ctx context.Context, origin string, req types.SignRequest,
) (*types.SignResponse, error) {
	err := m.channel.Request(ctx, confirm.Request{
		ID: confirm.NewID(),
		Payload: types.ConfirmationPayload{
			Type: types.ConfirmSign, Origin: origin, Payload: req.Payload,
		},
		Expect:    types.DAppSignConfirmationRequest,
		OnConfirm: func(context.Context, types.ConfirmationMessage) error { return nil },
	})
	if errors.Is(err, confirm.ErrDeclined) {
		return nil, xtwallet.ErrNotGranted
	}
	if err != nil {
		return nil, err
	}
	return &types.SignResponse{Signature: "sig"}, nil
}

func (m *mockService) RequestOperation(
	_ context.Context, _ string, req types.OperationRequest,
) (*types.OperationResponse, error) {
	m.operations <- req
	return nil, errors.New("node unreachable")
}

func (m *mockService) RevokePermission(context.Context, string) error { return nil }

func (m *mockService) ListPermissions(context.Context) ([]types.Grant, error) { return nil, nil }

func (m *mockService) ListActivity(context.Context, string) ([]types.Activity, error) {
	return nil, nil
}

func (m *mockService) Confirmations() *confirm.Channel { return m.channel }

func (m *mockService) Close() { m.channel.Close() }

func newTestServer(t *testing.T) (*httptest.Server, *mockService) {
	t.Helper()
	svc := &mockService{
		channel:    confirm.NewChannel(),
		origins:    make(chan string, 10),
		operations: make(chan types.OperationRequest, 10),
	}
	srv := httptest.NewServer(bridge.NewServer("", svc).Handler())
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv, svc
}

func dial(t *testing.T, srv *httptest.Server, path, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	// nolint
	resp.Body.Close()
	t.Cleanup(func() {
		// nolint
		ws.Close()
	})
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, req any) bridge.Envelope {
	t.Helper()
	require.NoError(t, ws.WriteJSON(req))
	return read(t, ws)
}

func read(t *testing.T, ws *websocket.Conn) bridge.Envelope {
	t.Helper()
	// nolint
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env bridge.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestDAppRequests(t *testing.T) {
	srv, svc := newTestServer(t)
	ws := dial(t, srv, bridge.DAppPath, origin)

	t.Run("current permission", func(t *testing.T) {
		resp := roundTrip(t, ws, bridge.Envelope{Type: bridge.GetCurrentPermissionRequest, ID: "1"})
		require.Equal(t, bridge.GetCurrentPermissionResponse, resp.Type)
		require.Equal(t, "1", resp.ID)
		require.JSONEq(t, `{"permission":null}`, string(resp.Payload))
		require.Equal(t, origin, <-svc.origins)
	})

	t.Run("permission", func(t *testing.T) {
		resp := roundTrip(t, ws, map[string]any{
			"type": "PERMISSION_REQUEST",
			"id":   "2",
			"payload": map[string]any{
				"network": "signum-europe",
				"appMeta": map[string]any{"name": "Demo"},
			},
		})
		require.Equal(t, bridge.PermissionResponse, resp.Type)
		require.JSONEq(
			t, `{"rpc":"https://europe.signum.network","pkh":"123","publicKey":"abc"}`,
			string(resp.Payload),
		)
	})

	t.Run("classified error", func(t *testing.T) {
		resp := roundTrip(t, ws, map[string]any{
			"type":    "PERMISSION_REQUEST",
			"id":      "3",
			"payload": map[string]any{"network": "signum-europe"},
		})
		require.Equal(t, bridge.ResponseError, resp.Type)
		require.Equal(t, "3", resp.ID)
		require.Equal(t, "INVALID_PARAMS", resp.Error)
	})

	t.Run("unclassified error", func(t *testing.T) {
		resp := roundTrip(t, ws, map[string]any{
			"type":    "OPERATION_REQUEST",
			"id":      "4",
			"payload": map[string]any{"sourcePkh": "123", "opParams": []any{}},
		})
		require.Equal(t, bridge.ResponseError, resp.Type)
		require.Equal(t, "node unreachable", resp.Error)
		<-svc.operations
	})

	t.Run("large amounts keep their precision", func(t *testing.T) {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{
			"type": "OPERATION_REQUEST",
			"id": "7",
			"payload": {
				"sourcePkh": "123",
				"opParams": [{"kind": "sendMoney", "amountNQT": 9007199254740993, "fee": 735000}]
			}
		}`)))
		read(t, ws)

		req := <-svc.operations
		require.Len(t, req.OpParams, 1)
		require.Equal(t, json.Number("9007199254740993"), req.OpParams[0]["amountNQT"])
		require.Equal(t, json.Number("735000"), req.OpParams[0]["fee"])
	})

	t.Run("invalid requests", func(t *testing.T) {
		resp := roundTrip(t, ws, bridge.Envelope{Type: "UNKNOWN", ID: "5"})
		require.Equal(t, bridge.ResponseError, resp.Type)
		require.Equal(t, "INVALID_PARAMS", resp.Error)

		resp = roundTrip(t, ws, bridge.Envelope{Type: bridge.SignRequest, ID: "6"})
		require.Equal(t, bridge.ResponseError, resp.Type)
		require.Equal(t, "INVALID_PARAMS", resp.Error)
	})
}

func TestDAppRequiresOrigin(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + bridge.DAppPath
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestIntercomConfirmation(t *testing.T) {
	srv, _ := newTestServer(t)
	page := dial(t, srv, bridge.DAppPath, origin)
	popup := dial(t, srv, bridge.IntercomPath, "")

	signRequest := map[string]any{
		"type":    "SIGN_REQUEST",
		"id":      "1",
		"payload": map[string]any{"sourcePkh": "123", "payload": "deadbeef"},
	}

	t.Run("confirmed", func(t *testing.T) {
		require.NoError(t, page.WriteJSON(signRequest))

		event := read(t, popup)
		require.Equal(t, bridge.ConfirmationRequested, event.Type)
		var req types.ConfirmationRequest
		require.NoError(t, json.Unmarshal(event.Payload, &req))
		require.Equal(t, event.ID, req.ID)
		require.Equal(t, origin, req.Payload.Origin)
		require.Equal(t, "deadbeef", req.Payload.Payload)

		require.NoError(t, popup.WriteJSON(types.ConfirmationMessage{
			Type: types.DAppSignConfirmationRequest, ID: req.ID, Confirmed: true,
		}))

		// Resolved event and ack may come in any order.
		got := map[bridge.MessageType]bridge.Envelope{}
		for i := 0; i < 2; i++ {
			env := read(t, popup)
			got[env.Type] = env
		}
		require.Contains(t, got, bridge.ConfirmationResolved)
		require.Contains(t, got, bridge.MessageType(types.DAppSignConfirmationResponse))

		resp := read(t, page)
		require.Equal(t, bridge.SignResponse, resp.Type)
		require.JSONEq(t, `{"signature":"sig"}`, string(resp.Payload))
	})

	t.Run("declined", func(t *testing.T) {
		require.NoError(t, page.WriteJSON(signRequest))

		event := read(t, popup)
		require.Equal(t, bridge.ConfirmationRequested, event.Type)

		require.NoError(t, popup.WriteJSON(map[string]any{
			"type": bridge.ConfirmationDecline, "id": event.ID,
		}))
		for i := 0; i < 2; i++ {
			read(t, popup)
		}

		resp := read(t, page)
		require.Equal(t, bridge.ResponseError, resp.Type)
		require.Equal(t, "NOT_GRANTED", resp.Error)
	})

	t.Run("unknown confirmation", func(t *testing.T) {
		resp := roundTrip(t, popup, types.ConfirmationMessage{
			Type: types.DAppSignConfirmationRequest, ID: "unknown", Confirmed: true,
		})
		require.Equal(t, bridge.ResponseError, resp.Type)
		require.Equal(t, "NOT_FOUND", resp.Error)
	})
}

func TestIntercomReceivesPending(t *testing.T) {
	srv, svc := newTestServer(t)
	page := dial(t, srv, bridge.DAppPath, origin)

	require.NoError(t, page.WriteJSON(map[string]any{
		"type":    "SIGN_REQUEST",
		"id":      "1",
		"payload": map[string]any{"sourcePkh": "123", "payload": "cafe"},
	}))
	require.Eventually(t, func() bool {
		return len(svc.channel.Pending()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	popup := dial(t, srv, bridge.IntercomPath, "")
	event := read(t, popup)
	require.Equal(t, bridge.ConfirmationRequested, event.Type)
	require.Equal(t, svc.channel.Pending()[0].ID, event.ID)
}

func TestIntercomDisconnectsWhenSubscriptionEnds(t *testing.T) {
	srv, svc := newTestServer(t)
	popup := dial(t, srv, bridge.IntercomPath, "")
	require.Eventually(t, func() bool {
		return svc.channel.Subscribers() == 1
	}, 5*time.Second, 10*time.Millisecond)

	svc.channel.Close()

	// nolint
	popup.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := popup.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestIntercomOrigin(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + bridge.IntercomPath
	header := http.Header{}
	header.Set("Origin", origin)
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
