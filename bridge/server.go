// Package bridge exposes the dApp service to web pages and the
// confirmation UI over websockets.
package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	xtwallet "github.com/signum-network/xt-wallet-go"
	log "github.com/sirupsen/logrus"
)

const (
	DAppPath     = "/dapp"
	IntercomPath = "/intercom"

	defaultReadLimit = 1 << 20
	writeTimeout     = 10 * time.Second
)

type Server struct {
	svc             xtwallet.DAppService
	addr            string
	readLimit       int64
	intercomOrigins map[string]struct{}

	srv        *http.Server
	dappUp     websocket.Upgrader
	intercomUp websocket.Upgrader
}

func NewServer(addr string, svc xtwallet.DAppService, opts ...Option) *Server {
	s := &Server{
		svc:             svc,
		addr:            addr,
		readLimit:       defaultReadLimit,
		intercomOrigins: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Any page can talk to the wallet, its origin scopes what it can do.
	s.dappUp = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") != ""
		},
	}
	s.intercomUp = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := s.intercomOrigins[origin]
			return ok
		},
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(DAppPath, s.serveDApp)
	mux.HandleFunc(IntercomPath, s.serveIntercom)
	return mux
}

// Start binds the listen address, then serves in background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("bridge server stopped")
		}
	}()
	log.Infof("bridge listening on %s", ln.Addr())
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// conn serializes writes on a websocket connection.
type conn struct {
	ws *websocket.Conn
	mu *sync.Mutex
}

func newConn(ws *websocket.Conn, readLimit int64) *conn {
	ws.SetReadLimit(readLimit)
	return &conn{ws: ws, mu: &sync.Mutex{}}
}

func (c *conn) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// nolint
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// nolint
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	// nolint
	c.ws.Close()
}

func isClosed(err error) bool {
	return websocket.IsCloseError(
		err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived,
	)
}
