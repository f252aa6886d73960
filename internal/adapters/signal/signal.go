package signal

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/CollabRelay/internal/app/orch"
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

type Options struct {
	// ReadLimit caps a single inbound frame in bytes; zero means no limit.
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
	// RateLimit is cursor, ping and unknown frames per second per
	// connection; zero disables.
	RateLimit float64
	RateBurst int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  100 << 20,
		PingPeriod: 10 * time.Second,
		SendBuffer: 256,
		RateLimit:  50,
		RateBurst:  100,
	}
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts    Options
	limiter *RateLimiter

	mu      sync.Mutex
	closing bool
	conns   sync.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	def := DefaultOptions()
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = def.PingPeriod
	}
	if opts.SendBuffer < 1 {
		opts.SendBuffer = def.SendBuffer
	}
	return &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateBurst),
	}
}

// WsSignalConn is the core.SignalConnection over a websocket. Frames are
// queued on send and written by the connection's writePump.
type WsSignalConn struct {
	conn  *websocket.Conn
	send  chan core.Frame
	alive atomic.Bool

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	c := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
	c.alive.Store(true)
	return c
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. Whatever is already queued is still written
// before the close frame goes out.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(c *gin.Context) {
	token := c.GetString("client_token")

	if !ctl.admit() {
		log.Info().Str("module", "signal").Str("remote", c.ClientIP()).Msg("refused connection while draining")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		ctl.conns.Add(-2)
		return
	}

	sid := ctl.Orch.Registry.NextSID()
	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	ctl.Orch.Registry.BindSignal(sid, conn, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("token", token).Str("remote", c.ClientIP()).Msg("new WS connection")

	ctl.Orch.Send(conn, protocol.NewWelcome(string(sid), token))
	// Admitted just before Shutdown but bound after it took its snapshot.
	if ctl.Orch.Draining() {
		ctl.Orch.Send(conn, protocol.NewServerShutdown())
		conn.Close()
	}

	go ctl.writePump(ctx, sid, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}

// admit reserves both pumps of a new connection. Nothing is admitted once
// the orchestrator drains or Wait has started.
func (ctl *SignalWSController) admit() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.closing || ctl.Orch.Draining() {
		return false
	}
	ctl.conns.Add(2)
	return true
}

// Wait stops admitting connections and blocks until every connection's
// pumps have exited or ctx is done.
func (ctl *SignalWSController) Wait(ctx context.Context) error {
	ctl.mu.Lock()
	ctl.closing = true
	ctl.mu.Unlock()

	done := make(chan struct{})
	go func() {
		ctl.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
