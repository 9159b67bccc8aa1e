// Package transport owns the single realtime connection: authenticate,
// connect, reconnect, and hand decoded frames to the rest of the engine
// via the bus. No other component may open a socket.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/wire"
	"go.uber.org/zap"
)

// Status is the connection status published on "transport.status".
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// ErrNotConnected is returned by Send when the socket is not open. The
// frame is dropped, never queued; the caller owns user-visible feedback.
var ErrNotConnected = errors.New("transport: not connected")

// TokenFunc obtains a short-lived token to authenticate the socket URL.
type TokenFunc func(ctx context.Context) (string, error)

// Manager maintains exactly one live connection and hides reconnect
// churn. On unexpected close it retries per its RetryPolicy until Close
// is called.
type Manager struct {
	url    string
	token  TokenFunc
	dial   DialFunc
	retry  *RetryPolicy
	bus    *bus.Bus
	logger *zap.Logger

	mu         sync.Mutex
	conn       Conn
	status     Status
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	retryTimer *time.Timer
}

// NewManager creates a manager for the given ws URL (without the token
// query parameter). A nil dial uses the real WebSocket dialer; a nil
// retry uses the default fixed 5-second policy.
func NewManager(url string, token TokenFunc, dial DialFunc, retry *RetryPolicy, b *bus.Bus, logger *zap.Logger) *Manager {
	if dial == nil {
		dial = Dial
	}
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	return &Manager{
		url:    url,
		token:  token,
		dial:   dial,
		retry:  retry,
		bus:    b,
		logger: logger,
		status: StatusDisconnected,
	}
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect opens the transport. Failures never propagate as errors that
// could take the session down: the manager lands in disconnected,
// observable on the bus, and retries on its own.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.status == StatusConnected || m.status == StatusConnecting {
		m.mu.Unlock()
		return
	}
	if m.ctx == nil {
		m.ctx, m.cancel = context.WithCancel(ctx)
	}
	ctx = m.ctx
	m.mu.Unlock()

	m.setStatus(StatusConnecting)

	token, err := m.token(ctx)
	if err != nil {
		m.logger.Warn("failed to obtain transport token", zap.Error(err))
		m.setStatus(StatusDisconnected)
		m.scheduleRetry()
		return
	}

	conn, err := m.dial(ctx, m.url+"?token="+token)
	if err != nil {
		m.logger.Warn("transport dial failed", zap.Error(err))
		m.setStatus(StatusError)
		m.setStatus(StatusDisconnected)
		m.scheduleRetry()
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.mu.Unlock()

	m.retry.MarkConnected()
	m.setStatus(StatusConnected)
	m.logger.Info("transport connected")

	go m.readLoop(ctx, conn)
}

// Send transmits a frame, best-effort. If the transport is not open the
// frame is dropped and ErrNotConnected returned.
func (m *Manager) Send(ctx context.Context, frame any) error {
	m.mu.Lock()
	conn := m.conn
	open := m.status == StatusConnected
	m.mu.Unlock()

	if !open || conn == nil {
		m.logger.Warn("dropping outbound frame, transport not open")
		return ErrNotConnected
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, data)
}

// Close tears the connection down for good. No retry follows.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.retryTimer != nil {
		m.retryTimer.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.setStatus(StatusDisconnected)
	m.logger.Info("transport closed")
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			m.handleClose(err)
			return
		}

		evt, err := wire.ParseInbound(data)
		if err != nil {
			// Malformed frames are logged and dropped, never fatal.
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		m.bus.Emit("transport.frame", evt)
	}
}

func (m *Manager) handleClose(err error) {
	m.mu.Lock()
	intentional := m.closed
	m.conn = nil
	m.mu.Unlock()

	if intentional {
		return
	}

	m.logger.Warn("transport connection lost", zap.Error(err))
	m.setStatus(StatusError)
	m.setStatus(StatusDisconnected)
	m.scheduleRetry()
}

func (m *Manager) scheduleRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	delay := m.retry.NextDelay()
	m.logger.Info("scheduling reconnect", zap.Duration("delay", delay))
	m.retryTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		closed := m.closed
		ctx := m.ctx
		m.mu.Unlock()
		if closed {
			return
		}
		m.Connect(ctx)
	})
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	m.mu.Unlock()
	m.bus.Emit("transport.status", s)
}
