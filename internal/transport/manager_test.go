package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/wire"
	"go.uber.org/zap"
)

// fakeConn is a scriptable in-memory connection.
type fakeConn struct {
	mu     sync.Mutex
	frames chan []byte
	writes [][]byte
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16)}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-c.frames:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed conn")
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) dropped() {
	close(c.frames)
}

func staticToken(ctx context.Context) (string, error) { return "tok", nil }

func newTestManager(t *testing.T, dial DialFunc, retry *RetryPolicy) (*Manager, *bus.Bus) {
	t.Helper()
	b := bus.New()
	m := NewManager("ws://example/ws", staticToken, dial, retry, b, zap.NewNop())
	t.Cleanup(m.Close)
	return m, b
}

func waitStatus(t *testing.T, ch <-chan bus.Event, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if s, ok := evt.Payload.(Status); ok && s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for status %s", want)
		}
	}
}

func TestConnectPublishesFrames(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context, url string) (Conn, error) { return conn, nil }

	m, b := newTestManager(t, dial, nil)
	statusCh, unsub := b.Subscribe("transport.status", 16)
	defer unsub()
	frameCh, unsub2 := b.Subscribe("transport.frame", 16)
	defer unsub2()

	m.Connect(context.Background())
	waitStatus(t, statusCh, StatusConnected)

	conn.frames <- []byte(`{"type":"connection_established","username":"me"}`)

	select {
	case evt := <-frameCh:
		if _, ok := evt.Payload.(wire.ConnectionEstablishedEvent); !ok {
			t.Errorf("payload type = %T", evt.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for decoded frame")
	}
}

func TestMalformedFrameDropped(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context, url string) (Conn, error) { return conn, nil }

	m, b := newTestManager(t, dial, nil)
	frameCh, unsub := b.Subscribe("transport.frame", 16)
	defer unsub()

	m.Connect(context.Background())
	conn.frames <- []byte(`garbage`)
	conn.frames <- []byte(`{"type":"read_receipt","message_id":"9"}`)

	select {
	case evt := <-frameCh:
		rr, ok := evt.Payload.(wire.ReadReceiptEvent)
		if !ok || rr.MessageID != "9" {
			t.Errorf("got %#v, want read receipt 9 (malformed frame should be skipped)", evt.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline died on malformed frame")
	}
}

func TestSendDroppedWhenNotConnected(t *testing.T) {
	m, _ := newTestManager(t, func(ctx context.Context, url string) (Conn, error) {
		return nil, errors.New("unreachable")
	}, &RetryPolicy{FixedDelay: time.Hour})

	err := m.Send(context.Background(), wire.NewMessageFrame("bob", "hi"))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestSendWritesFrame(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context, url string) (Conn, error) { return conn, nil }

	m, b := newTestManager(t, dial, nil)
	statusCh, unsub := b.Subscribe("transport.status", 16)
	defer unsub()

	m.Connect(context.Background())
	waitStatus(t, statusCh, StatusConnected)

	if err := m.Send(context.Background(), wire.NewTypingFrame("bob", true)); err != nil {
		t.Fatal(err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(conn.writes))
	}
}

func TestReconnectAfterUnexpectedClose(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	dial := func(ctx context.Context, url string) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		c := conns[dials%len(conns)]
		dials++
		return c, nil
	}

	m, b := newTestManager(t, dial, &RetryPolicy{FixedDelay: 20 * time.Millisecond})
	statusCh, unsub := b.Subscribe("transport.status", 32)
	defer unsub()

	m.Connect(context.Background())
	waitStatus(t, statusCh, StatusConnected)

	// Simulate the server dropping the connection.
	conns[0].dropped()

	waitStatus(t, statusCh, StatusDisconnected)
	waitStatus(t, statusCh, StatusConnected)

	mu.Lock()
	defer mu.Unlock()
	if dials != 2 {
		t.Errorf("dials = %d, want 2", dials)
	}
}

func TestCloseStopsRetry(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	dial := func(ctx context.Context, url string) (Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("unreachable")
	}

	m, _ := newTestManager(t, dial, &RetryPolicy{FixedDelay: 10 * time.Millisecond})
	m.Connect(context.Background())
	m.Close()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	got := dials
	mu.Unlock()
	if got != 1 {
		t.Errorf("dials after close = %d, want 1", got)
	}
}

func TestFixedRetryDelay(t *testing.T) {
	p := &RetryPolicy{FixedDelay: 5 * time.Second}
	for i := 0; i < 3; i++ {
		if d := p.NextDelay(); d != 5*time.Second {
			t.Errorf("delay = %v, want 5s", d)
		}
	}
}

func TestBackoffRetryGrowsAndCaps(t *testing.T) {
	p := &RetryPolicy{Backoff: true, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	prev := time.Duration(0)
	for i := 0; i < 6; i++ {
		d := p.NextDelay()
		if d > time.Second {
			t.Fatalf("delay %v exceeds cap", d)
		}
		if d < prev && d != time.Second {
			t.Fatalf("delay shrank: %v after %v", d, prev)
		}
		prev = d
	}
}
