package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

var ErrListenerUsed = errors.New("feed listener already started")

type ListenerOptions struct {
	URL               string
	ReadLimit         int64
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	OnStatus          func(Status)
	Logger            *zap.Logger
}

// Listener holds one feed connection. It never reconnects: a new context
// (screen, room) builds a new Listener.
type Listener struct {
	opts ListenerOptions

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	started bool
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

func NewListener(opts ListenerOptions) *Listener {
	if opts.ReadLimit == 0 {
		opts.ReadLimit = 1 << 20
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	return &Listener{opts: opts, status: StatusIdle}
}

func (l *Listener) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Listener) setStatus(s Status) {
	l.mu.Lock()
	changed := l.status != s
	l.status = s
	l.mu.Unlock()
	if changed && l.opts.OnStatus != nil {
		l.opts.OnStatus(s)
	}
}

// Run dials the feed and delivers decoded events to onEvent until the
// connection ends, ctx is cancelled, or Close is called. Frames that fail
// to decode are logged and dropped.
func (l *Listener) Run(ctx context.Context, onEvent func(Event)) error {
	if l == nil {
		return fmt.Errorf("listener is nil")
	}
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrListenerUsed
	}
	l.started = true
	closed := l.closed
	l.mu.Unlock()
	if closed {
		l.setStatus(StatusDisconnected)
		return nil
	}
	if strings.TrimSpace(l.opts.URL) == "" {
		l.setStatus(StatusError)
		return fmt.Errorf("feed url is empty")
	}

	l.setStatus(StatusConnecting)
	conn, _, err := websocket.Dial(ctx, l.opts.URL, nil)
	if err != nil {
		l.warn("feed connect failed", zap.Error(err))
		l.setStatus(StatusError)
		return err
	}
	conn.SetReadLimit(l.opts.ReadLimit)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "closed")
		l.setStatus(StatusDisconnected)
		return nil
	}
	l.conn = conn
	l.mu.Unlock()
	l.setStatus(StatusConnected)
	l.info("feed connected", zap.String("url", l.opts.URL))

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if l.opts.HeartbeatInterval > 0 {
		go l.heartbeat(readCtx, conn, cancel)
	}

	for {
		_, data, err := conn.Read(readCtx)
		if err != nil {
			return l.finish(ctx, err)
		}
		events, err := DecodeAll(data)
		if err != nil {
			if errors.Is(err, ErrUnrecognized) {
				l.debug("feed frame ignored", zap.ByteString("frame", truncate(data, 256)))
			} else {
				l.warn("feed frame dropped", zap.Error(err), zap.ByteString("frame", truncate(data, 256)))
			}
			continue
		}
		if onEvent == nil {
			continue
		}
		for _, ev := range events {
			onEvent(ev)
		}
	}
}

func (l *Listener) finish(ctx context.Context, err error) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	switch {
	case closed || ctx.Err() != nil:
		l.setStatus(StatusDisconnected)
		return nil
	case websocket.CloseStatus(err) != -1:
		l.info("feed closed by server", zap.Int("status", int(websocket.CloseStatus(err))))
		l.setStatus(StatusDisconnected)
		return nil
	default:
		l.warn("feed read failed", zap.Error(err))
		l.setStatus(StatusError)
		return err
	}
}

func (l *Listener) heartbeat(ctx context.Context, conn *websocket.Conn, fail context.CancelFunc) {
	ticker := time.NewTicker(l.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, l.opts.PingTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil && ctx.Err() == nil {
				l.warn("feed ping failed", zap.Error(err))
				fail()
				return
			}
		}
	}
}

// Close tears the connection down. Only the first call has any effect.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		conn := l.conn
		l.mu.Unlock()
		if conn != nil {
			l.closeErr = conn.Close(websocket.StatusNormalClosure, "closed")
		}
	})
	return l.closeErr
}

func (l *Listener) info(msg string, fields ...zap.Field) {
	if l.opts.Logger != nil {
		l.opts.Logger.Info(msg, fields...)
	}
}

func (l *Listener) warn(msg string, fields ...zap.Field) {
	if l.opts.Logger != nil {
		l.opts.Logger.Warn(msg, fields...)
	}
}

func (l *Listener) debug(msg string, fields ...zap.Field) {
	if l.opts.Logger != nil {
		l.opts.Logger.Debug(msg, fields...)
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
