package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type HubOptions struct {
	// Buffer is the per-subscriber queue length.
	Buffer         int
	WriteTimeout   time.Duration
	OriginPatterns []string
	Logger         *zap.Logger
}

type subscriber struct {
	ch chan []byte
}

// Hub publishes feed frames to websocket subscribers. New subscribers get
// the current activation and score before live frames. A subscriber whose
// queue is full is dropped; publishing never blocks.
type Hub struct {
	opts HubOptions

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	active *string
	score  *ScoreUpdate
	plays  *PlayBuffer

	dropped uint64
}

func NewHub(opts HubOptions) *Hub {
	if opts.Buffer <= 0 {
		opts.Buffer = 32
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Hub{opts: opts, subs: map[*subscriber]struct{}{}, plays: NewPlayBuffer(DefaultPlayBufferSize)}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.opts.OriginPatterns})
	if err != nil {
		h.warn("feed accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	sub := h.subscribe()
	defer h.unsubscribe(sub)

	// Subscribers never send; CloseRead services control frames.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.ch:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.debug("feed write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{ch: make(chan []byte, h.opts.Buffer+2)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active != nil {
		sub.ch <- mustJSON(Activation{RoundID: h.active})
	}
	if h.score != nil {
		sub.ch <- mustJSON(*h.score)
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// PublishActivation announces the open round; nil announces its closure.
func (h *Hub) PublishActivation(roundID *string) {
	var id *string
	if roundID != nil && *roundID != "" {
		v := *roundID
		id = &v
	}
	msg := mustJSON(Activation{RoundID: id})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = id
	h.broadcastLocked(msg)
}

func (h *Hub) PublishScore(home, away float64) {
	s := ScoreUpdate{Home: home, Away: away}
	msg := mustJSON(s)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.score = &s
	h.broadcastLocked(msg)
}

func (h *Hub) PublishPlay(p PlayUpdate) {
	h.Broadcast(mustJSON(struct {
		Payload PlayUpdate `json:"payload"`
	}{p}))
}

// PublishRawPlay sends a {"type":"play",...} context frame.
func (h *Hub) PublishRawPlay(fields map[string]any) {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["type"] = "play"
	msg := mustJSON(out)
	h.plays.Add(msg)
	h.Broadcast(msg)
}

// Plays returns the recent raw play frames, oldest first.
func (h *Hub) Plays() []json.RawMessage {
	return h.plays.Snapshot()
}

func (h *Hub) Broadcast(msg []byte) {
	if h == nil || len(msg) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(msg)
}

// broadcastLocked queues msg for every subscriber. Callers hold h.mu, so
// frames reach subscribers in the order the state changed.
func (h *Hub) broadcastLocked(msg []byte) {
	if len(msg) == 0 {
		return
	}
	for sub := range h.subs {
		select {
		case sub.ch <- msg:
		default:
			delete(h.subs, sub)
			close(sub.ch)
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// Active returns the currently announced round id.
func (h *Hub) Active() *string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.active == nil {
		return nil
	}
	v := *h.active
	return &v
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

func (h *Hub) warn(msg string, fields ...zap.Field) {
	if h.opts.Logger != nil {
		h.opts.Logger.Warn(msg, fields...)
	}
}

func (h *Hub) debug(msg string, fields ...zap.Field) {
	if h.opts.Logger != nil {
		h.opts.Logger.Debug(msg, fields...)
	}
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
