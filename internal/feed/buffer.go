package feed

import (
	"encoding/json"
	"sync"
)

const DefaultPlayBufferSize = 10

// PlayBuffer keeps the most recent raw plays, oldest first.
type PlayBuffer struct {
	mu    sync.Mutex
	size  int
	plays []json.RawMessage
}

func NewPlayBuffer(size int) *PlayBuffer {
	if size <= 0 {
		size = DefaultPlayBufferSize
	}
	return &PlayBuffer{size: size}
}

func (b *PlayBuffer) Add(play json.RawMessage) {
	if b == nil || len(play) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays = append(b.plays, append(json.RawMessage(nil), play...))
	if over := len(b.plays) - b.size; over > 0 {
		b.plays = append(b.plays[:0:0], b.plays[over:]...)
	}
}

func (b *PlayBuffer) Snapshot() []json.RawMessage {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]json.RawMessage, len(b.plays))
	copy(out, b.plays)
	return out
}

func (b *PlayBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.plays)
}
