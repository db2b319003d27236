// Package sponsor assigns display sponsors to new rounds round-robin.
package sponsor

import "sync"

// Rotation walks a fixed sponsor list. Next advances exactly once per call
// and wraps at the end of the list. One Rotation is shared by everything that
// creates rounds in a process.
type Rotation struct {
	mu    sync.Mutex
	names []string
	next  int
}

func NewRotation(names []string) *Rotation {
	cp := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			cp = append(cp, n)
		}
	}
	return &Rotation{names: cp}
}

// Next returns the sponsor for the next round, or "" with an empty list.
func (r *Rotation) Next() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.names) == 0 {
		return ""
	}
	name := r.names[r.next]
	r.next = (r.next + 1) % len(r.names)
	return name
}

func (r *Rotation) Reset() {
	r.Seed(0)
}

// Seed positions the rotation so the next call returns names[n mod len].
func (r *Rotation) Seed(n int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.names) == 0 {
		r.next = 0
		return
	}
	n %= len(r.names)
	if n < 0 {
		n += len(r.names)
	}
	r.next = n
}

func (r *Rotation) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
