package player

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/honey001700-lgtm/Durazno/internal/music/track"
)

// Enqueue appends a track, or inserts it at the queue head when atFront.
func (p *Player) Enqueue(t *track.Track, atFront bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enqueueLocked(t, atFront)
	p.lastActivity = time.Now()
}

// EnqueueMany appends tracks in order, preserving playlist ordering.
func (p *Player) EnqueueMany(tracks []*track.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, tracks...)
	p.lastActivity = time.Now()
}

func (p *Player) enqueueLocked(t *track.Track, atFront bool) {
	if atFront {
		p.queue = append([]*track.Track{t}, p.queue...)
		return
	}
	p.queue = append(p.queue, t)
}

// dequeueNextLocked retires the current track into the bounded history and
// pops the queue head. Returns nil when the queue is empty.
func (p *Player) dequeueNextLocked() *track.Track {
	if p.current != nil {
		p.history = append(p.history, p.current)
		if len(p.history) > historyLimit {
			p.history = p.history[len(p.history)-historyLimit:]
		}
		p.current = nil
	}
	if len(p.queue) == 0 {
		return nil
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next
}

// Shuffle randomizes pending queue order. The current track is unaffected.
func (p *Player) Shuffle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	rand.Shuffle(len(p.queue), func(i, j int) {
		p.queue[i], p.queue[j] = p.queue[j], p.queue[i]
	})
	p.lastActivity = time.Now()
	return len(p.queue)
}

// Queue returns a snapshot of the pending tracks.
func (p *Player) Queue() []*track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*track.Track, len(p.queue))
	copy(out, p.queue)
	return out
}

// History returns a snapshot of played tracks, oldest first.
func (p *Player) History() []*track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*track.Track, len(p.history))
	copy(out, p.history)
	return out
}

// QueueLen reports the number of pending tracks.
func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// FormattedQueue renders one display line per pending track.
func (p *Player) FormattedQueue() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := make([]string, 0, len(p.queue))
	for i, t := range p.queue {
		lines = append(lines, fmt.Sprintf("%d. **%s** `%s`", i+1, t.Title, t.FormatDuration()))
	}
	return lines
}
