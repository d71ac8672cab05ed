package gateway

import (
	"time"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// history is a bounded FIFO of reading envelopes in strict insertion
// order. When full, appending evicts the oldest entry. Not safe for
// concurrent use; the owning device entry serializes access.
type history struct {
	buf   []models.ReadingEnvelope
	start int
	size  int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]models.ReadingEnvelope, capacity)}
}

// Append adds an envelope, evicting the oldest when at capacity.
func (h *history) Append(env models.ReadingEnvelope) {
	if h.size == len(h.buf) {
		h.buf[h.start] = env
		h.start = (h.start + 1) % len(h.buf)
		return
	}
	h.buf[(h.start+h.size)%len(h.buf)] = env
	h.size++
}

// Len returns the number of stored envelopes.
func (h *history) Len() int { return h.size }

// Latest returns the most recently appended envelope.
func (h *history) Latest() (models.ReadingEnvelope, bool) {
	if h.size == 0 {
		return models.ReadingEnvelope{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}

// Query returns envelopes within [from, to] most-recent-first, truncated
// to limit. Nil bounds are open.
func (h *history) Query(from, to *time.Time, limit int) []models.ReadingEnvelope {
	out := make([]models.ReadingEnvelope, 0, min(limit, h.size))
	for i := h.size - 1; i >= 0 && len(out) < limit; i-- {
		env := h.buf[(h.start+i)%len(h.buf)]
		if from != nil && env.Timestamp.Before(*from) {
			continue
		}
		if to != nil && env.Timestamp.After(*to) {
			continue
		}
		out = append(out, env)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
