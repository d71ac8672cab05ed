// Package connector implements the uniform stream abstraction over the
// three wire protocols devices speak: persistent websocket push, MQTT
// topic subscription, and fixed-interval HTTP polling.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// Stream is a live connection to one device. It exposes three
// asynchronous signals: inbound frames, transport errors, and
// disconnection. Close is idempotent and releases all protocol resources
// on every path.
type Stream interface {
	Frames() <-chan models.RawFrame
	Errors() <-chan error
	// Done is closed when the connection is gone, whether by Close or by
	// the remote side.
	Done() <-chan struct{}
	Close() error
}

// Opener opens device streams. The gateway depends on this interface so
// tests can substitute a fake transport.
type Opener interface {
	Open(ctx context.Context, dev *models.Device) (Stream, error)
}

// Config tunes the protocol drivers.
type Config struct {
	// OpenTimeout bounds websocket and MQTT connection attempts. An
	// attempt that does not complete within it is a failed open.
	OpenTimeout time.Duration
	// PollInterval is the fetch cadence of the polling driver.
	PollInterval time.Duration
}

const (
	DefaultOpenTimeout  = 10 * time.Second
	DefaultPollInterval = 5 * time.Second
)

// Connector dispatches to one of the three protocol drivers based on the
// descriptor's transport field.
type Connector struct {
	cfg Config
}

// New creates a connector, filling in default timeouts.
func New(cfg Config) *Connector {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Connector{cfg: cfg}
}

// Open returns a stream for the device, or an error when the transport is
// unknown or the connection attempt fails.
func (c *Connector) Open(ctx context.Context, dev *models.Device) (Stream, error) {
	switch dev.Transport {
	case models.TransportWebSocket:
		return c.openWebSocket(ctx, dev)
	case models.TransportMQTT:
		return c.openMQTT(ctx, dev)
	case models.TransportPolling:
		return c.openPolling(ctx, dev)
	default:
		return nil, fmt.Errorf("unsupported transport %q", dev.Transport)
	}
}

// stream is the channel plumbing shared by the three drivers. Emits are
// dropped once the stream is done so a slow or departed consumer never
// wedges a driver goroutine.
type stream struct {
	frames chan models.RawFrame
	errs   chan error
	done   chan struct{}

	doneOnce  sync.Once
	closeOnce sync.Once

	mu      sync.Mutex
	closeFn func()
}

func newStream() *stream {
	return &stream{
		frames: make(chan models.RawFrame, 16),
		errs:   make(chan error, 4),
		done:   make(chan struct{}),
	}
}

func (s *stream) Frames() <-chan models.RawFrame { return s.frames }
func (s *stream) Errors() <-chan error           { return s.errs }
func (s *stream) Done() <-chan struct{}          { return s.done }

// setCloser installs the protocol-specific resource release.
func (s *stream) setCloser(fn func()) {
	s.mu.Lock()
	s.closeFn = fn
	s.mu.Unlock()
}

// Close releases protocol resources and marks the stream done. Safe to
// call any number of times, including mid-connect.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		fn := s.closeFn
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
		s.markDone()
	})
	return nil
}

func (s *stream) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *stream) emitFrame(f models.RawFrame) {
	select {
	case s.frames <- f:
	case <-s.done:
	}
}

func (s *stream) emitError(err error) {
	select {
	case s.errs <- err:
	case <-s.done:
	default:
		// Error buffer full: the consumer already has enough to act on.
	}
}

func (s *stream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
