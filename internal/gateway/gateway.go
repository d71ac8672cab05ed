// Package gateway owns the device registry, per-device reading history and
// status, and orchestrates the protocol connector, plausibility validator
// and extractor/scorer per streaming device.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/connector"
	"github.com/medassist/telemetry-gateway/internal/models"
	"github.com/medassist/telemetry-gateway/internal/sink"
	"github.com/medassist/telemetry-gateway/internal/validation"
	"github.com/medassist/telemetry-gateway/internal/vitals"
)

// Sentinel errors surfaced to callers of the synchronous operations.
var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrAlreadyStreaming = errors.New("device is already streaming")
	ErrValidationFailed = errors.New("reading failed plausibility validation")
)

// Config tunes the gateway.
type Config struct {
	// HistoryLimit caps each device's in-memory history.
	HistoryLimit int
	// MaxRecentErrors caps the error records kept on a device status.
	MaxRecentErrors int
	// ReconnectInterval is the fixed backoff between retry attempts after
	// an error or disconnect on an active stream.
	ReconnectInterval time.Duration
	// DefaultHistoryQueryLimit applies when a history query passes no
	// limit.
	DefaultHistoryQueryLimit int
}

const (
	DefaultHistoryLimit      = 1000
	DefaultMaxRecentErrors   = 20
	DefaultReconnectInterval = 5 * time.Second
	DefaultQueryLimit        = 100
)

// Gateway is the ingestion root. All registry, status and history state is
// owned here and mutated only through its methods.
type Gateway struct {
	cfg       Config
	opener    connector.Opener
	validator *validation.Validator
	sink      sink.Sink

	mu      sync.RWMutex
	devices map[uuid.UUID]*deviceEntry
}

// deviceEntry bundles everything the gateway tracks for one device.
// Operations on the same device serialize on mu; different devices proceed
// fully in parallel.
type deviceEntry struct {
	desc *models.Device

	mu      sync.Mutex
	status  models.DeviceStatus
	history *history

	// Streaming worker bookkeeping. cancel is non-nil while a stream is
	// open or being opened; workerDone is closed when the worker exits.
	cancel     context.CancelFunc
	workerDone chan struct{}
}

// New creates a gateway with an empty registry.
func New(cfg Config, opener connector.Opener, alertSink sink.Sink) *Gateway {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxRecentErrors <= 0 {
		cfg.MaxRecentErrors = DefaultMaxRecentErrors
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.DefaultHistoryQueryLimit <= 0 {
		cfg.DefaultHistoryQueryLimit = DefaultQueryLimit
	}
	if alertSink == nil {
		alertSink = sink.Noop{}
	}
	return &Gateway{
		cfg:       cfg,
		opener:    opener,
		validator: validation.NewValidator(),
		sink:      alertSink,
		devices:   make(map[uuid.UUID]*deviceEntry),
	}
}

// RegisterRequest carries the descriptor fields of a new device.
type RegisterRequest struct {
	Kind         models.DeviceKind       `json:"kind"`
	Manufacturer string                  `json:"manufacturer"`
	Model        string                  `json:"model"`
	SerialNumber string                  `json:"serialNumber"`
	PatientID    string                  `json:"patientId"`
	Transport    models.Transport        `json:"transport"`
	Connection   models.ConnectionParams `json:"connection"`
	Capabilities []models.VitalType      `json:"capabilities"`
}

// Register validates the descriptor fields, generates an identifier and
// stores the device with an initial status.
func (g *Gateway) Register(req RegisterRequest) (*models.Device, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown device kind %q", req.Kind)
	}
	if req.PatientID == "" {
		return nil, fmt.Errorf("patientId is required")
	}
	if !req.Transport.Valid() {
		return nil, fmt.Errorf("unsupported transport %q, must be one of websocket, mqtt, polling", req.Transport)
	}
	if req.Connection.Endpoint == "" {
		return nil, fmt.Errorf("connection endpoint is required")
	}

	dev := &models.Device{
		ID:           uuid.New(),
		Kind:         req.Kind,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		PatientID:    req.PatientID,
		Transport:    req.Transport,
		Connection:   req.Connection,
		Capabilities: req.Capabilities,
		CreatedAt:    time.Now().UTC(),
	}

	entry := &deviceEntry{
		desc: dev,
		status: models.DeviceStatus{
			State:             models.DeviceStateRegistered,
			ConnectionQuality: 100,
			BatteryLevel:      100,
		},
		history: newHistory(g.cfg.HistoryLimit),
	}

	g.mu.Lock()
	g.devices[dev.ID] = entry
	g.mu.Unlock()

	log.Info().
		Str("device_id", dev.ID.String()).
		Str("patient_id", dev.PatientID).
		Str("kind", string(dev.Kind)).
		Str("transport", string(dev.Transport)).
		Msg("Device registered")

	return dev, nil
}

func (g *Gateway) lookup(id uuid.UUID) *deviceEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.devices[id]
}

// StartStreaming opens a connector stream for the device and starts its
// worker. Returns ErrAlreadyStreaming when a stream is already open and
// ErrDeviceNotFound for an unknown id. A connection attempt that fails (or
// exceeds the open timeout) leaves the device in the error state.
func (g *Gateway) StartStreaming(id uuid.UUID) error {
	entry := g.lookup(id)
	if entry == nil {
		return ErrDeviceNotFound
	}

	entry.mu.Lock()
	if entry.cancel != nil {
		entry.mu.Unlock()
		return ErrAlreadyStreaming
	}
	ctx, cancel := context.WithCancel(context.Background())
	entry.cancel = cancel
	entry.mu.Unlock()

	stream, err := g.opener.Open(ctx, entry.desc)

	entry.mu.Lock()
	if err != nil {
		entry.cancel = nil
		entry.status.State = models.DeviceStateError
		g.appendErrorLocked(entry, err)
		entry.mu.Unlock()
		cancel()
		return fmt.Errorf("open stream: %w", err)
	}
	if ctx.Err() != nil {
		// Stopped or removed mid-connect.
		entry.cancel = nil
		entry.status.State = models.DeviceStateInactive
		entry.mu.Unlock()
		stream.Close()
		return nil
	}

	entry.status.State = models.DeviceStateStreaming
	done := make(chan struct{})
	entry.workerDone = done
	entry.mu.Unlock()

	go g.runWorker(ctx, entry, stream, done)

	log.Info().
		Str("device_id", id.String()).
		Str("transport", string(entry.desc.Transport)).
		Msg("Device streaming started")

	return nil
}

// StopStreaming cancels the device's worker and closes its stream,
// transitioning the device to inactive. No-op when nothing is streaming.
func (g *Gateway) StopStreaming(id uuid.UUID) error {
	entry := g.lookup(id)
	if entry == nil {
		return ErrDeviceNotFound
	}

	entry.mu.Lock()
	cancel := entry.cancel
	done := entry.workerDone
	entry.cancel = nil
	entry.workerDone = nil
	entry.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if done != nil {
		<-done
	}

	entry.mu.Lock()
	entry.status.State = models.DeviceStateInactive
	entry.mu.Unlock()

	log.Info().Str("device_id", id.String()).Msg("Device streaming stopped")
	return nil
}

// RemoveDevice stops any active stream, waits for the worker to exit, then
// deletes the descriptor, status and history. The worker is guaranteed not
// to outlive removal.
func (g *Gateway) RemoveDevice(id uuid.UUID) error {
	if entry := g.lookup(id); entry == nil {
		return ErrDeviceNotFound
	}
	if err := g.StopStreaming(id); err != nil && !errors.Is(err, ErrDeviceNotFound) {
		return err
	}

	g.mu.Lock()
	delete(g.devices, id)
	g.mu.Unlock()

	log.Info().Str("device_id", id.String()).Msg("Device removed")
	return nil
}

// LatestVitals returns the most recent envelope for the device, or nil
// when the history is empty.
func (g *Gateway) LatestVitals(id uuid.UUID) (*models.ReadingEnvelope, error) {
	entry := g.lookup(id)
	if entry == nil {
		return nil, ErrDeviceNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	env, ok := entry.history.Latest()
	if !ok {
		return nil, nil
	}
	return &env, nil
}

// VitalsHistory returns envelopes within the optional time range,
// most-recent-first, truncated to limit (default 100).
func (g *Gateway) VitalsHistory(id uuid.UUID, from, to *time.Time, limit int) ([]models.ReadingEnvelope, error) {
	entry := g.lookup(id)
	if entry == nil {
		return nil, ErrDeviceNotFound
	}
	if limit <= 0 {
		limit = g.cfg.DefaultHistoryQueryLimit
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.history.Query(from, to, limit), nil
}

// DeviceStatus returns the device's status merged with its descriptor.
func (g *Gateway) DeviceStatus(id uuid.UUID) (*models.DeviceSummary, error) {
	entry := g.lookup(id)
	if entry == nil {
		return nil, ErrDeviceNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return &models.DeviceSummary{Device: *entry.desc, Status: cloneStatus(entry.status)}, nil
}

// Devices lists descriptor+status summaries, optionally filtered by
// patient and lifecycle state.
func (g *Gateway) Devices(patientID string, state models.DeviceState) []models.DeviceSummary {
	g.mu.RLock()
	entries := make([]*deviceEntry, 0, len(g.devices))
	for _, e := range g.devices {
		entries = append(entries, e)
	}
	g.mu.RUnlock()

	out := make([]models.DeviceSummary, 0, len(entries))
	for _, e := range entries {
		if patientID != "" && e.desc.PatientID != patientID {
			continue
		}
		e.mu.Lock()
		st := cloneStatus(e.status)
		e.mu.Unlock()
		if state != "" && st.State != state {
			continue
		}
		out = append(out, models.DeviceSummary{Device: *e.desc, Status: st})
	}
	return out
}

// ProcessManualReading runs the validator and extractor on a frame outside
// the registry, tagging the envelope with the manual source. The envelope
// is not appended to any history.
func (g *Gateway) ProcessManualReading(frame models.RawFrame, kind models.DeviceKind, patientID string) (*models.ReadingEnvelope, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown device kind %q", kind)
	}
	if patientID == "" {
		return nil, fmt.Errorf("patientId is required")
	}

	res := g.validator.Validate(frame, kind)
	if !res.Valid {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, res.Errors)
	}

	signs, quality, alerts, warnings := vitals.Process(frame, kind)
	for _, w := range warnings {
		log.Warn().Str("patient_id", patientID).Str("source", models.SourceManual).Msg(w)
	}

	env := models.ReadingEnvelope{
		PatientID: patientID,
		Source:    models.SourceManual,
		Timestamp: time.Now().UTC(),
		Vitals:    signs,
		Quality:   quality,
		Alerts:    alerts,
	}

	g.sink.PublishReading(env)
	for _, a := range alerts {
		g.sink.DispatchAlert("", patientID, a)
	}
	return &env, nil
}

// runWorker consumes one device's stream until its context is cancelled,
// driving the fixed-interval reconnection loop on errors and disconnects.
func (g *Gateway) runWorker(ctx context.Context, entry *deviceEntry, stream connector.Stream, done chan struct{}) {
	defer close(done)
	current := stream

	for {
		select {
		case <-ctx.Done():
			current.Close()
			return

		case frame := <-current.Frames():
			if frame != nil {
				g.handleFrame(entry, frame)
			}

		case err := <-current.Errors():
			current.Close()
			current = g.reconnect(ctx, entry, err)
			if current == nil {
				return
			}

		case <-current.Done():
			// Prefer an already-buffered error as the failure reason.
			var reason error
			select {
			case reason = <-current.Errors():
			default:
				reason = errors.New("stream disconnected")
			}
			current.Close()
			current = g.reconnect(ctx, entry, reason)
			if current == nil {
				return
			}
		}
	}
}

// reconnect records the failure, then retries opening the stream at the
// fixed backoff interval until it succeeds or the context is cancelled.
// There is no retry cap: a permanently unreachable device retries forever.
func (g *Gateway) reconnect(ctx context.Context, entry *deviceEntry, cause error) connector.Stream {
	entry.mu.Lock()
	entry.status.State = models.DeviceStateError
	g.appendErrorLocked(entry, cause)
	entry.mu.Unlock()

	log.Warn().
		Err(cause).
		Str("device_id", entry.desc.ID.String()).
		Dur("backoff", g.cfg.ReconnectInterval).
		Msg("Stream failed, scheduling reconnect")

	for {
		if !g.sleepBackoff(ctx) {
			return nil
		}

		stream, err := g.opener.Open(ctx, entry.desc)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			entry.mu.Lock()
			g.appendErrorLocked(entry, err)
			entry.mu.Unlock()
			log.Warn().
				Err(err).
				Str("device_id", entry.desc.ID.String()).
				Msg("Reconnect attempt failed")
			continue
		}
		if ctx.Err() != nil {
			stream.Close()
			return nil
		}

		entry.mu.Lock()
		entry.status.State = models.DeviceStateStreaming
		entry.mu.Unlock()

		log.Info().Str("device_id", entry.desc.ID.String()).Msg("Device stream reconnected")
		return stream
	}
}

func (g *Gateway) sleepBackoff(ctx context.Context) bool {
	t := time.NewTimer(g.cfg.ReconnectInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// handleFrame is the per-frame ingestion path: validate, extract, score,
// append to history, update status, dispatch alerts. A rejected frame is
// logged and dropped; it never takes down the worker.
func (g *Gateway) handleFrame(entry *deviceEntry, frame models.RawFrame) {
	dev := entry.desc

	res := g.validator.Validate(frame, dev.Kind)
	for _, w := range res.Warnings {
		log.Warn().Str("device_id", dev.ID.String()).Msg(w)
	}
	if !res.Valid {
		log.Warn().
			Str("device_id", dev.ID.String()).
			Strs("reasons", res.Errors).
			Msg("Frame rejected by plausibility validation")
		return
	}

	signs, quality, alerts, warnings := vitals.Process(frame, dev.Kind)
	for _, w := range warnings {
		log.Warn().Str("device_id", dev.ID.String()).Msg(w)
	}

	env := models.ReadingEnvelope{
		DeviceID:  dev.ID.String(),
		PatientID: dev.PatientID,
		Source:    string(dev.Transport),
		Timestamp: time.Now().UTC(),
		Vitals:    signs,
		Quality:   quality,
		Alerts:    alerts,
	}

	entry.mu.Lock()
	entry.history.Append(env)
	ts := env.Timestamp
	entry.status.LastDataReceived = &ts
	entry.status.ConnectionQuality = quality.SignalQuality
	if battery, _, ok := vitals.ResolveNumber(frame, vitals.FieldBattery); ok && battery >= 0 && battery <= 100 {
		entry.status.BatteryLevel = battery
	}
	entry.mu.Unlock()

	g.sink.PublishReading(env)
	for _, a := range alerts {
		g.sink.DispatchAlert(env.DeviceID, env.PatientID, a)
	}
}

// appendErrorLocked records an error on the status, dropping the oldest
// once the cap is reached. Caller holds entry.mu.
func (g *Gateway) appendErrorLocked(entry *deviceEntry, err error) {
	rec := models.ErrorRecord{Time: time.Now().UTC(), Message: err.Error()}
	entry.status.RecentErrors = append(entry.status.RecentErrors, rec)
	if n := len(entry.status.RecentErrors); n > g.cfg.MaxRecentErrors {
		entry.status.RecentErrors = entry.status.RecentErrors[n-g.cfg.MaxRecentErrors:]
	}
}

func cloneStatus(s models.DeviceStatus) models.DeviceStatus {
	out := s
	if s.LastDataReceived != nil {
		ts := *s.LastDataReceived
		out.LastDataReceived = &ts
	}
	out.RecentErrors = append([]models.ErrorRecord(nil), s.RecentErrors...)
	return out
}

// Shutdown stops every streaming device. Used on process exit.
func (g *Gateway) Shutdown() {
	g.mu.RLock()
	ids := make([]uuid.UUID, 0, len(g.devices))
	for id := range g.devices {
		ids = append(ids, id)
	}
	g.mu.RUnlock()

	for _, id := range ids {
		if err := g.StopStreaming(id); err != nil && !errors.Is(err, ErrDeviceNotFound) {
			log.Error().Err(err).Str("device_id", id.String()).Msg("Failed to stop stream on shutdown")
		}
	}
}
