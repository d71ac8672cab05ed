package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/telemetry-gateway/internal/models"
)

func envAt(ts time.Time, hr float64) models.ReadingEnvelope {
	return models.ReadingEnvelope{
		Timestamp: ts,
		Vitals:    models.VitalSigns{HeartRate: &hr},
	}
}

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	h := newHistory(1000)
	base := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 1005; i++ {
		h.Append(envAt(base.Add(time.Duration(i)*time.Second), float64(i)))
	}

	assert.Equal(t, 1000, h.Len())

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 1005.0, *latest.Vitals.HeartRate)

	// The first five appends were evicted; the oldest survivor is #6.
	all := h.Query(nil, nil, 1000)
	require.Len(t, all, 1000)
	assert.Equal(t, 6.0, *all[len(all)-1].Vitals.HeartRate)
}

func TestHistoryLatestEmpty(t *testing.T) {
	h := newHistory(10)
	_, ok := h.Latest()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}

func TestHistoryQueryOrderAndLimit(t *testing.T) {
	h := newHistory(10)
	base := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		h.Append(envAt(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	out := h.Query(nil, nil, 3)
	require.Len(t, out, 3)
	assert.Equal(t, 5.0, *out[0].Vitals.HeartRate)
	assert.Equal(t, 4.0, *out[1].Vitals.HeartRate)
	assert.Equal(t, 3.0, *out[2].Vitals.HeartRate)
}

func TestHistoryQueryTimeRange(t *testing.T) {
	h := newHistory(10)
	base := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		h.Append(envAt(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	from := base.Add(2 * time.Minute)
	to := base.Add(4 * time.Minute)
	out := h.Query(&from, &to, 100)
	require.Len(t, out, 3)
	assert.Equal(t, 4.0, *out[0].Vitals.HeartRate)
	assert.Equal(t, 2.0, *out[2].Vitals.HeartRate)

	// Open-ended lower bound.
	out = h.Query(nil, &to, 100)
	assert.Len(t, out, 4)
}
