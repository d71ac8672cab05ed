package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/gateway"
	"github.com/medassist/telemetry-gateway/internal/models"
)

// ========== Auth handlers ==========

// HandleLogin authenticates a configured account and issues tokens.
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.auth.Enabled() {
		s.respondError(w, http.StatusNotFound, "authentication is not configured")
		return
	}

	if !s.auth.Authenticate(req.Email, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(req.Email)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleRefresh exchanges a refresh token for a new pair.
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, refreshToken, err := s.auth.RefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// ========== Device handlers ==========

// HandleRegisterDevice registers a device.
func (s *RESTServer) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req gateway.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dev, err := s.gateway.Register(req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, dev)
}

// HandleListDevices lists devices, optionally filtered by patient and
// lifecycle state.
func (s *RESTServer) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("patient_id")
	state := models.DeviceState(r.URL.Query().Get("state"))
	if state != "" && !state.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown state filter")
		return
	}

	devices := s.gateway.Devices(patientID, state)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   len(devices),
	})
}

// HandleGetDeviceStatus returns the current status merged with descriptor
// fields.
func (s *RESTServer) HandleGetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	summary, err := s.gateway.DeviceStatus(id)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, summary)
}

// HandleRemoveDevice stops streaming and deletes the device.
func (s *RESTServer) HandleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	if err := s.gateway.RemoveDevice(id); err != nil {
		s.respondGatewayError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStartStreaming opens the device's stream.
func (s *RESTServer) HandleStartStreaming(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	err := s.gateway.StartStreaming(id)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "streaming started"})
	case errors.Is(err, gateway.ErrAlreadyStreaming):
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "already streaming"})
	case errors.Is(err, gateway.ErrDeviceNotFound):
		s.respondError(w, http.StatusNotFound, "device not found")
	default:
		s.respondError(w, http.StatusBadGateway, err.Error())
	}
}

// HandleStopStreaming closes the device's stream.
func (s *RESTServer) HandleStopStreaming(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	if err := s.gateway.StopStreaming(id); err != nil {
		s.respondGatewayError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "streaming stopped"})
}

// HandleGetLatestVitals returns the most recent envelope.
func (s *RESTServer) HandleGetLatestVitals(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	env, err := s.gateway.LatestVitals(id)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	if env == nil {
		s.respondError(w, http.StatusNotFound, "no readings received yet")
		return
	}

	s.respondJSON(w, http.StatusOK, env)
}

// HandleGetVitalsHistory returns history within an optional time range,
// most-recent-first.
func (s *RESTServer) HandleGetVitalsHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	var from, to *time.Time
	if v := r.URL.Query().Get("start"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid start time, expected RFC3339")
			return
		}
		from = &ts
	}
	if v := r.URL.Query().Get("end"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid end time, expected RFC3339")
			return
		}
		to = &ts
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	readings, err := s.gateway.VitalsHistory(id, from, to, limit)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"readings": readings,
		"total":    len(readings),
	})
}

// HandleManualReading ingests one frame outside the registry.
func (s *RESTServer) HandleManualReading(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind      models.DeviceKind `json:"kind"`
		PatientID string            `json:"patientId"`
		Reading   models.RawFrame   `json:"reading"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	env, err := s.gateway.ProcessManualReading(req.Reading, req.Kind, req.PatientID)
	if err != nil {
		if errors.Is(err, gateway.ErrValidationFailed) {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, env)
}

// HandleHealth is the liveness endpoint.
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// ========== Helpers ==========

func (s *RESTServer) deviceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid device id")
		return uuid.UUID{}, false
	}
	return id, true
}

func (s *RESTServer) respondGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, gateway.ErrDeviceNotFound) {
		s.respondError(w, http.StatusNotFound, "device not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with an error body carrying the clinical
// disclaimer.
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error":      message,
		"disclaimer": Disclaimer,
	})
}
