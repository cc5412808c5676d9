// Package trigger implements the HTTP entrypoint that invokes one ingest
// orchestrator run per request. Built on net/http alone, no router
// framework.
package trigger

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dl-alexandre/gonow-ingest/internal/ingest"
)

// Defaults supplies the runtime defaults substituted for any field absent
// from the request body.
type Defaults struct {
	AreaID      string
	Lat         float64
	Lon         float64
	HorizonDays int
}

// Handler adapts Orchestrator.Run to an HTTP POST endpoint.
type Handler struct {
	Orchestrator *ingest.Orchestrator
	Defaults     Defaults
	Logger       *zap.SugaredLogger
}

type rawPayload struct {
	AreaID      *string `json:"area_id"`
	HorizonDays *int    `json:"horizon_days"`
}

type pushEnvelope struct {
	Message struct {
		Data string `json:"data"`
	} `json:"message"`
}

// ServeHTTP decodes either a raw payload or a push-subscription envelope,
// runs the orchestrator synchronously, and always responds 200 on
// successful delivery of a result (even a failed or degraded one); only a
// body that cannot be parsed produces a 400.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := decodeBody(r)
	if err != nil {
		h.Logger.Warnw("trigger: failed to parse request body", "error", err)
		http.Error(w, "could not parse request body", http.StatusBadRequest)
		return
	}

	req := ingest.Request{
		AreaID: h.Defaults.AreaID, Lat: h.Defaults.Lat, Lon: h.Defaults.Lon,
		HorizonDays: h.Defaults.HorizonDays,
	}
	if payload.AreaID != nil {
		req.AreaID = *payload.AreaID
	}
	if payload.HorizonDays != nil {
		req.HorizonDays = *payload.HorizonDays
	}

	result := h.Orchestrator.Run(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Errorw("trigger: failed to encode response", "error", err)
	}
}

func decodeBody(r *http.Request) (rawPayload, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return rawPayload{}, err
	}

	var envelope pushEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message.Data != "" {
		decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			return rawPayload{}, err
		}
		var payload rawPayload
		if err := json.Unmarshal(decoded, &payload); err != nil {
			return rawPayload{}, err
		}
		return payload, nil
	}

	var payload rawPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return rawPayload{}, err
	}
	return payload, nil
}
