package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eddielth/campus-telemetry/logger"
	"github.com/eddielth/campus-telemetry/model"
	"github.com/eddielth/campus-telemetry/store"
)

type handler struct {
	gw store.Gateway
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("failed to encode response: %v", err)
		}
	}
}

// respondError maps a gateway error to a status code. Store failures get a
// generic 500 body; detail goes to the log only.
func respondError(w http.ResponseWriter, err error, entity string) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Reason})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: entity + " not found"})
	default:
		logger.Error("%s request failed: %v", entity, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
	}
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("campus telemetry backend is running"))
}

func (h *handler) createDevice(w http.ResponseWriter, r *http.Request) {
	var in store.DeviceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	device, err := h.gw.CreateDevice(in)
	if err != nil {
		respondError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *handler) listDevices(w http.ResponseWriter, r *http.Request) {
	q := store.DeviceQuery{
		Status:   r.URL.Query().Get("status"),
		Type:     r.URL.Query().Get("type"),
		Location: r.URL.Query().Get("location"),
	}

	devices, err := h.gw.Devices(q)
	if err != nil {
		respondError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *handler) getDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.gw.Device(chi.URLParam(r, "deviceID"))
	if err != nil {
		respondError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *handler) patchDevice(w http.ResponseWriter, r *http.Request) {
	var patch store.DevicePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	device, err := h.gw.UpdateDevice(chi.URLParam(r, "deviceID"), patch)
	if err != nil {
		respondError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *handler) deleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteDevice(chi.URLParam(r, "deviceID")); err != nil {
		respondError(w, err, "device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type telemetryInput struct {
	DeviceID  string     `json:"deviceId"`
	Metric    string     `json:"metric"`
	Value     float64    `json:"value"`
	Unit      *string    `json:"unit"`
	Timestamp *time.Time `json:"timestamp"`
}

func (h *handler) createTelemetry(w http.ResponseWriter, r *http.Request) {
	var in telemetryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	rec := model.Telemetry{
		DeviceID: in.DeviceID,
		Metric:   in.Metric,
		Value:    in.Value,
		Unit:     in.Unit,
	}
	if in.Timestamp != nil {
		rec.Timestamp = *in.Timestamp
	}

	stored, err := h.gw.InsertTelemetry(rec)
	if err != nil {
		respondError(w, err, "telemetry")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

type telemetryResponse struct {
	DeviceID string            `json:"deviceId"`
	Metric   string            `json:"metric,omitempty"`
	Data     []model.Telemetry `json:"data"`
	Count    int               `json:"count"`
}

func (h *handler) listTelemetry(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := store.TelemetryQuery{
		DeviceID: params.Get("deviceId"),
		Metric:   params.Get("metric"),
	}

	var err error
	if q.Start, err = parseDateParam(params.Get("startDate")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if q.End, err = parseDateParam(params.Get("endDate")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		q.Limit = limit
	}

	records, err := h.gw.Telemetry(q)
	if err != nil {
		respondError(w, err, "telemetry")
		return
	}
	writeJSON(w, http.StatusOK, telemetryResponse{
		DeviceID: q.DeviceID,
		Metric:   q.Metric,
		Data:     records,
		Count:    len(records),
	})
}

func (h *handler) createRule(w http.ResponseWriter, r *http.Request) {
	var in store.RuleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	rule, err := h.gw.CreateRule(in)
	if err != nil {
		respondError(w, err, "rule")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *handler) listRules(w http.ResponseWriter, _ *http.Request) {
	rules, err := h.gw.Rules()
	if err != nil {
		respondError(w, err, "rule")
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteRule(chi.URLParam(r, "ruleID")); err != nil {
		respondError(w, err, "rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := store.AlertQuery{
		Status:   params.Get("status"),
		Severity: params.Get("severity"),
	}

	var err error
	if q.Start, err = parseDateParam(params.Get("startDate")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if q.End, err = parseDateParam(params.Get("endDate")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	alerts, err := h.gw.Alerts(q)
	if err != nil {
		respondError(w, err, "alert")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *handler) patchAlert(w http.ResponseWriter, r *http.Request) {
	var patch store.AlertPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	alert, err := h.gw.UpdateAlert(chi.URLParam(r, "alertID"), patch)
	if err != nil {
		respondError(w, err, "alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// parseDateParam parses an optional RFC 3339 query parameter; empty means
// absent.
func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid date: " + raw)
	}
	return ts, nil
}
