package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// SubscriptionSaver stores web-push subscriptions registered over the
// control surface.
type SubscriptionSaver interface {
	Save(ctx context.Context, sub *model.PushSubscription) error
}

// ControlHandler exposes the lifecycle operations over HTTP so an operator
// (or the dashboard backend) can drive crop transitions.
type ControlHandler struct {
	lifecycle *Lifecycle
	subs      SubscriptionSaver
	logger    *slog.Logger
}

func NewControlHandler(lifecycle *Lifecycle, subs SubscriptionSaver, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{lifecycle: lifecycle, subs: subs, logger: logger}
}

// Register attaches the control routes to mux.
func (h *ControlHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /pods", h.registerPod)
	mux.HandleFunc("POST /crops", h.startCrop)
	mux.HandleFunc("PATCH /crops/{podName}/thresholds", h.changeThresholds)
	mux.HandleFunc("POST /crops/{podName}/harvest", h.harvest)
	mux.HandleFunc("POST /notifications/subscriptions", h.saveSubscription)
}

func (h *ControlHandler) registerPod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PodName string `json:"pod_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.lifecycle.RegisterPod(r.Context(), req.PodName); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ControlHandler) startCrop(w http.ResponseWriter, r *http.Request) {
	var req StartCropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	crop, err := h.lifecycle.StartCrop(r.Context(), req)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, crop)
}

func (h *ControlHandler) changeThresholds(w http.ResponseWriter, r *http.Request) {
	var update CropUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	crop, err := h.lifecycle.ChangeThresholds(r.Context(), r.PathValue("podName"), update)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	h.writeJSON(w, http.StatusOK, crop)
}

func (h *ControlHandler) harvest(w http.ResponseWriter, r *http.Request) {
	crop, err := h.lifecycle.Harvest(r.Context(), r.PathValue("podName"))
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	h.writeJSON(w, http.StatusOK, crop)
}

func (h *ControlHandler) saveSubscription(w http.ResponseWriter, r *http.Request) {
	var sub model.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("endpoint, p256dh and auth are required"))
		return
	}
	if err := h.subs.Save(r.Context(), &sub); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ControlHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", "error", err)
	}
}

func (h *ControlHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Warn("control request rejected", "status", status, "error", err)
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
