// Package api exposes the notification engine over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glimpseapp/notify-engine/internal/notifications"
)

// Handlers provides HTTP handlers for the notification engine
type Handlers struct {
	engine  *notifications.Engine
	started time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine *notifications.Engine) *Handlers {
	return &Handlers{
		engine:  engine,
		started: time.Now(),
	}
}

// HandleAnalyzeBehavior recomputes a user's behavior profile from their
// interaction history.
// POST /api/users/{user_id}/behavior/analyze
func (h *Handlers) HandleAnalyzeBehavior(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	profile := h.engine.AnalyzeUserBehavior(r.Context(), userID)
	jsonResponse(w, profile)
}

// HandleGetOptimalTiming returns the recommended delivery time for a
// notification.
// GET /api/users/{user_id}/timing?type=friend_post&urgency=medium
func (h *Handlers) HandleGetOptimalTiming(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	notificationType := r.URL.Query().Get("type")
	if notificationType == "" {
		jsonError(w, "type is required", http.StatusBadRequest)
		return
	}

	urgency, err := parseUrgency(r.URL.Query().Get("urgency"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	timing := h.engine.GetOptimalNotificationTime(r.Context(), userID, notificationType, urgency)
	jsonResponse(w, timing)
}

// HandleDeliveryCheck decides whether a notification should go out
// right now.
// GET /api/users/{user_id}/delivery-check?type=friend_post&urgency=medium
func (h *Handlers) HandleDeliveryCheck(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	notificationType := r.URL.Query().Get("type")
	if notificationType == "" {
		jsonError(w, "type is required", http.StatusBadRequest)
		return
	}

	urgency, err := parseUrgency(r.URL.Query().Get("urgency"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	decision := h.engine.ShouldSendNotificationNow(r.Context(), userID, notificationType, urgency)
	jsonResponse(w, decision)
}

// HandlePersonalizeContent adapts a notification payload to the user's
// preferences and behavior profile. The notification is assigned an ID
// if the caller did not provide one.
// POST /api/users/{user_id}/personalize
func (h *Handlers) HandlePersonalizeContent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var n notifications.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if n.Type == "" {
		jsonError(w, "type is required", http.StatusBadRequest)
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.UserID = userID

	personalized := h.engine.PersonalizeNotificationContent(r.Context(), userID, n)
	jsonResponse(w, personalized)
}

// HandleGetInsights returns aggregate engagement insights for the
// settings UI.
// GET /api/users/{user_id}/insights
func (h *Handlers) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	insights := h.engine.GeneratePersonalizationInsights(r.Context(), userID)
	jsonResponse(w, insights)
}

// HandleGetPreferences returns a user's personalization settings.
// GET /api/users/{user_id}/preferences
func (h *Handlers) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	jsonResponse(w, h.engine.GetPersonalization(r.Context(), userID))
}

// HandleUpdatePreferences replaces a user's personalization settings.
// PUT /api/users/{user_id}/preferences
func (h *Handlers) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var prefs notifications.NotificationPersonalization
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	prefs.UserID = userID
	if prefs.CustomFrequency == nil {
		prefs.CustomFrequency = make(map[string]int)
	}

	h.engine.UpdatePersonalization(r.Context(), &prefs)
	jsonResponse(w, h.engine.GetPersonalization(r.Context(), userID))
}

// HealthCheck returns the health status of the API
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.started).String(),
	})
}

func parseUrgency(s string) (notifications.Urgency, error) {
	switch notifications.Urgency(s) {
	case "":
		return notifications.UrgencyMedium, nil
	case notifications.UrgencyLow, notifications.UrgencyMedium, notifications.UrgencyHigh:
		return notifications.Urgency(s), nil
	default:
		return "", fmt.Errorf("urgency must be low, medium or high, got %q", s)
	}
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// jsonError writes a JSON error response
func jsonError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
