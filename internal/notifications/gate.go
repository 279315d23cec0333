package notifications

import (
	"context"
	"time"

	"github.com/glimpseapp/notify-engine/internal/pkg/logger"
)

// defaultFrequencyCaps is the built-in per-type daily cap table,
// applied when a user has no custom cap for the type. Unknown types
// fall back to defaultFrequencyCap.
var defaultFrequencyCaps = map[string]int{
	"friend_post":         5,
	"friend_request":      10,
	"comment":             10,
	"like":                20,
	"mention":             15,
	"direct_message":      30,
	"system_announcement": 2,
	"weekly_progress":     1,
	"reminder":            3,
}

const defaultFrequencyCap = 10

const (
	nightSuppressStartHour = 1
	nightSuppressEndHour   = 5
	deliveryResumeHour     = 6

	inactiveHourDelayMin = 60
	capReachedDelayMin   = 1440 // try again tomorrow
)

// ShouldSendNotificationNow makes the binary send/suppress decision
// for a notification, with a suggested retry delay in minutes when
// suppressed. Evaluation fails open: on any internal error the
// decision is to send, favoring availability over strict policy.
func (e *Engine) ShouldSendNotificationNow(ctx context.Context, userID, notificationType string, urgency Urgency) DeliveryDecision {
	decision, err := e.evaluateDelivery(ctx, userID, notificationType, urgency)
	if err != nil {
		logger.Warn("delivery evaluation failed, failing open",
			"user_id", userID, "type", notificationType, "error", err)
		return DeliveryDecision{ShouldSend: true, Reason: "default due to error"}
	}
	return decision
}

// evaluateDelivery runs the delivery rule chain; the first matching
// rule wins.
func (e *Engine) evaluateDelivery(ctx context.Context, userID, notificationType string, urgency Urgency) (DeliveryDecision, error) {
	now := e.now()
	profile := e.profileOrDefault(ctx, userID)
	prefs := e.profiles.Personalization(ctx, userID)

	if err := validateProfile(profile); err != nil {
		return DeliveryDecision{}, err
	}

	// Rule 1: deep night overrides even high urgency; otherwise high
	// urgency always sends.
	if urgency == UrgencyHigh {
		if hour := now.Hour(); hour >= nightSuppressStartHour && hour <= nightSuppressEndHour {
			return DeliveryDecision{
				ShouldSend:        false,
				Reason:            "deep night, deferred to morning",
				SuggestedDelayMin: minutesUntilHour(now, deliveryResumeHour),
			}, nil
		}
		return DeliveryDecision{ShouldSend: true, Reason: "high urgency"}, nil
	}

	// Rule 2: quiet hours.
	if prefs.Delivery.RespectQuietHours && profile.QuietHours.Contains(now.Hour()) {
		delay := int(nextActiveTime(profile.ActiveHours, now).Sub(now).Minutes())
		if delay < 0 {
			delay = 0
		}
		return DeliveryDecision{
			ShouldSend:        false,
			Reason:            "inside quiet hours",
			SuggestedDelayMin: delay,
		}, nil
	}

	// Rule 3: low urgency waits for an active hour.
	if urgency == UrgencyLow && !containsHour(profile.ActiveHours, now.Hour()) {
		return DeliveryDecision{
			ShouldSend:        false,
			Reason:            "outside active hours",
			SuggestedDelayMin: inactiveHourDelayMin,
		}, nil
	}

	// Rule 4: per-type daily frequency cap.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sent, err := e.history.SentCountSince(ctx, userID, notificationType, dayStart)
	if err != nil {
		return DeliveryDecision{}, err
	}
	if limit := e.frequencyCap(prefs, notificationType); sent >= limit {
		return DeliveryDecision{
			ShouldSend:        false,
			Reason:            "daily frequency cap reached",
			SuggestedDelayMin: capReachedDelayMin,
		}, nil
	}

	return DeliveryDecision{ShouldSend: true, Reason: "optimal time"}, nil
}

// frequencyCap resolves the effective daily cap for a type: the user's
// custom cap, then the configured table, then the generic default.
func (e *Engine) frequencyCap(prefs *NotificationPersonalization, notificationType string) int {
	if limit, ok := prefs.CustomFrequency[notificationType]; ok {
		return limit
	}
	if limit, ok := e.caps[notificationType]; ok {
		return limit
	}
	return defaultFrequencyCap
}

// minutesUntilHour is the number of minutes from now until the next
// occurrence of the given hour today. Callers only use it for hours
// still ahead of now.
func minutesUntilHour(now time.Time, hour int) int {
	return (hour-now.Hour())*60 - now.Minute()
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}
