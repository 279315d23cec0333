package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/glimpseapp/notify-engine/internal/pkg/logger"
)

const (
	jitterMaxMin       = 30 // storm-avoidance jitter on hour-aligned sends
	fallbackDelayMin   = 5
	defaultMorningHour = 9
	maxAlternatives    = 3
)

// GetOptimalNotificationTime recommends a future delivery instant for
// a notification of the given type and urgency. It never returns an
// error: any internal failure collapses to a low-confidence
// recommendation 5 minutes from now.
func (e *Engine) GetOptimalNotificationTime(ctx context.Context, userID, notificationType string, urgency Urgency) OptimalTiming {
	now := e.now()
	profile := e.profileOrDefault(ctx, userID)
	prefs := e.profiles.Personalization(ctx, userID)

	timing, err := e.recommendTiming(profile, prefs, urgency, now)
	if err != nil {
		logger.Warn("timing recommendation failed, using fallback",
			"user_id", userID, "type", notificationType, "error", err)
		return fallbackTiming(now)
	}
	return timing
}

// recommendTiming applies the delivery-timing rules in order. Errors
// surface only for profiles that fail validation (e.g. a corrupt
// cached blob); the public wrapper turns them into the fallback.
func (e *Engine) recommendTiming(profile *UserBehaviorData, prefs *NotificationPersonalization, urgency Urgency, now time.Time) (OptimalTiming, error) {
	if err := validateProfile(profile); err != nil {
		return OptimalTiming{}, err
	}

	inQuiet := profile.QuietHours.Contains(now.Hour())

	// Rule 1: high urgency sends immediately, unless inside quiet
	// hours (urgency does not override quiet hours here).
	if urgency == UrgencyHigh && !inQuiet {
		return OptimalTiming{
			SendAt:       now,
			Confidence:   0.9,
			Reason:       "high urgency",
			Alternatives: alternativeTimes(profile.ActiveHours, now.Hour(), now),
		}, nil
	}

	// Rule 2: respect quiet hours.
	if prefs.Delivery.RespectQuietHours && inQuiet {
		return OptimalTiming{
			SendAt:       nextActiveTime(profile.ActiveHours, now),
			Confidence:   0.8,
			Reason:       "delayed for quiet hours",
			Alternatives: []time.Time{now},
		}, nil
	}

	// Rule 3: earliest active hour still later today, jittered to
	// avoid notification storms on the hour boundary.
	if h, ok := earliestActiveHourAfter(profile.ActiveHours, now.Hour()); ok {
		sendAt := atHour(now, h).Add(time.Duration(e.jitterMin(jitterMaxMin+1)) * time.Minute)
		return OptimalTiming{
			SendAt:       sendAt,
			Confidence:   0.8,
			Reason:       "next active hour",
			Alternatives: alternativeTimes(profile.ActiveHours, h, sendAt),
		}, nil
	}

	// Rule 4: nothing left today, take tomorrow's earliest active hour.
	h := earliestActiveHour(profile.ActiveHours)
	sendAt := atHour(now.AddDate(0, 0, 1), h)
	return OptimalTiming{
		SendAt:       sendAt,
		Confidence:   0.6,
		Reason:       "no active hours remaining today",
		Alternatives: alternativeTimes(profile.ActiveHours, h, sendAt),
	}, nil
}

// nextActiveTime is the earliest active hour later today, else
// tomorrow's earliest active hour.
func nextActiveTime(activeHours []int, now time.Time) time.Time {
	if h, ok := earliestActiveHourAfter(activeHours, now.Hour()); ok {
		return atHour(now, h)
	}
	return atHour(now.AddDate(0, 0, 1), earliestActiveHour(activeHours))
}

// earliestActiveHourAfter returns the smallest active hour strictly
// greater than the given hour.
func earliestActiveHourAfter(activeHours []int, hour int) (int, bool) {
	best, found := 0, false
	for _, h := range activeHours {
		if h > hour && (!found || h < best) {
			best, found = h, true
		}
	}
	return best, found
}

// earliestActiveHour returns the smallest active hour, defaulting to 9
// for profiles with none.
func earliestActiveHour(activeHours []int) int {
	if len(activeHours) == 0 {
		return defaultMorningHour
	}
	best := activeHours[0]
	for _, h := range activeHours[1:] {
		if h < best {
			best = h
		}
	}
	return best
}

// alternativeTimes lists up to 3 other active hours on the same date
// as the recommendation, excluding the chosen hour.
func alternativeTimes(activeHours []int, chosenHour int, sendAt time.Time) []time.Time {
	var out []time.Time
	for _, h := range activeHours {
		if h == chosenHour {
			continue
		}
		out = append(out, atHour(sendAt, h))
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}

// atHour returns t's date at the given hour on the hour.
func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// fallbackTiming is the defined result when recommendation fails.
func fallbackTiming(now time.Time) OptimalTiming {
	return OptimalTiming{
		SendAt:     now.Add(fallbackDelayMin * time.Minute),
		Confidence: 0.3,
		Reason:     "behavior analysis unavailable",
	}
}

// validateProfile rejects profiles whose ranked hours or quiet window
// escaped their domains, which can only happen through a corrupt
// cached blob.
func validateProfile(p *UserBehaviorData) error {
	for _, h := range p.ActiveHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("active hour %d out of range", h)
		}
	}
	for _, d := range p.PreferredDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("preferred day %d out of range", d)
		}
	}
	if p.QuietHours.Start < 0 || p.QuietHours.Start > 23 {
		return fmt.Errorf("quiet window start %d out of range", p.QuietHours.Start)
	}
	return nil
}
