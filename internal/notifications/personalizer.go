package notifications

import (
	"context"
)

// typeEmojis maps notification types to the emoji prepended to titles
// when the user has emojis enabled.
var typeEmojis = map[string]string{
	"friend_post":         "📸",
	"friend_request":      "👋",
	"comment":             "💬",
	"like":                "❤️",
	"mention":             "📣",
	"direct_message":      "✉️",
	"system_announcement": "📢",
	"weekly_progress":     "📈",
	"reminder":            "⏰",
}

const (
	genericEmoji   = "🔔"
	attentionEmoji = "✨"

	shortBodyLimit = 100
	truncatedLen   = 97

	lowEngagementThreshold = 0.3
)

// greetedTypes get a time-of-day greeting prepended to the body.
var greetedTypes = map[string]bool{
	"system_announcement": true,
	"weekly_progress":     true,
}

// PersonalizeNotificationContent returns a copy of the notification
// rewritten according to the user's content preferences and behavior
// profile. The input is never mutated; on any failure the original is
// returned unchanged.
func (e *Engine) PersonalizeNotificationContent(ctx context.Context, userID string, n Notification) Notification {
	profile := e.profileOrDefault(ctx, userID)
	prefs := e.profiles.Personalization(ctx, userID)
	if profile == nil || prefs == nil {
		return n
	}

	out := n.Clone()

	if prefs.Content.ShortMessages {
		if r := []rune(out.Body); len(r) > shortBodyLimit {
			out.Body = string(r[:truncatedLen]) + "..."
		}
	}

	if prefs.Content.UseEmojis {
		emoji, ok := typeEmojis[out.Type]
		if !ok {
			emoji = genericEmoji
		}
		out.Title = emoji + " " + out.Title
	}

	// Re-engagement heuristic: disengaged users get a louder,
	// higher-priority notification.
	if profile.EngagementRate < lowEngagementThreshold {
		out.Title = attentionEmoji + " " + out.Title
		if out.Data == nil {
			out.Data = make(map[string]string, 2)
		}
		out.Data["priority"] = "high"
		out.Data["sound"] = "default"
	}

	if greetedTypes[out.Type] {
		out.Body = greetingForHour(e.now().Hour()) + " " + out.Body
	}

	return out
}

// greetingForHour picks the greeting for announcement-style bodies.
func greetingForHour(hour int) string {
	switch {
	case hour < 12:
		return "Good morning!"
	case hour < 17:
		return "Good afternoon!"
	default:
		return "Good evening!"
	}
}
