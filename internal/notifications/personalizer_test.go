package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProfile(e *Engine, userID string, rate float64) {
	p := defaultProfile(userID, e.now(), "UTC")
	p.EngagementRate = rate
	e.profiles.SaveProfile(context.Background(), p)
}

func TestPersonalizeNotificationContent_NeverMutatesInput(t *testing.T) {
	e, _ := newTestEngine(t)
	setClock(e, utc(2026, time.March, 4, 9, 0))
	seedProfile(e, "user-1", 0.1) // triggers the re-engagement branch too

	original := Notification{
		ID:    "n-1",
		Type:  "system_announcement",
		Title: "Maintenance window",
		Body:  strings.Repeat("x", 150),
		Data:  map[string]string{"screen": "home"},
	}
	prefs := DefaultPersonalization("user-1")
	prefs.Content.ShortMessages = true
	e.profiles.SavePersonalization(context.Background(), prefs)

	out := e.PersonalizeNotificationContent(context.Background(), "user-1", original)

	assert.Equal(t, "Maintenance window", original.Title)
	assert.Equal(t, strings.Repeat("x", 150), original.Body)
	assert.Equal(t, map[string]string{"screen": "home"}, original.Data)
	assert.NotEqual(t, original.Title, out.Title)
}

func TestPersonalizeNotificationContent_TruncatesLongBodies(t *testing.T) {
	e, _ := newTestEngine(t)
	setClock(e, utc(2026, time.March, 4, 9, 0))
	seedProfile(e, "user-1", 0.8)

	prefs := DefaultPersonalization("user-1")
	prefs.Content.ShortMessages = true
	prefs.Content.UseEmojis = false
	e.profiles.SavePersonalization(context.Background(), prefs)

	out := e.PersonalizeNotificationContent(context.Background(), "user-1", Notification{
		Type: "comment",
		Body: strings.Repeat("a", 150),
	})

	assert.Equal(t, strings.Repeat("a", 97)+"...", out.Body)
}

func TestPersonalizeNotificationContent_ShortBodiesUntouched(t *testing.T) {
	e, _ := newTestEngine(t)
	setClock(e, utc(2026, time.March, 4, 9, 0))
	seedProfile(e, "user-1", 0.8)

	prefs := DefaultPersonalization("user-1")
	prefs.Content.ShortMessages = true
	prefs.Content.UseEmojis = false
	e.profiles.SavePersonalization(context.Background(), prefs)

	out := e.PersonalizeNotificationContent(context.Background(), "user-1", Notification{
		Type: "comment",
		Body: "short enough",
	})

	assert.Equal(t, "short enough", out.Body)
}

func TestPersonalizeNotificationContent_TypeEmoji(t *testing.T) {
	e, _ := newTestEngine(t)
	setClock(e, utc(2026, time.March, 4, 9, 0))
	seedProfile(e, "user-1", 0.8)

	out := e.PersonalizeNotificationContent(context.Background(), "user-1", Notification{
		Type:  "comment",
		Title: "New comment",
	})
	assert.Equal(t, "💬 New comment", out.Title)

	out = e.PersonalizeNotificationContent(context.Background(), "user-1", Notification{
		Type:  "something_unmapped",
		Title: "Hello",
	})
	assert.Equal(t, "🔔 Hello", out.Title, "unmapped types get the generic emoji")
}

func TestPersonalizeNotificationContent_ReengagementBoost(t *testing.T) {
	e, _ := newTestEngine(t)
	setClock(e, utc(2026, time.March, 4, 9, 0))
	seedProfile(e, "user-1", 0.1)

	prefs := DefaultPersonalization("user-1")
	prefs.Content.UseEmojis = false
	e.profiles.SavePersonalization(context.Background(), prefs)

	out := e.PersonalizeNotificationContent(context.Background(), "user-1", Notification{
		Type:  "like",
		Title: "Someone liked your photo",
	})

	assert.True(t, strings.HasPrefix(out.Title, "✨ "))
	require.NotNil(t, out.Data, "data map is created when absent")
	assert.Equal(t, "high", out.Data["priority"])
	assert.Equal(t, "default", out.Data["sound"])
}

func TestPersonalizeNotificationContent_Greetings(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{9, "Good morning!"},
		{13, "Good afternoon!"},
		{20, "Good evening!"},
	}
	for _, tt := range tests {
		e, _ := newTestEngine(t)
		setClock(e, utc(2026, time.March, 4, tt.hour, 0))
		seedProfile(e, "user-1", 0.8)

		prefs := DefaultPersonalization("user-1")
		prefs.Content.UseEmojis = false
		e.profiles.SavePersonalization(context.Background(), prefs)

		out := e.PersonalizeNotificationContent(context.Background(), "user-1", Notification{
			Type: "weekly_progress",
			Body: "You posted 4 photos this week.",
		})
		assert.Equal(t, tt.want+" You posted 4 photos this week.", out.Body)
	}
}

func TestGreetingForHour_Boundaries(t *testing.T) {
	assert.Equal(t, "Good morning!", greetingForHour(0))
	assert.Equal(t, "Good morning!", greetingForHour(11))
	assert.Equal(t, "Good afternoon!", greetingForHour(12))
	assert.Equal(t, "Good afternoon!", greetingForHour(16))
	assert.Equal(t, "Good evening!", greetingForHour(17))
	assert.Equal(t, "Good evening!", greetingForHour(23))
}
