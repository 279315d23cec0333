// Package notifications implements the behavior-analysis and
// delivery-scheduling engine: it turns a user's raw notification
// interaction history into a behavior profile, decides when and whether
// a notification should be delivered, personalizes its content, and
// produces aggregate engagement insights.
package notifications

import "time"

// Urgency is the caller-supplied priority tier gating delivery rules.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// UsagePattern classifies which part of the day a user engages most.
type UsagePattern string

const (
	PatternMorning   UsagePattern = "morning"
	PatternAfternoon UsagePattern = "afternoon"
	PatternEvening   UsagePattern = "evening"
	PatternNight     UsagePattern = "night"
	PatternMixed     UsagePattern = "mixed"
)

// FrequencyPreference is derived from the engagement rate and drives
// how chatty the app should be with a user.
type FrequencyPreference string

const (
	FrequencyHigh   FrequencyPreference = "high"
	FrequencyMedium FrequencyPreference = "medium"
	FrequencyLow    FrequencyPreference = "low"
)

// Interaction is a single row from the remote notification history
// store. The engine never writes these; they are produced by the
// delivery pipeline and the mobile clients.
type Interaction struct {
	Type        string     `json:"type"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty"`
	ActionTaken bool       `json:"action_taken"`
}

// Engaged reports whether the interaction counts as engagement
// (a click or a recorded in-app action).
func (i Interaction) Engaged() bool {
	return i.ClickedAt != nil || i.ActionTaken
}

// QuietWindow is an 8-hour circular window of minimal historical read
// activity. End is always (Start+8) mod 24.
type QuietWindow struct {
	Start int `json:"start"` // hour of day, 0-23
	End   int `json:"end"`   // hour of day, 0-23
}

// Contains reports whether the given hour falls inside the window,
// handling midnight wraparound.
func (q QuietWindow) Contains(hour int) bool {
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

// UserBehaviorData is the derived per-user behavior profile. It is
// recomputed as a whole by AnalyzeUserBehavior and never partially
// mutated.
type UserBehaviorData struct {
	UserID string `json:"user_id"`

	// ActiveHours holds up to 8 hours of day (0-23) ranked by
	// historical read count, ties broken by ascending hour.
	ActiveHours []int `json:"active_hours"`
	// PreferredDays holds up to 4 days of week (0=Sunday) under the
	// same ranking rule.
	PreferredDays []int `json:"preferred_days"`

	AvgResponseTimeMin  float64             `json:"avg_response_time_min"`
	EngagementRate      float64             `json:"engagement_rate"`
	QuietHours          QuietWindow         `json:"quiet_hours"`
	DeviceUsagePattern  UsagePattern        `json:"device_usage_pattern"`
	FrequencyPreference FrequencyPreference `json:"frequency_preference"`
	LastActiveTime      time.Time           `json:"last_active_time"`
	TimeZone            string              `json:"time_zone"`
	AnalyzedAt          time.Time           `json:"analyzed_at"`
	SampleSize          int                 `json:"sample_size"`
}

// ContentPreferences controls how notification content is rendered
// for a user.
type ContentPreferences struct {
	ShowImages    bool `json:"show_images"`
	ShowPreviews  bool `json:"show_previews"`
	UseEmojis     bool `json:"use_emojis"`
	ShortMessages bool `json:"short_messages"`
}

// DeliveryPreferences controls when notifications are delivered.
type DeliveryPreferences struct {
	BatchSimilar      bool `json:"batch_similar"`
	DelayNonUrgent    bool `json:"delay_non_urgent"`
	RespectQuietHours bool `json:"respect_quiet_hours"`
	AdaptToActivity   bool `json:"adapt_to_activity"`
}

// NotificationPersonalization holds a user's explicit personalization
// settings. Defaults are seeded on first access; updates come through
// UpdatePersonalization only.
type NotificationPersonalization struct {
	UserID          string              `json:"user_id"`
	PreferredTypes  []string            `json:"preferred_types"`
	MutedTypes      []string            `json:"muted_types"`
	CustomFrequency map[string]int      `json:"custom_frequency"` // per-type daily caps
	Content         ContentPreferences  `json:"content"`
	Delivery        DeliveryPreferences `json:"delivery"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Notification is the deliverable payload the personalizer operates on.
type Notification struct {
	ID     string            `json:"id"`
	UserID string            `json:"user_id"`
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Clone returns a deep copy so personalization never mutates the input.
func (n Notification) Clone() Notification {
	out := n
	if n.Data != nil {
		out.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			out.Data[k] = v
		}
	}
	return out
}

// OptimalTiming is a delivery-time recommendation.
type OptimalTiming struct {
	SendAt       time.Time   `json:"send_at"`
	Confidence   float64     `json:"confidence"`
	Reason       string      `json:"reason"`
	Alternatives []time.Time `json:"alternatives,omitempty"` // up to 3
}

// DeliveryDecision is the binary send/suppress outcome with a
// suggested retry delay for suppressed notifications.
type DeliveryDecision struct {
	ShouldSend        bool   `json:"should_send"`
	Reason            string `json:"reason"`
	SuggestedDelayMin int    `json:"suggested_delay_min,omitempty"`
}

// TypeEngagement is a per-notification-type engagement snapshot.
type TypeEngagement struct {
	Type    string  `json:"type"`
	Sent    int     `json:"sent"`
	Engaged int     `json:"engaged"`
	Rate    float64 `json:"rate"`
}

// PersonalizationInsights aggregates per-type engagement into
// human-readable recommendations for the settings UI.
type PersonalizationInsights struct {
	UserID             string           `json:"user_id"`
	BestEngagementTime string           `json:"best_engagement_time"`
	PreferredTypes     []TypeEngagement `json:"preferred_types"`      // top 3 by rate
	LowEngagementTypes []TypeEngagement `json:"low_engagement_types"` // bottom 2 by rate
	TypeFrequency      map[string]int   `json:"type_frequency"`
	BehaviorPattern    string           `json:"behavior_pattern"`
	Recommendations    []string         `json:"recommendations"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// clamp01 clamps rates and confidences into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
