package notifications

import (
	"context"
	"fmt"
	"sort"

	"github.com/glimpseapp/notify-engine/internal/pkg/logger"
)

const (
	topPreferredTypes     = 3
	bottomEngagementTypes = 2

	slowResponseThresholdMin = 240
)

// behaviorPatternSentences describes each usage pattern for the
// settings UI.
var behaviorPatternSentences = map[UsagePattern]string{
	PatternMorning:   "You're most active in the morning and tend to catch up on notifications early in the day.",
	PatternAfternoon: "You're most active in the afternoon, checking in around midday.",
	PatternEvening:   "You're most active in the evening, usually winding down with the app after work hours.",
	PatternNight:     "You're a night owl - most of your activity happens late at night.",
	PatternMixed:     "Your activity is spread throughout the day with no single dominant time.",
}

// GeneratePersonalizationInsights aggregates recent per-type
// engagement into display-ready insights and persists them
// best-effort. It never returns an error: with no usable history the
// insights are computed from the cached (or default) profile alone.
func (e *Engine) GeneratePersonalizationInsights(ctx context.Context, userID string) *PersonalizationInsights {
	now := e.now()
	profile := e.profileOrDefault(ctx, userID)

	rows, err := e.history.RecentInteractions(ctx, userID, e.insightsLimit)
	if err != nil {
		logger.Warn("insights fetch failed, using profile only",
			"user_id", userID, "error", err)
		rows = nil
	}

	byType := engagementByType(rows)

	insights := &PersonalizationInsights{
		UserID:             userID,
		BestEngagementTime: bestEngagementTime(profile),
		PreferredTypes:     topTypesByRate(byType, topPreferredTypes),
		LowEngagementTypes: bottomTypesByRate(byType, bottomEngagementTypes),
		TypeFrequency:      sentCounts(byType),
		BehaviorPattern:    behaviorPatternSentences[profile.DeviceUsagePattern],
		Recommendations:    buildRecommendations(profile, bottomTypesByRate(byType, bottomEngagementTypes)),
		GeneratedAt:        now,
	}

	e.profiles.SaveInsights(ctx, insights)
	return insights
}

// engagementByType tallies sent/engaged counts per notification type.
func engagementByType(rows []Interaction) []TypeEngagement {
	tally := make(map[string]*TypeEngagement)
	for _, r := range rows {
		te, ok := tally[r.Type]
		if !ok {
			te = &TypeEngagement{Type: r.Type}
			tally[r.Type] = te
		}
		te.Sent++
		if r.Engaged() {
			te.Engaged++
		}
	}

	out := make([]TypeEngagement, 0, len(tally))
	for _, te := range tally {
		te.Rate = clamp01(float64(te.Engaged) / float64(te.Sent))
		out = append(out, *te)
	}
	// Deterministic base order before rate ranking.
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// topTypesByRate returns the n types with the highest engagement rate.
// Ties resolve alphabetically via the pre-sorted base order.
func topTypesByRate(types []TypeEngagement, n int) []TypeEngagement {
	ranked := make([]TypeEngagement, len(types))
	copy(ranked, types)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rate > ranked[j].Rate })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// bottomTypesByRate returns the n types with the lowest engagement
// rate, lowest first.
func bottomTypesByRate(types []TypeEngagement, n int) []TypeEngagement {
	ranked := make([]TypeEngagement, len(types))
	copy(ranked, types)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rate < ranked[j].Rate })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func sentCounts(types []TypeEngagement) map[string]int {
	out := make(map[string]int, len(types))
	for _, te := range types {
		out[te.Type] = te.Sent
	}
	return out
}

// bestEngagementTime formats the profile's top active hour as a
// 12-hour clock label, e.g. 18 -> "6:00 PM".
func bestEngagementTime(profile *UserBehaviorData) string {
	if len(profile.ActiveHours) == 0 {
		return "unknown"
	}
	return formatHourLabel(profile.ActiveHours[0])
}

// formatHourLabel renders an hour of day as "H:00 AM/PM" with proper
// 12-hour conversion.
func formatHourLabel(hour int) string {
	suffix := "AM"
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		display = hour - 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}

// buildRecommendations applies the fixed threshold rules.
func buildRecommendations(profile *UserBehaviorData, lowTypes []TypeEngagement) []string {
	var recs []string
	if profile.EngagementRate < lowEngagementThreshold {
		recs = append(recs, "You engage with few notifications. Consider reducing notification frequency in settings.")
	}
	if profile.AvgResponseTimeMin > slowResponseThresholdMin {
		recs = append(recs, "You usually read notifications hours after they arrive. We can adjust delivery timing to match your schedule.")
	}
	if len(lowTypes) > 0 {
		recs = append(recs, fmt.Sprintf("You rarely engage with %q notifications. Consider muting this type.", lowTypes[0].Type))
	}
	return recs
}
