package notifications

import (
	"context"
	"sort"
	"time"

	"github.com/glimpseapp/notify-engine/internal/pkg/logger"
)

const (
	maxActiveHours   = 8
	maxPreferredDays = 4
	quietWindowLen   = 8

	defaultAvgResponseMin = 60
)

// AnalyzeUserBehavior recomputes a user's behavior profile from their
// recent interaction history, caches it in memory and persists it
// best-effort. It never returns an error: a failed or empty history
// fetch yields the default profile.
func (e *Engine) AnalyzeUserBehavior(ctx context.Context, userID string) *UserBehaviorData {
	now := e.now()

	rows, err := e.history.RecentInteractions(ctx, userID, e.analysisLimit)
	if err != nil {
		logger.Warn("behavior analysis fetch failed, using default profile",
			"user_id", userID, "error", err)
		return defaultProfile(userID, now, e.loc.String())
	}
	if len(rows) == 0 {
		profile := defaultProfile(userID, now, e.loc.String())
		e.profiles.SaveProfile(ctx, profile)
		return profile
	}

	profile := analyzeInteractions(userID, rows, now, e.loc)
	e.profiles.SaveProfile(ctx, profile)
	logger.Debug("behavior profile recomputed",
		"user_id", userID, "sample_size", len(rows))
	return profile
}

// analyzeInteractions derives a full profile from a non-empty history
// slice. Pure function, directly unit-tested.
func analyzeInteractions(userID string, rows []Interaction, now time.Time, loc *time.Location) *UserBehaviorData {
	hourHist, dayHist := readHistograms(rows, loc)

	engaged := 0
	var responseSumMin float64
	responseCount := 0
	lastActive := time.Time{}
	for _, r := range rows {
		if r.Engaged() {
			engaged++
		}
		if r.ReadAt != nil {
			if r.ReadAt.After(lastActive) {
				lastActive = *r.ReadAt
			}
			if !r.SentAt.IsZero() {
				responseSumMin += r.ReadAt.Sub(r.SentAt).Minutes()
				responseCount++
			}
		}
	}

	avgResponse := float64(defaultAvgResponseMin)
	if responseCount > 0 {
		avgResponse = responseSumMin / float64(responseCount)
	}

	rate := clamp01(float64(engaged) / float64(len(rows)))

	quietStart := quietWindowStart(hourHist)
	profile := &UserBehaviorData{
		UserID:              userID,
		ActiveHours:         rankBuckets(hourHist[:], maxActiveHours),
		PreferredDays:       rankBuckets(dayHist[:], maxPreferredDays),
		AvgResponseTimeMin:  avgResponse,
		EngagementRate:      rate,
		QuietHours:          QuietWindow{Start: quietStart, End: (quietStart + quietWindowLen) % 24},
		DeviceUsagePattern:  classifyUsagePattern(hourHist),
		FrequencyPreference: frequencyPreference(rate),
		LastActiveTime:      lastActive,
		TimeZone:            loc.String(),
		AnalyzedAt:          now,
		SampleSize:          len(rows),
	}
	return profile
}

// readHistograms buckets read events by hour of day and day of week.
// Only rows with a read timestamp count: the histograms model
// engagement, not exposure.
func readHistograms(rows []Interaction, loc *time.Location) (hours [24]int, days [7]int) {
	for _, r := range rows {
		if r.ReadAt == nil {
			continue
		}
		local := r.ReadAt.In(loc)
		hours[local.Hour()]++
		days[int(local.Weekday())]++
	}
	return hours, days
}

// rankBuckets returns the indices of non-zero buckets ordered by count
// descending, ties broken by ascending index, truncated to limit.
// The tie-break keeps ranking deterministic across runs.
func rankBuckets(counts []int, limit int) []int {
	idx := make([]int, 0, len(counts))
	for i, c := range counts {
		if c > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if counts[idx[a]] != counts[idx[b]] {
			return counts[idx[a]] > counts[idx[b]]
		}
		return idx[a] < idx[b]
	})
	if len(idx) > limit {
		idx = idx[:limit]
	}
	return idx
}

// quietWindowStart finds the start of the 8-hour circular window with
// the smallest total read count. The earliest start wins ties, so the
// result is deterministic for flat histograms.
func quietWindowStart(hours [24]int) int {
	bestStart := 0
	bestSum := -1
	for start := 0; start < 24; start++ {
		sum := 0
		for i := 0; i < quietWindowLen; i++ {
			sum += hours[(start+i)%24]
		}
		if bestSum < 0 || sum < bestSum {
			bestSum = sum
			bestStart = start
		}
	}
	return bestStart
}

// usageWindows are the fixed day-part buckets for pattern
// classification. Night wraps midnight.
var usageWindows = []struct {
	pattern UsagePattern
	hours   []int
}{
	{PatternMorning, []int{6, 7, 8, 9, 10, 11}},
	{PatternAfternoon, []int{12, 13, 14, 15, 16}},
	{PatternEvening, []int{17, 18, 19, 20, 21}},
	{PatternNight, []int{22, 23, 0, 1, 2, 3, 4, 5}},
}

// classifyUsagePattern picks the day-part window with the most read
// activity. Ties resolve in window order (morning first). A user with
// no read activity at all is mixed, not morning.
func classifyUsagePattern(hours [24]int) UsagePattern {
	best := PatternMixed
	bestSum := 0
	for _, w := range usageWindows {
		sum := 0
		for _, h := range w.hours {
			sum += hours[h]
		}
		if sum > bestSum {
			bestSum = sum
			best = w.pattern
		}
	}
	return best
}

// frequencyPreference maps engagement rate to a delivery frequency
// tier. Thresholds are exclusive: exactly 0.7 is medium, exactly 0.4
// is low.
func frequencyPreference(rate float64) FrequencyPreference {
	switch {
	case rate > 0.7:
		return FrequencyHigh
	case rate > 0.4:
		return FrequencyMedium
	default:
		return FrequencyLow
	}
}

// defaultProfile is the conservative profile used for users with no
// usable history and as the fail-closed fallback for fetch errors.
func defaultProfile(userID string, now time.Time, timeZone string) *UserBehaviorData {
	return &UserBehaviorData{
		UserID:              userID,
		ActiveHours:         []int{9, 12, 15, 18, 20},
		PreferredDays:       []int{1, 2, 3, 4, 5}, // weekdays
		AvgResponseTimeMin:  defaultAvgResponseMin,
		EngagementRate:      0.5,
		QuietHours:          QuietWindow{Start: 22, End: 6},
		DeviceUsagePattern:  PatternMixed,
		FrequencyPreference: FrequencyMedium,
		LastActiveTime:      now,
		TimeZone:            timeZone,
		AnalyzedAt:          now,
	}
}
