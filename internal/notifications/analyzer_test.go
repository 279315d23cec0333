package notifications

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeUserBehavior_EmptyHistoryReturnsDefaultProfile(t *testing.T) {
	e, mock := newTestEngine(t)
	now := utc(2026, time.March, 4, 10, 0)
	setClock(e, now)

	expectHistoryFetch(mock, sqlmock.NewRows(historyColumns))

	profile := e.AnalyzeUserBehavior(context.Background(), "user-1")
	require.NotNil(t, profile)

	assert.Equal(t, []int{9, 12, 15, 18, 20}, profile.ActiveHours)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, profile.PreferredDays)
	assert.Equal(t, float64(60), profile.AvgResponseTimeMin)
	assert.Equal(t, 0.5, profile.EngagementRate)
	assert.Equal(t, QuietWindow{Start: 22, End: 6}, profile.QuietHours)
	assert.Equal(t, PatternMixed, profile.DeviceUsagePattern)
	assert.Equal(t, FrequencyMedium, profile.FrequencyPreference)
}

func TestAnalyzeUserBehavior_FetchErrorReturnsDefaultProfile(t *testing.T) {
	e, mock := newTestEngine(t)
	setClock(e, utc(2026, time.March, 4, 10, 0))

	mock.ExpectQuery("SELECT type, sent_at, read_at, clicked_at, action_taken").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(fmt.Errorf("connection refused"))

	profile := e.AnalyzeUserBehavior(context.Background(), "user-1")
	require.NotNil(t, profile)
	assert.Equal(t, []int{9, 12, 15, 18, 20}, profile.ActiveHours)
	assert.Equal(t, 0.5, profile.EngagementRate)
}

func TestAnalyzeUserBehavior_ComputesProfileFromHistory(t *testing.T) {
	e, mock := newTestEngine(t)
	now := utc(2026, time.March, 4, 10, 0)
	setClock(e, now)

	// Three reads at hour 20, two at hour 9, one unread row, one click.
	day := utc(2026, time.March, 2, 0, 0)
	rows := sqlmock.NewRows(historyColumns)
	addRows(rows,
		readRow("friend_post", day.Add(19*time.Hour), day.Add(20*time.Hour)),
		readRow("friend_post", day.Add(19*time.Hour+30*time.Minute), day.Add(20*time.Hour+30*time.Minute)),
		readRow("comment", day.Add(-4*time.Hour), day.Add(-4*time.Hour+20*time.Minute)), // hour 20 previous day
		readRow("like", day.Add(8*time.Hour), day.Add(9*time.Hour)),
		readRow("like", day.Add(8*time.Hour+30*time.Minute), day.Add(9*time.Hour+30*time.Minute)),
	)
	rows.AddRow("mention", day.Add(13*time.Hour), nil, nil, false)
	rows.AddRow("comment", day.Add(14*time.Hour), day.Add(14*time.Hour+10*time.Minute), day.Add(14*time.Hour+11*time.Minute), false)
	expectHistoryFetch(mock, rows)

	profile := e.AnalyzeUserBehavior(context.Background(), "user-1")
	require.NotNil(t, profile)

	// Hour 20 has 3 reads, hours 9 and 14 follow; ties break ascending.
	assert.Equal(t, 20, profile.ActiveHours[0])
	assert.ElementsMatch(t, []int{20, 9, 14}, profile.ActiveHours)
	assert.Equal(t, []int{20, 9, 14}, profile.ActiveHours)

	// Only the clicked row counts as engagement: 1 of 7.
	assert.InDelta(t, 1.0/7.0, profile.EngagementRate, 1e-9)
	assert.Equal(t, FrequencyLow, profile.FrequencyPreference)

	// Mean of read-sent deltas: (60+60+20+60+60+10)/6 = 45 minutes.
	assert.InDelta(t, 45.0, profile.AvgResponseTimeMin, 1e-9)

	assert.Equal(t, 7, profile.SampleSize)
	assert.Equal(t, (profile.QuietHours.Start+8)%24, profile.QuietHours.End)
}

func TestAnalyzeUserBehavior_CachesResult(t *testing.T) {
	e, mock := newTestEngine(t)
	now := utc(2026, time.March, 4, 10, 0)
	setClock(e, now)

	expectHistoryFetch(mock, sqlmock.NewRows(historyColumns))
	first := e.AnalyzeUserBehavior(context.Background(), "user-1")

	// No further DB expectation: the cached profile is served.
	cached := e.profileOrDefault(context.Background(), "user-1")
	assert.Same(t, first, cached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRankBuckets(t *testing.T) {
	counts := make([]int, 24)
	counts[3] = 5
	counts[7] = 5
	counts[12] = 9
	counts[20] = 1

	ranked := rankBuckets(counts, 8)
	assert.Equal(t, []int{12, 3, 7, 20}, ranked, "ties must break by ascending hour")
}

func TestRankBuckets_Truncates(t *testing.T) {
	counts := make([]int, 24)
	for i := 0; i < 12; i++ {
		counts[i] = i + 1
	}
	ranked := rankBuckets(counts, 8)
	assert.Len(t, ranked, 8)
	assert.Equal(t, 11, ranked[0])
}

func TestRankBuckets_SkipsZeroBuckets(t *testing.T) {
	counts := make([]int, 7)
	counts[2] = 1
	assert.Equal(t, []int{2}, rankBuckets(counts, 4))
}

func TestQuietWindowStart_FindsMinimalWindow(t *testing.T) {
	var hours [24]int
	for h := 0; h < 24; h++ {
		hours[h] = 10
	}
	// Carve a low-activity valley from 23:00 to 07:00.
	for _, h := range []int{23, 0, 1, 2, 3, 4, 5, 6} {
		hours[h] = 0
	}

	start := quietWindowStart(hours)
	assert.Equal(t, 23, start)
}

func TestQuietWindowStart_FlatHistogramPicksEarliest(t *testing.T) {
	var hours [24]int
	assert.Equal(t, 0, quietWindowStart(hours))
}

func TestQuietWindowStart_AlwaysInDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		var hours [24]int
		for h := range hours {
			hours[h] = rng.Intn(50)
		}
		start := quietWindowStart(hours)
		assert.GreaterOrEqual(t, start, 0)
		assert.LessOrEqual(t, start, 23)
	}
}

func TestClassifyUsagePattern(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*[24]int)
		want  UsagePattern
	}{
		{"morning dominant", func(h *[24]int) { h[7] = 10; h[18] = 3 }, PatternMorning},
		{"afternoon dominant", func(h *[24]int) { h[13] = 10; h[8] = 2 }, PatternAfternoon},
		{"evening dominant", func(h *[24]int) { h[19] = 10 }, PatternEvening},
		{"night wraps midnight", func(h *[24]int) { h[23] = 4; h[2] = 4; h[9] = 5 }, PatternNight},
		{"tie resolves to morning", func(h *[24]int) { h[7] = 5; h[13] = 5 }, PatternMorning},
		{"no reads is mixed", func(h *[24]int) {}, PatternMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hours [24]int
			tt.setup(&hours)
			assert.Equal(t, tt.want, classifyUsagePattern(hours))
		})
	}
}

func TestFrequencyPreference_Thresholds(t *testing.T) {
	assert.Equal(t, FrequencyHigh, frequencyPreference(0.71))
	assert.Equal(t, FrequencyMedium, frequencyPreference(0.7))
	assert.Equal(t, FrequencyMedium, frequencyPreference(0.41))
	assert.Equal(t, FrequencyLow, frequencyPreference(0.4))
	assert.Equal(t, FrequencyLow, frequencyPreference(0))
}

func TestAnalyzeInteractions_RatesAlwaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := utc(2026, time.March, 4, 10, 0)
	for i := 0; i < 50; i++ {
		n := 1 + rng.Intn(40)
		rows := make([]Interaction, n)
		for j := range rows {
			sent := now.Add(-time.Duration(rng.Intn(10000)) * time.Minute)
			rows[j] = Interaction{Type: "friend_post", SentAt: sent, ActionTaken: rng.Intn(2) == 0}
			if rng.Intn(2) == 0 {
				read := sent.Add(time.Duration(rng.Intn(600)) * time.Minute)
				rows[j].ReadAt = &read
			}
		}
		p := analyzeInteractions("u", rows, now, time.UTC)
		assert.GreaterOrEqual(t, p.EngagementRate, 0.0)
		assert.LessOrEqual(t, p.EngagementRate, 1.0)
		assert.LessOrEqual(t, len(p.ActiveHours), maxActiveHours)
		assert.LessOrEqual(t, len(p.PreferredDays), maxPreferredDays)
		assert.Equal(t, (p.QuietHours.Start+8)%24, p.QuietHours.End)
	}
}
