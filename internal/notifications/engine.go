package notifications

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glimpseapp/notify-engine/internal/pkg/logger"
)

// Config holds engine tunables.
type Config struct {
	Timezone             string
	AnalysisHistoryLimit int            // rows fetched per behavior analysis (default 500)
	InsightsHistoryLimit int            // rows fetched per insights run (default 200)
	FrequencyCaps        map[string]int // per-type daily caps overriding the defaults table
}

// Engine is the notification intelligence service. Construct one
// instance at startup and inject it; there is no package-level
// singleton. Every public method is total: it returns a defined
// fallback instead of an error (see the per-method docs).
type Engine struct {
	history  *HistoryStore
	profiles *ProfileStore
	loc      *time.Location

	analysisLimit int
	insightsLimit int
	caps          map[string]int

	// Injectable for deterministic tests.
	now       func() time.Time
	jitterMin func(n int) int
}

// NewEngine wires the engine over the history database and the
// optional Redis profile cache (nil for memory-only operation).
func NewEngine(db *sql.DB, rdb *redis.Client, cfg Config) *Engine {
	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		} else {
			logger.Warn("invalid engine timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		}
	}
	if cfg.AnalysisHistoryLimit <= 0 {
		cfg.AnalysisHistoryLimit = 500
	}
	if cfg.InsightsHistoryLimit <= 0 {
		cfg.InsightsHistoryLimit = 200
	}

	caps := make(map[string]int, len(defaultFrequencyCaps)+len(cfg.FrequencyCaps))
	for t, limit := range defaultFrequencyCaps {
		caps[t] = limit
	}
	for t, limit := range cfg.FrequencyCaps {
		if limit >= 0 {
			caps[t] = limit
		}
	}

	e := &Engine{
		history:       NewHistoryStore(db),
		profiles:      NewProfileStore(rdb),
		loc:           loc,
		analysisLimit: cfg.AnalysisHistoryLimit,
		insightsLimit: cfg.InsightsHistoryLimit,
		caps:          caps,
		// Top-level rand is internally locked, so the shared jitter
		// source is safe under concurrent timing calls.
		jitterMin: rand.Intn,
	}
	e.now = func() time.Time { return time.Now().In(e.loc) }
	return e
}

// profileOrDefault returns the cached profile for a user, or the
// default profile when the user has never been analyzed. It never
// triggers a fresh analysis.
func (e *Engine) profileOrDefault(ctx context.Context, userID string) *UserBehaviorData {
	if p := e.profiles.Profile(ctx, userID); p != nil {
		return p
	}
	return defaultProfile(userID, e.now(), e.loc.String())
}

// GetPersonalization returns a user's personalization settings,
// seeding defaults on first access.
func (e *Engine) GetPersonalization(ctx context.Context, userID string) *NotificationPersonalization {
	return e.profiles.Personalization(ctx, userID)
}

// UpdatePersonalization applies an explicit settings update.
func (e *Engine) UpdatePersonalization(ctx context.Context, p *NotificationPersonalization) {
	e.profiles.SavePersonalization(ctx, p)
	logger.Info("personalization updated", "user_id", p.UserID)
}
