package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glimpseapp/notify-engine/internal/pkg/logger"
)

// Redis key namespaces, one per data kind.
const (
	profileKeyPrefix  = "notify:profile:"
	prefsKeyPrefix    = "notify:prefs:"
	insightsKeyPrefix = "notify:insights:"
)

// ProfileStore caches behavior profiles and personalization settings
// in memory and persists them to Redis as best-effort JSON blobs.
// Persistence failures are logged and never propagated; a cold start
// without Redis just means defaults until the next analysis call.
//
// Concurrent analysis of the same user is not a supported use case:
// two racing writers resolve last-writer-wins under the mutex.
type ProfileStore struct {
	rdb *redis.Client // nil disables persistence

	mu       sync.RWMutex
	profiles map[string]*UserBehaviorData
	prefs    map[string]*NotificationPersonalization
}

// NewProfileStore creates a store. rdb may be nil for memory-only mode.
func NewProfileStore(rdb *redis.Client) *ProfileStore {
	return &ProfileStore{
		rdb:      rdb,
		profiles: make(map[string]*UserBehaviorData),
		prefs:    make(map[string]*NotificationPersonalization),
	}
}

// Profile returns the cached behavior profile for a user, falling back
// to the durable cache and finally to nil when the user has never been
// analyzed.
func (s *ProfileStore) Profile(ctx context.Context, userID string) *UserBehaviorData {
	s.mu.RLock()
	p, ok := s.profiles[userID]
	s.mu.RUnlock()
	if ok {
		return p
	}

	loaded := &UserBehaviorData{}
	if !s.loadBlob(ctx, profileKeyPrefix+userID, loaded) {
		return nil
	}
	s.mu.Lock()
	// A concurrent analysis may have filled this in; keep the fresher copy.
	if p, ok := s.profiles[userID]; ok {
		s.mu.Unlock()
		return p
	}
	s.profiles[userID] = loaded
	s.mu.Unlock()
	return loaded
}

// SaveProfile stores a freshly computed profile in memory and
// persists it best-effort.
func (s *ProfileStore) SaveProfile(ctx context.Context, p *UserBehaviorData) {
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
	s.saveBlob(ctx, profileKeyPrefix+p.UserID, p)
}

// Personalization returns a user's personalization settings, seeding
// defaults on first access.
func (s *ProfileStore) Personalization(ctx context.Context, userID string) *NotificationPersonalization {
	s.mu.RLock()
	p, ok := s.prefs[userID]
	s.mu.RUnlock()
	if ok {
		return p
	}

	loaded := &NotificationPersonalization{}
	if !s.loadBlob(ctx, prefsKeyPrefix+userID, loaded) {
		loaded = DefaultPersonalization(userID)
	}
	s.mu.Lock()
	if p, ok := s.prefs[userID]; ok {
		s.mu.Unlock()
		return p
	}
	s.prefs[userID] = loaded
	s.mu.Unlock()
	return loaded
}

// SavePersonalization stores explicit personalization updates. The
// caller's object is never mutated: clamping of negative frequency
// caps and the UpdatedAt stamp apply to a stored copy.
func (s *ProfileStore) SavePersonalization(ctx context.Context, p *NotificationPersonalization) {
	stored := *p
	stored.PreferredTypes = append([]string(nil), p.PreferredTypes...)
	stored.MutedTypes = append([]string(nil), p.MutedTypes...)
	stored.CustomFrequency = make(map[string]int, len(p.CustomFrequency))
	for t, limit := range p.CustomFrequency {
		if limit < 0 {
			limit = 0
		}
		stored.CustomFrequency[t] = limit
	}
	stored.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.prefs[stored.UserID] = &stored
	s.mu.Unlock()
	s.saveBlob(ctx, prefsKeyPrefix+stored.UserID, &stored)
}

// SaveInsights persists generated insights for later display.
func (s *ProfileStore) SaveInsights(ctx context.Context, in *PersonalizationInsights) {
	s.saveBlob(ctx, insightsKeyPrefix+in.UserID, in)
}

// Insights returns the last persisted insights, or nil.
func (s *ProfileStore) Insights(ctx context.Context, userID string) *PersonalizationInsights {
	in := &PersonalizationInsights{}
	if !s.loadBlob(ctx, insightsKeyPrefix+userID, in) {
		return nil
	}
	return in
}

// DefaultPersonalization returns the settings seeded for a user who
// has never customized anything.
func DefaultPersonalization(userID string) *NotificationPersonalization {
	return &NotificationPersonalization{
		UserID:          userID,
		CustomFrequency: make(map[string]int),
		Content: ContentPreferences{
			ShowImages:   true,
			ShowPreviews: true,
			UseEmojis:    true,
		},
		Delivery: DeliveryPreferences{
			BatchSimilar:      true,
			DelayNonUrgent:    true,
			RespectQuietHours: true,
			AdaptToActivity:   true,
		},
		UpdatedAt: time.Now().UTC(),
	}
}

func (s *ProfileStore) loadBlob(ctx context.Context, key string, dst interface{}) bool {
	if s.rdb == nil {
		return false
	}
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("profile cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("profile cache blob corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (s *ProfileStore) saveBlob(ctx context.Context, key string, v interface{}) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("profile cache marshal failed", "key", key, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		logger.Warn("profile cache write failed", "key", key, "error", fmt.Sprintf("%v", err))
	}
}
