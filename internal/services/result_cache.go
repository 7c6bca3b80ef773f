package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/pkg/models"
)

// ResultCache keeps computed recommendation records keyed by student id.
// The in-process map is authoritative; Redis, when configured, is a warm
// tier shared across instances. Redis failures degrade to local-only
// operation.
type ResultCache struct {
	mu    sync.RWMutex
	local map[string]*models.RecommendationRecord

	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewResultCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *ResultCache {
	return &ResultCache{
		local:  make(map[string]*models.RecommendationRecord),
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached record for studentID, checking local first and then
// the warm tier.
func (rc *ResultCache) Get(ctx context.Context, studentID string) (*models.RecommendationRecord, bool) {
	rc.mu.RLock()
	record, ok := rc.local[studentID]
	rc.mu.RUnlock()
	if ok {
		return record, true
	}

	if rc.redis == nil {
		return nil, false
	}
	raw, err := rc.redis.Get(ctx, rc.key(studentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			rc.logger.WithError(err).Debug("Warm cache read failed")
		}
		return nil, false
	}

	var rec models.RecommendationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	rc.mu.Lock()
	rc.local[studentID] = &rec
	rc.mu.Unlock()
	return &rec, true
}

// Put stores the record locally and, when configured, in the warm tier.
func (rc *ResultCache) Put(ctx context.Context, studentID string, record *models.RecommendationRecord) {
	rc.mu.Lock()
	rc.local[studentID] = record
	rc.mu.Unlock()

	if rc.redis == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := rc.redis.Set(ctx, rc.key(studentID), data, rc.ttl).Err(); err != nil {
		rc.logger.WithError(err).Debug("Warm cache write failed")
	}
}

// Clear drops everything from both tiers.
func (rc *ResultCache) Clear(ctx context.Context) {
	rc.mu.Lock()
	rc.local = make(map[string]*models.RecommendationRecord)
	rc.mu.Unlock()

	if rc.redis == nil {
		return
	}
	iter := rc.redis.Scan(ctx, 0, rc.key("*"), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		rc.logger.WithError(err).Debug("Warm cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := rc.redis.Del(ctx, keys...).Err(); err != nil {
			rc.logger.WithError(err).Debug("Warm cache clear failed")
		}
	}
}

// Size returns the number of locally cached records.
func (rc *ResultCache) Size() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.local)
}

func (rc *ResultCache) key(studentID string) string {
	return fmt.Sprintf("recs:%s", studentID)
}
