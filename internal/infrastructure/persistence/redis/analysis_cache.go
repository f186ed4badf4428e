package redis

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYSIS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// CachedAdvice is what the analysis cache stores for one snapshot.
type CachedAdvice struct {
	Advice   risk.Advice `json:"advice"`
	Model    string      `json:"model"`
	CachedAt time.Time   `json:"cachedAt"`
}

// AnalysisCache stores AI advice keyed by the content of the student snapshot.
// Any change to the snapshot, locale or model yields a new key, so entries never go stale.
type AnalysisCache struct {
	cache *Cache
	model string
	ttl   time.Duration
	now   func() time.Time
}

// NewAnalysisCache creates an analysis cache for the given model name.
func NewAnalysisCache(cache *Cache, model string, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = TTLAnalysis
	}
	return &AnalysisCache{
		cache: cache,
		model: model,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Fingerprint returns a stable hex digest of the snapshot, locale and model.
func Fingerprint(s student.Student, locale shared.Locale, model string) (string, error) {
	payload, err := json.Marshal(struct {
		Student student.Student `json:"s"`
		Locale  shared.Locale   `json:"l"`
		Model   string          `json:"m"`
	}{s, locale, model})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:16]), nil
}

// AnalysisKey returns the cache key for a student analysis.
func AnalysisKey(studentID, fingerprint string) string {
	return PrefixAnalysis + studentID + ":" + fingerprint
}

// Get returns cached advice. The boolean is false on a miss.
func (c *AnalysisCache) Get(ctx context.Context, s student.Student, locale shared.Locale) (*risk.Advice, bool, error) {
	fp, err := Fingerprint(s, locale, c.model)
	if err != nil {
		return nil, false, err
	}

	var entry CachedAdvice
	if err := c.cache.Get(ctx, AnalysisKey(s.ID, fp), &entry); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &entry.Advice, true, nil
}

// Set stores advice for the snapshot.
func (c *AnalysisCache) Set(ctx context.Context, s student.Student, locale shared.Locale, advice risk.Advice) error {
	fp, err := Fingerprint(s, locale, c.model)
	if err != nil {
		return err
	}
	entry := CachedAdvice{Advice: advice, Model: c.model, CachedAt: c.now()}
	return c.cache.Set(ctx, AnalysisKey(s.ID, fp), entry, c.ttl)
}

// Invalidate drops every cached analysis of a student.
func (c *AnalysisCache) Invalidate(ctx context.Context, studentID string) error {
	_, err := c.cache.DeleteByPattern(ctx, PrefixAnalysis+studentID+":*")
	return err
}
