package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewCacheFromClient(client)
}

func sampleStudent() student.Student {
	return student.Student{
		ID:                 "s-1",
		FullName:           "Нурланов Тимур",
		ClassName:          "9A",
		Gender:             student.GenderMale,
		AvgGrade:           3.1,
		GradeTrend:         -0.4,
		Absences:           6,
		UnexcusedAbsences:  3,
		HomeworkCompletion: 55,
		SubjectsAtRisk:     []student.SubjectCode{student.SubjectMath},
	}
}

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupMiniRedis(t)

	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.True(t, mr.Exists("k"))

	var got map[string]int
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, 1, got["a"])

	require.NoError(t, cache.Delete(ctx, "k"))
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCache_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	_, cache := setupMiniRedis(t)

	assert.ErrorIs(t, cache.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, cache.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)

	require.NoError(t, cache.client.Set(ctx, "broken", "{not json", 0).Err())
	var v map[string]any
	assert.ErrorIs(t, cache.Get(ctx, "broken", &v), ErrCacheSerialization)
}

func TestCache_TTLExpires(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupMiniRedis(t)

	require.NoError(t, cache.Set(ctx, "short", "v", time.Second))
	mr.FastForward(2 * time.Second)

	var s string
	assert.ErrorIs(t, cache.Get(ctx, "short", &s), ErrCacheMiss)
}

func TestCache_Locks(t *testing.T) {
	ctx := context.Background()
	_, cache := setupMiniRedis(t)

	ok, err := cache.TryLock(ctx, "snapshot", "worker-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.TryLock(ctx, "snapshot", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Unlock(ctx, "snapshot", "worker-2"))
	ok, err = cache.TryLock(ctx, "snapshot", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "foreign unlock must not release the lock")

	require.NoError(t, cache.Unlock(ctx, "snapshot", "worker-1"))
	ok, err = cache.TryLock(ctx, "snapshot", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAnalysisCache_RoundTripAndFingerprint(t *testing.T) {
	ctx := context.Background()
	_, cache := setupMiniRedis(t)
	ac := NewAnalysisCache(cache, "llama-3.1-8b-instant", time.Hour)

	s := sampleStudent()
	advice := risk.Advice{
		Reasons:      []string{"AI reason"},
		PsychSignals: []string{"AI signal"},
		RoleRecs:     risk.RoleRecommendations{Teacher: []string{"AI rec"}},
	}

	_, hit, err := ac.Get(ctx, s, shared.LocaleRussian)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, ac.Set(ctx, s, shared.LocaleRussian, advice))

	got, hit, err := ac.Get(ctx, s, shared.LocaleRussian)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, advice, *got)

	_, hit, err = ac.Get(ctx, s, shared.LocaleKazakh)
	require.NoError(t, err)
	assert.False(t, hit, "locale is part of the key")

	changed := s.Clone()
	changed.Absences++
	_, hit, err = ac.Get(ctx, changed, shared.LocaleRussian)
	require.NoError(t, err)
	assert.False(t, hit, "a changed snapshot must miss")

	require.NoError(t, ac.Invalidate(ctx, s.ID))
	_, hit, err = ac.Get(ctx, s, shared.LocaleRussian)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestFingerprint_Stable(t *testing.T) {
	a, err := Fingerprint(sampleStudent(), shared.LocaleKazakh, "m")
	require.NoError(t, err)
	b, err := Fingerprint(sampleStudent(), shared.LocaleKazakh, "m")
	require.NoError(t, err)
	c, err := Fingerprint(sampleStudent(), shared.LocaleKazakh, "other")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestAnalysisCache_RedisErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	ac := NewAnalysisCache(NewCacheFromClient(client), "m", time.Hour)

	s := sampleStudent()
	fp, err := Fingerprint(s, shared.LocaleKazakh, "m")
	require.NoError(t, err)

	mock.ExpectGet(AnalysisKey(s.ID, fp)).SetErr(errors.New("connection reset"))

	_, hit, err := ac.Get(ctx, s, shared.LocaleKazakh)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisCache_MissViaMock(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	ac := NewAnalysisCache(NewCacheFromClient(client), "m", time.Hour)

	s := sampleStudent()
	fp, err := Fingerprint(s, shared.LocaleRussian, "m")
	require.NoError(t, err)
	mock.ExpectGet(AnalysisKey(s.ID, fp)).RedisNil()

	_, hit, err := ac.Get(ctx, s, shared.LocaleRussian)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotCache(t *testing.T) {
	ctx := context.Background()
	_, cache := setupMiniRedis(t)
	sc := NewSnapshotCache(cache, time.Minute)

	_, hit, err := sc.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, hit)

	dash := analytics.BuildDashboard([]student.Student{sampleStudent()}, 5)
	generated := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, sc.Put(ctx, DashboardSnapshot{Dashboard: dash, FocusSize: 5, GeneratedAt: generated}))

	snap, hit, err := sc.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1, snap.Dashboard.Overview.TotalStudents)
	assert.True(t, generated.Equal(snap.GeneratedAt))

	_, hit, err = sc.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, sc.Invalidate(ctx))
	_, hit, err = sc.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, hit)
}
