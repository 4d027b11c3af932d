package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/compliance-notifier/internal/model"
)

type memClient struct {
	data    map[string]string
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newMemClient() *memClient {
	return &memClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memClient) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memClient) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.data, k)
	}
	m.deleted = append(m.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

type countingSource struct {
	calls int
	days  int
	stats model.TaskStats
	err   error
}

func (s *countingSource) GetTaskStats(_ context.Context, _ time.Time, days int, _ *string) (model.TaskStats, error) {
	s.calls++
	s.days = days
	return s.stats, s.err
}

var now = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

func TestStats_MissThenHit(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	client := newMemClient()
	src := &countingSource{stats: model.TaskStats{Total: 4, DueSoon: 1, Overdue: 2, Completed: 1}}
	c := NewStats(client, src, time.Minute, 0, log)

	user := "u1"
	first, err := c.Get(context.Background(), now, &user)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), now, &user)
	require.NoError(t, err)

	assert.Equal(t, src.stats, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, time.Minute, client.ttls[keyPrefix+"user:u1"])
}

func TestStats_KeysAreScopedPerUser(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	src := &countingSource{}
	c := NewStats(newMemClient(), src, 0, 0, log)

	a, b := "a", "b"
	_, _ = c.Get(context.Background(), now, &a)
	_, _ = c.Get(context.Background(), now, &b)
	_, _ = c.Get(context.Background(), now, nil)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestStats_RedisFailureFallsBack(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	client := newMemClient()
	client.getErr = errors.New("connection refused")
	src := &countingSource{stats: model.TaskStats{Total: 2}}
	c := NewStats(client, src, time.Minute, 0, log)

	stats, err := c.Get(context.Background(), now, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "stats cache unavailable", hook.LastEntry().Message)
}

func TestStats_SourceErrorIsReturned(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	boom := errors.New("db down")
	c := NewStats(newMemClient(), &countingSource{err: boom}, time.Minute, 0, log)

	_, err := c.Get(context.Background(), now, nil)
	assert.ErrorIs(t, err, boom)
}

func TestStats_NilClientPassesThrough(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	src := &countingSource{}
	c := NewStats(nil, src, time.Minute, 0, log)

	_, _ = c.Get(context.Background(), now, nil)
	_, _ = c.Get(context.Background(), now, nil)
	assert.Equal(t, 2, src.calls)
	c.Invalidate(context.Background())
}

func TestStats_Invalidate(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	client := newMemClient()
	src := &countingSource{}
	c := NewStats(client, src, time.Minute, 0, log)

	user := "u1"
	_, _ = c.Get(context.Background(), now, &user)
	c.Invalidate(context.Background(), &user, nil)
	assert.Equal(t, []string{keyPrefix + "all", keyPrefix + "user:u1"}, client.deleted)

	_, _ = c.Get(context.Background(), now, &user)
	assert.Equal(t, 2, src.calls)
}

func TestNewClient(t *testing.T) {
	assert.Nil(t, NewClient(model.RedisConfig{}))

	c := NewClient(model.RedisConfig{Addr: "localhost:6379", DB: 2})
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Options().DB)
	require.NoError(t, c.Close())
}

func TestStats_PassesWindowToSource(t *testing.T) {
	log, _ := logtest.NewNullLogger()

	src := &countingSource{}
	_, err := NewStats(nil, src, 0, 10, log).Get(context.Background(), now, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, src.days)

	_, err = NewStats(newMemClient(), src, 0, 0, log).Get(context.Background(), now, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DueSoonDays, src.days)
}
