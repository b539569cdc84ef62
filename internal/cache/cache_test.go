package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
)

// fakeKV: Redis в памяти, ровно на те команды, что использует кэш.
type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKV) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func sampleView() domain.DashboardView {
	return domain.DashboardView{
		DatasetVersion: "v1",
		Selection:      domain.Selection{Faculties: []string{"Artes"}},
		Summary:        domain.Summary{MeanAccess: 4, Professors: 2, Records: 2, MeanAccessText: "4", ProfessorsText: "2"},
		FacultyTotals:  []domain.FacultyTotal{{Faculty: "Artes", Accesses: 8}},
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	kv := newFakeKV()
	c := NewRedisCache(kv, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", sampleView()))
	assert.Equal(t, time.Minute, kv.ttls["k"])

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleView(), got)
}

func TestRedisCache_CorruptedEntryIsMiss(t *testing.T) {
	kv := newFakeKV()
	kv.data["k"] = "{not json"
	c := NewRedisCache(kv, time.Minute, zap.NewNop())

	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Errors(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	c := NewRedisCache(kv, time.Minute, zap.NewNop())

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, c.Set(context.Background(), "k", sampleView()))
}

func TestRedisCache_WarmupOnce(t *testing.T) {
	kv := newFakeKV()
	c := NewRedisCache(kv, time.Minute, zap.NewNop())
	builds := 0
	build := func() domain.DashboardView {
		builds++
		return sampleView()
	}

	require.NoError(t, c.Warmup(context.Background(), "v1", build))
	require.NoError(t, c.Warmup(context.Background(), "v1", build))

	assert.Equal(t, 1, builds)
	assert.Contains(t, kv.data, infra.ViewCacheKey("v1", domain.Selection{}.Key()))
}

func TestNopCache(t *testing.T) {
	var c ViewCache = NopCache{}
	require.NoError(t, c.Set(context.Background(), "k", sampleView()))

	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakePublisher struct {
	channel string
	message interface{}
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel, p.message = channel, message
	return redis.NewIntResult(1, nil)
}

func TestReloadNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewReloadNotifier(pub, "node-a")

	require.NoError(t, n.Notify(context.Background(), "abc123"))
	assert.Equal(t, infra.RedisChanDatasetReload, pub.channel)
	assert.Equal(t, "node-a:abc123", pub.message)

	from, version, err := ParseReloadSignal(pub.message.(string))
	require.NoError(t, err)
	assert.Equal(t, "node-a", from)
	assert.Equal(t, "abc123", version)
}

func TestParseReloadSignal_Invalid(t *testing.T) {
	for _, payload := range []string{"", "abc", "a:b:c", ":v"} {
		_, _, err := ParseReloadSignal(payload)
		assert.Errorf(t, err, "payload %q", payload)
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
