package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"couponagent/internal/model"
	"couponagent/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	raws  []model.RawCoupon
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *stubFetcher) FetchRaw(ctx context.Context) ([]model.RawCoupon, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.raws, f.err
}

// echoParser turns every raw coupon into a one-item bundle
type echoParser struct {
	drop bool
}

func (p *echoParser) ParseAll(_ context.Context, raws []model.RawCoupon, progress ProgressFunc) ([]model.Bundle, error) {
	if p.drop {
		return []model.Bundle{}, nil
	}
	out := make([]model.Bundle, 0, len(raws))
	for i, r := range raws {
		out = append(out, model.Bundle{ID: r.Code, Name: r.Code, Items: []string{r.ItemsRaw}, Serves: 1, Price: r.Price})
		if progress != nil {
			progress(StageParse, i+1, len(raws))
		}
	}
	return out, nil
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSource(t *testing.T, fetcher RawFetcher, parser BundleParser) (*Source, *repository.CouponCache) {
	t.Helper()
	dir := t.TempDir()
	cache := repository.NewCouponCache(filepath.Join(dir, "coupons.json"), filepath.Join(dir, "raw.json"))
	s := NewSource(fetcher, parser, cache, 24*time.Hour, zap.NewNop())
	s.now = func() time.Time { return testNow }
	return s, cache
}

func seedCache(t *testing.T, cache *repository.CouponCache, at time.Time, ids ...string) {
	t.Helper()
	bundles := make([]model.Bundle, len(ids))
	for i, id := range ids {
		bundles[i] = model.Bundle{ID: id, Items: []string{"炸雞"}, Serves: 1}
	}
	require.NoError(t, cache.Write(bundles, at))
}

func bundleIDs(bundles []model.Bundle) []string {
	ids := make([]string, len(bundles))
	for i, b := range bundles {
		ids[i] = b.ID
	}
	return ids
}

func TestSource_CheckFreshness(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		s, _ := newTestSource(t, &stubFetcher{}, &echoParser{})
		need, reason := s.CheckFreshness()
		assert.True(t, need)
		assert.Equal(t, "沒有快取資料", reason)
	})

	t.Run("fresh", func(t *testing.T) {
		s, cache := newTestSource(t, &stubFetcher{}, &echoParser{})
		seedCache(t, cache, testNow.Add(-time.Hour), "A")
		need, reason := s.CheckFreshness()
		assert.False(t, need)
		assert.Equal(t, "資料是最新的", reason)
	})

	t.Run("expired", func(t *testing.T) {
		s, cache := newTestSource(t, &stubFetcher{}, &echoParser{})
		seedCache(t, cache, testNow.Add(-30*time.Hour), "A")
		need, reason := s.CheckFreshness()
		assert.True(t, need)
		assert.Equal(t, "資料已過期（30 小時前）", reason)
	})

	t.Run("empty coupons", func(t *testing.T) {
		s, cache := newTestSource(t, &stubFetcher{}, &echoParser{})
		require.NoError(t, cache.Write(nil, testNow))
		need, reason := s.CheckFreshness()
		assert.True(t, need)
		assert.Equal(t, "快取資料損壞", reason)
	})

	t.Run("no timestamp", func(t *testing.T) {
		s, cache := newTestSource(t, &stubFetcher{}, &echoParser{})
		require.NoError(t, os.WriteFile(cache.Path(), []byte(`{"coupons": [{"id": "A"}]}`), 0o644))
		need, reason := s.CheckFreshness()
		assert.True(t, need)
		assert.Equal(t, "無法確認資料時間", reason)
	})

	t.Run("corrupt", func(t *testing.T) {
		s, cache := newTestSource(t, &stubFetcher{}, &echoParser{})
		require.NoError(t, os.WriteFile(cache.Path(), []byte(`{not json`), 0o644))
		need, reason := s.CheckFreshness()
		assert.True(t, need)
		assert.Contains(t, reason, "檢查失敗")
	})
}

func TestSource_LoadFreshCacheSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{}
	s, cache := newTestSource(t, fetcher, &echoParser{})
	seedCache(t, cache, testNow.Add(-time.Hour), "A", "B")

	bundles, err := s.Load(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, bundleIDs(bundles))
	assert.Zero(t, fetcher.calls.Load())
}

func TestSource_LoadRefreshesAndCaches(t *testing.T) {
	fetcher := &stubFetcher{raws: []model.RawCoupon{
		{Code: "N1", ItemsRaw: "炸雞", Price: 99},
		{Code: "N2", ItemsRaw: "可樂", Price: 39},
	}}
	s, cache := newTestSource(t, fetcher, &echoParser{})
	seedCache(t, cache, testNow.Add(-48*time.Hour), "OLD")

	var stages []string
	bundles, err := s.Load(context.Background(), false, func(stage string, done, total int) {
		if len(stages) == 0 || stages[len(stages)-1] != stage {
			stages = append(stages, stage)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2"}, bundleIDs(bundles))
	assert.Equal(t, []string{StageFetch, StageParse, StageCache}, stages)

	f, err := cache.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, f.Count)
	updated, err := f.UpdatedAt()
	require.NoError(t, err)
	assert.True(t, updated.Equal(testNow))

	_, err = os.Stat(filepath.Join(filepath.Dir(cache.Path()), "raw.json"))
	assert.NoError(t, err)
}

func TestSource_LoadForceIgnoresFreshCache(t *testing.T) {
	fetcher := &stubFetcher{raws: []model.RawCoupon{{Code: "N1", ItemsRaw: "炸雞"}}}
	s, cache := newTestSource(t, fetcher, &echoParser{})
	seedCache(t, cache, testNow, "A")

	bundles, err := s.Load(context.Background(), true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"N1"}, bundleIDs(bundles))
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestSource_LoadFallsBackToStaleCache(t *testing.T) {
	fetcher := &stubFetcher{err: ErrUpstream}
	s, cache := newTestSource(t, fetcher, &echoParser{})
	seedCache(t, cache, testNow.Add(-72*time.Hour), "STALE")

	bundles, err := s.Load(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"STALE"}, bundleIDs(bundles))
}

func TestSource_LoadFailsWithoutCache(t *testing.T) {
	s, _ := newTestSource(t, &stubFetcher{err: ErrUpstream}, &echoParser{})

	_, err := s.Load(context.Background(), false, nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSource_EmptyParseKeepsCache(t *testing.T) {
	fetcher := &stubFetcher{raws: []model.RawCoupon{{Code: "N1", ItemsRaw: "炸雞"}}}
	s, cache := newTestSource(t, fetcher, &echoParser{drop: true})

	_, err := s.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = cache.Read()
	assert.True(t, errors.Is(err, repository.ErrCacheMissing))
}

func TestSource_ConcurrentRefreshShared(t *testing.T) {
	fetcher := &stubFetcher{
		raws: []model.RawCoupon{{Code: "N1", ItemsRaw: "炸雞"}},
		gate: make(chan struct{}),
	}
	s, _ := newTestSource(t, fetcher, &echoParser{})

	var wg sync.WaitGroup
	results := make([][]model.Bundle, 4)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := s.Refresh(context.Background(), nil)
			assert.NoError(t, err)
			results[i] = b
		}()
	}

	// let every caller join before the fetch completes
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	for _, b := range results {
		assert.Equal(t, []string{"N1"}, bundleIDs(b))
	}
}
