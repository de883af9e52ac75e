package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"couponagent/internal/config"
	"couponagent/internal/model"
	"couponagent/internal/repository"
	"couponagent/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyCatalog is returned when no bundle could be loaded
var ErrEmptyCatalog = errors.New("coupon catalog is empty")

// RawFetcher downloads raw coupons
type RawFetcher interface {
	FetchRaw(ctx context.Context) ([]model.RawCoupon, error)
}

// BundleParser turns raw coupons into bundles
type BundleParser interface {
	ParseAll(ctx context.Context, raws []model.RawCoupon, progress ProgressFunc) ([]model.Bundle, error)
}

// Source yields the coupon catalog from the cache or a fresh fetch
type Source struct {
	fetcher RawFetcher
	parser  BundleParser
	cache   *repository.CouponCache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	refreshGroup singleflight.Group
}

// NewSource creates a new catalog source
func NewSource(fetcher RawFetcher, parser BundleParser, cache *repository.CouponCache, ttl time.Duration, logger *zap.Logger) *Source {
	return &Source{
		fetcher: fetcher,
		parser:  parser,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// NewSourceFromConfig wires the coupon API fetcher, the LLM parser and the file cache
func NewSourceFromConfig(cfg *config.Config, gen service.Generator, logger *zap.Logger) *Source {
	fetcher := NewFetcher(
		cfg.Catalog.CouponsAPIURL,
		cfg.Catalog.ImageBaseURL,
		time.Duration(cfg.Catalog.ScraperTimeout)*time.Second,
		logger,
	)
	parser := NewParser(gen, service.GenerateOptions{
		Temperature: 0.3,
		MaxTokens:   300,
		Timeout:     cfg.LLMTimeout(),
	}, cfg.Catalog.ParseConcurrency, logger)
	cache := repository.NewCouponCache(cfg.Catalog.CacheFile, cfg.Catalog.RawFile)

	return NewSource(fetcher, parser, cache, cfg.CacheTTL(), logger)
}

// CheckFreshness reports whether the cache needs refreshing, and why
func (s *Source) CheckFreshness() (bool, string) {
	f, err := s.cache.Read()
	if errors.Is(err, repository.ErrCacheMissing) {
		return true, "沒有快取資料"
	}
	if err != nil {
		return true, fmt.Sprintf("檢查失敗：%v", err)
	}
	if len(f.Coupons) == 0 {
		return true, "快取資料損壞"
	}

	updated, err := f.UpdatedAt()
	if err != nil {
		return true, fmt.Sprintf("檢查失敗：%v", err)
	}
	if updated.IsZero() {
		return true, "無法確認資料時間"
	}

	if age := s.now().Sub(updated); age > s.ttl {
		return true, fmt.Sprintf("資料已過期（%d 小時前）", int(age.Hours()))
	}
	return false, "資料是最新的"
}

// Load returns the cached catalog while fresh, refreshing otherwise.
// A failed refresh falls back to a stale cache when one exists.
func (s *Source) Load(ctx context.Context, force bool, progress ProgressFunc) ([]model.Bundle, error) {
	if !force {
		needUpdate, reason := s.CheckFreshness()
		if !needUpdate {
			if f, err := s.cache.Read(); err == nil {
				s.logger.Info("Loaded coupons from cache",
					zap.String("path", s.cache.Path()),
					zap.Int("count", len(f.Coupons)),
					zap.String("last_updated", f.LastUpdated))
				return f.Coupons, nil
			}
		}
		s.logger.Info("Refreshing coupons", zap.String("reason", reason))
	}

	bundles, err := s.Refresh(ctx, progress)
	if err == nil {
		return bundles, nil
	}

	if f, cerr := s.cache.Read(); cerr == nil && len(f.Coupons) > 0 {
		s.logger.Warn("Refresh failed, using stale cache",
			zap.Error(err),
			zap.String("last_updated", f.LastUpdated),
			zap.Int("count", len(f.Coupons)))
		return f.Coupons, nil
	}
	return nil, err
}

// Refresh fetches, parses and caches the catalog.
// Concurrent calls share one refresh.
func (s *Source) Refresh(ctx context.Context, progress ProgressFunc) ([]model.Bundle, error) {
	v, err, shared := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(ctx, progress)
	})
	if shared {
		s.logger.Debug("Joined in-flight refresh")
	}
	if err != nil {
		return nil, err
	}
	return v.([]model.Bundle), nil
}

func (s *Source) refresh(ctx context.Context, progress ProgressFunc) ([]model.Bundle, error) {
	report := func(stage string, done, total int) {
		if progress != nil {
			progress(stage, done, total)
		}
	}

	report(StageFetch, 0, 0)
	raws, err := s.fetcher.FetchRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch coupons: %w", err)
	}
	report(StageFetch, len(raws), len(raws))

	if err := s.cache.WriteRaw(raws); err != nil {
		s.logger.Warn("Failed to save raw coupons", zap.Error(err))
	}

	bundles, err := s.parser.ParseAll(ctx, raws, progress)
	if err != nil {
		return nil, fmt.Errorf("parse coupons: %w", err)
	}
	if len(bundles) == 0 {
		return nil, ErrEmptyCatalog
	}

	report(StageCache, 0, 1)
	if err := s.cache.Write(bundles, s.now()); err != nil {
		return nil, fmt.Errorf("save coupons: %w", err)
	}
	report(StageCache, 1, 1)

	s.logger.Info("Saved coupons", zap.String("path", s.cache.Path()), zap.Int("count", len(bundles)))
	return bundles, nil
}
