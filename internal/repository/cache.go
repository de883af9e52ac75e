package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"couponagent/internal/model"
)

// ErrCacheMissing is returned when the cache file does not exist
var ErrCacheMissing = errors.New("coupon cache missing")

// legacyTimeLayout is an ISO timestamp without zone, as older cache files carry
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

// CacheFile is the on-disk coupon cache document
type CacheFile struct {
	LastUpdated string         `json:"last_updated"`
	Count       int            `json:"count"`
	Coupons     []model.Bundle `json:"coupons"`
}

// UpdatedAt parses LastUpdated. The zero time is returned when it is absent.
func (f *CacheFile) UpdatedAt() (time.Time, error) {
	if f.LastUpdated == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, f.LastUpdated); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimeLayout, f.LastUpdated, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_updated %q: %w", f.LastUpdated, err)
	}
	return t, nil
}

// CouponCache handles the parsed-coupon cache file and the raw snapshot file
type CouponCache struct {
	path    string
	rawPath string
}

// NewCouponCache creates a new coupon cache
func NewCouponCache(path, rawPath string) *CouponCache {
	return &CouponCache{path: path, rawPath: rawPath}
}

// Path returns the cache file path
func (c *CouponCache) Path() string {
	return c.path
}

// Read loads the cache file
func (c *CouponCache) Read() (*CacheFile, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMissing
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var f CacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode cache: %w", err)
	}
	return &f, nil
}

// Write replaces the cache file with the given bundles
func (c *CouponCache) Write(bundles []model.Bundle, now time.Time) error {
	return writeJSON(c.path, CacheFile{
		LastUpdated: now.Format(time.RFC3339Nano),
		Count:       len(bundles),
		Coupons:     bundles,
	})
}

// WriteRaw stores the unparsed upstream coupons. It is a no-op without a raw path.
func (c *CouponCache) WriteRaw(raws []model.RawCoupon) error {
	if c.rawPath == "" {
		return nil
	}
	return writeJSON(c.rawPath, raws)
}

// writeJSON writes v as indented JSON through a temp file and rename
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
