package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"couponagent/internal/model"

	"go.uber.org/zap"
)

// ErrUpstream is returned when the coupon API fails or reports an error
var ErrUpstream = errors.New("coupon API error")

// browserHeaders are sent with every coupon API request
var browserHeaders = map[string]string{
	"Accept":       "application/json, text/plain, */*",
	"Content-Type": "application/json",
	"User-Agent":   "Mozilla/5.0",
	"Referer":      "https://www.kfcclub.com.tw/",
	"Origin":       "https://www.kfcclub.com.tw",
}

// couponEnvelope is the coupon API response
type couponEnvelope struct {
	Success bool           `json:"Success"`
	Message string         `json:"Message"`
	Data    []couponRecord `json:"Data"`
}

// couponRecord is one coupon as returned by the API
type couponRecord struct {
	CouponCode string          `json:"CouponCode"`
	Fcode      string          `json:"Fcode"`
	Price      json.RawMessage `json:"Price"`
	Intro      string          `json:"Intro"`
	Category   string          `json:"Category"`
	ImgNameNew string          `json:"ImgNameNew"`
}

// Fetcher downloads raw coupons from the coupon API
type Fetcher struct {
	url          string
	imageBaseURL string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewFetcher creates a new coupon API fetcher
func NewFetcher(url, imageBaseURL string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		url:          url,
		imageBaseURL: imageBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// FetchRaw requests all coupons and maps them to RawCoupon
func (f *Fetcher) FetchRaw(ctx context.Context) ([]model.RawCoupon, error) {
	f.logger.Info("Fetching coupons", zap.String("url", f.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(body), 200))
	}

	var env couponEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrUpstream, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	coupons := make([]model.RawCoupon, 0, len(env.Data))
	for _, rec := range env.Data {
		coupons = append(coupons, model.RawCoupon{
			Code:     rec.CouponCode,
			Fcode:    rec.Fcode,
			Price:    parsePrice(rec.Price),
			ItemsRaw: strings.TrimSpace(rec.Intro),
			Category: rec.Category,
			Img:      f.imageBaseURL + rec.ImgNameNew,
		})
	}

	f.logger.Info("Fetched coupons", zap.Int("count", len(coupons)))
	return coupons, nil
}

// parsePrice accepts numbers and numeric strings; anything else is 0
func parsePrice(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(v)
		}
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
