package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"couponagent/internal/model"
	"couponagent/internal/service"
	"couponagent/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const couponPrompt = `請分析以下肯德基優惠券資訊，提取結構化資料。

優惠券描述：「{items_raw}」
優惠價格：{price}元

請提取以下資訊：
1. name：優惠券名稱（簡短，例如「炸雞桶 299元」）
2. items：包含的食物品項（陣列，例如 ["炸雞", "漢堡", "薯條"]）
3. serves：適合幾人用餐（整數，根據份量推測）
4. description：完整描述（保留原文或稍微精簡）

只回傳 JSON 格式，不要其他文字：
{
  "name": "...",
  "items": ["...", "..."],
  "serves": 數字,
  "description": "..."
}

範例：
輸入：「9塊香酥炸雞桶，適合全家享用」，價格 299
輸出：{"name": "炸雞桶 299元", "items": ["炸雞"], "serves": 3, "description": "9塊香酥炸雞桶"}

現在處理：
`

// couponMarker identifies a parsed coupon object in model output
const couponMarker = "items"

// ProgressFunc receives catalog loading progress. total is 0 when unknown.
type ProgressFunc func(stage string, done, total int)

// Progress stages
const (
	StageFetch = "fetch"
	StageParse = "parse"
	StageCache = "cache"
)

// parsedCoupon is the model output for one coupon
type parsedCoupon struct {
	Name        string   `json:"name"`
	Items       []string `json:"items"`
	Serves      any      `json:"serves"`
	Description string   `json:"description"`
}

// Parser turns raw coupons into bundles with one generation call each
type Parser struct {
	gen         service.Generator
	opts        service.GenerateOptions
	concurrency int
	logger      *zap.Logger
}

// NewParser creates a new coupon parser
func NewParser(gen service.Generator, opts service.GenerateOptions, concurrency int, logger *zap.Logger) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{gen: gen, opts: opts, concurrency: concurrency, logger: logger}
}

// ParseAll parses every coupon, skipping those that fail.
// Output keeps input order. Only context cancellation is returned as an error.
func (p *Parser) ParseAll(ctx context.Context, raws []model.RawCoupon, progress ProgressFunc) ([]model.Bundle, error) {
	p.logger.Info("Parsing coupons", zap.Int("count", len(raws)), zap.Int("concurrency", p.concurrency))

	results := make([]*model.Bundle, len(raws))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range raws {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bundle, err := p.Parse(gctx, raws[i])
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.logger.Warn("Skipping coupon", zap.String("code", raws[i].Code), zap.Error(err))
			} else {
				results[i] = bundle
			}

			mu.Lock()
			done++
			if progress != nil {
				progress(StageParse, done, len(raws))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundles := make([]model.Bundle, 0, len(raws))
	for _, b := range results {
		if b != nil {
			bundles = append(bundles, *b)
		}
	}

	p.logger.Info("Parsed coupons", zap.Int("ok", len(bundles)), zap.Int("failed", len(raws)-len(bundles)))
	return bundles, nil
}

// Parse turns one raw coupon into a bundle
func (p *Parser) Parse(ctx context.Context, raw model.RawCoupon) (*model.Bundle, error) {
	if raw.ItemsRaw == "" {
		return nil, fmt.Errorf("coupon %s has no description", raw.Code)
	}

	prompt := strings.NewReplacer(
		"{items_raw}", raw.ItemsRaw,
		"{price}", strconv.Itoa(raw.Price),
	).Replace(couponPrompt)

	reply, err := p.gen.Generate(ctx, prompt, p.opts)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	var parsed parsedCoupon
	if err := utils.ParseMarkedJSON(reply, couponMarker, &parsed); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}

	description := strings.TrimSpace(parsed.Description)
	if description == "" {
		description = raw.ItemsRaw
	}

	return &model.Bundle{
		ID:          raw.Code,
		Code:        raw.Code,
		Fcode:       raw.Fcode,
		Name:        strings.TrimSpace(parsed.Name),
		Description: description,
		Price:       raw.Price,
		Items:       utils.UniqueStrings(parsed.Items),
		Serves:      parseServes(parsed.Serves),
		Category:    raw.Category,
		Img:         raw.Img,
	}, nil
}

// parseServes accepts positive numbers and numeric strings, defaulting to 1
func parseServes(v any) int {
	switch x := v.(type) {
	case float64:
		if x >= 1 {
			return int(x)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && n >= 1 {
			return n
		}
	}
	return 1
}
