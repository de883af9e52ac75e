package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"couponagent/internal/model"
	"couponagent/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubGenerator answers by the first reply whose key appears in the prompt
type stubGenerator struct {
	replies map[string]string
	delay   time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, prompt string, _ service.GenerateOptions) (string, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	for key, reply := range g.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "", errors.New("no reply")
}

func TestParser_Parse(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{
		"炸雞x3": "```json\n{\"name\": \"炸雞分享餐 299元\", \"items\": [\"炸雞x3\", \"可樂\", \"炸雞x3\"], \"serves\": 3, \"description\": \"\"}\n```",
	}}
	p := NewParser(gen, service.GenerateOptions{}, 1, zap.NewNop())

	b, err := p.Parse(context.Background(), model.RawCoupon{
		Code: "24604", Fcode: "F1", Price: 299, ItemsRaw: "炸雞x3+可樂", Category: "分享", Img: "https://img/a.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "24604", b.ID)
	assert.Equal(t, "24604", b.Code)
	assert.Equal(t, "F1", b.Fcode)
	assert.Equal(t, "炸雞分享餐 299元", b.Name)
	assert.Equal(t, "炸雞x3+可樂", b.Description)
	assert.Equal(t, 299, b.Price)
	assert.Equal(t, []string{"炸雞x3", "可樂"}, b.Items)
	assert.Equal(t, 3, b.Serves)
	assert.Equal(t, "分享", b.Category)
	assert.Equal(t, "https://img/a.png", b.Img)
}

func TestParser_PromptCarriesCoupon(t *testing.T) {
	var captured string
	gen := &captureGenerator{fn: func(prompt string) { captured = prompt }}
	p := NewParser(gen, service.GenerateOptions{}, 1, zap.NewNop())

	_, _ = p.Parse(context.Background(), model.RawCoupon{Code: "1", Price: 159, ItemsRaw: "蛋塔x2"})
	assert.Contains(t, captured, "「蛋塔x2」")
	assert.Contains(t, captured, "159元")
	assert.NotContains(t, captured, "{items_raw}")
	assert.NotContains(t, captured, "{price}")
}

type captureGenerator struct {
	fn func(string)
}

func (g *captureGenerator) Name() string { return "capture" }

func (g *captureGenerator) Generate(_ context.Context, prompt string, _ service.GenerateOptions) (string, error) {
	g.fn(prompt)
	return `{"items": []}`, nil
}

func TestParser_ParseFailures(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{
		"沒有JSON": "抱歉，我無法處理",
		"不是物件":   `["x"]`,
	}}
	p := NewParser(gen, service.GenerateOptions{}, 1, zap.NewNop())

	for _, raw := range []model.RawCoupon{
		{Code: "empty"},
		{Code: "nojson", ItemsRaw: "沒有JSON"},
		{Code: "array", ItemsRaw: "不是物件"},
		{Code: "genfail", ItemsRaw: "未知"},
	} {
		_, err := p.Parse(context.Background(), raw)
		assert.Error(t, err, raw.Code)
	}
	assert.EqualValues(t, 3, gen.calls.Load())
}

func TestParser_ReplyWithoutItems(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{
		"蛋撻禮盒": `{"name": "蛋撻禮盒", "serves": 2}`,
	}}
	p := NewParser(gen, service.GenerateOptions{}, 1, zap.NewNop())

	b, err := p.Parse(context.Background(), model.RawCoupon{Code: "T1", ItemsRaw: "蛋撻禮盒", Price: 120})
	require.NoError(t, err)
	assert.Equal(t, "蛋撻禮盒", b.Name)
	assert.Empty(t, b.Items)
	assert.Equal(t, 2, b.Serves)
}

func TestParseServes(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{float64(4), 4},
		{float64(0), 1},
		{float64(-2), 1},
		{" 2 ", 2},
		{"兩人", 1},
		{nil, 1},
		{true, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseServes(tt.in), "%v", tt.in)
	}
}

func TestParser_ParseAll(t *testing.T) {
	gen := &stubGenerator{
		delay: 10 * time.Millisecond,
		replies: map[string]string{
			"品項A": `{"name": "A", "items": ["炸雞"], "serves": 2}`,
			"品項C": `{"name": "C", "items": ["蛋塔"], "serves": "1"}`,
			"品項D": `{"name": "D", "items": ["可樂"], "serves": 1}`,
		},
	}
	p := NewParser(gen, service.GenerateOptions{}, 2, zap.NewNop())

	raws := []model.RawCoupon{
		{Code: "a", ItemsRaw: "品項A"},
		{Code: "b", ItemsRaw: "品項B"},
		{Code: "c", ItemsRaw: "品項C"},
		{Code: "d", ItemsRaw: "品項D"},
	}

	var mu sync.Mutex
	var seen []int
	bundles, err := p.ParseAll(context.Background(), raws, func(stage string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, StageParse, stage)
		assert.Equal(t, 4, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)

	ids := make([]string, len(bundles))
	for i, b := range bundles {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
}

func TestParser_ParseAllCancelled(t *testing.T) {
	gen := &stubGenerator{delay: time.Second, replies: map[string]string{"x": `{"items": ["x"]}`}}
	p := NewParser(gen, service.GenerateOptions{}, 1, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.ParseAll(ctx, []model.RawCoupon{{Code: "1", ItemsRaw: "x"}, {Code: "2", ItemsRaw: "x"}}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
