package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetcher_FetchRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "https://www.kfcclub.com.tw/", r.Header.Get("Referer"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "{}", string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"Success": true,
			"Data": [
				{"CouponCode": "24604", "Fcode": "F1", "Price": 299, "Intro": " 炸雞x3+可樂 ", "Category": "分享", "ImgNameNew": "img/a.png"},
				{"CouponCode": "24605", "Price": "199", "Intro": "雞腿堡+薯條"},
				{"CouponCode": "24606", "Price": null, "Intro": "蛋塔"}
			]
		}`)
	}))
	defer server.Close()

	f := NewFetcher(server.URL, "https://img.example/", 5*time.Second, zap.NewNop())
	raws, err := f.FetchRaw(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 3)

	assert.Equal(t, "24604", raws[0].Code)
	assert.Equal(t, "F1", raws[0].Fcode)
	assert.Equal(t, 299, raws[0].Price)
	assert.Equal(t, "炸雞x3+可樂", raws[0].ItemsRaw)
	assert.Equal(t, "分享", raws[0].Category)
	assert.Equal(t, "https://img.example/img/a.png", raws[0].Img)

	assert.Equal(t, 199, raws[1].Price)
	assert.Equal(t, 0, raws[2].Price)
}

func TestFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "api failure", status: http.StatusOK, body: `{"Success": false, "Message": "維護中"}`, wantMsg: "維護中"},
		{name: "api failure without message", status: http.StatusOK, body: `{"Success": false}`, wantMsg: "unknown error"},
		{name: "bad status", status: http.StatusBadGateway, body: "upstream down", wantMsg: "status 502"},
		{name: "not json", status: http.StatusOK, body: "<html>", wantMsg: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			f := NewFetcher(server.URL, "", 5*time.Second, zap.NewNop())
			_, err := f.FetchRaw(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstream)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewFetcher(server.URL, "", 50*time.Millisecond, zap.NewNop())
	_, err := f.FetchRaw(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}
