package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily_trend_digest/config"
	"daily_trend_digest/digest"
	"daily_trend_digest/news"
)

func sampleReport() digest.Report {
	day := time.Date(2026, time.October, 18, 12, 40, 0, 0, time.UTC)
	articles := map[string]*news.Article{"A": {Title: "Title A", URL: "https://example.com/a"}}
	return digest.Assemble(day, []string{"A"}, articles, map[string]string{"A": "Summary-A"}, digest.Template{})
}

func TestPublish_UnconfiguredSkipsHTTP(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	for _, u := range []string{"", srv.URL + "/robot/send?access_token=YOUR_TOKEN"} {
		var out bytes.Buffer
		p := New(config.WebhookConfig{URL: u}, srv.Client(), &out, nil)

		res := p.Publish(context.Background(), sampleReport())
		assert.Equal(t, Skipped, res.Status)
		assert.Contains(t, out.String(), "### 🔥 A")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestPublish_Delivered(t *testing.T) {
	var payload map[string]any
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		_, _ = io.WriteString(w, `{"errcode":0,"errmsg":"ok"}`)
	}))
	defer srv.Close()

	p := New(config.WebhookConfig{URL: srv.URL + "/robot/send?access_token=abc", Title: "热点早报"}, srv.Client(), io.Discard, nil)
	res := p.Publish(context.Background(), sampleReport())

	assert.Equal(t, Delivered, res.Status)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "markdown", payload["msgtype"])
	md, ok := payload["markdown"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "热点早报", md["title"])
	assert.Equal(t, sampleReport().Markdown(), md["text"])
}

func TestPublish_TitleFromReport(t *testing.T) {
	var title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body markdownPayload
		_ = json.NewDecoder(r.Body).Decode(&body)
		title = body.Markdown.Title
		_, _ = io.WriteString(w, `{"errcode":0}`)
	}))
	defer srv.Close()

	p := New(config.WebhookConfig{URL: srv.URL}, srv.Client(), io.Discard, nil)
	assert.Equal(t, Delivered, p.Publish(context.Background(), sampleReport()).Status)
	assert.Equal(t, "📰 每日 DeepSeek 热点早报 (10-18)", title)
}

func TestPublish_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "errcode set", status: http.StatusOK, body: `{"errcode":310000,"errmsg":"sign not match"}`},
		{name: "no errcode", status: http.StatusOK, body: `{"ok":true}`},
		{name: "not json", status: http.StatusBadGateway, body: `bad gateway`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p := New(config.WebhookConfig{URL: srv.URL}, srv.Client(), io.Discard, nil)
			res := p.Publish(context.Background(), sampleReport())
			assert.Equal(t, Failed, res.Status)
			assert.Equal(t, tt.body, res.Reason)
		})
	}
}

func TestPublish_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := New(config.WebhookConfig{URL: url}, nil, io.Discard, nil)
	res := p.Publish(context.Background(), sampleReport())
	assert.Equal(t, Failed, res.Status)
	assert.NotEmpty(t, res.Reason)
}

func TestPublish_SignsWithSecret(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = io.WriteString(w, `{"errcode":0}`)
	}))
	defer srv.Close()

	p := New(config.WebhookConfig{URL: srv.URL + "/robot/send?access_token=abc", Secret: "SECxyz"}, srv.Client(), io.Discard, nil)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.Equal(t, Delivered, p.Publish(context.Background(), sampleReport()).Status)
	assert.Equal(t, []string{"abc"}, query["access_token"])
	assert.Equal(t, []string{"1700000000000"}, query["timestamp"])
	assert.Equal(t, []string{sign("1700000000000", "SECxyz")}, query["sign"])
}

func TestSign(t *testing.T) {
	a := sign("1700000000000", "secret")
	assert.Equal(t, a, sign("1700000000000", "secret"))
	assert.NotEqual(t, a, sign("1700000000001", "secret"))
	assert.Len(t, a, 44)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "delivered", Delivered.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "skipped", Skipped.String())
}
