package publisher

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"daily_trend_digest/config"
	"daily_trend_digest/digest"
)

// placeholderToken marks a webhook URL that was never filled in.
const placeholderToken = "YOUR_TOKEN"

// Status is the outcome of one publish attempt.
type Status int

const (
	Delivered Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result carries the outcome; Reason holds the raw response or error text on failure.
type Result struct {
	Status Status
	Reason string
}

type markdownBody struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type markdownPayload struct {
	MsgType  string       `json:"msgtype"`
	Markdown markdownBody `json:"markdown"`
}

// Publisher posts reports to a DingTalk custom robot.
type Publisher struct {
	cfg    config.WebhookConfig
	client *http.Client
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Publisher. out receives the local preview when the webhook is not
// configured; nil means stdout.
func New(cfg config.WebhookConfig, client *http.Client, out io.Writer, logger *slog.Logger) *Publisher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, client: client, out: out, logger: logger, now: time.Now}
}

// Configured reports whether a real destination is set.
func (p *Publisher) Configured() bool {
	return p.cfg.URL != "" && !strings.Contains(p.cfg.URL, placeholderToken)
}

// Publish sends the report once. It never returns an error; failures are in the Result.
func (p *Publisher) Publish(ctx context.Context, report digest.Report) Result {
	text := report.Markdown()
	if !p.Configured() {
		p.logger.Warn("webhook not configured, printing report locally")
		fmt.Fprintf(p.out, "--- 本地预览 ---\n%s\n", text)
		return Result{Status: Skipped}
	}

	title := p.cfg.Title
	if title == "" {
		title = report.Title()
	}
	body, err := json.Marshal(markdownPayload{
		MsgType:  "markdown",
		Markdown: markdownBody{Title: title, Text: text},
	})
	if err != nil {
		return Result{Status: Failed, Reason: err.Error()}
	}

	target, err := p.signedURL()
	if err != nil {
		return Result{Status: Failed, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return Result{Status: Failed, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("webhook request failed", "err", err)
		return Result{Status: Failed, Reason: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: Failed, Reason: err.Error()}
	}

	errcode := gjson.GetBytes(raw, "errcode")
	if gjson.ValidBytes(raw) && errcode.Exists() && errcode.Int() == 0 {
		p.logger.Info("report delivered", "sections", len(report.Sections))
		return Result{Status: Delivered}
	}
	p.logger.Error("webhook rejected report", "status", resp.StatusCode, "body", string(raw))
	return Result{Status: Failed, Reason: string(raw)}
}

// signedURL appends DingTalk's timestamp/sign parameters when a secret is configured.
func (p *Publisher) signedURL() (string, error) {
	if p.cfg.Secret == "" {
		return p.cfg.URL, nil
	}
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("webhook url: %w", err)
	}
	ts := strconv.FormatInt(p.now().UnixMilli(), 10)
	q := u.Query()
	q.Set("timestamp", ts)
	q.Set("sign", sign(ts, p.cfg.Secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
