package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned for an article without any text to summarize.
	ErrEmptyInput = errors.New("article has no text to summarize")
	// ErrEmptyOutput is returned when the model answers with nothing usable.
	ErrEmptyOutput = errors.New("model returned an empty summary")
)

const (
	defaultMaxChars      = 50
	defaultMaxInputChars = 4000
	defaultLanguage      = "中文"
)

// Options tunes the summary instruction and the passage sent to the model.
type Options struct {
	Language      string
	MaxChars      int
	MaxInputChars int
}

// Summarizer turns an article body into a one-sentence summary.
type Summarizer struct {
	llm  LLMClient
	opts Options
}

func New(llm LLMClient, opts Options) (*Summarizer, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if opts.Language == "" {
		opts.Language = defaultLanguage
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = defaultMaxInputChars
	}
	return &Summarizer{llm: llm, opts: opts}, nil
}

// Summarize makes exactly one model call; there is no retry.
func (s *Summarizer) Summarize(ctx context.Context, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyInput
	}
	body = truncateRunes(body, s.opts.MaxInputChars)

	raw, err := s.llm.Complete(ctx, BuildSummaryPrompt(s.opts.Language, s.opts.MaxChars, body))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	out := PostProcess(raw)
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}

// ErrorMarker is the summary text shown in the report when summarization failed.
func ErrorMarker(err error) string {
	return fmt.Sprintf("❌ 摘要生成失败: %v", err)
}
