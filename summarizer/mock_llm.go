package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MockLLM 本地调试用，不调用外部模型：返回正文的第一句。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	text := strings.TrimSpace(prompt.User)
	if i := strings.IndexAny(text, ".。!?！？"); i >= 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		text = text[:i+size]
	}
	return "[mock] " + text, nil
}
