package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily_trend_digest/news"
)

var day = time.Date(2026, time.March, 7, 12, 40, 0, 0, time.UTC)

func TestAssemble_SkipsAbsentTopics(t *testing.T) {
	articles := map[string]*news.Article{
		"A": {Title: "Title A", URL: "https://example.com/a", Body: "body a"},
	}
	summaries := map[string]string{"A": "Summary-A"}

	r := Assemble(day, []string{"A", "B"}, articles, summaries, Template{})

	require.Len(t, r.Sections, 1)
	assert.Equal(t, Section{Topic: "A", Title: "Title A", Summary: "Summary-A", URL: "https://example.com/a"}, r.Sections[0])

	md := r.Markdown()
	assert.True(t, strings.HasPrefix(md, "# 📰 每日 DeepSeek 热点早报 (03-07)\n"))
	assert.Contains(t, md, "### 🔥 A\n**Title A**\n> 💡 Summary-A\n[查看原文](https://example.com/a)\n")
	assert.NotContains(t, md, "🔥 B")
	assert.True(t, strings.HasSuffix(md, "\n\n_Powered by DeepSeek API_"))
}

func TestAssemble_PreservesOrder(t *testing.T) {
	topics := []string{"z", "a", "m", "gone", "b"}
	articles := map[string]*news.Article{}
	for _, tp := range topics {
		if tp != "gone" {
			articles[tp] = &news.Article{Title: "t-" + tp, URL: "u-" + tp}
		}
	}

	r := Assemble(day, topics, articles, nil, Template{})

	var got []string
	for _, s := range r.Sections {
		got = append(got, s.Topic)
	}
	assert.Equal(t, []string{"z", "a", "m", "b"}, got)
}

func TestAssemble_ErrorMarkerKept(t *testing.T) {
	articles := map[string]*news.Article{"A": {Title: "T", URL: "U"}}
	summaries := map[string]string{"A": "❌ 摘要生成失败: timeout"}

	r := Assemble(day, []string{"A"}, articles, summaries, Template{})
	require.Len(t, r.Sections, 1)
	assert.Equal(t, "❌ 摘要生成失败: timeout", r.Sections[0].Summary)
}

func TestAssemble_EmptyReport(t *testing.T) {
	r := Assemble(day, nil, nil, nil, Template{Heading: "Digest", Footer: "bye"})
	assert.Empty(t, r.Sections)
	assert.Equal(t, "# Digest (03-07)\n\nbye", r.Markdown())
}

func TestReport_TitleAndHTML(t *testing.T) {
	articles := map[string]*news.Article{"A": {Title: "Title A", URL: "https://example.com/a"}}
	r := Assemble(day, []string{"A"}, articles, map[string]string{"A": "sum"}, Template{})

	assert.Equal(t, "📰 每日 DeepSeek 热点早报 (03-07)", r.Title())

	html, err := r.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>📰 每日 DeepSeek 热点早报 (03-07)</h1>")
	assert.Contains(t, html, "<h3>🔥 A</h3>")
	assert.Contains(t, html, `<a href="https://example.com/a">查看原文</a>`)
	assert.Contains(t, html, "<blockquote>")
}

func TestProviderTemplate(t *testing.T) {
	tpl := ProviderTemplate("Anthropic")
	r := Assemble(day, nil, nil, nil, tpl)
	assert.Equal(t, "# 📰 每日 Anthropic 热点早报 (03-07)\n\n_Powered by Anthropic API_", r.Markdown())
	assert.Equal(t, "_Powered by DeepSeek API_", DefaultTemplate.Footer)
}
