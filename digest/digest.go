package digest

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"daily_trend_digest/news"
)

// Template holds the fixed text around the sections.
type Template struct {
	Heading string
	Footer  string
}

// ProviderTemplate names the summarizing model vendor in the heading and footer.
func ProviderTemplate(provider string) Template {
	return Template{
		Heading: fmt.Sprintf("📰 每日 %s 热点早报", provider),
		Footer:  fmt.Sprintf("_Powered by %s API_", provider),
	}
}

// DefaultTemplate is used for empty Template fields.
var DefaultTemplate = ProviderTemplate("DeepSeek")

// Section is one topic's entry in the report.
type Section struct {
	Topic   string
	Title   string
	Summary string
	URL     string
}

// Report is the digest for one run. Build it with Assemble.
type Report struct {
	Heading  string
	Date     time.Time
	Sections []Section
	Footer   string
}

// Assemble builds a report from topics in order. Topics without an article are left out;
// summaries are used verbatim, including error markers.
func Assemble(now time.Time, topics []string, articles map[string]*news.Article, summaries map[string]string, tpl Template) Report {
	if tpl.Heading == "" {
		tpl.Heading = DefaultTemplate.Heading
	}
	if tpl.Footer == "" {
		tpl.Footer = DefaultTemplate.Footer
	}

	r := Report{Heading: tpl.Heading, Date: now, Footer: tpl.Footer}
	for _, topic := range topics {
		art := articles[topic]
		if art == nil {
			continue
		}
		r.Sections = append(r.Sections, Section{
			Topic:   topic,
			Title:   art.Title,
			Summary: summaries[topic],
			URL:     art.URL,
		})
	}
	return r
}

// Header is the first line of the report, dated month-day.
func (r Report) Header() string {
	return fmt.Sprintf("# %s (%s)", r.Heading, r.Date.Format("01-02"))
}

// Markdown renders the report in the webhook's markdown dialect.
func (r Report) Markdown() string {
	lines := make([]string, 0, len(r.Sections)+2)
	lines = append(lines, r.Header())
	for _, s := range r.Sections {
		lines = append(lines, s.Markdown())
	}
	lines = append(lines, "\n"+r.Footer)
	return strings.Join(lines, "\n")
}

func (s Section) Markdown() string {
	return fmt.Sprintf("### 🔥 %s\n**%s**\n> 💡 %s\n[查看原文](%s)\n", s.Topic, s.Title, s.Summary, s.URL)
}

// Title returns the text of the report's top-level heading.
func (r Report) Title() string {
	src := []byte(r.Markdown())
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = plainText(h, src)
		return ast.WalkStop, nil
	})
	return title
}

func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			sb.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// HTML renders the report for the browser preview.
func (r Report) HTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
