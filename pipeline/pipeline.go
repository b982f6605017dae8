package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"daily_trend_digest/digest"
	"daily_trend_digest/news"
	"daily_trend_digest/publisher"
	"daily_trend_digest/summarizer"
	"daily_trend_digest/trends"
)

// ArticleFinder looks up the single most relevant article for a topic.
type ArticleFinder interface {
	FindTopArticle(ctx context.Context, topic string) (news.Article, error)
}

// Summarizer produces a one-sentence summary of an article body.
type Summarizer interface {
	Summarize(ctx context.Context, body string) (string, error)
}

// Publisher delivers an assembled report.
type Publisher interface {
	Publish(ctx context.Context, report digest.Report) publisher.Result
}

// RunResult describes one finished run.
type RunResult struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Topics     []string
	// Dropped lists topics for which no article could be found.
	Dropped []string
	// SummaryFailures lists topics rendered with the error marker.
	SummaryFailures []string
	Report          digest.Report
	Publish         publisher.Result
	// Err is set only when the run was aborted by a panic.
	Err error
}

// Runner executes the trend → news → summary → report → webhook pipeline.
type Runner struct {
	trends     trends.Source
	news       ArticleFinder
	summarizer Summarizer
	publisher  Publisher
	topicCount int
	template   digest.Template
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	last *RunResult
}

// Options are the non-client settings of a Runner.
type Options struct {
	TopicCount int
	Template   digest.Template
	Logger     *slog.Logger
	// Now defaults to time.Now; the report header uses its date.
	Now func() time.Time
}

func NewRunner(src trends.Source, finder ArticleFinder, sum Summarizer, pub Publisher, opts Options) (*Runner, error) {
	if src == nil || finder == nil || sum == nil || pub == nil {
		return nil, errors.New("pipeline: trends, news, summarizer and publisher are required")
	}
	if opts.TopicCount < 1 {
		opts.TopicCount = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		trends:     src,
		news:       finder,
		summarizer: sum,
		publisher:  pub,
		topicCount: opts.TopicCount,
		template:   opts.Template,
		logger:     opts.Logger,
		now:        opts.Now,
	}, nil
}

// Run performs one complete pipeline pass. Failures are contained per call; a panic is
// recovered and reported in RunResult.Err.
func (r *Runner) Run(ctx context.Context) (res RunResult) {
	res.ID = uuid.NewString()
	res.StartedAt = r.now()
	logger := r.logger.With("run_id", res.ID)
	logger.Info("run started")

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("run panicked: %v", p)
			logger.Error("run aborted", "err", res.Err)
		}
		res.FinishedAt = r.now()
		r.mu.Lock()
		last := res
		r.last = &last
		r.mu.Unlock()
	}()

	res.Topics = trends.TopTopics(ctx, r.trends, r.topicCount, logger)
	logger.Info("topics selected", "topics", res.Topics)

	articles := make(map[string]*news.Article, len(res.Topics))
	summaries := make(map[string]string, len(res.Topics))
	for _, topic := range res.Topics {
		tlog := logger.With("topic", topic)

		art, err := r.news.FindTopArticle(ctx, topic)
		if err != nil {
			if errors.Is(err, news.ErrNoArticle) {
				tlog.Info("no article found, topic dropped")
			} else {
				tlog.Warn("news lookup failed, topic dropped", "err", err)
			}
			res.Dropped = append(res.Dropped, topic)
			continue
		}
		articles[topic] = &art

		tlog.Debug("summarizing", "title", art.Title)
		summary, err := r.summarizer.Summarize(ctx, art.Body)
		if err != nil {
			tlog.Warn("summarization failed", "err", err)
			summary = summarizer.ErrorMarker(err)
			res.SummaryFailures = append(res.SummaryFailures, topic)
		}
		summaries[topic] = summary
	}

	res.Report = digest.Assemble(r.now(), res.Topics, articles, summaries, r.template)
	res.Publish = r.publisher.Publish(ctx, res.Report)

	logger.Info("run finished",
		"sections", len(res.Report.Sections),
		"dropped", len(res.Dropped),
		"summary_failures", len(res.SummaryFailures),
		"status", res.Publish.Status.String())
	return res
}

// Last returns the most recent finished run.
func (r *Runner) Last() (RunResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return RunResult{}, false
	}
	return *r.last, true
}
