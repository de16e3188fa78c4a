// Package crawl walks the paginated directory, extracts one record per
// detail page and flushes them to the raw sheet every few pages.
package crawl

import (
	"context"
	"sync/atomic"
	"time"

	"leadscout/internal/domain"
	"leadscout/internal/events"
	"leadscout/internal/scrape/businesslist"
	"leadscout/internal/scrape/util"
	"leadscout/internal/store"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Appender receives each flushed batch. *store.BatchPersister implements it.
type Appender interface {
	Append(ctx context.Context, rows [][]string) error
}

type Options struct {
	BaseURL     string
	Pages       int
	FlushEvery  int
	DetailDelay time.Duration
	Workers     int
	SinkName    string
}

type Stats struct {
	Pages   int
	Links   int
	Records int
	Failed  int
	Written int
	Flushes int
	Elapsed time.Duration
}

type Crawler struct {
	opts    Options
	fetch   DocumentFetcher
	sink    Appender
	limiter *util.HostLimiter
	hub     *events.Hub
	log     *zap.Logger
}

func New(opts Options, fetcher DocumentFetcher, sink Appender, hub *events.Hub, log *zap.Logger) *Crawler {
	if opts.Pages <= 0 {
		opts.Pages = 15
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{
		opts:    opts,
		fetch:   fetcher,
		sink:    sink,
		limiter: util.NewHostLimiter(opts.DetailDelay, 1),
		hub:     hub,
		log:     log.With(zap.String("component", "crawl")),
	}
}

// Run crawls pages 1..Pages. Listing and detail failures are logged and
// skipped; a failed flush stops the run and is returned, leaving earlier
// batches in the sink.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats
	var batch []domain.BusinessRecord

	finish := func(err error) (Stats, error) {
		st.Elapsed = time.Since(start)
		c.hub.Emit(events.CrawlFinished, events.Summary{
			Pages:     st.Pages,
			Records:   st.Records,
			Written:   st.Written,
			Failed:    st.Failed,
			ElapsedMS: int(st.Elapsed.Milliseconds()),
		})
		if err != nil {
			c.log.Error("crawl: run stopped", zap.Error(err), zap.Int("written", st.Written))
		} else {
			c.log.Info("crawl: run finished",
				zap.Int("pages", st.Pages),
				zap.Int("records", st.Records),
				zap.Int("failed", st.Failed),
				zap.Int("written", st.Written),
				zap.Duration("elapsed", st.Elapsed),
			)
		}
		return st, err
	}

	for p := 1; p <= c.opts.Pages; p++ {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		recs, ps, err := c.crawlPage(ctx, p)
		if err != nil {
			return finish(err)
		}
		st.Pages++
		st.Links += ps.Links
		st.Failed += ps.Failed
		st.Records += len(recs)
		batch = append(batch, recs...)

		c.log.Info("crawl: page done", zap.Int("page", p), zap.Int("links", ps.Links), zap.Int("records", len(recs)))
		c.hub.Emit(events.CrawlPageDone, ps)

		if p%c.opts.FlushEvery == 0 {
			if err := c.flush(ctx, p, &batch, &st); err != nil {
				return finish(err)
			}
		}
	}

	if len(batch) > 0 {
		if err := c.flush(ctx, c.opts.Pages, &batch, &st); err != nil {
			return finish(err)
		}
	}
	return finish(nil)
}

func (c *Crawler) flush(ctx context.Context, page int, batch *[]domain.BusinessRecord, st *Stats) error {
	if len(*batch) == 0 {
		return nil
	}
	rows := store.BusinessRows(*batch)
	if err := c.sink.Append(ctx, rows); err != nil {
		return err
	}
	st.Written += len(rows)
	st.Flushes++
	*batch = (*batch)[:0]

	c.log.Info("crawl: batch flushed", zap.Int("page", page), zap.Int("rows", len(rows)))
	c.hub.Emit(events.CrawlFlush, events.Flush{Page: page, Rows: len(rows), Sheet: c.opts.SinkName})
	return nil
}

// crawlPage returns the page's records in link order. The only error is a
// cancelled context.
func (c *Crawler) crawlPage(ctx context.Context, page int) ([]domain.BusinessRecord, events.PageDone, error) {
	ps := events.PageDone{Page: page}
	listURL := util.PageURL(c.opts.BaseURL, page)
	log := c.log.With(zap.Int("page", page))

	if err := c.limiter.WaitURL(ctx, listURL); err != nil {
		return nil, ps, err
	}
	doc, err := c.fetch.Fetch(ctx, listURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ps, ctx.Err()
		}
		log.Error("crawl: listing fetch failed", zap.String("url", listURL), zap.Error(err))
		return nil, ps, nil
	}

	links := businesslist.ExtractLinks(doc, listURL, log)
	ps.Links = len(links)
	log.Debug("crawl: links found", zap.Int("count", len(links)))

	results := make([]*domain.BusinessRecord, len(links))
	var failed int64

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			if err := c.limiter.WaitURL(ctx, link); err != nil {
				return err
			}
			rec := c.detail(ctx, link, log)
			if rec == nil {
				atomic.AddInt64(&failed, 1)
				return nil
			}
			results[i] = rec
			c.hub.Emit(events.CrawlRecord, events.Record{Page: page, CompanyName: rec.CompanyName, URL: link})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ps, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ps, err
	}

	out := make([]domain.BusinessRecord, 0, len(links))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	ps.Extracted = len(out)
	ps.Failed = int(failed)
	return out, ps, nil
}

func (c *Crawler) detail(ctx context.Context, link string, log *zap.Logger) *domain.BusinessRecord {
	log = log.With(zap.String("url", link))

	doc, err := c.fetch.Fetch(ctx, link)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("crawl: detail fetch failed", zap.Error(err))
		}
		return nil
	}
	rec, err := businesslist.ExtractDetails(doc, link, log)
	if err != nil {
		log.Error("crawl: extraction failed", zap.Error(err))
		return nil
	}
	if rec == nil {
		log.Warn("crawl: no record extracted")
		return nil
	}
	log.Debug("crawl: record extracted", zap.String("company", rec.CompanyName))
	return rec
}
