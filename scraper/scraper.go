package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/sink"
	"github.com/gocolly/colly/v2"
)

// Options carries the optional collaborators of a Scraper.
type Options struct {
	// Out receives the per-book trace and progress lines. Defaults to stdout.
	Out io.Writer
	// Export, when set, receives a copy of every extracted book.
	Export  sink.OutputWriter
	Metrics *Metrics
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Scraper fetches catalogue pages one after another and feeds them to the
// extractor. Every request blocks; nothing runs concurrently.
type Scraper struct {
	cfg        *config.Config
	collector  *colly.Collector
	thumbnails *ThumbnailFetcher
	extractor  *Extractor
	out        io.Writer
	Metrics    *Metrics
}

// NewScraper builds a scraper from cfg and creates the images directory.
func NewScraper(cfg *config.Config, opts Options) (*Scraper, error) {
	parsed, err := url.Parse(cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("site url must include a host")
	}

	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	opts = opts.withDefaults()
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.AllowURLRevisit(),
	)
	thumbnails, err := NewThumbnailFetcher(colly.NewCollector(colly.AllowURLRevisit(), colly.MaxBodySize(0)), cfg.ImagesDir, opts.Metrics)
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:        cfg,
		collector:  collector,
		thumbnails: thumbnails,
		extractor:  NewExtractor(cfg.SiteURL, cfg.CatalogueURL, thumbnails, opts),
		out:        opts.Out,
		Metrics:    opts.Metrics,
	}
	s.configureHandlers()
	return s, nil
}

// WithTransport replaces the HTTP transport of both page and image requests.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
	s.thumbnails.collector.WithTransport(rt)
}

// Run visits every configured page in order. Any fetch, parse, thumbnail or
// markup failure aborts the run and is returned together with the partial
// result; store failures are only counted.
func (s *Scraper) Run(ctx context.Context, run *RunState) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if run == nil {
		run = &RunState{}
	}

	result := &models.ScraperResult{StartTime: time.Now()}
	finish := func() {
		result.EndTime = time.Now()
		result.Processed = run.Processed
		result.StoreFailures = run.StoreFailures
	}

	for _, page := range s.cfg.Pages() {
		if err := ctx.Err(); err != nil {
			finish()
			return result, err
		}
		if err := s.scrapePage(ctx, page, run); err != nil {
			s.Metrics.IncError(errorTypeLabel(err))
			finish()
			return result, err
		}
		result.PageCount++
		fmt.Fprintf(s.out, "Extracted data from page %d\n", page)
	}
	finish()

	if run.Sink != nil {
		total, err := run.Sink.Count(ctx)
		switch {
		case err == nil:
			result.StoredTotal = total
			result.StoreAvailable = true
		case errors.Is(err, sink.ErrUnavailable):
		default:
			result.StoreAvailable = true
			result.CountErr = err
			slog.Error("count stored books", slog.Any("error", err))
		}
	}

	return result, nil
}

func (s *Scraper) scrapePage(ctx context.Context, page int, run *RunState) error {
	pageURL := s.cfg.PageURL(page)

	reqCtx := colly.NewContext()
	if err := s.collector.Request(http.MethodGet, pageURL, nil, reqCtx, nil); err != nil {
		status, _ := reqCtx.GetAny("status").(int)
		return &FetchError{Phase: "page", URL: pageURL, Err: classifyError(err, status)}
	}
	if err, ok := reqCtx.GetAny("parse_err").(error); ok {
		return fmt.Errorf("parse page %d: %w", page, err)
	}
	doc, ok := reqCtx.GetAny("doc").(*goquery.Document)
	if !ok {
		return fmt.Errorf("parse page %d: no document", page)
	}

	return s.extractor.ExtractPage(ctx, doc, page, run)
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		s.Metrics.IncRequest("page")
		slog.Debug("fetching page", slog.String("url", r.URL.String()))
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		r.Ctx.Put("status", r.StatusCode)
		slog.Debug("page request failed",
			slog.Int("status", r.StatusCode),
			slog.Any("error", err),
		)
	})

	s.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration("page", time.Since(start))
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			r.Ctx.Put("parse_err", err)
			return
		}
		r.Ctx.Put("doc", doc)
	})
}

// PrintSummary writes the end-of-run report.
func PrintSummary(w io.Writer, result *models.ScraperResult) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Scrape complete")
	fmt.Fprintf(w, "  Pages:           %d\n", result.PageCount)
	fmt.Fprintf(w, "  Books processed: %d\n", result.Processed)
	if result.StoreFailures > 0 {
		fmt.Fprintf(w, "  Store failures:  %d\n", result.StoreFailures)
	}
	switch {
	case result.StoreAvailable && result.CountErr != nil:
		fmt.Fprintln(w, "  Books in store:  unknown (count failed)")
	case result.StoreAvailable:
		fmt.Fprintf(w, "  Books in store:  %d\n", result.StoredTotal)
	default:
		fmt.Fprintln(w, "  Store:           not available, books were not stored")
	}
	fmt.Fprintf(w, "  Duration:        %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Fprintln(w, separator)
}
