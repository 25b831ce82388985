package scraper

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-books-etl/parser"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const ownerCacheSize = 4096

// ThumbnailFetcher downloads cover images into a flat directory keyed by
// sanitized title. Existing files are overwritten.
type ThumbnailFetcher struct {
	collector *colly.Collector
	dir       string
	metrics   *Metrics

	// owners maps a written path to the title that last wrote it.
	owners *lru.Cache[string, string]
}

// NewThumbnailFetcher registers the download handlers on collector and lifts
// its body size limit so images are written in full.
func NewThumbnailFetcher(collector *colly.Collector, dir string, metrics *Metrics) (*ThumbnailFetcher, error) {
	owners, err := lru.New[string, string](ownerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create owner cache: %w", err)
	}

	collector.MaxBodySize = 0

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		metrics.IncRequest("thumbnail")
	})
	collector.OnError(func(r *colly.Response, err error) {
		r.Ctx.Put("status", r.StatusCode)
	})
	collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			metrics.ObserveDuration("thumbnail", time.Since(start))
		}
		if err := r.Save(r.Ctx.Get("path")); err != nil {
			r.Ctx.Put("save_err", err)
		}
	})

	return &ThumbnailFetcher{
		collector: collector,
		dir:       dir,
		metrics:   metrics,
		owners:    owners,
	}, nil
}

// Path returns where the thumbnail for title is written.
func (f *ThumbnailFetcher) Path(title string) string {
	return filepath.Join(f.dir, parser.SanitizeTitle(title)+".jpg")
}

// Fetch downloads imageURL and writes it to Path(title). The ".jpg" extension
// is used whatever the image format.
func (f *ThumbnailFetcher) Fetch(imageURL, title string) (string, error) {
	path := f.Path(title)

	ctx := colly.NewContext()
	ctx.Put("path", path)
	if err := f.collector.Request(http.MethodGet, imageURL, nil, ctx, nil); err != nil {
		status, _ := ctx.GetAny("status").(int)
		return "", &FetchError{Phase: "thumbnail", URL: imageURL, Err: classifyError(err, status)}
	}
	if err, ok := ctx.GetAny("save_err").(error); ok {
		return "", fmt.Errorf("save thumbnail %s: %w", path, err)
	}

	if previous, ok := f.owners.Get(path); ok && previous != title {
		slog.Warn("thumbnail overwritten by another title",
			slog.String("path", path),
			slog.String("previous", previous),
			slog.String("title", title),
		)
	}
	f.owners.Add(path, title)
	f.metrics.IncThumbnails()

	return path, nil
}
