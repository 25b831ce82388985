package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/parser"
	"github.com/aluiziolira/go-books-etl/sink"
)

// Sink persists one book at a time and reports the store's total size.
type Sink interface {
	Store(ctx context.Context, book models.Book) error
	Count(ctx context.Context) (int64, error)
}

// ThumbnailSaver downloads an image for a book and returns the local path.
type ThumbnailSaver interface {
	Fetch(imageURL, title string) (string, error)
}

// RunState is the mutable state of one scraping run.
type RunState struct {
	Processed     int
	StoreFailures int
	Sink          Sink
}

// Extractor turns listing entries into stored books.
type Extractor struct {
	siteURL      string
	catalogueURL string
	thumbnails   ThumbnailSaver
	export       sink.OutputWriter
	out          io.Writer
	metrics      *Metrics
	now          func() time.Time
}

// NewExtractor builds an extractor resolving relative links against
// catalogueURL and image sources against siteURL.
func NewExtractor(siteURL, catalogueURL string, thumbnails ThumbnailSaver, opts Options) *Extractor {
	opts = opts.withDefaults()
	return &Extractor{
		siteURL:      siteURL,
		catalogueURL: catalogueURL,
		thumbnails:   thumbnails,
		export:       opts.Export,
		out:          opts.Out,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
}

// ExtractPage processes every listing entry of doc in document order. The
// first entry that fails stops the page; entries already stored stay stored.
func (x *Extractor) ExtractPage(ctx context.Context, doc *goquery.Document, page int, run *RunState) error {
	var err error
	doc.Find("article.product_pod").EachWithBreak(func(i int, entry *goquery.Selection) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		err = x.extractEntry(ctx, entry, page, i, run)
		return err == nil
	})
	return err
}

func (x *Extractor) extractEntry(ctx context.Context, entry *goquery.Selection, page, index int, run *RunState) error {
	missing := func(field string) error {
		return &MarkupError{Page: page, Entry: index, Field: field}
	}

	anchor := entry.Find("h3 a").First()
	title, ok := anchor.Attr("title")
	if !ok {
		return missing("title")
	}
	price := entry.Find("p.price_color").First()
	if price.Length() == 0 {
		return missing("price")
	}
	availability := entry.Find("p.instock.availability").First()
	if availability.Length() == 0 {
		return missing("availability")
	}
	token, ok := parser.RatingToken(entry.Find("p.star-rating").First().AttrOr("class", ""))
	if !ok {
		return missing("rating")
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return missing("link")
	}
	src, ok := entry.Find("img.thumbnail").First().Attr("src")
	if !ok {
		return missing("thumbnail")
	}

	thumbnailURL := x.siteURL + src
	thumbnailFile, err := x.thumbnails.Fetch(thumbnailURL, title)
	if err != nil {
		return err
	}

	book := models.Book{
		Title:         title,
		Price:         price.Text(),
		Availability:  parser.NormalizeAvailability(availability.Text()),
		Rating:        parser.RatingToNumeric(token),
		Link:          x.catalogueURL + href,
		ThumbnailURL:  thumbnailURL,
		ThumbnailFile: thumbnailFile,
		ScrapedAt:     x.now(),
		Page:          page,
	}

	run.Processed++
	x.metrics.IncBooks()
	x.store(ctx, run, book)

	if x.export != nil {
		if err := x.export.Write([]*models.Book{&book}); err != nil {
			return fmt.Errorf("export %q: %w", title, err)
		}
	}

	x.trace(book)
	return nil
}

// store never fails the run: an unreachable or failing store loses the book.
func (x *Extractor) store(ctx context.Context, run *RunState, book models.Book) {
	err := sink.ErrUnavailable
	if run.Sink != nil {
		err = run.Sink.Store(ctx, book)
	}

	switch {
	case err == nil:
		x.metrics.IncStore("inserted")
		slog.Info("stored book", slog.String("title", book.Title))
	case errors.Is(err, sink.ErrUnavailable):
		x.metrics.IncStore("skipped")
		slog.Warn("store unavailable, book not stored", slog.String("title", book.Title))
	default:
		run.StoreFailures++
		x.metrics.IncStore("failed")
		slog.Error("store book failed",
			slog.String("title", book.Title),
			slog.Any("error", err),
		)
	}
}

func (x *Extractor) trace(book models.Book) {
	fmt.Fprintf(x.out, "Page: %d\n", book.Page)
	fmt.Fprintf(x.out, "Title: %s\n", book.Title)
	fmt.Fprintf(x.out, "Price: %s\n", book.Price)
	fmt.Fprintf(x.out, "Availability: %s\n", book.Availability)
	fmt.Fprintf(x.out, "Rating: %d\n", book.Rating)
	fmt.Fprintf(x.out, "Link: %s\n", book.Link)
	fmt.Fprintf(x.out, "Thumbnail URL: %s\n", book.ThumbnailURL)
	fmt.Fprintf(x.out, "Thumbnail File Name: %s\n", book.ThumbnailFile)
	fmt.Fprintln(x.out, strings.Repeat("=", 50))
}
