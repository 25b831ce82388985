package scraper

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocolly/colly/v2"
	"github.com/jarcoal/httpmock"
)

func newTestFetcher(t *testing.T, dir string) (*ThumbnailFetcher, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	collector := colly.NewCollector(colly.AllowURLRevisit())
	collector.WithTransport(transport)

	f, err := NewThumbnailFetcher(collector, dir, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return f, transport
}

func TestThumbnailPath(t *testing.T) {
	f, _ := newTestFetcher(t, "images")

	tests := map[string]string{
		"Soumission":               filepath.Join("images", "Soumission.jpg"),
		"Sharp Objects":            filepath.Join("images", "Sharp_Objects.jpg"),
		"It's Only the Himalayas":  filepath.Join("images", "It_s_Only_the_Himalayas.jpg"),
		"Olio / Ocean of Wisdom!?": filepath.Join("images", "Olio___Ocean_of_Wisdom__.jpg"),
	}
	for title, want := range tests {
		got := f.Path(title)
		if got != want {
			t.Errorf("Path(%q) = %q, want %q", title, got, want)
		}
		if !strings.HasSuffix(got, ".jpg") {
			t.Errorf("Path(%q) = %q lacks .jpg", title, got)
		}
	}
}

func TestThumbnailFetchWritesFile(t *testing.T) {
	dir := t.TempDir()
	f, transport := newTestFetcher(t, dir)
	transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/a.png", imageResponder("png-bytes"))

	path, err := f.Fetch("https://books.toscrape.com/media/cache/a.png", "A Light in the Attic")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if path != filepath.Join(dir, "A_Light_in_the_Attic.jpg") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestThumbnailFetchWritesLargeImage(t *testing.T) {
	dir := t.TempDir()
	f, transport := newTestFetcher(t, dir)
	body := bytes.Repeat([]byte{0xff}, 12<<20)
	transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/big.jpg", httpmock.NewBytesResponder(http.StatusOK, body))

	path, err := f.Fetch("https://books.toscrape.com/media/cache/big.jpg", "Big")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != int64(len(body)) {
		t.Fatalf("size = %d, want %d", info.Size(), len(body))
	}
}

func TestThumbnailFetchOverwrites(t *testing.T) {
	dir := t.TempDir()
	f, transport := newTestFetcher(t, dir)
	transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/1.jpg", imageResponder("one"))
	transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/2.jpg", imageResponder("two"))

	first, err := f.Fetch("https://books.toscrape.com/media/cache/1.jpg", "Tom & Jerry")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := f.Fetch("https://books.toscrape.com/media/cache/2.jpg", "Tom + Jerry")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first != second {
		t.Fatalf("paths differ: %q vs %q", first, second)
	}

	data, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("content = %q, want two", data)
	}
	if owner, ok := f.owners.Get(second); !ok || owner != "Tom + Jerry" {
		t.Fatalf("owner = %q/%v, want Tom + Jerry", owner, ok)
	}
}

func TestThumbnailFetchErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f, transport := newTestFetcher(t, t.TempDir())
		transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/x.jpg", httpmock.NewStringResponder(http.StatusNotFound, ""))

		_, err := f.Fetch("https://books.toscrape.com/media/cache/x.jpg", "x")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || fetchErr.Phase != "thumbnail" {
			t.Fatalf("expected thumbnail fetch error, got %v", err)
		}
		if got := errorTypeLabel(err); got != "not_found" {
			t.Fatalf("label = %q, want not_found", got)
		}
	})

	t.Run("network", func(t *testing.T) {
		f, transport := newTestFetcher(t, t.TempDir())
		transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/x.jpg", httpmock.NewErrorResponder(errors.New("connection reset")))

		if _, err := f.Fetch("https://books.toscrape.com/media/cache/x.jpg", "x"); err == nil {
			t.Fatalf("expected network error")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		f, transport := newTestFetcher(t, filepath.Join(t.TempDir(), "absent"))
		transport.RegisterResponder("GET", "https://books.toscrape.com/media/cache/x.jpg", imageResponder("x"))

		_, err := f.Fetch("https://books.toscrape.com/media/cache/x.jpg", "x")
		if err == nil || !strings.Contains(err.Error(), "save thumbnail") {
			t.Fatalf("expected save error, got %v", err)
		}
	})
}
