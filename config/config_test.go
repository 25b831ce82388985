package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "zero first page",
			mutate: func(cfg *Config) {
				cfg.FirstPage = 0
			},
			wantErr: "first page",
		},
		{
			name: "empty site url",
			mutate: func(cfg *Config) {
				cfg.SiteURL = ""
			},
			wantErr: "site URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.SiteURL = "http://"
			},
			wantErr: "site URL",
		},
		{
			name: "page format without verb",
			mutate: func(cfg *Config) {
				cfg.PageURLFormat = "https://books.toscrape.com/catalogue/page.html"
			},
			wantErr: "page URL format",
		},
		{
			name: "empty images dir",
			mutate: func(cfg *Config) {
				cfg.ImagesDir = ""
			},
			wantErr: "images dir",
		},
		{
			name: "missing collection",
			mutate: func(cfg *Config) {
				cfg.Mongo.Collection = ""
			},
			wantErr: "mongo collection",
		},
		{
			name: "negative connect timeout",
			mutate: func(cfg *Config) {
				cfg.Mongo.ConnectTimeout = -1 * time.Second
			},
			wantErr: "connect timeout",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "csv without file",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "csv"
				cfg.OutputFile = ""
			},
			wantErr: "output file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateAllowsMissingStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mongo = MongoConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config without store should validate, got %v", err)
	}
}

func TestDefaultPages(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Pages(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("pages = %v, want [1]", got)
	}
	if got := cfg.PageURL(1); got != "https://books.toscrape.com/catalogue/page-1.html" {
		t.Fatalf("page url = %q", got)
	}

	cfg.FirstPage = 3
	cfg.MaxPages = 2
	if got := cfg.Pages(); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Fatalf("pages = %v, want [3 4]", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
max_pages: 3
images_dir: thumbs
mongo:
  uri: mongodb://db:27017
  collection: catalogue
  connect_timeout: 2s
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.MaxPages != 3 || cfg.ImagesDir != "thumbs" {
		t.Fatalf("unexpected overlay: pages=%d images=%q", cfg.MaxPages, cfg.ImagesDir)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" || cfg.Mongo.Collection != "catalogue" {
		t.Fatalf("unexpected mongo overlay: %+v", cfg.Mongo)
	}
	if cfg.Mongo.ConnectTimeout != 2*time.Second {
		t.Fatalf("connect timeout = %v, want 2s", cfg.Mongo.ConnectTimeout)
	}
	if cfg.Mongo.Database != "books_scraper" {
		t.Fatalf("database should keep default, got %q", cfg.Mongo.Database)
	}
	if cfg.SiteURL != "https://books.toscrape.com/" {
		t.Fatalf("site url should keep default, got %q", cfg.SiteURL)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://env:27017")
	t.Setenv("DATABASE_NAME", "envdb")
	t.Setenv("COLLECTION_NAME", "envbooks")
	t.Setenv("SCRAPER_PAGES", "10")
	t.Setenv("SCRAPER_FORMAT", "JSON")
	t.Setenv("PORT", "8088")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://env:27017" || cfg.Mongo.Database != "envdb" || cfg.Mongo.Collection != "envbooks" {
		t.Fatalf("unexpected mongo config: %+v", cfg.Mongo)
	}
	if cfg.MaxPages != 10 {
		t.Fatalf("max pages = %d, want 10", cfg.MaxPages)
	}
	if cfg.OutputFormat != "json" {
		t.Fatalf("output format = %q, want json", cfg.OutputFormat)
	}
	if cfg.APIAddr != ":8088" {
		t.Fatalf("api addr = %q, want :8088", cfg.APIAddr)
	}
}

func TestApplyEnvInvalidInt(t *testing.T) {
	t.Setenv("SCRAPER_PAGES", "ten")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil || !strings.Contains(err.Error(), "SCRAPER_PAGES") {
		t.Fatalf("expected SCRAPER_PAGES error, got %v", err)
	}
}
