package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// MongoConfig describes the document store receiving scraped books.
type MongoConfig struct {
	// URI is the connection string. An empty URI runs the scraper without a store.
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Collection     string        `yaml:"collection"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Config holds scraper configuration.
type Config struct {
	SiteURL       string      `yaml:"site_url"`
	CatalogueURL  string      `yaml:"catalogue_url"`
	PageURLFormat string      `yaml:"page_url_format"`
	FirstPage     int         `yaml:"first_page"`
	MaxPages      int         `yaml:"max_pages"`
	ImagesDir     string      `yaml:"images_dir"`
	Mongo         MongoConfig `yaml:"mongo"`
	OutputFile    string      `yaml:"output_file"`
	OutputFormat  string      `yaml:"output_format"` // none, csv, json, or dual
	MetricsAddr   string      `yaml:"metrics_addr"`
	// APIAddr is the listen address of the read API.
	APIAddr       string      `yaml:"api_addr"`
	Verbose       bool        `yaml:"verbose"`
}

// DefaultConfig returns the fixed settings for the demo target.
func DefaultConfig() *Config {
	return &Config{
		SiteURL:       "https://books.toscrape.com/",
		CatalogueURL:  "https://books.toscrape.com/catalogue/",
		PageURLFormat: "https://books.toscrape.com/catalogue/page-%d.html",
		FirstPage:     1,
		MaxPages:      1,
		ImagesDir:     "images",
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "books_scraper",
			Collection:     "books",
			ConnectTimeout: 10 * time.Second,
		},
		OutputFile:   "output/books.csv",
		OutputFormat: "none",
		APIAddr:      ":3000",
	}
}

// PageURL formats the catalogue URL for a page index.
func (c *Config) PageURL(page int) string {
	return fmt.Sprintf(c.PageURLFormat, page)
}

// Pages returns the page indices to visit, in order.
func (c *Config) Pages() []int {
	pages := make([]int, 0, c.MaxPages)
	for i := 0; i < c.MaxPages; i++ {
		pages = append(pages, c.FirstPage+i)
	}
	return pages
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return fmt.Errorf("site URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.SiteURL)
	if err != nil {
		return fmt.Errorf("invalid site URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("site URL must include a host")
	}
	if c.CatalogueURL == "" {
		return fmt.Errorf("catalogue URL cannot be empty")
	}
	if strings.Count(c.PageURLFormat, "%d") != 1 {
		return fmt.Errorf("page URL format must contain exactly one %%d verb")
	}
	if c.FirstPage <= 0 {
		return fmt.Errorf("first page must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.ImagesDir == "" {
		return fmt.Errorf("images dir cannot be empty")
	}
	if c.Mongo.URI != "" {
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo database cannot be empty")
		}
		if c.Mongo.Collection == "" {
			return fmt.Errorf("mongo collection cannot be empty")
		}
		if c.Mongo.ConnectTimeout <= 0 {
			return fmt.Errorf("mongo connect timeout must be positive")
		}
	}
	switch c.OutputFormat {
	case "none":
	case "csv", "json", "dual":
		if c.OutputFile == "" {
			return fmt.Errorf("output file cannot be empty")
		}
	default:
		return fmt.Errorf("output format must be none, csv, json, or dual")
	}

	return nil
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c with any of the recognised environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("MONGODB_URI"); ok {
		c.Mongo.URI = v
	}
	if v, ok := EnvString("DATABASE_NAME"); ok {
		c.Mongo.Database = v
	}
	if v, ok := EnvString("COLLECTION_NAME"); ok {
		c.Mongo.Collection = v
	}
	if v, ok, err := EnvInt("SCRAPER_PAGES"); err != nil {
		return fmt.Errorf("invalid SCRAPER_PAGES: %w", err)
	} else if ok {
		c.MaxPages = v
	}
	if v, ok := EnvString("SCRAPER_IMAGES_DIR"); ok {
		c.ImagesDir = v
	}
	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("PORT"); ok {
		c.APIAddr = ":" + v
	}
	return nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", false
	}
	return v, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}
