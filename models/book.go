// Package models defines data structures for the scraper.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book is one listing entry extracted from a catalogue page.
//
// The bson keys match the documents already present in the books collection,
// which downstream readers query by these exact names.
type Book struct {
	Title         string    `bson:"Title" json:"title"`
	Price         string    `bson:"Price" json:"price"`
	Availability  string    `bson:"Availability" json:"availability"`
	Rating        int       `bson:"Rating" json:"rating"`
	Link          string    `bson:"Link" json:"link"`
	ThumbnailURL  string    `bson:"Thumbnail URL" json:"thumbnail_url"`
	ThumbnailFile string    `bson:"Thumbnail File Name" json:"thumbnail_file"`
	ScrapedAt     time.Time `bson:"Scraped At" json:"scraped_at"`
	Page          int       `bson:"Page" json:"page"`
}

// StoredBook is a Book as read back from the store, with its document id.
type StoredBook struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Book `bson:",inline"`
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	StartTime time.Time
	EndTime   time.Time
	// Processed counts books extracted during this run only.
	Processed int
	PageCount int
	// StoredTotal is the cumulative document count in the store, valid
	// only when StoreAvailable is set and CountErr is nil.
	StoredTotal    int64
	StoreAvailable bool
	StoreFailures  int
	// CountErr is set when the store was reachable but the final count failed.
	CountErr error
}
