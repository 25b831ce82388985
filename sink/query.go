package sink

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/parser"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no stored book matches a lookup.
var ErrNotFound = errors.New("sink: book not found")

const inStockPattern = "in stock"

// BookQuery selects stored books. Zero values leave a criterion unset.
type BookQuery struct {
	Rating   int
	Search   string
	InStock  *bool
	MinPrice *float64
	MaxPrice *float64

	Page  int
	Limit int
}

// Filter builds the server-side part of the query. Prices are stored as text
// and are filtered after decoding.
func (q BookQuery) Filter() bson.M {
	filter := bson.M{}
	if q.Rating != 0 {
		filter["Rating"] = q.Rating
	}
	if q.Search != "" {
		filter["Title"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	if q.InStock != nil {
		stock := primitive.Regex{Pattern: inStockPattern, Options: "i"}
		if *q.InStock {
			filter["Availability"] = stock
		} else {
			filter["Availability"] = bson.M{"$not": stock}
		}
	}
	return filter
}

func (q BookQuery) filtersPrice() bool {
	return q.MinPrice != nil || q.MaxPrice != nil
}

func (q BookQuery) matchesPrice(book models.StoredBook) bool {
	price := parser.PriceValue(book.Price)
	if q.MinPrice != nil && price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && price > *q.MaxPrice {
		return false
	}
	return true
}

func (q BookQuery) offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Find returns one page of books matching q, in insertion order, along with
// the number of matches across all pages.
func (m *Mongo) Find(ctx context.Context, q BookQuery) ([]models.StoredBook, int64, error) {
	if !m.Available() {
		return nil, 0, ErrUnavailable
	}

	filter := q.Filter()
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	if !q.filtersPrice() {
		total, err := m.books.CountDocuments(ctx, filter)
		if err != nil {
			return nil, 0, fmt.Errorf("count matching books: %w", err)
		}
		opts.SetSkip(int64(q.offset()))
		if q.Limit > 0 {
			opts.SetLimit(int64(q.Limit))
		}
		books, err := m.decodeAll(ctx, filter, opts)
		if err != nil {
			return nil, 0, err
		}
		return books, total, nil
	}

	all, err := m.decodeAll(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	matched := all[:0]
	for _, book := range all {
		if q.matchesPrice(book) {
			matched = append(matched, book)
		}
	}

	total := int64(len(matched))
	start := q.offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (m *Mongo) decodeAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.StoredBook, error) {
	cursor, err := m.books.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	books := []models.StoredBook{}
	if err := cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return books, nil
}

// FindOne looks a book up by document id, falling back to a case-insensitive
// title match when id is not a known ObjectID.
func (m *Mongo) FindOne(ctx context.Context, id string) (models.StoredBook, error) {
	if !m.Available() {
		return models.StoredBook{}, ErrUnavailable
	}

	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		book, err := m.findOne(ctx, bson.M{"_id": oid})
		if !errors.Is(err, ErrNotFound) {
			return book, err
		}
	}
	return m.findOne(ctx, bson.M{"Title": primitive.Regex{Pattern: regexp.QuoteMeta(id), Options: "i"}})
}

func (m *Mongo) findOne(ctx context.Context, filter bson.M) (models.StoredBook, error) {
	var book models.StoredBook
	err := m.books.FindOne(ctx, filter).Decode(&book)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.StoredBook{}, ErrNotFound
	case err != nil:
		return models.StoredBook{}, fmt.Errorf("find book: %w", err)
	}
	return book, nil
}
