// Package api serves the scraped books over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/parser"
	"github.com/aluiziolira/go-books-etl/sink"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	readyTimeout = 500 * time.Millisecond
)

// BookStore is the read side of the books collection.
type BookStore interface {
	Find(ctx context.Context, q sink.BookQuery) ([]models.StoredBook, int64, error)
	FindOne(ctx context.Context, id string) (models.StoredBook, error)
	Ping(ctx context.Context) error
}

// BookView is a stored book with its price and stock status decoded.
type BookView struct {
	models.StoredBook
	PriceValue float64 `json:"price_value"`
	InStock    bool    `json:"in_stock"`
}

func newBookView(book models.StoredBook) BookView {
	return BookView{
		StoredBook: book,
		PriceValue: parser.PriceValue(book.Price),
		InStock:    parser.InStock(book.Availability),
	}
}

// Pagination describes where a list response sits in the full result.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalBooks  int64 `json:"total_books"`
	TotalPages  int64 `json:"total_pages"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

// Filters echoes the criteria applied to a list request. Unset ones are null.
type Filters struct {
	Rating   *int     `json:"rating"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
	InStock  *bool    `json:"in_stock"`
	Search   *string  `json:"search"`
}

type listResponse struct {
	Success    bool       `json:"success"`
	Data       []BookView `json:"data"`
	Pagination Pagination `json:"pagination"`
	Filters    Filters    `json:"filters"`
}

// Handler serves the book endpoints.
type Handler struct {
	store BookStore
}

func NewHandler(store BookStore) *Handler {
	return &Handler{store: store}
}

// Routes returns the API router wrapped in access logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /api/books", h.ListBooks)
	mux.HandleFunc("GET /api/books/{id}", h.GetBook)
	return accessLog(mux)
}

// ListBooks handles GET /api/books.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q, filters, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	books, total, err := h.store.Find(r.Context(), q)
	if err != nil {
		slog.Error("list books", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	views := make([]BookView, 0, len(books))
	for _, book := range books {
		views = append(views, newBookView(book))
	}

	totalPages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Data:    views,
		Pagination: Pagination{
			Page:        q.Page,
			Limit:       q.Limit,
			TotalBooks:  total,
			TotalPages:  totalPages,
			HasNextPage: int64(q.Page) < totalPages,
			HasPrevPage: q.Page > 1,
		},
		Filters: filters,
	})
}

// GetBook handles GET /api/books/{id}. The id is a document id or a title.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Book not found")
		return
	}

	book, err := h.store.FindOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, sink.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Book not found")
			return
		}
		slog.Error("get book", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Data: newBookView(book)})
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func parseListQuery(values url.Values) (sink.BookQuery, Filters, error) {
	q := sink.BookQuery{Page: 1, Limit: defaultLimit}
	var filters Filters

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, filters, fmt.Errorf("page must be a positive integer")
		}
		q.Page = page
	}
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return q, filters, fmt.Errorf("limit must be a positive integer")
		}
		q.Limit = min(limit, maxLimit)
	}
	if v := values.Get("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil || rating < 1 || rating > 5 {
			return q, filters, fmt.Errorf("rating must be between 1 and 5")
		}
		q.Rating = rating
		filters.Rating = &rating
	}
	if v := values.Get("minPrice"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, filters, fmt.Errorf("minPrice must be a number")
		}
		q.MinPrice = &price
		filters.MinPrice = &price
	}
	if v := values.Get("maxPrice"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, filters, fmt.Errorf("maxPrice must be a number")
		}
		q.MaxPrice = &price
		filters.MaxPrice = &price
	}
	if values.Has("inStock") {
		inStock := strings.EqualFold(values.Get("inStock"), "true")
		q.InStock = &inStock
		filters.InStock = &inStock
	}
	if v := strings.TrimSpace(values.Get("search")); v != "" {
		q.Search = v
		filters.Search = &v
	}

	return q, filters, nil
}
