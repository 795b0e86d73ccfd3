package library

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// CatalogStore owns book records and their lifecycle status. It holds the
// full collection in memory and snapshots it to its storage slot after every
// mutation.
type CatalogStore struct {
	storage Storage
	logger  *log.Logger
	clock   Clock
	rand    RandSource
	books   []*BookRecord
}

// NewCatalogStore restores the catalog snapshot and returns the store.
func NewCatalogStore(storage Storage, logger *log.Logger, clock Clock, rnd RandSource) (*CatalogStore, error) {
	books, err := restoreSlot[[]*BookRecord](storage, logger, slotBooks)
	if err != nil {
		return nil, fmt.Errorf("restore catalog: %w", err)
	}
	return &CatalogStore{storage: storage, logger: logger, clock: clock, rand: rnd, books: books}, nil
}

func (c *CatalogStore) persist() error {
	return persistSlot(c.storage, slotBooks, c.books)
}

// GenerateCollectionID produces a new catalog identifier.
func (c *CatalogStore) GenerateCollectionID() string {
	return collectionID(c.clock, c.rand)
}

// BookData is the caller-supplied portion of a new book record.
type BookData struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Location  string `json:"location"`
}

// AddBook registers a new copy. There is no duplicate check on ISBN: every
// call intakes a distinct physical copy with its own collection id.
func (c *CatalogStore) AddBook(data BookData) AddBookResult {
	now := c.clock.Now()
	record := &BookRecord{
		CollectionID: c.GenerateCollectionID(),
		ISBN:         data.ISBN,
		Title:        data.Title,
		Author:       data.Author,
		Publisher:    data.Publisher,
		Location:     data.Location,
		Status:       BookAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c.books = append(c.books, record)

	if err := c.persist(); err != nil {
		return AddBookResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}
	return AddBookResult{Result: success("book added to catalog"), CollectionID: record.CollectionID}
}

// BookFilter narrows a catalog query. Blank fields are ignored; provided
// fields all apply (logical AND) as case-insensitive substring matches.
type BookFilter struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

// QueryBooks returns every book matching the filter.
func (c *CatalogStore) QueryBooks(filter BookFilter) []*BookRecord {
	isbn := strings.ToLower(strings.TrimSpace(filter.ISBN))
	title := strings.ToLower(strings.TrimSpace(filter.Title))

	var results []*BookRecord
	for _, b := range c.books {
		if isbn != "" && !strings.Contains(strings.ToLower(b.ISBN), isbn) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			continue
		}
		results = append(results, b)
	}
	return results
}

// GetByCollectionID fetches a single book.
func (c *CatalogStore) GetByCollectionID(id string) (*BookRecord, bool) {
	for _, b := range c.books {
		if b.CollectionID == id {
			return b, true
		}
	}
	return nil, false
}

// Books returns the full collection in intake order.
func (c *CatalogStore) Books() []*BookRecord { return c.books }

// applyStatus mutates a record without persisting. Callers batching several
// flips persist once afterwards.
func (c *CatalogStore) applyStatus(b *BookRecord, status BookStatus, operator string) {
	now := c.clock.Now()
	b.Status = status
	b.UpdatedAt = now
	b.StatusHistory = append(b.StatusHistory, StatusChange{Status: status, Operator: operator, Timestamp: now})
}

// UpdateStatus changes a book's status, appends a history entry, and
// persists the catalog.
func (c *CatalogStore) UpdateStatus(id string, status BookStatus, operator string) Result {
	book, ok := c.GetByCollectionID(id)
	if !ok {
		return failure("book not found")
	}
	c.applyStatus(book, status, operator)
	if err := c.persist(); err != nil {
		return failure(fmt.Sprintf("persistence failed: %v", err))
	}
	return success("status updated")
}
