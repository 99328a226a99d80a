package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/mansoora/rehaish/internal/models"
)

// ErrRowNotFound is returned by mutations that reference a listing id with no
// matching row in the table.
var ErrRowNotFound = errors.New("row not found")

// listingColumns is the persisted schema of the listings table. Order matters
// for compatibility with the legacy data files (price precedes bathrooms).
var listingColumns = []string{
	"id", "city", "area", "size_marla", "stories", "bedrooms",
	"price", "bathrooms", "electricity", "gas", "location", "status", "text",
}

// NewListing carries the caller-supplied fields of a listing to be appended.
// Id, status defaulting and the derived description are owned by the store.
type NewListing struct {
	City        string
	Area        string
	Electricity string
	Gas         string
	Location    string
	Status      models.Status
	SizeMarla   float64
	Stories     int
	Bedrooms    int
	Bathrooms   int
	Price       int
}

// ListingRepository defines the interface for listing data access operations.
// The backing store is a single CSV file rewritten in full on every mutation.
type ListingRepository interface {
	// Append allocates the next id (row count + 1), derives the canonical
	// description text and persists the full table.
	Append(ctx context.Context, input NewListing) (models.Listing, error)

	// UpdateStatus changes the status of the listing with the given id and
	// re-derives its description text in place.
	// Returns ErrRowNotFound if no row matches the id.
	UpdateStatus(ctx context.Context, id int, status models.Status) (models.Listing, error)

	// GetAll returns every listing in insertion order.
	GetAll(ctx context.Context) ([]models.Listing, error)

	// GetByID returns nil, nil when no listing matches (not an error).
	GetByID(ctx context.Context, id int) (*models.Listing, error)
}

// csvListingRepository is the concrete CSV-file-backed implementation.
// The mutex is held across the whole read-allocate-mutate-rewrite cycle, so
// concurrent appends can never observe a stale row count and allocate
// duplicate ids.
type csvListingRepository struct {
	path string
	mu   sync.Mutex
}

// NewListingRepository creates a ListingRepository backed by the CSV file at path.
func NewListingRepository(path string) ListingRepository {
	return &csvListingRepository{path: path}
}

func (r *csvListingRepository) Append(ctx context.Context, input NewListing) (models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listings, err := r.loadLocked()
	if err != nil {
		return models.Listing{}, err
	}

	status := input.Status
	if status == "" {
		status = models.StatusAvailable
	}

	listing := models.Listing{
		ID:          len(listings) + 1,
		City:        input.City,
		Area:        input.Area,
		SizeMarla:   input.SizeMarla,
		Stories:     input.Stories,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Price:       input.Price,
		Electricity: input.Electricity,
		Gas:         input.Gas,
		Location:    input.Location,
		Status:      status,
	}
	listing.Text = models.Describe(listing)

	listings = append(listings, listing)
	if err := r.persistLocked(listings); err != nil {
		return models.Listing{}, err
	}
	return listing, nil
}

func (r *csvListingRepository) UpdateStatus(ctx context.Context, id int, status models.Status) (models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listings, err := r.loadLocked()
	if err != nil {
		return models.Listing{}, err
	}

	pos := -1
	for i := range listings {
		if listings[i].ID == id {
			pos = i
			break
		}
	}
	if pos == -1 {
		return models.Listing{}, fmt.Errorf("listing %d: %w", id, ErrRowNotFound)
	}

	listings[pos].Status = status
	listings[pos].Text = models.Describe(listings[pos])

	if err := r.persistLocked(listings); err != nil {
		return models.Listing{}, err
	}
	return listings[pos], nil
}

func (r *csvListingRepository) GetAll(ctx context.Context) ([]models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listings, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}

func (r *csvListingRepository) GetByID(ctx context.Context, id int) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listings, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	for i := range listings {
		if listings[i].ID == id {
			return &listings[i], nil
		}
	}
	return nil, nil
}

// loadLocked reads and parses the whole table. Callers must hold the mutex.
func (r *csvListingRepository) loadLocked() ([]models.Listing, error) {
	header, rows, err := readTable(r.path)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	idx := columnIndex(header)
	listings := make([]models.Listing, 0, len(rows))
	for i, row := range rows {
		listing, err := parseListingRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("listings table %s row %d: %w", r.path, i+1, err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// persistLocked rewrites the whole table atomically. Callers must hold the mutex.
func (r *csvListingRepository) persistLocked(listings []models.Listing) error {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			strconv.Itoa(l.ID),
			l.City,
			l.Area,
			strconv.FormatFloat(l.SizeMarla, 'f', -1, 64),
			strconv.Itoa(l.Stories),
			strconv.Itoa(l.Bedrooms),
			strconv.Itoa(l.Price),
			strconv.Itoa(l.Bathrooms),
			l.Electricity,
			l.Gas,
			l.Location,
			string(l.Status),
			l.Text,
		})
	}
	return writeTableAtomic(r.path, listingColumns, rows)
}

// parseListingRow converts a persisted row into a Listing. Tables written by
// older versions may lack the status column; such rows load as available
// (additive schema evolution) and their text is re-derived when absent.
func parseListingRow(row []string, idx map[string]int) (models.Listing, error) {
	id, err := strconv.Atoi(field(row, idx, "id"))
	if err != nil {
		return models.Listing{}, fmt.Errorf("invalid id: %w", err)
	}
	size, err := strconv.ParseFloat(field(row, idx, "size_marla"), 64)
	if err != nil {
		return models.Listing{}, fmt.Errorf("invalid size_marla: %w", err)
	}
	stories, err := strconv.Atoi(field(row, idx, "stories"))
	if err != nil {
		return models.Listing{}, fmt.Errorf("invalid stories: %w", err)
	}
	bedrooms, err := strconv.Atoi(field(row, idx, "bedrooms"))
	if err != nil {
		return models.Listing{}, fmt.Errorf("invalid bedrooms: %w", err)
	}
	price, err := strconv.Atoi(field(row, idx, "price"))
	if err != nil {
		return models.Listing{}, fmt.Errorf("invalid price: %w", err)
	}
	bathrooms, err := strconv.Atoi(field(row, idx, "bathrooms"))
	if err != nil {
		return models.Listing{}, fmt.Errorf("invalid bathrooms: %w", err)
	}

	status := models.Status(field(row, idx, "status"))
	if status == "" {
		status = models.StatusAvailable
	}

	listing := models.Listing{
		ID:          id,
		City:        field(row, idx, "city"),
		Area:        field(row, idx, "area"),
		SizeMarla:   size,
		Stories:     stories,
		Bedrooms:    bedrooms,
		Bathrooms:   bathrooms,
		Price:       price,
		Electricity: field(row, idx, "electricity"),
		Gas:         field(row, idx, "gas"),
		Location:    field(row, idx, "location"),
		Status:      status,
		Text:        field(row, idx, "text"),
	}
	if listing.Text == "" {
		listing.Text = models.Describe(listing)
	}
	return listing, nil
}
