package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mansoora/rehaish/internal/logger"
	"github.com/mansoora/rehaish/internal/models"
	"github.com/mansoora/rehaish/internal/repository"
	"github.com/mansoora/rehaish/internal/search"
)

// Minimum trimmed length for the city and area fields.
const minPlaceNameLen = 2

// Service-level errors
var (
	ErrInvalidListing  = errors.New("invalid listing")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrListingNotFound = errors.New("listing not found")
)

// UploadListingInput carries the validated fields of a new listing.
type UploadListingInput struct {
	City        string
	Area        string
	Electricity string
	Gas         string
	Location    string
	SizeMarla   float64
	Stories     int
	Bedrooms    int
	Bathrooms   int
	Price       int
}

// ListingService defines the interface for listing business logic operations.
type ListingService interface {
	// Upload validates and appends a new listing, then updates the search
	// index best-effort. An index failure never fails the upload.
	Upload(ctx context.Context, input UploadListingInput) (models.Listing, error)

	// UpdateStatus changes a listing's rental status and re-derives its
	// description, then rebuilds the search index best-effort.
	// Returns ErrInvalidStatus before any mutation if raw is not a valid
	// status, and ErrListingNotFound if the id has no row.
	UpdateStatus(ctx context.Context, id int, raw string) (models.Listing, error)

	// List returns all listings in insertion order.
	List(ctx context.Context) ([]models.Listing, error)

	// Get returns ErrListingNotFound if the id has no row.
	Get(ctx context.Context, id int) (*models.Listing, error)

	// RebuildIndex recomputes the search index from a full table scan.
	// Run at startup and whenever divergence needs healing.
	RebuildIndex(ctx context.Context) error
}

// listingService is the concrete implementation of ListingService.
//
// Index synchronization policy: uploads are frequent and cheap to index, so
// they use a single-entry upsert against the current vocabulary. Status
// changes are rare and rewrite the derived description, so they trigger the
// full rebuild, which also re-fits the vocabulary and heals any divergence
// left by earlier failed upserts. The store is always written first; the
// index is derived state and its failures are logged warnings, not errors.
type listingService struct {
	repo  repository.ListingRepository
	index search.Synchronizer
	log   *logger.Logger
}

// NewListingService creates a new instance of ListingService.
func NewListingService(repo repository.ListingRepository, index search.Synchronizer, log *logger.Logger) ListingService {
	return &listingService{
		repo:  repo,
		index: index,
		log:   log,
	}
}

func (s *listingService) Upload(ctx context.Context, input UploadListingInput) (models.Listing, error) {
	if err := validateUpload(input); err != nil {
		s.log.Warn("Rejected listing upload", map[string]interface{}{
			"reason": err.Error(),
			"city":   input.City,
			"area":   input.Area,
		})
		return models.Listing{}, err
	}

	listing, err := s.repo.Append(ctx, repository.NewListing{
		City:        strings.TrimSpace(input.City),
		Area:        strings.TrimSpace(input.Area),
		SizeMarla:   input.SizeMarla,
		Stories:     input.Stories,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Price:       input.Price,
		Electricity: input.Electricity,
		Gas:         input.Gas,
		Location:    input.Location,
	})
	if err != nil {
		s.log.Error("Failed to append listing", err, map[string]interface{}{
			"city": input.City,
			"area": input.Area,
		})
		return models.Listing{}, fmt.Errorf("failed to append listing: %w", err)
	}

	s.log.Info("Listing appended", map[string]interface{}{
		"listing_id": listing.ID,
		"city":       listing.City,
		"area":       listing.Area,
		"price":      listing.Price,
	})

	// The store mutation is committed; an index failure only opens a
	// divergence window that the next rebuild closes.
	if err := s.index.Upsert(listing); err != nil {
		s.log.Warn("Search index update failed after upload", map[string]interface{}{
			"listing_id": listing.ID,
			"error":      err.Error(),
		})
	}

	return listing, nil
}

func (s *listingService) UpdateStatus(ctx context.Context, id int, raw string) (models.Listing, error) {
	status, err := models.ParseStatus(raw)
	if err != nil {
		s.log.Warn("Rejected status update", map[string]interface{}{
			"listing_id": id,
			"status":     raw,
		})
		return models.Listing{}, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	listing, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrRowNotFound) {
			return models.Listing{}, ErrListingNotFound
		}
		s.log.Error("Failed to update listing status", err, map[string]interface{}{
			"listing_id": id,
			"status":     raw,
		})
		return models.Listing{}, fmt.Errorf("failed to update listing status: %w", err)
	}

	s.log.Info("Listing status updated", map[string]interface{}{
		"listing_id": listing.ID,
		"status":     listing.Status,
	})

	if err := s.rebuildFromStore(ctx); err != nil {
		s.log.Warn("Search index rebuild failed after status update", map[string]interface{}{
			"listing_id": listing.ID,
			"error":      err.Error(),
		})
	}

	return listing, nil
}

func (s *listingService) List(ctx context.Context) ([]models.Listing, error) {
	listings, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Error("Failed to scan listings", err, nil)
		return nil, fmt.Errorf("failed to scan listings: %w", err)
	}
	return listings, nil
}

func (s *listingService) Get(ctx context.Context, id int) (*models.Listing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to look up listing", err, map[string]interface{}{
			"listing_id": id,
		})
		return nil, fmt.Errorf("failed to look up listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

func (s *listingService) RebuildIndex(ctx context.Context) error {
	if err := s.rebuildFromStore(ctx); err != nil {
		return err
	}
	s.log.Info("Search index rebuilt", map[string]interface{}{
		"entries": s.index.Len(),
	})
	return nil
}

func (s *listingService) rebuildFromStore(ctx context.Context) error {
	listings, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan listings for rebuild: %w", err)
	}
	if err := s.index.Rebuild(listings); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	return nil
}

// validateUpload mirrors the boundary checks so the store can never be
// reached with malformed fields, whatever the transport.
func validateUpload(input UploadListingInput) error {
	if len(strings.TrimSpace(input.City)) < minPlaceNameLen {
		return fmt.Errorf("%w: city must be at least %d characters", ErrInvalidListing, minPlaceNameLen)
	}
	if len(strings.TrimSpace(input.Area)) < minPlaceNameLen {
		return fmt.Errorf("%w: area must be at least %d characters", ErrInvalidListing, minPlaceNameLen)
	}
	if input.SizeMarla <= 0 {
		return fmt.Errorf("%w: size_marla must be positive", ErrInvalidListing)
	}
	if input.Stories <= 0 {
		return fmt.Errorf("%w: stories must be positive", ErrInvalidListing)
	}
	if input.Bedrooms <= 0 {
		return fmt.Errorf("%w: bedrooms must be positive", ErrInvalidListing)
	}
	if input.Bathrooms <= 0 {
		return fmt.Errorf("%w: bathrooms must be positive", ErrInvalidListing)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidListing)
	}
	if input.Electricity == "" || input.Gas == "" {
		return fmt.Errorf("%w: electricity and gas are required", ErrInvalidListing)
	}
	if strings.TrimSpace(input.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidListing)
	}
	return nil
}
