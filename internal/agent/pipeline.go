// Package agent implements the natural-language query pipeline: structured
// filter extraction, semantic retrieval over the search index, filter
// narrowing and answer composition. The State struct is the invocation
// contract, so a remote agent can replace the local implementation without
// touching the boundary.
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mansoora/rehaish/internal/logger"
	"github.com/mansoora/rehaish/internal/models"
	"github.com/mansoora/rehaish/internal/repository"
	"github.com/mansoora/rehaish/internal/search"
)

// State is the shared request structure a pipeline run populates. The caller
// seeds Query (and optionally SemanticQuery); everything else starts empty
// and is filled stage by stage.
type State struct {
	ExtractedFilters map[string]string
	Query            string
	SemanticQuery    string
	Response         string
	FilteredMetadata []models.Listing
	Matches          []int
}

// Pipeline answers a free-text rental query by populating the State.
type Pipeline interface {
	Run(ctx context.Context, st *State) error
}

// LocalPipeline is the in-process implementation. It retrieves candidates
// through the search index read path and hydrates full rows from the record
// store, so its results are consistent with the store up to the index's
// divergence window.
type LocalPipeline struct {
	repo  repository.ListingRepository
	index search.Synchronizer
	log   *logger.Logger
	topK  int
}

// NewLocalPipeline creates a pipeline over the given store and index.
// topK bounds the retrieval width per query.
func NewLocalPipeline(repo repository.ListingRepository, index search.Synchronizer, log *logger.Logger, topK int) *LocalPipeline {
	if topK <= 0 {
		topK = 5
	}
	return &LocalPipeline{repo: repo, index: index, log: log, topK: topK}
}

var (
	bedroomsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|bedroom)`)
	maxPricePattern = regexp.MustCompile(`(?i)(?:under|below|within|less than|up to)\s*(?:rs\.?\s*|pkr\s*)?(\d+)`)
)

// Run executes the pipeline stages in order. Retrieval that finds nothing is
// answered apologetically, not reported as an error.
func (p *LocalPipeline) Run(ctx context.Context, st *State) error {
	if st.ExtractedFilters == nil {
		st.ExtractedFilters = make(map[string]string)
	}
	if st.SemanticQuery == "" {
		st.SemanticQuery = st.Query
	}

	listings, err := p.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan listings: %w", err)
	}

	p.extractFilters(st, listings)

	matches, err := p.index.Query(st.SemanticQuery, p.topK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	byID := make(map[int]models.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	st.FilteredMetadata = st.FilteredMetadata[:0]
	st.Matches = st.Matches[:0]
	for _, m := range matches {
		listing, ok := byID[m.ID]
		if !ok {
			// Stale index entry from a previous rebuild; skip it.
			p.log.Warn("Dropping orphaned index entry", map[string]interface{}{
				"listing_id": m.ID,
			})
			continue
		}
		if !p.passesFilters(st, listing) {
			continue
		}
		st.FilteredMetadata = append(st.FilteredMetadata, listing)
		st.Matches = append(st.Matches, listing.ID)
	}

	st.Response = composeResponse(st.FilteredMetadata)

	p.log.Info("Query answered", map[string]interface{}{
		"query":   st.Query,
		"filters": st.ExtractedFilters,
		"matches": len(st.Matches),
	})
	return nil
}

// extractFilters pulls structured constraints out of the free-text query:
// bedroom count, a price ceiling, and a city name matched against the
// distinct cities present in the store.
func (p *LocalPipeline) extractFilters(st *State, listings []models.Listing) {
	if m := bedroomsPattern.FindStringSubmatch(st.Query); m != nil {
		st.ExtractedFilters["bedrooms"] = m[1]
	}
	if m := maxPricePattern.FindStringSubmatch(st.Query); m != nil {
		st.ExtractedFilters["max_price"] = m[1]
	}

	lower := strings.ToLower(st.Query)
	seen := make(map[string]struct{})
	for _, l := range listings {
		city := strings.ToLower(l.City)
		if _, ok := seen[city]; ok || city == "" {
			continue
		}
		seen[city] = struct{}{}
		if strings.Contains(lower, city) {
			st.ExtractedFilters["city"] = l.City
			break
		}
	}
}

func (p *LocalPipeline) passesFilters(st *State, l models.Listing) bool {
	if city, ok := st.ExtractedFilters["city"]; ok && !strings.EqualFold(l.City, city) {
		return false
	}
	if raw, ok := st.ExtractedFilters["bedrooms"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && l.Bedrooms != n {
			return false
		}
	}
	if raw, ok := st.ExtractedFilters["max_price"]; ok {
		if limit, err := strconv.Atoi(raw); err == nil && l.Price > limit {
			return false
		}
	}
	// Rented listings are only shown when the query asks for them.
	if l.Status == models.StatusRented && !strings.Contains(strings.ToLower(st.Query), "rented") {
		return false
	}
	return true
}

// Maximum number of listings spelled out in the composed answer.
const maxSpokenMatches = 3

func composeResponse(listings []models.Listing) string {
	if len(listings) == 0 {
		return "Sorry, I couldn't find any listings matching your request. Try broadening your search."
	}

	var b strings.Builder
	if len(listings) == 1 {
		b.WriteString("I found 1 matching property.\n")
	} else {
		fmt.Fprintf(&b, "I found %d matching properties. Here are the top picks:\n", len(listings))
	}
	for i, l := range listings {
		if i == maxSpokenMatches {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, l.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
