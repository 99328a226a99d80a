// Package search keeps a derived semantic index aligned with the listing
// table. The record store is authoritative; the index is a rebuildable cache.
// Upsert is the cheap per-mutation path, Rebuild is the expensive recovery
// path that also re-fits the vocabulary.
package search

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mansoora/rehaish/internal/models"
)

// ErrNotReady is returned by Upsert before the first successful Rebuild has
// fitted a vocabulary. The caller treats it as a sync divergence to be healed
// by the next rebuild, never as a failure of the triggering store mutation.
var ErrNotReady = errors.New("index not ready: no rebuild has run yet")

// Match is one query result: a listing id with its similarity score.
type Match struct {
	Score float64 `json:"score"`
	ID    int     `json:"id"`
}

// Synchronizer is the contract between the listing service and the semantic
// index. After every synchronization point the index's id set must cover the
// store's id set; transient stale entries are tolerated, missing entries for
// stored ids are the bug class this layer exists to prevent.
type Synchronizer interface {
	// Upsert adds or replaces the single entry keyed by listing.ID.
	Upsert(listing models.Listing) error

	// Rebuild discards the entire index and recomputes it from a full scan
	// of the record store. Self-healing for any earlier upsert failure.
	Rebuild(listings []models.Listing) error

	// Query returns up to k nearest entries by similarity, descending.
	// Ties are broken by insertion order, earliest first.
	Query(text string, k int) ([]Match, error)

	// Len reports the number of indexed entries.
	Len() int

	// LastSynced reports when the entry for id last synchronized with the
	// store, and whether it is indexed at all.
	LastSynced(id int) (time.Time, bool)
}

type entry struct {
	vector []float64
	id     int
	seq    int
}

// Index is an in-memory vector index over listing descriptions using
// brute-force cosine similarity. Safe for concurrent reads and writes.
type Index struct {
	now      func() time.Time
	embedder *Embedder
	entries  map[int]*entry
	synced   map[int]time.Time
	nextSeq  int
	mu       sync.RWMutex
}

// NewIndex creates an empty, unfitted index. It serves no queries until the
// first Rebuild supplies a corpus.
func NewIndex() *Index {
	return &Index{
		now:      time.Now,
		embedder: NewEmbedder(),
		entries:  make(map[int]*entry),
		synced:   make(map[int]time.Time),
	}
}

// Upsert embeds listing.Text against the current vocabulary and inserts or
// replaces the entry keyed by listing.ID. A replaced entry keeps its original
// insertion order, so tie-breaking stays stable across status flips.
func (ix *Index) Upsert(listing models.Listing) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.embedder.Fitted() {
		return ErrNotReady
	}
	vec, err := ix.embedder.Embed(listing.Text)
	if err != nil {
		return fmt.Errorf("failed to embed listing %d: %w", listing.ID, err)
	}

	if existing, ok := ix.entries[listing.ID]; ok {
		existing.vector = vec
	} else {
		ix.entries[listing.ID] = &entry{id: listing.ID, vector: vec, seq: ix.nextSeq}
		ix.nextSeq++
	}
	ix.synced[listing.ID] = ix.now()
	return nil
}

// Rebuild re-fits the vocabulary on every listing's text, re-embeds all of
// them and swaps the entry set wholesale. An empty store resets the index to
// its initial unfitted state.
func (ix *Index) Rebuild(listings []models.Listing) error {
	embedder := NewEmbedder()
	entries := make(map[int]*entry, len(listings))
	synced := make(map[int]time.Time, len(listings))

	if len(listings) > 0 {
		corpus := make([]string, len(listings))
		for i, l := range listings {
			corpus[i] = l.Text
		}
		if err := embedder.Fit(corpus); err != nil {
			return fmt.Errorf("failed to fit vocabulary over %d listings: %w", len(listings), err)
		}
	}

	now := ix.now()
	for i, l := range listings {
		vec, err := embedder.Embed(l.Text)
		if err != nil {
			return fmt.Errorf("failed to embed listing %d: %w", l.ID, err)
		}
		entries[l.ID] = &entry{id: l.ID, vector: vec, seq: i}
		synced[l.ID] = now
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.embedder = embedder
	ix.entries = entries
	ix.synced = synced
	ix.nextSeq = len(listings)
	return nil
}

// Query embeds the text and returns up to k matches by descending cosine
// similarity. Deterministic: equal scores rank by insertion order.
func (ix *Index) Query(text string, k int) ([]Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 {
		k = 5
	}
	if !ix.embedder.Fitted() || len(ix.entries) == 0 {
		return []Match{}, nil
	}

	vec, err := ix.embedder.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored := make([]*entry, 0, len(ix.entries))
	scores := make(map[int]float64, len(ix.entries))
	for _, e := range ix.entries {
		scored = append(scored, e)
		scores[e.id] = dot(e.vector, vec)
	}
	sort.Slice(scored, func(i, j int) bool {
		si, sj := scores[scored[i].id], scores[scored[j].id]
		if si != sj {
			return si > sj
		}
		return scored[i].seq < scored[j].seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	matches := make([]Match, 0, k)
	for _, e := range scored[:k] {
		matches = append(matches, Match{ID: e.id, Score: scores[e.id]})
	}
	return matches, nil
}

// Len reports the number of indexed entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// LastSynced reports the last successful synchronization time for a listing id.
func (ix *Index) LastSynced(id int) (time.Time, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ts, ok := ix.synced[id]
	return ts, ok
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
