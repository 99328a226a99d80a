package search

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// ErrNotFitted is returned when embedding is attempted before any corpus fit.
var ErrNotFitted = errors.New("embedder has no fitted vocabulary")

// Embedder converts listing description text into L2-normalized TF-IDF
// vectors. The vocabulary is built once per Fit; terms outside it are ignored
// at embed time, which is what makes single-entry upserts cheap and full
// rebuilds the self-healing path.
type Embedder struct {
	vocabulary   map[string]int
	stopwords    map[string]struct{}
	tokenPattern *regexp.Regexp
	idf          []float64
	fitted       bool
}

// NewEmbedder creates an unfitted TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
		stopwords:    defaultStopwords(),
	}
}

// Fitted reports whether the embedder has a usable vocabulary.
func (e *Embedder) Fitted() bool { return e.fitted }

// Dimension returns the size of the fitted vocabulary.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Fit builds the vocabulary and smoothed IDF weights from the corpus.
func (e *Embedder) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus")
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}

	// Stable term ordering so identical corpora always produce identical vectors.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.fitted = true
	return nil
}

// Embed computes the normalized TF-IDF vector for the given text.
// Terms outside the fitted vocabulary contribute nothing; a text with no
// known terms embeds to the zero vector.
func (e *Embedder) Embed(text string) ([]float64, error) {
	if !e.fitted {
		return nil, fmt.Errorf("cannot embed %d bytes of text: %w", len(text), ErrNotFitted)
	}

	vec := make([]float64, len(e.idf))
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}

	// L2 normalize so cosine similarity reduces to a dot product.
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, isStop := e.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "in", "on", "at", "of", "to", "for",
		"with", "near", "is", "are", "it", "this", "that", "from", "by", "as",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
