// Package search provides a small, deterministic, concurrency-safe in-memory
// index over the client collection, used by the dashboard's client filter.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization: case folded and accent-insensitive, so
//     "lampara" finds "Lámpara"
//   - Immutable after construction (safe for concurrent use); the tracker
//     rebuilds it with every snapshot
//   - Deterministic scoring and sorting (stable order for ties)
//
// A document matches when every query token is a prefix of one of its
// tokens. Matches are ranked by Jaccard similarity between the query token
// set and the matched document tokens: score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// Result is a matching document ID with its similarity score.
type Result struct {
	ID    string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	Search(query string, k int) []Result
	Len() int
}

// Doc is one searchable record.
type Doc struct {
	ID     string
	Fields []string
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{}
}

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed documents.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	tokens map[string]struct{}
	order  int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs. Documents without tokens are skipped.
func NewIndex(docs []Doc, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		toks := tokenize(strings.Join(d.Fields, " "), cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, tokens: toks, order: len(out)})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

// ClientDocs turns clients into documents: contact fields plus every
// order's product, store and tracking number.
func ClientDocs(clients []domain.Client) []Doc {
	out := make([]Doc, 0, len(clients))
	for _, c := range clients {
		fields := []string{c.Name, c.Email, c.Phone, digitsOnly(c.Phone)}
		for _, o := range c.Orders {
			fields = append(fields, o.ProductDescription, o.Store, o.TrackingNumber)
		}
		out = append(out, Doc{ID: c.ID, Fields: fields})
	}
	return out
}

// Len returns the number of indexed documents.
func (i *index) Len() int { return len(i.docs) }

// Search returns up to k matching document IDs, best first. k <= 0 means
// all matches.
func (i *index) Search(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		id    string
		score float64
		order int
	}

	buf := make([]scored, 0, len(i.docs))
	for _, d := range i.docs {
		over, ok := prefixOverlap(qTokens, d.tokens)
		if !ok {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{id: d.id, score: float64(over) / union, order: d.order})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		return buf[a].order < buf[b].order
	})

	if k <= 0 || k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{ID: buf[n].id, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold case-folds s and strips combining marks. Casers and transformers
// are stateful, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// prefixOverlap counts query tokens that prefix some document token. ok is
// false unless every query token does.
func prefixOverlap(q, d map[string]struct{}) (int, bool) {
	n := 0
	for qt := range q {
		if _, exact := d[qt]; exact {
			n++
			continue
		}
		found := false
		for dt := range d {
			if strings.HasPrefix(dt, qt) {
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
		n++
	}
	return n, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
