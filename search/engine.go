// Package search provides the in-memory index over parsed documentation
// and the queries the syntax helper tools run against it.
package search

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/onecsuite/syntaxhelper/hbk"
)

// DefaultLimit is the result count used when a query does not set one.
const DefaultLimit = 10

// MaxLimit caps the result count regardless of what a query asks for.
const MaxLimit = 50

// Context filters a search to a part of the documentation.
type Context string

const (
	ContextAll    Context = "all"
	ContextGlobal Context = "global"
	ContextObject Context = "object"
)

// MemberType filters an object member listing.
type MemberType string

const (
	MembersAll        MemberType = "all"
	MembersMethods    MemberType = "methods"
	MembersProperties MemberType = "properties"
	MembersEvents     MemberType = "events"
)

// Options narrow a search.
type Options struct {
	Context Context
	Object  string
	Limit   int
}

// Result is one search hit with its relevance score.
type Result struct {
	Document hbk.Document `json:"document"`
	Score    float64      `json:"score"`
}

// Relevance weights. An exact name match must always outrank any number
// of body matches.
const (
	scoreExactName    = 100
	scorePrefixName   = 50
	scoreContainsName = 25
	scoreTitleToken   = 15
	scoreBodyToken    = 5
)

// Engine is the in-memory search index. Index replaces the whole dataset
// atomically; queries run against the snapshot current at call time.
type Engine struct {
	mu         sync.RWMutex
	docs       []hbk.Document
	byName     map[string][]int
	byObject   map[string][]int
	tokens     map[string][]int
	maxResults int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxResults overrides the hard cap on result counts.
func WithMaxResults(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxResults = n
		}
	}
}

// NewEngine creates an empty engine.
func NewEngine(options ...EngineOption) *Engine {
	e := &Engine{
		byName:     make(map[string][]int),
		byObject:   make(map[string][]int),
		tokens:     make(map[string][]int),
		maxResults: MaxLimit,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Index replaces the engine's dataset with the given documents.
func (e *Engine) Index(docs []hbk.Document) {
	byName := make(map[string][]int)
	byObject := make(map[string][]int)
	tokens := make(map[string][]int)

	for i, doc := range docs {
		name := strings.ToLower(doc.Name)
		byName[name] = append(byName[name], i)
		byObject[strings.ToLower(doc.Object)] = append(byObject[strings.ToLower(doc.Object)], i)

		seen := map[string]bool{}
		for _, tok := range tokenize(doc.Title + " " + doc.Description + " " + doc.Syntax) {
			if !seen[tok] {
				seen[tok] = true
				tokens[tok] = append(tokens[tok], i)
			}
		}
	}

	e.mu.Lock()
	e.docs = append([]hbk.Document(nil), docs...)
	e.byName = byName
	e.byObject = byObject
	e.tokens = tokens
	e.mu.Unlock()
}

// Count returns the number of indexed documents.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Ready reports whether the engine holds any documents.
func (e *Engine) Ready() bool {
	return e.Count() > 0
}

// Search runs a ranked query. Name matches dominate the score; token
// matches in the title and body break ties between similar names.
func (e *Engine) Search(query string, opts Options) []Result {
	limit := e.normalizeLimit(opts.Limit)
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}
	queryTokens := tokenize(queryLower)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []Result
	for _, doc := range e.docs {
		if !e.matchesContext(&doc, opts) {
			continue
		}

		score := scoreDocument(&doc, queryLower, queryTokens)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Document: doc, Score: score})
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Document.Name < results[b].Document.Name
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// FindElement returns the best match for an exact element name, optionally
// constrained to an object. With no object given, global elements win over
// object members of the same name.
func (e *Engine) FindElement(name, object string) (*hbk.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	indexes := e.byName[strings.ToLower(strings.TrimSpace(name))]
	if len(indexes) == 0 {
		return nil, false
	}

	var fallback *hbk.Document
	for _, i := range indexes {
		doc := e.docs[i]
		if object != "" {
			if strings.EqualFold(doc.Object, object) {
				return &doc, true
			}
			continue
		}
		if doc.Type.IsGlobal() {
			return &doc, true
		}
		if fallback == nil {
			d := doc
			fallback = &d
		}
	}

	if object == "" && fallback != nil {
		return fallback, true
	}
	return nil, false
}

// ListMembers returns the members of an object, filtered by member type.
func (e *Engine) ListMembers(object string, memberType MemberType, limit int) []hbk.Document {
	limit = e.normalizeLimit(limit)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var members []hbk.Document
	for _, i := range e.byObject[strings.ToLower(strings.TrimSpace(object))] {
		doc := e.docs[i]
		if !matchesMemberType(doc.Type, memberType) {
			continue
		}
		members = append(members, doc)
	}

	sort.Slice(members, func(a, b int) bool {
		return members[a].Name < members[b].Name
	})

	if len(members) > limit {
		members = members[:limit]
	}
	return members
}

// Objects returns the distinct object names present in the index.
func (e *Engine) Objects() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := map[string]bool{}
	var names []string
	for _, doc := range e.docs {
		if !seen[doc.Object] {
			seen[doc.Object] = true
			names = append(names, doc.Object)
		}
	}
	sort.Strings(names)
	return names
}

func (e *Engine) matchesContext(doc *hbk.Document, opts Options) bool {
	switch opts.Context {
	case ContextGlobal:
		return doc.Type.IsGlobal()
	case ContextObject:
		if doc.Type.IsGlobal() {
			return false
		}
		if opts.Object != "" {
			return strings.EqualFold(doc.Object, opts.Object)
		}
		return true
	}
	if opts.Object != "" {
		return strings.EqualFold(doc.Object, opts.Object)
	}
	return true
}

func scoreDocument(doc *hbk.Document, queryLower string, queryTokens []string) float64 {
	var score float64

	nameLower := strings.ToLower(doc.Name)
	titleLower := strings.ToLower(doc.Title)

	switch {
	case nameLower == queryLower || titleLower == queryLower:
		score += scoreExactName
	case strings.HasPrefix(nameLower, queryLower):
		score += scorePrefixName
	case strings.Contains(nameLower, queryLower) || strings.Contains(titleLower, queryLower):
		score += scoreContainsName
	}

	bodyLower := strings.ToLower(doc.Description + " " + doc.Syntax)
	for _, tok := range queryTokens {
		if strings.Contains(titleLower, tok) {
			score += scoreTitleToken
		} else if strings.Contains(bodyLower, tok) {
			score += scoreBodyToken
		}
	}

	return score
}

func matchesMemberType(docType hbk.DocType, memberType MemberType) bool {
	switch memberType {
	case MembersMethods:
		return docType == hbk.DocObjectMethod || docType == hbk.DocObjectConstructor || docType == hbk.DocGlobalMethod
	case MembersProperties:
		return docType == hbk.DocObjectProperty || docType == hbk.DocGlobalProperty
	case MembersEvents:
		return docType == hbk.DocObjectEvent || docType == hbk.DocGlobalEvent
	}
	return true
}

func (e *Engine) normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > e.maxResults {
		return e.maxResults
	}
	return limit
}

// tokenize lowercases and splits on everything that is not a letter or
// digit, keeping Cyrillic intact.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
