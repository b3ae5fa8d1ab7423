// Package document provides the parsed-tree store: open documents with their
// source text and tree-sitter trees, cached under a TTL with size caps, plus
// an afs-backed loader for documents not opened explicitly.
package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minio/highwayhash"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

func contentHash(data []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err = h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Config bounds the store. Zero values take the defaults.
type Config struct {
	TTL          time.Duration
	MaxDocuments int
	MaxTrees     int
}

const (
	defaultTTL          = 5 * time.Minute
	defaultMaxDocuments = 50
	defaultMaxTrees     = 20
)

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.MaxDocuments <= 0 {
		c.MaxDocuments = defaultMaxDocuments
	}
	if c.MaxTrees <= 0 {
		c.MaxTrees = defaultMaxTrees
	}
	return c
}

// ParseInfo describes how the tree for one request was obtained.
type ParseInfo struct {
	URI      string        `json:"uri"`
	Duration time.Duration `json:"durationNs"`
	CacheHit bool          `json:"cacheHit"`
}

type docEntry struct {
	text    []byte
	hash    uint64
	touched time.Time
}

type treeEntry struct {
	tree    *sitter.Tree
	hash    uint64
	touched time.Time
}

// Store holds open documents and their parse trees. All methods are safe for
// concurrent use; the single parser is serialized behind the store lock.
type Store struct {
	mu     sync.Mutex
	cfg    Config
	parser *sitter.Parser
	docs   map[string]*docEntry
	trees  map[string]*treeEntry
	now    func() time.Time
}

// New builds a store with cfg, filling defaults for zero fields.
func New(cfg Config) *Store {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	return &Store{
		cfg:    cfg.withDefaults(),
		parser: parser,
		docs:   make(map[string]*docEntry),
		trees:  make(map[string]*treeEntry),
		now:    time.Now,
	}
}

// Open registers or replaces the text of uri.
func (s *Store) Open(uri string, text []byte) error {
	hash, err := contentHash(text)
	if err != nil {
		return fmt.Errorf("hash %v: %w", uri, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = &docEntry{text: text, hash: hash, touched: s.now()}
	s.evictLocked()
	return nil
}

// Update is Open under its editing name.
func (s *Store) Update(uri string, text []byte) error {
	return s.Open(uri, text)
}

// Close drops uri and its tree.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
	delete(s.trees, uri)
}

// Source returns the current text of uri and refreshes its timestamp.
func (s *Store) Source(uri string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.docs[uri]
	if !ok {
		return nil, false
	}
	entry.touched = s.now()
	return entry.text, true
}

// Tree returns the parse tree for uri, reusing the cached tree when the
// document content is unchanged since the last parse. On content change the
// previous tree seeds an incremental reparse.
func (s *Store) Tree(ctx context.Context, uri string) (*sitter.Tree, []byte, ParseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return nil, nil, ParseInfo{}, fmt.Errorf("document not open: %v", uri)
	}
	doc.touched = s.now()

	info := ParseInfo{URI: uri}
	if cached, ok := s.trees[uri]; ok && cached.hash == doc.hash {
		cached.touched = s.now()
		info.CacheHit = true
		return cached.tree, doc.text, info, nil
	}

	var previous *sitter.Tree
	if cached, ok := s.trees[uri]; ok {
		previous = cached.tree
	}
	started := s.now()
	tree, err := s.parser.ParseCtx(ctx, previous, doc.text)
	if err != nil {
		return nil, nil, info, fmt.Errorf("parse %v: %w", uri, err)
	}
	info.Duration = s.now().Sub(started)
	s.trees[uri] = &treeEntry{tree: tree, hash: doc.hash, touched: s.now()}
	s.evictLocked()
	return tree, doc.text, info, nil
}

// evictLocked prunes expired entries, then removes oldest-first beyond the
// caps. Caller holds the lock.
func (s *Store) evictLocked() {
	cutoff := s.now().Add(-s.cfg.TTL)
	for uri, entry := range s.docs {
		if entry.touched.Before(cutoff) {
			delete(s.docs, uri)
			delete(s.trees, uri)
		}
	}
	for uri, entry := range s.trees {
		if entry.touched.Before(cutoff) {
			delete(s.trees, uri)
		}
	}
	for len(s.docs) > s.cfg.MaxDocuments {
		uri := oldestDoc(s.docs)
		delete(s.docs, uri)
		delete(s.trees, uri)
	}
	for len(s.trees) > s.cfg.MaxTrees {
		delete(s.trees, oldestTree(s.trees))
	}
}

func oldestDoc(entries map[string]*docEntry) string {
	var uri string
	var when time.Time
	for key, entry := range entries {
		if uri == "" || entry.touched.Before(when) {
			uri = key
			when = entry.touched
		}
	}
	return uri
}

func oldestTree(entries map[string]*treeEntry) string {
	var uri string
	var when time.Time
	for key, entry := range entries {
		if uri == "" || entry.touched.Before(when) {
			uri = key
			when = entry.touched
		}
	}
	return uri
}
