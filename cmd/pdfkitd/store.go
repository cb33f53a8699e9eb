package main

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/mechiko/pdfkit/document"
)

// store holds documents uploaded this process's lifetime, keyed by an
// opaque id handed back from Upload. It never persists to disk: a restart
// loses every document, which is fine for the smoke-test/demo surface this
// daemon exists to provide.
type store struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
}

func newStore() *store {
	return &store{docs: make(map[string]*document.Document)}
}

func (s *store) put(d *document.Document) string {
	id := newID()
	s.mu.Lock()
	s.docs[id] = d
	s.mu.Unlock()
	return id
}

func (s *store) get(id string) (*document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	return d, ok
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
