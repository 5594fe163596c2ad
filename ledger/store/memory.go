// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu             sync.RWMutex
	documents      map[ledger.DocumentID]ledger.Document
	counterparties map[ledger.CounterpartyID]ledger.Counterparty
}

func NewMemory() *Memory {
	return &Memory{
		documents:      make(map[ledger.DocumentID]ledger.Document),
		counterparties: make(map[ledger.CounterpartyID]ledger.Counterparty),
	}
}

// LoadDocuments returns all documents, most recent first.
func (m *Memory) LoadDocuments(_ context.Context) ([]ledger.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Document, 0, len(m.documents))
	for _, d := range m.documents {
		out = append(out, *d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].DocumentNumber > out[j].DocumentNumber
	})
	return out, nil
}

// SaveDocument inserts or replaces by id.
func (m *Memory) SaveDocument(_ context.Context, doc ledger.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = *doc.Clone()
	return nil
}

// DeleteDocument removes by id. Absent ids are a no-op.
func (m *Memory) DeleteDocument(_ context.Context, id ledger.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

func (m *Memory) LoadCounterparties(_ context.Context) ([]ledger.Counterparty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Counterparty, 0, len(m.counterparties))
	for _, cp := range m.counterparties {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveCounterparty(_ context.Context, cp ledger.Counterparty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counterparties[cp.ID] = cp
	return nil
}
