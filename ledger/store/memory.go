// Package store provides an in-memory ledger.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/partsdesk/shop-engine/ledger"
)

// =============================================================================
// MEMORY STORE - Copy-on-write atomic units
// =============================================================================

// Memory implements ledger.Store entirely in memory. WithTx clones the
// state, runs the callback against the clone, and swaps it in on success -
// an error leaves the original state untouched, which gives the same
// all-or-nothing guarantee as a database transaction.
type Memory struct {
	mu    sync.RWMutex
	state memState
}

type memState struct {
	products map[string]ledger.Product
	records  map[string]ledger.Record // record rows; lines kept separately
	lines    map[string][]ledger.LineItem
}

func NewMemory() *Memory {
	return &Memory{state: memState{
		products: make(map[string]ledger.Product),
		records:  make(map[string]ledger.Record),
		lines:    make(map[string][]ledger.LineItem),
	}}
}

func (s memState) clone() memState {
	next := memState{
		products: make(map[string]ledger.Product, len(s.products)),
		records:  make(map[string]ledger.Record, len(s.records)),
		lines:    make(map[string][]ledger.LineItem, len(s.lines)),
	}
	for id, p := range s.products {
		next.products[id] = p
	}
	for id, r := range s.records {
		next.records[id] = r
	}
	for id, ls := range s.lines {
		cp := make([]ledger.LineItem, len(ls))
		copy(cp, ls)
		next.lines[id] = cp
	}
	return next
}

func (s memState) recordWithLines(id string) *ledger.Record {
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	rec.Lines = make([]ledger.LineItem, len(s.lines[id]))
	copy(rec.Lines, s.lines[id])
	return &rec
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// WithTx runs fn against a scratch copy of the state and commits it only
// when fn succeeds.
func (m *Memory) WithTx(_ context.Context, fn func(tx ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scratch := m.state.clone()
	if err := fn(&memTx{state: &scratch}); err != nil {
		return err
	}
	m.state = scratch
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id string) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.state.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (*ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.recordWithLines(id), nil
}

func (m *Memory) ListRecords(_ context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []ledger.Record
	for id, rec := range m.state.records {
		if rec.Kind != kind {
			continue
		}
		records = append(records, *m.state.recordWithLines(id))
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// =============================================================================
// TEST SEEDING
// =============================================================================

// SaveProduct inserts or replaces a product. Test seeding only; stock
// mutations in live flows go through the Tx stock operations.
func (m *Memory) SaveProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
	return nil
}

// DeleteProduct removes a product. Records referencing it keep their
// snapshots.
func (m *Memory) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.products, id)
	return nil
}

// =============================================================================
// TX HANDLE
// =============================================================================

type memTx struct {
	state *memState
}

func (t *memTx) GetProduct(_ context.Context, id string) (*ledger.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) GetRecord(_ context.Context, id string) (*ledger.Record, error) {
	return t.state.recordWithLines(id), nil
}

func (t *memTx) InsertRecord(_ context.Context, rec ledger.Record) error {
	rec.Lines = nil
	t.state.records[rec.ID] = rec
	return nil
}

func (t *memTx) UpdateRecord(_ context.Context, rec ledger.Record) error {
	if _, ok := t.state.records[rec.ID]; !ok {
		return ledger.ErrRecordNotFound
	}
	rec.Lines = nil
	t.state.records[rec.ID] = rec
	return nil
}

func (t *memTx) DeleteRecord(_ context.Context, id string) error {
	delete(t.state.records, id)
	return nil
}

func (t *memTx) InsertLines(_ context.Context, recordID string, lines []ledger.LineItem) error {
	t.state.lines[recordID] = append(t.state.lines[recordID], lines...)
	return nil
}

func (t *memTx) DeleteLines(_ context.Context, recordID string) error {
	delete(t.state.lines, recordID)
	return nil
}

func (t *memTx) IncrementStock(_ context.Context, productID string, qty int) error {
	p, ok := t.state.products[productID]
	if !ok {
		return &ledger.ProductNotFoundError{ProductID: productID}
	}
	p.StockQuantity += qty
	t.state.products[productID] = p
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, productID string, qty int) error {
	p, ok := t.state.products[productID]
	if !ok {
		return &ledger.ProductNotFoundError{ProductID: productID}
	}
	if p.StockQuantity < qty {
		return &ledger.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.PartName,
			Available:   p.StockQuantity,
			Requested:   qty,
		}
	}
	p.StockQuantity -= qty
	t.state.products[productID] = p
	return nil
}
