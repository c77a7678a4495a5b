package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vzt/cashflow-engine/forecast"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	flows    map[string]forecast.CustomFlow
	metadata map[string]forecast.ItemMetadata
}

func NewMemory() *Memory {
	return &Memory{
		flows:    make(map[string]forecast.CustomFlow),
		metadata: make(map[string]forecast.ItemMetadata),
	}
}

func (m *Memory) ListCustomFlows(_ context.Context) ([]forecast.CustomFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	flows := make([]forecast.CustomFlow, 0, len(m.flows))
	for _, f := range m.flows {
		flows = append(flows, f)
	}
	// Stable order for listing endpoints.
	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })
	return flows, nil
}

func (m *Memory) GetCustomFlow(_ context.Context, id string) (*forecast.CustomFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.flows[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m *Memory) SaveCustomFlow(_ context.Context, flow forecast.CustomFlow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[flow.ID] = flow
	return nil
}

func (m *Memory) DeleteCustomFlow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, id)
	return nil
}

func (m *Memory) ListInvoiceMetadata(_ context.Context) ([]forecast.ItemMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]forecast.ItemMetadata, 0, len(m.metadata))
	for _, r := range m.metadata {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].InvoiceID < records[j].InvoiceID })
	return records, nil
}

func (m *Memory) GetInvoiceMetadata(_ context.Context, invoiceID string) (*forecast.ItemMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.metadata[invoiceID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) SaveInvoiceMetadata(_ context.Context, meta forecast.ItemMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[meta.InvoiceID] = meta
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows = make(map[string]forecast.CustomFlow)
	m.metadata = make(map[string]forecast.ItemMetadata)
	return nil
}

func (m *Memory) Close() error { return nil }
