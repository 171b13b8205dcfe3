package completions

import (
	"log/slog"
	"sync"
)

// ProviderCompletions groups one provider's results.
type ProviderCompletions struct {
	ProviderID   string             `json:"providerId"`
	Name         string             `json:"name"`
	EmptyMessage string             `json:"emptyMessage,omitempty"`
	Results      []CompletionResult `json:"results"`
}

// CompletionManager fans a composer query out to registered providers in
// registration order.
type CompletionManager struct {
	mu        sync.RWMutex
	providers []CompletionProvider
}

func NewCompletionManager(providers ...CompletionProvider) *CompletionManager {
	m := &CompletionManager{}
	for _, p := range providers {
		m.Register(p)
	}
	return m
}

// Register adds p, replacing any provider with the same id.
func (m *CompletionManager) Register(p CompletionProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.providers {
		if existing.GetId() == p.GetId() {
			m.providers[i] = p
			return
		}
	}
	m.providers = append(m.providers, p)
}

func (m *CompletionManager) GetProvider(id string) CompletionProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.providers {
		if p.GetId() == id {
			return p
		}
	}
	return nil
}

// GetCompletions queries every provider. Providers with nothing to offer
// are omitted.
func (m *CompletionManager) GetCompletions(query string, selection Selection, force bool, limit int) []ProviderCompletions {
	m.mu.RLock()
	providers := append([]CompletionProvider(nil), m.providers...)
	m.mu.RUnlock()

	var out []ProviderCompletions
	for _, p := range providers {
		results := p.GetCompletions(query, selection, force, limit)
		if len(results) == 0 {
			continue
		}
		out = append(out, ProviderCompletions{
			ProviderID:   p.GetId(),
			Name:         p.GetName(),
			EmptyMessage: p.GetEmptyMessage(),
			Results:      results,
		})
	}
	slog.Debug("completions computed", "query", query, "groups", len(out))
	return out
}
