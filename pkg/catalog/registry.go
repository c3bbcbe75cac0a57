package catalog

import (
	"sync"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/charmbracelet/log"
)

/*
Registry holds the agent cards known to one process, keyed by card name.
Insertion order is preserved so that discovery ranking can break score ties
deterministically.
*/
type Registry struct {
	mu    sync.RWMutex
	cards map[string]a2a.AgentCard
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		cards: make(map[string]a2a.AgentCard),
	}
}

// Add stores a card under its name, replacing any previous card with the
// same name while keeping its original position.
func (registry *Registry) Add(card a2a.AgentCard) {
	log.Info("adding agent to registry", "name", card.Name)

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.cards[card.Name]; !ok {
		registry.order = append(registry.order, card.Name)
	}

	registry.cards[card.Name] = card
}

// Get returns the card for a name and whether it was present.
func (registry *Registry) Get(name string) (a2a.AgentCard, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	card, ok := registry.cards[name]
	return card, ok
}

// Remove drops a card by name. Removing an absent name is a no-op.
func (registry *Registry) Remove(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.cards[name]; !ok {
		return
	}

	delete(registry.cards, name)

	for i, n := range registry.order {
		if n == name {
			registry.order = append(registry.order[:i], registry.order[i+1:]...)
			break
		}
	}
}

// List returns all cards in insertion order.
func (registry *Registry) List() []a2a.AgentCard {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	cards := make([]a2a.AgentCard, 0, len(registry.order))

	for _, name := range registry.order {
		cards = append(cards, registry.cards[name])
	}

	return cards
}

// Len returns the number of registered cards.
func (registry *Registry) Len() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	return len(registry.cards)
}
