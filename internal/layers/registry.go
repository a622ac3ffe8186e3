// Package layers holds the catalog of prompt layers available to the
// composer.
package layers

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bnema/pairchat/internal/domain"
)

// Registry is a catalog of layers kept sorted by (precedence, id). Readers load
// an immutable snapshot without locking; writers build a new snapshot and swap
// it in, so a reader never observes a partially applied update.
type Registry struct {
	writeMu  sync.Mutex
	snapshot atomic.Pointer[[]domain.PromptLayer]
}

func NewRegistry(layers ...domain.PromptLayer) (*Registry, error) {
	r := &Registry{}
	empty := []domain.PromptLayer{}
	r.snapshot.Store(&empty)

	if err := r.ReplaceAll(layers); err != nil {
		return nil, err
	}

	return r, nil
}

// Register adds a layer. It fails with domain.ErrDuplicateLayer when the id is
// already present.
func (r *Registry) Register(layer domain.PromptLayer) error {
	if err := layer.Validate(); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current := *r.snapshot.Load()
	for _, existing := range current {
		if existing.ID == layer.ID {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateLayer, layer.ID)
		}
	}

	next := make([]domain.PromptLayer, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, cloneLayer(layer))
	r.publish(next)

	return nil
}

// Replace swaps the definition of an existing layer.
func (r *Registry) Replace(layer domain.PromptLayer) error {
	if err := layer.Validate(); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current := *r.snapshot.Load()
	next := make([]domain.PromptLayer, 0, len(current))
	replaced := false
	for _, existing := range current {
		if existing.ID == layer.ID {
			next = append(next, cloneLayer(layer))
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		return fmt.Errorf("%w: %s", domain.ErrLayerNotFound, layer.ID)
	}
	r.publish(next)

	return nil
}

// ReplaceAll swaps the whole catalog. Nothing changes when layers is invalid.
func (r *Registry) ReplaceAll(layers []domain.PromptLayer) error {
	next := make([]domain.PromptLayer, 0, len(layers))
	seen := make(map[string]struct{}, len(layers))
	for _, layer := range layers {
		if err := layer.Validate(); err != nil {
			return err
		}
		if _, ok := seen[layer.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateLayer, layer.ID)
		}
		seen[layer.ID] = struct{}{}
		next = append(next, cloneLayer(layer))
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.publish(next)

	return nil
}

// All returns the layers ordered by (precedence, id). The returned slice is a
// copy and may be modified by the caller.
func (r *Registry) All() []domain.PromptLayer {
	current := *r.snapshot.Load()
	out := make([]domain.PromptLayer, len(current))
	copy(out, current)
	return out
}

func (r *Registry) Get(id string) (domain.PromptLayer, bool) {
	for _, layer := range *r.snapshot.Load() {
		if layer.ID == id {
			return layer, true
		}
	}
	return domain.PromptLayer{}, false
}

func (r *Registry) Len() int {
	return len(*r.snapshot.Load())
}

// publish must be called with writeMu held.
func (r *Registry) publish(next []domain.PromptLayer) {
	domain.SortLayers(next)
	r.snapshot.Store(&next)
}

func cloneLayer(layer domain.PromptLayer) domain.PromptLayer {
	layer.Redaction = append([]domain.RedactionCategory(nil), layer.Redaction...)
	return layer
}
