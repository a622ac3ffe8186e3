package ports

import (
	"context"

	"github.com/bnema/pairchat/internal/domain"
)

// LayerCatalog loads the layer definitions the registry is seeded with.
type LayerCatalog interface {
	Load(ctx context.Context) ([]domain.PromptLayer, error)
}
