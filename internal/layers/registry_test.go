package layers

import (
	"context"
	"fmt"
	"testing"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/redact"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func layerIDs(layers []domain.PromptLayer) []string {
	ids := make([]string, 0, len(layers))
	for _, layer := range layers {
		ids = append(ids, layer.ID)
	}
	return ids
}

func TestRegistryAllSortsByPrecedenceThenID(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(
		domain.PromptLayer{ID: "zeta", Kind: domain.LayerKindSafety, Precedence: 5},
		domain.PromptLayer{ID: "beta", Kind: domain.LayerKindInsight, Precedence: 20},
		domain.PromptLayer{ID: "alpha", Kind: domain.LayerKindInsight, Precedence: 20},
	)
	require.NoError(t, err)
	require.NoError(t, registry.Register(domain.PromptLayer{ID: "first", Kind: domain.LayerKindSafety, Precedence: -1}))

	if diff := cmp.Diff([]string{"first", "zeta", "alpha", "beta"}, layerIDs(registry.All())); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestRegistryRegisterRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(domain.PromptLayer{ID: "safety", Kind: domain.LayerKindSafety})
	require.NoError(t, err)

	err = registry.Register(domain.PromptLayer{ID: "safety", Kind: domain.LayerKindPersonaGuardrails})
	require.ErrorIs(t, err, domain.ErrDuplicateLayer)
	assert.Equal(t, 1, registry.Len())

	_, err = NewRegistry(
		domain.PromptLayer{ID: "dup", Kind: domain.LayerKindSafety},
		domain.PromptLayer{ID: "dup", Kind: domain.LayerKindSafety},
	)
	require.ErrorIs(t, err, domain.ErrDuplicateLayer)
}

func TestRegistryRegisterRejectsInvalidLayer(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry()
	require.NoError(t, err)

	err = registry.Register(domain.PromptLayer{ID: "x", Kind: "template"})
	assert.ErrorContains(t, err, "unsupported kind")
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryReplace(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(Builtin()...)
	require.NoError(t, err)

	updated := domain.PromptLayer{ID: "persona-tone", Kind: domain.LayerKindPersonaGuardrails, Precedence: 99, Text: "Be brief."}
	require.NoError(t, registry.Replace(updated))

	got, ok := registry.Get("persona-tone")
	require.True(t, ok)
	assert.Equal(t, "Be brief.", got.Text)
	assert.Equal(t, "persona-tone", registry.All()[registry.Len()-1].ID)

	err = registry.Replace(domain.PromptLayer{ID: "missing", Kind: domain.LayerKindSafety})
	assert.ErrorIs(t, err, domain.ErrLayerNotFound)
}

func TestRegistryReplaceAllKeepsPreviousCatalogOnError(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(Builtin()...)
	require.NoError(t, err)
	before := registry.All()

	err = registry.ReplaceAll([]domain.PromptLayer{
		{ID: "a", Kind: domain.LayerKindSafety},
		{ID: "a", Kind: domain.LayerKindSafety},
	})
	require.ErrorIs(t, err, domain.ErrDuplicateLayer)
	assert.Equal(t, before, registry.All())
}

func TestRegistryAllReturnsCopy(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(domain.PromptLayer{
		ID:        "safety",
		Kind:      domain.LayerKindSafety,
		Redaction: []domain.RedactionCategory{domain.CategoryEmotionalScorekeeping},
	})
	require.NoError(t, err)

	all := registry.All()
	all[0].ID = "mutated"

	got, ok := registry.Get("safety")
	require.True(t, ok)
	assert.Equal(t, "safety", got.ID)
}

func TestRegistryReadersNeverSeePartialSwap(t *testing.T) {
	t.Parallel()

	catalog := func(prefix string) []domain.PromptLayer {
		layers := make([]domain.PromptLayer, 0, 10)
		for i := 0; i < 10; i++ {
			layers = append(layers, domain.PromptLayer{ID: fmt.Sprintf("%s-%02d", prefix, i), Kind: domain.LayerKindSafety, Precedence: i})
		}
		return layers
	}

	registry, err := NewRegistry(catalog("old")...)
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < 200; i++ {
			prefix := "old"
			if i%2 == 0 {
				prefix = "new"
			}
			if err := registry.ReplaceAll(catalog(prefix)); err != nil {
				return err
			}
		}
		return nil
	})
	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				all := registry.All()
				if len(all) != 10 {
					return fmt.Errorf("snapshot has %d layers", len(all))
				}
				prefix := all[0].ID[:3]
				for _, layer := range all {
					if layer.ID[:3] != prefix {
						return fmt.Errorf("mixed snapshot: %v", layerIDs(all))
					}
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}

func TestBuiltinCatalogIsValidAndClean(t *testing.T) {
	t.Parallel()

	layers, err := BuiltinCatalog{}.Load(context.Background())
	require.NoError(t, err)

	registry, err := NewRegistry(layers...)
	require.NoError(t, err)

	scanner := redact.NewScanner()
	ctx := domain.ConversationContext{MemoryEnabled: true, InsightRequested: true}
	for _, layer := range registry.All() {
		_, found := scanner.Scan(layer.Render(ctx), layer.RedactionPolicy())
		assert.False(t, found, "builtin layer %s trips its own redaction policy", layer.ID)
	}
	_, found := scanner.Scan(IdentityBlock, []domain.RedactionCategory{
		domain.CategoryConflictTranscript,
		domain.CategoryEmotionalScorekeeping,
		domain.CategoryRawQuizAnswer,
	})
	assert.False(t, found)
}
