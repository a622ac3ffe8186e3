// Package yaml loads prompt layer definitions from a YAML catalog file.
package yaml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	"gopkg.in/yaml.v3"
)

const currentCatalogVersion = 1

type catalogSchema struct {
	Version int           `yaml:"version"`
	Layers  []layerSchema `yaml:"layers"`
}

type layerSchema struct {
	ID         string   `yaml:"id"`
	Kind       string   `yaml:"kind"`
	Precedence int      `yaml:"precedence"`
	Text       string   `yaml:"text"`
	Redact     []string `yaml:"redact,omitempty"`
}

// Catalog reads layers from a file on every Load.
type Catalog struct {
	path string
}

var _ ports.LayerCatalog = (*Catalog)(nil)

func NewCatalog(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalog path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	return &Catalog{path: filepath.Clean(absPath)}, nil
}

func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) Load(ctx context.Context) ([]domain.PromptLayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	layers, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", c.path, err)
	}
	return layers, nil
}

// Decode parses and validates a catalog document. Unknown fields, unknown
// kinds and duplicate ids are errors.
func Decode(data []byte) ([]domain.PromptLayer, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogSchema
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if file.Version > currentCatalogVersion {
		return nil, fmt.Errorf("unsupported catalog version %d (current %d)", file.Version, currentCatalogVersion)
	}

	layers := make([]domain.PromptLayer, 0, len(file.Layers))
	seen := make(map[string]struct{}, len(file.Layers))
	for _, entry := range file.Layers {
		layer := fromSchema(entry)
		if err := layer.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[layer.ID]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateLayer, layer.ID)
		}
		seen[layer.ID] = struct{}{}
		layers = append(layers, layer)
	}

	return layers, nil
}

// Encode renders layers as a catalog document.
func Encode(layers []domain.PromptLayer) ([]byte, error) {
	file := catalogSchema{Version: currentCatalogVersion, Layers: make([]layerSchema, 0, len(layers))}
	for _, layer := range layers {
		file.Layers = append(file.Layers, toSchema(layer))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}

	return buf.Bytes(), nil
}

func fromSchema(entry layerSchema) domain.PromptLayer {
	var redaction []domain.RedactionCategory
	for _, category := range entry.Redact {
		redaction = append(redaction, domain.RedactionCategory(category))
	}

	return domain.PromptLayer{
		ID:         entry.ID,
		Kind:       domain.LayerKind(entry.Kind),
		Precedence: entry.Precedence,
		Text:       entry.Text,
		Redaction:  redaction,
	}
}

func toSchema(layer domain.PromptLayer) layerSchema {
	var redact []string
	for _, category := range layer.Redaction {
		redact = append(redact, string(category))
	}

	return layerSchema{
		ID:         layer.ID,
		Kind:       string(layer.Kind),
		Precedence: layer.Precedence,
		Text:       layer.Text,
		Redact:     redact,
	}
}
