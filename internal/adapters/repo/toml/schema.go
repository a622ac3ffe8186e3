package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID         string         `toml:"id"`
	Name       string         `toml:"name"`
	LastTurnID uint64         `toml:"last_turn_id"`
	UpdatedAt  string         `toml:"updated_at,omitempty"`
	Settings   settingsSchema `toml:"settings"`
	Facts      []factSchema   `toml:"facts,omitempty"`
}

type settingsSchema struct {
	MemoryEnabled bool   `toml:"memory_enabled"`
	LimitOverride *int64 `toml:"limit_override,omitempty"`
}

type factSchema struct {
	Seq    int    `toml:"seq"`
	Kind   string `toml:"kind"`
	Key    string `toml:"key"`
	Value  string `toml:"value"`
	Source string `toml:"source,omitempty"`
}
