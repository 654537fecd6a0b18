package ragconfig

import (
	"github.com/go-playground/validator/v10"
)

const (
	StrategyFixed     = "fixed"
	StrategyParagraph = "paragraph"
	StrategySentence  = "sentence"
	StrategyRecursive = "recursive"
)

// Application defaults, used when neither a preset nor an explicit override
// supplies a field. They match the backend's own fallback values.
const (
	DefaultChunkStrategy  = StrategyFixed
	DefaultChunkSize      = 512
	DefaultChunkOverlap   = 50
	DefaultEmbeddingModel = "all-MiniLM-L6-v2"
)

// Config is one fully resolved chunking/embedding configuration.
// Invariant: 0 <= ChunkOverlap <= ChunkSize and ChunkSize > 0.
type Config struct {
	ChunkStrategy        string `json:"chunk_strategy" validate:"required,oneof=fixed paragraph sentence recursive"`
	ChunkSize            int    `json:"chunk_size" validate:"required,gt=0"`
	ChunkOverlap         int    `json:"chunk_overlap" validate:"gte=0,ltefield=ChunkSize"`
	EmbeddingModel       string `json:"embedding_model" validate:"required"`
	EmbeddingQueryPrefix string `json:"embedding_query_prefix,omitempty"`
}

// Override is a partial configuration: only non-nil fields count as set.
type Override struct {
	ChunkStrategy        *string
	ChunkSize            *int
	ChunkOverlap         *int
	EmbeddingModel       *string
	EmbeddingQueryPrefix *string
}

var validate = validator.New()

// Default returns the hard-coded application configuration.
func Default() Config {
	return Config{
		ChunkStrategy:  DefaultChunkStrategy,
		ChunkSize:      DefaultChunkSize,
		ChunkOverlap:   DefaultChunkOverlap,
		EmbeddingModel: DefaultEmbeddingModel,
	}
}

// Validate checks a resolved config against the domain invariants.
func Validate(cfg Config) error {
	return validate.Struct(cfg)
}

// ToMap renders the config as the wire shape the backend expects. The query
// prefix is sent as null when empty, mirroring the form payloads.
func (c Config) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"chunk_strategy":  c.ChunkStrategy,
		"chunk_size":      c.ChunkSize,
		"chunk_overlap":   c.ChunkOverlap,
		"embedding_model": c.EmbeddingModel,
	}
	if c.EmbeddingQueryPrefix != "" {
		m["embedding_query_prefix"] = c.EmbeddingQueryPrefix
	} else {
		m["embedding_query_prefix"] = nil
	}
	return m
}

// FromMap reads a stored config (KB default, document override, preset
// body) into an Override. Unknown or mistyped fields are treated as unset.
func FromMap(m map[string]interface{}) Override {
	var o Override
	if m == nil {
		return o
	}
	if v, ok := m["chunk_strategy"].(string); ok && v != "" {
		o.ChunkStrategy = &v
	}
	if v, ok := asInt(m["chunk_size"]); ok {
		o.ChunkSize = &v
	}
	if v, ok := asInt(m["chunk_overlap"]); ok {
		o.ChunkOverlap = &v
	}
	if v, ok := m["embedding_model"].(string); ok && v != "" {
		o.EmbeddingModel = &v
	}
	if v, ok := m["embedding_query_prefix"].(string); ok {
		o.EmbeddingQueryPrefix = &v
	}
	return o
}

// asInt accepts both decoded-JSON float64 and native int values.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
