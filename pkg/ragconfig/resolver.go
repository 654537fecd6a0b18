package ragconfig

// PresetLookup resolves a preset id to its stored config map. It must not
// perform network I/O; callers hand in an already-fetched snapshot.
type PresetLookup func(presetID string) (map[string]interface{}, bool)

// Resolve merges the three configuration tiers into one effective config.
// Precedence is field-level: a field set on the explicit override wins,
// otherwise the preset's value, otherwise the application default. The
// function is pure: same inputs, same output, no I/O.
//
// An out-of-range overlap is clamped to the chunk size rather than
// rejected, so the invariant chunk_overlap <= chunk_size always holds on
// the result.
func Resolve(explicit *Override, presetID string, lookup PresetLookup) Config {
	cfg := Default()

	if presetID != "" && lookup != nil {
		if m, ok := lookup(presetID); ok {
			apply(&cfg, FromMap(m))
		}
	}
	if explicit != nil {
		apply(&cfg, *explicit)
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap > cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize
	}
	return cfg
}

func apply(cfg *Config, o Override) {
	if o.ChunkStrategy != nil {
		cfg.ChunkStrategy = *o.ChunkStrategy
	}
	if o.ChunkSize != nil {
		cfg.ChunkSize = *o.ChunkSize
	}
	if o.ChunkOverlap != nil {
		cfg.ChunkOverlap = *o.ChunkOverlap
	}
	if o.EmbeddingModel != nil {
		cfg.EmbeddingModel = *o.EmbeddingModel
	}
	if o.EmbeddingQueryPrefix != nil {
		cfg.EmbeddingQueryPrefix = *o.EmbeddingQueryPrefix
	}
}
