package domain

// Chunking strategy names accepted in configuration.
const (
	StrategyFixed    = "fixed"
	StrategySemantic = "semantic"
)

// Defaults for chunking configuration.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// ChunkStrategy selects and parameterises a text segmentation strategy.
type ChunkStrategy struct {
	// Kind is one of StrategyFixed or StrategySemantic.
	Kind string

	// Size is the window length in graphemes (fixed strategy).
	Size int

	// Overlap is the number of graphemes shared between consecutive
	// windows (fixed strategy). Must satisfy Size > Overlap > 0.
	Overlap int

	// MaxSize is the upper bound on chunk length in graphemes
	// (semantic strategy).
	MaxSize int
}

// FixedStrategy returns a fixed-size-with-overlap strategy.
func FixedStrategy(size, overlap int) ChunkStrategy {
	return ChunkStrategy{Kind: StrategyFixed, Size: size, Overlap: overlap}
}

// SemanticStrategy returns a sentence/paragraph-aware strategy capped at
// maxSize graphemes per chunk.
func SemanticStrategy(maxSize int) ChunkStrategy {
	return ChunkStrategy{Kind: StrategySemantic, MaxSize: maxSize}
}

// DefaultStrategy is fixed-size chunking with the default window.
func DefaultStrategy() ChunkStrategy {
	return FixedStrategy(DefaultChunkSize, DefaultChunkOverlap)
}
