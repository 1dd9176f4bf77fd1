package content

import "time"

// Config holds generation settings for each tutor message.
type Config struct {
	AnalysisMaxTokens int     `toml:"analysis_max_tokens" validate:"min=256"`
	MessageMaxTokens  int     `toml:"message_max_tokens" validate:"min=64"`
	Temperature       float64 `toml:"temperature" validate:"min=0,max=2"`

	// MaxDocumentChars truncates document text before it is placed in a
	// prompt.
	MaxDocumentChars int `toml:"max_document_chars" validate:"min=1000"`

	// MaxTopics caps the topics kept from an analysis.
	MaxTopics int `toml:"max_topics" validate:"min=1"`

	// CacheTTL is how long a document analysis stays cached.
	CacheTTL time.Duration `toml:"cache_ttl"`
}

// DefaultConfig returns sensible defaults for content generation.
func DefaultConfig() Config {
	return Config{
		AnalysisMaxTokens: 1024,
		MessageMaxTokens:  512,
		Temperature:       0.7,
		MaxDocumentChars:  60000,
		MaxTopics:         12,
		CacheTTL:          7 * 24 * time.Hour,
	}
}
