package coursegen

// Config holds generation settings.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`

	// Structured asks the provider for schema-constrained JSON instead of
	// extracting an object from free text.
	Structured bool `mapstructure:"structured"`

	// HistoryWindow is how many recent history entries are summarized into
	// a staged module prompt.
	HistoryWindow int `mapstructure:"history_window"`
}

// DefaultHistoryWindow is the number of history entries a staged prompt
// carries when no other window is configured.
const DefaultHistoryWindow = 6

// DefaultConfig returns sensible defaults for course generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     4096,
		Temperature:   0.7,
		HistoryWindow: DefaultHistoryWindow,
	}
}
