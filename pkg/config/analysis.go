package config

// AnalysisConfig configures the language model behind the analysis handler.
// An empty APIKey falls back to ANTHROPIC_API_KEY.
type AnalysisConfig struct {
	APIKey    string `env:"API_KEY"`
	Model     string `env:"MODEL"      envDefault:"claude-sonnet-4-20250514"`
	MaxTokens int64  `env:"MAX_TOKENS" envDefault:"4096"`
}

func (a *AnalysisConfig) Sanitize() {
	if a.MaxTokens <= 0 {
		a.MaxTokens = 4096
	}
}
