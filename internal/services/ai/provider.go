package ai

import "context"

// Provider is a single translation backend with one fixed capability.
type Provider interface {
	Name() string
	Translate(ctx context.Context, prompt string) (string, error)
}

// ProviderConfig describes one configured backend. Providers are constructed
// in ascending Priority order; construction failures are skipped.
type ProviderConfig struct {
	Kind     string // "openai"
	APIKey   string
	Model    string
	Priority int
}
