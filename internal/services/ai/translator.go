package ai

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Translator tries a priority-ordered list of providers and uses the first
// one that answers.
type Translator struct {
	providers []Provider
	logger    *logrus.Logger
}

// NewTranslator constructs each configured provider in priority order,
// skipping the ones that fail to construct (missing keys). An empty provider
// list is valid; Translate then reports that translation is unavailable.
func NewTranslator(configs []ProviderConfig, logger *logrus.Logger) *Translator {
	ordered := make([]ProviderConfig, len(configs))
	copy(ordered, configs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	t := &Translator{logger: logger}
	for _, cfg := range ordered {
		provider, err := buildProvider(cfg)
		if err != nil {
			logger.WithError(err).WithField("kind", cfg.Kind).Debug("Skipping translation provider")
			continue
		}
		t.providers = append(t.providers, provider)
	}
	return t
}

// NewTranslatorWithProviders wraps already-constructed providers, kept in the
// given order.
func NewTranslatorWithProviders(providers []Provider, logger *logrus.Logger) *Translator {
	return &Translator{providers: providers, logger: logger}
}

func buildProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Kind {
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// Available reports whether at least one provider constructed.
func (t *Translator) Available() bool { return len(t.providers) > 0 }

// Translate runs the prompt through the providers in priority order and
// returns the first successful answer.
func (t *Translator) Translate(ctx context.Context, prompt string) (string, error) {
	if len(t.providers) == 0 {
		return "", fmt.Errorf("no translation provider is configured")
	}

	var lastErr error
	for _, provider := range t.providers {
		answer, err := provider.Translate(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		t.logger.WithError(err).WithField("provider", provider.Name()).Warn("Translation provider failed, trying next")
	}
	return "", fmt.Errorf("all translation providers failed: %w", lastErr)
}

// TranslateTitle translates a course or episode title to Persian.
func (t *Translator) TranslateTitle(ctx context.Context, title string) (string, error) {
	return t.Translate(ctx, fmt.Sprintf("Translate this course title to Persian: %s", title))
}
