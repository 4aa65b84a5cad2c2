package extract

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names accepted by New.
const (
	ProviderOpenAI          = "openai"
	ProviderLangChainOpenAI = "langchain-openai"
	ProviderOllama          = "ollama"
)

// Options selects and configures an Extractor.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// NeedsCredential reports whether the provider requires an API key.
func (o Options) NeedsCredential() bool {
	return o.Provider != ProviderOllama
}

// New builds the Extractor for opts.Provider; an empty provider means
// ProviderOpenAI.
func New(opts Options) (Extractor, error) {
	switch opts.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	case ProviderLangChainOpenAI:
		model, err := newLangChainOpenAI(opts)
		if err != nil {
			return nil, err
		}
		return NewLLMExtractor(model), nil
	case ProviderOllama:
		model, err := newOllama(opts)
		if err != nil {
			return nil, err
		}
		return NewLLMExtractor(model), nil
	default:
		return nil, fmt.Errorf("extract: unsupported provider: %s", opts.Provider)
	}
}

func newLangChainOpenAI(opts Options) (llms.Model, error) {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	o := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(opts.APIKey),
	}
	if opts.BaseURL != "" {
		o = append(o, openai.WithBaseURL(opts.BaseURL))
	}
	llm, err := openai.New(o...)
	if err != nil {
		return nil, fmt.Errorf("extract: openai model: %w", err)
	}
	return llm, nil
}

func newOllama(opts Options) (llms.Model, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("extract: ollama requires a model name")
	}
	o := []ollama.Option{ollama.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		o = append(o, ollama.WithServerURL(opts.BaseURL))
	}
	llm, err := ollama.New(o...)
	if err != nil {
		return nil, fmt.Errorf("extract: ollama model: %w", err)
	}
	return llm, nil
}
