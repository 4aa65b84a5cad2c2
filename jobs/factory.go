package jobs

import (
	"github.com/simp-lee/pagebind/config"
	"github.com/simp-lee/pagebind/extract"
	"github.com/simp-lee/pagebind/pipeline"
)

// PipelineFactory builds a pipeline.Orchestrator from the job settings.
// opts are applied after the settings-derived options.
func PipelineFactory(opts ...pipeline.Option) ConverterFactory {
	return func(cfg *config.Config) (Converter, error) {
		ext, err := extract.New(cfg.Extract.Options())
		if err != nil {
			return nil, err
		}
		all := []pipeline.Option{
			pipeline.WithPolicy(cfg.Pipeline.Policy()),
			pipeline.WithPrompt(cfg.Extract.Prompt),
			pipeline.WithMaxTokens(cfg.Extract.MaxTokens),
			pipeline.WithPagePause(cfg.Pipeline.PagePause),
		}
		return pipeline.New(ext, append(all, opts...)...), nil
	}
}
