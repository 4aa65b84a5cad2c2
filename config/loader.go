package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PAGEBIND_"

// LoadOptions controls Load.
type LoadOptions struct {
	// DotEnvFiles are read in order when they exist. Variables already in
	// the environment take precedence over their values.
	DotEnvFiles []string

	// Environ replaces os.Environ.
	Environ func() []string
}

// Load builds a Config from Default, the .env files and the environment,
// then validates it.
func Load(opts LoadOptions) (*Config, error) {
	environ, err := opts.environ()
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   func() []string { return environ },
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration cannot be nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// transformEnv maps PAGEBIND_EXTRACT_API_KEY to extract.api_key: the first
// segment after the prefix is the section, the rest is the field name.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' })
	if len(parts) < 2 {
		return "", nil
	}
	return parts[0] + "." + strings.Join(parts[1:], "_"), value
}

func (o LoadOptions) environ() ([]string, error) {
	base := os.Environ
	if o.Environ != nil {
		base = o.Environ
	}
	environ := base()
	set := make(map[string]bool, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		set[name] = true
	}

	for _, file := range o.DotEnvFiles {
		vars, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for name, value := range vars {
			if set[name] {
				continue
			}
			set[name] = true
			environ = append(environ, name+"="+value)
		}
	}
	return environ, nil
}

// Source returns the settings to use for the next job.
type Source interface {
	Current(ctx context.Context) (*Config, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Config, error)

// Current calls f(ctx).
func (f SourceFunc) Current(ctx context.Context) (*Config, error) {
	return f(ctx)
}

// Static always returns cfg.
func Static(cfg *Config) Source {
	return SourceFunc(func(context.Context) (*Config, error) { return cfg, nil })
}

// Reloading calls Load on every Current, so a credential changed in the
// environment or .env file applies to the next job.
func Reloading(opts LoadOptions) Source {
	return SourceFunc(func(ctx context.Context) (*Config, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Load(opts)
	})
}
