package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

type options struct {
	files  []string
	prefix string
}

// Option tunes a single Load call.
type Option func(*options)

// WithEnvFiles loads the given dotenv files before parsing. Missing files are
// an error; variables already present in the process environment win.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) { o.files = append(o.files, paths...) }
}

// WithPrefix prepends prefix to every variable name of the struct.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// Load parses environment variables into v according to its `env` tags.
// A .env file in the working directory is loaded once per process if present.
//
//	var cfg struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.files) > 0 {
		if err := godotenv.Load(o.files...); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	}

	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load that panics on error. Use it for configuration the
// process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
