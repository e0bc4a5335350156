package confresh

import (
	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/refresh"
	"github.com/avermeer/confresh/internal/source"
)

// New creates a refresher with default configuration. It is inert until
// Start.
func New(src Source, params SessionParams, opts ...Option) (Refresher, error) {
	cfg := config.DefaultConfig()
	return NewFromConfig(cfg, src, params, opts...)
}

// NewFromConfig creates a refresher from configuration.
func NewFromConfig(cfg *config.Config, src Source, params SessionParams, opts ...Option) (Refresher, error) {
	options := &RefresherOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return refresh.New(cfg, src, params, options)
}

// NewFromFile creates a refresher from a JSON config file with CONFRESH_*
// and DD_* environment overrides applied on top.
func NewFromFile(path string, src Source, params SessionParams, opts ...Option) (Refresher, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, src, params, opts...)
}

// NewHTTP creates a refresher polling the HTTP configuration service named
// by cfg.Source.
func NewHTTP(cfg *config.Config, params SessionParams, opts ...Option) (Refresher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	options := &RefresherOptions{}
	for _, opt := range opts {
		opt(options)
	}
	src, err := source.NewHTTPSource(cfg, refresh.SlogFrom(options.Logger))
	if err != nil {
		return nil, err
	}
	return refresh.New(cfg, src, params, options)
}

// NewHTTPSource builds the HTTP source alone, for callers that wrap it or
// wire the refresher themselves.
func NewHTTPSource(cfg *config.Config) (Source, error) {
	return source.NewHTTPSource(cfg, nil)
}

// NewGroup creates an empty registry for applications that track several
// configuration profiles at once. Only WithLogger applies; per-member
// options belong on the members.
func NewGroup(opts ...Option) *Group {
	options := &RefresherOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &Group{inner: refresh.NewGroup(refresh.SlogFrom(options.Logger))}
}

// Config returns a default configuration that can be modified before creating a refresher.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}
