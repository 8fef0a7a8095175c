package typedkv

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tarantool/go-typedkv/internal/options"
	"github.com/tarantool/go-typedkv/namer"
	"github.com/tarantool/go-typedkv/watch"
)

var (
	errInvalidPrefix = errors.New("key prefix must start with '/'")
	errNoNamespace   = errors.New("metrics namespace is empty")
)

type dbOptions struct {
	logger          zerolog.Logger
	prefix          string
	channelCapacity int
	registerer      prometheus.Registerer
	namespace       string
}

func defaultOptions() dbOptions {
	return dbOptions{
		logger:          zerolog.Nop(),
		prefix:          namer.DefaultPrefix,
		channelCapacity: watch.DefaultChannelCapacity,
		registerer:      nil,
		namespace:       "typedkv",
	}
}

func (o dbOptions) Validate() error {
	switch {
	case !strings.HasPrefix(o.prefix, "/"):
		return errInvalidPrefix
	case o.registerer != nil && o.namespace == "":
		return errNoNamespace
	}

	return nil
}

// Option configures a DB.
type Option = options.Callback[dbOptions]

// WithLogger sets the logger of the database and its watch engine.
func WithLogger(logger zerolog.Logger) Option {
	return func(opts *dbOptions) {
		opts.logger = logger
	}
}

// WithPrefix sets the storage key prefix all records are stored under.
func WithPrefix(prefix string) Option {
	return func(opts *dbOptions) {
		opts.prefix = prefix
	}
}

// WithChannelCapacity sets the buffer size of every watcher channel.
func WithChannelCapacity(capacity int) Option {
	return func(opts *dbOptions) {
		opts.channelCapacity = capacity
	}
}

// WithPrometheus registers the database metrics in registerer under namespace.
func WithPrometheus(registerer prometheus.Registerer, namespace string) Option {
	return func(opts *dbOptions) {
		opts.registerer = registerer
		opts.namespace = namespace
	}
}
