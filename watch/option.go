package watch

import (
	"github.com/rs/zerolog"

	"github.com/tarantool/go-typedkv/internal/options"
	"github.com/tarantool/go-typedkv/internal/telemetry"
)

// DefaultChannelCapacity is the buffer size of every watcher channel.
const DefaultChannelCapacity = 100

type watchOptions struct {
	channelCapacity int
	logger          zerolog.Logger
	metrics         *telemetry.Metrics
}

func defaultOptions() watchOptions {
	return watchOptions{
		channelCapacity: DefaultChannelCapacity,
		logger:          zerolog.Nop(),
		metrics:         telemetry.Noop(),
	}
}

func (o watchOptions) Validate() error {
	if o.channelCapacity <= 0 {
		return ErrInvalidCapacity
	}

	return nil
}

// WithChannelCapacity sets the buffer size of every watcher channel.
// Events for a watcher whose channel is full are dropped.
func WithChannelCapacity(capacity int) options.Callback[watchOptions] {
	return func(opts *watchOptions) {
		opts.channelCapacity = capacity
	}
}

// WithLogger sets the logger used for registry and delivery diagnostics.
func WithLogger(logger zerolog.Logger) options.Callback[watchOptions] {
	return func(opts *watchOptions) {
		opts.logger = logger
	}
}

// WithMetrics sets the metrics the engine reports to. Nil keeps the no-op metrics.
func WithMetrics(metrics *telemetry.Metrics) options.Callback[watchOptions] {
	return func(opts *watchOptions) {
		if metrics != nil {
			opts.metrics = metrics
		}
	}
}
