package typedkv

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	etcdclient "go.etcd.io/etcd/client/v3"

	"github.com/tarantool/go-typedkv/config"
	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/driver/etcd"
	"github.com/tarantool/go-typedkv/driver/memory"
	"github.com/tarantool/go-typedkv/driver/tkv"
)

// Open builds the driver, logger and metrics described by cfg and creates a
// database over them. Options given to Open override the configuration. Close
// releases the connections of remote drivers.
func Open(ctx context.Context, cfg config.Configuration, dbOpts ...Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	drv, closer, err := openDriver(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithPrefix(cfg.Storage.Prefix),
		WithChannelCapacity(cfg.Watch.ChannelCapacity),
	}

	if cfg.Metrics.Enabled {
		opts = append(opts, WithPrometheus(prometheus.DefaultRegisterer, cfg.Metrics.Namespace))
	}

	db, err := New(drv, append(opts, dbOpts...)...)
	if err != nil {
		if closer != nil {
			_ = closer()
		}

		return nil, err
	}

	db.closer = closer

	logger.Info().
		Str("driver", string(cfg.Storage.Driver)).
		Str("prefix", cfg.Storage.Prefix).
		Msg("database opened")

	return db, nil
}

func openDriver(ctx context.Context, cfg config.StorageConfiguration) (driver.Driver, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil, nil
	case config.DriverEtcd:
		client, err := etcdclient.New(etcdclient.Config{ //nolint:exhaustruct
			Endpoints:   cfg.Endpoints,
			DialTimeout: cfg.DialTimeout(),
			Username:    cfg.Username,
			Password:    cfg.Password,
			Context:     ctx,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}

		return etcd.New(client), client.Close, nil
	case config.DriverTarantool:
		pooled, err := tkv.Connect(ctx, tkv.ConnectConfig{
			Addrs:    cfg.Endpoints,
			User:     cfg.Username,
			Password: cfg.Password,
			Timeout:  cfg.DialTimeout(),
		})
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}

		return pooled, pooled.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}
