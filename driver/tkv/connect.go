package tkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tarantool/go-tarantool/v2"
	"github.com/tarantool/go-tarantool/v2/pool"
)

// ErrNoAddresses is returned by Connect when no instance address is given.
var ErrNoAddresses = errors.New("no tarantool addresses")

// ConnectConfig describes the instances a pooled driver connects to.
type ConnectConfig struct {
	Addrs    []string
	User     string
	Password string
	Timeout  time.Duration
}

// Pooled is a driver that owns its connection pool.
type Pooled struct {
	*Driver

	pool *pool.ConnectionPool
}

// Connect establishes connections to the Tarantool instances and returns a driver
// sending every transaction to a writable instance.
func Connect(ctx context.Context, cfg ConnectConfig) (*Pooled, error) {
	if len(cfg.Addrs) == 0 {
		return nil, ErrNoAddresses
	}

	instances := make([]pool.Instance, 0, len(cfg.Addrs))
	for i, addr := range cfg.Addrs {
		instances = append(instances, pool.Instance{
			Name: fmt.Sprintf("instance-%d", i),
			Dialer: &tarantool.NetDialer{
				Address:  addr,
				User:     cfg.User,
				Password: cfg.Password,
				RequiredProtocolInfo: tarantool.ProtocolInfo{
					Auth:     tarantool.AutoAuth,
					Version:  tarantool.ProtocolVersion(0),
					Features: nil,
				},
			},
			Opts: tarantool.Opts{ //nolint:exhaustruct
				Timeout: cfg.Timeout,
			},
		})
	}

	conn, err := pool.Connect(ctx, instances)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tarantool pool: %w", err)
	}

	return &Pooled{
		Driver: New(pool.NewConnectorAdapter(conn, pool.RW)),
		pool:   conn,
	}, nil
}

// Close closes every connection of the pool.
func (p *Pooled) Close() error {
	return errors.Join(p.pool.Close()...)
}
