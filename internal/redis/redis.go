package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ngocnhiem/online-ide/internal/config"

	redis "github.com/redis/go-redis/v9"
)

// Client wraps go-redis client to centralize configuration.
type Client struct {
	inner *redis.Client
}

// ErrUnavailable reports that no working connection could be obtained.
var ErrUnavailable = errors.New("redis unavailable")

const pingTimeout = 3 * time.Second

// NewRedisClient creates the redis client from app config. The connection is
// not checked here; every Acquire pings its own connection.
func NewRedisClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	host := cfg.Redis.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}

	opts := &redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	return NewFromOptions(opts), nil
}

// NewFromOptions wraps a go-redis client built from raw options.
func NewFromOptions(opts *redis.Options) *Client {
	return &Client{inner: redis.NewClient(opts)}
}

// Acquire checks out a dedicated connection, pings it and returns it with a
// release func. Failures are reported as ErrUnavailable.
func (c *Client) Acquire(ctx context.Context) (*redis.Conn, func(), error) {
	if c == nil || c.inner == nil {
		return nil, nil, fmt.Errorf("%w: client not initialized", ErrUnavailable)
	}
	conn := c.inner.Conn()
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx).Err(); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	release := func() {
		_ = conn.Close()
	}
	return conn, release, nil
}

// Ping reports whether the server answers.
func (c *Client) Ping(ctx context.Context) error {
	_, release, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

// Close closes client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
