package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/dshills/recovery-go/recovery"
	"github.com/dshills/recovery-go/recovery/codec"
	"github.com/dshills/recovery-go/recovery/store"
)

// target is an opened snapshot store plus whatever must be closed after.
type target struct {
	transport store.Transport
	codec     codec.Codec
	location  string
	closeFn   func() error
}

func (t *target) Close() error {
	if t.closeFn == nil {
		return nil
	}
	return t.closeFn()
}

func (t *target) recovery() *store.Recovery[recovery.Snapshot] {
	return store.NewRecovery[recovery.Snapshot](t.transport, t.codec, t.location)
}

// openTarget opens the configured transport. location overrides the
// --location setting when non-empty.
func openTarget(ctx context.Context, v *viper.Viper, location string) (*target, error) {
	c, err := codec.ByName(v.GetString("codec"))
	if err != nil {
		return nil, err
	}

	t := &target{codec: c}
	switch kind := v.GetString("transport"); kind {
	case "file":
		t.transport = store.NewFileTransport()
	case "sqlite":
		s, err := store.NewSQLiteTransport(v.GetString("sqlite-path"))
		if err != nil {
			return nil, err
		}
		t.transport, t.closeFn = s, s.Close
	case "mysql":
		dsn := v.GetString("mysql-dsn")
		if dsn == "" {
			return nil, fmt.Errorf("mysql transport requires --mysql-dsn")
		}
		s, err := store.NewMySQLTransport(dsn)
		if err != nil {
			return nil, err
		}
		t.transport, t.closeFn = s, s.Close
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: v.GetString("redis-addr")})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		t.transport = store.NewRedisTransport(client, store.WithKeyPrefix(v.GetString("redis-prefix")))
		t.closeFn = client.Close
	case "s3":
		s, err := store.NewS3Transport(ctx, v.GetString("bucket"), v.GetString("region"), v.GetString("prefix"))
		if err != nil {
			return nil, err
		}
		t.transport = s
	case "gcs":
		s, err := store.NewGCSTransport(ctx, v.GetString("bucket"), v.GetString("prefix"))
		if err != nil {
			return nil, err
		}
		t.transport, t.closeFn = s, s.Close
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}

	if location == "" {
		location = v.GetString("location")
	}
	if resolver, ok := t.transport.(store.LocationResolver); ok {
		abs, err := resolver.Resolve(location)
		if err != nil {
			_ = t.Close()
			return nil, err
		}
		location = abs
	}
	t.location = location
	return t, nil
}
