// Package store loads and saves recovery snapshots through pluggable byte
// transports.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dshills/recovery-go/recovery/codec"
)

// ErrNotFound is returned by a Transport when nothing is stored at a location.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by transports whose underlying connection was closed.
var ErrClosed = errors.New("store is closed")

// Transport moves opaque bytes to and from a location.
//
// Implementations in this package:
//   - FileTransport: local filesystem, atomic replace (default)
//   - MemTransport: in-process map, for tests
//   - SQLiteTransport / MySQLTransport: one row per location
//   - RedisTransport: one key per location
//   - S3Transport / GCSTransport: one object per location
//
// Exists must report false (not an error) when the location is empty.
// Read returns ErrNotFound in that case. Write replaces any previous
// content entirely.
type Transport interface {
	Exists(ctx context.Context, location string) (bool, error)
	Read(ctx context.Context, location string) ([]byte, error)
	Write(ctx context.Context, location string, data []byte) error
}

// Remover is implemented by transports that can delete a location.
type Remover interface {
	Remove(ctx context.Context, location string) error
}

// Lister is implemented by transports that can enumerate stored locations.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// LocationResolver is implemented by transports whose locations have a
// canonical absolute form (filesystem paths).
type LocationResolver interface {
	Resolve(location string) (string, error)
}

// Recovery loads and saves a snapshot of type S at a single location using
// a Transport and a Codec. It holds no state between calls and performs no
// locking: one writer per location is assumed.
type Recovery[S any] struct {
	transport Transport
	codec     codec.Codec
	location  string
}

// NewRecovery creates a Recovery store. A nil codec selects codec.Default().
func NewRecovery[S any](transport Transport, c codec.Codec, location string) *Recovery[S] {
	if c == nil {
		c = codec.Default()
	}
	return &Recovery[S]{
		transport: transport,
		codec:     c,
		location:  location,
	}
}

// Location returns the configured location.
func (r *Recovery[S]) Location() string { return r.location }

// Codec returns the configured codec.
func (r *Recovery[S]) Codec() codec.Codec { return r.codec }

// Transport returns the configured transport.
func (r *Recovery[S]) Transport() Transport { return r.transport }

// Exists reports whether anything is stored at the location. I/O faults
// are returned as errors; absence is not.
func (r *Recovery[S]) Exists(ctx context.Context) (bool, error) {
	return r.transport.Exists(ctx, r.location)
}

// Load reads and decodes the stored snapshot.
//
// It returns (nil, nil) without reading when nothing exists at the
// location. It also returns (nil, nil) when the stored payload is empty or
// decodes to a falsy value (nil, false, zero, empty string); callers treat
// that the same as an absent snapshot.
func (r *Recovery[S]) Load(ctx context.Context) (*S, error) {
	ok, err := r.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	data, err := r.transport.Read(ctx, r.location)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := r.codec.Decode(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if falsy(decoded) {
		return nil, nil
	}

	var snapshot S
	if err := r.codec.Decode(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Save encodes snapshot and writes it, replacing any previous content.
// It returns the number of bytes written.
func (r *Recovery[S]) Save(ctx context.Context, snapshot S) (int, error) {
	data, err := r.codec.Encode(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.transport.Write(ctx, r.location, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Remove deletes the stored snapshot when the transport supports it.
func (r *Recovery[S]) Remove(ctx context.Context) error {
	rm, ok := r.transport.(Remover)
	if !ok {
		return fmt.Errorf("transport %T does not support remove", r.transport)
	}
	return rm.Remove(ctx, r.location)
}

func falsy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case int64:
		return x == 0
	case uint64:
		return x == 0
	case float64:
		return x == 0 || math.IsNaN(x)
	case float32:
		return x == 0 || math.IsNaN(float64(x))
	case int:
		return x == 0
	case int8:
		return x == 0
	case int16:
		return x == 0
	case int32:
		return x == 0
	case uint:
		return x == 0
	case uint8:
		return x == 0
	case uint16:
		return x == 0
	case uint32:
		return x == 0
	default:
		return false
	}
}
