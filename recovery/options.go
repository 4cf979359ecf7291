package recovery

import (
	"fmt"
	"os"

	"github.com/dshills/recovery-go/recovery/codec"
	"github.com/dshills/recovery-go/recovery/emit"
	"github.com/dshills/recovery-go/recovery/store"
)

// DefaultRecoveryLocation is used when WithRecoveryLocation is not given.
const DefaultRecoveryLocation = ".recovery"

// Option configures a Runner.
//
//	runner, err := recovery.New(deps,
//		recovery.WithRecoveryLocation("/var/lib/etl/nightly.recovery"),
//		recovery.WithDebugLevel(emit.LevelDebug),
//		recovery.WithMetrics(recovery.NewPrometheusMetrics(registry)),
//	)
//
// Every Runner gets its own configuration; there are no package-level
// defaults to mutate.
type Option func(*config) error

type config struct {
	fromScratch bool
	location    string
	level       emit.Level
	emitter     emit.Emitter
	transport   store.Transport
	codec       codec.Codec
	metrics     *PrometheusMetrics
	runID       string
}

func defaultConfig() config {
	return config{
		location:  DefaultRecoveryLocation,
		level:     emit.LevelNone,
		emitter:   emit.NewLogEmitter(os.Stderr, false),
		transport: store.NewFileTransport(),
		codec:     codec.Default(),
	}
}

// WithFromScratch ignores any persisted snapshot: no existence check and no
// read are performed, and every step executes.
func WithFromScratch(fromScratch bool) Option {
	return func(cfg *config) error {
		cfg.fromScratch = fromScratch
		return nil
	}
}

// WithRecoveryLocation sets where the snapshot is read and written.
// Default: ".recovery". With the file transport the location is resolved
// to an absolute path when the Runner is created.
func WithRecoveryLocation(location string) Option {
	return func(cfg *config) error {
		if location == "" {
			return &RunnerError{Code: "INVALID_OPTION", Message: "recovery location must not be empty"}
		}
		cfg.location = location
		return nil
	}
}

// WithDebugLevel sets logging verbosity. Default: emit.LevelNone.
//   - emit.LevelDebug logs the recovery decision, computation lifecycle and snapshot writes
//   - emit.LevelVerbose additionally logs every step
func WithDebugLevel(level emit.Level) Option {
	return func(cfg *config) error {
		if level < emit.LevelNone || level > emit.LevelVerbose {
			return &RunnerError{Code: "INVALID_OPTION", Message: fmt.Sprintf("unknown debug level %d", int(level))}
		}
		cfg.level = level
		return nil
	}
}

// WithEmitter sets the logger capability. Default: a text LogEmitter
// writing to stderr. Events are filtered by the debug level before they
// reach the emitter.
func WithEmitter(emitter emit.Emitter) Option {
	return func(cfg *config) error {
		if emitter == nil {
			return &RunnerError{Code: "INVALID_OPTION", Message: "emitter must not be nil"}
		}
		cfg.emitter = emitter
		return nil
	}
}

// WithTransport sets the byte transport. Default: store.NewFileTransport().
func WithTransport(transport store.Transport) Option {
	return func(cfg *config) error {
		if transport == nil {
			return &RunnerError{Code: "INVALID_OPTION", Message: "transport must not be nil"}
		}
		cfg.transport = transport
		return nil
	}
}

// WithCodec sets the snapshot encoding. Default: codec.Default() (MessagePack).
func WithCodec(c codec.Codec) Option {
	return func(cfg *config) error {
		if c == nil {
			return &RunnerError{Code: "INVALID_OPTION", Message: "codec must not be nil"}
		}
		cfg.codec = c
		return nil
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *config) error {
		cfg.metrics = metrics
		return nil
	}
}

// WithRunID fixes the run ID attached to emitted events. By default each
// Run gets a fresh UUID.
func WithRunID(runID string) Option {
	return func(cfg *config) error {
		cfg.runID = runID
		return nil
	}
}
