package soak

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/samber/lo"
)

// Kind names a workload.
type Kind string

const (
	// KindInsertFindRemove inserts random keys, looks every one of them up,
	// then removes them in insertion order.
	KindInsertFindRemove Kind = "insert-find-remove"
	// KindForeach checks the ascending traversal of random keys.
	KindForeach Kind = "foreach"
	// KindChurn inserts and removes over a small key space, so nodes are
	// recycled and the tree keeps a steady size.
	KindChurn Kind = "churn"
	// KindSequential inserts monotonic keys, the worst case for rotations,
	// then drains the tree from its minimum.
	KindSequential Kind = "sequential"
)

const churnKeySpace = 1024

var (
	ErrSoakInvalidConfig = errors.New("[soak] invalid config")
	ErrSoakUnknownKind   = errors.New("[soak] unknown workload kind")
)

func AllKinds() []Kind {
	return []Kind{KindInsertFindRemove, KindForeach, KindChurn, KindSequential}
}

// ParseKinds accepts kind names, "all" expands to every kind. Duplicates
// are dropped.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "all" {
			kinds = append(kinds, AllKinds()...)
			continue
		}
		if !lo.Contains(AllKinds(), Kind(name)) {
			return nil, fmt.Errorf("%w: %q", ErrSoakUnknownKind, name)
		}
		kinds = append(kinds, Kind(name))
	}
	return lo.Uniq(kinds), nil
}

type Config struct {
	Keys          int    `json:"keys"`
	Workers       int    `json:"workers"`
	Seed          uint64 `json:"seed"`
	Kinds         []Kind `json:"kinds"`
	ValidateEvery int    `json:"validateEvery"`
	IndexStats    bool   `json:"indexStats"`
}

type Option func(*Config) error

func WithKeys(keys int) Option {
	return func(cfg *Config) error {
		if keys <= 0 || keys > 1<<30 {
			return fmt.Errorf("%w: keys %d", ErrSoakInvalidConfig, keys)
		}
		cfg.Keys = keys
		return nil
	}
}

func WithWorkers(workers int) Option {
	return func(cfg *Config) error {
		if workers <= 0 {
			return fmt.Errorf("%w: workers %d", ErrSoakInvalidConfig, workers)
		}
		cfg.Workers = workers
		return nil
	}
}

func WithSeed(seed uint64) Option {
	return func(cfg *Config) error {
		cfg.Seed = seed
		return nil
	}
}

func WithKinds(kinds ...Kind) Option {
	return func(cfg *Config) error {
		if len(kinds) == 0 {
			return fmt.Errorf("%w: no workload kind", ErrSoakInvalidConfig)
		}
		for _, kind := range kinds {
			if !lo.Contains(AllKinds(), kind) {
				return fmt.Errorf("%w: %q", ErrSoakUnknownKind, kind)
			}
		}
		cfg.Kinds = lo.Uniq(kinds)
		return nil
	}
}

// WithValidateEvery sets how many mutations run between two full
// validations. The tree is always validated once more at the end.
func WithValidateEvery(n int) Option {
	return func(cfg *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: validate every %d", ErrSoakInvalidConfig, n)
		}
		cfg.ValidateEvery = n
		return nil
	}
}

// WithIndexStats gives every workload index its own otel meter.
func WithIndexStats() Option {
	return func(cfg *Config) error {
		cfg.IndexStats = true
		return nil
	}
}

func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		Keys:          200_000,
		Workers:       runtime.GOMAXPROCS(0),
		Seed:          1,
		Kinds:         AllKinds(),
		ValidateEvery: 1024,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
