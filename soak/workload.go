package soak

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/benz9527/xavl/lib/id"
	"github.com/benz9527/xavl/lib/infra"
	"github.com/benz9527/xavl/lib/tree"
)

var errSoakMismatch = errors.New("[soak] tree mismatch")

type record struct {
	key   uint32
	round int
}

type seqRecord struct {
	key uint64
}

// workload is one kind running on its own tree and arena.
type workload struct {
	kind          Kind
	worker        int
	seed          uint64
	stream        uint64
	keys          int
	validateEvery int
	indexStats    bool
	ops           int64
	maxHeight     int
}

type workloadFunc func(ctx context.Context, wl *workload) error

var workloads = map[Kind]workloadFunc{
	KindInsertFindRemove: insertFindRemove,
	KindForeach:          foreach,
	KindChurn:            churn,
	KindSequential:       sequential,
}

func (wl *workload) rng() *rand.Rand {
	return rand.New(rand.NewPCG(wl.seed, wl.stream))
}

func (wl *workload) statsName() string {
	return fmt.Sprintf("soak/%s/%d", wl.kind, wl.worker)
}

func newWorkloadIndex[K infra.OrderedKey, T any](wl *workload, key func(*T) K) tree.Index[K, T] {
	opts := []tree.IndexOpt[K, T]{
		tree.WithIndexArenaCap[K, T](wl.keys),
	}
	if wl.indexStats {
		opts = append(opts, tree.WithIndexStats[K, T](wl.statsName()))
	}
	return tree.NewIndex[K, T](key, opts...)
}

// mutated counts one mutation. Every validateEvery mutations the context is
// checked and the whole tree is validated.
func mutated[K infra.OrderedKey, T any](ctx context.Context, wl *workload, index tree.Index[K, T]) error {
	wl.ops++
	wl.maxHeight = max(wl.maxHeight, index.Height())
	if wl.ops%int64(wl.validateEvery) != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return validate(index)
}

func validate[K infra.OrderedKey, T any](index tree.Index[K, T]) error {
	if err := tree.ValidateIndex(index); err != nil {
		return err
	}
	if h, bound := index.Height(), tree.MaxHeight(int(index.Len())); h > bound {
		return fmt.Errorf("%w: height %d over bound %d with %d nodes", errSoakMismatch, h, bound, index.Len())
	}
	return nil
}

func mismatch(format string, args ...any) error {
	return infra.WrapErrorStackWithMessage(errSoakMismatch, fmt.Sprintf(format, args...))
}

func randomKeys(rng *rand.Rand, n int) []uint32 {
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32()
	}
	return keys
}

func insertFindRemove(ctx context.Context, wl *workload) error {
	index := newWorkloadIndex(wl, func(rec *record) uint32 { return rec.key })
	keys := randomKeys(wl.rng(), wl.keys)

	for i, key := range keys {
		if _, err := index.Insert(record{key: key, round: i}); err != nil {
			return err
		}
		if err := mutated(ctx, wl, index); err != nil {
			return err
		}
	}
	if err := validate(index); err != nil {
		return err
	}

	for _, key := range keys {
		rec, err := index.Get(key)
		if err != nil {
			return mismatch("key %d lost after insert", key)
		}
		if rec.key != key {
			return mismatch("key %d resolves to %d", key, rec.key)
		}
	}

	for _, key := range keys {
		rec, err := index.Remove(key)
		switch {
		case err == nil:
			if rec.key != key {
				return mismatch("removed %d for key %d", rec.key, key)
			}
		case errors.Is(err, tree.ErrIndexKeyNotFound), errors.Is(err, tree.ErrIndexEmpty):
			// Duplicated key, gone with its first removal.
			continue
		default:
			return err
		}
		if index.Find(key) != tree.Nil {
			return mismatch("key %d still linked after removal", key)
		}
		if err := mutated(ctx, wl, index); err != nil {
			return err
		}
	}
	if index.Len() != 0 || !index.Tree().IsEmpty() {
		return mismatch("%d nodes left after removing all keys", index.Len())
	}
	return nil
}

func foreach(ctx context.Context, wl *workload) error {
	index := newWorkloadIndex(wl, func(rec *record) uint32 { return rec.key })
	for i, key := range randomKeys(wl.rng(), wl.keys) {
		if _, err := index.Insert(record{key: key, round: i}); err != nil {
			return err
		}
		if err := mutated(ctx, wl, index); err != nil {
			return err
		}
	}

	var (
		prev    uint32
		visited int64
		err     error
	)
	index.Foreach(func(i int64, rec *record) bool {
		if i > 0 && rec.key <= prev {
			err = mismatch("traversal %d after %d at %d", rec.key, prev, i)
			return false
		}
		prev = rec.key
		visited++
		return true
	})
	if err != nil {
		return err
	}
	if visited != index.Len() {
		return mismatch("traversal visited %d of %d nodes", visited, index.Len())
	}

	index.Release()
	if index.Len() != 0 || index.Tree().Arena().Len() != 0 {
		return mismatch("%d nodes left after release", index.Len())
	}
	return nil
}

func churn(ctx context.Context, wl *workload) error {
	index := newWorkloadIndex(wl, func(rec *record) uint32 { return rec.key })
	rng := wl.rng()
	for round := 0; round < wl.keys; round++ {
		key := rng.Uint32N(churnKeySpace)
		_, err := index.Insert(record{key: key, round: round}, true)
		if errors.Is(err, tree.ErrIndexKeyExists) {
			if _, err = index.Remove(key); err != nil {
				return err
			}
			if err = mutated(ctx, wl, index); err != nil {
				return err
			}
			_, err = index.Insert(record{key: key, round: round}, true)
		}
		if err != nil {
			return err
		}
		if err = mutated(ctx, wl, index); err != nil {
			return err
		}
		if rec, err := index.Get(key); err != nil || rec.round != round {
			return mismatch("key %d not refreshed in round %d", key, round)
		}

		victim := rng.Uint32N(churnKeySpace)
		if index.Find(victim) == tree.Nil {
			continue
		}
		if _, err = index.Remove(victim); err != nil {
			return err
		}
		if index.Find(victim) != tree.Nil {
			return mismatch("key %d still linked after removal", victim)
		}
		if err = mutated(ctx, wl, index); err != nil {
			return err
		}
	}
	if index.Len() > churnKeySpace {
		return mismatch("%d nodes over a key space of %d", index.Len(), churnKeySpace)
	}
	return validate(index)
}

func sequential(ctx context.Context, wl *workload) error {
	index := newWorkloadIndex(wl, func(rec *seqRecord) uint64 { return rec.key })
	gen, err := id.MonotonicNonZeroID(wl.stream * uint64(wl.keys))
	if err != nil {
		return err
	}
	for i := 0; i < wl.keys; i++ {
		if _, err = index.Insert(seqRecord{key: gen.Number()}, true); err != nil {
			return err
		}
		if err = mutated(ctx, wl, index); err != nil {
			return err
		}
	}
	if err = validate(index); err != nil {
		return err
	}

	var prev uint64
	for index.Len() > 0 {
		rec, err := index.RemoveMin()
		if err != nil {
			return err
		}
		if rec.key <= prev {
			return mismatch("drained %d after %d", rec.key, prev)
		}
		prev = rec.key
		if err = mutated(ctx, wl, index); err != nil {
			return err
		}
	}
	if _, err = index.RemoveMin(); !errors.Is(err, tree.ErrIndexEmpty) {
		return mismatch("drained tree answers %v", err)
	}
	return nil
}
