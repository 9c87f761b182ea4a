package tree

import (
	"errors"

	"github.com/benz9527/xavl/lib/infra"
)

var (
	ErrIndexKeyNotFound = errors.New("[avl] key not found")
	ErrIndexKeyExists   = errors.New("[avl] key exists, replace disabled")
	ErrIndexEmpty       = errors.New("[avl] empty element to remove")
)

var _ Index[uint8, uint8] = (*avlIndex[uint8, uint8])(nil)

// avlIndex is the comparator driven layer over the key-agnostic Tree.
// It finds (parent, dir) pairs and node refs for the core, and owns the
// arena slots of its records.
type avlIndex[K infra.OrderedKey, T any] struct {
	tree     *Tree[T]
	key      func(rec *T) K
	kcmp     infra.OrderedKeyComparator[K]
	stats    *indexStats
	count    int64
	arenaCap int
	isDesc   bool
}

func (idx *avlIndex[K, T]) Len() int64 {
	return idx.count
}

func (idx *avlIndex[K, T]) Height() int {
	return idx.tree.Height()
}

func (idx *avlIndex[K, T]) Tree() *Tree[T] {
	return idx.tree
}

// Locate walks down from the root. It returns the node holding key, or
// Nil plus the (parent, dir) slot where key belongs.
func (idx *avlIndex[K, T]) Locate(key K) (ref, parent NodeRef, dir Direction) {
	dir = Left
	for aux := idx.tree.root; aux != Nil; {
		res := idx.kcmp(key, idx.key(idx.tree.arena.Record(aux)))
		if /* equal */ res == 0 {
			return aux, parent, dir
		} else /* less */ if res < 0 {
			dir = Left
		} else /* greater */ {
			dir = Right
		}
		parent = aux
		aux = idx.tree.arena.node(aux).children[dir]
	}
	return Nil, parent, dir
}

func (idx *avlIndex[K, T]) Find(key K) NodeRef {
	ref, _, _ := idx.Locate(key)
	return ref
}

func (idx *avlIndex[K, T]) Get(key K) (*T, error) {
	if ref := idx.Find(key); ref != Nil {
		return idx.tree.arena.Record(ref), nil
	}
	return nil, ErrIndexKeyNotFound
}

// Insert stores rec under its key. An existing record is replaced unless
// ifNotPresent is set.
func (idx *avlIndex[K, T]) Insert(rec T, ifNotPresent ...bool) (NodeRef, error) {
	ref, parent, dir := idx.Locate(idx.key(&rec))
	if ref != Nil {
		if len(ifNotPresent) > 0 && ifNotPresent[0] {
			return ref, ErrIndexKeyExists
		}
		*idx.tree.arena.Record(ref) = rec
		idx.stats.IncreaseReplaceCount()
		return ref, nil
	}

	ref = idx.tree.arena.Alloc(rec)
	idx.tree.Insert(ref, parent, dir)
	idx.count++
	idx.stats.IncreaseInsertCount()
	idx.recordShape()
	return ref, nil
}

// removeNode detaches ref, frees its slot and hands back the record.
func (idx *avlIndex[K, T]) removeNode(ref NodeRef) T {
	rec := *idx.tree.arena.Record(ref)
	idx.tree.Remove(ref)
	idx.tree.arena.Free(ref)
	idx.count--
	idx.stats.IncreaseRemoveCount()
	idx.recordShape()
	return rec
}

func (idx *avlIndex[K, T]) recordShape() {
	if idx.stats == nil {
		return
	}
	idx.stats.RecordShape(idx.count, idx.tree.Height())
}

func (idx *avlIndex[K, T]) Remove(key K) (T, error) {
	if idx.count <= 0 {
		return *new(T), ErrIndexEmpty
	}
	ref := idx.Find(key)
	if ref == Nil {
		return *new(T), ErrIndexKeyNotFound
	}
	return idx.removeNode(ref), nil
}

func (idx *avlIndex[K, T]) RemoveMin() (T, error) {
	if idx.count <= 0 {
		return *new(T), ErrIndexEmpty
	}
	return idx.removeNode(idx.tree.First()), nil
}

func (idx *avlIndex[K, T]) RemoveMax() (T, error) {
	if idx.count <= 0 {
		return *new(T), ErrIndexEmpty
	}
	return idx.removeNode(idx.tree.Last()), nil
}

func (idx *avlIndex[K, T]) Min() (*T, error) {
	if idx.count <= 0 {
		return nil, ErrIndexKeyNotFound
	}
	return idx.tree.arena.Record(idx.tree.First()), nil
}

func (idx *avlIndex[K, T]) Max() (*T, error) {
	if idx.count <= 0 {
		return nil, ErrIndexKeyNotFound
	}
	return idx.tree.arena.Record(idx.tree.Last()), nil
}

// Foreach walks the records in comparator order.
func (idx *avlIndex[K, T]) Foreach(action func(idx int64, rec *T) bool) {
	arena := idx.tree.arena
	idx.tree.Foreach(func(i int64, ref NodeRef) bool {
		return action(i, arena.Record(ref))
	})
}

// Release frees every record back to the arena and empties the tree.
// Post-order with an explicit stack, no rebalancing.
func (idx *avlIndex[K, T]) Release() {
	aux := idx.tree.root
	idx.tree.root = Nil
	if aux == Nil {
		return
	}

	arena := idx.tree.arena
	stack := make([]NodeRef, 0, idx.tree.Height()+1)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		node := arena.node(aux)
		if node.children[Left] != Nil {
			stack = append(stack, node.children[Left])
		}
		if node.children[Right] != Nil {
			stack = append(stack, node.children[Right])
		}
		arena.Free(aux)
		idx.count--
		idx.stats.IncreaseRemoveCount()
	}
	idx.recordShape()
}

func (idx *avlIndex[K, T]) recordComparator() RecordComparator[T] {
	return func(i, j *T) int64 {
		return idx.kcmp(idx.key(i), idx.key(j))
	}
}

// ValidateIndex runs Validate with the index's own ordering.
func ValidateIndex[K infra.OrderedKey, T any](index Index[K, T]) error {
	if impl, ok := index.(*avlIndex[K, T]); ok {
		return Validate(impl.tree, impl.recordComparator())
	}
	return Validate[T](index.Tree(), nil)
}

type IndexOpt[K infra.OrderedKey, T any] func(*avlIndex[K, T])

func WithIndexDesc[K infra.OrderedKey, T any]() IndexOpt[K, T] {
	return func(idx *avlIndex[K, T]) {
		idx.isDesc = true
	}
}

// WithIndexComparator overrides the natural key order.
func WithIndexComparator[K infra.OrderedKey, T any](kcmp infra.OrderedKeyComparator[K]) IndexOpt[K, T] {
	return func(idx *avlIndex[K, T]) {
		idx.kcmp = kcmp
	}
}

func WithIndexArenaCap[K infra.OrderedKey, T any](capacity int) IndexOpt[K, T] {
	return func(idx *avlIndex[K, T]) {
		idx.arenaCap = capacity
	}
}

// WithIndexStats records the index activity as otel metrics under
// "xavl/index/<name>".
func WithIndexStats[K infra.OrderedKey, T any](name string) IndexOpt[K, T] {
	return func(idx *avlIndex[K, T]) {
		idx.stats = newIndexStats(name)
	}
}

// NewIndex builds an ordered index over records keyed by key.
func NewIndex[K infra.OrderedKey, T any](key func(rec *T) K, opts ...IndexOpt[K, T]) Index[K, T] {
	idx := &avlIndex[K, T]{
		key: key,
	}
	for _, o := range opts {
		o(idx)
	}
	if idx.kcmp == nil {
		idx.kcmp = infra.NewOrderedKeyComparator[K](idx.isDesc)
	} else if idx.isDesc {
		kcmp := idx.kcmp
		idx.kcmp = func(i, j K) int64 {
			return kcmp(j, i)
		}
	}
	idx.tree = NewTree[T](NewArena[T](idx.arenaCap))
	return idx
}
