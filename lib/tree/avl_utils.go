package tree

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/benz9527/xavl/lib/infra"
)

var (
	ErrAVLLinkViolation     = errors.New("[avl] parent and child links disagree")
	ErrAVLBalanceViolation  = errors.New("[avl] balance violation")
	ErrAVLOrderViolation    = errors.New("[avl] in-order violation")
	ErrAVLCycleViolation    = errors.New("[avl] cycle or shared node")
	ErrAVLHeightViolation   = errors.New("[avl] height exceeds avl bound")
	ErrAVLTraverseViolation = errors.New("[avl] traversal disagrees with topology")
)

// avl rule validation utilities.
// They recompute every height from scratch and never trust the stored
// balances, so they can be run after each mutation in tests.

// RecordComparator orders two records. Same convention as
// infra.OrderedKeyComparator.
type RecordComparator[T any] func(i, j *T) int64

// Validate checks links, balances, cycle freedom, the height bound and,
// when cmp is not nil, strict in-order ordering of the records. All
// violations found are combined into the returned error.
func Validate[T any](tree *Tree[T], cmp RecordComparator[T]) error {
	if tree.root == Nil {
		return nil
	}
	if parent := tree.arena.node(tree.root).parent; parent != Nil {
		return infra.WrapErrorStackWithMessage(ErrAVLLinkViolation, fmt.Sprintf("root %d has parent %d", tree.root, parent))
	}

	v := &validator[T]{
		tree:    tree,
		cmp:     cmp,
		visited: make(map[NodeRef]struct{}, tree.arena.Len()),
	}
	height := v.walk(tree.root, 0)
	if v.err != nil {
		return infra.WrapErrorStackWithMessage(v.err, "avl validation failed")
	}

	count := len(v.visited)
	if height > MaxHeight(count) {
		return infra.WrapErrorStackWithMessage(ErrAVLHeightViolation,
			fmt.Sprintf("height %d with %d nodes", height, count))
	}
	if h := tree.Height(); h != height {
		return infra.WrapErrorStackWithMessage(ErrAVLBalanceViolation,
			fmt.Sprintf("balance path height %d, recomputed %d", h, height))
	}
	return validateTraversal(tree, count, cmp)
}

// MaxHeight is the AVL height bound ceil(1.44 * log2(n+2)).
func MaxHeight(n int) int {
	return int(math.Ceil(1.44 * math.Log2(float64(n+2))))
}

type validator[T any] struct {
	tree    *Tree[T]
	cmp     RecordComparator[T]
	visited map[NodeRef]struct{}
	prev    NodeRef
	err     error
}

// walk returns the recomputed height of the subtree at ref.
// Recursion depth is bounded by the height of a valid tree; a cycle stops
// at the first revisited node.
func (v *validator[T]) walk(ref NodeRef, depth int) int {
	if ref == Nil {
		return 0
	}
	if _, ok := v.visited[ref]; ok {
		v.err = multierr.Append(v.err, fmt.Errorf("%w: node %d reached twice", ErrAVLCycleViolation, ref))
		return 0
	}
	if depth > 2*MaxHeight(v.tree.arena.Cap()) {
		v.err = multierr.Append(v.err, fmt.Errorf("%w: depth %d at node %d", ErrAVLCycleViolation, depth, ref))
		return 0
	}
	v.visited[ref] = struct{}{}

	node := v.tree.arena.node(ref)
	for _, dir := range []Direction{Left, Right} {
		if child := node.children[dir]; child != Nil && v.tree.arena.node(child).parent != ref {
			v.err = multierr.Append(v.err, fmt.Errorf("%w: %s child %d of %d points to parent %d",
				ErrAVLLinkViolation, dir, child, ref, v.tree.arena.node(child).parent))
		}
	}
	if l, r := node.children[Left], node.children[Right]; l != Nil && l == r {
		v.err = multierr.Append(v.err, fmt.Errorf("%w: both children of %d are %d", ErrAVLCycleViolation, ref, l))
	}

	lh := v.walk(node.children[Left], depth+1)
	if v.cmp != nil {
		if v.prev != Nil && v.cmp(v.tree.arena.Record(v.prev), v.tree.arena.Record(ref)) >= 0 {
			v.err = multierr.Append(v.err, fmt.Errorf("%w: node %d not greater than %d", ErrAVLOrderViolation, ref, v.prev))
		}
		v.prev = ref
	}
	rh := v.walk(node.children[Right], depth+1)

	balance := rh - lh
	if balance < -1 || balance > 1 {
		v.err = multierr.Append(v.err, fmt.Errorf("%w: node %d recomputed balance %d", ErrAVLBalanceViolation, ref, balance))
	} else if int8(balance) != node.balance {
		v.err = multierr.Append(v.err, fmt.Errorf("%w: node %d stores %d, recomputed %d",
			ErrAVLBalanceViolation, ref, node.balance, balance))
	}
	return max(lh, rh) + 1
}

// validateTraversal drives First/Next and Last/Prev over the whole tree.
func validateTraversal[T any](tree *Tree[T], count int, cmp RecordComparator[T]) error {
	var (
		merr  error
		steps int
		prev  = Nil
	)
	for aux := tree.First(); aux != Nil && steps <= count; aux = tree.Next(aux) {
		if prev != Nil && cmp != nil && cmp(tree.arena.Record(prev), tree.arena.Record(aux)) >= 0 {
			merr = multierr.Append(merr, fmt.Errorf("%w: next of %d is %d", ErrAVLTraverseViolation, prev, aux))
		}
		prev = aux
		steps++
	}
	if steps != count {
		merr = multierr.Append(merr, fmt.Errorf("%w: ascending walk %d nodes, topology %d", ErrAVLTraverseViolation, steps, count))
	}

	steps = 0
	for aux := tree.Last(); aux != Nil && steps <= count; aux = tree.Prev(aux) {
		steps++
	}
	if steps != count {
		merr = multierr.Append(merr, fmt.Errorf("%w: descending walk %d nodes, topology %d", ErrAVLTraverseViolation, steps, count))
	}
	if merr != nil {
		return infra.WrapErrorStackWithMessage(merr, "avl traversal failed")
	}
	return nil
}
