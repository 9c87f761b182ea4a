package tree

import (
	"fmt"
	"strings"
)

func uint64Cmp(i, j *uint64) int64 {
	if *i == *j {
		return 0
	} else if *i < *j {
		return -1
	}
	return 1
}

// testLocate is the caller side search the core tree expects.
func testLocate(tree *Tree[uint64], key uint64) (ref, parent NodeRef, dir Direction) {
	for aux := tree.Root(); aux != Nil; {
		rec := *tree.Record(aux)
		if rec == key {
			return aux, parent, dir
		} else if key < rec {
			dir = Left
		} else {
			dir = Right
		}
		parent = aux
		aux = tree.Child(aux, dir)
	}
	return Nil, parent, dir
}

func testInsert(tree *Tree[uint64], key uint64) (NodeRef, bool) {
	ref, parent, dir := testLocate(tree, key)
	if ref != Nil {
		return ref, false
	}
	ref = tree.Arena().Alloc(key)
	tree.Insert(ref, parent, dir)
	return ref, true
}

func testRemove(tree *Tree[uint64], key uint64) bool {
	ref, _, _ := testLocate(tree, key)
	if ref == Nil {
		return false
	}
	tree.Remove(ref)
	tree.Arena().Free(ref)
	return true
}

func testKeys(tree *Tree[uint64]) []uint64 {
	keys := make([]uint64, 0, tree.Arena().Len())
	tree.Foreach(func(idx int64, ref NodeRef) bool {
		keys = append(keys, *tree.Record(ref))
		return true
	})
	return keys
}

type shapeEntry struct {
	key     uint64
	balance int8
}

// testShape is the pre-order (key, balance) listing, it pins the topology.
func testShape(tree *Tree[uint64]) []shapeEntry {
	shape := make([]shapeEntry, 0, tree.Arena().Len())
	var walk func(ref NodeRef)
	walk = func(ref NodeRef) {
		if ref == Nil {
			return
		}
		shape = append(shape, shapeEntry{*tree.Record(ref), tree.Balance(ref)})
		walk(tree.Left(ref))
		walk(tree.Right(ref))
	}
	walk(tree.Root())
	return shape
}

func testHeightOf(tree *Tree[uint64], ref NodeRef) int {
	if ref == Nil {
		return 0
	}
	return max(testHeightOf(tree, tree.Left(ref)), testHeightOf(tree, tree.Right(ref))) + 1
}

// testLevels prints the tree level by level, for failure messages.
func testLevels(tree *Tree[uint64]) string {
	builder := strings.Builder{}
	level := []NodeRef{tree.Root()}
	for len(level) > 0 && level[0] != Nil {
		next := make([]NodeRef, 0, 2*len(level))
		for _, ref := range level {
			builder.WriteString(fmt.Sprintf("%d(%d) ", *tree.Record(ref), tree.Balance(ref)))
			for _, child := range []NodeRef{tree.Left(ref), tree.Right(ref)} {
				if child != Nil {
					next = append(next, child)
				}
			}
		}
		builder.WriteString("\n")
		level = next
	}
	return builder.String()
}

// refNode is a textbook recursive AVL with cached heights. The intrusive
// tree must end up in exactly the same shape for the same operations.
type refNode struct {
	key         uint64
	left, right *refNode
	heightCache int
}

func (n *refNode) height() int {
	if n == nil {
		return 0
	}
	return n.heightCache
}

func (n *refNode) balance() int {
	return n.right.height() - n.left.height()
}

func (n *refNode) updateHeight() {
	n.heightCache = max(n.left.height(), n.right.height()) + 1
}

func refRotateLeft(n *refNode) *refNode {
	r := n.right
	n.right, r.left = r.left, n
	n.updateHeight()
	r.updateHeight()
	return r
}

func refRotateRight(n *refNode) *refNode {
	l := n.left
	n.left, l.right = l.right, n
	n.updateHeight()
	l.updateHeight()
	return l
}

func refFix(n *refNode) *refNode {
	n.updateHeight()
	if b := n.balance(); b > 1 {
		if n.right.balance() < 0 {
			n.right = refRotateRight(n.right)
		}
		return refRotateLeft(n)
	} else if b < -1 {
		if n.left.balance() > 0 {
			n.left = refRotateLeft(n.left)
		}
		return refRotateRight(n)
	}
	return n
}

func refInsert(n *refNode, key uint64) *refNode {
	if n == nil {
		return &refNode{key: key, heightCache: 1}
	}
	if key < n.key {
		n.left = refInsert(n.left, key)
	} else if key > n.key {
		n.right = refInsert(n.right, key)
	} else {
		return n
	}
	return refFix(n)
}

// refDetachExtreme unlinks the extreme node of n toward dir.
func refDetachExtreme(n *refNode, dir Direction) (*refNode, *refNode) {
	if dir == Left {
		if n.left == nil {
			return n.right, n
		}
		var ext *refNode
		n.left, ext = refDetachExtreme(n.left, dir)
		return refFix(n), ext
	}
	if n.right == nil {
		return n.left, n
	}
	var ext *refNode
	n.right, ext = refDetachExtreme(n.right, dir)
	return refFix(n), ext
}

func refDelete(n *refNode, key uint64) *refNode {
	if n == nil {
		return nil
	}
	if key < n.key {
		n.left = refDelete(n.left, key)
		return refFix(n)
	} else if key > n.key {
		n.right = refDelete(n.right, key)
		return refFix(n)
	}
	if n.left == nil {
		return n.right
	} else if n.right == nil {
		return n.left
	}
	var repl *refNode
	if n.left.height() > n.right.height() {
		var left *refNode
		left, repl = refDetachExtreme(n.left, Right)
		repl.left, repl.right = left, n.right
	} else {
		var right *refNode
		right, repl = refDetachExtreme(n.right, Left)
		repl.left, repl.right = n.left, right
	}
	return refFix(repl)
}

func refShape(root *refNode) []shapeEntry {
	shape := make([]shapeEntry, 0, 64)
	var walk func(n *refNode)
	walk = func(n *refNode) {
		if n == nil {
			return
		}
		shape = append(shape, shapeEntry{n.key, int8(n.balance())})
		walk(n.left)
		walk(n.right)
	}
	walk(root)
	return shape
}
