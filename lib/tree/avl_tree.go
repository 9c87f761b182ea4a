package tree

// References:
// https://en.wikipedia.org/wiki/AVL_tree
// AVL properties:
// p1. Every node stores balance = height(right) - height(left).
// p2. Every balance is one of -1, 0, +1.
// p3. Parent and child links agree: if A is B's child then B is A's parent.
// (Conclusion) height <= 1.44 * log2(n+2), so every walk is O(log n).

// Tree is an intrusive AVL tree over the slots of an Arena. It owns the
// topology only: records are allocated and freed by the caller, and the
// tree never compares keys. Callers find the insertion point themselves
// and pass it in as (parent, dir).
//
// A Tree is not safe for concurrent use.
type Tree[T any] struct {
	arena *Arena[T]
	root  NodeRef
}

func NewTree[T any](arena *Arena[T]) *Tree[T] {
	if arena == nil {
		arena = NewArena[T](0)
	}
	return &Tree[T]{arena: arena}
}

func (tree *Tree[T]) Arena() *Arena[T] {
	return tree.arena
}

func (tree *Tree[T]) Root() NodeRef {
	return tree.root
}

func (tree *Tree[T]) IsEmpty() bool {
	return tree.root == Nil
}

func (tree *Tree[T]) Record(ref NodeRef) *T {
	return tree.arena.Record(ref)
}

func (tree *Tree[T]) Parent(ref NodeRef) NodeRef {
	return tree.arena.node(ref).parent
}

func (tree *Tree[T]) Child(ref NodeRef, dir Direction) NodeRef {
	return tree.arena.node(ref).children[dir]
}

func (tree *Tree[T]) Left(ref NodeRef) NodeRef {
	return tree.arena.node(ref).children[Left]
}

func (tree *Tree[T]) Right(ref NodeRef) NodeRef {
	return tree.arena.node(ref).children[Right]
}

func (tree *Tree[T]) Balance(ref NodeRef) int8 {
	return tree.arena.node(ref).balance
}

// Linked reports whether ref currently sits in this tree's topology.
// Removed nodes have their links cleared, so only the root may be linked
// without a parent.
func (tree *Tree[T]) Linked(ref NodeRef) bool {
	if ref == Nil {
		return false
	}
	if ref == tree.root {
		return true
	}
	parent := tree.arena.node(ref).parent
	if parent == Nil {
		return false
	}
	p := tree.arena.node(parent)
	return p.children[Left] == ref || p.children[Right] == ref
}

// Height follows the taller child down from the root, trusting the
// stored balances. O(log n).
func (tree *Tree[T]) Height() int {
	height := 0
	for aux := tree.root; aux != Nil; height++ {
		node := tree.arena.node(aux)
		if node.balance > 0 {
			aux = node.children[Right]
		} else {
			aux = node.children[Left]
		}
	}
	return height
}

func (tree *Tree[T]) extreme(ref NodeRef, dir Direction) NodeRef {
	if ref == Nil {
		return Nil
	}
	for next := tree.arena.node(ref).children[dir]; next != Nil; next = tree.arena.node(ref).children[dir] {
		ref = next
	}
	return ref
}

// step returns the neighbour of ref in dir order: Right is the successor,
// Left the predecessor.
func (tree *Tree[T]) step(ref NodeRef, dir Direction) NodeRef {
	if ref == Nil {
		return Nil
	}
	if child := tree.arena.node(ref).children[dir]; child != Nil {
		return tree.extreme(child, dir.Opposite())
	}
	// Backtrack until we arrive from the other side.
	parent := tree.arena.node(ref).parent
	for parent != Nil && ref == tree.arena.node(parent).children[dir] {
		ref = parent
		parent = tree.arena.node(ref).parent
	}
	return parent
}

// First returns the leftmost node or Nil.
func (tree *Tree[T]) First() NodeRef {
	return tree.extreme(tree.root, Left)
}

// Last returns the rightmost node or Nil.
func (tree *Tree[T]) Last() NodeRef {
	return tree.extreme(tree.root, Right)
}

// Next returns the in-order successor of ref, or Nil after the maximum.
func (tree *Tree[T]) Next(ref NodeRef) NodeRef {
	return tree.step(ref, Right)
}

// Prev returns the in-order predecessor of ref, or Nil before the minimum.
func (tree *Tree[T]) Prev(ref NodeRef) NodeRef {
	return tree.step(ref, Left)
}

// Foreach walks the nodes in ascending order. The successor is fetched
// before action runs, so action may remove the node it was handed.
func (tree *Tree[T]) Foreach(action func(idx int64, ref NodeRef) bool) {
	idx := int64(0)
	for aux := tree.First(); aux != Nil; idx++ {
		next := tree.Next(aux)
		if !action(idx, aux) {
			return
		}
		aux = next
	}
}

// replaceChild links newChild where oldChild hung under parent, or makes
// it the root. The parent link of newChild is left to the caller.
func (tree *Tree[T]) replaceChild(parent, oldChild, newChild NodeRef) {
	if parent == Nil {
		tree.root = newChild
		return
	}
	p := tree.arena.node(parent)
	if p.children[Left] == oldChild {
		p.children[Left] = newChild
		return
	}
	assert(p.children[Right] == oldChild, "[avl] replace a child not owned by its parent")
	p.children[Right] = newChild
}

func (tree *Tree[T]) dirOfChild(child, parent NodeRef) Direction {
	if tree.arena.node(parent).children[Left] == child {
		return Left
	}
	assert(tree.arena.node(parent).children[Right] == child, "[avl] child not owned by its parent")
	return Right
}

/*
Insert links ref into the empty dir slot of parent, or makes it the root
when parent is Nil. The slot must be empty; that is not checked.

Walking up from parent, with dir the side that grew:

	i1: parent was balanced, it now leans to dir. Its height grew, continue.
	i2: parent leaned away from dir, it is balanced now. Height unchanged, stop.
	i3: parent leaned to dir, it is off by two. Rotate away from dir. The
	    rotated subtree is as high as before the insertion, stop.
*/
func (tree *Tree[T]) Insert(ref, parent NodeRef, dir Direction) {
	tree.arena.node(ref).reset(parent)
	if parent == Nil {
		tree.root = ref
		return
	}
	assert(tree.arena.node(parent).children[dir] == Nil, "[avl] insert into an occupied slot")
	tree.arena.node(parent).children[dir] = ref

	for {
		p := tree.arena.node(parent)
		grandpa := p.parent
		switch p.balance {
		case /* i2 */ dir.Opposite().Delta():
			p.setBalance(0)
			return
		case /* i3 */ dir.Delta():
			top := tree.rotate(parent, dir.Opposite())
			tree.replaceChild(grandpa, parent, top)
			tree.arena.node(top).parent = grandpa
			return
		default:
		}

		/* i1 */
		p.setBalance(dir.Delta())
		ref, parent = parent, grandpa
		if parent == Nil {
			return
		}
		dir = tree.dirOfChild(ref, parent)
	}
}

/*
Remove unlinks ref from the tree. The node's links are cleared afterwards;
its slot still belongs to the caller.

r1: ref has at most one child. The child (or Nil) takes its slot.

r2: ref has two children. The nearest node on the taller side (Right on a
tie) replaces it: the leftmost node R of the right subtree (shown) or the
rightmost of the left subtree. R has at most one child c.

	    |                 |
	    X                 R
	   / \               / \
	  a   S    ====>    a   S
	     / \               / \
	    P   d             P   d
	   / \               / \
	  R   e             c   e
	   \
	    c

When R is X's own child, R keeps c and inherits X's other subtree.
Rebalancing starts where R left, or at R itself in the direct case.
*/
func (tree *Tree[T]) Remove(ref NodeRef) {
	node := tree.arena.node(ref)
	var (
		parent NodeRef
		dir    Direction
	)
	if /* r1 */ node.children[Left] == Nil || node.children[Right] == Nil {
		child := node.children[Left]
		if child == Nil {
			child = node.children[Right]
		}
		parent = node.parent
		if parent == Nil {
			tree.root = child
			if child != Nil {
				tree.arena.node(child).parent = Nil
			}
			node.reset(Nil)
			return
		}
		dir = tree.dirOfChild(ref, parent)
		tree.arena.node(parent).children[dir] = child
		if child != Nil {
			tree.arena.node(child).parent = parent
		}
	} else /* r2 */ {
		side := Right
		if node.balance != 0 {
			side = DirectionOf(node.balance)
		}
		repl, replParent, replDir := node.children[side], ref, side
		if inner := tree.arena.node(repl).children[side.Opposite()]; inner != Nil {
			replDir = side.Opposite()
			for ; inner != Nil; inner = tree.arena.node(repl).children[replDir] {
				replParent, repl = repl, inner
			}
		}

		var (
			r        = tree.arena.node(repl)
			oldPar   = node.parent
			keep     = node.children[replDir.Opposite()]
			take     = node.children[replDir]
			orphan   = r.children[replDir.Opposite()]
			isDirect = replParent == ref
		)
		tree.replaceChild(oldPar, ref, repl)
		r.parent = oldPar
		r.balance = node.balance
		r.children[replDir.Opposite()] = keep
		tree.arena.node(keep).parent = repl
		if isDirect {
			parent = repl
		} else {
			tree.arena.node(replParent).children[replDir] = orphan
			if orphan != Nil {
				tree.arena.node(orphan).parent = replParent
			}
			r.children[replDir] = take
			tree.arena.node(take).parent = repl
			parent = replParent
		}
		dir = replDir
	}
	node.reset(Nil)
	tree.removeRebalance(parent, dir)
}

/*
Walking up from parent, with dir the side that shrank:

	rm1: parent was balanced, it now leans away from dir. Height unchanged, stop.
	rm2: parent leaned to dir, it is balanced now. Height shrank, continue.
	rm3: parent leaned away from dir, it is off by two. Rotate toward dir.
	     If the taller child was balanced the subtree keeps its height, stop.
	     Otherwise the subtree shrank, continue from the new subtree root.
*/
func (tree *Tree[T]) removeRebalance(parent NodeRef, dir Direction) {
	for parent != Nil {
		p := tree.arena.node(parent)
		grandpa := p.parent
		top := parent
		switch p.balance {
		case /* rm1 */ 0:
			p.setBalance(dir.Opposite().Delta())
			return
		case /* rm2 */ dir.Delta():
			p.setBalance(0)
		default /* rm3 */ :
			heavy := tree.arena.node(p.children[dir.Opposite()]).balance
			top = tree.rotate(parent, dir)
			tree.replaceChild(grandpa, parent, top)
			tree.arena.node(top).parent = grandpa
			if heavy == 0 {
				return
			}
		}

		if grandpa == Nil {
			return
		}
		dir = tree.dirOfChild(top, grandpa)
		parent = grandpa
	}
}
