package tree

// Rotations only rewire the local subtree. The returned node is the new
// subtree root; the caller links it into the grandparent (or the tree root)
// and sets its parent.

/*
Single rotation to dir (dir = Left shown), fixes a straight line imbalance.

	  |                       |
	  N                       C
	 / \    rotate(N, L)     / \
	a   C   ===========>    N   c
	   / \                 / \
	  b   c               a   b

C was 0: N = +1 (opp delta), C = -1 (dir delta).
C was +1: N = 0, C = 0.
*/
func (tree *Tree[T]) singleRotate(ref NodeRef, dir Direction) NodeRef {
	opp := dir.Opposite()
	node := tree.arena.node(ref)
	childRef := node.children[opp]
	child := tree.arena.node(childRef)
	innerRef := child.children[dir]

	var nodeBalance, childBalance int8
	if child.balance == 0 {
		nodeBalance, childBalance = opp.Delta(), dir.Delta()
	}

	node.children[opp] = innerRef
	node.parent = childRef
	node.setBalance(nodeBalance)
	child.children[dir] = ref
	child.setBalance(childBalance)
	if innerRef != Nil {
		tree.arena.node(innerRef).parent = ref
	}
	return childRef
}

/*
Double rotation to dir (dir = Left shown), fixes a zig-zag imbalance.

	  |                           |
	  N                           I
	 / \                        /   \
	a   C    rotate(N, L)      N     C
	   / \   ===========>     / \   / \
	  I   d                  a   b c   d
	 / \
	b   c

I was 0:  N = 0, C = 0.
I was +1 (leaned to opp): N = -1 (dir delta), C = 0.
I was -1 (leaned to dir): N = 0, C = +1 (opp delta).
I ends up balanced.
*/
func (tree *Tree[T]) doubleRotate(ref NodeRef, dir Direction) NodeRef {
	opp := dir.Opposite()
	node := tree.arena.node(ref)
	childRef := node.children[opp]
	child := tree.arena.node(childRef)
	innerRef := child.children[dir]
	inner := tree.arena.node(innerRef)
	innerDir, innerOpp := inner.children[dir], inner.children[opp]

	var nodeBalance, childBalance int8
	switch inner.balance {
	case opp.Delta():
		nodeBalance = dir.Delta()
	case dir.Delta():
		childBalance = opp.Delta()
	default:
	}

	node.children[opp] = innerDir
	node.parent = innerRef
	node.setBalance(nodeBalance)
	child.children[dir] = innerOpp
	child.parent = innerRef
	child.setBalance(childBalance)
	inner.children[dir] = ref
	inner.children[opp] = childRef
	inner.setBalance(0)
	if innerDir != Nil {
		tree.arena.node(innerDir).parent = ref
	}
	if innerOpp != Nil {
		tree.arena.node(innerOpp).parent = childRef
	}
	return innerRef
}

// rotate moves weight from the opp side of ref to its dir side. A child
// leaning back toward dir needs the double rotation.
func (tree *Tree[T]) rotate(ref NodeRef, dir Direction) NodeRef {
	child := tree.arena.node(tree.arena.node(ref).children[dir.Opposite()])
	if child.balance == dir.Delta() {
		return tree.doubleRotate(ref, dir)
	}
	return tree.singleRotate(ref, dir)
}
