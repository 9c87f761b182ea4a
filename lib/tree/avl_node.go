package tree

// Node holds the linkage of one arena slot. The caller's record sits next
// to it in the same slot, the arena index is the back-cast.
type Node struct {
	parent   NodeRef
	children [2]NodeRef
	balance  int8 // height(right) - height(left)
}

func (node *Node) Parent() NodeRef {
	return node.parent
}

func (node *Node) Child(dir Direction) NodeRef {
	return node.children[dir]
}

func (node *Node) Left() NodeRef {
	return node.children[Left]
}

func (node *Node) Right() NodeRef {
	return node.children[Right]
}

func (node *Node) Balance() int8 {
	return node.balance
}

func (node *Node) setParent(parent NodeRef) {
	node.parent = parent
}

func (node *Node) setBalance(balance int8) {
	assert(-1 <= balance && balance <= 1, "[avl] balance out of range")
	node.balance = balance
}

func (node *Node) reset(parent NodeRef) {
	node.parent = parent
	node.children = [2]NodeRef{Nil, Nil}
	node.balance = 0
}

func (node *Node) isLeaf() bool {
	return node.children[Left] == Nil && node.children[Right] == Nil
}

type arenaSlot[T any] struct {
	node Node
	rec  T
	used bool
}

// Arena is a contiguous store of records and their tree linkage.
// Slot 0 is reserved so that the zero NodeRef means Nil.
//
// The arena is the caller side allocator: Tree never calls Alloc or Free.
type Arena[T any] struct {
	slots    []arenaSlot[T]
	recycled []NodeRef // freed slots, reused LIFO
}

func NewArena[T any](capacity int) *Arena[T] {
	if capacity < 0 {
		capacity = 0
	}
	arena := &Arena[T]{
		slots:    make([]arenaSlot[T], 1, capacity+1), // non-zero ref
		recycled: make([]NodeRef, 0, 16),
	}
	return arena
}

// Alloc stores rec in a free slot. The slot's node is unlinked.
func (arena *Arena[T]) Alloc(rec T) NodeRef {
	var ref NodeRef
	if n := len(arena.recycled); n > 0 {
		ref = arena.recycled[n-1]
		arena.recycled = arena.recycled[:n-1]
	} else {
		arena.slots = append(arena.slots, arenaSlot[T]{})
		ref = NodeRef(len(arena.slots) - 1)
	}
	slot := &arena.slots[ref]
	slot.node.reset(Nil)
	slot.rec = rec
	slot.used = true
	return ref
}

// Free releases the slot of ref. The node must not be linked into a tree.
func (arena *Arena[T]) Free(ref NodeRef) {
	if ref == Nil || int(ref) >= len(arena.slots) || !arena.slots[ref].used {
		return
	}
	slot := &arena.slots[ref]
	slot.node.reset(Nil)
	slot.rec = *new(T)
	slot.used = false
	arena.recycled = append(arena.recycled, ref)
}

// Record recovers the record owning the node ref.
func (arena *Arena[T]) Record(ref NodeRef) *T {
	if ref == Nil {
		return nil
	}
	return &arena.slots[ref].rec
}

func (arena *Arena[T]) Node(ref NodeRef) *Node {
	if ref == Nil {
		return nil
	}
	return &arena.slots[ref].node
}

// Len is the number of allocated records.
func (arena *Arena[T]) Len() int {
	return len(arena.slots) - 1 - len(arena.recycled)
}

// Cap is the number of slots ever handed out, live or recycled.
func (arena *Arena[T]) Cap() int {
	return len(arena.slots) - 1
}

// Reset drops every record at once. Trees over this arena become invalid.
func (arena *Arena[T]) Reset() {
	clear(arena.slots)
	arena.slots = arena.slots[:1]
	arena.recycled = arena.recycled[:0]
}

func (arena *Arena[T]) node(ref NodeRef) *Node {
	return &arena.slots[ref].node
}
