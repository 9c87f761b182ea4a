package tree

import (
	"strconv"

	"github.com/benz9527/xavl/lib/infra"
)

// Direction names a child slot. It doubles as a balance delta:
// Left is -1 and Right is +1.
type Direction uint8

const (
	Left Direction = iota
	Right
)

func (dir Direction) String() string {
	switch dir {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
	}
	return "Direction(" + strconv.Itoa(int(dir)) + ")"
}

// Opposite returns the other child slot.
func (dir Direction) Opposite() Direction {
	return 1 - dir
}

// Delta converts a direction to its balance delta, -1 or +1.
func (dir Direction) Delta() int8 {
	return 2*int8(dir) - 1
}

// DirectionOf converts a non-zero balance back to the direction it leans to.
func DirectionOf(balance int8) Direction {
	assert(balance == -1 || balance == 1, "[avl] direction of a zero balance")
	return Direction((balance + 1) / 2)
}

// NodeRef addresses a slot of an Arena. The zero value is Nil.
type NodeRef uint32

const Nil NodeRef = 0

// Index is the ordered layer above the key-agnostic Tree. It owns the
// comparator and the arena slots of the records it stores.
//
// Record pointers returned by an Index stay valid until the next Insert,
// which may grow the arena.
type Index[K infra.OrderedKey, T any] interface {
	Len() int64
	Height() int
	Tree() *Tree[T]
	Locate(key K) (ref, parent NodeRef, dir Direction)
	Find(key K) NodeRef
	Get(key K) (*T, error)
	Insert(rec T, ifNotPresent ...bool) (NodeRef, error)
	Remove(key K) (T, error)
	RemoveMin() (T, error)
	RemoveMax() (T, error)
	Min() (*T, error)
	Max() (*T, error)
	Foreach(action func(idx int64, rec *T) bool)
	Release()
}
