package tree

import (
	randv2 "math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAVLTreeEmpty(t *testing.T) {
	tree := NewTree[uint64](nil)
	require.True(t, tree.IsEmpty())
	require.Equal(t, Nil, tree.Root())
	require.Equal(t, Nil, tree.First())
	require.Equal(t, Nil, tree.Last())
	require.Equal(t, Nil, tree.Next(Nil))
	require.Equal(t, Nil, tree.Prev(Nil))
	require.Equal(t, 0, tree.Height())
	require.False(t, tree.Linked(Nil))
	require.NoError(t, Validate(tree, uint64Cmp))
	tree.Foreach(func(idx int64, ref NodeRef) bool {
		require.FailNow(t, "empty tree visited a node")
		return true
	})

	ref, ok := testInsert(tree, 1)
	require.True(t, ok)
	require.Equal(t, ref, tree.Root())
	require.Equal(t, ref, tree.First())
	require.Equal(t, ref, tree.Last())
	require.Equal(t, 1, tree.Height())

	tree.Remove(ref)
	require.True(t, tree.IsEmpty())
	require.Equal(t, Node{}, *tree.Arena().Node(ref))
	require.False(t, tree.Linked(ref))
}

func TestAVLTreeScenario(t *testing.T) {
	tree := NewTree[uint64](NewArena[uint64](16))
	for _, key := range []uint64{5, 3, 8, 1, 4, 7, 9, 2, 6} {
		_, ok := testInsert(tree, key)
		require.True(t, ok)
		require.NoError(t, Validate(tree, uint64Cmp), testLevels(tree))
	}
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}, testKeys(tree))
	require.Equal(t, 4, tree.Height())
	require.Equal(t, []shapeEntry{
		{5, 0}, {3, -1}, {1, 1}, {2, 0}, {4, 0}, {8, -1}, {7, -1}, {6, 0}, {9, 0},
	}, testShape(tree))

	_, ok := testInsert(tree, 4)
	require.False(t, ok)

	// Root with equal heights, the successor 6 replaces it.
	require.True(t, testRemove(tree, 5))
	require.NoError(t, Validate(tree, uint64Cmp), testLevels(tree))
	require.Equal(t, []shapeEntry{
		{6, -1}, {3, -1}, {1, 1}, {2, 0}, {4, 0}, {8, 0}, {7, 0}, {9, 0},
	}, testShape(tree))

	// Zig-zag below 3 after losing 4, fixed by a double rotation.
	require.True(t, testRemove(tree, 4))
	require.NoError(t, Validate(tree, uint64Cmp), testLevels(tree))
	require.Equal(t, []shapeEntry{
		{6, 0}, {2, 0}, {1, 0}, {3, 0}, {8, 0}, {7, 0}, {9, 0},
	}, testShape(tree))
	require.Equal(t, 3, tree.Height())

	require.False(t, testRemove(tree, 4))
	require.Equal(t, []uint64{1, 2, 3, 6, 7, 8, 9}, testKeys(tree))
}

func TestAVLTreeSequentialInsert(t *testing.T) {
	testcases := []struct {
		name string
		keys func(n int) []uint64
	}{
		{
			"ascending",
			func(n int) []uint64 {
				keys := make([]uint64, n)
				for i := range keys {
					keys[i] = uint64(i)
				}
				return keys
			},
		},
		{
			"descending",
			func(n int) []uint64 {
				keys := make([]uint64, n)
				for i := range keys {
					keys[i] = uint64(n - i)
				}
				return keys
			},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := NewTree[uint64](nil)
			for _, key := range tc.keys(1023) {
				testInsert(tree, key)
			}
			// 2^k - 1 sorted keys give the perfect tree.
			require.Equal(tt, 10, tree.Height())
			require.NoError(tt, Validate(tree, uint64Cmp))
			for _, entry := range testShape(tree) {
				require.Equal(tt, int8(0), entry.balance)
			}
		})
	}
}

func TestAVLTreeMatchesReference(t *testing.T) {
	prng := randv2.New(randv2.NewPCG(7, 11))
	tree := NewTree[uint64](nil)
	var root *refNode
	for i := 0; i < 4096; i++ {
		key := prng.Uint64N(512)
		if prng.IntN(3) == 0 {
			testRemove(tree, key)
			root = refDelete(root, key)
		} else {
			testInsert(tree, key)
			root = refInsert(root, key)
		}
		require.Equal(t, refShape(root), testShape(tree), "step %d key %d\n%s", i, key, testLevels(tree))
	}
	require.NoError(t, Validate(tree, uint64Cmp))
}

func TestAVLTreeRandomStress(t *testing.T) {
	n := 200_000
	if testing.Short() {
		n = 20_000
	}
	prng := randv2.New(randv2.NewPCG(2024, 527))
	tree := NewTree[uint64](NewArena[uint64](n))
	keys := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		key := prng.Uint64()
		if _, ok := testInsert(tree, key); ok {
			keys = append(keys, key)
		}
	}
	require.NoError(t, Validate(tree, uint64Cmp))
	require.LessOrEqual(t, tree.Height(), MaxHeight(len(keys)))
	require.Equal(t, len(keys), tree.Arena().Len())

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	require.Equal(t, sorted, testKeys(tree))

	prng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for i, key := range keys {
		require.True(t, testRemove(tree, key))
		if i%8192 == 0 {
			require.NoError(t, Validate(tree, uint64Cmp))
		}
	}
	require.True(t, tree.IsEmpty())
	require.Equal(t, 0, tree.Arena().Len())
}

func TestAVLTreeChurn(t *testing.T) {
	prng := randv2.New(randv2.NewPCG(1, 2))
	tree := NewTree[uint64](nil)
	present := make(map[uint64]struct{}, 256)
	for i := 0; i < 20_000; i++ {
		key := prng.Uint64N(256)
		if _, ok := present[key]; ok {
			require.True(t, testRemove(tree, key))
			delete(present, key)
		} else {
			_, ok = testInsert(tree, key)
			require.True(t, ok)
			present[key] = struct{}{}
		}
		if i%97 == 0 {
			require.NoError(t, Validate(tree, uint64Cmp), testLevels(tree))
		}
		require.Equal(t, len(present), tree.Arena().Len())
	}
	require.NoError(t, Validate(tree, uint64Cmp))
	// Churn stays within the key space, slots are recycled.
	require.LessOrEqual(t, tree.Arena().Cap(), 256)
}

func TestAVLTreeRemoveAll(t *testing.T) {
	prng := randv2.New(randv2.NewPCG(3, 4))
	tree := NewTree[uint64](nil)
	keys := prng.Perm(2000)
	for _, key := range keys {
		testInsert(tree, uint64(key))
	}
	prng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for i, key := range keys {
		require.True(t, testRemove(tree, uint64(key)))
		require.NoError(t, Validate(tree, uint64Cmp), "removed %d of %d", i+1, len(keys))
	}
	require.True(t, tree.IsEmpty())
	require.Equal(t, 0, tree.Height())
}

func TestAVLTreeTraversal(t *testing.T) {
	tree := NewTree[uint64](nil)
	for _, key := range randv2.New(randv2.NewPCG(5, 6)).Perm(300) {
		testInsert(tree, uint64(key)*2)
	}

	key := uint64(0)
	for ref := tree.First(); ref != Nil; ref = tree.Next(ref) {
		require.Equal(t, key, *tree.Record(ref))
		require.True(t, tree.Linked(ref))
		key += 2
	}
	require.Equal(t, uint64(600), key)

	for ref := tree.Last(); ref != Nil; ref = tree.Prev(ref) {
		key -= 2
		require.Equal(t, key, *tree.Record(ref))
	}
	require.Equal(t, uint64(0), key)

	count := 0
	tree.Foreach(func(idx int64, ref NodeRef) bool {
		require.Equal(t, int64(count), idx)
		count++
		return idx < 9
	})
	require.Equal(t, 10, count)

	// The successor is taken before the callback, removal is allowed.
	tree.Foreach(func(idx int64, ref NodeRef) bool {
		if *tree.Record(ref)%4 == 0 {
			tree.Remove(ref)
			tree.Arena().Free(ref)
		}
		return true
	})
	require.NoError(t, Validate(tree, uint64Cmp))
	require.Equal(t, 150, tree.Arena().Len())
	for _, key := range testKeys(tree) {
		require.Equal(t, uint64(2), key%4)
	}
}

func TestAVLTreeInsertRemoveRestoresShape(t *testing.T) {
	prng := randv2.New(randv2.NewPCG(8, 9))
	tree := NewTree[uint64](nil)
	for i := 0; i < 500; i++ {
		testInsert(tree, prng.Uint64N(1<<20)*2)
	}

	restored := 0
	for i := 0; i < 2000; i++ {
		key := prng.Uint64N(1<<20)*2 + 1
		before := testShape(tree)
		parents := make(map[NodeRef]NodeRef, len(before))
		tree.Foreach(func(idx int64, ref NodeRef) bool {
			parents[ref] = tree.Parent(ref)
			return true
		})

		ref, ok := testInsert(tree, key)
		require.True(t, ok)
		rotated := false
		for node, parent := range parents {
			if tree.Parent(node) != parent {
				rotated = true
				break
			}
		}
		require.True(t, testRemove(tree, key))
		require.False(t, tree.Linked(ref))
		require.NoError(t, Validate(tree, uint64Cmp))
		if !rotated {
			require.Equal(t, before, testShape(tree))
			restored++
		}
	}
	require.Positive(t, restored)
}

func BenchmarkAVLTreeInsertRemove(b *testing.B) {
	prng := randv2.New(randv2.NewPCG(10, 20))
	keys := make([]uint64, 1<<16)
	for i := range keys {
		keys[i] = prng.Uint64()
	}
	tree := NewTree[uint64](NewArena[uint64](len(keys)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[i&(len(keys)-1)]
		if !testRemove(tree, key) {
			testInsert(tree, key)
		}
	}
}
