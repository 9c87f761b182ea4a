package tree

import (
	randv2 "math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type xRecord struct {
	id    uint64
	name  string
	value int
}

func xRecordID(rec *xRecord) uint64 {
	return rec.id
}

func TestAVLIndexInsertGet(t *testing.T) {
	idx := NewIndex[uint64, xRecord](xRecordID, WithIndexArenaCap[uint64, xRecord](8))
	require.Equal(t, int64(0), idx.Len())
	require.Equal(t, 0, idx.Height())

	_, err := idx.Get(1)
	require.ErrorIs(t, err, ErrIndexKeyNotFound)
	_, err = idx.Remove(1)
	require.ErrorIs(t, err, ErrIndexEmpty)
	_, err = idx.RemoveMin()
	require.ErrorIs(t, err, ErrIndexEmpty)
	_, err = idx.RemoveMax()
	require.ErrorIs(t, err, ErrIndexEmpty)
	_, err = idx.Min()
	require.ErrorIs(t, err, ErrIndexKeyNotFound)
	_, err = idx.Max()
	require.ErrorIs(t, err, ErrIndexKeyNotFound)

	for _, id := range []uint64{5, 3, 8, 1, 4, 7, 9, 2, 6} {
		ref, err := idx.Insert(xRecord{id: id, value: int(id)})
		require.NoError(t, err)
		require.NotEqual(t, Nil, ref)
		require.Equal(t, ref, idx.Find(id))
	}
	require.Equal(t, int64(9), idx.Len())
	require.Equal(t, 4, idx.Height())
	require.NoError(t, ValidateIndex(idx))
	require.Equal(t, Nil, idx.Find(10))

	ref, parent, dir := idx.Locate(10)
	require.Equal(t, Nil, ref)
	require.Equal(t, idx.Find(9), parent)
	require.Equal(t, Right, dir)
	ref, parent, dir = idx.Locate(0)
	require.Equal(t, Nil, ref)
	require.Equal(t, idx.Find(1), parent)
	require.Equal(t, Left, dir)
	ref, _, _ = idx.Locate(5)
	require.Equal(t, idx.Tree().Root(), ref)

	rec, err := idx.Get(7)
	require.NoError(t, err)
	require.Equal(t, 7, rec.value)

	// Replace keeps the node.
	ref = idx.Find(7)
	got, err := idx.Insert(xRecord{id: 7, name: "seven", value: 70})
	require.NoError(t, err)
	require.Equal(t, ref, got)
	require.Equal(t, int64(9), idx.Len())
	rec, err = idx.Get(7)
	require.NoError(t, err)
	require.Equal(t, "seven", rec.name)

	got, err = idx.Insert(xRecord{id: 7, name: "ignored"}, true)
	require.ErrorIs(t, err, ErrIndexKeyExists)
	require.Equal(t, ref, got)
	rec, err = idx.Get(7)
	require.NoError(t, err)
	require.Equal(t, "seven", rec.name)
}

func TestAVLIndexRemove(t *testing.T) {
	idx := NewIndex[uint64, xRecord](xRecordID)
	for _, id := range randv2.New(randv2.NewPCG(1, 1)).Perm(100) {
		_, err := idx.Insert(xRecord{id: uint64(id)})
		require.NoError(t, err)
	}

	lowest, err := idx.Min()
	require.NoError(t, err)
	require.Equal(t, uint64(0), lowest.id)
	highest, err := idx.Max()
	require.NoError(t, err)
	require.Equal(t, uint64(99), highest.id)

	rec, err := idx.Remove(50)
	require.NoError(t, err)
	require.Equal(t, uint64(50), rec.id)
	_, err = idx.Remove(50)
	require.ErrorIs(t, err, ErrIndexKeyNotFound)
	require.Equal(t, int64(99), idx.Len())

	rec, err = idx.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(0), rec.id)
	rec, err = idx.RemoveMax()
	require.NoError(t, err)
	require.Equal(t, uint64(99), rec.id)
	require.NoError(t, ValidateIndex(idx))

	expected := uint64(1)
	for idx.Len() > 0 {
		rec, err = idx.RemoveMin()
		require.NoError(t, err)
		require.Equal(t, expected, rec.id)
		expected++
		if expected == 50 {
			expected++
		}
		require.NoError(t, ValidateIndex(idx))
	}
	require.Equal(t, uint64(99), expected)
	require.Equal(t, 0, idx.Tree().Arena().Len())
}

func TestAVLIndexOrdering(t *testing.T) {
	testcases := []struct {
		name     string
		opts     []IndexOpt[string, xRecord]
		names    []string
		expected []string
	}{
		{
			"asc",
			nil,
			[]string{"c", "a", "d", "b"},
			[]string{"a", "b", "c", "d"},
		},
		{
			"desc",
			[]IndexOpt[string, xRecord]{WithIndexDesc[string, xRecord]()},
			[]string{"c", "a", "d", "b"},
			[]string{"d", "c", "b", "a"},
		},
		{
			"case insensitive",
			[]IndexOpt[string, xRecord]{
				WithIndexComparator[string, xRecord](func(i, j string) int64 {
					return int64(strings.Compare(strings.ToLower(i), strings.ToLower(j)))
				}),
			},
			[]string{"c", "a", "d", "B", "D"},
			[]string{"a", "B", "c", "D"},
		},
		{
			"case insensitive desc",
			[]IndexOpt[string, xRecord]{
				WithIndexComparator[string, xRecord](func(i, j string) int64 {
					return int64(strings.Compare(strings.ToLower(i), strings.ToLower(j)))
				}),
				WithIndexDesc[string, xRecord](),
			},
			[]string{"c", "a", "d", "B", "D"},
			[]string{"D", "c", "B", "a"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			idx := NewIndex[string, xRecord](func(rec *xRecord) string {
				return rec.name
			}, tc.opts...)
			for _, name := range tc.names {
				_, err := idx.Insert(xRecord{name: name})
				require.NoError(tt, err)
			}
			require.NoError(tt, ValidateIndex(idx))

			names := make([]string, 0, 4)
			idx.Foreach(func(i int64, rec *xRecord) bool {
				require.Equal(tt, int64(len(names)), i)
				names = append(names, rec.name)
				return true
			})
			require.Equal(tt, tc.expected, names)
		})
	}
}

func TestAVLIndexRelease(t *testing.T) {
	idx := NewIndex[int64, xRecord](func(rec *xRecord) int64 {
		return int64(rec.value)
	})
	values := randv2.New(randv2.NewPCG(2, 2)).Perm(1000)
	for _, v := range values {
		_, err := idx.Insert(xRecord{value: v - 500})
		require.NoError(t, err)
	}
	require.Equal(t, int64(1000), idx.Len())
	require.NoError(t, ValidateIndex(idx))

	idx.Release()
	require.Equal(t, int64(0), idx.Len())
	require.True(t, idx.Tree().IsEmpty())
	require.Equal(t, 0, idx.Tree().Arena().Len())
	idx.Release()

	// Reuse after release recycles the slots.
	for _, v := range values[:10] {
		_, err := idx.Insert(xRecord{value: v})
		require.NoError(t, err)
	}
	require.Equal(t, 1000, idx.Tree().Arena().Cap())
	require.NoError(t, ValidateIndex(idx))

	sorted := slices.Clone(values[:10])
	slices.Sort(sorted)
	lowest, err := idx.Min()
	require.NoError(t, err)
	require.Equal(t, sorted[0], lowest.value)
}

func TestAVLIndexMatchesMap(t *testing.T) {
	prng := randv2.New(randv2.NewPCG(3, 3))
	idx := NewIndex[uint64, xRecord](xRecordID)
	shadow := make(map[uint64]int, 512)
	for i := 0; i < 10_000; i++ {
		id := prng.Uint64N(512)
		switch prng.IntN(4) {
		case 0:
			rec, err := idx.Remove(id)
			if v, ok := shadow[id]; ok {
				require.NoError(t, err)
				require.Equal(t, v, rec.value)
				delete(shadow, id)
			} else {
				require.Error(t, err)
			}
		default:
			_, err := idx.Insert(xRecord{id: id, value: i})
			require.NoError(t, err)
			shadow[id] = i
		}
		require.Equal(t, int64(len(shadow)), idx.Len())
	}
	require.NoError(t, ValidateIndex(idx))
	for id, v := range shadow {
		rec, err := idx.Get(id)
		require.NoError(t, err)
		require.Equal(t, v, rec.value)
	}
}

func BenchmarkAVLIndexInsert(b *testing.B) {
	prng := randv2.New(randv2.NewPCG(4, 4))
	idx := NewIndex[uint64, xRecord](xRecordID, WithIndexArenaCap[uint64, xRecord](b.N))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Insert(xRecord{id: prng.Uint64()})
	}
}

func BenchmarkAVLIndexGet(b *testing.B) {
	idx := NewIndex[uint64, xRecord](xRecordID)
	for i := uint64(0); i < 1<<16; i++ {
		_, _ = idx.Insert(xRecord{id: i})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Get(uint64(i) & (1<<16 - 1))
	}
}

func BenchmarkAVLIndexRemoveMin(b *testing.B) {
	const size = 1 << 14
	idx := NewIndex[uint64, xRecord](xRecordID, WithIndexArenaCap[uint64, xRecord](size))
	fill := func() {
		for i := uint64(0); i < size; i++ {
			_, _ = idx.Insert(xRecord{id: i})
		}
	}
	fill()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if idx.Len() == 0 {
			b.StopTimer()
			fill()
			b.StartTimer()
		}
		_, _ = idx.RemoveMin()
	}
}
