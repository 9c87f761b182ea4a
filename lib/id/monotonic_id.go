package id

import (
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// monotonicNonZeroID only increases. On overflow it restarts from 1, so 0
// is never handed out and stays free as a sentinel key.
// The counter sits alone on its cache line, the soak workers each own one.
type monotonicNonZeroID struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
	val uint64
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
}

func (id *monotonicNonZeroID) next() uint64 {
	var v uint64
	if v = atomic.AddUint64(&id.val, 1); v == 0 {
		v = atomic.AddUint64(&id.val, 1)
	}
	return v
}

// MonotonicNonZeroID starts after the optional offset.
func MonotonicNonZeroID(offset ...uint64) (UUIDGen, error) {
	src := &monotonicNonZeroID{}
	if len(offset) > 0 {
		src.val = offset[0]
	}
	id := new(uuidDelegator)
	id.number = src.next
	id.str = func() string {
		return strconv.FormatUint(src.next(), 10)
	}
	return id, nil
}
