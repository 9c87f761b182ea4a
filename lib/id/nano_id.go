package id

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"sync"
)

const nanoIDAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

var errNanoIDLength = errors.New("[nano-id] invalid length")

// ClassicNanoID returns a generator of random ids over a 64 letters
// alphabet. Random bytes are read ahead in batches.
func ClassicNanoID(length int) (NanoIDGen, error) {
	if length < 2 || length > 255 {
		return nil, fmt.Errorf("%w: %d", errNanoIDLength, length)
	}

	batch := make([]byte, length*32)
	offset := len(batch)
	mask := byte(len(nanoIDAlphabet) - 1)

	var lock sync.Mutex
	return func() string {
		lock.Lock()
		defer lock.Unlock()

		if offset+length > len(batch) {
			if _, err := crand.Read(batch); /* impossible */ err != nil {
				panic(fmt.Errorf("[nano-id] read random bytes failed, %w", err))
			}
			offset = 0
		}
		id := make([]byte, length)
		for i := range id {
			id[i] = nanoIDAlphabet[batch[offset+i]&mask]
		}
		offset += length
		return string(id)
	}, nil
}
