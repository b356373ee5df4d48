package conversation

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedMutex serializes work per key with a fixed set of mutexes.
// Different keys may share a stripe; that only costs concurrency.
type stripedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &s.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
