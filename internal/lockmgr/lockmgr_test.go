package lockmgr

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithStudyLockSerializesSameKey(t *testing.T) {
	m := New()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithStudyLock("owners/o1/studies/s1", func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxActive)
}

func TestDifferentKeysDoNotContend(t *testing.T) {
	m := New()
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_ = m.WithStudyLock(key, func() error {
				time.Sleep(20 * time.Millisecond)
				return nil
			})
		}(key)
	}
	wg.Wait()
	require.Less(t, time.Since(start), 100*time.Millisecond)
}
