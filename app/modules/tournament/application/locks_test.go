package tournamentservice

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("same key serialises", func(t *testing.T) {
		k := NewKeyedMutex()
		var inside, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock("a")
				defer unlock()
				n := inside.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), peak.Load())
		assert.Equal(t, 0, k.Len())
	})

	t.Run("different keys do not block", func(t *testing.T) {
		k := NewKeyedMutex()
		unlockA := k.Lock("a")
		done := make(chan struct{})
		go func() {
			k.Lock("b")()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on b waited for a")
		}
		assert.Equal(t, 1, k.Len())
		unlockA()
		assert.Equal(t, 0, k.Len())
	})
}
