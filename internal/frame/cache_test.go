package frame

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignatureCacheStoreLoad(t *testing.T) {
	cache := NewSignatureCache()
	_, ok := cache.Load(0x1234)
	require.False(t, ok)

	format := []byte{0x04, 0x04, 0x04, 0x2B}
	cache.Store(0x1234, format)
	got, ok := cache.Load(0x1234)
	require.True(t, ok)
	require.Equal(t, format, got)

	// Writes are idempotent: the same signature keeps its template.
	cache.Store(0x1234, []byte{0xFF})
	got, _ = cache.Load(0x1234)
	require.Equal(t, format, got)
	require.Equal(t, 1, cache.Len())
}

func TestSignatureCachePrewired(t *testing.T) {
	cache := NewSignatureCache()
	for _, sig := range []uint16{0xA8ED, 0xC412, 0x61EB, 0xD2F7, 0xDD34} {
		format, ok := cache.Load(sig)
		require.True(t, ok, "signature %04x", sig)
		require.NotEmpty(t, format)
	}
	require.Equal(t, 0, cache.Len())
}

func TestSignatureCacheConcurrentReaders(t *testing.T) {
	cache := NewSignatureCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Store(0x4242, []byte{0x04, 0x04})
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if format, ok := cache.Load(0x4242); ok && len(format) != 2 {
					t.Error("torn cache entry")
					return
				}
			}
		}()
	}
	wg.Wait()
}
