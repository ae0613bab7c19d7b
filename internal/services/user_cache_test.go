package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserInitCacheMissThenHit(t *testing.T) {
	cache := NewUserInitCache()
	var loads int32

	load := func() (*UserInitResponse, error) {
		atomic.AddInt32(&loads, 1)
		return &UserInitResponse{ID: 42, Email: "a@b.com"}, nil
	}

	first, err := cache.Get(42, load)
	require.NoError(t, err)
	assert.Equal(t, uint(42), first.ID)

	second, err := cache.Get(42, load)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestUserInitCacheNeverCachesFailure(t *testing.T) {
	cache := NewUserInitCache()
	var loads int32

	failing := func() (*UserInitResponse, error) {
		atomic.AddInt32(&loads, 1)
		return nil, errors.New("db down")
	}

	_, err := cache.Get(42, failing)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	// 失败未入缓存，下一次重新计算
	_, err = cache.Get(42, failing)
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestUserInitCacheNeverCachesNil(t *testing.T) {
	cache := NewUserInitCache()

	result, err := cache.Get(42, func() (*UserInitResponse, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, cache.Len())
}

func TestUserInitCacheEvictForcesRecompute(t *testing.T) {
	cache := NewUserInitCache()
	var loads int32

	load := func() (*UserInitResponse, error) {
		n := atomic.AddInt32(&loads, 1)
		return &UserInitResponse{ID: 42, FullName: string(rune('A' + n))}, nil
	}

	first, err := cache.Get(42, load)
	require.NoError(t, err)

	cache.Evict(42)
	assert.Equal(t, 0, cache.Len())

	second, err := cache.Get(42, load)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestUserInitCacheEvictUnknownKey(t *testing.T) {
	cache := NewUserInitCache()
	// 逐出不存在的键不报错
	cache.Evict(999)
	assert.Equal(t, 0, cache.Len())
}

func TestUserInitCacheConcurrentReadsSingleLoad(t *testing.T) {
	cache := NewUserInitCache()
	var loads int32

	load := func() (*UserInitResponse, error) {
		atomic.AddInt32(&loads, 1)
		return &UserInitResponse{ID: 7}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := cache.Get(7, load)
			assert.NoError(t, err)
			assert.Equal(t, uint(7), result.ID)
		}()
	}
	wg.Wait()

	// 键锁内二次检查保证同键并发读只触发一次加载
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestUserInitCacheIndependentKeys(t *testing.T) {
	cache := NewUserInitCache()

	a, err := cache.Get(1, func() (*UserInitResponse, error) {
		return &UserInitResponse{ID: 1}, nil
	})
	require.NoError(t, err)
	b, err := cache.Get(2, func() (*UserInitResponse, error) {
		return &UserInitResponse{ID: 2}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint(1), a.ID)
	assert.Equal(t, uint(2), b.ID)
	assert.Equal(t, 2, cache.Len())

	// 逐出一个键不影响另一个
	cache.Evict(1)
	assert.Equal(t, 1, cache.Len())
}
