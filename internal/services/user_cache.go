package services

import "sync"

// UserInitCache 用户初始化快照缓存
//
// 缓存键是访问令牌中的用户ID而不是令牌本身：同一用户的多个令牌
// 必须共享同一条缓存。失败和nil结果永不入缓存。
// 读并发，单键的"失效-重算"序列由每键互斥锁串行化，
// 保证被逐出的键不会带着失效前的旧数据复活
type UserInitCache struct {
	mu      sync.RWMutex
	entries map[uint]*UserInitResponse

	lockMu sync.Mutex
	locks  map[uint]*sync.Mutex
}

func NewUserInitCache() *UserInitCache {
	return &UserInitCache{
		entries: make(map[uint]*UserInitResponse),
		locks:   make(map[uint]*sync.Mutex),
	}
}

// keyLock 取得某用户键的互斥锁
func (c *UserInitCache) keyLock(userID uint) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	if c.locks[userID] == nil {
		c.locks[userID] = &sync.Mutex{}
	}
	return c.locks[userID]
}

// Get 缓存读取：命中直接返回，未命中在键锁内计算并回填
func (c *UserInitCache) Get(userID uint, load func() (*UserInitResponse, error)) (*UserInitResponse, error) {
	c.mu.RLock()
	cached, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	lock := c.keyLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// 二次检查：等锁期间可能已有并发计算完成
	c.mu.RLock()
	cached, ok = c.entries[userID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err := load()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	c.mu.Lock()
	c.entries[userID] = result
	c.mu.Unlock()

	return result, nil
}

// Evict 逐出某用户的缓存条目
// 与Get的计算段持同一把键锁，避免正在进行的加载用旧数据覆盖逐出结果
func (c *UserInitCache) Evict(userID uint) {
	lock := c.keyLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Len 当前缓存条目数
func (c *UserInitCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// 单例实现
var (
	userInitCache     *UserInitCache
	userInitCacheOnce sync.Once
)

// GetUserInitCache 获取全局缓存实例
func GetUserInitCache() *UserInitCache {
	userInitCacheOnce.Do(func() {
		userInitCache = NewUserInitCache()
	})
	return userInitCache
}
