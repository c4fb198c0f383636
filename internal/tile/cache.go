package tile

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache：派生瓦片缓存
// 约束：Get 未命中或后端异常均返回 false；Set 尽力写入，不返回错误
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

// 文档注释：进程内 LRU 缓存（带 TTL）
// 约束：容量按条目计；过期条目在读取时剔除
type MemoryCache struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type memEntry struct {
	k   string
	v   []byte
	exp time.Time
}

func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *MemoryCache) Get(_ context.Context, k string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return nil, false
	}
	it := e.Value.(memEntry)
	if time.Now().After(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, k)
		return nil, false
	}
	c.lst.MoveToFront(e)
	return it.v, true
}

func (c *MemoryCache) Set(_ context.Context, k string, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := memEntry{k: k, v: v, exp: time.Now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(memEntry).k)
		c.lst.Remove(back)
	}
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// RedisCache：跨进程共享的派生瓦片缓存
type RedisCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{rc: rc, prefix: "sealevel:tile:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, k string) ([]byte, bool) {
	b, err := c.rc.Get(ctx, c.prefix+k).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, k string, v []byte) {
	_ = c.rc.Set(ctx, c.prefix+k, v, c.ttl).Err()
}
