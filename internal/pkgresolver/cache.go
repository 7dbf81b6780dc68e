package pkgresolver

import "sync"

// Cache 导入路径 → 包名缓存
type Cache struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewCache 创建缓存
func NewCache() *Cache {
	return &Cache{names: make(map[string]string)}
}

// Get 获取缓存的包名
func (c *Cache) Get(importPath string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[importPath]
	return name, ok
}

// Set 缓存包名
func (c *Cache) Set(importPath, pkgName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[importPath] = pkgName
}

// Len 缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
