// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis，并托管按名字注册的 Lua 脚本。
// Script.Run 优先 EVALSHA，脚本不在服务端缓存时自动退回 EVAL。
type Client struct {
	rdb *goredis.Client

	mu      sync.RWMutex
	scripts map[string]*goredis.Script
}

// NewClient 创建一个新的 Redis 客户端。
func NewClient(addr string) *Client {
	return &Client{
		rdb:     goredis.NewClient(&goredis.Options{Addr: addr}),
		scripts: make(map[string]*goredis.Script),
	}
}

// LoadScriptFromContent 按名字注册一段 Lua 脚本，重名视为编程错误。
func (c *Client) LoadScriptFromContent(name, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.scripts[name]; exists {
		return fmt.Errorf("script %q already registered", name)
	}
	c.scripts[name] = goredis.NewScript(content)
	return nil
}

// RunScript 执行已注册的脚本。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q not registered", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// GetClient 暴露底层客户端给需要 pipeline 等原生能力的调用方。
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
