// Package cache is a small string key/value cache with expiry, kept either in
// redis or, when no redis client is configured, in a local map.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type value struct {
	value   string
	expires time.Time
}

type Cache struct {
	sugar       *zap.SugaredLogger
	redisClient *redis.Client
	prefix      string

	mutex   sync.RWMutex
	hashmap map[string]value
	now     func() time.Time
}

// New returns a cache backed by redisClient, or by a local map when it is nil.
// Keys are namespaced with prefix in redis.
func New(sugar *zap.SugaredLogger, redisClient *redis.Client, prefix string) *Cache {
	return &Cache{
		sugar:       sugar,
		redisClient: redisClient,
		prefix:      prefix,
		hashmap:     make(map[string]value),
		now:         time.Now,
	}
}

func (c *Cache) selfContained() bool {
	return c.redisClient == nil
}

// Run drops expired local keys every interval until ctx is done. It returns
// right away for a redis backed cache, redis expires keys itself.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if !c.selfContained() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.deleteExpired()
		}
	}
}

func (c *Cache) deleteExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, v := range c.hashmap {
		if v.expires.Before(now) {
			delete(c.hashmap, key)
		}
	}
}

// Get returns "" for a missing or expired key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	debugText := fmt.Sprintf("Getting value of key [%s]", key)
	if c.selfContained() {
		c.sugar.Debugf("%s from hashmap", debugText)

		c.mutex.RLock()
		defer c.mutex.RUnlock()

		v, ok := c.hashmap[key]
		if !ok || v.expires.Before(c.now()) {
			return "", nil
		}
		return v.value, nil
	}

	c.sugar.Debugf("%s from redis", debugText)

	result, err := c.redisClient.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return result, nil
}

func (c *Cache) Set(ctx context.Context, key string, v string, expires time.Duration) error {
	debugText := fmt.Sprintf("Setting value of key [%s] to [%s]", key, v)
	if c.selfContained() {
		c.sugar.Debugf("%s in hashmap", debugText)

		c.mutex.Lock()
		defer c.mutex.Unlock()

		c.hashmap[key] = value{v, c.now().Add(expires)}
		return nil
	}

	c.sugar.Debugf("%s in redis", debugText)
	return c.redisClient.Set(ctx, c.prefix+key, v, expires).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c.selfContained() {
		c.sugar.Debugf("Deleting key [%s] from hashmap", key)

		c.mutex.Lock()
		defer c.mutex.Unlock()

		delete(c.hashmap, key)
		return nil
	}

	c.sugar.Debugf("Deleting key [%s] from redis", key)
	return c.redisClient.Del(ctx, c.prefix+key).Err()
}
