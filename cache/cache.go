package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"github.com/rushteam/feedkit/core"
)

// DefaultTTL 是页缓存的默认过期时间，对齐新鲜度要求（小时级）。
const DefaultTTL = time.Hour

// PageItem 是缓存页内的单条条目：只存 id 与分数，不做内容反规范化，
// 避免缓存期内内容元数据变更导致的脏读。
type PageItem struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
}

// Page 是一页完整排序结果的不可变快照。
// 命中即整页返回，失效即整页替换，绝不部分修改。
type Page struct {
	UserID        string     `json:"user_id"`
	WeightVersion string     `json:"weight_version"`
	Cursor        string     `json:"cursor"`
	Items         []PageItem `json:"items"`
	NextCursor    string     `json:"next_cursor"`
	Degraded      bool       `json:"degraded"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

// FeedCache 是整页排序结果的读穿缓存，key 为 (user, 权重版本, cursor)。
// 缓存只影响延迟，永不影响正确性：任何存储错误都归一为
// CACHE_UNAVAILABLE，由编排层降级为直接计算。
type FeedCache struct {
	Store core.Store

	// KeyPrefix 默认 "feed:page"
	KeyPrefix string

	// TTL 默认 DefaultTTL
	TTL time.Duration
}

func NewFeedCache(store core.Store) *FeedCache {
	return &FeedCache{Store: store}
}

func (c *FeedCache) ttlSeconds() int {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return int(ttl / time.Second)
}

func (c *FeedCache) prefix() string {
	if c.KeyPrefix != "" {
		return c.KeyPrefix
	}
	return "feed:page"
}

// pageKey 把 cursor 哈希进 key，避免超长 key；空 cursor 表示首页。
func (c *FeedCache) pageKey(userID, weightVersion, cursor string) string {
	cursorPart := "head"
	if cursor != "" {
		sum := sha1.Sum([]byte(cursor))
		cursorPart = hex.EncodeToString(sum[:8])
	}
	return c.prefix() + ":" + userID + ":" + weightVersion + ":" + cursorPart
}

// indexKey 是用户名下全部页 key 的索引（用于按用户整体失效）。
func (c *FeedCache) indexKey(userID string) string {
	return c.prefix() + "idx:" + userID
}

// Get 读取缓存页。未命中返回 (nil, nil)；
// 存储故障返回 CACHE_UNAVAILABLE，调用方据此跳过缓存。
func (c *FeedCache) Get(ctx context.Context, userID, weightVersion, cursor string) (*Page, error) {
	data, err := c.Store.Get(ctx, c.pageKey(userID, weightVersion, cursor))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeCacheUnavailable, "cache: get failed: "+err.Error())
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		// 损坏条目当作未命中，等待下次整页覆盖
		return nil, nil
	}
	return &page, nil
}

// Set 写入缓存页（整页覆盖，last write wins）。
// 并发请求竞争写同一 key 是允许的：页是不可变快照，谁后写都一样新鲜。
func (c *FeedCache) Set(ctx context.Context, page *Page) error {
	if page == nil {
		return nil
	}
	data, err := json.Marshal(page)
	if err != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeInternalError, "cache: marshal failed: "+err.Error())
	}

	key := c.pageKey(page.UserID, page.WeightVersion, page.Cursor)
	if err := c.Store.Set(ctx, key, data, c.ttlSeconds()); err != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeCacheUnavailable, "cache: set failed: "+err.Error())
	}

	// 维护按用户的 key 索引，供 Invalidate 使用；索引写失败不影响本次缓存
	if kv, ok := c.Store.(core.KeyValueStore); ok {
		_ = kv.ZAdd(ctx, c.indexKey(page.UserID), float64(time.Now().Unix()), key)
	}
	return nil
}

// Invalidate 清掉某个用户的全部缓存页。
// 由内容创作链路在用户自己的内容变更时调用，避免自见旧页；
// 普通互动事件不触发失效——反馈闭环允许滞后，否则缓存形同虚设。
func (c *FeedCache) Invalidate(ctx context.Context, userID string) error {
	kv, ok := c.Store.(core.KeyValueStore)
	if !ok {
		return core.ErrStoreNotSupported
	}

	idx := c.indexKey(userID)
	keys, err := kv.ZRangeByScore(ctx, idx, 0, math.MaxFloat64)
	if err != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeCacheUnavailable, "cache: invalidate failed: "+err.Error())
	}

	for _, key := range keys {
		if err := c.Store.Delete(ctx, key); err != nil {
			return core.NewDomainError(core.ModuleCache, core.ErrorCodeCacheUnavailable, "cache: invalidate failed: "+err.Error())
		}
	}
	return c.Store.Delete(ctx, idx)
}
