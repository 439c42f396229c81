package filter

import (
	"context"
	"math"
	"time"

	"github.com/rushteam/feedkit/core"
)

// DefaultServedWindow 是曝光窗口的默认保留期。
// 窗口内已服务过的内容不再出现在后续页里；窗口数据独立于页缓存 TTL，
// 页缓存被清掉也不允许立刻复推。
const DefaultServedWindow = 30 * 24 * time.Hour

// ServedStore 把 core.KeyValueStore 适配为曝光窗口存储。
// 每个用户一个有序集合：member=content_id，score=served_at（Unix 秒）。
// 过期条目在每次写入时顺手清理，不依赖外部任务。
type ServedStore struct {
	kv core.KeyValueStore

	// KeyPrefix 默认 "feed:served"，实际 key 为 {KeyPrefix}:{UserID}
	KeyPrefix string

	// Window 是保留窗口，默认 DefaultServedWindow
	Window time.Duration

	// Now 时钟注入（测试用）
	Now func() time.Time
}

func NewServedStore(kv core.KeyValueStore) *ServedStore {
	return &ServedStore{kv: kv}
}

func (s *ServedStore) key(userID string) string {
	prefix := s.KeyPrefix
	if prefix == "" {
		prefix = "feed:served"
	}
	return prefix + ":" + userID
}

func (s *ServedStore) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultServedWindow
}

func (s *ServedStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ServedWithin 实现 ServedHistory。
func (s *ServedStore) ServedWithin(ctx context.Context, userID string) (map[string]struct{}, error) {
	cutoff := float64(s.now().Add(-s.window()).Unix())
	members, err := s.kv.ZRangeByScore(ctx, s.key(userID), cutoff, math.MaxFloat64)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set, nil
}

// WasServed 实现 ServedHistory。
func (s *ServedStore) WasServed(ctx context.Context, userID, contentID string) (bool, error) {
	servedAt, err := s.kv.ZScore(ctx, s.key(userID), contentID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, err
	}
	cutoff := float64(s.now().Add(-s.window()).Unix())
	return servedAt >= cutoff, nil
}

// MarkServed 把本次出页的 content_id 写入窗口，并清理窗口外的旧条目。
// 由编排层在成功出页后调用。
func (s *ServedStore) MarkServed(ctx context.Context, userID string, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	key := s.key(userID)
	now := s.now()
	ts := float64(now.Unix())

	for _, id := range contentIDs {
		if err := s.kv.ZAdd(ctx, key, ts, id); err != nil {
			return err
		}
	}

	cutoff := float64(now.Add(-s.window()).Unix())
	return s.kv.ZRemRangeByScore(ctx, key, 0, cutoff)
}

var _ ServedHistory = (*ServedStore)(nil)
