package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Trending 是热门流候选源：全局热门内容，与用户无关，可在上游独立缓存。
// 候选行存放在单一 key（默认 "feed:trending"）。
type Trending struct {
	Store core.Store

	// Key 默认 "feed:trending"
	Key string

	// LiveStats 同 Followees。热门流对实时计数最敏感，
	// 反馈闭环主要通过这里体现。
	LiveStats bool
}

func (s *Trending) Name() string      { return "recall.trending" }
func (s *Trending) ID() core.SourceID { return core.SourceTrending }

func (s *Trending) Fetch(
	ctx context.Context,
	_ *core.FeedContext,
	limit int,
) ([]*core.Candidate, error) {
	key := s.Key
	if key == "" {
		key = "feed:trending"
	}

	data, err := s.Store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	cands, err := decodeRows(data, core.SourceTrending, limit)
	if err != nil {
		return nil, err
	}

	if s.LiveStats {
		if kv, ok := s.Store.(core.KeyValueStore); ok {
			applyLiveStats(ctx, kv, cands)
		}
	}
	return cands, nil
}
