package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// AffinityWeightKey 是 (user, author) 兴趣权重 zset 的 key。
// member=author_id，score=反馈事件按类型加权的累积值，由 feedback.Ingestor 写入。
func AffinityWeightKey(userID string) string {
	return "feed:affinity_w:" + userID
}

// Affinity 是兴趣流候选源：协同过滤类的个性化推荐，key 为 {KeyPrefix}:{UserID}。
// 若 Store 支持 KeyValueStore，还会用反馈链路累积的作者权重对
// 预计算的 affinity 子分做轻量实时修正。
type Affinity struct {
	Store core.Store

	// KeyPrefix 默认 "feed:affinity"
	KeyPrefix string

	// LiveBoost 为 true 时启用作者权重实时修正。
	// 修正量为 w/(w+20)*0.2，w 为累积权重：随互动增长趋近 +0.2，上限可控。
	LiveBoost bool
}

func (s *Affinity) Name() string      { return "recall.affinity" }
func (s *Affinity) ID() core.SourceID { return core.SourceAffinity }

func (s *Affinity) Fetch(
	ctx context.Context,
	fctx *core.FeedContext,
	limit int,
) ([]*core.Candidate, error) {
	if fctx == nil || fctx.UserID == "" {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: affinity requires user_id")
	}

	keyPrefix := s.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "feed:affinity"
	}

	data, err := s.Store.Get(ctx, keyPrefix+":"+fctx.UserID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	cands, err := decodeRows(data, core.SourceAffinity, limit)
	if err != nil {
		return nil, err
	}

	if s.LiveBoost {
		if kv, ok := s.Store.(core.KeyValueStore); ok {
			s.applyLiveBoost(ctx, kv, fctx.UserID, cands)
		}
	}
	return cands, nil
}

func (s *Affinity) applyLiveBoost(ctx context.Context, kv core.KeyValueStore, userID string, cands []*core.Candidate) {
	key := AffinityWeightKey(userID)
	for _, c := range cands {
		if c.AuthorID == "" {
			continue
		}
		w, err := kv.ZScore(ctx, key, c.AuthorID)
		if err != nil || w <= 0 {
			continue
		}
		boosted := c.Affinity + w/(w+20)*0.2
		if boosted > 1 {
			boosted = 1
		}
		c.Affinity = boosted
	}
}
