package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Followees 是关注流候选源：用户关注的作者近期发布的内容。
// 候选行由上游分析任务预计算，key 为 {KeyPrefix}:{UserID}。
type Followees struct {
	Store core.Store

	// KeyPrefix 默认 "feed:followees"
	KeyPrefix string

	// LiveStats 为 true 且 Store 支持 KeyValueStore 时，
	// 叠加反馈链路累积的实时互动计数。
	LiveStats bool
}

func (s *Followees) Name() string      { return "recall.followees" }
func (s *Followees) ID() core.SourceID { return core.SourceFollowees }

func (s *Followees) Fetch(
	ctx context.Context,
	fctx *core.FeedContext,
	limit int,
) ([]*core.Candidate, error) {
	if fctx == nil || fctx.UserID == "" {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: followees requires user_id")
	}

	keyPrefix := s.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "feed:followees"
	}

	data, err := s.Store.Get(ctx, keyPrefix+":"+fctx.UserID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	cands, err := decodeRows(data, core.SourceFollowees, limit)
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
