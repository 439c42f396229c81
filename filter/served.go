package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// ServedHistory 是曝光窗口的读接口。
type ServedHistory interface {
	// ServedWithin 返回用户在保留窗口内已被服务过的 content_id 集合
	ServedWithin(ctx context.Context, userID string) (map[string]struct{}, error)

	// WasServed 判断单条内容是否在窗口内被服务过
	WasServed(ctx context.Context, userID, contentID string) (bool, error)
}

// ServedFilter 是已曝光过滤器：丢弃保留窗口内已服务过的内容。
// 只读、无副作用——把已服务 id 写入窗口是编排层在成功出页之后的职责，
// 这样过滤器本身可以被平凡地单测。
type ServedFilter struct {
	History ServedHistory
}

func (f *ServedFilter) Name() string {
	return "filter.served"
}

// ShouldFilter 实现 Filter 接口（逐条检查，适合 Node 链）。
func (f *ServedFilter) ShouldFilter(
	ctx context.Context,
	fctx *core.FeedContext,
	c *core.Candidate,
) (bool, error) {
	if c == nil || fctx == nil || fctx.UserID == "" || f.History == nil {
		return false, nil
	}
	served, err := f.History.WasServed(ctx, fctx.UserID, c.ContentID)
	if err != nil {
		// 窗口读取失败时宁可重复曝光，不阻断出页
		return false, nil
	}
	return served, nil
}

// Filter 批量过滤：一次取出窗口内的全部已服务集合，再做内存判定。
// 编排层的主路径用这个入口，避免逐条回源。
func (f *ServedFilter) Filter(
	ctx context.Context,
	fctx *core.FeedContext,
	candidates []*core.Candidate,
) []*core.Candidate {
	if f.History == nil || fctx == nil || fctx.UserID == "" || len(candidates) == 0 {
		return candidates
	}

	served, err := f.History.ServedWithin(ctx, fctx.UserID)
	if err != nil || len(served) == 0 {
		return candidates
	}

	out := make([]*core.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if _, ok := served[c.ContentID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
