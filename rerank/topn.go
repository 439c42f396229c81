package rerank

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// TopN 是一个 Top-N 截断节点，在排序后截取前 N 个候选。
// 通常在 rank 节点之后使用，控制进入后处理与缓存的候选规模。
type TopN struct {
	// N 要保留的候选数量。
	// N <= 0 时不截断；N > len(candidates) 时返回全部。
	N int
}

func (n *TopN) Name() string {
	return "rerank.topn"
}

func (n *TopN) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *TopN) Process(
	_ context.Context,
	_ *core.FeedContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if n.N <= 0 || len(candidates) <= n.N {
		return candidates, nil
	}
	return candidates[:n.N], nil
}
