package rank

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// Node 是排序 Node：用 Engine 对候选批量打分并按综合分降序排序。
// - 写入 labels：weight_version
// - MinScore > 0 时过滤低于阈值的候选
type Node struct {
	Engine  *Engine
	Weights *WeightSet

	// Version 指定权重版本；为空时使用 Weights 的 active 版本。
	Version string

	// MinScore 是综合分下限，低于该值的候选被丢弃（0 表示不过滤）。
	MinScore float64
}

func (n *Node) Name() string        { return "rank.score" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Node) Process(
	_ context.Context,
	_ *core.FeedContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if n.Engine == nil || len(candidates) == 0 {
		return candidates, nil
	}

	w := n.resolveWeights()
	scored := n.Engine.ScoreBatch(candidates, w)

	out := scored
	if n.MinScore > 0 {
		out = out[:0]
		for _, c := range scored {
			if c != nil && c.Combined >= n.MinScore {
				out = append(out, c)
			}
		}
	}

	for _, c := range out {
		if c != nil {
			c.PutLabel("weight_version", utils.Label{Value: w.Version, Source: "rank"})
		}
	}
	return out, nil
}

func (n *Node) resolveWeights() Weights {
	if n.Weights == nil {
		return DefaultWeights()
	}
	if n.Version != "" {
		if w, ok := n.Weights.Get(n.Version); ok {
			return w
		}
	}
	return n.Weights.Active()
}
