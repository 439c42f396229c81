package rerank

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// Diversity 是一个简单的作者多样性节点：限制单个作者在一页内的出现次数。
// Feed 流里同一作者连续刷屏体验很差，这里在排序结果上做一次打散截断，
// 每个作者最多保留 MaxPerAuthor 个候选（保持原有顺序）。
type Diversity struct {
	// MaxPerAuthor 单个作者允许的最大候选数。
	// <= 0 时不做限制。
	MaxPerAuthor int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.FeedContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if n.MaxPerAuthor <= 0 || len(candidates) == 0 {
		return candidates, nil
	}

	counts := make(map[string]int, 32)
	out := make([]*core.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c == nil {
			continue
		}
		// 没有作者信息的候选不参与打散
		if c.AuthorID == "" {
			out = append(out, c)
			continue
		}
		if counts[c.AuthorID] >= n.MaxPerAuthor {
			continue
		}
		counts[c.AuthorID]++
		out = append(out, c)
	}

	return out, nil
}
