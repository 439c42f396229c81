package pipeline

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：聚合多个候选源
	KindRank        Kind = "rank"        // 排序阶段：对候选打综合分并排序
	KindFilter      Kind = "filter"      // 过滤阶段：剔除已曝光/命中策略的候选
	KindPostProcess Kind = "postprocess" // 后处理阶段：截断、补充标签等
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 candidates -> 输出 candidates”的形态，方便召回生成、过滤截断等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		fctx *core.FeedContext,
		candidates []*core.Candidate,
	) ([]*core.Candidate, error)
}
