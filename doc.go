// Package feedkit 是一个 Feed 流排序与分发工具包（Feed Kit）。
//
// 设计要点：
// - Pipeline-first: Feed 逻辑通过 Node 串联（Recall → Rank → Filter → PostProcess）
// - 并发召回: 多候选源 fan-out，单源失败降级而不是整页失败
// - 确定性排序: 版本化权重 + 批内统一时钟，同样输入永远得到同样顺序
// - 读穿透缓存: 整页快照缓存，失效/过期即回源计算，缓存故障只降级不报错
// - 反馈闭环: 互动事件异步回流计数与作者亲和度，影响后续排序
package feedkit

import "github.com/rushteam/feedkit/pipeline"

// 轻量 facade：便于用户直接 import "feedkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindRank        = pipeline.KindRank
	KindFilter      = pipeline.KindFilter
	KindPostProcess = pipeline.KindPostProcess
)
